package config

import (
	"fmt"
	"os"

	"request-gate/middleware/gate/domain"

	"gopkg.in/yaml.v3"
)

// profilesFile é o formato do arquivo GATE_PROFILES_FILE.
//
//	default: api
//	profiles:
//	  - name: auth
//	    window: 15m
//	    max: 5
//	    skipSuccessful: true
//	routes:
//	  - prefix: /api/users/login
//	    profile: auth
//	ban:
//	  threshold: 10
//	  banDuration: 1h
//	  violationWindow: 1h
type profilesFile struct {
	Default  string            `yaml:"default"`
	Profiles []domain.Profile  `yaml:"profiles"`
	Routes   []Route           `yaml:"routes"`
	Ban      *domain.BanPolicy `yaml:"ban"`
	Rules    *domain.Rules     `yaml:"rules"`
}

// applyProfilesFile sobrepõe perfis, rotas, política de ban e regras.
// Perfis com o mesmo nome de um embutido o substituem; rotas do arquivo
// substituem as do ambiente.
func (c *Config) applyProfilesFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read profiles file: %w", err)
	}
	return c.applyProfilesYAML(raw)
}

func (c *Config) applyProfilesYAML(raw []byte) error {
	var f profilesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse profiles file: %w", err)
	}

	for _, p := range f.Profiles {
		c.Profiles[p.Name] = p
	}
	if len(f.Routes) > 0 {
		c.Routes = f.Routes
	}
	if f.Default != "" {
		c.DefaultProfile = f.Default
	}
	if f.Ban != nil {
		if f.Ban.Reason == "" {
			f.Ban.Reason = domain.DefaultBanReason
		}
		c.Ban = *f.Ban
	}
	if f.Rules != nil {
		c.Rules = *f.Rules
	}
	return nil
}
