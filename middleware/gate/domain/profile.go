package domain

import (
	"errors"
	"fmt"
	"time"
)

// Profile é um perfil de limite independente, identificado pela classe de rota.
// Perfis diferentes nunca compartilham contadores.
type Profile struct {
	Name   string        `yaml:"name"`
	Window time.Duration `yaml:"window"`
	Max    int           `yaml:"max"`

	// SkipSuccessful desconta a requisição quando a resposta final foi de sucesso.
	SkipSuccessful bool `yaml:"skipSuccessful"`

	// Atraso progressivo: desligado se DelayStep ou MaxDelay for zero.
	DelayAfter int           `yaml:"delayAfter"`
	DelayStep  time.Duration `yaml:"delayStep"`
	MaxDelay   time.Duration `yaml:"maxDelay"`

	// Message é usada no corpo da resposta 429; vazio usa a mensagem padrão.
	Message string `yaml:"message"`
}

func (p Profile) Validate() error {
	if p.Name == "" {
		return errors.New("profile name is required")
	}
	if p.Window <= 0 {
		return fmt.Errorf("profile %s: window must be > 0", p.Name)
	}
	if p.Max <= 0 {
		return fmt.Errorf("profile %s: max must be > 0", p.Name)
	}
	if p.DelayAfter < 0 || p.DelayStep < 0 || p.MaxDelay < 0 {
		return fmt.Errorf("profile %s: delay settings must be >= 0", p.Name)
	}
	return nil
}

// DelayEnabled indica se o perfil aplica atraso progressivo.
func (p Profile) DelayEnabled() bool {
	return p.DelayStep > 0 && p.MaxDelay > 0
}

// BanPolicy controla a escalada de violações para banimento.
type BanPolicy struct {
	Threshold       int64         `yaml:"threshold"`
	BanDuration     time.Duration `yaml:"banDuration"`
	ViolationWindow time.Duration `yaml:"violationWindow"`
	Reason          string        `yaml:"reason"`
}

const DefaultBanReason = "auto-banned"

func DefaultBanPolicy() BanPolicy {
	return BanPolicy{
		Threshold:       10,
		BanDuration:     time.Hour,
		ViolationWindow: time.Hour,
		Reason:          DefaultBanReason,
	}
}

func (b BanPolicy) Validate() error {
	if b.Threshold <= 0 {
		return errors.New("ban threshold must be > 0")
	}
	if b.BanDuration <= 0 || b.ViolationWindow <= 0 {
		return errors.New("ban duration and violation window must be > 0")
	}
	return nil
}
