// Package config centraliza o carregamento de configurações dos binários.
//
// Fontes, em ordem: arquivo .env (godotenv, sem sobrescrever o ambiente),
// variáveis de ambiente e, opcionalmente, um arquivo YAML de perfis
// (GATE_PROFILES_FILE).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"request-gate/middleware/gate/domain"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr  string
	UpstreamURL string
	// MetricsAddr vazio publica /metrics no listener principal.
	MetricsAddr string

	KeyHeader           string
	TrustXFF            bool
	AddRateLimitHeaders bool
	Contact             string

	Redis RedisConfig
	Stats StatsConfig

	KeyPrefix   string
	Ban         domain.BanPolicy
	Rules       domain.Rules
	LogCapacity int

	Profiles map[string]domain.Profile
	Routes   []Route
	// DefaultProfile é o perfil global, aplicado a toda requisição além do
	// perfil da rota; vazio desliga.
	DefaultProfile string

	LogLevel  string
	LogFormat string
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	CallTimeout time.Duration
	RetryEvery  time.Duration
}

func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Addr) != "" }

type StatsConfig struct {
	RedisEnabled bool
	Prefix       string
	TTL          time.Duration
	Bucket       string
	TrackKeys    bool
}

// Route associa um prefixo de caminho a um perfil pelo nome.
type Route struct {
	Prefix  string `yaml:"prefix"`
	Profile string `yaml:"profile"`
}

// Load lê .env (se existir) e o ambiente.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv lê só o ambiente (útil em testes).
func FromEnv() (Config, error) {
	cfg := Config{}
	cfg.ListenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.UpstreamURL = os.Getenv("UPSTREAM_URL")
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	cfg.KeyHeader = os.Getenv("GATE_KEY_HEADER")
	cfg.TrustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.AddRateLimitHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", true)
	cfg.Contact = os.Getenv("GATE_CONTACT")

	cfg.Redis = RedisConfig{
		Addr:        os.Getenv("REDIS_ADDR"),
		Password:    os.Getenv("REDIS_PASSWORD"),
		DB:          getenvIntDefault("REDIS_DB", 0),
		CallTimeout: getenvDurationDefault("REDIS_CALL_TIMEOUT", 150*time.Millisecond),
		RetryEvery:  getenvDurationDefault("REDIS_RETRY_EVERY", 2*time.Second),
	}
	cfg.Stats = StatsConfig{
		RedisEnabled: getenvBoolDefault("GATE_STATS_REDIS", false),
		Prefix:       getenvDefault("GATE_STATS_PREFIX", "gate:stats"),
		TTL:          getenvDurationDefault("GATE_STATS_TTL", 24*time.Hour),
		Bucket:       getenvDefault("GATE_STATS_BUCKET", "minute"),
		TrackKeys:    getenvBoolDefault("GATE_STATS_TRACK_KEYS", false),
	}

	cfg.KeyPrefix = os.Getenv("GATE_KEY_PREFIX")
	def := domain.DefaultBanPolicy()
	cfg.Ban = domain.BanPolicy{
		Threshold:       int64(getenvIntDefault("BAN_THRESHOLD", int(def.Threshold))),
		BanDuration:     getenvDurationDefault("BAN_DURATION", def.BanDuration),
		ViolationWindow: getenvDurationDefault("VIOLATION_WINDOW", def.ViolationWindow),
		Reason:          def.Reason,
	}
	cfg.Rules = domain.DefaultRules()
	cfg.LogCapacity = getenvIntDefault("SUSPICIOUS_LOG_CAPACITY", 1000)

	cfg.Profiles = DefaultProfiles()
	cfg.DefaultProfile = getenvDefault("GATE_DEFAULT_PROFILE", "api")
	cfg.Routes = nil
	for _, p := range splitList(getenvDefault("AUTH_PATHS", "/api/users/login")) {
		cfg.Routes = append(cfg.Routes, Route{Prefix: p, Profile: "auth"})
	}
	for _, p := range splitList(os.Getenv("STRICT_PATHS")) {
		cfg.Routes = append(cfg.Routes, Route{Prefix: p, Profile: "strict"})
	}

	if path := os.Getenv("GATE_PROFILES_FILE"); path != "" {
		if err := cfg.applyProfilesFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "json")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultProfiles são os perfis embutidos.
func DefaultProfiles() map[string]domain.Profile {
	return map[string]domain.Profile{
		"auth": {
			Name:           "auth",
			Window:         15 * time.Minute,
			Max:            5,
			SkipSuccessful: true,
			DelayAfter:     3,
			DelayStep:      time.Second,
			MaxDelay:       10 * time.Second,
			Message:        "You have exceeded the maximum number of login attempts. Please try again in 15 minutes.",
		},
		"api": {
			Name:   "api",
			Window: time.Minute,
			Max:    100,
		},
		"strict": {
			Name:    "strict",
			Window:  time.Minute,
			Max:     30,
			Message: "This endpoint has strict rate limiting. Please slow down your requests.",
		},
	}
}

func (c Config) Validate() error {
	if c.LogCapacity <= 0 {
		return errors.New("SUSPICIOUS_LOG_CAPACITY must be > 0")
	}
	if err := c.Ban.Validate(); err != nil {
		return err
	}
	for name, p := range c.Profiles {
		if p.Name != name {
			return fmt.Errorf("profile %q registered under name %q", p.Name, name)
		}
		if err := p.Validate(); err != nil {
			return err
		}
	}
	if _, ok := c.Profiles[c.DefaultProfile]; c.DefaultProfile != "" && !ok {
		return fmt.Errorf("default profile %q is not defined", c.DefaultProfile)
	}
	for _, r := range c.Routes {
		if _, ok := c.Profiles[r.Profile]; !ok {
			return fmt.Errorf("route %q uses unknown profile %q", r.Prefix, r.Profile)
		}
	}
	if c.Stats.RedisEnabled && !c.Redis.Enabled() {
		return errors.New("REDIS_ADDR is required when GATE_STATS_REDIS=true")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
