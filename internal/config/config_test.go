package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("GATE_PROFILES_FILE", "")
	t.Setenv("AUTH_PATHS", "")
	t.Setenv("BAN_THRESHOLD", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 150*time.Millisecond, cfg.Redis.CallTimeout)
	assert.EqualValues(t, 10, cfg.Ban.Threshold)
	assert.Equal(t, time.Hour, cfg.Ban.BanDuration)
	assert.Equal(t, 1000, cfg.LogCapacity)
	assert.Equal(t, "api", cfg.DefaultProfile)

	auth := cfg.Profiles["auth"]
	assert.Equal(t, 15*time.Minute, auth.Window)
	assert.Equal(t, 5, auth.Max)
	assert.True(t, auth.SkipSuccessful)
	assert.True(t, auth.DelayEnabled())
	assert.Equal(t, 100, cfg.Profiles["api"].Max)
	assert.Equal(t, 30, cfg.Profiles["strict"].Max)

	require.Len(t, cfg.Routes, 1)
	assert.Equal(t, Route{Prefix: "/api/users/login", Profile: "auth"}, cfg.Routes[0])
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_CALL_TIMEOUT", "50ms")
	t.Setenv("BAN_THRESHOLD", "3")
	t.Setenv("BAN_DURATION", "10m")
	t.Setenv("AUTH_PATHS", "/login, /signin")
	t.Setenv("STRICT_PATHS", "/admin")
	t.Setenv("TRUST_XFF", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 50*time.Millisecond, cfg.Redis.CallTimeout)
	assert.EqualValues(t, 3, cfg.Ban.Threshold)
	assert.Equal(t, 10*time.Minute, cfg.Ban.BanDuration)
	assert.True(t, cfg.TrustXFF)
	assert.Equal(t, []Route{
		{Prefix: "/login", Profile: "auth"},
		{Prefix: "/signin", Profile: "auth"},
		{Prefix: "/admin", Profile: "strict"},
	}, cfg.Routes)
}

func TestFromEnv_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("REDIS_DB", "x")
	t.Setenv("REDIS_RETRY_EVERY", "soon")
	t.Setenv("TRUST_XFF", "maybe")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, 2*time.Second, cfg.Redis.RetryEvery)
	assert.False(t, cfg.TrustXFF)
}

func TestFromEnv_StatsNeedRedis(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("GATE_STATS_REDIS", "true")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_ADDR")
}

func TestFromEnv_UnknownDefaultProfile(t *testing.T) {
	t.Setenv("GATE_DEFAULT_PROFILE", "nope")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestProfilesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default: public
profiles:
  - name: public
    window: 30s
    max: 20
  - name: auth
    window: 5m
    max: 3
    skipSuccessful: true
    delayAfter: 1
    delayStep: 500ms
    maxDelay: 2s
routes:
  - prefix: /session
    profile: auth
ban:
  threshold: 4
  banDuration: 2h
  violationWindow: 30m
rules:
  automationMarkers: [crawler]
  apiClients: [wget]
  authPaths: [session]
`), 0o600))
	t.Setenv("GATE_PROFILES_FILE", path)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "public", cfg.DefaultProfile)
	assert.Equal(t, 30*time.Second, cfg.Profiles["public"].Window)
	assert.Equal(t, 500*time.Millisecond, cfg.Profiles["auth"].DelayStep)
	assert.Equal(t, 3, cfg.Profiles["auth"].Max)
	assert.Equal(t, 30, cfg.Profiles["strict"].Max, "embutido continua disponível")
	assert.Equal(t, []Route{{Prefix: "/session", Profile: "auth"}}, cfg.Routes)
	assert.EqualValues(t, 4, cfg.Ban.Threshold)
	assert.Equal(t, 2*time.Hour, cfg.Ban.BanDuration)
	assert.Equal(t, "auto-banned", cfg.Ban.Reason)
	assert.Equal(t, []string{"crawler"}, cfg.Rules.AutomationMarkers)
}

func TestProfilesFile_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		t.Setenv("GATE_PROFILES_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("route to unknown profile", func(t *testing.T) {
		cfg := Config{Profiles: DefaultProfiles(), DefaultProfile: "api", LogCapacity: 1}
		require.NoError(t, cfg.applyProfilesYAML([]byte("routes:\n  - prefix: /x\n    profile: ghost\n")))
		cfg.Ban.Threshold, cfg.Ban.BanDuration, cfg.Ban.ViolationWindow = 1, time.Second, time.Second
		require.Error(t, cfg.Validate())
	})

	t.Run("invalid profile", func(t *testing.T) {
		cfg := Config{Profiles: DefaultProfiles()}
		require.NoError(t, cfg.applyProfilesYAML([]byte("profiles:\n  - name: bad\n    window: 0s\n    max: 1\n")))
		cfg.LogCapacity = 1
		cfg.Ban.Threshold, cfg.Ban.BanDuration, cfg.Ban.ViolationWindow = 1, time.Second, time.Second
		require.Error(t, cfg.Validate())
	})

	t.Run("malformed yaml", func(t *testing.T) {
		cfg := Config{Profiles: DefaultProfiles()}
		require.Error(t, cfg.applyProfilesYAML([]byte("profiles: [")))
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "warn", "json").Info("hidden")
	NewLogger(&buf, "warn", "json").Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	NewLogger(&buf, "debug", "text").Debug("hello")
	assert.True(t, strings.Contains(buf.String(), "msg=hello"))
}
