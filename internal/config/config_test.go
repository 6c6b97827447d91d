// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "log", cfg.Notify.Mode)
	assert.Equal(t, 5, cfg.Negotiation.MaxRounds)
	assert.Equal(t, 7*24*time.Hour, cfg.Negotiation.TTL)
	assert.Equal(t, 30, cfg.Recommend.TrendingWindowDays)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ECOMART_ADDR", ":9090")
	t.Setenv("ECOMART_NEGOTIATION__MAX_ROUNDS", "8")
	t.Setenv("ECOMART_NEGOTIATION__TTL", "48h")
	t.Setenv("ECOMART_LOG__LEVEL", "debug")
	t.Setenv("ECOMART_NOTIFY__MODE", "webhook")
	t.Setenv("ECOMART_NOTIFY__WEBHOOK_URL", "http://localhost:9999/hooks")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 8, cfg.Negotiation.MaxRounds)
	assert.Equal(t, 48*time.Hour, cfg.Negotiation.TTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "webhook", cfg.Notify.Mode)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("ECOMART_NEGOTIATION__MAX_ROUNDS", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }},
		{"empty database url", func(c *Config) { c.DatabaseURL = "" }},
		{"zero ttl", func(c *Config) { c.Negotiation.TTL = 0 }},
		{"zero history size", func(c *Config) { c.Recommend.HistorySize = 0 }},
		{"unknown notify mode", func(c *Config) { c.Notify.Mode = "carrier-pigeon" }},
		{"webhook without url", func(c *Config) { c.Notify.Mode = "webhook"; c.Notify.WebhookURL = "" }},
		{"zero rate limit", func(c *Config) { c.RateLimit.PerSecond = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}
