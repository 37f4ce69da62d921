package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
accounts:
  "1": info@bostondsa.org
  "2": treasurer@bostondsa.org
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 21, cfg.HorizonDays)
	assert.Equal(t, 300, cfg.PageSize)
	assert.Equal(t, "06:00", cfg.FetchTime)
	assert.Equal(t, "America/New_York", cfg.Timezone)
	assert.Equal(t, "jwt", cfg.Zoom.AuthMode)
	assert.Equal(t, "https://api.zoom.us/v2", cfg.Zoom.BaseURL)
	assert.Equal(t, 30, cfg.RateLimit.Reservoir)
	assert.Equal(t, 1000, cfg.RateLimit.IntervalMS)
	assert.Equal(t, 100, cfg.RateLimit.MinSpacingMS)
	assert.Equal(t, "zoom_meetings.json", cfg.AWS.ArtifactKey)
	assert.Equal(t, "info@bostondsa.org", cfg.Accounts["1"])
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
horizon_days: 42
page_size: 100
zoom:
  auth_mode: oauth
  client_id: abc
rate_limit:
  reservoir: 10
  interval_ms: 2000
`))
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.HorizonDays)
	assert.Equal(t, 100, cfg.PageSize)
	assert.Equal(t, "oauth", cfg.Zoom.AuthMode)
	assert.Equal(t, "abc", cfg.Zoom.ClientID)
	assert.Equal(t, 10, cfg.RateLimit.Reservoir)
	// Defaults survive partial override of a nested section.
	assert.Equal(t, "https://api.zoom.us/v2", cfg.Zoom.BaseURL)
	assert.Equal(t, 100, cfg.RateLimit.MinSpacingMS)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MEMBERS_HORIZON_DAYS", "20")
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.HorizonDays)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no accounts", func(c *Config) { c.Accounts = nil }},
		{"zero horizon", func(c *Config) { c.HorizonDays = 0 }},
		{"zero page size", func(c *Config) { c.PageSize = 0 }},
		{"bad auth mode", func(c *Config) { c.Zoom.AuthMode = "basic" }},
		{"zero reservoir", func(c *Config) { c.RateLimit.Reservoir = 0 }},
		{"negative spacing", func(c *Config) { c.RateLimit.MinSpacingMS = -1 }},
		{"bad fetch time", func(c *Config) { c.FetchTime = "25:00" }},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Accounts = map[string]string{"1": "info@bostondsa.org"}
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestApplySecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Zoom.APIKey = "from-file"

	cfg.ApplySecrets(map[string]string{
		"ZOOM_API_KEY":    "key",
		"ZOOM_API_SECRET": "secret",
		"SLACK_TOKEN":     "xoxb-1",
		"SESSION_SECRET":  "s3ss10n",
		"UNKNOWN":         "ignored",
	})

	assert.Equal(t, "key", cfg.Zoom.APIKey)
	assert.Equal(t, "secret", cfg.Zoom.APISecret)
	assert.Equal(t, "xoxb-1", cfg.Slack.Token)
	assert.Equal(t, "s3ss10n", cfg.Portal.SessionSecret)
}

func TestApplySecretsKeepsExisting(t *testing.T) {
	cfg := Defaults()
	cfg.Zoom.APIKey = "from-file"
	cfg.ApplySecrets(map[string]string{"ZOOM_API_SECRET": "secret"})
	assert.Equal(t, "from-file", cfg.Zoom.APIKey)
}

func TestValidateTime(t *testing.T) {
	assert.NoError(t, ValidateTime("09:00"))
	assert.NoError(t, ValidateTime("23:59"))
	assert.Error(t, ValidateTime("9:00"))
	assert.Error(t, ValidateTime("24:00"))
	assert.Error(t, ValidateTime("12:60"))
	assert.Error(t, ValidateTime("ab:cd"))
}
