package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Values are loaded from a YAML
// file, overridden by MEMBERS_* environment variables, and finally by the
// secret payload applied via ApplySecrets.
type Config struct {
	// Accounts maps a display label to the Zoom account email it covers.
	Accounts map[string]string `yaml:"accounts" ignored:"true"`

	HorizonDays     int    `yaml:"horizon_days" envconfig:"HORIZON_DAYS"`
	PageSize        int    `yaml:"page_size" envconfig:"PAGE_SIZE"`
	FetchTime       string `yaml:"fetch_time" envconfig:"FETCH_TIME"`
	Timezone        string `yaml:"timezone" envconfig:"TIMEZONE"`
	FetchTimeoutSec int    `yaml:"fetch_timeout_secs" envconfig:"FETCH_TIMEOUT_SECS"`
	DBPath          string `yaml:"db_path" envconfig:"DB_PATH"`
	LogLevel        string `yaml:"log_level" envconfig:"LOG_LEVEL"`

	Zoom      ZoomConfig      `yaml:"zoom"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	AWS       AWSConfig       `yaml:"aws"`
	Slack     SlackConfig     `yaml:"slack"`
	Portal    PortalConfig    `yaml:"portal"`
}

// ZoomConfig holds upstream API credentials and the auth mode used to mint
// bearer tokens. Mode "jwt" signs a short-lived assertion with the API
// secret; mode "oauth" performs a server-to-server account-credentials grant.
type ZoomConfig struct {
	AuthMode     string `yaml:"auth_mode" envconfig:"ZOOM_AUTH_MODE"`
	APIKey       string `yaml:"api_key" envconfig:"ZOOM_API_KEY"`
	APISecret    string `yaml:"api_secret" envconfig:"ZOOM_API_SECRET"`
	ClientID     string `yaml:"client_id" envconfig:"ZOOM_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" envconfig:"ZOOM_CLIENT_SECRET"`
	AccountID    string `yaml:"account_id" envconfig:"ZOOM_ACCOUNT_ID"`
	BaseURL      string `yaml:"base_url" envconfig:"ZOOM_BASE_URL"`
	OAuthURL     string `yaml:"oauth_url" envconfig:"ZOOM_OAUTH_URL"`
}

// RateLimitConfig mirrors the upstream API quota: a reservoir of permits per
// interval, with a minimum spacing between call starts.
type RateLimitConfig struct {
	Reservoir    int `yaml:"reservoir" envconfig:"RATE_RESERVOIR"`
	IntervalMS   int `yaml:"interval_ms" envconfig:"RATE_INTERVAL_MS"`
	MinSpacingMS int `yaml:"min_spacing_ms" envconfig:"RATE_MIN_SPACING_MS"`
}

// AWSConfig names the external AWS collaborators. When LocalDir is set the
// fetcher publishes to the filesystem instead of S3.
type AWSConfig struct {
	SecretID      string `yaml:"secret_id" envconfig:"AWS_SECRET"`
	Bucket        string `yaml:"bucket" envconfig:"AWS_BUCKET"`
	SlackTopicARN string `yaml:"slack_topic_arn" envconfig:"SLACK_TOPIC_ARN"`
	ArtifactKey   string `yaml:"artifact_key" envconfig:"ARTIFACT_KEY"`
	LocalDir      string `yaml:"local_dir" envconfig:"LOCAL_SINK_DIR"`
}

// SlackConfig holds the workspace settings for the invite workflow.
type SlackConfig struct {
	Token         string `yaml:"token" envconfig:"SLACK_TOKEN"`
	URL           string `yaml:"url" envconfig:"SLACK_URL"`
	InviteChannel string `yaml:"invite_channel" envconfig:"SLACK_INVITE_CHANNEL"`
}

// PortalConfig holds the web tier settings, including the identity provider
// used for login.
type PortalConfig struct {
	Addr            string `yaml:"addr" envconfig:"PORTAL_ADDR"`
	IssuerURL       string `yaml:"issuer_url" envconfig:"OIDC_ISSUER_URL"`
	ClientID        string `yaml:"client_id" envconfig:"OIDC_CLIENT_ID"`
	ClientSecret    string `yaml:"client_secret" envconfig:"OIDC_CLIENT_SECRET"`
	RedirectURL     string `yaml:"redirect_url" envconfig:"OIDC_REDIRECT_URL"`
	SessionSecret   string `yaml:"session_secret" envconfig:"SESSION_SECRET"`
	SessionTTLHours int    `yaml:"session_ttl_hours" envconfig:"SESSION_TTL_HOURS"`
	FetchEnabled    bool   `yaml:"fetch_enabled" envconfig:"FETCH_ENABLED"`
}

// Defaults returns a Config with all default values set.
func Defaults() Config {
	return Config{
		HorizonDays:     21,
		PageSize:        300,
		FetchTime:       "06:00",
		Timezone:        "America/New_York",
		FetchTimeoutSec: 10,
		DBPath:          "./members.db",
		LogLevel:        "info",
		Zoom: ZoomConfig{
			AuthMode: "jwt",
			BaseURL:  "https://api.zoom.us/v2",
			OAuthURL: "https://zoom.us",
		},
		RateLimit: RateLimitConfig{
			Reservoir:    30,
			IntervalMS:   1000,
			MinSpacingMS: 100,
		},
		AWS: AWSConfig{
			ArtifactKey: "zoom_meetings.json",
		},
		Portal: PortalConfig{
			Addr:            ":8080",
			SessionTTLHours: 24,
		},
	}
}

// Load reads the YAML config file, applies MEMBERS_* environment overrides,
// and returns a validated Config. The environment variable MEMBERS_CONFIG
// overrides the file path.
func Load(path string) (Config, error) {
	if envPath := os.Getenv("MEMBERS_CONFIG"); envPath != "" {
		path = envPath
	}

	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}

	if err := envconfig.Process("members", &cfg); err != nil {
		return Config{}, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ApplySecrets merges a secret payload into the config. Keys follow the
// environment-variable naming the deployment has always used.
func (c *Config) ApplySecrets(values map[string]string) {
	set := func(dst *string, key string) {
		if v, ok := values[key]; ok && v != "" {
			*dst = v
		}
	}
	set(&c.Zoom.APIKey, "ZOOM_API_KEY")
	set(&c.Zoom.APISecret, "ZOOM_API_SECRET")
	set(&c.Zoom.ClientID, "ZOOM_CLIENT_ID")
	set(&c.Zoom.ClientSecret, "ZOOM_CLIENT_SECRET")
	set(&c.Zoom.AccountID, "ZOOM_ACCOUNT_ID")
	set(&c.Slack.Token, "SLACK_TOKEN")
	set(&c.Portal.ClientSecret, "OIDC_CLIENT_SECRET")
	set(&c.Portal.SessionSecret, "SESSION_SECRET")
}

// Validate checks that required fields are present and values are valid.
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("at least one zoom account is required")
	}
	if c.HorizonDays <= 0 {
		return fmt.Errorf("horizon_days must be positive, got %d", c.HorizonDays)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}

	switch c.Zoom.AuthMode {
	case "jwt", "oauth":
	default:
		return fmt.Errorf("invalid zoom auth_mode %q: must be jwt or oauth", c.Zoom.AuthMode)
	}

	if c.RateLimit.Reservoir <= 0 || c.RateLimit.IntervalMS <= 0 {
		return fmt.Errorf("rate_limit reservoir and interval must be positive")
	}
	if c.RateLimit.MinSpacingMS < 0 {
		return fmt.Errorf("rate_limit min_spacing_ms must not be negative")
	}

	if err := ValidateTime(c.FetchTime); err != nil {
		return err
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	return nil
}

// ValidateTime checks that a time string is in valid HH:MM 24-hour format.
func ValidateTime(t string) error {
	if len(t) != 5 || t[2] != ':' {
		return fmt.Errorf("invalid time format %q: must be HH:MM", t)
	}

	if t[0] < '0' || t[0] > '9' || t[1] < '0' || t[1] > '9' ||
		t[3] < '0' || t[3] > '9' || t[4] < '0' || t[4] > '9' {
		return fmt.Errorf("invalid time format %q: must be HH:MM", t)
	}

	hour := (int(t[0]-'0') * 10) + int(t[1]-'0')
	minute := (int(t[3]-'0') * 10) + int(t[4]-'0')

	if hour > 23 {
		return fmt.Errorf("invalid time %q: hour must be 0-23", t)
	}
	if minute > 59 {
		return fmt.Errorf("invalid time %q: minute must be 0-59", t)
	}

	return nil
}
