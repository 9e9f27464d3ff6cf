// Package config loads relay configuration from config.yaml with .env and
// environment-variable overrides, mirroring how the service is deployed:
// yaml for local defaults, real env vars in the container.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/email-relay/internal/relayerr"
)

// Config holds all configuration for the relay.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Auth     AuthConfig     `yaml:"auth"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Provider ProviderConfig `yaml:"provider"`
	Inbox    InboxConfig    `yaml:"inbox"`
	Log      LogConfig      `yaml:"log"`
	DevMode  bool           `yaml:"dev_mode"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, listening on all interfaces in containers.
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// StoreConfig holds list-store (Redis) connection settings.
type StoreConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured dial timeout as a duration.
func (c StoreConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AuthConfig holds operator credential and session token settings.
type AuthConfig struct {
	AdminPassword string `yaml:"admin_password"`
	TokenSecret   string `yaml:"token_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

// TokenTTL returns the session token validity window.
func (c AuthConfig) TokenTTL() time.Duration {
	if c.TokenTTLHours <= 0 {
		return 8 * time.Hour
	}
	return time.Duration(c.TokenTTLHours) * time.Hour
}

// WebhookConfig holds inbound webhook verification settings.
type WebhookConfig struct {
	SigningSecret    string `yaml:"signing_secret"`
	ToleranceMinutes int    `yaml:"tolerance_minutes"`
}

// Tolerance returns the accepted webhook timestamp skew.
func (c WebhookConfig) Tolerance() time.Duration {
	if c.ToleranceMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.ToleranceMinutes) * time.Minute
}

// ProviderConfig selects and configures the outbound delivery provider.
type ProviderConfig struct {
	Kind   string       `yaml:"kind"` // "resend" or "ses"
	From   string       `yaml:"from"`
	Resend ResendConfig `yaml:"resend"`
	SES    SESConfig    `yaml:"ses"`
}

// ResendConfig holds the HTTP delivery provider API settings.
type ResendConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured request timeout as a duration.
func (c ResendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SESConfig holds AWS SES v2 API settings.
type SESConfig struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// InboxConfig holds received-email history settings.
type InboxConfig struct {
	ListKey    string `yaml:"list_key"`
	MaxHistory int64  `yaml:"max_history"`
	ReadLimit  int64  `yaml:"read_limit"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// RedactEnabled reports whether email redaction is on (default true).
func (c LogConfig) RedactEnabled() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Load reads and parses the configuration file. A missing file is not an
// error: the relay can run entirely from environment variables in a
// container, so defaults are applied to a zero config instead.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Store.TimeoutSeconds == 0 {
		cfg.Store.TimeoutSeconds = 5
	}
	if cfg.Provider.Kind == "" {
		cfg.Provider.Kind = "resend"
	}
	if cfg.Provider.Resend.BaseURL == "" {
		cfg.Provider.Resend.BaseURL = "https://api.resend.com"
	}
	if cfg.Provider.Resend.TimeoutSeconds == 0 {
		cfg.Provider.Resend.TimeoutSeconds = 30
	}
	if cfg.Provider.SES.Region == "" {
		cfg.Provider.SES.Region = "us-west-2"
	}
	if cfg.Inbox.ListKey == "" {
		cfg.Inbox.ListKey = "emails:received"
	}
	if cfg.Inbox.MaxHistory == 0 {
		cfg.Inbox.MaxHistory = 1000
	}
	if cfg.Inbox.ReadLimit == 0 {
		cfg.Inbox.ReadLimit = 100
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) first, so secrets can live in .env
// locally and in real env vars in the container.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Store.URL = v
	} else if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Store.URL = v
	}
	if v := os.Getenv("ADMIN_PASSWORD"); v != "" {
		cfg.Auth.AdminPassword = v
	}
	if v := os.Getenv("TOKEN_SECRET"); v != "" {
		cfg.Auth.TokenSecret = v
	} else if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.Auth.TokenSecret = v
	}
	if v := os.Getenv("WEBHOOK_SIGNING_SECRET"); v != "" {
		cfg.Webhook.SigningSecret = v
	}
	if v := os.Getenv("PROVIDER_KIND"); v != "" {
		cfg.Provider.Kind = v
	}
	if v := os.Getenv("PROVIDER_FROM"); v != "" {
		cfg.Provider.From = v
	}
	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		cfg.Provider.Resend.APIKey = v
	}
	if v := os.Getenv("RESEND_BASE_URL"); v != "" {
		cfg.Provider.Resend.BaseURL = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Provider.SES.Region = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Provider.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Provider.SES.SecretKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if os.Getenv("DEV_MODE") == "true" || os.Getenv("ENVIRONMENT") == "development" {
		cfg.DevMode = true
	}

	return cfg, nil
}

// Validate reports the first missing required setting as a configuration
// error. Components also perform their own lazy checks so a partially
// configured relay still serves the routes it can.
func (c *Config) Validate() error {
	if c.Store.URL == "" {
		return relayerr.New(relayerr.KindConfiguration, "store URL is not configured")
	}
	if c.Auth.TokenSecret == "" {
		return relayerr.New(relayerr.KindConfiguration, "token signing secret is not configured")
	}
	if c.Auth.AdminPassword == "" {
		return relayerr.New(relayerr.KindConfiguration, "operator password is not configured")
	}
	if c.Webhook.SigningSecret == "" {
		return relayerr.New(relayerr.KindConfiguration, "webhook signing secret is not configured")
	}
	if c.Provider.Kind == "resend" && c.Provider.Resend.APIKey == "" {
		return relayerr.New(relayerr.KindConfiguration, "provider API key is not configured")
	}
	return nil
}
