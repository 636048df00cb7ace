// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (./config.yaml or ~/.companyq/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: provider selection (local/cloud), chat model, embedder model
//   - Storage: PostgreSQL connection (see storage.go)
//   - Server: listen address, admin key, rate limits, CORS
//   - Ingestion: document directory, site URL to crawl
//   - Observability: OTLP trace export (see observability.go)
//
// Security: sensitive values (passwords, API keys) are masked in MarshalJSON.
// Validation: range checks in validation.go with sentinel errors for errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the embedding provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the chat model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidListenAddr indicates the server listen address is invalid.
	ErrInvalidListenAddr = errors.New("invalid listen address")

	// ErrMissingAdminKey indicates the admin API key is not set for serve mode.
	ErrMissingAdminKey = errors.New("missing admin API key")

	// ErrInvalidRateLimit indicates the rate limit settings are out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")
)

// Embedding provider identifiers used in Config.Provider.
const (
	ProviderLocal = "local"
	ProviderCloud = "cloud"
)

// Default model names per provider.
const (
	DefaultLocalModel         = "llama3.2"
	DefaultLocalEmbedderModel = "nomic-embed-text"
	DefaultCloudModel         = "gpt-4o-mini"
	DefaultCloudEmbedderModel = "text-embedding-3-small"
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// Embedding/generation provider: "local" (Ollama) or "cloud" (OpenAI)
	Provider string `mapstructure:"provider" json:"provider"`

	// Chat model and embedder model. When empty, provider defaults apply.
	ModelName     string `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Ollama configuration (only used when provider is "local")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Server configuration (serve mode only)
	ListenAddr     string   `mapstructure:"listen_addr" json:"listen_addr"`
	AdminAPIKey    string   `mapstructure:"admin_api_key" json:"admin_api_key"` // SENSITIVE: masked in MarshalJSON
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`
	CORSOrigins    []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy     bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For (set behind reverse proxy)

	// Ingestion configuration
	DocsDir string `mapstructure:"docs_dir" json:"docs_dir"`
	SiteURL string `mapstructure:"site_url" json:"site_url"`

	// Observability configuration (see observability.go)
	Observability ObservabilityConfig `mapstructure:"observability" json:"observability"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".companyq")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(configDir)

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{".", configDir},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	cfg.applyModelDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("provider", ProviderLocal)
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "companyq")
	viper.SetDefault("postgres_password", "companyq_dev_password")
	viper.SetDefault("postgres_db_name", "companyq")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Server defaults
	viper.SetDefault("listen_addr", ":8000")
	viper.SetDefault("rate_limit_rps", 5.0)
	viper.SetDefault("rate_limit_burst", 10)
	viper.SetDefault("cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("trust_proxy", false)

	// Ingestion defaults
	viper.SetDefault("docs_dir", "docs")

	// Observability defaults
	viper.SetDefault("observability.enabled", false)
	viper.SetDefault("observability.otlp_endpoint", "localhost:4318")
	viper.SetDefault("observability.service_name", "companyq")
	viper.SetDefault("observability.environment", "dev")
}

// bindEnvVariables binds environment variables explicitly.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "COMPANYQ_PROVIDER")
	mustBind("model_name", "COMPANYQ_MODEL_NAME")
	mustBind("embedder_model", "COMPANYQ_EMBEDDER_MODEL")
	mustBind("ollama_host", "OLLAMA_HOST")

	mustBind("listen_addr", "COMPANYQ_LISTEN_ADDR")
	mustBind("admin_api_key", "COMPANYQ_ADMIN_API_KEY")
	mustBind("cors_origins", "COMPANYQ_CORS_ORIGINS")
	mustBind("trust_proxy", "COMPANYQ_TRUST_PROXY")

	mustBind("docs_dir", "COMPANYQ_DOCS_DIR")
	mustBind("site_url", "COMPANYQ_SITE_URL")

	mustBind("observability.enabled", "COMPANYQ_TRACING_ENABLED")
	mustBind("observability.otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	// NOTE: OPENAI_API_KEY is read directly by the Genkit OpenAI plugin, not via Viper.
	// Validation checks its presence when the cloud provider is selected.
}

// applyModelDefaults fills in provider-specific model defaults when the user
// left model_name or embedder_model unset.
func (c *Config) applyModelDefaults() {
	if c.ModelName == "" {
		if c.Provider == ProviderCloud {
			c.ModelName = DefaultCloudModel
		} else {
			c.ModelName = DefaultLocalModel
		}
	}
	if c.EmbedderModel == "" {
		if c.Provider == ProviderCloud {
			c.EmbedderModel = DefaultCloudEmbedderModel
		} else {
			c.EmbedderModel = DefaultLocalEmbedderModel
		}
	}
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid substring matching against real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 chars or fewer are fully masked; longer ones keep the first
// and last two characters for debug utility.
//
// THREAT MODEL: this defends against accidental logging of real secrets.
// It is not cryptographically secure - if logs are compromised, rotate secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//   - AdminAPIKey
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.AdminAPIKey = maskSecret(a.AdminAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
