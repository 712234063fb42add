// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.breeze/config.yaml or ./config.yaml)
//  3. Default values
//
// Sensitive data (passwords, API keys) is never logged; see maskSecret.
// Validation is fail-fast: Load returns an error before the server can start
// with a broken configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidListenAddr indicates the listen address is malformed.
	ErrInvalidListenAddr = errors.New("invalid listen address")

	// ErrMissingModelBaseURL indicates no model backend endpoint is configured.
	ErrMissingModelBaseURL = errors.New("missing model base URL")

	// ErrInvalidModelBaseURL indicates the model backend endpoint is malformed.
	ErrInvalidModelBaseURL = errors.New("invalid model base URL")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is empty.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidHistoryLimit indicates the history window is out of range.
	ErrInvalidHistoryLimit = errors.New("invalid history limit")

	// ErrInvalidNavTimeout indicates the navigation timeout is out of range.
	ErrInvalidNavTimeout = errors.New("invalid navigation timeout")
)

// Default model and prompt used when nothing is configured. DefaultSystemPrompt
// is the shared behavior prompt prefixed to every model call (chat, planner,
// tool-outcome summary).
const (
	DefaultModel = "llama-3.1-8b-instruct"

	DefaultSystemPrompt = "You are Breeze, a concise and friendly assistant. " +
		"Answer in plain language, keep replies short unless asked for detail, " +
		"and never invent tool outputs: tools report their own results."
)

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON; when adding new
// secrets, update that method.
type Config struct {
	// HTTP server
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`

	// Conversation defaults
	Model              string `mapstructure:"model" json:"model"`
	SystemPrompt       string `mapstructure:"system_prompt" json:"system_prompt"`
	MaxHistoryMessages int    `mapstructure:"max_history_messages" json:"max_history_messages"`
	SessionTTLHours    int    `mapstructure:"session_ttl_hours" json:"session_ttl_hours"`

	// Model backend (OpenAI-compatible chat completions endpoint)
	ModelBaseURL     string `mapstructure:"model_base_url" json:"model_base_url"`
	ModelAPIKey      string `mapstructure:"model_api_key" json:"model_api_key"` // SENSITIVE: masked in MarshalJSON
	ModelMaxTokens   int    `mapstructure:"model_max_tokens" json:"model_max_tokens"`
	PlannerMaxTokens int    `mapstructure:"planner_max_tokens" json:"planner_max_tokens"`

	// Weather data providers
	GeocodeBaseURL  string `mapstructure:"geocode_base_url" json:"geocode_base_url"`
	ForecastBaseURL string `mapstructure:"forecast_base_url" json:"forecast_base_url"`

	// Browser capture
	NavTimeoutMs    int  `mapstructure:"nav_timeout_ms" json:"nav_timeout_ms"`
	BrowserHeadless bool `mapstructure:"browser_headless" json:"browser_headless"`

	// Storage
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".breeze")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL wins over the individual postgres_* fields when set.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("listen_addr", "127.0.0.1:8790")

	viper.SetDefault("model", DefaultModel)
	viper.SetDefault("system_prompt", DefaultSystemPrompt)
	viper.SetDefault("max_history_messages", 40)
	viper.SetDefault("session_ttl_hours", 24)

	viper.SetDefault("model_base_url", "http://localhost:11434")
	viper.SetDefault("model_max_tokens", 1024)
	viper.SetDefault("planner_max_tokens", 256)

	viper.SetDefault("geocode_base_url", "https://geocoding-api.open-meteo.com")
	viper.SetDefault("forecast_base_url", "https://api.open-meteo.com")

	viper.SetDefault("nav_timeout_ms", 20000)
	viper.SetDefault("browser_headless", true)

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "breeze")
	viper.SetDefault("postgres_password", "breeze_dev_password")
	viper.SetDefault("postgres_db_name", "breeze")
	viper.SetDefault("postgres_ssl_mode", "disable")
}

// bindEnvVariables binds environment overrides explicitly.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("listen_addr", "BREEZE_LISTEN_ADDR")
	mustBind("model", "BREEZE_MODEL")
	mustBind("model_base_url", "BREEZE_MODEL_BASE_URL")
	mustBind("model_api_key", "BREEZE_MODEL_API_KEY")
	mustBind("nav_timeout_ms", "BREEZE_NAV_TIMEOUT_MS")
	mustBind("browser_headless", "BREEZE_BROWSER_HEADLESS")
	mustBind("postgres_password", "BREEZE_POSTGRES_PASSWORD")
}

// parseDatabaseURL overrides the postgres_* fields from DATABASE_URL when set.
func (c *Config) parseDatabaseURL() error {
	raw := os.Getenv("DATABASE_URL")
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed DATABASE_URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("unsupported DATABASE_URL scheme %q", u.Scheme)
	}

	if host := u.Hostname(); host != "" {
		c.PostgresHost = host
	}
	if port := u.Port(); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("malformed DATABASE_URL port: %w", err)
		}
		c.PostgresPort = n
	}
	if u.User != nil {
		c.PostgresUser = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.PostgresPassword = pw
		}
	}
	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		c.PostgresDBName = db
	}
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.PostgresSSLMode = mode
	}
	return nil
}

// Validate checks the configuration, failing fast on the first problem.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidListenAddr, c.ListenAddr)
	}
	if c.ModelBaseURL == "" {
		return ErrMissingModelBaseURL
	}
	if u, err := url.Parse(c.ModelBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidModelBaseURL, c.ModelBaseURL)
	}
	if c.PostgresHost == "" {
		return ErrInvalidPostgresHost
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.MaxHistoryMessages < 1 || c.MaxHistoryMessages > 1000 {
		return fmt.Errorf("%w: %d", ErrInvalidHistoryLimit, c.MaxHistoryMessages)
	}
	if c.NavTimeoutMs < 1000 || c.NavTimeoutMs > 60000 {
		return fmt.Errorf("%w: %d", ErrInvalidNavTimeout, c.NavTimeoutMs)
	}
	return nil
}

// DatabaseURL returns the postgres:// connection URL assembled from the
// storage fields. Used for both pgx pool creation and migrations.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:   net.JoinHostPort(c.PostgresHost, strconv.Itoa(c.PostgresPort)),
		Path:   "/" + c.PostgresDBName,
	}
	q := url.Values{}
	q.Set("sslmode", c.PostgresSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Short secrets are fully
// masked to prevent substring matching; longer ones keep the first and last
// two characters for debug utility.
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
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.ModelAPIKey = maskSecret(a.ModelAPIKey)
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
