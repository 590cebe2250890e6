package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Store     StoreConfig
	Transfer  TransferConfig
	Settings  SettingsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
	// AllowedOrigins lists the browser origins that may call the API and
	// open the progress stream.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://127.0.0.1:5173"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds inbound rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// StoreConfig holds the contents API client configuration.
type StoreConfig struct {
	BaseURL           string        `envconfig:"STORE_BASE_URL" default:"https://api.github.com"`
	RawBaseURL        string        `envconfig:"STORE_RAW_BASE_URL" default:"https://raw.githubusercontent.com"`
	ProxyPrefix       string        `envconfig:"STORE_PROXY_PREFIX" default:"https://ghproxy.net/"`
	Timeout           time.Duration `envconfig:"STORE_TIMEOUT" default:"60s"`
	ReadRetries       int           `envconfig:"STORE_READ_RETRIES" default:"2"`
	RequestsPerSecond float64       `envconfig:"STORE_RPS" default:"10"`
}

// TransferConfig holds object transfer limits.
type TransferConfig struct {
	MaxObjectSize int64 `envconfig:"MAX_OBJECT_SIZE" default:"104857600"`
}

// SettingsConfig locates the persisted repository coordinates.
type SettingsConfig struct {
	Path   string `envconfig:"SETTINGS_PATH" default:"gitdrive.toml"`
	Secret string `envconfig:"SETTINGS_SECRET"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8000",
			Host:           "127.0.0.1",
			AllowedOrigins: []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Store: StoreConfig{
			BaseURL:           "https://api.github.com",
			RawBaseURL:        "https://raw.githubusercontent.com",
			ProxyPrefix:       "https://ghproxy.net/",
			Timeout:           60 * time.Second,
			ReadRetries:       2,
			RequestsPerSecond: 10,
		},
		Transfer: TransferConfig{
			MaxObjectSize: 100 << 20,
		},
		Settings: SettingsConfig{
			Path: "gitdrive.toml",
		},
	}
}
