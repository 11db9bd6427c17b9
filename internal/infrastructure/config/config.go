package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all daemon configuration
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Store     StoreConfig
	Transport TransportConfig
	Launcher  LauncherConfig
	Manifest  ManifestConfig
}

// ServerConfig holds HTTP and health server configuration
type ServerConfig struct {
	Host            string        `envconfig:"PUSHD_HOST" default:"127.0.0.1"`
	Port            string        `envconfig:"PUSHD_PORT" default:"8070" validate:"required,numeric"`
	HealthAddr      string        `envconfig:"PUSHD_HEALTH_ADDR" default:"127.0.0.1:8071"`
	ShutdownTimeout time.Duration `envconfig:"PUSHD_SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" validate:"gte=0"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" validate:"gte=0"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// CORSConfig holds allowed browser origins for the API
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`
}

// StoreConfig selects and configures the persistent store
type StoreConfig struct {
	Backend string `envconfig:"PUSHD_STORE" default:"badger" validate:"oneof=memory badger sqlite redis"`
	// Path is the badger directory or sqlite file
	Path string `envconfig:"PUSHD_STORE_PATH" default:"./data/push"`
	Root string `envconfig:"PUSHD_STORE_ROOT" default:"push" validate:"required"`

	BadgerGCInterval time.Duration `envconfig:"PUSHD_BADGER_GC_INTERVAL" default:"5m"`

	RedisAddr      string `envconfig:"PUSHD_REDIS_ADDR" default:"localhost:6379"`
	RedisPassword  string `envconfig:"PUSHD_REDIS_PASSWORD"`
	RedisDB        int    `envconfig:"PUSHD_REDIS_DB" default:"0" validate:"gte=0"`
	RedisKeyPrefix string `envconfig:"PUSHD_REDIS_PREFIX" default:"pushd:node:"`
}

// TransportConfig configures reservation drivers
type TransportConfig struct {
	// PendingDepth bounds undelivered items buffered per reservation
	PendingDepth int `envconfig:"PUSHD_PENDING_DEPTH" default:"16" validate:"gt=0"`
	// SignalBuffer is the capacity of the controller's signal channel
	SignalBuffer int `envconfig:"PUSHD_SIGNAL_BUFFER" default:"64" validate:"gt=0"`
	// RestrictedSchemes require a grant token to register
	RestrictedSchemes []string `envconfig:"PUSHD_RESTRICTED_SCHEMES" default:"socket,datagram"`
	GrantToken        string   `envconfig:"PUSHD_GRANT_TOKEN"`
	Disabled          []string `envconfig:"PUSHD_DISABLED_SCHEMES"`
}

// LauncherConfig configures how launch targets are started
type LauncherConfig struct {
	// Mode "exec" runs Command per launch; "log" only records the launch
	Mode             string        `envconfig:"PUSHD_LAUNCH_MODE" default:"log" validate:"oneof=exec log"`
	Command          string        `envconfig:"PUSHD_LAUNCH_COMMAND"`
	BreakerThreshold uint32        `envconfig:"PUSHD_BREAKER_THRESHOLD" default:"5" validate:"gt=0"`
	BreakerTimeout   time.Duration `envconfig:"PUSHD_BREAKER_TIMEOUT" default:"30s" validate:"gt=0"`
}

// ManifestConfig points at an optional static registration manifest
type ManifestConfig struct {
	Path  string `envconfig:"PUSHD_MANIFEST"`
	Watch bool   `envconfig:"PUSHD_MANIFEST_WATCH" default:"false"`
}

var validate = validator.New()

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks field constraints and cross-field requirements
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Launcher.Mode == "exec" && strings.TrimSpace(c.Launcher.Command) == "" {
		return fmt.Errorf("invalid config: PUSHD_LAUNCH_COMMAND is required when PUSHD_LAUNCH_MODE=exec")
	}
	if c.Manifest.Watch && c.Manifest.Path == "" {
		return fmt.Errorf("invalid config: PUSHD_MANIFEST_WATCH needs PUSHD_MANIFEST")
	}
	return nil
}

// Addr returns the HTTP listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            "8070",
			HealthAddr:      "127.0.0.1:8071",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Store: StoreConfig{
			Backend:          "badger",
			Path:             "./data/push",
			Root:             "push",
			BadgerGCInterval: 5 * time.Minute,
			RedisAddr:        "localhost:6379",
			RedisKeyPrefix:   "pushd:node:",
		},
		Transport: TransportConfig{
			PendingDepth:      16,
			SignalBuffer:      64,
			RestrictedSchemes: []string{"socket", "datagram"},
		},
		Launcher: LauncherConfig{
			Mode:             "log",
			BreakerThreshold: 5,
			BreakerTimeout:   30 * time.Second,
		},
	}
}
