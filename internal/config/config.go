package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Search    SearchConfig    `mapstructure:"search"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Importer  ImporterConfig  `mapstructure:"importer"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains the Badger store configuration
type DatabaseConfig struct {
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"in_memory"`
}

// AuthConfig contains authentication configuration
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTExpiry time.Duration `mapstructure:"jwt_expiry"`
}

// SearchConfig contains search index configuration
type SearchConfig struct {
	IndexPath string `mapstructure:"index_path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
	File   string `mapstructure:"file"`   // append-only log file, optional
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

// CORSConfig contains CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ImporterConfig contains feed synchronization settings
type ImporterConfig struct {
	SnapshotTTL       time.Duration `mapstructure:"snapshot_ttl"`
	SnapshotCapacity  int           `mapstructure:"snapshot_capacity"`
	Timezone          string        `mapstructure:"timezone"`
	DefaultChunkLimit int           `mapstructure:"default_chunk_limit"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	SideloadTimeout   time.Duration `mapstructure:"sideload_timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	SystemPrincipal   string        `mapstructure:"system_principal"`
}

// Location resolves the configured time zone
func (c ImporterConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// SchedulerConfig contains periodic trigger settings
type SchedulerConfig struct {
	Enabled                bool `mapstructure:"enabled"`
	DefaultIntervalMinutes int  `mapstructure:"default_interval_minutes"`
}

// Load loads configuration from file and environment variables
// Priority: ENV vars > config.yaml > defaults
func Load() (*Config, error) {
	return LoadWith(viper.New())
}

// LoadWith loads configuration into the provided viper instance
func LoadWith(v *viper.Viper) (*Config, error) {
	// Set config file details
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Bind environment variables
	v.SetEnvPrefix("PODSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional - OK if it doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "10m") // chunk calls may sideload images
	v.SetDefault("server.shutdown_timeout", "10s")

	// Database defaults
	v.SetDefault("database.path", "./data/podsync")
	v.SetDefault("database.in_memory", false)

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_expiry", "24h")

	// Search defaults
	v.SetDefault("search.index_path", "./data/episodes.bleve")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "./logs/podsync.log")

	// Rate limit defaults
	v.SetDefault("rate_limit.requests_per_minute", 600)
	v.SetDefault("rate_limit.burst", 60)

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})

	// Importer defaults
	v.SetDefault("importer.snapshot_ttl", "300s")
	v.SetDefault("importer.snapshot_capacity", 256)
	v.SetDefault("importer.timezone", "UTC")
	v.SetDefault("importer.default_chunk_limit", 10)
	v.SetDefault("importer.fetch_timeout", "30s")
	v.SetDefault("importer.sideload_timeout", "300s")
	v.SetDefault("importer.user_agent", "podsync/1.0 (+https://github.com/amiyamandal-dev/podsync)")
	v.SetDefault("importer.system_principal", "system")

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.default_interval_minutes", 60)
}

// validate validates the configuration
func validate(cfg *Config) error {
	// Validate server mode
	if cfg.Server.Mode != "debug" && cfg.Server.Mode != "release" && cfg.Server.Mode != "test" {
		return fmt.Errorf("server.mode must be 'debug', 'release' or 'test', got: %s", cfg.Server.Mode)
	}

	// Validate port
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", cfg.Server.Port)
	}

	// Validate JWT secret
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(cfg.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters long")
	}

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error, got: %s", cfg.Logging.Level)
	}

	// Validate logging format
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "text" {
		return fmt.Errorf("logging.format must be 'json' or 'text', got: %s", cfg.Logging.Format)
	}

	// Validate database path
	if !cfg.Database.InMemory && cfg.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// Validate importer
	if cfg.Importer.SnapshotTTL <= 0 {
		return fmt.Errorf("importer.snapshot_ttl must be positive")
	}
	if cfg.Importer.SnapshotCapacity < 1 {
		return fmt.Errorf("importer.snapshot_capacity must be at least 1, got: %d", cfg.Importer.SnapshotCapacity)
	}
	if cfg.Importer.DefaultChunkLimit < 1 {
		return fmt.Errorf("importer.default_chunk_limit must be at least 1, got: %d", cfg.Importer.DefaultChunkLimit)
	}
	if _, err := cfg.Importer.Location(); err != nil {
		return fmt.Errorf("importer.timezone is not a known time zone: %s", cfg.Importer.Timezone)
	}
	if cfg.Importer.SystemPrincipal == "" {
		return fmt.Errorf("importer.system_principal is required")
	}

	if cfg.Scheduler.DefaultIntervalMinutes < 1 {
		return fmt.Errorf("scheduler.default_interval_minutes must be at least 1, got: %d", cfg.Scheduler.DefaultIntervalMinutes)
	}

	return nil
}
