// Package config loads, defaults, and validates the EverKeep service
// configuration, and provides factories that build the configured stores.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete EverKeep configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (EVERKEEP_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store implementation defines its own configuration type. The Config
// struct contains type-specific sections (e.g. record.badger, objects.s3)
// and only the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server"`

	// Record specifies the record store type and type-specific configuration
	Record RecordConfig `mapstructure:"record"`

	// Objects specifies the object store type and type-specific configuration
	Objects ObjectsConfig `mapstructure:"objects"`

	// Media configures public URL recognition for garbage collection
	Media MediaConfig `mapstructure:"media"`

	// Upload configures presigned upload grants
	Upload UploadConfig `mapstructure:"upload"`

	// Cleanup configures the background media cleanup worker
	Cleanup CleanupConfig `mapstructure:"cleanup"`

	// Cache configures the public profile page cache
	Cache CacheConfig `mapstructure:"cache"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// Metrics configures the Prometheus metrics endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig controls the metrics HTTP server.
type MetricsConfig struct {
	// Enabled turns the Prometheus registry and /metrics endpoint on
	Enabled bool `mapstructure:"enabled"`

	// Port is the metrics server listen port
	Port int `mapstructure:"port" validate:"omitempty,gt=0,lte=65535"`
}

// RecordConfig specifies record store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type RecordConfig struct {
	// Type specifies which record store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// ObjectsConfig specifies object store configuration.
type ObjectsConfig struct {
	// Type specifies which object store implementation to use
	// Valid values: memory, s3
	Type string `mapstructure:"type" validate:"required,oneof=memory s3"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// S3 contains S3-specific configuration (AWS, Cloudflare R2, MinIO)
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// MediaConfig configures which public URLs are recognized as ours.
//
// The cleanup pipeline only deletes objects whose URLs resolve to a key
// through one of these hosts; everything else is skipped as third-party.
type MediaConfig struct {
	// CDNHost is the public serving host (e.g. "pub-xyz.r2.dev")
	CDNHost string `mapstructure:"cdn_host"`

	// EndpointHost is the private API host appearing in endpoint-form URLs
	EndpointHost string `mapstructure:"endpoint_host"`

	// Bucket is the bucket name expected in endpoint-form URL paths
	Bucket string `mapstructure:"bucket"`
}

// UploadConfig configures presigned upload grants.
type UploadConfig struct {
	// GrantExpiry is how long an issued grant stays usable
	GrantExpiry time.Duration `mapstructure:"grant_expiry" validate:"omitempty,gt=0"`

	// GrantsPerSecond is the sustained grant issuance rate per user.
	// Zero applies the default; a negative value disables rate limiting
	GrantsPerSecond float64 `mapstructure:"grants_per_second"`

	// GrantBurst is how many grants a user can request back to back
	GrantBurst int `mapstructure:"grant_burst" validate:"gte=0"`
}

// CleanupConfig configures the background media cleanup worker.
type CleanupConfig struct {
	// Enabled controls whether background cleanup runs
	Enabled bool `mapstructure:"enabled"`

	// Interval is how often the cleanup outbox is drained
	Interval time.Duration `mapstructure:"interval" validate:"omitempty,gt=0"`

	// BatchSize is the per-request object deletion ceiling (max 1000)
	BatchSize int `mapstructure:"batch_size" validate:"omitempty,gt=0,lte=1000"`

	// MaxAttempts is the per-task retry budget before dropping
	MaxAttempts int `mapstructure:"max_attempts" validate:"omitempty,gt=0"`

	// DryRun logs what would be deleted without deleting
	DryRun bool `mapstructure:"dry_run"`
}

// CacheConfig configures the public profile page cache.
type CacheConfig struct {
	// Enabled controls whether the slug lookup cache is active
	Enabled bool `mapstructure:"enabled"`

	// TTL is how long cached pages remain valid
	TTL time.Duration `mapstructure:"ttl" validate:"omitempty,gt=0"`

	// MaxEntries limits the cache size (LRU eviction)
	MaxEntries int `mapstructure:"max_entries" validate:"omitempty,gt=0"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (EVERKEEP_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file
// settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use EVERKEEP_ prefix and underscores
	// Example: EVERKEEP_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("EVERKEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/everkeep/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "everkeep")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "everkeep")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
