package config

import (
	"strings"
	"time"

	"github.com/everkeep/everkeep/pkg/cache"
	"github.com/everkeep/everkeep/pkg/gc"
	"github.com/everkeep/everkeep/pkg/upload"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values with sensible
// defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by store implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyRecordDefaults(&cfg.Record)
	applyObjectsDefaults(&cfg.Objects)
	applyUploadDefaults(&cfg.Upload)
	applyCleanupDefaults(&cfg.Cleanup)
	applyCacheDefaults(&cfg.Cache)
}

// GetDefaultConfig returns a configuration with every default applied.
// Used by tests and by the init command to render a starter config file.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	// The default object store is S3 but the zero config carries no media
	// hosts; point the defaults at the memory fake so the result validates.
	cfg.Objects.Type = "memory"
	return cfg
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

// applyRecordDefaults sets record store defaults.
func applyRecordDefaults(cfg *RecordConfig) {
	if cfg.Type == "" {
		cfg.Type = "badger"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
}

// applyObjectsDefaults sets object store defaults.
func applyObjectsDefaults(cfg *ObjectsConfig) {
	if cfg.Type == "" {
		cfg.Type = "s3"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}
}

// applyUploadDefaults sets upload grant defaults.
func applyUploadDefaults(cfg *UploadConfig) {
	if cfg.GrantExpiry == 0 {
		cfg.GrantExpiry = upload.DefaultGrantExpiry
	}
	if cfg.GrantsPerSecond == 0 {
		cfg.GrantsPerSecond = 1
	}
	if cfg.GrantBurst == 0 {
		cfg.GrantBurst = 10
	}
}

// applyCleanupDefaults sets cleanup worker defaults.
//
// Cleanup defaults to enabled: a configuration that silently never deletes
// orphaned media is worse than one that must be explicitly turned off.
func applyCleanupDefaults(cfg *CleanupConfig) {
	if !cfg.Enabled && cfg.Interval == 0 && cfg.BatchSize == 0 && cfg.MaxAttempts == 0 {
		// Untouched section: enable with defaults.
		cfg.Enabled = true
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = gc.DefaultBatchSize
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}
}

// applyCacheDefaults sets profile cache defaults.
func applyCacheDefaults(cfg *CacheConfig) {
	def := cache.DefaultConfig()
	if !cfg.Enabled && cfg.TTL == 0 && cfg.MaxEntries == 0 {
		cfg.Enabled = def.Enabled
	}
	if cfg.TTL == 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = def.MaxEntries
	}
}
