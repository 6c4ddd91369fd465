package config

import (
	"github.com/everkeep/everkeep/pkg/gc"
	"github.com/everkeep/everkeep/pkg/metrics"
	"github.com/everkeep/everkeep/pkg/upload"
)

// MetricsResult contains all metrics-related components created from
// configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// CleanupMetrics is the recorder for the cleanup worker (nil if
	// disabled; the worker substitutes its own no-op)
	CleanupMetrics gc.CleanupMetrics

	// UploadMetrics is the recorder for the upload authorizer (nil if
	// disabled; the authorizer substitutes its own no-op)
	UploadMetrics upload.UploadMetrics
}

// InitializeMetrics creates and initializes all metrics components based on
// configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed recorders for all components
//
// If metrics are disabled:
//   - Returns nil server and nil recorders (components fall back to no-ops)
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server: metrics.NewServer(metrics.ServerConfig{
			Port: cfg.Server.Metrics.Port,
		}),
		CleanupMetrics: metrics.NewCleanupMetrics(),
		UploadMetrics:  metrics.NewUploadMetrics(),
	}
}
