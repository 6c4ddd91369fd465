package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/everkeep/everkeep/pkg/upload"
)

// uploadMetrics is the Prometheus implementation of upload.UploadMetrics.
type uploadMetrics struct {
	grantsIssued *prometheus.CounterVec
	grantsDenied *prometheus.CounterVec
}

// NewUploadMetrics creates a new Prometheus-backed upload.UploadMetrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// causes the upload authorizer to use its built-in no-op implementation.
func NewUploadMetrics() upload.UploadMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &uploadMetrics{
		grantsIssued: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "everkeep_upload_grants_issued_total",
				Help: "Total number of presigned upload grants issued by category",
			},
			[]string{"category"},
		),
		grantsDenied: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "everkeep_upload_grants_denied_total",
				Help: "Total number of upload grant requests denied by category and reason",
			},
			[]string{"category", "reason"}, // validation, authorization, store
		),
	}
}

func (m *uploadMetrics) RecordGrantIssued(category string) {
	m.grantsIssued.WithLabelValues(category).Inc()
}

func (m *uploadMetrics) RecordGrantDenied(category, reason string) {
	m.grantsDenied.WithLabelValues(category, reason).Inc()
}
