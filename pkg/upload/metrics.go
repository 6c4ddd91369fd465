package upload

// UploadMetrics receives counters from grant decisions. A nil recorder is
// replaced with a no-op.
type UploadMetrics interface {
	// RecordGrantIssued counts one issued grant per category.
	RecordGrantIssued(category string)

	// RecordGrantDenied counts one denial per category and reason
	// ("validation", "authorization", "rate_limited", "store").
	RecordGrantDenied(category, reason string)
}

type noopMetrics struct{}

func (noopMetrics) RecordGrantIssued(string) {}

func (noopMetrics) RecordGrantDenied(string, string) {}
