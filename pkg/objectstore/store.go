// Package objectstore defines the interface to the S3-compatible binary
// storage service holding memorial media.
//
// The application never proxies file bytes: clients upload directly using
// presigned grants issued here, and cleanup deletes objects in batches. Those
// two calls, plus public URL construction, are the whole contract.
package objectstore

import (
	"context"
	"time"
)

// ObjectStore is the S3-compatible storage collaborator.
//
// Thread Safety: implementations are safe for concurrent use.
type ObjectStore interface {
	// PresignPut issues a time-boxed, constraint-scoped grant letting a
	// client PUT one object. The grant is bound server-side to the key,
	// content type, and declared length, so it cannot be used to write
	// outside its authorized scope.
	PresignPut(ctx context.Context, req PresignRequest) (*Grant, error)

	// DeleteBatch permanently removes the given keys, chunking as needed to
	// respect the backend's per-request object-count ceiling. The returned
	// map contains an entry per key that failed; deleting an already-absent
	// key is success, not failure. A nil/empty map means everything was
	// deleted. The error return is reserved for context cancellation; backend
	// failures are reported per key so deletion is always attempted to
	// completion.
	DeleteBatch(ctx context.Context, keys []string) (map[string]error, error)

	// PublicURL returns the URL under which an uploaded object is served.
	PublicURL(key string) string
}

// Lister is an optional capability for enumerating stored keys. The orphan
// sweep requires it; implementations that cannot list (and deployments that
// disable listing) simply do not get sweeps.
type Lister interface {
	// ListKeys returns every key under the prefix. An empty prefix lists the
	// whole bucket.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// PresignRequest describes the single object upload a grant authorizes.
type PresignRequest struct {
	// Key is the full object key to write.
	Key string

	// ContentType the client must send.
	ContentType string

	// ContentLength is the exact byte size the client declared.
	ContentLength int64

	// Expiry is the grant validity window.
	Expiry time.Duration
}

// Grant is a presigned upload credential.
type Grant struct {
	// URL is the presigned request URL.
	URL string

	// Method is the HTTP method to use (PUT).
	Method string

	// SignedHeaders are headers the client must send unchanged for the
	// signature to verify.
	SignedHeaders map[string]string

	// ExpiresAt is when the grant stops being accepted.
	ExpiresAt time.Time
}
