// Package upload issues presigned upload grants for memorial media.
//
// Clients never receive store credentials: they ask for a grant naming a
// category, file name, content type, and size; the authorizer checks
// eligibility and content rules and returns a short-lived presigned PUT URL
// bound to exactly those parameters. The object key is chosen server-side,
// so a client can never overwrite another user's media.
package upload

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/everkeep/everkeep/internal/logger"
	"github.com/everkeep/everkeep/internal/ratelimiter"
	"github.com/everkeep/everkeep/pkg/memorial"
	"github.com/everkeep/everkeep/pkg/objectstore"
)

// Category is a media upload class with its own content rules.
type Category string

const (
	CategoryProfileImage Category = "profile-image"
	CategoryGalleryImage Category = "gallery-image"
	CategoryVideo        Category = "video"
	CategoryMemoryImage  Category = "memory-image"
)

// Size ceilings per content class.
const (
	MaxImageBytes = 10 << 20  // 10 MiB
	MaxVideoBytes = 200 << 20 // 200 MiB
)

// DefaultGrantExpiry is how long an issued grant stays usable.
const DefaultGrantExpiry = 15 * time.Minute

var imageContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

var videoContentTypes = map[string]struct{}{
	"video/mp4":       {},
	"video/quicktime": {},
	"video/webm":      {},
}

// rules returns the allowed content types and byte ceiling for the category.
// The second return is false for unknown categories.
func (c Category) rules() (map[string]struct{}, int64, bool) {
	switch c {
	case CategoryProfileImage, CategoryGalleryImage, CategoryMemoryImage:
		return imageContentTypes, MaxImageBytes, true
	case CategoryVideo:
		return videoContentTypes, MaxVideoBytes, true
	default:
		return nil, 0, false
	}
}

// ownerOnly reports whether the category requires memorial ownership
// eligibility. Memory images are visitor-submitted and exempt.
func (c Category) ownerOnly() bool {
	return c != CategoryMemoryImage
}

// Request asks for one upload grant.
type Request struct {
	// UserID is the authenticated uploader.
	UserID string

	// Category decides content rules and eligibility checks.
	Category Category

	// FileName is the client's original file name; only its sanitized base
	// name survives into the object key.
	FileName string

	// ContentType must be on the category's allow-list and is bound into
	// the signature.
	ContentType string

	// ContentLength is the declared upload size in bytes, also bound into
	// the signature.
	ContentLength int64
}

// Authorization is the result of a successful grant request. The client
// uploads with Grant and stores PublicURL on the profile or memory once the
// upload completes.
type Authorization struct {
	// Key is the server-chosen object key.
	Key string

	// PublicURL is where the object will be served from after upload.
	PublicURL string

	// Grant is the presigned PUT credential.
	Grant *objectstore.Grant
}

// Authorizer validates upload requests and issues presigned grants.
//
// Thread Safety: safe for concurrent use.
type Authorizer struct {
	objects objectstore.ObjectStore
	guard   *memorial.LifecycleGuard
	ledger  *memorial.HistoryLedger
	metrics UploadMetrics
	limits  *ratelimiter.RateLimiter
	expiry  time.Duration
}

// NewAuthorizer creates an authorizer. A zero expiry uses
// DefaultGrantExpiry; a nil metrics recorder is replaced with a no-op.
func NewAuthorizer(objects objectstore.ObjectStore, guard *memorial.LifecycleGuard, ledger *memorial.HistoryLedger, metrics UploadMetrics, expiry time.Duration) *Authorizer {
	if expiry <= 0 {
		expiry = DefaultGrantExpiry
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Authorizer{
		objects: objects,
		guard:   guard,
		ledger:  ledger,
		metrics: metrics,
		expiry:  expiry,
	}
}

// SetRateLimit installs a per-user issuance limit: perSecond sustained
// grants with the given burst. A zero or negative perSecond removes any
// limit. Call before serving requests; not synchronized with Authorize.
func (a *Authorizer) SetRateLimit(perSecond float64, burst int) {
	a.limits = ratelimiter.New(perSecond, burst)
}

// Authorize checks the request and, if everything passes, issues a grant.
//
// Checks run cheapest first: category and content rules before any store
// round-trip. Owner categories additionally require a completed package
// order and the absence of a lifetime ban; no grant is issued when any
// check fails, so an ineligible client never holds a signed URL.
//
// Returns:
//   - *Authorization: Server-chosen key, eventual public URL, and a
//     presigned PUT grant bound to key, content type and length
//   - error: memorial.Error with code Validation or Authorization on
//     rejection
func (a *Authorizer) Authorize(ctx context.Context, req Request) (*Authorization, error) {
	if req.UserID == "" {
		a.metrics.RecordGrantDenied(string(req.Category), "validation")
		return nil, memorial.NewValidationError("user_id", "user id is required")
	}

	if !a.limits.Allow(req.UserID) {
		a.metrics.RecordGrantDenied(string(req.Category), "rate_limited")
		return nil, memorial.NewAuthorizationError("too many upload requests, try again shortly")
	}

	allowed, maxBytes, known := req.Category.rules()
	if !known {
		a.metrics.RecordGrantDenied(string(req.Category), "validation")
		return nil, memorial.NewValidationError("category", fmt.Sprintf("unknown upload category %q", req.Category))
	}

	if _, ok := allowed[strings.ToLower(req.ContentType)]; !ok {
		a.metrics.RecordGrantDenied(string(req.Category), "validation")
		return nil, memorial.NewValidationError("content_type",
			fmt.Sprintf("content type %q is not allowed for category %s", req.ContentType, req.Category))
	}

	if req.ContentLength <= 0 {
		a.metrics.RecordGrantDenied(string(req.Category), "validation")
		return nil, memorial.NewValidationError("content_length", "content length must be positive")
	}
	if req.ContentLength > maxBytes {
		a.metrics.RecordGrantDenied(string(req.Category), "validation")
		return nil, memorial.NewValidationError("content_length",
			fmt.Sprintf("file exceeds the %d byte limit for category %s", maxBytes, req.Category))
	}

	if req.Category.ownerOnly() {
		if err := a.checkEligibility(ctx, req.UserID); err != nil {
			a.metrics.RecordGrantDenied(string(req.Category), "authorization")
			return nil, err
		}
	}

	key := buildKey(req.UserID, req.Category, req.FileName)

	grant, err := a.objects.PresignPut(ctx, objectstore.PresignRequest{
		Key:           key,
		ContentType:   req.ContentType,
		ContentLength: req.ContentLength,
		Expiry:        a.expiry,
	})
	if err != nil {
		a.metrics.RecordGrantDenied(string(req.Category), "store")
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	a.metrics.RecordGrantIssued(string(req.Category))
	logger.Debug("Upload grant issued: user=%s category=%s key=%s expires=%s",
		req.UserID, req.Category, key, grant.ExpiresAt.Format(time.RFC3339))

	return &Authorization{
		Key:       key,
		PublicURL: a.objects.PublicURL(key),
		Grant:     grant,
	}, nil
}

// checkEligibility enforces the owner-category rules: a completed order and
// no lifetime deletion on record.
func (a *Authorizer) checkEligibility(ctx context.Context, userID string) error {
	completed, err := a.guard.HasCompletedOrder(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check order status: %w", err)
	}
	if !completed {
		return memorial.NewAuthorizationError("a completed package order is required before uploading memorial media")
	}

	banned, err := a.ledger.HasDeleted(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check lifecycle history: %w", err)
	}
	if banned {
		return memorial.NewAuthorizationError("this account has deleted its memorial and cannot upload memorial media")
	}

	return nil
}

// buildKey derives the object key. The user id prefix partitions the bucket
// per uploader; the timestamp and random component make collisions between
// a user's own uploads practically impossible.
func buildKey(userID string, category Category, fileName string) string {
	return fmt.Sprintf("%s/%s/%d-%s-%s",
		userID, category, time.Now().UnixMilli(), randomSuffix(), sanitizeFileName(fileName))
}

// sanitizeFileName reduces a client file name to a safe key segment:
// base name only, lowercase, with anything outside [a-z0-9._-] replaced by
// a hyphen. Empty or fully hostile names fall back to "upload".
func sanitizeFileName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))

	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	out := strings.Trim(b.String(), "-.")
	if out == "" {
		return "upload"
	}
	if len(out) > 64 {
		out = out[:64]
	}
	return out
}

// randomSuffix returns 8 hex characters from crypto/rand.
func randomSuffix() string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// constant rather than aborting the upload.
		return "00000000"
	}
	return hex.EncodeToString(buf[:])
}
