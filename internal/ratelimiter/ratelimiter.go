// Package ratelimiter provides per-key token bucket rate limiting.
//
// Each key (typically a user id) gets its own bucket, created lazily on
// first use. Buckets that stay idle are pruned so the map does not grow
// without bound under churny traffic.
package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxIdle is how long a key's bucket survives without activity before it
// becomes eligible for pruning.
const maxIdle = 10 * time.Minute

// pruneThreshold is the map size above which Allow opportunistically prunes
// idle buckets.
const pruneThreshold = 4096

// RateLimiter enforces a token bucket per key.
//
// Tokens refill at a constant sustained rate and the burst capacity bounds
// how many requests a single key can make back to back. A zero sustained
// rate disables limiting entirely.
//
// Thread Safety: all methods are safe for concurrent use.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	perSecond rate.Limit
	burst     int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a RateLimiter allowing perSecond sustained requests per key
// with the given burst capacity.
//
// Parameters:
//   - perSecond: Sustained rate per key. Zero disables limiting.
//   - burst: Bucket capacity per key. Values below 1 are raised to 1 so a
//     configured limiter always admits at least one request.
//
// Returns a configured RateLimiter, or nil when perSecond is zero; Allow on
// a nil RateLimiter admits everything, so callers can hold one
// unconditionally.
func New(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		buckets:   make(map[string]*bucket),
		perSecond: rate.Limit(perSecond),
		burst:     burst,
	}
}

// Allow reports whether the key may proceed, consuming one token if so.
//
// This is the fast path: it never blocks. A nil receiver always allows.
func (r *RateLimiter) Allow(key string) bool {
	if r == nil {
		return true
	}

	r.mu.Lock()
	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(r.perSecond, r.burst)}
		r.buckets[key] = b
	}
	b.lastSeen = time.Now()

	if len(r.buckets) > pruneThreshold {
		r.pruneLocked()
	}
	r.mu.Unlock()

	return b.limiter.Allow()
}

// Len returns the number of tracked keys.
func (r *RateLimiter) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buckets)
}

// pruneLocked drops buckets idle for longer than maxIdle. Caller holds mu.
func (r *RateLimiter) pruneLocked() {
	cutoff := time.Now().Add(-maxIdle)
	for key, b := range r.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(r.buckets, key)
		}
	}
}
