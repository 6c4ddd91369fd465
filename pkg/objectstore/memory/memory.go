// Package memory provides an in-memory objectstore.ObjectStore used by tests
// and local development.
//
// Beyond the interface, the store records every presign and delete call and
// supports failure injection, so tests can assert batch partitioning and
// partial-failure handling without a real backend.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/everkeep/everkeep/pkg/objectstore"
)

// MemoryObjectStore implements objectstore.ObjectStore in memory.
//
// Thread Safety: safe for concurrent use.
type MemoryObjectStore struct {
	mu      sync.Mutex
	objects map[string]struct{}

	// BaseURL is the public base used by PublicURL. Defaults to a CDN-style
	// host so key extraction round-trips in tests.
	BaseURL string

	// FailKeys injects a per-key delete failure.
	FailKeys map[string]error

	// FailAll, when set, fails every DeleteBatch call outright, marking all
	// keys in the call as failed. Simulates an unreachable object store.
	FailAll error

	// Grants records every issued presign request, newest last.
	Grants []objectstore.PresignRequest

	// DeleteCalls records the key slice of every DeleteBatch invocation.
	DeleteCalls [][]string
}

// NewMemoryObjectStore creates an empty in-memory object store.
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{
		objects: make(map[string]struct{}),
		BaseURL: "https://pub-test.r2.dev",
	}
}

// Put seeds an object. Test helper.
func (s *MemoryObjectStore) Put(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = struct{}{}
}

// Exists reports whether an object is present. Test helper.
func (s *MemoryObjectStore) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

// Len returns the number of stored objects. Test helper.
func (s *MemoryObjectStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// PresignPut implements objectstore.ObjectStore. The returned grant carries a
// fake URL; the "upload" is simulated by calling Put.
func (s *MemoryObjectStore) PresignPut(ctx context.Context, req objectstore.PresignRequest) (*objectstore.Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Key == "" {
		return nil, fmt.Errorf("object key is required")
	}

	s.mu.Lock()
	s.Grants = append(s.Grants, req)
	s.mu.Unlock()

	return &objectstore.Grant{
		URL:    s.BaseURL + "/" + req.Key + "?signature=test",
		Method: "PUT",
		SignedHeaders: map[string]string{
			"Content-Type":   req.ContentType,
			"Content-Length": fmt.Sprintf("%d", req.ContentLength),
		},
		ExpiresAt: time.Now().Add(req.Expiry),
	}, nil
}

// DeleteBatch implements objectstore.ObjectStore. Absent keys are success.
func (s *MemoryObjectStore) DeleteBatch(ctx context.Context, keys []string) (map[string]error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.DeleteCalls = append(s.DeleteCalls, append([]string(nil), keys...))

	failures := make(map[string]error)

	if s.FailAll != nil {
		for _, key := range keys {
			failures[key] = s.FailAll
		}
		return failures, nil
	}

	for _, key := range keys {
		if err, injected := s.FailKeys[key]; injected {
			failures[key] = err
			continue
		}
		delete(s.objects, key)
	}

	return failures, nil
}

// ListKeys implements objectstore.Lister.
func (s *MemoryObjectStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// PublicURL implements objectstore.ObjectStore.
func (s *MemoryObjectStore) PublicURL(key string) string {
	return s.BaseURL + "/" + key
}
