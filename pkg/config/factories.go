package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/everkeep/everkeep/internal/logger"
	"github.com/everkeep/everkeep/pkg/memorial"
	"github.com/everkeep/everkeep/pkg/objectstore"
	objectMemory "github.com/everkeep/everkeep/pkg/objectstore/memory"
	objectS3 "github.com/everkeep/everkeep/pkg/objectstore/s3"
	"github.com/everkeep/everkeep/pkg/record"
	recordBadger "github.com/everkeep/everkeep/pkg/record/badger"
	recordMemory "github.com/everkeep/everkeep/pkg/record/memory"
)

// CreateRecordStore creates a record store based on configuration.
//
// This factory function uses the Type field to determine which store
// implementation to create, then decodes the type-specific configuration
// from the corresponding map and passes it to the store's constructor.
// Every store is opened with the memorial schema, so the active-owner
// constraint and the append-only history ledger are enforced regardless of
// backend.
//
// Supported types:
//   - "memory": In-memory store for tests and local development
//   - "badger": BadgerDB-backed persistent store
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Record store configuration
//
// Returns:
//   - record.Store: Initialized record store
//   - error: Configuration or initialization error
func CreateRecordStore(ctx context.Context, cfg *RecordConfig) (record.Store, error) {
	switch cfg.Type {
	case "memory":
		logger.Warn("Using in-memory record store: all data is lost on restart")
		return recordMemory.NewMemoryStore(memorial.Schema()), nil
	case "badger":
		return createBadgerRecordStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown record store type: %q", cfg.Type)
	}
}

// createBadgerRecordStore creates a BadgerDB-backed record store.
func createBadgerRecordStore(ctx context.Context, options map[string]any) (record.Store, error) {
	var storeCfg recordBadger.BadgerStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger record store config: %w", err)
	}

	if storeCfg.Path == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger record store: path is required")
	}

	store, err := recordBadger.NewBadgerStore(ctx, storeCfg, memorial.Schema())
	if err != nil {
		return nil, fmt.Errorf("failed to create badger record store: %w", err)
	}

	return store, nil
}

// CreateObjectStore creates an object store based on configuration.
//
// Supported types:
//   - "memory": In-memory fake for tests and local development
//   - "s3": S3-compatible storage (AWS S3, Cloudflare R2, MinIO)
//
// Parameters:
//   - ctx: Context for initialization operations (bucket access check)
//   - cfg: Object store configuration
//
// Returns:
//   - objectstore.ObjectStore: Initialized object store
//   - error: Configuration or initialization error
func CreateObjectStore(ctx context.Context, cfg *ObjectsConfig) (objectstore.ObjectStore, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryObjectStore(cfg.Memory)
	case "s3":
		return createS3ObjectStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown object store type: %q", cfg.Type)
	}
}

// createMemoryObjectStore creates the in-memory object store fake.
func createMemoryObjectStore(options map[string]any) (objectstore.ObjectStore, error) {
	type MemoryObjectStoreConfig struct {
		BaseURL string `mapstructure:"base_url"`
	}

	var storeCfg MemoryObjectStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory object store config: %w", err)
	}

	logger.Warn("Using in-memory object store: uploads are simulated")

	store := objectMemory.NewMemoryObjectStore()
	if storeCfg.BaseURL != "" {
		store.BaseURL = storeCfg.BaseURL
	}
	return store, nil
}

// createS3ObjectStore creates an S3-backed object store.
func createS3ObjectStore(ctx context.Context, options map[string]any) (objectstore.ObjectStore, error) {
	type S3ObjectStoreConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		CDNBaseURL      string `mapstructure:"cdn_base_url"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeCfg S3ObjectStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 object store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 object store: bucket is required")
	}
	if storeCfg.Region == "" {
		// R2 and MinIO accept any region; AWS requires a real one.
		storeCfg.Region = "auto"
	}

	client, err := objectS3.NewS3Client(ctx,
		storeCfg.Endpoint,
		storeCfg.Region,
		storeCfg.AccessKeyID,
		storeCfg.SecretAccessKey,
		storeCfg.MaxRetries,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	store, err := objectS3.NewS3ObjectStore(ctx, objectS3.S3ObjectStoreConfig{
		Client:     client,
		Bucket:     storeCfg.Bucket,
		CDNBaseURL: storeCfg.CDNBaseURL,
		Endpoint:   storeCfg.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 object store: %w", err)
	}

	return store, nil
}
