package config

import (
	"context"
	"strings"
	"testing"

	objectMemory "github.com/everkeep/everkeep/pkg/objectstore/memory"
)

func TestCreateRecordStore_Memory(t *testing.T) {
	store, err := CreateRecordStore(context.Background(), &RecordConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("Expected memory record store, got error: %v", err)
	}
	defer store.Close()
}

func TestCreateRecordStore_BadgerInMemory(t *testing.T) {
	cfg := &RecordConfig{
		Type:   "badger",
		Badger: map[string]any{"in_memory": true},
	}

	store, err := CreateRecordStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Expected in-memory badger store, got error: %v", err)
	}
	defer store.Close()
}

func TestCreateRecordStore_BadgerRequiresPath(t *testing.T) {
	cfg := &RecordConfig{Type: "badger", Badger: map[string]any{}}

	_, err := CreateRecordStore(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected error for badger store without path")
	}
	if !strings.Contains(err.Error(), "path is required") {
		t.Errorf("Expected 'path is required' error, got: %v", err)
	}
}

func TestCreateRecordStore_UnknownType(t *testing.T) {
	_, err := CreateRecordStore(context.Background(), &RecordConfig{Type: "postgres"})
	if err == nil {
		t.Fatal("Expected error for unknown record store type")
	}
}

func TestCreateObjectStore_Memory(t *testing.T) {
	cfg := &ObjectsConfig{
		Type:   "memory",
		Memory: map[string]any{"base_url": "https://pub-fake.r2.dev"},
	}

	store, err := CreateObjectStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Expected memory object store, got error: %v", err)
	}

	mem, ok := store.(*objectMemory.MemoryObjectStore)
	if !ok {
		t.Fatalf("Expected *MemoryObjectStore, got %T", store)
	}
	if mem.BaseURL != "https://pub-fake.r2.dev" {
		t.Errorf("Expected configured base URL, got %q", mem.BaseURL)
	}
}

func TestCreateObjectStore_S3RequiresBucket(t *testing.T) {
	cfg := &ObjectsConfig{Type: "s3", S3: map[string]any{}}

	_, err := CreateObjectStore(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected error for S3 store without bucket")
	}
	if !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("Expected 'bucket is required' error, got: %v", err)
	}
}

func TestCreateObjectStore_UnknownType(t *testing.T) {
	_, err := CreateObjectStore(context.Background(), &ObjectsConfig{Type: "gcs"})
	if err == nil {
		t.Fatal("Expected error for unknown object store type")
	}
}

func TestCreateObjectStore_BadOptionType(t *testing.T) {
	cfg := &ObjectsConfig{
		Type: "s3",
		S3:   map[string]any{"max_retries": "not-a-number"},
	}

	_, err := CreateObjectStore(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected decode error for malformed option value")
	}
}
