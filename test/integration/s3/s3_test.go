//go:build integration

package s3_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/everkeep/everkeep/pkg/objectstore"
	objects3 "github.com/everkeep/everkeep/pkg/objectstore/s3"
)

// setupTestS3 creates an S3 client against Localstack and a test bucket.
//
// The returned cleanup function removes every object and then the bucket.
//
// Prerequisites:
//   - Localstack running on localhost:4566 (override with LOCALSTACK_ENDPOINT)
//   - Run with: go test -tags=integration ./test/integration/s3/...
//
// To start Localstack:
//
//	docker run --rm -p 4566:4566 localstack/localstack
func setupTestS3(t *testing.T, bucketName string) (*s3.Client, func()) {
	t.Helper()
	ctx := context.Background()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	client, err := objects3.NewS3Client(ctx, endpoint, "us-east-1", "test", "test", 3)
	if err != nil {
		t.Fatalf("Failed to create S3 client: %v", err)
	}

	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	}); err != nil {
		t.Fatalf("Failed to create test bucket: %v", err)
	}

	cleanup := func() {
		listResp, _ := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket: aws.String(bucketName),
		})
		if listResp != nil {
			for _, obj := range listResp.Contents {
				client.DeleteObject(ctx, &s3.DeleteObjectInput{
					Bucket: aws.String(bucketName),
					Key:    obj.Key,
				})
			}
		}
		client.DeleteBucket(ctx, &s3.DeleteBucketInput{
			Bucket: aws.String(bucketName),
		})
	}

	return client, cleanup
}

func putObject(t *testing.T, client *s3.Client, bucket, key string) {
	t.Helper()

	_, err := client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader([]byte("payload")),
	})
	if err != nil {
		t.Fatalf("Failed to put object %q: %v", key, err)
	}
}

// TestS3ObjectStore_DeleteBatch verifies batch deletion against a real
// S3-compatible service, including the absent-key-is-success rule.
func TestS3ObjectStore_DeleteBatch(t *testing.T) {
	ctx := context.Background()

	bucketName := "everkeep-delete-test"
	client, cleanup := setupTestS3(t, bucketName)
	defer cleanup()

	store, err := objects3.NewS3ObjectStore(ctx, objects3.S3ObjectStoreConfig{
		Client: client,
		Bucket: bucketName,
	})
	if err != nil {
		t.Fatalf("Failed to create object store: %v", err)
	}

	keys := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("user-1/gallery-image/photo-%d.jpg", i)
		putObject(t, client, bucketName, key)
		keys = append(keys, key)
	}
	// An object that was never uploaded still counts as deleted.
	keys = append(keys, "user-1/gallery-image/never-existed.jpg")

	failures, err := store.DeleteBatch(ctx, keys)
	if err != nil {
		t.Fatalf("DeleteBatch failed: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("Expected no failures, got %v", failures)
	}

	remaining, err := store.ListKeys(ctx, "user-1/")
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("Expected empty prefix after delete, found %v", remaining)
	}
}

// TestS3ObjectStore_PresignPut verifies that an issued grant is actually
// usable: an HTTP PUT with the signed headers lands the object.
func TestS3ObjectStore_PresignPut(t *testing.T) {
	ctx := context.Background()

	bucketName := "everkeep-presign-test"
	client, cleanup := setupTestS3(t, bucketName)
	defer cleanup()

	store, err := objects3.NewS3ObjectStore(ctx, objects3.S3ObjectStoreConfig{
		Client: client,
		Bucket: bucketName,
	})
	if err != nil {
		t.Fatalf("Failed to create object store: %v", err)
	}

	payload := []byte("fake jpeg bytes")
	grant, err := store.PresignPut(ctx, objectstore.PresignRequest{
		Key:           "user-1/profile-image/portrait.jpg",
		ContentType:   "image/jpeg",
		ContentLength: int64(len(payload)),
		Expiry:        5 * time.Minute,
	})
	if err != nil {
		t.Fatalf("PresignPut failed: %v", err)
	}
	if grant.Method != "PUT" {
		t.Fatalf("Expected PUT grant, got %q", grant.Method)
	}

	req, err := http.NewRequestWithContext(ctx, grant.Method, grant.URL, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Failed to build upload request: %v", err)
	}
	for name, value := range grant.SignedHeaders {
		req.Header.Set(name, value)
	}
	req.ContentLength = int64(len(payload))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Presigned upload failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Presigned upload returned status %d", resp.StatusCode)
	}

	uploaded, err := store.ListKeys(ctx, "user-1/profile-image/")
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(uploaded) != 1 || uploaded[0] != "user-1/profile-image/portrait.jpg" {
		t.Fatalf("Expected uploaded key, got %v", uploaded)
	}
}

// TestS3ObjectStore_ListKeysPagination verifies listing across more keys
// than a single S3 page returns.
func TestS3ObjectStore_ListKeysPagination(t *testing.T) {
	ctx := context.Background()

	bucketName := "everkeep-list-test"
	client, cleanup := setupTestS3(t, bucketName)
	defer cleanup()

	store, err := objects3.NewS3ObjectStore(ctx, objects3.S3ObjectStoreConfig{
		Client: client,
		Bucket: bucketName,
	})
	if err != nil {
		t.Fatalf("Failed to create object store: %v", err)
	}

	// 1100 keys forces at least two ListObjectsV2 pages.
	for i := 0; i < 1100; i++ {
		putObject(t, client, bucketName, fmt.Sprintf("sweep/%04d.jpg", i))
	}

	keys, err := store.ListKeys(ctx, "sweep/")
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(keys) != 1100 {
		t.Fatalf("Expected 1100 keys, got %d", len(keys))
	}
}
