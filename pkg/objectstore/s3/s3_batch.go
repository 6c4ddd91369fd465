// This file contains batch deletion for the S3 object store, used by the
// cleanup worker to remove media after a memorial or memory is deleted.
package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/everkeep/everkeep/internal/logger"
)

// maxBatchSize is the DeleteObjects per-request object-count ceiling.
const maxBatchSize = 1000

// DeleteBatch implements objectstore.ObjectStore.
//
// Keys are chunked into DeleteObjects calls of at most 1000 objects. A failed
// call marks every key in that chunk as failed and the run continues with the
// next chunk, so deletion is always attempted to completion. Per-key errors
// reported by the service are merged into the result, except "no such key"
// responses, which are treated as success: cleanup tasks are re-driven after
// partial failures and deleting an already-absent object must not count as a
// new failure.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - keys: Object keys to delete
//
// Returns:
//   - map[string]error: Failed keys (empty/nil = all deleted)
//   - error: Returns the context error if cancelled mid-run
func (s *S3ObjectStore) DeleteBatch(ctx context.Context, keys []string) (map[string]error, error) {
	failures := make(map[string]error)

	for i := 0; i < len(keys); i += maxBatchSize {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(keys); j++ {
				failures[keys[j]] = err
			}
			return failures, err
		}

		end := i + maxBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[i:end]

		objects := make([]types.ObjectIdentifier, len(batch))
		for j, key := range batch {
			objects[j] = types.ObjectIdentifier{Key: aws.String(key)}
		}

		result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(false),
			},
		})
		if err != nil {
			logger.Warn("S3 batch delete failed for %d keys: %v", len(batch), err)
			for _, key := range batch {
				failures[key] = err
			}
			continue
		}

		for _, deleteErr := range result.Errors {
			if deleteErr.Key == nil {
				continue
			}

			code := aws.ToString(deleteErr.Code)
			if isMissingKeyCode(code) {
				continue
			}

			errMsg := "unknown error"
			if deleteErr.Code != nil && deleteErr.Message != nil {
				errMsg = fmt.Sprintf("%s: %s", *deleteErr.Code, *deleteErr.Message)
			}
			failures[*deleteErr.Key] = errors.New(errMsg)
		}
	}

	return failures, nil
}

// isMissingKeyCode reports whether a DeleteObjects error code means the
// object was already gone.
func isMissingKeyCode(code string) bool {
	return strings.EqualFold(code, "NoSuchKey") || strings.EqualFold(code, "NotFound")
}

// ListKeys implements objectstore.Lister by paginating ListObjectsV2.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - prefix: Key prefix to list under (empty = whole bucket)
//
// Returns:
//   - []string: Every key under the prefix
//   - error: Returns error for S3 failures or context cancellation
func (s *S3ObjectStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			keys = append(keys, *obj.Key)
		}
	}

	return keys, nil
}
