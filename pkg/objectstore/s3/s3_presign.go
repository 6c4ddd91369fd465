package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/everkeep/everkeep/pkg/objectstore"
)

// PresignPut implements objectstore.ObjectStore.
//
// The signature covers bucket, key, content type, and content length, so a
// client holding the grant can write exactly one object of the declared shape
// and nothing else. Expiry is enforced by the storage service.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - req: Upload constraints (key, content type, length, expiry)
//
// Returns:
//   - *objectstore.Grant: Presigned PUT credential
//   - error: Returns error if signing fails or context is cancelled
func (s *S3ObjectStore) PresignPut(ctx context.Context, req objectstore.PresignRequest) (*objectstore.Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if req.Key == "" {
		return nil, fmt.Errorf("object key is required")
	}
	if req.Expiry <= 0 {
		return nil, fmt.Errorf("grant expiry must be positive")
	}

	presigned, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(req.Key),
		ContentType:   aws.String(req.ContentType),
		ContentLength: aws.Int64(req.ContentLength),
	}, s3.WithPresignExpires(req.Expiry))
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload for %q: %w", req.Key, err)
	}

	headers := make(map[string]string, len(presigned.SignedHeader))
	for name, values := range presigned.SignedHeader {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}

	return &objectstore.Grant{
		URL:           presigned.URL,
		Method:        presigned.Method,
		SignedHeaders: headers,
		ExpiresAt:     time.Now().Add(req.Expiry),
	}, nil
}
