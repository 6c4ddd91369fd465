// Package s3 implements objectstore.ObjectStore against Amazon S3 or any
// S3-compatible service (Cloudflare R2, MinIO, Localstack).
package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/everkeep/everkeep/internal/logger"
)

// S3ObjectStore implements objectstore.ObjectStore using the AWS SDK v2.
//
// Public URL Shapes:
// Objects are reachable through two URL forms observed in production:
//   - CDN form:      https://<cdn-host>/<key>           (public bucket domain)
//   - endpoint form: https://<endpoint-host>/<bucket>/<key>  (path-style)
//
// PublicURL emits the CDN form when a CDN base URL is configured and falls
// back to the endpoint form otherwise. The media key extractor recognizes
// both (see pkg/media).
//
// Thread Safety: safe for concurrent use; the SDK clients are goroutine-safe.
type S3ObjectStore struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string

	// cdnBaseURL is the public base under which objects are served, without
	// trailing slash (e.g. "https://pub-xyz.r2.dev"). Optional.
	cdnBaseURL string

	// endpoint is the private API endpoint, used for PublicURL fallback.
	endpoint string
}

// S3ObjectStoreConfig contains configuration for the S3 object store.
type S3ObjectStoreConfig struct {
	// Client is the configured S3 client.
	Client *s3.Client

	// Bucket is the bucket holding memorial media.
	Bucket string

	// CDNBaseURL is the public serving domain, without trailing slash.
	CDNBaseURL string

	// Endpoint is the private endpoint URL, used to build path-style public
	// URLs when no CDN domain is configured.
	Endpoint string
}

// NewS3ObjectStore creates an S3-backed object store and verifies bucket
// access. The bucket must already exist.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: S3 configuration
//
// Returns:
//   - *S3ObjectStore: Initialized store
//   - error: Returns error if bucket access fails or context is cancelled
func NewS3ObjectStore(ctx context.Context, cfg S3ObjectStoreConfig) (*S3ObjectStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	if _, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3ObjectStore{
		client:     cfg.Client,
		presign:    s3.NewPresignClient(cfg.Client),
		bucket:     cfg.Bucket,
		cdnBaseURL: strings.TrimSuffix(cfg.CDNBaseURL, "/"),
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
	}, nil
}

// NewS3Client builds an S3 client for AWS or an S3-compatible endpoint.
//
// When endpoint is non-empty the client uses path-style addressing, which is
// what MinIO, Localstack, and most self-hosted gateways expect. Static
// credentials are used when provided; otherwise the default credential chain
// applies.
func NewS3Client(ctx context.Context, endpoint, region, accessKeyID, secretAccessKey string, maxRetries int) (*s3.Client, error) {
	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(region))

	if endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck
				return aws.Endpoint{
					URL:               endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	if accessKeyID != "" && secretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.UsePathStyle = true
		}
	})

	logger.Info("S3 client initialized: region=%s endpoint=%s", region, endpoint)

	return client, nil
}

// PublicURL implements objectstore.ObjectStore.
func (s *S3ObjectStore) PublicURL(key string) string {
	if s.cdnBaseURL != "" {
		return s.cdnBaseURL + "/" + key
	}
	return s.endpoint + "/" + s.bucket + "/" + key
}
