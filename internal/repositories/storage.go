package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/edplatform/upload-manager/internal/config"
)

// StorageBackend is what the engine needs from the object store: a way to
// open a client-facing resumable upload session and an existence probe.
type StorageBackend interface {
	// InitiateResumableUpload authorizes a direct client upload to objectKey
	// and returns the session URL. The URL is opaque and must reach the
	// client unmodified. metadata is attached to the object so the finalize
	// notification can be correlated back without a side lookup.
	InitiateResumableUpload(ctx context.Context, objectKey, contentType string, sizeHint int64, metadata map[string]string) (string, error)

	ObjectExists(ctx context.Context, objectKey string) (bool, error)
}

// StorageClient talks to an S3-compatible endpoint. Constructed once at
// startup and passed in wherever needed.
type StorageClient struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	ttl       time.Duration
}

func NewStorageClient(cfg config.StorageConfig) *StorageClient {
	awsCfg := aws.Config{
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Region:      cfg.Region,
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})
	return &StorageClient{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		ttl:       cfg.PresignTTL,
	}
}

func (c *StorageClient) InitiateResumableUpload(ctx context.Context, objectKey, contentType string, sizeHint int64, metadata map[string]string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:   aws.String(c.bucket),
		Key:      aws.String(objectKey),
		Metadata: metadata,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if sizeHint > 0 {
		input.ContentLength = aws.Int64(sizeHint)
	}
	req, err := c.presigner.PresignPutObject(ctx, input, s3.WithPresignExpires(c.ttl))
	if err != nil {
		return "", fmt.Errorf("presign upload for %q: %w", objectKey, err)
	}
	if req.URL == "" {
		return "", fmt.Errorf("presign upload for %q: empty session URL", objectKey)
	}
	return req.URL, nil
}

// ObjectExists checks whether objectKey is present in the bucket.
func (c *StorageClient) ObjectExists(ctx context.Context, objectKey string) (bool, error) {
	_, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		// Other error (e.g. auth, network)
		return false, err
	}
	return true, nil
}
