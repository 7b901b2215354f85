// Package images stores check-in progress photos in S3-compatible object storage.
package images

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"coachdesk/internal/domain/checkin"
)

// DefaultPresignTTL is how long a download URL stays valid.
const DefaultPresignTTL = 15 * time.Minute

// Store uploads objects and hands out temporary download URLs.
type Store interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	PresignGet(ctx context.Context, key string) (string, error)
}

// ObjectKey names the object holding one photo slot of a check-in. id keeps re-uploads
// from overwriting an object a presigned URL may still point at.
func ObjectKey(checkInID string, slot checkin.Slot, id string) string {
	return fmt.Sprintf("check-ins/%s/%s-%s", checkInID, slot, id)
}

// S3Config configures NewS3Store. Endpoint is set for S3-compatible services such as MinIO.
type S3Config struct {
	Bucket     string
	Region     string
	Endpoint   string
	AccessKey  string
	SecretKey  string
	PresignTTL time.Duration
}

type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store implements Store on an S3 bucket.
type S3Store struct {
	client  putter
	presign presigner
	bucket  string
	ttl     time.Duration
}

// NewS3Store builds the S3 and presign clients from cfg.
// PRE: cfg.Bucket and cfg.Region are set
// POST: returns a store using static credentials when AccessKey is set, the default chain otherwise
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	slog.Info("images_event", "event", "s3_configured", "bucket", cfg.Bucket, "endpoint", cfg.Endpoint)
	return newS3Store(client, s3.NewPresignClient(client), cfg.Bucket, cfg.PresignTTL), nil
}

func newS3Store(client putter, presign presigner, bucket string, ttl time.Duration) *S3Store {
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	return &S3Store{client: client, presign: presign, bucket: bucket, ttl: ttl}
}

// Put implements Store.
func (s *S3Store) Put(ctx context.Context, key, contentType string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// PresignGet implements Store.
func (s *S3Store) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// Noop discards uploads and has no URLs to hand out.
type Noop struct{}

// Put implements Store.
func (Noop) Put(context.Context, string, string, []byte) error { return nil }

// PresignGet implements Store.
func (Noop) PresignGet(context.Context, string) (string, error) { return "", nil }
