// Package storage uploads chore photos and member avatars to S3-compatible
// object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// objectClient is an interface for testability.
type objectClient interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config holds S3-compatible storage configuration.
type Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	PublicURL string
}

// Enabled reports whether enough configuration is present to talk to a
// bucket.
func (c Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Store uploads and deletes image objects. A nil Store (or one built from an
// empty Config) rejects uploads instead of panicking.
type Store struct {
	cfg    Config
	client objectClient
}

func New(cfg Config) *Store {
	s := &Store{cfg: cfg}
	if cfg.Enabled() {
		s.client = newS3Client(cfg)
	}
	return s
}

func newS3Client(cfg Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether uploads can be served.
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// Upload stores an object under a fresh key in the given folder and returns
// the key and its public URL. The key embeds a UUID, so concurrent uploads
// never collide.
func (s *Store) Upload(ctx context.Context, folder string, body io.Reader, size int64, contentType string) (key, url string, err error) {
	if !s.Enabled() {
		return "", "", fmt.Errorf("object storage not configured")
	}

	key = fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), extensionFor(contentType))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, s.URLFor(key), nil
}

// Delete removes an object, retrying transient failures with exponential
// backoff. Used as the compensating step when a DB write fails after an
// upload succeeded.
func (s *Store) Delete(ctx context.Context, key string) error {
	if !s.Enabled() || key == "" {
		return nil
	}

	backoff := retry.WithMaxRetries(4, retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.cfg.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return retry.RetryableError(fmt.Errorf("delete object %s: %w", key, err))
		}
		return nil
	})
}

// URLFor returns the public URL for a stored key.
func (s *Store) URLFor(key string) string {
	base := strings.TrimSuffix(s.cfg.PublicURL, "/")
	if base == "" {
		base = strings.TrimSuffix(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket
	}
	return base + "/" + key
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}
