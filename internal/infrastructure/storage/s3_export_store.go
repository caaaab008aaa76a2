// Package storage uploads ledger exports to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	syncapp "github.com/stocksync/backend/internal/application/productsync"
	infraconfig "github.com/stocksync/backend/internal/infrastructure/config"
)

// Ensure S3ExportStore implements ExportStore
var _ syncapp.ExportStore = (*S3ExportStore)(nil)

// S3ExportStore uploads export files and hands out presigned download URLs.
// It is compatible with any S3-compatible storage (AWS S3, MinIO, etc.)
type S3ExportStore struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	prefix            string
	presignExpiration time.Duration
	logger            *zap.Logger
}

// S3ExportStoreOption is a functional option for configuring S3ExportStore
type S3ExportStoreOption func(*S3ExportStore)

// WithLogger sets a custom logger for S3ExportStore
func WithLogger(logger *zap.Logger) S3ExportStoreOption {
	return func(s *S3ExportStore) {
		s.logger = logger
	}
}

// WithPresignExpiration sets a custom presign expiration duration
func WithPresignExpiration(d time.Duration) S3ExportStoreOption {
	return func(s *S3ExportStore) {
		s.presignExpiration = d
	}
}

// NewS3ExportStore creates a new S3ExportStore from configuration.
// Without static keys the default AWS credential chain is used.
func NewS3ExportStore(cfg *infraconfig.ExportConfig, opts ...S3ExportStoreOption) (*S3ExportStore, error) {
	if cfg == nil {
		return nil, errors.New("export configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("export bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return nil, errors.New("export access key id and secret access key must be set together")
		}
		loadOpts = append(loadOpts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	var endpoint *string
	if cfg.Endpoint != "" {
		if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
			return nil, fmt.Errorf("invalid export endpoint: %w", err)
		}
		endpoint = aws.String(cfg.Endpoint)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != nil {
			o.BaseEndpoint = endpoint
		}
	})

	store := &S3ExportStore{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		prefix:            strings.Trim(cfg.Prefix, "/"),
		presignExpiration: cfg.PresignExpiry,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	if store.presignExpiration <= 0 {
		store.presignExpiration = 24 * time.Hour
	}

	return store, nil
}

// Key returns the object key of an export file name
func (s *S3ExportStore) Key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Upload stores an export file and returns a presigned download URL
func (s *S3ExportStore) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if name == "" {
		return "", errors.New("export file name is required")
	}
	key := s.Key(name)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload export: %w", err)
	}

	presigned, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignExpiration))
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}

	s.logger.Info("export uploaded",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int("bytes", len(data)),
	)
	return presigned.URL, nil
}

// GetBucket returns the bucket name
func (s *S3ExportStore) GetBucket() string {
	return s.bucket
}
