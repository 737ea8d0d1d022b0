// Package storage provides S3-compatible object storage for listing images.
// The API never proxies image bytes; clients upload and fetch directly
// against presigned URLs and listings carry only the object keys.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Service defines the interface for image storage operations
type Service interface {
	// PresignUpload creates a time-limited URL for uploading an image
	PresignUpload(ctx context.Context, key string, contentType string, ttl time.Duration) (string, error)

	// PresignDownload creates a time-limited URL for fetching an image
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Delete removes an image object
	Delete(ctx context.Context, key string) error

	// Health checks whether the bucket is reachable
	Health(ctx context.Context) error
}

type service struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucketName string
}

// New creates a storage service from S3_* environment variables. It works
// against AWS S3 or a MinIO endpoint.
func New(ctx context.Context) (Service, error) {
	endpoint := os.Getenv("S3_ENDPOINT")
	accessKey := os.Getenv("S3_ACCESS_KEY")
	secretKey := os.Getenv("S3_SECRET_KEY")
	bucketName := os.Getenv("S3_BUCKET_NAME")

	if accessKey == "" || secretKey == "" || bucketName == "" {
		return nil, fmt.Errorf("S3_ACCESS_KEY, S3_SECRET_KEY and S3_BUCKET_NAME are required")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(regionOrDefault()),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			// Custom endpoint means MinIO, which needs path-style addressing
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	s := &service{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucketName: bucketName,
	}

	if err := s.ensureBucket(ctx); err != nil {
		slog.Warn("Failed to ensure image bucket exists", "bucket", bucketName, "error", err)
	}

	return s, nil
}

func (s *service) ensureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucketName),
	})
	if err == nil {
		return nil
	}

	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucketName),
	}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	slog.Info("Created image bucket", "bucket", s.bucketName)
	return nil
}

func (s *service) PresignUpload(ctx context.Context, key string, contentType string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", fmt.Errorf("object key cannot be empty")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("TTL must be positive")
	}

	request, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign upload for %s: %w", key, err)
	}

	return request.URL, nil
}

func (s *service) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", fmt.Errorf("object key cannot be empty")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("TTL must be positive")
	}

	request, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign download for %s: %w", key, err)
	}

	return request.URL, nil
}

func (s *service) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("object key cannot be empty")
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}

	return nil
}

func (s *service) Health(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucketName),
	})
	if err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}
	return nil
}

func regionOrDefault() string {
	if region := os.Getenv("S3_REGION"); region != "" {
		return region
	}
	return "us-east-1"
}
