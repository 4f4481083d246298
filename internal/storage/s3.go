// Package storage persists uploaded media in an S3-compatible object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vidshare/backend/internal/config"
)

// ErrForeignLocation indicates a location that does not belong to the bucket.
var ErrForeignLocation = errors.New("location is not managed by this store")

type objectDeleter interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type objectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Storage implements videos.AssetStorage backed by an S3-compatible service.
type S3Storage struct {
	uploader objectUploader
	deleter  objectDeleter
	bucket   string
	baseURL  string
}

// NewS3Storage configures a client targeting the provided object store.
func NewS3Storage(ctx context.Context, cfg config.ObjectStoreConfig) (*S3Storage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 storage: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return newS3Storage(uploader, client, cfg.Bucket, cfg.PublicBaseURL), nil
}

func newS3Storage(uploader objectUploader, deleter objectDeleter, bucket, baseURL string) *S3Storage {
	return &S3Storage{
		uploader: uploader,
		deleter:  deleter,
		bucket:   bucket,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}
}

// Save uploads the provided content and returns its public location.
func (s *S3Storage) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	key := strings.TrimLeft(name, "/")
	if key == "" {
		return "", fmt.Errorf("s3 storage: empty key")
	}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
		ACL:    s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("s3 storage upload %s: %w", key, err)
	}

	return s.location(key), nil
}

// Delete removes the object behind a location previously returned by Save.
func (s *S3Storage) Delete(ctx context.Context, location string) error {
	key, err := s.key(location)
	if err != nil {
		return err
	}

	if _, err := s.deleter.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("s3 storage delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Storage) location(key string) string {
	if s.baseURL == "" {
		return key
	}
	return s.baseURL + "/" + key
}

func (s *S3Storage) key(location string) (string, error) {
	key := location
	if s.baseURL != "" {
		trimmed := strings.TrimPrefix(location, s.baseURL+"/")
		if trimmed == location && strings.Contains(location, "://") {
			return "", fmt.Errorf("s3 storage delete %s: %w", location, ErrForeignLocation)
		}
		key = trimmed
	}
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", fmt.Errorf("s3 storage: empty key")
	}
	return key, nil
}
