package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/convohub/convohub-api/pkg/config"
)

// MinioBackend stores objects in a MinIO (or S3-compatible) bucket.
type MinioBackend struct {
	client *minio.Client
	bucket string
}

var _ Backend = (*MinioBackend)(nil)
var _ PresignedURLProvider = (*MinioBackend)(nil)
var _ PresignedUploader = (*MinioBackend)(nil)

// NewMinioBackend connects to MinIO and provisions the bucket if missing.
func NewMinioBackend(ctx context.Context, cfg config.StorageConfig) (*MinioBackend, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio bucket create: %w", err)
		}
	}

	return &MinioBackend{client: client, bucket: cfg.MinioBucket}, nil
}

func (b *MinioBackend) Store(ctx context.Context, r io.Reader, size int64, path, contentType string) (string, error) {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := b.client.PutObject(ctx, b.bucket, path, r, size, opts); err != nil {
		return "", fmt.Errorf("minio put %s: %w", path, err)
	}
	return path, nil
}

func (b *MinioBackend) Retrieve(ctx context.Context, path string) (io.ReadCloser, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get %s: %w", path, err)
	}

	// GetObject is lazy; Stat forces the first round trip so a missing
	// key surfaces here instead of on the first Read.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("minio stat %s: %w", path, err)
	}

	return obj, nil
}

func (b *MinioBackend) Delete(ctx context.Context, path string) (bool, error) {
	_, err := b.client.StatObject(ctx, b.bucket, path, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("minio stat %s: %w", path, err)
	}

	if err := b.client.RemoveObject(ctx, b.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return false, fmt.Errorf("minio remove %s: %w", path, err)
	}
	return true, nil
}

func (b *MinioBackend) Exists(ctx context.Context, path string) (bool, error) {
	_, err := b.client.StatObject(ctx, b.bucket, path, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("minio stat %s: %w", path, err)
	}
	return true, nil
}

func (b *MinioBackend) PresignedURL(ctx context.Context, path string, ttl time.Duration, disposition string) (string, error) {
	params := url.Values{}
	if disposition != "" {
		params.Set("response-content-disposition",
			fmt.Sprintf("%s; filename=%q", disposition, filepath.Base(path)))
	}
	u, err := b.client.PresignedGetObject(ctx, b.bucket, path, ttl, params)
	if err != nil {
		return "", fmt.Errorf("minio presign %s: %w", path, err)
	}
	return u.String(), nil
}

func (b *MinioBackend) PresignedUploadURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	u, err := b.client.PresignedPutObject(ctx, b.bucket, path, ttl)
	if err != nil {
		return "", fmt.Errorf("minio presign put %s: %w", path, err)
	}
	return u.String(), nil
}
