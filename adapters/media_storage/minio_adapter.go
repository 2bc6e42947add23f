package media_storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-card/internal/application/service"
	"github.com/khoahotran/profile-card/internal/config"
	"github.com/khoahotran/profile-card/pkg/logger"
)

const publicReadPolicy = `{
  "Version": "2012-10-17",
  "Statement": [{
    "Effect": "Allow",
    "Principal": {"AWS": ["*"]},
    "Action": ["s3:GetObject"],
    "Resource": ["arn:aws:s3:::%s/qr-codes/*", "arn:aws:s3:::%s/assets/*"]
  }]
}`

type minioAdapter struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    logger.Logger
}

func NewMinioAdapter(ctx context.Context, cfg config.Config, log logger.Logger) (service.BlobStore, error) {
	mc := cfg.Minio
	if mc.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint has not config")
	}

	client, err := minio.New(mc.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(mc.AccessKeyID, mc.SecretAccessKey, ""),
		Secure: mc.UseSSL,
		Region: mc.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot init minio: %w", err)
	}

	exists, err := client.BucketExists(ctx, mc.Bucket)
	if err != nil {
		return nil, fmt.Errorf("cannot check bucket '%s': %w", mc.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, mc.Bucket, minio.MakeBucketOptions{Region: mc.Region}); err != nil {
			return nil, fmt.Errorf("cannot create bucket '%s': %w", mc.Bucket, err)
		}
		log.Info("Created MinIO bucket", zap.String("bucket", mc.Bucket))
	}

	policy := fmt.Sprintf(publicReadPolicy, mc.Bucket, mc.Bucket)
	if err := client.SetBucketPolicy(ctx, mc.Bucket, policy); err != nil {
		return nil, fmt.Errorf("cannot set public read policy on '%s': %w", mc.Bucket, err)
	}

	publicURL := mc.PublicURL
	if publicURL == "" {
		scheme := "http"
		if mc.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, mc.Endpoint)
	}

	log.Info("Connect MinIO successfully.", zap.String("bucket", mc.Bucket))
	return &minioAdapter{
		client:    client,
		bucket:    mc.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    log,
	}, nil
}

func (a *minioAdapter) Put(ctx context.Context, key string, body io.Reader, opts service.PutOptions) (string, error) {
	// PutObject needs a size for single-part uploads; payloads here are small.
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload body: %w", err)
	}

	info, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: opts.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload minio: %w", err)
	}

	a.logger.Debug("Uploaded object", zap.String("key", key), zap.Int64("size", info.Size), zap.String("etag", info.ETag))
	return fmt.Sprintf("%s/%s/%s", a.publicURL, a.bucket, key), nil
}

func (a *minioAdapter) Delete(ctx context.Context, key string) error {
	if err := a.client.RemoveObject(ctx, a.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete minio object: %w", err)
	}
	return nil
}
