// Package s3storage keeps the latest JSON snapshot of every parcel in a MinIO
// or S3 bucket and hands out presigned download links for it.
package s3storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/TrackFast/internal/config"
	"github.com/dharsanguruparan/TrackFast/internal/model"
)

const snapshotContentType = "application/json"

// Storage wraps the MinIO client and the archive bucket.
type Storage struct {
	client *minio.Client
	bucket string
	region string
	urlTTL time.Duration
}

// New creates a MinIO client from the Config.
func New(cfg *config.Config) (*Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{
		client: client,
		bucket: cfg.S3Bucket,
		region: cfg.S3Region,
		urlTTL: cfg.ArchiveURLTTL,
	}, nil
}

// EnsureBucket creates the archive bucket if it does not exist yet.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("make bucket %s: %w", s.bucket, err)
	}
	return nil
}

// PutSnapshot overwrites the parcel's latest snapshot with data.
func (s *Storage) PutSnapshot(ctx context.Context, parcelID string, data []byte) error {
	key := SnapshotKey(parcelID)
	opts := minio.PutObjectOptions{ContentType: snapshotContentType}
	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return fmt.Errorf("put snapshot %s: %w", key, err)
	}
	return nil
}

// RemoveSnapshot deletes the parcel's snapshot. Removing a missing object is
// not an error.
func (s *Storage) RemoveSnapshot(ctx context.Context, parcelID string) error {
	key := SnapshotKey(parcelID)
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove snapshot %s: %w", key, err)
	}
	return nil
}

// SnapshotURL returns a presigned GET URL for the parcel's snapshot. A parcel
// that was never archived yields model.ErrNotFound.
func (s *Storage) SnapshotURL(ctx context.Context, parcelID string) (string, error) {
	key := SnapshotKey(parcelID)
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", model.NotFound("Archive")
		}
		return "", fmt.Errorf("stat snapshot %s: %w", key, err)
	}
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", parcelID+".json"))
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.urlTTL, params)
	if err != nil {
		return "", fmt.Errorf("presign snapshot %s: %w", key, err)
	}
	return u.String(), nil
}

// SnapshotKey is the object key of a parcel's latest snapshot.
func SnapshotKey(parcelID string) string {
	return fmt.Sprintf("parcels/%s/latest.json", parcelID)
}
