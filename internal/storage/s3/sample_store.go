// Package s3 provides a SampleStore for S3-compatible object stores via minio-go.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/JakeFAU/catalog-profiler/internal/profiler"
)

// Config captures the S3 endpoint, credentials and target bucket.
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	UseSSL          bool
	Bucket          string
	Prefix          string
}

// SampleStore keeps one object per dataset in an S3 bucket.
type SampleStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// New connects a minio client from cfg.
func New(cfg Config) (*SampleStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("credentials are required")
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}
	endpoint := u.Host
	if endpoint == "" {
		endpoint = cfg.Endpoint
	}
	useSSL := cfg.UseSSL
	if u.Scheme == "https" {
		useSSL = true
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &SampleStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Exists reports whether the object for id is present.
func (s *SampleStore) Exists(ctx context.Context, id profiler.DatasetID) (bool, error) {
	key, err := profiler.SlotKey(s.prefix, id)
	if err != nil {
		return false, err
	}
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object: %w", err)
	}
	return true, nil
}

// Create uploads data and returns an s3:// URI. S3 has no portable
// create-only put, so the existence check and the upload are two calls.
func (s *SampleStore) Create(ctx context.Context, id profiler.DatasetID, data []byte) (string, error) {
	key, err := profiler.SlotKey(s.prefix, id)
	if err != nil {
		return "", err
	}
	uri := fmt.Sprintf("s3://%s/%s", s.bucket, key)

	exists, err := s.Exists(ctx, id)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("%s: %w", uri, profiler.ErrSampleExists)
	}

	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return uri, nil
}

// Read downloads the object for id.
func (s *SampleStore) Read(ctx context.Context, id profiler.DatasetID) ([]byte, error) {
	key, err := profiler.SlotKey(s.prefix, id)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer func() {
		_ = obj.Close()
	}()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, profiler.ErrSampleNotFound)
		}
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}
