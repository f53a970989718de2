// Package gcs provides a SampleStore backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/JakeFAU/catalog-profiler/internal/profiler"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
	Prefix string
}

// SampleStore keeps one object per dataset in a configured GCS bucket.
type SampleStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed sample store.
func New(client *storage.Client, cfg Config) (*SampleStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &SampleStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Exists reports whether the object for id is present.
func (s *SampleStore) Exists(ctx context.Context, id profiler.DatasetID) (bool, error) {
	obj, _, err := s.object(id)
	if err != nil {
		return false, err
	}
	if _, err := obj.Attrs(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("object attrs: %w", err)
	}
	return true, nil
}

// Create uploads data with a DoesNotExist precondition and returns a gs:// URI.
// A concurrent writer that got there first surfaces as ErrSampleExists.
func (s *SampleStore) Create(ctx context.Context, id profiler.DatasetID, data []byte) (string, error) {
	obj, key, err := s.object(id)
	if err != nil {
		return "", err
	}
	writer := obj.If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = "text/csv"
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("write object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return "", fmt.Errorf("gs://%s/%s: %w", s.bucket, key, profiler.ErrSampleExists)
		}
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, key), nil
}

// Read downloads the object for id.
func (s *SampleStore) Read(ctx context.Context, id profiler.DatasetID) ([]byte, error) {
	obj, key, err := s.object(id)
	if err != nil {
		return nil, err
	}
	reader, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("gs://%s/%s: %w", s.bucket, key, profiler.ErrSampleNotFound)
		}
		return nil, fmt.Errorf("open object: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

func (s *SampleStore) object(id profiler.DatasetID) (*storage.ObjectHandle, string, error) {
	key, err := profiler.SlotKey(s.prefix, id)
	if err != nil {
		return nil, "", err
	}
	return s.client.Bucket(s.bucket).Object(key), key, nil
}
