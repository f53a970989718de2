// Package local implements a local filesystem sample store.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/catalog-profiler/internal/profiler"
)

// Config captures the parameters for the local filesystem sample store.
type Config struct {
	// BaseDir is the root directory where samples will be stored.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// SampleStore keeps one <id>.csv file per dataset under BaseDir.
type SampleStore struct {
	baseDir string
}

// New creates a new local filesystem-backed sample store.
func New(cfg Config) (*SampleStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	// Check if the directory exists and is writable.
	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
				return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
			}
		} else {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &SampleStore{baseDir: filepath.Clean(cfg.BaseDir)}, nil
}

// Exists reports whether the slot for id is present.
func (s *SampleStore) Exists(_ context.Context, id profiler.DatasetID) (bool, error) {
	fullPath, err := s.slotPath(id)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(fullPath)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat slot: %w", err)
}

// Create writes data into a new slot and returns a file:// URI. The bytes go to
// a temp file first and are hard-linked into place, so a slot is either absent
// or complete, and an existing slot is never replaced.
func (s *SampleStore) Create(_ context.Context, id profiler.DatasetID, data []byte) (string, error) {
	fullPath, err := s.slotPath(id)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.baseDir, ".slot-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Link(tmpName, fullPath); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%s: %w", fullPath, profiler.ErrSampleExists)
		}
		return "", fmt.Errorf("failed to link slot: %w", err)
	}
	return fmt.Sprintf("file://%s", fullPath), nil
}

// Read returns the stored bytes for id.
func (s *SampleStore) Read(_ context.Context, id profiler.DatasetID) ([]byte, error) {
	fullPath, err := s.slotPath(id)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- slot names are validated and joined under baseDir.
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", fullPath, profiler.ErrSampleNotFound)
		}
		return nil, fmt.Errorf("failed to read slot: %w", err)
	}
	return data, nil
}

func (s *SampleStore) slotPath(id profiler.DatasetID) (string, error) {
	name, err := profiler.SlotName(id)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.baseDir, name)
	// Clean the path and verify it's within baseDir to prevent path traversal.
	if !strings.HasPrefix(filepath.Clean(fullPath), s.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	return fullPath, nil
}
