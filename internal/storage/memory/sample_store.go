// Package memory keeps samples and ledger entries in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/catalog-profiler/internal/profiler"
)

// SampleStore stores samples in-memory and returns pseudo URIs.
type SampleStore struct {
	mu   sync.RWMutex
	data map[profiler.DatasetID][]byte
}

// NewSampleStore creates a new in-memory sample store.
func NewSampleStore() *SampleStore {
	return &SampleStore{data: make(map[profiler.DatasetID][]byte)}
}

// Exists reports whether a slot is present.
func (s *SampleStore) Exists(_ context.Context, id profiler.DatasetID) (bool, error) {
	if _, err := profiler.SlotName(id); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[id]
	return ok, nil
}

// Create persists a copy of data unless the slot already exists.
func (s *SampleStore) Create(_ context.Context, id profiler.DatasetID, data []byte) (string, error) {
	name, err := profiler.SlotName(id)
	if err != nil {
		return "", err
	}
	uri := fmt.Sprintf("memory://%s", name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; ok {
		return "", fmt.Errorf("%s: %w", uri, profiler.ErrSampleExists)
	}
	s.data[id] = append([]byte(nil), data...)
	return uri, nil
}

// Read returns a copy of the stored bytes.
func (s *SampleStore) Read(_ context.Context, id profiler.DatasetID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[id]
	if !ok {
		return nil, fmt.Errorf("memory://%s: %w", id, profiler.ErrSampleNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Put seeds a slot directly, replacing any existing content.
func (s *SampleStore) Put(id profiler.DatasetID, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = append([]byte(nil), data...)
}
