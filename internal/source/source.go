// Package source produces the ordered identifier work list from the catalog and
// persists it for the downstream passes.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-profiler/internal/profiler"
)

// DefaultRows caps how many identifiers a single collection requests.
const DefaultRows = 300

// Source queries the catalog search endpoint once.
type Source struct {
	catalog profiler.Catalog
	query   string
	rows    int
	logger  *zap.Logger
}

// New constructs a Source. Non-positive rows fall back to DefaultRows.
func New(catalog profiler.Catalog, query string, rows int, logger *zap.Logger) *Source {
	if rows <= 0 {
		rows = DefaultRows
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{catalog: catalog, query: query, rows: rows, logger: logger}
}

// Collect returns up to rows identifiers in catalog order. There is no
// pagination and no retry; any failure is CatalogUnavailable.
func (s *Source) Collect(ctx context.Context) ([]profiler.DatasetID, error) {
	ids, err := s.catalog.Search(ctx, s.query, s.rows)
	if err != nil {
		if profiler.KindOf(err) == "" {
			err = profiler.NewError(profiler.KindCatalogUnavailable, "", err)
		}
		return nil, err
	}
	if len(ids) > s.rows {
		ids = ids[:s.rows]
	}
	s.logger.Info("identifiers collected", zap.Int("count", len(ids)), zap.String("query", s.query))
	return ids, nil
}

// Save writes ids to path as a JSON array. The file is replaced atomically.
func Save(path string, ids []profiler.DatasetID) error {
	if ids == nil {
		ids = []profiler.DatasetID{}
	}
	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return fmt.Errorf("encode identifiers: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create identifiers dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".identifiers-*")
	if err != nil {
		return fmt.Errorf("create temp identifiers file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write identifiers: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync identifiers: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close identifiers: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename identifiers: %w", err)
	}
	return nil
}

// Load reads the identifier list written by Save, preserving order. Blank
// entries are dropped.
func Load(path string) ([]profiler.DatasetID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read identifiers: %w", err)
	}
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode identifiers %s: %w", path, err)
	}
	ids := make([]profiler.DatasetID, 0, len(raw))
	for _, id := range raw {
		if strings.TrimSpace(id) == "" {
			continue
		}
		ids = append(ids, profiler.DatasetID(id))
	}
	return ids, nil
}

// Exists reports whether the identifier list file is present.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat identifiers: %w", err)
}
