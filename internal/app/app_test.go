package app

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-profiler/internal/catalog/catalogtest"
	"github.com/JakeFAU/catalog-profiler/internal/config"
	"github.com/JakeFAU/catalog-profiler/internal/profiler"
	"github.com/JakeFAU/catalog-profiler/internal/report"
	"github.com/JakeFAU/catalog-profiler/internal/source"
)

const searchPath = "/api/3/action/package_search"

func people(n int) string {
	return catalogtest.CSV([]string{"id", "email", "state"}, n, func(i int) []string {
		return []string{strconv.Itoa(i + 1), "user" + strconv.Itoa(i) + "@example.com", "CA"}
	})
}

func testServer(t *testing.T) *catalogtest.Server {
	t.Helper()
	srv := catalogtest.New(
		catalogtest.Dataset{ID: "people", Title: "People", Resources: []catalogtest.Resource{
			{Format: "JSON", URL: "http://example.invalid/people.json"},
			{Format: "CSV", Body: people(150)},
		}},
		catalogtest.Dataset{ID: "docs", Title: "Docs", Resources: []catalogtest.Resource{
			{Format: "PDF", URL: "http://example.invalid/docs.pdf"},
		}},
		catalogtest.Dataset{ID: "towns", Title: "Towns", Resources: []catalogtest.Resource{
			{Format: "csv", Body: "town,population\nSpringfield,30000\nShelbyville,25000\n"},
		}},
	)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)

	dir := t.TempDir()
	cfg.Catalog.BaseURL = baseURL
	cfg.Paths.Identifiers = filepath.Join(dir, "dataset_identifiers.json")
	cfg.Storage.Dir = filepath.Join(dir, "dataset_records")
	cfg.Report.Path = filepath.Join(dir, "analysis_output.csv")
	cfg.Ledger.Backend = config.LedgerSQLite
	cfg.Ledger.DSN = filepath.Join(dir, "ledger.db")
	cfg.Metrics.Textfile = filepath.Join(dir, "metrics.prom")
	require.NoError(t, os.MkdirAll(cfg.Storage.Dir, 0o750))
	return cfg
}

func reportIDs(t *testing.T, path string) []string {
	t.Helper()
	records := readReport(t, path)
	require.NotEmpty(t, records)
	assert.Equal(t, report.Header, records[0])
	ids := make([]string, 0, len(records)-1)
	for _, r := range records[1:] {
		ids = append(ids, r[0])
	}
	return ids
}

func TestRunEndToEnd(t *testing.T) {
	srv := testServer(t)
	cfg := testConfig(t, srv.URL)
	ctx := context.Background()

	a, err := Build(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotEmpty(t, a.RunID())
	require.NoError(t, a.Run(ctx, false))
	a.Close()

	ids, err := source.Load(cfg.Paths.Identifiers)
	require.NoError(t, err)
	assert.Equal(t, []profiler.DatasetID{"people", "docs", "towns"}, ids)

	assert.Equal(t, []string{"people", "people", "people", "towns", "towns"}, reportIDs(t, cfg.Report.Path))
	assert.FileExists(t, filepath.Join(cfg.Storage.Dir, "people.csv"))
	assert.NoFileExists(t, filepath.Join(cfg.Storage.Dir, "docs.csv"))
	assert.FileExists(t, cfg.Metrics.Textfile)

	// A second run reuses the identifier list, skips acquired slots and
	// profiled datasets, and leaves the report unchanged.
	again, err := Build(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, again.Run(ctx, false))
	again.Close()

	assert.Equal(t, 1, srv.Hits(searchPath))
	assert.Equal(t, 1, srv.FileHits("people"))
	assert.Len(t, reportIDs(t, cfg.Report.Path), 5)
}

func TestRunRecollect(t *testing.T) {
	srv := testServer(t)
	cfg := testConfig(t, srv.URL)
	cfg.Ledger.Backend = config.LedgerNone
	cfg.HTTP.RequestsPerSecond = 100
	cfg.HTTP.Burst = 10
	ctx := context.Background()

	a, err := Build(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Collect(ctx)
	require.NoError(t, err)
	_, err = a.Identifiers(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Hits(searchPath))

	_, err = a.Identifiers(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, srv.Hits(searchPath))
}

func TestStagesRequireIdentifierList(t *testing.T) {
	srv := testServer(t)
	cfg := testConfig(t, srv.URL)
	ctx := context.Background()

	a, err := Build(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Acquire(ctx)
	assert.ErrorIs(t, err, ErrNoIdentifiers)
	_, err = a.Profile(ctx)
	assert.ErrorIs(t, err, ErrNoIdentifiers)
	assert.Equal(t, 0, srv.Hits("/api/3/action/package_show"))
}

func TestStagesSeparately(t *testing.T) {
	srv := testServer(t)
	cfg := testConfig(t, srv.URL)
	ctx := context.Background()

	a, err := Build(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Collect(ctx)
	require.NoError(t, err)

	acquired, err := a.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, acquired.Acquired)
	assert.Equal(t, 1, acquired.Failed)

	profiled, err := a.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, profiled.Profiled)
	assert.Equal(t, 5, profiled.Rows)
}

func TestCollectFailureIsFatal(t *testing.T) {
	srv := testServer(t)
	srv.SearchCode = 503
	cfg := testConfig(t, srv.URL)
	ctx := context.Background()

	a, err := Build(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	err = a.Run(ctx, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, profiler.ErrCatalogUnavailable)
	assert.True(t, profiler.IsFatal(err))
	assert.NoFileExists(t, cfg.Paths.Identifiers)
	assert.NoFileExists(t, cfg.Report.Path)
}

func TestBuildErrors(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(c *config.Config)
		want   string
	}{
		{"unknown storage", func(c *config.Config) { c.Storage.Backend = "ftp" }, "unknown storage backend"},
		{"unknown ledger", func(c *config.Config) { c.Ledger.Backend = "redis" }, "unknown ledger backend"},
		{"relative catalog url", func(c *config.Config) { c.Catalog.BaseURL = "catalog" }, "catalog client"},
		{"s3 without credentials", func(c *config.Config) {
			c.Storage.Backend = config.StorageS3
			c.Storage.Bucket = "b"
			c.Storage.S3.Endpoint = "localhost:9000"
		}, "s3 sample store"},
		{"storage dir is a file", func(c *config.Config) {
			c.Storage.Dir = c.Report.Path
			_ = os.WriteFile(c.Report.Path, nil, 0o600)
		}, "local sample store"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t, "http://127.0.0.1:1")
			tc.mutate(&cfg)
			_, err := Build(context.Background(), cfg, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func readReport(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	r := csv.NewReader(f)
	r.FieldsPerRecord = len(report.Header)
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}
