package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Catalog.BaseURL != "https://catalog.data.gov" || cfg.Catalog.Rows != 300 {
		t.Fatalf("unexpected catalog defaults: %+v", cfg.Catalog)
	}
	if cfg.Sample.Cap != 100 || cfg.Sample.LimitParam != "limit" {
		t.Fatalf("unexpected sample defaults: %+v", cfg.Sample)
	}
	if cfg.Storage.Backend != StorageLocal || cfg.Storage.Dir != "dataset_records" {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Report.Path != "analysis_output.csv" || cfg.Paths.Identifiers != "dataset_identifiers.json" {
		t.Fatalf("unexpected path defaults: %+v %+v", cfg.Report, cfg.Paths)
	}
	if cfg.Ledger.Backend != LedgerNone || cfg.Ledger.Table != "profiled_datasets" {
		t.Fatalf("unexpected ledger defaults: %+v", cfg.Ledger)
	}
	if cfg.Profile.SampleValues != 5 || cfg.Profile.MatchThreshold != 0.8 {
		t.Fatalf("unexpected profile defaults: %+v", cfg.Profile)
	}
	if cfg.HTTP.MaxBodyBytes != 64<<20 || cfg.HTTP.RespectRobots {
		t.Fatalf("unexpected http defaults: %+v", cfg.HTTP)
	}
	if got := cfg.Timeout(); got != time.Minute {
		t.Fatalf("expected 60s timeout, got %v", got)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
catalog:
  base_url: https://data.example.org
  query: climate
  rows: 25
http:
  user_agent: tester
  timeout_seconds: 5
  respect_robots: true
  requests_per_second: 2.5
  burst: 3
  blocked_hosts:
    - "*.mirror.example"
    - files.example.org
sample:
  cap: 50
  limit_param: max_rows
storage:
  backend: s3
  bucket: samples
  prefix: runs/a
  s3:
    endpoint: localhost:9000
    access_key_id: key
    secret_access_key: secret
    use_ssl: false
ledger:
  backend: sqlite
  dsn: ledger.db
pubsub:
  project_id: proj
  topic_name: profiled
metrics:
  textfile: metrics.prom
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Catalog.Query != "climate" || cfg.Catalog.Rows != 25 {
		t.Fatalf("expected catalog overrides to apply: %+v", cfg.Catalog)
	}
	if cfg.HTTP.RequestsPerSecond != 2.5 || cfg.HTTP.Burst != 3 {
		t.Fatalf("expected rate limit overrides to apply: %+v", cfg.HTTP)
	}
	if len(cfg.HTTP.BlockedHosts) != 2 || cfg.HTTP.BlockedHosts[0] != "*.mirror.example" {
		t.Fatalf("expected blocked hosts to load: %v", cfg.HTTP.BlockedHosts)
	}
	if cfg.Sample.Cap != 50 || cfg.Sample.LimitParam != "max_rows" {
		t.Fatalf("expected sample overrides to apply: %+v", cfg.Sample)
	}
	if cfg.Storage.S3.Endpoint != "localhost:9000" || cfg.Storage.S3.UseSSL {
		t.Fatalf("expected s3 overrides to apply: %+v", cfg.Storage.S3)
	}
	if cfg.Ledger.Backend != LedgerSQLite || cfg.Ledger.Table != "profiled_datasets" {
		t.Fatalf("expected ledger override with default table: %+v", cfg.Ledger)
	}
	if cfg.PubSub.TopicName != "profiled" || cfg.Metrics.Textfile != "metrics.prom" {
		t.Fatalf("expected pubsub and metrics overrides: %+v %+v", cfg.PubSub, cfg.Metrics)
	}
	if cfg.Logging.Development {
		t.Fatalf("expected development logging to be disabled")
	}
	if got := cfg.Timeout(); got != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %v", got)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PROFILER_CATALOG_QUERY", "transport")
	t.Setenv("PROFILER_SAMPLE_CAP", "10")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Catalog.Query != "transport" || cfg.Sample.Cap != 10 {
		t.Fatalf("expected env overrides, got %+v %+v", cfg.Catalog, cfg.Sample)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"missing base url", func(c *Config) { c.Catalog.BaseURL = "" }, "catalog.base_url"},
		{"invalid rows", func(c *Config) { c.Catalog.Rows = 0 }, "catalog.rows"},
		{"invalid timeout", func(c *Config) { c.HTTP.TimeoutSeconds = 0 }, "http.timeout_seconds"},
		{"negative rate", func(c *Config) { c.HTTP.RequestsPerSecond = -1 }, "http.requests_per_second"},
		{"invalid cap", func(c *Config) { c.Sample.Cap = -1 }, "sample.cap"},
		{"threshold too high", func(c *Config) { c.Profile.MatchThreshold = 1.5 }, "profile.match_threshold"},
		{"threshold zero", func(c *Config) { c.Profile.MatchThreshold = 0 }, "profile.match_threshold"},
		{"unknown storage", func(c *Config) { c.Storage.Backend = "ftp" }, "storage.backend"},
		{"gcs without bucket", func(c *Config) { c.Storage.Backend = StorageGCS }, "storage.bucket"},
		{"s3 without endpoint", func(c *Config) {
			c.Storage.Backend = StorageS3
			c.Storage.Bucket = "b"
		}, "storage.s3.endpoint"},
		{"unknown ledger", func(c *Config) { c.Ledger.Backend = "redis" }, "ledger.backend"},
		{"sqlite without dsn", func(c *Config) { c.Ledger.Backend = LedgerSQLite }, "ledger.dsn"},
		{"topic without project", func(c *Config) { c.PubSub.TopicName = "t" }, "pubsub.project_id"},
		{"missing report path", func(c *Config) { c.Report.Path = "" }, "report.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
