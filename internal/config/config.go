// Package config loads and validates profiler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	StorageLocal = "local"
	StorageGCS   = "gcs"
	StorageS3    = "s3"
)

// Ledger backends.
const (
	LedgerNone     = "none"
	LedgerSQLite   = "sqlite"
	LedgerPostgres = "postgres"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Catalog CatalogConfig `mapstructure:"catalog"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Paths   PathsConfig   `mapstructure:"paths"`
	Sample  SampleConfig  `mapstructure:"sample"`
	Storage StorageConfig `mapstructure:"storage"`
	Profile ProfileConfig `mapstructure:"profile"`
	Report  ReportConfig  `mapstructure:"report"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CatalogConfig points at the CKAN-style catalog and the search that seeds a run.
type CatalogConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Query   string `mapstructure:"query"`
	Rows    int    `mapstructure:"rows"`
}

// HTTPConfig configures the shared fetcher. RequestsPerSecond throttles
// requests per host; zero disables throttling. BlockedHosts accepts exact
// hosts and "*.suffix" patterns.
type HTTPConfig struct {
	UserAgent         string   `mapstructure:"user_agent"`
	TimeoutSeconds    int      `mapstructure:"timeout_seconds"`
	RespectRobots     bool     `mapstructure:"respect_robots"`
	MaxBodyBytes      int      `mapstructure:"max_body_bytes"`
	RequestsPerSecond float64  `mapstructure:"requests_per_second"`
	Burst             int      `mapstructure:"burst"`
	BlockedHosts      []string `mapstructure:"blocked_hosts"`
}

// PathsConfig locates local files.
type PathsConfig struct {
	Identifiers string `mapstructure:"identifiers"`
}

// SampleConfig bounds each downloaded sample.
type SampleConfig struct {
	Cap        int    `mapstructure:"cap"`
	LimitParam string `mapstructure:"limit_param"`
}

// StorageConfig selects where sample slots live.
type StorageConfig struct {
	Backend string   `mapstructure:"backend"`
	Dir     string   `mapstructure:"dir"`
	Bucket  string   `mapstructure:"bucket"`
	Prefix  string   `mapstructure:"prefix"`
	S3      S3Config `mapstructure:"s3"`
}

// S3Config holds S3-compatible endpoint credentials.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Region          string `mapstructure:"region"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// ProfileConfig tunes the inference model.
type ProfileConfig struct {
	SampleValues   int     `mapstructure:"sample_values"`
	MatchThreshold float64 `mapstructure:"match_threshold"`
}

// ReportConfig locates the cumulative report.
type ReportConfig struct {
	Path string `mapstructure:"path"`
}

// LedgerConfig enables cross-run dedup.
type LedgerConfig struct {
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
	Table   string `mapstructure:"table"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment. Environment variables use the
// PROFILER_ prefix with dots replaced by underscores.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PROFILER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.base_url", "https://catalog.data.gov")
	v.SetDefault("catalog.query", "")
	v.SetDefault("catalog.rows", 300)
	v.SetDefault("http.user_agent", "catalog-profiler/0.1")
	v.SetDefault("http.timeout_seconds", 60)
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("http.max_body_bytes", 64<<20)
	v.SetDefault("http.requests_per_second", 0)
	v.SetDefault("http.burst", 1)
	v.SetDefault("http.blocked_hosts", []string{})
	v.SetDefault("paths.identifiers", "dataset_identifiers.json")
	v.SetDefault("sample.cap", 100)
	v.SetDefault("sample.limit_param", "limit")
	v.SetDefault("storage.backend", StorageLocal)
	v.SetDefault("storage.dir", "dataset_records")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.use_ssl", true)
	v.SetDefault("profile.sample_values", 5)
	v.SetDefault("profile.match_threshold", 0.8)
	v.SetDefault("report.path", "analysis_output.csv")
	v.SetDefault("ledger.backend", LedgerNone)
	v.SetDefault("ledger.dsn", "")
	v.SetDefault("ledger.table", "profiled_datasets")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url must be set")
	}
	if c.Catalog.Rows <= 0 {
		return fmt.Errorf("catalog.rows must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.RequestsPerSecond < 0 {
		return fmt.Errorf("http.requests_per_second must be >= 0")
	}
	if c.Sample.Cap <= 0 {
		return fmt.Errorf("sample.cap must be > 0")
	}
	if c.Paths.Identifiers == "" {
		return fmt.Errorf("paths.identifiers must be set")
	}
	if c.Report.Path == "" {
		return fmt.Errorf("report.path must be set")
	}
	if c.Profile.MatchThreshold <= 0 || c.Profile.MatchThreshold > 1 {
		return fmt.Errorf("profile.match_threshold must be in (0, 1]")
	}
	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir must be set for the local backend")
		}
	case StorageGCS, StorageS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket must be set for the %s backend", c.Storage.Backend)
		}
		if c.Storage.Backend == StorageS3 && c.Storage.S3.Endpoint == "" {
			return fmt.Errorf("storage.s3.endpoint must be set for the s3 backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of local, gcs, s3", c.Storage.Backend)
	}
	switch c.Ledger.Backend {
	case LedgerNone, "":
	case LedgerSQLite, LedgerPostgres:
		if c.Ledger.DSN == "" {
			return fmt.Errorf("ledger.dsn must be set for the %s backend", c.Ledger.Backend)
		}
	default:
		return fmt.Errorf("ledger.backend %q is not one of none, sqlite, postgres", c.Ledger.Backend)
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// Timeout converts the HTTP timeout into a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
