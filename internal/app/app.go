// Package app builds the pipeline's long-lived services from configuration and
// runs its stages.
package app

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-profiler/internal/acquire"
	"github.com/JakeFAU/catalog-profiler/internal/catalog"
	"github.com/JakeFAU/catalog-profiler/internal/clock/system"
	"github.com/JakeFAU/catalog-profiler/internal/config"
	collyfetcher "github.com/JakeFAU/catalog-profiler/internal/fetcher/colly"
	"github.com/JakeFAU/catalog-profiler/internal/hash/sha256"
	"github.com/JakeFAU/catalog-profiler/internal/id/uuid"
	"github.com/JakeFAU/catalog-profiler/internal/inference"
	"github.com/JakeFAU/catalog-profiler/internal/metrics"
	"github.com/JakeFAU/catalog-profiler/internal/policy/hostblock"
	"github.com/JakeFAU/catalog-profiler/internal/policy/ratelimit"
	"github.com/JakeFAU/catalog-profiler/internal/profile"
	"github.com/JakeFAU/catalog-profiler/internal/profiler"
	gcppublisher "github.com/JakeFAU/catalog-profiler/internal/publisher/pubsub"
	"github.com/JakeFAU/catalog-profiler/internal/report"
	"github.com/JakeFAU/catalog-profiler/internal/source"
	gcsstorage "github.com/JakeFAU/catalog-profiler/internal/storage/gcs"
	localstorage "github.com/JakeFAU/catalog-profiler/internal/storage/local"
	pgstore "github.com/JakeFAU/catalog-profiler/internal/storage/postgres"
	s3storage "github.com/JakeFAU/catalog-profiler/internal/storage/s3"
	sqlitestore "github.com/JakeFAU/catalog-profiler/internal/storage/sqlite"
	"github.com/JakeFAU/catalog-profiler/internal/worker"
)

// ErrNoIdentifiers is returned when a stage needs the identifier list and it
// has not been collected yet.
var ErrNoIdentifiers = errors.New("identifier list not found; run collect first")

// App contains the application's dependencies.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	runID  string

	catalog   *catalog.Client
	samples   profiler.SampleStore
	ledger    profiler.Ledger
	publisher profiler.Publisher
	report    *report.Writer

	gcsClient *storage.Client
	pubsub    *gcppublisher.Publisher
}

// Build creates the application's dependencies. The caller owns logger.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	runID, err := uuid.New().NewID()
	if err != nil {
		return nil, fmt.Errorf("run id: %w", err)
	}
	app := &App{cfg: cfg, logger: logger.With(zap.String("run_id", runID)), runID: runID}
	app.logger.Info("building application dependencies",
		zap.String("catalog", cfg.Catalog.BaseURL),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("ledger", cfg.Ledger.Backend),
	)

	var fetcher catalog.Fetcher = collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.HTTP.UserAgent,
		RespectRobots: cfg.HTTP.RespectRobots,
		Timeout:       cfg.Timeout(),
		MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
	})
	if cfg.HTTP.RequestsPerSecond > 0 {
		fetcher = ratelimit.Wrap(fetcher, ratelimit.New(ratelimit.Config{
			DefaultRPS:   cfg.HTTP.RequestsPerSecond,
			DefaultBurst: cfg.HTTP.Burst,
		}))
	}
	fetcher = hostblock.Wrap(fetcher, hostblock.New(cfg.HTTP.BlockedHosts))
	app.catalog, err = catalog.NewClient(fetcher, catalog.Config{
		BaseURL:    cfg.Catalog.BaseURL,
		LimitParam: cfg.Sample.LimitParam,
	}, app.logger.Named("catalog"))
	if err != nil {
		return nil, fmt.Errorf("catalog client init failed: %w", err)
	}

	if err := app.setupStorage(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.setupLedger(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.setupPublisher(ctx); err != nil {
		app.Close()
		return nil, err
	}

	app.report, err = report.NewWriter(cfg.Report.Path)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("report writer init failed: %w", err)
	}
	metrics.Init()
	return app, nil
}

func (a *App) setupStorage(ctx context.Context) error {
	var err error
	switch a.cfg.Storage.Backend {
	case config.StorageGCS:
		a.logger.Info("using GCS sample storage", zap.String("bucket", a.cfg.Storage.Bucket))
		a.gcsClient, err = storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("gcs client init failed: %w", err)
		}
		a.samples, err = gcsstorage.New(a.gcsClient, gcsstorage.Config{
			Bucket: a.cfg.Storage.Bucket,
			Prefix: a.cfg.Storage.Prefix,
		})
	case config.StorageS3:
		a.logger.Info("using S3 sample storage",
			zap.String("endpoint", a.cfg.Storage.S3.Endpoint),
			zap.String("bucket", a.cfg.Storage.Bucket),
		)
		a.samples, err = s3storage.New(s3storage.Config{
			Endpoint:        a.cfg.Storage.S3.Endpoint,
			AccessKeyID:     a.cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: a.cfg.Storage.S3.SecretAccessKey,
			Region:          a.cfg.Storage.S3.Region,
			UseSSL:          a.cfg.Storage.S3.UseSSL,
			Bucket:          a.cfg.Storage.Bucket,
			Prefix:          a.cfg.Storage.Prefix,
		})
	case config.StorageLocal:
		a.logger.Info("using local sample storage", zap.String("path", a.cfg.Storage.Dir))
		a.samples, err = localstorage.New(localstorage.Config{BaseDir: a.cfg.Storage.Dir})
	default:
		return fmt.Errorf("unknown storage backend: %s", a.cfg.Storage.Backend)
	}
	if err != nil {
		return fmt.Errorf("%s sample store init failed: %w", a.cfg.Storage.Backend, err)
	}
	return nil
}

func (a *App) setupLedger(ctx context.Context) error {
	switch a.cfg.Ledger.Backend {
	case config.LedgerNone, "":
		a.logger.Info("cross-run ledger disabled; re-running profile appends duplicate rows")
		return nil
	case config.LedgerSQLite:
		ledger, err := sqlitestore.Open(ctx, a.cfg.Ledger.DSN, a.cfg.Ledger.Table)
		if err != nil {
			return fmt.Errorf("sqlite ledger init failed: %w", err)
		}
		a.ledger = ledger
	case config.LedgerPostgres:
		ledger, err := pgstore.New(ctx, pgstore.Config{DSN: a.cfg.Ledger.DSN, Table: a.cfg.Ledger.Table})
		if err != nil {
			return fmt.Errorf("postgres ledger init failed: %w", err)
		}
		a.ledger = ledger
	default:
		return fmt.Errorf("unknown ledger backend: %s", a.cfg.Ledger.Backend)
	}
	a.logger.Info("cross-run ledger enabled", zap.String("backend", a.cfg.Ledger.Backend))
	return nil
}

func (a *App) setupPublisher(ctx context.Context) error {
	if a.cfg.PubSub.TopicName == "" {
		return nil
	}
	pub, err := gcppublisher.New(ctx, gcppublisher.Config{
		ProjectID: a.cfg.PubSub.ProjectID,
		TopicID:   a.cfg.PubSub.TopicName,
	})
	if err != nil {
		return fmt.Errorf("pubsub publisher init failed: %w", err)
	}
	a.pubsub = pub
	a.publisher = pub
	a.logger.Info("publishing profiled events", zap.String("topic", a.cfg.PubSub.TopicName))
	return nil
}

// RunID identifies this invocation in logs, ledger entries and events.
func (a *App) RunID() string {
	return a.runID
}

// Collect queries the catalog and persists the identifier list.
func (a *App) Collect(ctx context.Context) ([]profiler.DatasetID, error) {
	src := source.New(a.catalog, a.cfg.Catalog.Query, a.cfg.Catalog.Rows, a.logger.Named("collect"))
	ids, err := src.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if err := source.Save(a.cfg.Paths.Identifiers, ids); err != nil {
		return nil, fmt.Errorf("save identifiers: %w", err)
	}
	a.logger.Info("identifier list written",
		zap.String("path", a.cfg.Paths.Identifiers),
		zap.Int("count", len(ids)),
	)
	return ids, nil
}

// Identifiers loads the persisted list, collecting it first when it is missing
// or recollect is set.
func (a *App) Identifiers(ctx context.Context, recollect bool) ([]profiler.DatasetID, error) {
	if !recollect {
		ok, err := source.Exists(a.cfg.Paths.Identifiers)
		if err != nil {
			return nil, fmt.Errorf("stat identifiers: %w", err)
		}
		if ok {
			return source.Load(a.cfg.Paths.Identifiers)
		}
	}
	return a.Collect(ctx)
}

func (a *App) loadIdentifiers() ([]profiler.DatasetID, error) {
	ok, err := source.Exists(a.cfg.Paths.Identifiers)
	if err != nil {
		return nil, fmt.Errorf("stat identifiers: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", a.cfg.Paths.Identifiers, ErrNoIdentifiers)
	}
	return source.Load(a.cfg.Paths.Identifiers)
}

// Acquire materializes a sample slot for every listed identifier.
func (a *App) Acquire(ctx context.Context) (acquire.Summary, error) {
	ids, err := a.loadIdentifiers()
	if err != nil {
		return acquire.Summary{}, err
	}
	return a.acquire(ctx, ids)
}

func (a *App) acquire(ctx context.Context, ids []profiler.DatasetID) (acquire.Summary, error) {
	acq := acquire.New(a.catalog, a.samples, sha256.New(),
		acquire.Config{SampleCap: a.cfg.Sample.Cap}, a.logger.Named("acquire"))
	return acq.Run(ctx, ids)
}

// Profile profiles every listed identifier into the report.
func (a *App) Profile(ctx context.Context) (worker.Summary, error) {
	ids, err := a.loadIdentifiers()
	if err != nil {
		return worker.Summary{}, err
	}
	return a.profile(ctx, ids)
}

func (a *App) profile(ctx context.Context, ids []profiler.DatasetID) (worker.Summary, error) {
	model := inference.New(inference.Config{
		SampleValues:   a.cfg.Profile.SampleValues,
		MatchThreshold: a.cfg.Profile.MatchThreshold,
	})
	engine := profile.New(a.samples, model, profile.Config{SampleCap: a.cfg.Sample.Cap}, a.logger.Named("profile"))
	w := worker.New(a.catalog, engine, a.report, a.ledger, a.publisher, system.New(),
		worker.Config{RunID: a.runID, Topic: a.cfg.PubSub.TopicName}, a.logger.Named("worker"))
	return w.Run(ctx, ids, profiler.NewIDSet())
}

// Run executes collect (when needed), acquire and profile in order.
func (a *App) Run(ctx context.Context, recollect bool) error {
	ids, err := a.Identifiers(ctx, recollect)
	if err != nil {
		return err
	}
	if _, err := a.acquire(ctx, ids); err != nil {
		return err
	}
	_, err = a.profile(ctx, ids)
	return err
}

// Close releases clients and exports metrics. It is safe on a partly built App.
func (a *App) Close() {
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			a.logger.Warn("ledger close failed", zap.Error(err))
		}
	}
	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			a.logger.Warn("pubsub close failed", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if err := metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.logger.Warn("metrics export failed", zap.Error(err))
	}
}
