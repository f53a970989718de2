// Package worker implements the profiling loop: for each identifier it looks
// up metadata, profiles the stored sample, appends the rows to the report and
// records the dataset as done.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-profiler/internal/metrics"
	"github.com/JakeFAU/catalog-profiler/internal/profiler"
)

// Engine profiles one stored sample.
type Engine interface {
	Profile(ctx context.Context, id profiler.DatasetID, name string) ([]profiler.ColumnProfile, error)
}

// Config controls Worker behavior.
type Config struct {
	// RunID stamps ledger entries and events.
	RunID string
	// Topic receives one event per profiled dataset. Empty disables publishing.
	Topic string
}

// Summary counts loop outcomes.
type Summary struct {
	Profiled int
	Skipped  int
	Failed   int
	Rows     int
}

// Worker drives the profiling stage.
type Worker struct {
	catalog   profiler.Catalog
	engine    Engine
	report    profiler.ReportWriter
	ledger    profiler.Ledger
	publisher profiler.Publisher
	clock     profiler.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker. ledger and publisher are optional.
func New(
	catalog profiler.Catalog,
	engine Engine,
	report profiler.ReportWriter,
	ledger profiler.Ledger,
	publisher profiler.Publisher,
	clock profiler.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		catalog:   catalog,
		engine:    engine,
		report:    report,
		ledger:    ledger,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run profiles ids in order. processed holds the identifiers already handled in
// this run and is updated as the loop goes; pass an empty set for a fresh run.
// Per-dataset failures are logged and skipped. A report or ledger failure, or
// cancellation, stops the loop and is returned.
func (w *Worker) Run(ctx context.Context, ids []profiler.DatasetID, processed profiler.IDSet) (Summary, error) {
	var summary Summary
	if processed == nil {
		processed = profiler.NewIDSet()
	}

	done := profiler.NewIDSet()
	if w.ledger != nil {
		prior, err := w.ledger.Processed(ctx)
		if err != nil {
			return summary, classify(err, profiler.KindLedgerFailure, "")
		}
		done = prior
		w.logger.Info("ledger loaded", zap.Int("datasets", done.Len()))
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			w.logSummary(summary, len(ids))
			return summary, fmt.Errorf("profiling canceled: %w", err)
		}
		if processed.Has(id) {
			summary.Skipped++
			w.logger.Info("dataset already processed in this run", zap.String("dataset_id", id.String()))
			continue
		}
		if done.Has(id) {
			summary.Skipped++
			processed.Add(id)
			metrics.ObserveProfile("skipped")
			w.logger.Info("dataset already profiled", zap.String("dataset_id", id.String()))
			continue
		}

		n, err := w.processSafely(ctx, id)
		processed.Add(id)
		switch {
		case err == nil:
			summary.Profiled++
			summary.Rows += n
			metrics.ObserveProfile("profiled")
		case profiler.IsFatal(err):
			summary.Failed++
			metrics.ObserveProfile("failed")
			w.logger.Error("profiling aborted",
				zap.String("dataset_id", id.String()),
				zap.String("reason", reasonOf(err)),
				zap.Error(err),
			)
			w.logSummary(summary, len(ids))
			return summary, err
		default:
			summary.Failed++
			metrics.ObserveProfile("failed")
			w.logger.Warn("dataset skipped",
				zap.String("dataset_id", id.String()),
				zap.String("reason", reasonOf(err)),
				zap.Error(err),
			)
		}
	}
	w.logSummary(summary, len(ids))
	return summary, nil
}

func (w *Worker) processSafely(ctx context.Context, id profiler.DatasetID) (n int, err error) {
	metrics.IncInFlight()
	defer metrics.DecInFlight()
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("panic: %v", r)
		}
	}()
	return w.process(ctx, id)
}

func (w *Worker) process(ctx context.Context, id profiler.DatasetID) (int, error) {
	meta, err := w.catalog.Package(ctx, id)
	if err != nil {
		return 0, classify(err, profiler.KindMetadataUnavailable, id)
	}
	if _, err := profiler.SelectCSV(id, meta.Resources); err != nil {
		return 0, err
	}

	rows, err := w.engine.Profile(ctx, id, meta.Title)
	if err != nil {
		return 0, classify(err, profiler.KindProfilingFailure, id)
	}
	if err := w.report.Append(rows); err != nil {
		return 0, classify(err, profiler.KindReportWriteFailure, id)
	}
	for _, r := range rows {
		metrics.ObserveColumn(r.Prediction)
	}

	now := w.now()
	if w.ledger != nil {
		entry := profiler.LedgerEntry{
			DatasetID:   id,
			DatasetName: meta.Title,
			Columns:     len(rows),
			RunID:       w.cfg.RunID,
			ProfiledAt:  now,
		}
		if err := w.ledger.Record(ctx, entry); err != nil {
			return 0, classify(err, profiler.KindLedgerFailure, id)
		}
	}
	w.publish(ctx, profiler.ProfiledEvent{
		RunID:       w.cfg.RunID,
		DatasetID:   id,
		DatasetName: meta.Title,
		Columns:     len(rows),
		ReportPath:  w.report.Path(),
		ProfiledAt:  now,
	})

	w.logger.Info("dataset profiled",
		zap.String("dataset_id", id.String()),
		zap.String("dataset_name", meta.Title),
		zap.Int("columns", len(rows)),
	)
	return len(rows), nil
}

func (w *Worker) publish(ctx context.Context, event profiler.ProfiledEvent) {
	if w.publisher == nil || w.cfg.Topic == "" {
		return
	}
	msgID, err := w.publisher.Publish(ctx, w.cfg.Topic, event)
	if err != nil {
		w.logger.Warn("publish profiled event failed",
			zap.String("dataset_id", event.DatasetID.String()),
			zap.Error(err),
		)
		return
	}
	w.logger.Debug("published profiled event",
		zap.String("dataset_id", event.DatasetID.String()),
		zap.String("message_id", msgID),
	)
}

func (w *Worker) now() time.Time {
	if w.clock == nil {
		return time.Now().UTC()
	}
	return w.clock.Now()
}

func (w *Worker) logSummary(s Summary, total int) {
	w.logger.Info("profiling finished",
		zap.String("run_id", w.cfg.RunID),
		zap.Int("identifiers", total),
		zap.Int("profiled", s.Profiled),
		zap.Int("skipped", s.Skipped),
		zap.Int("failed", s.Failed),
		zap.Int("rows", s.Rows),
	)
}

func classify(err error, kind profiler.Kind, id profiler.DatasetID) error {
	if profiler.KindOf(err) != "" {
		return profiler.WithID(err, id)
	}
	return profiler.NewError(kind, id, err)
}

func reasonOf(err error) string {
	if kind := profiler.KindOf(err); kind != "" {
		return string(kind)
	}
	return "unexpected"
}
