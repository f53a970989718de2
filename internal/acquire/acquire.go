// Package acquire downloads a capped sample of each dataset's first CSV
// resource into the sample store. Acquisition is idempotent: a dataset whose
// slot already exists is skipped without touching the network.
package acquire

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-profiler/internal/metrics"
	"github.com/JakeFAU/catalog-profiler/internal/profiler"
	"github.com/JakeFAU/catalog-profiler/internal/tabular"
)

// Config controls Acquirer behavior.
type Config struct {
	// SampleCap bounds the number of data rows requested and stored.
	SampleCap int
}

// Acquirer materializes sample slots.
type Acquirer struct {
	catalog profiler.Catalog
	store   profiler.SampleStore
	hasher  profiler.Hasher
	cfg     Config
	logger  *zap.Logger
}

// Summary counts batch outcomes.
type Summary struct {
	Acquired int
	Skipped  int
	Failed   int
}

// Total returns the number of identifiers handled.
func (s Summary) Total() int {
	return s.Acquired + s.Skipped + s.Failed
}

// New constructs an Acquirer. A nil hasher disables digests.
func New(
	catalog profiler.Catalog,
	store profiler.SampleStore,
	hasher profiler.Hasher,
	cfg Config,
	logger *zap.Logger,
) *Acquirer {
	if cfg.SampleCap <= 0 {
		cfg.SampleCap = profiler.DefaultSampleCap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Acquirer{
		catalog: catalog,
		store:   store,
		hasher:  hasher,
		cfg:     cfg,
		logger:  logger,
	}
}

// Acquire materializes the sample slot for one dataset.
func (a *Acquirer) Acquire(ctx context.Context, id profiler.DatasetID) profiler.Outcome {
	exists, err := a.store.Exists(ctx, id)
	if err != nil {
		return failed(id, classify(err, profiler.KindSampleWriteFailure, id))
	}
	if exists {
		return profiler.Outcome{ID: id, Status: profiler.StatusSkipped}
	}

	meta, err := a.catalog.Package(ctx, id)
	if err != nil {
		return failed(id, classify(err, profiler.KindMetadataUnavailable, id))
	}
	resource, err := profiler.SelectCSV(id, meta.Resources)
	if err != nil {
		return failed(id, err)
	}

	body, err := a.catalog.Records(ctx, resource.URL, a.cfg.SampleCap)
	if err != nil {
		return failed(id, classify(err, profiler.KindRecordsUnavailable, id))
	}
	if len(body) == 0 {
		return failed(id, profiler.NewError(profiler.KindRecordsUnavailable, id, errors.New("empty response body")))
	}

	// The server may ignore the limit parameter, so the cap is enforced here too.
	table, err := tabular.Parse(body, a.cfg.SampleCap)
	if err != nil {
		return failed(id, profiler.NewError(profiler.KindRecordsUnavailable, id, fmt.Errorf("parse records: %w", err)))
	}
	data, err := tabular.Encode(table)
	if err != nil {
		return failed(id, profiler.NewError(profiler.KindSampleWriteFailure, id, err))
	}

	var digest string
	if a.hasher != nil {
		if digest, err = a.hasher.Hash(data); err != nil {
			return failed(id, profiler.NewError(profiler.KindSampleWriteFailure, id, fmt.Errorf("hash sample: %w", err)))
		}
	}

	uri, err := a.store.Create(ctx, id, data)
	if err != nil {
		if errors.Is(err, profiler.ErrSampleExists) {
			// Another writer got there first; the slot is complete either way.
			return profiler.Outcome{ID: id, Status: profiler.StatusSkipped}
		}
		return failed(id, classify(err, profiler.KindSampleWriteFailure, id))
	}
	return profiler.Outcome{
		ID:     id,
		Status: profiler.StatusAcquired,
		URI:    uri,
		Rows:   len(table.Rows),
		Bytes:  len(data),
		Digest: digest,
	}
}

// Run acquires every identifier in order. Per-item failures are logged and the
// batch continues; only context cancellation stops it early.
func (a *Acquirer) Run(ctx context.Context, ids []profiler.DatasetID) (Summary, error) {
	var summary Summary
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			a.logSummary(summary, len(ids))
			return summary, fmt.Errorf("acquisition canceled: %w", err)
		}
		outcome := a.acquireSafely(ctx, id)
		a.logOutcome(outcome)
		switch outcome.Status {
		case profiler.StatusAcquired:
			summary.Acquired++
		case profiler.StatusSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}
	a.logSummary(summary, len(ids))
	return summary, nil
}

func (a *Acquirer) acquireSafely(ctx context.Context, id profiler.DatasetID) (outcome profiler.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = failed(id, fmt.Errorf("panic: %v", r))
		}
	}()
	return a.Acquire(ctx, id)
}

func (a *Acquirer) logOutcome(o profiler.Outcome) {
	written := 0
	switch o.Status {
	case profiler.StatusAcquired:
		a.logger.Info("sample acquired",
			zap.String("dataset_id", o.ID.String()),
			zap.String("uri", o.URI),
			zap.Int("rows", o.Rows),
			zap.String("sha256", o.Digest),
		)
		written = o.Bytes
	case profiler.StatusSkipped:
		a.logger.Info("sample already present", zap.String("dataset_id", o.ID.String()))
	default:
		a.logger.Warn("acquisition failed",
			zap.String("dataset_id", o.ID.String()),
			zap.String("reason", reasonOf(o.Err)),
			zap.Error(o.Err),
		)
	}
	metrics.ObserveAcquisition(string(o.Status), written)
}

func (a *Acquirer) logSummary(s Summary, total int) {
	a.logger.Info("acquisition finished",
		zap.Int("identifiers", total),
		zap.Int("acquired", s.Acquired),
		zap.Int("skipped", s.Skipped),
		zap.Int("failed", s.Failed),
	)
}

func failed(id profiler.DatasetID, err error) profiler.Outcome {
	return profiler.Outcome{ID: id, Status: profiler.StatusFailed, Err: err}
}

// classify keeps an existing kind (adding the dataset id) or wraps err as kind.
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
