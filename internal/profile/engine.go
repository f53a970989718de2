// Package profile turns a stored sample into per-column profile rows.
package profile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-profiler/internal/profiler"
	"github.com/JakeFAU/catalog-profiler/internal/tabular"
)

var errHeaderOnly = errors.New("sample has a header but no data rows")

// Config controls Engine behavior.
type Config struct {
	// SampleCap re-enforces the acquisition row cap on read.
	SampleCap int
}

// Engine loads samples and runs the inference model over them. It owns no
// persisted state.
type Engine struct {
	store  profiler.SampleStore
	model  profiler.Model
	cfg    Config
	logger *zap.Logger
}

// New constructs an Engine.
func New(store profiler.SampleStore, model profiler.Model, cfg Config, logger *zap.Logger) *Engine {
	if cfg.SampleCap <= 0 {
		cfg.SampleCap = profiler.DefaultSampleCap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, model: model, cfg: cfg, logger: logger}
}

// Profile returns one ColumnProfile per column of the stored sample for id,
// stamped with id and name. Every failure, including a panic inside the model,
// comes back as a classified *profiler.Error.
func (e *Engine) Profile(ctx context.Context, id profiler.DatasetID, name string) (rows []profiler.ColumnProfile, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = profiler.NewError(profiler.KindProfilingFailure, id, fmt.Errorf("panic: %v", r))
		}
		// Callers own the user-facing failure line.
		if err != nil {
			e.logger.Debug("profiling failed",
				zap.String("dataset_id", id.String()),
				zap.String("reason", string(profiler.KindOf(err))),
				zap.Error(err),
			)
		}
	}()

	table, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}

	stats, err := e.model.Infer(ctx, table)
	if err != nil {
		return nil, profiler.NewError(profiler.KindProfilingFailure, id, fmt.Errorf("infer: %w", err))
	}
	if len(stats) == 0 {
		return nil, profiler.NewError(profiler.KindProfilingFailure, id, errors.New("model returned no columns"))
	}

	rows = make([]profiler.ColumnProfile, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, profiler.ColumnProfile{
			DatasetID:   id,
			DatasetName: name,
			Column:      s.ColumnName,
			Prediction:  s.DataLabel,
			Samples:     s.Samples,
		})
	}
	e.logger.Debug("dataset profiled",
		zap.String("dataset_id", id.String()),
		zap.Int("columns", len(rows)),
		zap.Int("rows", len(table.Rows)),
	)
	return rows, nil
}

// load reads the slot, repairs its encoding and parses at most SampleCap rows.
func (e *Engine) load(ctx context.Context, id profiler.DatasetID) (profiler.Table, error) {
	data, err := e.store.Read(ctx, id)
	if err != nil {
		return profiler.Table{}, profiler.NewError(profiler.KindSampleUnreadable, id, err)
	}
	data, err = tabular.ToUTF8(data)
	if err != nil {
		return profiler.Table{}, profiler.NewError(profiler.KindSampleUnreadable, id, err)
	}

	table, err := tabular.Parse(data, e.cfg.SampleCap)
	if err != nil {
		return profiler.Table{}, profiler.NewError(profiler.KindProfilingFailure, id, err)
	}
	if len(table.Rows) == 0 {
		return profiler.Table{}, profiler.NewError(profiler.KindProfilingFailure, id, errHeaderOnly)
	}
	return table.Truncate(e.cfg.SampleCap), nil
}
