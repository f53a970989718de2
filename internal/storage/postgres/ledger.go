// Package postgres provides a Postgres-backed processed-dataset ledger.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/catalog-profiler/internal/profiler"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "profiled_datasets"

// Config controls the Postgres connection pool used for ledger rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// Ledger stores one row per profiled dataset.
type Ledger struct {
	pool  pool
	table string
}

// New connects to Postgres, creating the ledger table if needed.
func New(ctx context.Context, cfg Config) (*Ledger, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("ledger.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	ledger, err := NewWithPool(p, cfg.Table)
	if err != nil {
		p.Close()
		return nil, err
	}
	if err := ledger.EnsureSchema(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return ledger, nil
}

// NewWithPool constructs a ledger from an existing pool (primarily for testing).
func NewWithPool(p pool, table string) (*Ledger, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Ledger{pool: p, table: table}, nil
}

// EnsureSchema creates the ledger table when absent.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	dataset_id   TEXT PRIMARY KEY,
	dataset_name TEXT NOT NULL,
	columns      INTEGER NOT NULL,
	run_id       TEXT NOT NULL,
	profiled_at  TIMESTAMPTZ NOT NULL
)`, l.table)
	if _, err := l.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create ledger table: %w", err)
	}
	return nil
}

// Processed loads every recorded dataset id.
func (l *Ledger) Processed(ctx context.Context) (profiler.IDSet, error) {
	rows, err := l.pool.Query(ctx, fmt.Sprintf("SELECT dataset_id FROM %s", l.table))
	if err != nil {
		return nil, profiler.NewError(profiler.KindLedgerFailure, "", fmt.Errorf("query ledger: %w", err))
	}
	defer rows.Close()

	set := profiler.NewIDSet()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, profiler.NewError(profiler.KindLedgerFailure, "", fmt.Errorf("scan ledger row: %w", err))
		}
		set.Add(profiler.DatasetID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, profiler.NewError(profiler.KindLedgerFailure, "", fmt.Errorf("iterate ledger: %w", err))
	}
	return set, nil
}

// Record inserts an entry; an already-recorded dataset is left untouched.
func (l *Ledger) Record(ctx context.Context, entry profiler.LedgerEntry) error {
	if entry.DatasetID == "" {
		return profiler.NewError(profiler.KindLedgerFailure, "", fmt.Errorf("dataset id is required"))
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	dataset_id,
	dataset_name,
	columns,
	run_id,
	profiled_at
) VALUES (
	$1,$2,$3,$4,$5
)
ON CONFLICT (dataset_id) DO NOTHING`, l.table)

	args := []any{
		entry.DatasetID.String(),
		entry.DatasetName,
		entry.Columns,
		entry.RunID,
		entry.ProfiledAt,
	}
	if _, err := l.pool.Exec(ctx, query, args...); err != nil {
		return profiler.NewError(profiler.KindLedgerFailure, entry.DatasetID, fmt.Errorf("insert ledger row: %w", err))
	}
	return nil
}

// Close releases the underlying pool resources.
func (l *Ledger) Close() error {
	if l == nil || l.pool == nil {
		return nil
	}
	l.pool.Close()
	return nil
}
