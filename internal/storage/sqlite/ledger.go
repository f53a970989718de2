// Package sqlite provides a file-backed processed-dataset ledger on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JakeFAU/catalog-profiler/internal/profiler"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "profiled_datasets"

// Ledger stores one row per profiled dataset. Timestamps are kept as
// RFC3339Nano text since SQLite has no native timestamp type.
type Ledger struct {
	db    *sql.DB
	table string
}

// Open opens (or creates) the database at dsn and ensures the ledger table.
func Open(ctx context.Context, dsn, table string) (*Ledger, error) {
	if dsn == "" {
		return nil, fmt.Errorf("ledger.dsn is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	// Single writer; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	l := &Ledger{db: db, table: table}
	if err := l.ensureTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	dataset_id   TEXT PRIMARY KEY,
	dataset_name TEXT NOT NULL,
	columns      INTEGER NOT NULL,
	run_id       TEXT NOT NULL,
	profiled_at  TEXT NOT NULL
)`, l.table)
	if _, err := l.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", l.table, err)
	}
	return nil
}

// Processed loads every recorded dataset id.
func (l *Ledger) Processed(ctx context.Context) (profiler.IDSet, error) {
	rows, err := l.db.QueryContext(ctx, fmt.Sprintf("SELECT dataset_id FROM %s", l.table))
	if err != nil {
		return nil, profiler.NewError(profiler.KindLedgerFailure, "", fmt.Errorf("query ledger: %w", err))
	}
	defer func() {
		_ = rows.Close()
	}()

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

// Record inserts an entry. INSERT OR IGNORE keeps the first record of a dataset.
func (l *Ledger) Record(ctx context.Context, entry profiler.LedgerEntry) error {
	if entry.DatasetID == "" {
		return profiler.NewError(profiler.KindLedgerFailure, "", fmt.Errorf("dataset id is required"))
	}
	query := fmt.Sprintf(
		"INSERT OR IGNORE INTO %s (dataset_id, dataset_name, columns, run_id, profiled_at) VALUES (?, ?, ?, ?, ?)",
		l.table,
	)
	_, err := l.db.ExecContext(ctx, query,
		entry.DatasetID.String(),
		entry.DatasetName,
		entry.Columns,
		entry.RunID,
		entry.ProfiledAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return profiler.NewError(profiler.KindLedgerFailure, entry.DatasetID, fmt.Errorf("insert ledger row: %w", err))
	}
	return nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}
