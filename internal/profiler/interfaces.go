package profiler

import (
	"context"
	"time"
)

// Catalog is the external dataset catalog.
type Catalog interface {
	Search(ctx context.Context, query string, rows int) ([]DatasetID, error)
	Package(ctx context.Context, id DatasetID) (DatasetMetadata, error)
	Records(ctx context.Context, resourceURL string, limit int) ([]byte, error)
}

// SampleStore holds one immutable sample slot per dataset.
type SampleStore interface {
	Exists(ctx context.Context, id DatasetID) (bool, error)
	// Create writes a new slot and fails if one already exists.
	Create(ctx context.Context, id DatasetID, data []byte) (string, error)
	Read(ctx context.Context, id DatasetID) ([]byte, error)
}

// Model is the statistical inference model that labels a table's columns.
type Model interface {
	Infer(ctx context.Context, table Table) ([]ColumnStats, error)
}

// ReportWriter appends profile rows to the durable report.
type ReportWriter interface {
	Append(rows []ColumnProfile) error
	Path() string
}

// Ledger persists which datasets have been profiled across runs.
type Ledger interface {
	Processed(ctx context.Context) (IDSet, error)
	Record(ctx context.Context, entry LedgerEntry) error
	Close() error
}

// Publisher pushes dataset events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests of stored samples.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
