package profiler

import (
	"strings"
	"time"
)

// DefaultSampleCap bounds the number of data rows kept per dataset sample.
const DefaultSampleCap = 100

// DatasetID is the opaque key a catalog issues for one dataset.
type DatasetID string

// String returns the raw identifier.
func (id DatasetID) String() string {
	return string(id)
}

// Resource describes one downloadable artifact attached to a dataset.
type Resource struct {
	Format string `json:"format"`
	URL    string `json:"url"`
}

// IsCSV reports whether the resource advertises a CSV format.
func (r Resource) IsCSV() bool {
	return strings.EqualFold(strings.TrimSpace(r.Format), "csv")
}

// DatasetMetadata is the per-dataset record returned by the catalog.
type DatasetMetadata struct {
	ID        DatasetID  `json:"id"`
	Title     string     `json:"title"`
	Resources []Resource `json:"resources"`
}

// Table is an in-memory delimited table: one header row plus data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// Truncate returns a copy of the table limited to at most n data rows.
// A non-positive n leaves the rows untouched.
func (t Table) Truncate(n int) Table {
	if n <= 0 || len(t.Rows) <= n {
		return t
	}
	return Table{Header: t.Header, Rows: t.Rows[:n]}
}

// ColumnStats is the per-column output of the inference model.
type ColumnStats struct {
	ColumnName    string   `json:"column_name"`
	DataType      string   `json:"data_type"`
	DataLabel     string   `json:"data_label"`
	Samples       []string `json:"samples"`
	NullCount     int      `json:"null_count"`
	DistinctCount int      `json:"distinct_count"`
}

// ColumnProfile is one report row: a column of a dataset with its predicted label.
type ColumnProfile struct {
	DatasetID   DatasetID `json:"dataset_id"`
	DatasetName string    `json:"dataset_name"`
	Column      string    `json:"column"`
	Prediction  string    `json:"prediction"`
	Samples     []string  `json:"samples"`
}

// Status is the terminal state of one acquisition attempt.
type Status string

// Acquisition status values.
const (
	StatusSkipped  Status = "skipped"
	StatusAcquired Status = "acquired"
	StatusFailed   Status = "failed"
)

// Outcome reports what happened to one dataset during a batch stage.
type Outcome struct {
	ID     DatasetID
	Status Status
	Err    error
	URI    string
	Rows   int
	Bytes  int
	Digest string
}

// LedgerEntry records that a dataset was profiled into the report.
type LedgerEntry struct {
	DatasetID   DatasetID
	DatasetName string
	Columns     int
	RunID       string
	ProfiledAt  time.Time
}

// ProfiledEvent is published after a dataset's rows reach the report.
type ProfiledEvent struct {
	RunID       string    `json:"run_id"`
	DatasetID   DatasetID `json:"dataset_id"`
	DatasetName string    `json:"dataset_name"`
	Columns     int       `json:"columns"`
	ReportPath  string    `json:"report_path"`
	ProfiledAt  time.Time `json:"profiled_at"`
}
