// Package report maintains the cumulative, append-only profile report.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/JakeFAU/catalog-profiler/internal/metrics"
	"github.com/JakeFAU/catalog-profiler/internal/profiler"
)

// Header is the report's column row, written once when the file is created.
var Header = []string{"Dataset ID", "Dataset Name", "Column", "Prediction", "Sample"}

// Writer appends ColumnProfile rows to a CSV file. Rows already in the file
// are never rewritten; each Append is flushed and synced before returning.
type Writer struct {
	mu   sync.Mutex
	path string
}

// NewWriter returns a Writer for path. The file is created on first Append.
func NewWriter(path string) (*Writer, error) {
	if path == "" {
		return nil, fmt.Errorf("report path is required")
	}
	return &Writer{path: path}, nil
}

// Path returns the report location.
func (w *Writer) Path() string {
	return w.path
}

// Append writes rows, preceded by the header when the file is new or empty.
// Any failure is a ReportWriteFailure.
func (w *Writer) Append(rows []profiler.ColumnProfile) error {
	if len(rows) == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.append(rows); err != nil {
		return profiler.NewError(profiler.KindReportWriteFailure, rows[0].DatasetID, err)
	}
	metrics.ObserveReportRows(len(rows))
	return nil
}

func (w *Writer) append(rows []profiler.ColumnProfile) (err error) {
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	// #nosec G304 -- path is operator configuration.
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open report: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close report: %w", closeErr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat report: %w", err)
	}
	size, err := repairTail(f, info.Size())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if size == 0 {
		if err := cw.Write(Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, r := range rows {
		rec, err := record(r)
		if err != nil {
			return err
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync report: %w", err)
	}
	return nil
}

// repairTail makes sure the next write starts on a fresh line. A report left
// without a trailing newline by an interrupted append either ends in a whole
// record, which gets its newline, or in a partial one, which is cut back to
// the end of the last whole record. It returns the resulting size.
func repairTail(f *os.File, size int64) (int64, error) {
	if size == 0 {
		return 0, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return 0, fmt.Errorf("read report tail: %w", err)
	}
	if last[0] == '\n' {
		return size, nil
	}

	good, err := lastRecordEnd(io.NewSectionReader(f, 0, size))
	if err != nil {
		return 0, err
	}
	if good == size {
		if _, err := f.Write([]byte{'\n'}); err != nil {
			return 0, fmt.Errorf("terminate last row: %w", err)
		}
		return size + 1, nil
	}
	if err := f.Truncate(good); err != nil {
		return 0, fmt.Errorf("truncate partial row: %w", err)
	}
	return good, nil
}

// lastRecordEnd returns the offset just past the last complete record. A data
// row is complete only when its Sample field is valid JSON.
func lastRecordEnd(r io.Reader) (int64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)
	cr.ReuseRecord = true
	var good int64
	for n := 0; ; n++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return good, nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return good, nil
		}
		if err != nil {
			return 0, fmt.Errorf("scan report: %w", err)
		}
		if n > 0 && !json.Valid([]byte(rec[len(rec)-1])) {
			return good, nil
		}
		good = cr.InputOffset()
	}
}

func record(r profiler.ColumnProfile) ([]string, error) {
	samples := r.Samples
	if samples == nil {
		samples = []string{}
	}
	encoded, err := json.Marshal(samples)
	if err != nil {
		return nil, fmt.Errorf("encode samples: %w", err)
	}
	return []string{r.DatasetID.String(), r.DatasetName, r.Column, r.Prediction, string(encoded)}, nil
}
