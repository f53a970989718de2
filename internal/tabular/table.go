// Package tabular reads and writes the delimited-text samples exchanged between
// the acquisition and profiling stages.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/JakeFAU/catalog-profiler/internal/profiler"
)

// ErrNoHeader is returned when the input holds no header row.
var ErrNoHeader = errors.New("table has no header row")

// Parse reads a delimited table. The first record is the header; at most limit
// data rows are kept (limit <= 0 keeps everything). Ragged rows are kept as-is.
func Parse(data []byte, limit int) (profiler.Table, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return profiler.Table{}, ErrNoHeader
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return profiler.Table{}, ErrNoHeader
		}
		return profiler.Table{}, fmt.Errorf("read header: %w", err)
	}

	rows := make([][]string, 0, 64)
	for limit <= 0 || len(rows) < limit {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return profiler.Table{}, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, rec)
	}
	return profiler.Table{Header: header, Rows: rows}, nil
}

// Encode renders the table as CSV: header first, then each data row.
func Encode(t profiler.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("write rows: %w", err)
	}
	return buf.Bytes(), nil
}

// ToUTF8 returns data unchanged when it is valid UTF-8 and otherwise decodes it
// as Windows-1252, the usual encoding of legacy spreadsheet exports.
func ToUTF8(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		return data, nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode windows-1252: %w", err)
	}
	return out, nil
}
