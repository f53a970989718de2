// Package inference is the statistical column model used by the profiling
// engine. It types each column from its values and predicts a semantic label
// from value-pattern match rates, in the spirit of data-driven column
// classification: patterns are matched against column data, and the header is
// only consulted to break ties for patterns that collide with plain values.
package inference

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/JakeFAU/catalog-profiler/internal/profiler"
)

const (
	// DefaultSampleValues is how many representative values each column keeps.
	DefaultSampleValues = 5
	// DefaultMatchThreshold is the fraction of values a pattern must match.
	DefaultMatchThreshold = 0.8

	textMinWords        = 4.0
	categoryMaxDistinct = 0.5
)

// ErrNoColumns is returned for a table without a header.
var ErrNoColumns = errors.New("table has no columns")

// Config tunes the model.
type Config struct {
	SampleValues   int
	MatchThreshold float64
}

// Model implements profiler.Model.
type Model struct {
	cfg Config
}

// New constructs a Model, filling zero settings with defaults.
func New(cfg Config) *Model {
	if cfg.SampleValues <= 0 {
		cfg.SampleValues = DefaultSampleValues
	}
	if cfg.MatchThreshold <= 0 || cfg.MatchThreshold > 1 {
		cfg.MatchThreshold = DefaultMatchThreshold
	}
	return &Model{cfg: cfg}
}

// Infer returns one ColumnStats per header column, in header order.
func (m *Model) Infer(ctx context.Context, table profiler.Table) ([]profiler.ColumnStats, error) {
	if len(table.Header) == 0 {
		return nil, ErrNoColumns
	}
	stats := make([]profiler.ColumnStats, 0, len(table.Header))
	for col, name := range table.Header {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("inference canceled: %w", err)
		}
		stats = append(stats, m.column(columnName(name, col), columnValues(table.Rows, col)))
	}
	return stats, nil
}

func (m *Model) column(name string, cells []string) profiler.ColumnStats {
	values := make([]string, 0, len(cells))
	distinct := make(map[string]struct{}, len(cells))
	samples := make([]string, 0, m.cfg.SampleValues)
	nulls := 0
	for _, c := range cells {
		v := strings.TrimSpace(c)
		if v == "" {
			nulls++
			continue
		}
		values = append(values, v)
		if _, seen := distinct[v]; seen {
			continue
		}
		distinct[v] = struct{}{}
		if len(samples) < m.cfg.SampleValues {
			samples = append(samples, v)
		}
	}

	dataType := inferType(values)
	return profiler.ColumnStats{
		ColumnName:    name,
		DataType:      dataType,
		DataLabel:     m.label(name, dataType, values, len(distinct)),
		Samples:       samples,
		NullCount:     nulls,
		DistinctCount: len(distinct),
	}
}

func (m *Model) label(header, dataType string, values []string, distinct int) string {
	if len(values) == 0 {
		return LabelUnknown
	}
	for _, rule := range valueRules {
		if len(rule.hints) > 0 && !headerMentions(header, rule.hints) {
			continue
		}
		if matchRate(values, rule.match) >= m.cfg.MatchThreshold {
			return rule.label
		}
	}

	switch dataType {
	case TypeDatetime:
		return LabelDatetime
	case TypeDate:
		return LabelDate
	case TypeBoolean:
		return LabelBoolean
	case TypeInteger:
		if isSequentialID(values) {
			return LabelID
		}
		return LabelInteger
	case TypeFloat:
		return LabelFloat
	}

	if averageWords(values) >= textMinWords {
		return LabelText
	}
	if float64(distinct)/float64(len(values)) <= categoryMaxDistinct {
		return LabelCategory
	}
	return LabelText
}

// isSequentialID reports whether integer values are unique and strictly increasing.
func isSequentialID(values []string) bool {
	if len(values) < 2 {
		return false
	}
	prev, err := strconv.ParseInt(stripThousands(values[0]), 10, 64)
	if err != nil {
		return false
	}
	for _, v := range values[1:] {
		n, err := strconv.ParseInt(stripThousands(v), 10, 64)
		if err != nil || n <= prev {
			return false
		}
		prev = n
	}
	return true
}

func averageWords(values []string) float64 {
	total := 0
	for _, v := range values {
		total += len(strings.Fields(v))
	}
	return float64(total) / float64(len(values))
}

// columnValues returns cell col of every row; short rows contribute a blank.
func columnValues(rows [][]string, col int) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		if col < len(r) {
			out[i] = r[col]
		}
	}
	return out
}

// columnName trims a header and names blank ones by position.
func columnName(raw string, col int) string {
	name := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
	if name == "" {
		return "column_" + strconv.Itoa(col+1)
	}
	return name
}
