package profiler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectCSVPicksFirstMatch(t *testing.T) {
	t.Parallel()

	resources := []Resource{
		{Format: "json", URL: "u1"},
		{Format: "csv", URL: "u2"},
		{Format: "csv", URL: "u3"},
	}
	got, err := SelectCSV("ds", resources)
	require.NoError(t, err)
	assert.Equal(t, "u2", got.URL)
}

func TestSelectCSVIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	got, err := SelectCSV("ds", []Resource{{Format: " CSV ", URL: "u1"}})
	require.NoError(t, err)
	assert.Equal(t, "u1", got.URL)
}

func TestSelectCSVSkipsResourcesWithoutURL(t *testing.T) {
	t.Parallel()

	got, err := SelectCSV("ds", []Resource{{Format: "csv"}, {Format: "Csv", URL: "u2"}})
	require.NoError(t, err)
	assert.Equal(t, "u2", got.URL)
}

func TestSelectCSVMissing(t *testing.T) {
	t.Parallel()

	_, err := SelectCSV("ds", []Resource{{Format: "json", URL: "u1"}, {Format: "xlsx", URL: "u2"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoCSVResource)
	assert.Equal(t, KindNoCSVResource, KindOf(err))
}

func TestErrorMatchesByKind(t *testing.T) {
	t.Parallel()

	cause := errors.New("status 404")
	err := fmt.Errorf("wrapped: %w", NewError(KindMetadataUnavailable, "abc", cause))

	assert.ErrorIs(t, err, ErrMetadataUnavailable)
	assert.NotErrorIs(t, err, ErrRecordsUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindMetadataUnavailable, KindOf(err))
	assert.Contains(t, err.Error(), "dataset abc")
	assert.Contains(t, err.Error(), "status 404")
}

func TestKindOfUnclassified(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind  Kind
		fatal bool
	}{
		{KindCatalogUnavailable, true},
		{KindReportWriteFailure, true},
		{KindLedgerFailure, true},
		{KindMetadataUnavailable, false},
		{KindNoCSVResource, false},
		{KindRecordsUnavailable, false},
		{KindSampleUnreadable, false},
		{KindSampleWriteFailure, false},
		{KindProfilingFailure, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.fatal, IsFatal(NewError(tt.kind, "x", nil)), string(tt.kind))
	}
	assert.False(t, IsFatal(errors.New("plain")))
}

func TestTableTruncate(t *testing.T) {
	t.Parallel()

	table := Table{Header: []string{"a"}, Rows: [][]string{{"1"}, {"2"}, {"3"}}}
	assert.Len(t, table.Truncate(2).Rows, 2)
	assert.Len(t, table.Truncate(5).Rows, 3)
	assert.Len(t, table.Truncate(0).Rows, 3)
	assert.Len(t, table.Rows, 3, "truncate must not mutate the receiver")
}

func TestIDSet(t *testing.T) {
	t.Parallel()

	set := NewIDSet("a", "b", "a")
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Has("a"))
	assert.False(t, set.Has("c"))
	set.Add("c")
	assert.True(t, set.Has("c"))
}

func TestSlotKey(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		prefix  string
		id      DatasetID
		want    string
		wantErr bool
	}{
		{"bare", "", "abc-123", "abc-123.csv", false},
		{"prefixed", "samples/", "abc", "samples/abc.csv", false},
		{"nested prefix", "/a/b/", "abc", "a/b/abc.csv", false},
		{"empty id", "", "", "", true},
		{"padded id", "", " abc", "", true},
		{"slash", "", "a/b", "", true},
		{"backslash", "", `a\b`, "", true},
		{"dot dot", "", "..", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := SlotKey(tc.prefix, tc.id)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrSampleWriteFailure)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWithID(t *testing.T) {
	t.Parallel()

	err := WithID(NewError(KindRecordsUnavailable, "", errors.New("status 404")), "ds-2")
	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, DatasetID("ds-2"), perr.ID)
	assert.ErrorIs(t, err, ErrRecordsUnavailable)
	assert.Equal(t, "records_unavailable: dataset ds-2: status 404", err.Error())

	kept := NewError(KindMetadataUnavailable, "ds-1", nil)
	assert.Same(t, kept, WithID(kept, "other"))

	plain := errors.New("plain")
	assert.Equal(t, plain, WithID(plain, "x"))
}
