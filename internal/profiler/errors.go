package profiler

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures.
type Kind string

// Failure kinds. CatalogUnavailable, ReportWriteFailure and LedgerFailure are fatal
// to a run; the rest only skip the affected dataset.
const (
	KindCatalogUnavailable  Kind = "catalog_unavailable"
	KindMetadataUnavailable Kind = "metadata_unavailable"
	KindNoCSVResource       Kind = "no_csv_resource"
	KindRecordsUnavailable  Kind = "records_unavailable"
	KindSampleUnreadable    Kind = "sample_unreadable"
	KindSampleWriteFailure  Kind = "sample_write_failure"
	KindProfilingFailure    Kind = "profiling_failure"
	KindReportWriteFailure  Kind = "report_write_failure"
	KindLedgerFailure       Kind = "ledger_failure"
)

// Sentinels for errors.Is comparisons by kind.
var (
	ErrCatalogUnavailable  = &Error{Kind: KindCatalogUnavailable}
	ErrMetadataUnavailable = &Error{Kind: KindMetadataUnavailable}
	ErrNoCSVResource       = &Error{Kind: KindNoCSVResource}
	ErrRecordsUnavailable  = &Error{Kind: KindRecordsUnavailable}
	ErrSampleUnreadable    = &Error{Kind: KindSampleUnreadable}
	ErrSampleWriteFailure  = &Error{Kind: KindSampleWriteFailure}
	ErrProfilingFailure    = &Error{Kind: KindProfilingFailure}
	ErrReportWriteFailure  = &Error{Kind: KindReportWriteFailure}
	ErrLedgerFailure       = &Error{Kind: KindLedgerFailure}
)

// ErrSampleNotFound is returned by sample stores when a slot is absent.
var ErrSampleNotFound = errors.New("sample not found")

// ErrSampleExists is returned by sample stores when a slot is already present.
var ErrSampleExists = errors.New("sample already exists")

// Error is a classified pipeline failure for one dataset (or the whole run).
type Error struct {
	Kind Kind
	ID   DatasetID
	Err  error
}

// NewError wraps err with a kind and the dataset it concerns.
func NewError(kind Kind, id DatasetID, err error) *Error {
	return &Error{Kind: kind, ID: id, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.ID != "" {
		msg = fmt.Sprintf("%s: dataset %s", msg, e.ID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the failure kind carried by err, or "" when unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindCatalogUnavailable, KindReportWriteFailure, KindLedgerFailure:
		return true
	default:
		return false
	}
}

// WithID attaches id to a classified error that was raised without one, such as
// a resource download that only knew its URL. Other errors are returned as-is.
func WithID(err error, id DatasetID) error {
	var e *Error
	if !errors.As(err, &e) || e.ID != "" {
		return err
	}
	return &Error{Kind: e.Kind, ID: id, Err: e.Err}
}
