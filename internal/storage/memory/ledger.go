package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/catalog-profiler/internal/profiler"
)

// Ledger records profiled datasets for the lifetime of the process.
type Ledger struct {
	mu      sync.RWMutex
	entries []profiler.LedgerEntry
	seen    profiler.IDSet
}

// NewLedger constructs an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: profiler.NewIDSet()}
}

// Processed returns a snapshot of recorded identifiers.
func (l *Ledger) Processed(_ context.Context) (profiler.IDSet, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := profiler.NewIDSet()
	for id := range l.seen {
		out.Add(id)
	}
	return out, nil
}

// Record stores an entry. Re-recording an identifier is a no-op.
func (l *Ledger) Record(_ context.Context, entry profiler.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen.Has(entry.DatasetID) {
		return nil
	}
	l.seen.Add(entry.DatasetID)
	l.entries = append(l.entries, entry)
	return nil
}

// Entries returns a copy of all recorded entries in insertion order.
func (l *Ledger) Entries() []profiler.LedgerEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]profiler.LedgerEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Close is a no-op.
func (l *Ledger) Close() error {
	return nil
}
