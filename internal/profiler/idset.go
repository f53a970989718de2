package profiler

// IDSet tracks dataset identifiers already handled within one run.
type IDSet map[DatasetID]struct{}

// NewIDSet builds a set seeded with ids.
func NewIDSet(ids ...DatasetID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s IDSet) Has(id DatasetID) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id.
func (s IDSet) Add(id DatasetID) {
	s[id] = struct{}{}
}

// Len returns the number of members.
func (s IDSet) Len() int {
	return len(s)
}
