package profiler

import (
	"fmt"
	"path"
	"strings"
)

// SlotExt is the file extension of stored samples.
const SlotExt = ".csv"

// SlotName returns the object name of the sample slot for id. Identifiers that
// could escape a directory or bucket prefix are rejected.
func SlotName(id DatasetID) (string, error) {
	raw := strings.TrimSpace(id.String())
	if raw == "" || raw != id.String() {
		return "", NewError(KindSampleWriteFailure, id, fmt.Errorf("identifier %q cannot name a slot", id))
	}
	if strings.ContainsAny(raw, `/\`) || strings.Contains(raw, "..") {
		return "", NewError(KindSampleWriteFailure, id, fmt.Errorf("identifier %q cannot name a slot", id))
	}
	return raw + SlotExt, nil
}

// SlotKey joins an optional prefix with the slot name using forward slashes.
func SlotKey(prefix string, id DatasetID) (string, error) {
	name, err := SlotName(id)
	if err != nil {
		return "", err
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name, nil
	}
	return path.Join(prefix, name), nil
}
