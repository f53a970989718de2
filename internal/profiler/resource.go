package profiler

import "strings"

// SelectCSV returns the first CSV resource that carries a download URL.
func SelectCSV(id DatasetID, resources []Resource) (Resource, error) {
	for _, r := range resources {
		if r.IsCSV() && strings.TrimSpace(r.URL) != "" {
			return r, nil
		}
	}
	return Resource{}, NewError(KindNoCSVResource, id, nil)
}
