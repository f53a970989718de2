package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/JakeFAU/catalog-profiler/internal/profiler"
)

// envelope is the CKAN action API response wrapper.
type envelope struct {
	Success *bool           `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *actionError    `json:"error,omitempty"`
}

type actionError struct {
	Type    string `json:"__type"`
	Message string `json:"message"`
}

type searchResult struct {
	Count   int             `json:"count"`
	Results []searchPackage `json:"results"`
}

type searchPackage struct {
	ID string `json:"id"`
}

type packageResult struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Resources []packageResource `json:"resources"`
}

type packageResource struct {
	Format string `json:"format"`
	URL    string `json:"url"`
}

func decodeEnvelope(body []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Success != nil && !*env.Success {
		if env.Error != nil {
			return nil, fmt.Errorf("action failed: %s: %s", env.Error.Type, env.Error.Message)
		}
		return nil, errors.New("action failed")
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return nil, errors.New("response has no result")
	}
	return env.Result, nil
}

func decodeSearch(body []byte) ([]profiler.DatasetID, error) {
	raw, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}
	var res searchResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode search result: %w", err)
	}
	if res.Results == nil {
		return nil, errors.New("search result has no results list")
	}
	ids := make([]profiler.DatasetID, 0, len(res.Results))
	for i, pkg := range res.Results {
		id := strings.TrimSpace(pkg.ID)
		if id == "" {
			return nil, fmt.Errorf("search result %d has no id", i)
		}
		ids = append(ids, profiler.DatasetID(id))
	}
	return ids, nil
}

func decodePackage(id profiler.DatasetID, body []byte) (profiler.DatasetMetadata, error) {
	raw, err := decodeEnvelope(body)
	if err != nil {
		return profiler.DatasetMetadata{}, err
	}
	var pkg packageResult
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return profiler.DatasetMetadata{}, fmt.Errorf("decode package: %w", err)
	}
	meta := profiler.DatasetMetadata{
		ID:        id,
		Title:     pkg.Title,
		Resources: make([]profiler.Resource, 0, len(pkg.Resources)),
	}
	for _, r := range pkg.Resources {
		meta.Resources = append(meta.Resources, profiler.Resource{Format: r.Format, URL: r.URL})
	}
	return meta, nil
}
