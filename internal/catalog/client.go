// Package catalog talks to a CKAN-style dataset catalog: searching for dataset
// identifiers, reading package metadata, and downloading bounded record samples.
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-profiler/internal/metrics"
	"github.com/JakeFAU/catalog-profiler/internal/profiler"
)

const (
	searchPath  = "/api/3/action/package_search"
	packagePath = "/api/3/action/package_show"

	// DefaultLimitParam is the query parameter that asks a resource endpoint for a row prefix.
	DefaultLimitParam = "limit"
)

// Config configures the catalog client.
type Config struct {
	BaseURL    string
	LimitParam string
}

// Client implements profiler.Catalog over the CKAN action API.
type Client struct {
	fetcher    Fetcher
	baseURL    *url.URL
	limitParam string
	logger     *zap.Logger
}

// NewClient constructs a Client.
func NewClient(fetcher Fetcher, cfg Config, logger *zap.Logger) (*Client, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse catalog base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("catalog base url %q must be absolute", cfg.BaseURL)
	}
	limitParam := cfg.LimitParam
	if limitParam == "" {
		limitParam = DefaultLimitParam
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		fetcher:    fetcher,
		baseURL:    base,
		limitParam: limitParam,
		logger:     logger,
	}, nil
}

// Search returns up to rows dataset identifiers in catalog order.
func (c *Client) Search(ctx context.Context, query string, rows int) ([]profiler.DatasetID, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("rows", strconv.Itoa(rows))
	target := c.endpoint(searchPath, q)

	resp, err := c.get(ctx, "search", target)
	if err != nil {
		return nil, profiler.NewError(profiler.KindCatalogUnavailable, "", err)
	}
	if !resp.OK() {
		return nil, profiler.NewError(profiler.KindCatalogUnavailable, "", fmt.Errorf("status %d", resp.StatusCode))
	}
	ids, err := decodeSearch(resp.Body)
	if err != nil {
		return nil, profiler.NewError(profiler.KindCatalogUnavailable, "", err)
	}
	return ids, nil
}

// Package fetches the metadata record for one dataset.
func (c *Client) Package(ctx context.Context, id profiler.DatasetID) (profiler.DatasetMetadata, error) {
	q := url.Values{}
	q.Set("id", id.String())
	target := c.endpoint(packagePath, q)

	resp, err := c.get(ctx, "package", target)
	if err != nil {
		return profiler.DatasetMetadata{}, profiler.NewError(profiler.KindMetadataUnavailable, id, err)
	}
	if !resp.OK() {
		return profiler.DatasetMetadata{}, profiler.NewError(
			profiler.KindMetadataUnavailable, id, fmt.Errorf("status %d", resp.StatusCode))
	}
	meta, err := decodePackage(id, resp.Body)
	if err != nil {
		return profiler.DatasetMetadata{}, profiler.NewError(profiler.KindMetadataUnavailable, id, err)
	}
	return meta, nil
}

// Records downloads a resource, asking the server for at most limit rows.
func (c *Client) Records(ctx context.Context, resourceURL string, limit int) ([]byte, error) {
	target, err := WithRowLimit(resourceURL, c.limitParam, limit)
	if err != nil {
		return nil, profiler.NewError(profiler.KindRecordsUnavailable, "", err)
	}
	resp, err := c.get(ctx, "records", target)
	if err != nil {
		return nil, profiler.NewError(profiler.KindRecordsUnavailable, "", err)
	}
	if !resp.OK() {
		return nil, profiler.NewError(profiler.KindRecordsUnavailable, "", fmt.Errorf("status %d", resp.StatusCode))
	}
	return resp.Body, nil
}

// WithRowLimit merges param=limit into the URL's query, keeping existing parameters.
func WithRowLimit(rawURL, param string, limit int) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse resource url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("resource url %q must be absolute", rawURL)
	}
	if limit <= 0 || param == "" {
		return u.String(), nil
	}
	q := u.Query()
	q.Set(param, strconv.Itoa(limit))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) get(ctx context.Context, endpoint, target string) (Response, error) {
	resp, err := c.fetcher.Fetch(ctx, Request{URL: target})
	if err != nil {
		metrics.ObserveFetch(endpoint, 0, 0)
		c.logger.Debug("catalog fetch failed", zap.String("endpoint", endpoint), zap.String("url", target), zap.Error(err))
		return Response{}, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	metrics.ObserveFetch(endpoint, resp.StatusCode, resp.Duration)
	c.logger.Debug("catalog fetch",
		zap.String("endpoint", endpoint),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", resp.Duration),
	)
	return resp, nil
}
