// Package hostblock refuses requests to configured hosts, such as resource
// mirrors known to hang or serve non-tabular content.
package hostblock

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/JakeFAU/catalog-profiler/internal/catalog"
)

// ErrBlocked is returned for requests to a blocked host.
var ErrBlocked = errors.New("host is blocked")

// Blocklist stores exact hosts and suffix wildcards ("*.example.com" or ".example.com").
type Blocklist struct {
	exact    map[string]struct{}
	suffixes []string
}

// New builds a Blocklist. It returns nil when patterns hold nothing usable;
// a nil Blocklist blocks nothing.
func New(patterns []string) *Blocklist {
	b := &Blocklist{exact: make(map[string]struct{})}
	for _, raw := range patterns {
		value := strings.TrimSpace(strings.ToLower(raw))
		switch {
		case value == "":
		case strings.HasPrefix(value, "*."):
			b.addSuffix(strings.TrimPrefix(value, "*."))
		case strings.HasPrefix(value, "."):
			b.addSuffix(strings.TrimPrefix(value, "."))
		default:
			b.exact[value] = struct{}{}
		}
	}
	if len(b.exact) == 0 && len(b.suffixes) == 0 {
		return nil
	}
	return b
}

func (b *Blocklist) addSuffix(suffix string) {
	if suffix == "" {
		return
	}
	for _, existing := range b.suffixes {
		if existing == suffix {
			return
		}
	}
	b.suffixes = append(b.suffixes, suffix)
}

// IsBlocked reports whether host matches an exact entry or a suffix.
func (b *Blocklist) IsBlocked(host string) bool {
	if b == nil {
		return false
	}
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" {
		return false
	}
	if _, exact := b.exact[host]; exact {
		return true
	}
	for _, suffix := range b.suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

// Fetcher rejects requests whose host is blocked before they reach next.
type Fetcher struct {
	next  catalog.Fetcher
	block *Blocklist
}

// Wrap returns next guarded by block. A nil Blocklist returns next unchanged.
func Wrap(next catalog.Fetcher, block *Blocklist) catalog.Fetcher {
	if block == nil {
		return next
	}
	return &Fetcher{next: next, block: block}
}

// Fetch delegates unless the request host is blocked.
func (f *Fetcher) Fetch(ctx context.Context, req catalog.Request) (catalog.Response, error) {
	u, err := url.Parse(req.URL)
	if err == nil && f.block.IsBlocked(u.Hostname()) {
		return catalog.Response{}, fmt.Errorf("%s: %w", u.Hostname(), ErrBlocked)
	}
	return f.next.Fetch(ctx, req)
}
