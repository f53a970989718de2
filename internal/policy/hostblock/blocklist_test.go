package hostblock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/catalog-profiler/internal/catalog"
	"github.com/JakeFAU/catalog-profiler/internal/profiler"
)

func TestBlocklist(t *testing.T) {
	t.Run("exact match", func(t *testing.T) {
		bl := New([]string{"Example.org "})
		if bl == nil {
			t.Fatalf("expected blocklist to be created")
		}
		if !bl.IsBlocked("example.org") {
			t.Fatalf("expected example.org to be blocked")
		}
		if bl.IsBlocked("sub.example.org") {
			t.Fatalf("did not expect subdomains to match exact entry")
		}
	})

	t.Run("wildcard suffix", func(t *testing.T) {
		bl := New([]string{"*.ru", ".internal", "*.ru"})
		if bl == nil {
			t.Fatalf("expected blocklist to be created")
		}
		assert.Len(t, bl.suffixes, 2)
		cases := []struct {
			host    string
			blocked bool
		}{
			{"example.ru", true},
			{"sub.domain.ru", true},
			{"ru", true},
			{"files.internal", true},
			{"example.com", false},
			{"", false},
		}
		for _, tc := range cases {
			if got := bl.IsBlocked(tc.host); got != tc.blocked {
				t.Fatalf("host %q blocked=%v, want %v", tc.host, got, tc.blocked)
			}
		}
	})

	t.Run("nil blocklist", func(t *testing.T) {
		var bl *Blocklist
		if bl.IsBlocked("anything") {
			t.Fatalf("nil blocklist should never block")
		}
		if New([]string{" ", "*."}) != nil {
			t.Fatalf("expected nil blocklist for empty patterns")
		}
	})
}

type okFetcher struct{ calls int }

func (f *okFetcher) Fetch(_ context.Context, req catalog.Request) (catalog.Response, error) {
	f.calls++
	return catalog.Response{URL: req.URL, StatusCode: 200, Body: []byte("a\n1\n")}, nil
}

func TestWrapBlocksResourceDownloads(t *testing.T) {
	t.Parallel()

	next := &okFetcher{}
	fetcher := Wrap(next, New([]string{"*.slow-mirror.example"}))

	_, err := fetcher.Fetch(context.Background(), catalog.Request{URL: "https://files.slow-mirror.example/a.csv"})
	require.ErrorIs(t, err, ErrBlocked)
	assert.Equal(t, 0, next.calls)

	client, err := catalog.NewClient(fetcher, catalog.Config{BaseURL: "https://catalog.example"}, nil)
	require.NoError(t, err)

	_, err = client.Records(context.Background(), "https://files.slow-mirror.example/a.csv", 100)
	assert.ErrorIs(t, err, profiler.ErrRecordsUnavailable)
	assert.ErrorIs(t, err, ErrBlocked)

	body, err := client.Records(context.Background(), "https://ok.example/a.csv", 100)
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n", string(body))
	assert.Equal(t, 1, next.calls)
}

func TestWrapNilBlocklist(t *testing.T) {
	t.Parallel()

	next := &okFetcher{}
	assert.Same(t, next, Wrap(next, nil).(*okFetcher))
}
