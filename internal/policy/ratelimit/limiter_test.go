package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/catalog-profiler/internal/catalog"
)

func TestLimiter_Wait(t *testing.T) {
	t.Parallel()

	// 10 RPS with burst 1: one token every 100ms.
	l := New(Config{DefaultRPS: 10, DefaultBurst: 1})
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://test.com/a"))
	if time.Since(start) > 50*time.Millisecond {
		t.Logf("warning: first wait took %v", time.Since(start))
	}

	start = time.Now()
	require.NoError(t, l.Wait(ctx, "https://test.com/b"))
	if dur := time.Since(start); dur < 80*time.Millisecond {
		t.Errorf("expected wait ~100ms, got %v", dur)
	}
}

func TestLimiter_DifferentHosts(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 1, DefaultBurst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://a.com/1"))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://b.com/1"))
	if time.Since(start) > 50*time.Millisecond {
		t.Errorf("host b blocked unexpectedly")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 50; i++ {
		require.NoError(t, l.Wait(ctx, "https://a.com"))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestLimiter_ContextCanceled(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 0.01, DefaultBurst: 1})
	require.NoError(t, l.Wait(context.Background(), "https://slow.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "https://slow.com"))
}

type recordingFetcher struct {
	urls []string
	err  error
}

func (r *recordingFetcher) Fetch(_ context.Context, req catalog.Request) (catalog.Response, error) {
	r.urls = append(r.urls, req.URL)
	return catalog.Response{URL: req.URL, StatusCode: 200}, r.err
}

func TestWrap(t *testing.T) {
	t.Parallel()

	next := &recordingFetcher{}
	assert.Same(t, next, Wrap(next, nil).(*recordingFetcher))

	wrapped := Wrap(next, New(Config{DefaultRPS: 100, DefaultBurst: 5}))
	resp, err := wrapped.Fetch(context.Background(), catalog.Request{URL: "https://a.com/x"})
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, []string{"https://a.com/x"}, next.urls)
}

func TestWrapStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	next := &recordingFetcher{err: errors.New("unreachable")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	limiter := New(Config{DefaultRPS: 0.01, DefaultBurst: 1})
	require.NoError(t, limiter.Wait(context.Background(), "https://a.com"))

	_, err := Wrap(next, limiter).Fetch(ctx, catalog.Request{URL: "https://a.com/y"})
	require.Error(t, err)
	assert.Empty(t, next.urls)
}
