package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const directoryJSON = `[
	{"Company Name": "Ace Plumbing", "Primary Services": "Residential plumbing", "Category 1": "Plumber", "Phone Number": "555-0101", "Email": "ace@example.com", "Website": "https://ace.example.com"},
	{"Company Name": "Bright Electric", "Primary Services": "Electrical work", "Category 1": "Electrician"}
]`

func newFixtureServer(t *testing.T, fetches *atomic.Int32, failing *atomic.Bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(directoryJSON))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDirectoryServesCachedSnapshotInsideWindow(t *testing.T) {
	var fetches atomic.Int32
	var failing atomic.Bool
	srv := newFixtureServer(t, &fetches, &failing)

	svc := NewService(srv.URL, time.Minute, srv.Client())
	ctx := context.Background()

	first, err := svc.Directory(ctx)
	require.NoError(t, err)
	second, err := svc.Directory(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(1), fetches.Load(), "second call inside the window must not refetch")
	assert.Len(t, first, 2)
	assert.Equal(t, "Ace Plumbing", second[0].CompanyName)
	assert.Equal(t, []string{"Plumber"}, second[0].Categories())
}

func TestDirectoryRefetchesAfterExpiry(t *testing.T) {
	var fetches atomic.Int32
	var failing atomic.Bool
	srv := newFixtureServer(t, &fetches, &failing)

	svc := NewService(srv.URL, time.Minute, srv.Client())
	ctx := context.Background()

	_, err := svc.Directory(ctx)
	require.NoError(t, err)

	// Age the snapshot past the staleness window.
	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err = svc.Directory(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fetches.Load())
}

func TestDirectoryFailsWithoutCache(t *testing.T) {
	var fetches atomic.Int32
	var failing atomic.Bool
	failing.Store(true)
	srv := newFixtureServer(t, &fetches, &failing)

	svc := NewService(srv.URL, time.Minute, srv.Client())

	_, err := svc.Directory(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestDirectoryFailedRefetchKeepsExpiredCache(t *testing.T) {
	var fetches atomic.Int32
	var failing atomic.Bool
	srv := newFixtureServer(t, &fetches, &failing)

	svc := NewService(srv.URL, time.Minute, srv.Client())
	ctx := context.Background()

	_, err := svc.Directory(ctx)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	// Refetch fails: the error propagates, the old snapshot is not discarded.
	failing.Store(true)
	_, err = svc.Directory(ctx)
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	require.NotNil(t, svc.cache)
	assert.Len(t, svc.cache.records, 2)

	// Upstream recovers: the next caller succeeds and refreshes the snapshot.
	failing.Store(false)
	records, err := svc.Directory(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestDirectoryZeroTTLUsesDefault(t *testing.T) {
	svc := NewService("http://example.invalid", 0, nil)
	assert.Equal(t, DefaultCacheTTL, svc.ttl)
}
