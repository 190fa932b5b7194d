// Package directory fetches the external business directory and serves cached
// snapshots with a fixed staleness window. Refresh is purely demand-driven:
// the first caller after expiry pays for the refetch, everyone else inside the
// window reads the cached snapshot at zero network cost.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"shoplocal-backend/internal/models"
)

// ErrUpstreamUnavailable is returned when the directory service cannot be
// reached and no valid cached snapshot exists.
var ErrUpstreamUnavailable = errors.New("directory service unavailable")

// DefaultCacheTTL is how long a fetched snapshot remains valid.
const DefaultCacheTTL = 5 * time.Minute

// snapshot pairs a fetched business list with its fetch time. It is replaced
// as a whole (swap, not in-place mutation) so readers never observe a
// partially updated list.
type snapshot struct {
	records   []models.BusinessRecord
	fetchedAt time.Time
}

// Service caches the external business directory.
type Service struct {
	url    string
	ttl    time.Duration
	client *http.Client

	mu    sync.Mutex
	cache *snapshot // nil until the first successful fetch
	now   func() time.Time
}

// NewService creates a directory service for the given endpoint URL.
// A zero ttl falls back to DefaultCacheTTL.
func NewService(url string, ttl time.Duration, client *http.Client) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Service{
		url:    url,
		ttl:    ttl,
		client: client,
		now:    time.Now,
	}
}

// Directory returns the current business list, from cache when it is still
// inside the staleness window, otherwise via exactly one refetch. A failed
// refetch propagates the error and leaves any existing (expired) cache
// untouched so the next caller can retry.
func (s *Service) Directory(ctx context.Context) ([]models.BusinessRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache != nil && s.now().Sub(s.cache.fetchedAt) < s.ttl {
		return s.cache.records, nil
	}

	records, err := s.fetch(ctx)
	if err != nil {
		log.Printf("WARN [Directory] Fetch failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	// Replace only on success; the old snapshot stays usable until then.
	s.cache = &snapshot{records: records, fetchedAt: s.now()}
	log.Printf("[Directory] Refreshed snapshot with %d businesses", len(records))

	return records, nil
}

func (s *Service) fetch(ctx context.Context) ([]models.BusinessRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build directory request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory service returned status %d", resp.StatusCode)
	}

	var records []models.BusinessRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode directory response: %w", err)
	}

	return records, nil
}
