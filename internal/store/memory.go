package store

import (
	"context"
	"sync"
	"time"

	"github.com/i474232898/weather-explorer/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory recent-locations log.
type MemoryStore struct {
	mu sync.RWMutex

	// oldest first
	entries []weather.RecentLocation

	// retention configuration
	maxHistory int           // max number of entries kept
	maxAge     time.Duration // optional max age for entries
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// Record appends an entry and enforces retention.
func (s *MemoryStore) Record(_ context.Context, loc weather.RecentLocation) error {
	loc = prepare(loc)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, loc)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.entries) > s.maxHistory {
		over := len(s.entries) - s.maxHistory
		s.entries = append([]weather.RecentLocation(nil), s.entries[over:]...)
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		s.pruneLocked(time.Now().Add(-s.maxAge))
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *MemoryStore) Recent(_ context.Context, limit int) ([]weather.RecentLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}

	out := make([]weather.RecentLocation, 0, limit)
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// Prune removes entries created before cutoff.
func (s *MemoryStore) Prune(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(cutoff), nil
}

func (s *MemoryStore) pruneLocked(cutoff time.Time) int {
	i := 0
	for ; i < len(s.entries); i++ {
		if !s.entries[i].CreatedAt.Before(cutoff) {
			break
		}
	}
	if i > 0 {
		s.entries = append([]weather.RecentLocation(nil), s.entries[i:]...)
	}
	return i
}

func (s *MemoryStore) Close() error { return nil }
