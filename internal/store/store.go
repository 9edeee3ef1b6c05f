package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-explorer/internal/weather"
)

// Store persists the recent-locations log.
type Store interface {
	Record(ctx context.Context, loc weather.RecentLocation) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]weather.RecentLocation, error)
	// Prune deletes entries created before cutoff and reports how many were removed.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}

// Options selects and configures a Store implementation.
type Options struct {
	DatabaseURL string // postgres connection string
	SQLitePath  string
	MaxHistory  int           // memory store only; <= 0 is unlimited
	MaxAge      time.Duration // memory store only; <= 0 is unlimited
}

// Open returns a postgres store when DatabaseURL is set, else a sqlite store
// when SQLitePath is set, else an in-memory store.
func Open(ctx context.Context, opts Options) (Store, string, error) {
	switch {
	case opts.DatabaseURL != "":
		s, err := OpenPostgres(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, "", err
		}
		return s, "postgres", nil
	case opts.SQLitePath != "":
		s, err := OpenSQLite(ctx, opts.SQLitePath)
		if err != nil {
			return nil, "", err
		}
		return s, "sqlite", nil
	default:
		return NewMemoryStore(opts.MaxHistory, opts.MaxAge), "memory", nil
	}
}

// prepare fills in the ID and timestamp of a new entry.
func prepare(loc weather.RecentLocation) weather.RecentLocation {
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now()
	}
	loc.CreatedAt = loc.CreatedAt.UTC()
	return loc
}
