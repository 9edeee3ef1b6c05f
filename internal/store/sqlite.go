package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/i474232898/weather-explorer/internal/weather"
)

// SQLiteStore implements Store on a local sqlite file (pure Go driver).
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set WAL mode: %w", err)
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recent_locations (
			id TEXT PRIMARY KEY,
			city_name TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_recent_locations_created_at ON recent_locations(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: migrate: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Record(ctx context.Context, loc weather.RecentLocation) error {
	loc = prepare(loc)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recent_locations(id, city_name, latitude, longitude, created_at) VALUES(?,?,?,?,?)`,
		loc.ID, loc.CityName, loc.Latitude, loc.Longitude, loc.CreatedAt.UnixNano())
	return err
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]weather.RecentLocation, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, city_name, latitude, longitude, created_at FROM recent_locations ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]weather.RecentLocation, 0)
	for rows.Next() {
		var (
			loc weather.RecentLocation
			ns  int64
		)
		if err := rows.Scan(&loc.ID, &loc.CityName, &loc.Latitude, &loc.Longitude, &ns); err != nil {
			return nil, err
		}
		loc.CreatedAt = time.Unix(0, ns).UTC()
		out = append(out, loc)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recent_locations WHERE created_at < ?`, cutoff.UTC().UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
