package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/i474232898/weather-explorer/internal/weather"
)

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects, pings and migrates the recent_locations table.
func OpenPostgres(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.migrate(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recent_locations (
			id UUID PRIMARY KEY,
			city_name TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_recent_locations_created_at ON recent_locations(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, loc weather.RecentLocation) error {
	loc = prepare(loc)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recent_locations(id, city_name, latitude, longitude, created_at) VALUES($1, $2, $3, $4, $5);`,
		loc.ID, loc.CityName, loc.Latitude, loc.Longitude, loc.CreatedAt)
	return err
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]weather.RecentLocation, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, city_name, latitude, longitude, created_at FROM recent_locations ORDER BY created_at DESC LIMIT $1;`,
		limitArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]weather.RecentLocation, 0)
	for rows.Next() {
		var loc weather.RecentLocation
		if err := rows.Scan(&loc.ID, &loc.CityName, &loc.Latitude, &loc.Longitude, &loc.CreatedAt); err != nil {
			return nil, err
		}
		loc.CreatedAt = loc.CreatedAt.UTC()
		out = append(out, loc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recent_locations WHERE created_at < $1;`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
