package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/askwhyharsh/nearhelp/internal/location"
)

type PostgresClient struct {
	db *sql.DB
}

func NewPostgresClient(ctx context.Context, connStr string) (*PostgresClient, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	client := &PostgresClient{db: db}

	// Initialize schema
	if err := client.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return client, nil
}

func (p *PostgresClient) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS stations (
		id SERIAL PRIMARY KEY,
		position INT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION NOT NULL CHECK (lat BETWEEN -90 AND 90),
		lon DOUBLE PRECISION NOT NULL CHECK (lon BETWEEN -180 AND 180),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

func (p *PostgresClient) Close() error {
	return p.db.Close()
}

// ListStations returns stations in catalog order.
func (p *PostgresClient) ListStations(ctx context.Context) ([]location.Station, error) {
	query := `
		SELECT name, address, lat, lon
		FROM stations
		ORDER BY position ASC
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	var stations []location.Station
	for rows.Next() {
		var s location.Station
		if err := rows.Scan(&s.Name, &s.Address, &s.Coordinate.Lat, &s.Coordinate.Lon); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		stations = append(stations, s)
	}

	return stations, rows.Err()
}

// SeedStations inserts stations when the table is empty. It reports whether
// anything was written.
func (p *PostgresClient) SeedStations(ctx context.Context, stations []location.Station) (bool, error) {
	var count int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stations`).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count stations: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO stations (position, name, address, lat, lon)
		VALUES ($1, $2, $3, $4, $5)
	`
	for i, s := range stations {
		if _, err := tx.ExecContext(ctx, query, i+1, s.Name, s.Address, s.Coordinate.Lat, s.Coordinate.Lon); err != nil {
			return false, fmt.Errorf("failed to seed station %q: %w", s.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit seed: %w", err)
	}
	return true, nil
}
