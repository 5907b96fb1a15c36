// Package popstore provides the persistent implementation of
// population.SnapshotStore. Snapshots are stored append-only; "get
// latest" is an ORDER BY fetched_at read. Running without this store
// is fine; the engine falls back to in-memory caching.
package popstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slabworth/compengine/internal/model"
	"github.com/slabworth/compengine/internal/population"
)

const schema = `
CREATE TABLE IF NOT EXISTS population_snapshots (
    id         BIGSERIAL PRIMARY KEY,
    card_key   TEXT        NOT NULL,
    snapshot   JSONB       NOT NULL,
    fetched_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pop_snapshots_key
    ON population_snapshots (card_key, fetched_at DESC);
`

// PostgresStore persists population snapshots in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect creates a pooled store and ensures the schema exists.
func Connect(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Latest returns the most recent snapshot for the request, or nil when
// none has been saved.
func (s *PostgresStore) Latest(ctx context.Context, req population.Request) (*model.PopulationSnapshot, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT snapshot FROM population_snapshots
		 WHERE card_key = $1
		 ORDER BY fetched_at DESC
		 LIMIT 1`,
		req.Key(),
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}

	var snap model.PopulationSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Save appends a new snapshot row.
func (s *PostgresStore) Save(ctx context.Context, req population.Request, snap *model.PopulationSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO population_snapshots (card_key, snapshot, fetched_at)
		 VALUES ($1, $2, $3)`,
		req.Key(), raw, snap.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
