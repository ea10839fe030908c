package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/upward-game/leaderboard/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS leaderboard (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	time       DOUBLE PRECISION NOT NULL CHECK (time >= 0),
	timestamp  BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS leaderboard_time_idx ON leaderboard (time);
`

// PgPool defines the interface for PostgreSQL connection pool
type PgPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// PostgresStore keeps the collection in a single table.
type PostgresStore struct {
	pg PgPool
}

// ConnectPostgres opens a pool and verifies it.
func ConnectPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return pool, nil
}

func NewPostgresStore(pg PgPool) *PostgresStore {
	return &PostgresStore{pg: pg}
}

// Migrate creates the table and index if they are missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pg.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate leaderboard: %w", err)
	}
	return nil
}

func (s *PostgresStore) Add(ctx context.Context, rec models.ScoreRecord) (string, error) {
	id := NewID()
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UTC().Unix()
	}

	_, err := s.pg.Exec(ctx,
		"INSERT INTO leaderboard (id, name, time, timestamp) VALUES ($1, $2, $3, $4)",
		id, rec.Name, rec.Time, rec.Timestamp)
	if err != nil {
		return "", fmt.Errorf("insert score: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 0 {
		limit = 0
	}
	rows, err := s.pg.Query(ctx,
		"SELECT id, name, time, timestamp FROM leaderboard ORDER BY time ASC, created_at ASC LIMIT $1",
		limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Record.Name, &e.Record.Time, &e.Record.Timestamp); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pg.Ping(ctx)
}
