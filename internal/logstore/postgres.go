package logstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the meal-log table. Items and totals are stored as JSONB
// snapshots; the table is append-only from this service's point of view.
const Schema = `
CREATE TABLE IF NOT EXISTS nutrition_logs (
    id         UUID        PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id    TEXT        NOT NULL,
    logged_at  TIMESTAMPTZ NOT NULL,
    meal_type  TEXT        NOT NULL,
    transcript TEXT        NOT NULL DEFAULT '',
    items      JSONB       NOT NULL,
    totals     JSONB       NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS nutrition_logs_user_logged_at_idx
    ON nutrition_logs (user_id, logged_at);
`

// DB is the narrow slice of pgx this store needs. *pgxpool.Pool satisfies
// it; tests substitute a recorder.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

var _ DB = (*pgxpool.Pool)(nil)

// PostgresStore persists meal entries to the nutrition_logs table.
type PostgresStore struct {
	db DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore returns a store over db.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the table schema. Safe to run on every startup.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("logstore: migrate: %w", err)
	}
	return nil
}

// Insert writes one meal entry.
func (s *PostgresStore) Insert(ctx context.Context, entry Entry) error {
	items, err := json.Marshal(entry.Items)
	if err != nil {
		return fmt.Errorf("logstore: marshal items: %w", err)
	}
	if entry.Items == nil {
		items = []byte("[]")
	}
	totals, err := json.Marshal(entry.Totals)
	if err != nil {
		return fmt.Errorf("logstore: marshal totals: %w", err)
	}

	const q = `INSERT INTO nutrition_logs (user_id, logged_at, meal_type, transcript, items, totals)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.db.Exec(ctx, q,
		entry.UserID, entry.LoggedAt, entry.MealType, entry.Transcript, items, totals); err != nil {
		return fmt.Errorf("logstore: insert: %w", err)
	}
	return nil
}

// Ping reports database reachability for readiness checks.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("logstore: ping: %w", err)
	}
	return nil
}

// NopStore discards entries, used when persistence is not configured.
type NopStore struct{}

var _ Store = NopStore{}

// Insert reports an error so callers surface success=false instead of
// silently dropping meals.
func (NopStore) Insert(context.Context, Entry) error {
	return fmt.Errorf("logstore: persistence not configured")
}
