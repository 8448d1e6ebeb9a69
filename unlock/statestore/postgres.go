package statestore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultPostgresTable = "unlock_state"

// validIdentifier matches safe PostgreSQL identifiers (letters, digits, underscores).
var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithTableName sets the PostgreSQL table name. Default: "unlock_state".
func WithTableName(name string) PostgresOption {
	return func(s *PostgresStore) {
		s.tableName = name
	}
}

// PostgresStore implements StateStore using PostgreSQL.
type PostgresStore struct {
	pool      *pgxpool.Pool
	tableName string
}

// NewPostgresStore creates a new PostgreSQL-backed state store.
// It auto-creates the table on initialization.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	s := &PostgresStore{
		pool:      pool,
		tableName: defaultPostgresTable,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !validIdentifier.MatchString(s.tableName) {
		return nil, fmt.Errorf("invalid table name %q: must match [a-zA-Z_][a-zA-Z0-9_]*", s.tableName)
	}
	if err := s.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			install_id TEXT PRIMARY KEY,
			state      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`, s.tableName)
	_, err := s.pool.Exec(ctx, query)
	return err
}

func (s *PostgresStore) Save(ctx context.Context, installID, state string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (install_id, state, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (install_id) DO UPDATE SET
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at
	`, s.tableName)
	_, err := s.pool.Exec(ctx, query, installID, state, time.Now())
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, installID string) (string, error) {
	query := fmt.Sprintf(`SELECT state FROM %s WHERE install_id = $1`, s.tableName)
	var state string
	err := s.pool.QueryRow(ctx, query, installID).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil // first run
	}
	if err != nil {
		return "", fmt.Errorf("load state: %w", err)
	}
	return state, nil
}

func (s *PostgresStore) Delete(ctx context.Context, installID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE install_id = $1`, s.tableName)
	_, err := s.pool.Exec(ctx, query, installID)
	if err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close(_ context.Context) error {
	return nil // user manages the pgxpool.Pool lifecycle
}
