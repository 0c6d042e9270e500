package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"

	"mockingbird/internal/vtree"
)

// PostgresStore keeps one JSONB row per session.
type PostgresStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

// NewPostgresStore opens a pgx-backed store from a DSN.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS tree_snapshots (
    session_id  TEXT PRIMARY KEY,
    data        JSONB NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Save(ctx context.Context, id string, data map[string]vtree.Entry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("snapshot: store is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("snapshot: id is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO tree_snapshots (session_id, data, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (session_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		id, raw)
	return err
}

func (s *PostgresStore) Load(ctx context.Context, id string) (map[string]vtree.Entry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("snapshot: store is nil")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM tree_snapshots WHERE session_id = $1`,
		strings.TrimSpace(id)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var data map[string]vtree.Entry
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", id, err)
	}
	return data, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("snapshot: store is nil")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tree_snapshots WHERE session_id = $1`, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
