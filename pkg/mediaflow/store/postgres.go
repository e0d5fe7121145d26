package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rmurphy/mediaflow/pkg/mediaflow"
)

// PGStore persists workspaces to Postgres. It backs the reference
// workspace service in server/.
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore creates a Postgres workspace store around an existing pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{db: pool}
}

// CreateSchema creates the workspaces table if it does not exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS workspaces (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			data JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("workspace: create schema: %w", err)
	}
	return nil
}

// DropSchema removes the workspaces table.
func (s *PGStore) DropSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS workspaces`); err != nil {
		return fmt.Errorf("workspace: drop schema: %w", err)
	}
	return nil
}

// Load implements mediaflow.WorkspaceStore.
func (s *PGStore) Load(ctx context.Context, id string) (*mediaflow.Document, error) {
	var data []byte
	err := s.db.QueryRow(ctx,
		`SELECT data FROM workspaces WHERE id = $1`, id).Scan(&data)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("workspace: load %s: %w", id, err)
	}

	var doc mediaflow.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("workspace: decode %s: %w", id, err)
	}
	return &doc, nil
}

// Save implements mediaflow.WorkspaceStore.
func (s *PGStore) Save(ctx context.Context, id string, doc *mediaflow.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("workspace: encode %s: %w", id, err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO workspaces (id, name, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			data = EXCLUDED.data,
			updated_at = now()
	`, id, doc.Name, data)

	if err != nil {
		return fmt.Errorf("workspace: save %s: %w", id, err)
	}
	return nil
}
