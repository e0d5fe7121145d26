// Package store provides workspace persistence backends.
//
// A workspace is saved and loaded as one atomic document (name plus
// node/edge collections). Four backends implement the same contract:
// the dashboard's remote HTTP API, an in-memory map for tests, SQLite
// for a local cache, and Postgres for the reference service.
package store

import (
	"errors"

	"github.com/rmurphy/mediaflow/pkg/mediaflow"
)

// Compile-time interface checks.
var (
	_ mediaflow.WorkspaceStore = (*RemoteStore)(nil)
	_ mediaflow.WorkspaceStore = (*MemoryStore)(nil)
	_ mediaflow.WorkspaceStore = (*SQLiteStore)(nil)
	_ mediaflow.WorkspaceStore = (*PGStore)(nil)
)

// Sentinel errors for workspace stores.
var (
	// ErrNotFound indicates no workspace exists under the given ID.
	ErrNotFound = errors.New("workspace not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("workspace store closed")
)
