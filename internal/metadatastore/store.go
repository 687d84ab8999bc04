// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package metadatastore implements the Metadata Store (C1): relational
// persistence of KnowledgeBase, Document, Task, and MetadataField rows,
// following the teacher's raw database/sql idiom from
// internal/database/system_metadata.go (embedded CREATE TABLE IF NOT
// EXISTS schema, hand-written queries, no ORM).
package metadatastore

import (
	"database/sql"
	"fmt"
	"time"
)

// Store persists the four relational entities owned exclusively by the
// metadata store (spec §3's Ownership rule).
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS knowledge_bases (
	id TEXT PRIMARY KEY,
	embedding_model TEXT NOT NULL,
	dimension INTEGER NOT NULL,
	display_name TEXT,
	icon_url TEXT,
	description TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	knowledge_base_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	source_url TEXT,
	index_status TEXT NOT NULL,
	failed_message TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_kb ON documents(knowledge_base_id);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	knowledge_base_id TEXT NOT NULL,
	status TEXT NOT NULL,
	progress REAL NOT NULL DEFAULT 0,
	latest_message TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_kb ON tasks(knowledge_base_id);

CREATE TABLE IF NOT EXISTS metadata_fields (
	id TEXT PRIMARY KEY,
	knowledge_base_id TEXT NOT NULL,
	key TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_metadata_fields_kb_key ON metadata_fields(knowledge_base_id, key);
`

// BuiltinMetadataKeys are always present on a segment and never registered
// as MetadataField rows (spec §4.1).
var BuiltinMetadataKeys = map[string]bool{
	"document_id": true,
	"created_at":  true,
	"user_id":     true,
	"filename":    true,
}

// New wraps an already-open SQLite database handle and ensures the schema
// exists.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize metadata schema: %w", err)
	}
	return &Store{db: db}, nil
}

// withTx runs fn inside a transaction, rolling back and surfacing the error
// on failure so that a failed commit never leaves a caller observing
// in-doubt rows (spec §4.1).
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
