package metadatastore

import (
	"database/sql"
	"fmt"

	"github.com/northbound-system/kb-ingest/internal/apierr"
)

// KnowledgeBase is the top-level container binding an embedding model and
// dimension to a set of documents and segments.
type KnowledgeBase struct {
	ID             string
	EmbeddingModel string
	Dimension      int
	DisplayName    string
	IconURL        string
	Description    string
	CreatedAt      string
	UpdatedAt      string
}

// CreateKnowledgeBase inserts a new knowledge base row. The embedding model
// and dimension are fixed at creation time and never change afterwards
// (spec §2's "dimension is immutable" invariant).
func (s *Store) CreateKnowledgeBase(kb KnowledgeBase) error {
	if kb.ID == "" || kb.EmbeddingModel == "" || kb.Dimension <= 0 {
		return fmt.Errorf("%w: id, embedding_model and dimension are required", apierr.ErrValidation)
	}
	now := nowUTC()
	_, err := s.db.Exec(
		`INSERT INTO knowledge_bases (id, embedding_model, dimension, display_name, icon_url, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		kb.ID, kb.EmbeddingModel, kb.Dimension, kb.DisplayName, kb.IconURL, kb.Description, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create knowledge base: %w", err)
	}
	return nil
}

// GetKnowledgeBase fetches a single knowledge base by id.
func (s *Store) GetKnowledgeBase(id string) (KnowledgeBase, error) {
	row := s.db.QueryRow(
		`SELECT id, embedding_model, dimension, display_name, icon_url, description, created_at, updated_at
		 FROM knowledge_bases WHERE id = ?`, id,
	)
	var kb KnowledgeBase
	err := row.Scan(&kb.ID, &kb.EmbeddingModel, &kb.Dimension, &kb.DisplayName, &kb.IconURL, &kb.Description, &kb.CreatedAt, &kb.UpdatedAt)
	if err == sql.ErrNoRows {
		return KnowledgeBase{}, fmt.Errorf("knowledge base %s: %w", id, apierr.ErrNotFound)
	}
	if err != nil {
		return KnowledgeBase{}, fmt.Errorf("failed to get knowledge base: %w", err)
	}
	return kb, nil
}

// ListKnowledgeBases returns all knowledge bases ordered by creation time.
func (s *Store) ListKnowledgeBases() ([]KnowledgeBase, error) {
	rows, err := s.db.Query(
		`SELECT id, embedding_model, dimension, display_name, icon_url, description, created_at, updated_at
		 FROM knowledge_bases ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge bases: %w", err)
	}
	defer rows.Close()

	var out []KnowledgeBase
	for rows.Next() {
		var kb KnowledgeBase
		if err := rows.Scan(&kb.ID, &kb.EmbeddingModel, &kb.Dimension, &kb.DisplayName, &kb.IconURL, &kb.Description, &kb.CreatedAt, &kb.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge base row: %w", err)
		}
		out = append(out, kb)
	}
	return out, rows.Err()
}

// UpdateKnowledgeBase updates the mutable display fields of a knowledge
// base. embedding_model and dimension are intentionally not updatable here.
func (s *Store) UpdateKnowledgeBase(id, displayName, iconURL, description string) error {
	res, err := s.db.Exec(
		`UPDATE knowledge_bases SET display_name = ?, icon_url = ?, description = ?, updated_at = ? WHERE id = ?`,
		displayName, iconURL, description, nowUTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update knowledge base: %w", err)
	}
	return requireRowsAffected(res, id)
}

// DeleteKnowledgeBase removes a knowledge base and every document, task, and
// metadata field registered under it. Segment deletion from the vector
// store is the caller's responsibility (the metadata store never talks to
// a vector backend). Deleting a knowledge base that doesn't exist is a
// no-op, not an error (spec.md §4.1's idempotent delete_knowledge_base).
func (s *Store) DeleteKnowledgeBase(id string) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM metadata_fields WHERE knowledge_base_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete metadata fields: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM tasks WHERE knowledge_base_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete tasks: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM documents WHERE knowledge_base_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete documents: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM knowledge_bases WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete knowledge base: %w", err)
		}
		return nil
	})
}

func requireRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("id %s: %w", id, apierr.ErrNotFound)
	}
	return nil
}
