package metadatastore

import (
	"database/sql"
	"fmt"

	"github.com/northbound-system/kb-ingest/internal/apierr"
)

// Document index status values (spec §2's Document lifecycle).
const (
	DocStatusPending    = "pending"
	DocStatusInProgress = "in_progress"
	DocStatusCompleted  = "completed"
	DocStatusFailed     = "failed"
)

// Document tracks one ingested file within a knowledge base.
type Document struct {
	ID              string
	KnowledgeBaseID string
	Filename        string
	SourceURL       string
	IndexStatus     string
	FailedMessage   string
	CreatedAt       string
	UpdatedAt       string
}

// CreateDocument inserts a document row in DocStatusPending state.
func (s *Store) CreateDocument(d Document) error {
	if d.ID == "" || d.KnowledgeBaseID == "" || d.Filename == "" {
		return fmt.Errorf("%w: id, knowledge_base_id and filename are required", apierr.ErrValidation)
	}
	if d.IndexStatus == "" {
		d.IndexStatus = DocStatusPending
	}
	now := nowUTC()
	_, err := s.db.Exec(
		`INSERT INTO documents (id, knowledge_base_id, filename, source_url, index_status, failed_message, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.KnowledgeBaseID, d.Filename, d.SourceURL, d.IndexStatus, d.FailedMessage, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetDocument fetches a single document by id.
func (s *Store) GetDocument(id string) (Document, error) {
	row := s.db.QueryRow(
		`SELECT id, knowledge_base_id, filename, source_url, index_status, failed_message, created_at, updated_at
		 FROM documents WHERE id = ?`, id,
	)
	var d Document
	err := row.Scan(&d.ID, &d.KnowledgeBaseID, &d.Filename, &d.SourceURL, &d.IndexStatus, &d.FailedMessage, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return Document{}, fmt.Errorf("document %s: %w", id, apierr.ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to get document: %w", err)
	}
	return d, nil
}

// ListDocuments returns every document registered under a knowledge base.
func (s *Store) ListDocuments(knowledgeBaseID string) ([]Document, error) {
	rows, err := s.db.Query(
		`SELECT id, knowledge_base_id, filename, source_url, index_status, failed_message, created_at, updated_at
		 FROM documents WHERE knowledge_base_id = ? ORDER BY created_at ASC`, knowledgeBaseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.KnowledgeBaseID, &d.Filename, &d.SourceURL, &d.IndexStatus, &d.FailedMessage, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateDocumentStatus transitions a document's index_status. Per the
// Document lifecycle invariant, the caller is responsible for only driving
// PENDING -> IN_PROGRESS -> {COMPLETED|FAILED}; the store itself does not
// reject out-of-order transitions since reprocessing a failed document
// re-enters PENDING deliberately.
func (s *Store) UpdateDocumentStatus(id, status, failedMessage string) error {
	res, err := s.db.Exec(
		`UPDATE documents SET index_status = ?, failed_message = ?, updated_at = ? WHERE id = ?`,
		status, failedMessage, nowUTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return requireRowsAffected(res, id)
}

// DeleteDocument removes a document row. Segment deletion in the vector
// store is the caller's responsibility.
func (s *Store) DeleteDocument(id string) error {
	res, err := s.db.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return requireRowsAffected(res, id)
}
