package metadatastore

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/northbound-system/kb-ingest/internal/apierr"
)

// MetadataField is a user-defined metadata key registered against a
// knowledge base the first time a segment carries it.
type MetadataField struct {
	ID              string
	KnowledgeBaseID string
	Key             string
	CreatedAt       string
}

// RegisterMetadataKeys registers every key in keys that is not one of the
// built-in segment fields and is not already registered, ignoring
// conflicts from concurrent registration of the same key (the unique index
// on (knowledge_base_id, key) makes this idempotent).
func (s *Store) RegisterMetadataKeys(knowledgeBaseID string, keys []string) error {
	for _, key := range keys {
		if BuiltinMetadataKeys[key] {
			continue
		}
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO metadata_fields (id, knowledge_base_id, key, created_at) VALUES (?, ?, ?, ?)`,
			uuid.New().String(), knowledgeBaseID, key, nowUTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to register metadata key %q: %w", key, err)
		}
	}
	return nil
}

// ListMetadataFields returns every registered metadata field for a
// knowledge base.
func (s *Store) ListMetadataFields(knowledgeBaseID string) ([]MetadataField, error) {
	rows, err := s.db.Query(
		`SELECT id, knowledge_base_id, key, created_at FROM metadata_fields WHERE knowledge_base_id = ? ORDER BY key ASC`,
		knowledgeBaseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata fields: %w", err)
	}
	defer rows.Close()

	var out []MetadataField
	for rows.Next() {
		var f MetadataField
		if err := rows.Scan(&f.ID, &f.KnowledgeBaseID, &f.Key, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan metadata field row: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteMetadataField removes a single registered metadata field by key.
func (s *Store) DeleteMetadataField(knowledgeBaseID, key string) error {
	res, err := s.db.Exec(`DELETE FROM metadata_fields WHERE knowledge_base_id = ? AND key = ?`, knowledgeBaseID, key)
	if err != nil {
		return fmt.Errorf("failed to delete metadata field: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("metadata field %s: %w", key, apierr.ErrNotFound)
	}
	return nil
}
