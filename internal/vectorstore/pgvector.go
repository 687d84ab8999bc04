package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/northbound-system/kb-ingest/internal/config"
)

// PGVectorStore implements Store with a table-per-knowledge-base layout:
// one table named after the collection, a `vector` column for the
// embedding, a GIN index over to_tsvector('english', page_content) for
// full text search, and a JSONB metadata column. Grounded on the corpus's
// RAG-adjacent manifests that pair jackc/pgx/v5 with pgvector/pgvector-go.
type PGVectorStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPGVectorStore opens a pool against cfg.DSN and binds it to the table
// backing the given knowledge base.
func NewPGVectorStore(ctx context.Context, cfg config.PGVectorConfig, tableName string) (*PGVectorStore, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}
	return &PGVectorStore{pool: pool, table: sanitizeIdentifier(tableName)}, nil
}

// sanitizeIdentifier restricts table names to the collection-naming
// scheme this package generates (kb_<uuid-with-dashes-as-underscores>),
// since table names cannot be parameterized in SQL.
func sanitizeIdentifier(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '-':
			b.WriteRune('_')
		}
	}
	return b.String()
}

func (s *PGVectorStore) CreateCollection(ctx context.Context, dimension int) error {
	ddl := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	page_content TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}',
	embeddings vector(%d)
);
CREATE INDEX IF NOT EXISTS %s_fts_idx ON %s USING GIN (to_tsvector('english', page_content));
`, s.table, dimension, s.table, s.table)

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return nil
}

func (s *PGVectorStore) AddTexts(ctx context.Context, docs []Document) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`
INSERT INTO %s (id, page_content, metadata, embeddings)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
	page_content = EXCLUDED.page_content,
	metadata = EXCLUDED.metadata,
	embeddings = EXCLUDED.embeddings
`, s.table)

	for _, doc := range docs {
		id := doc.ID
		if id == "" {
			id = SegmentID(doc.PageContent)
		}
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if _, err := tx.Exec(ctx, query, id, doc.PageContent, metadataJSON, pgv.NewVector(doc.Vector)); err != nil {
			return fmt.Errorf("failed to upsert segment %s: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

func (s *PGVectorStore) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, s.table)
	if _, err := s.pool.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("failed to delete by ids: %w", err)
	}
	return nil
}

func (s *PGVectorStore) DeleteByMetadataField(ctx context.Context, key string, value any) error {
	if !isSafeMetadataKey(key) {
		return fmt.Errorf("invalid metadata key %q", key)
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE metadata->>'%s' = $1`, s.table, key)
	if _, err := s.pool.Exec(ctx, query, fmt.Sprintf("%v", value)); err != nil {
		return fmt.Errorf("failed to delete by metadata field %s: %w", key, err)
	}
	return nil
}

// isSafeMetadataKey restricts a JSONB key headed into a raw-SQL ->>
// splice to the same identifier characters CreateSegments/the ingestion
// pipeline ever generate, since a JSONB key cannot be bound as a query
// parameter. This is a second line of defense behind the caller-side
// registered-fields check in internal/query.Facade.
func isSafeMetadataKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

func (s *PGVectorStore) UpdateByID(ctx context.Context, id string, doc Document) error {
	doc.ID = id
	return s.AddTexts(ctx, []Document{doc})
}

func (s *PGVectorStore) SearchByVector(ctx context.Context, vector []float32, topK int, filter MetadataFilter) ([]Document, error) {
	if topK == 0 {
		return nil, nil
	}
	if topK < 0 {
		topK = 3
	}

	where, args := metadataWhereClause(filter, 2)
	query := fmt.Sprintf(`
SELECT id, page_content, metadata, 1 - (embeddings <=> $1) AS score
FROM %s
%s
ORDER BY embeddings <=> $1
LIMIT %d
`, s.table, where, topK)

	args = append([]any{pgv.NewVector(vector)}, args...)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows, true)
}

func (s *PGVectorStore) SearchByFullText(ctx context.Context, opts FullTextSearchOptions) ([]Document, error) {
	opts = opts.WithDefaults()

	where, args := metadataWhereClause(opts.MetadataFilter, 2)
	clauses := []string{}
	if where != "" {
		clauses = append(clauses, strings.TrimPrefix(where, "WHERE "))
	}
	if opts.Query != "" {
		clauses = append(clauses, fmt.Sprintf(`to_tsvector('english', page_content) @@ plainto_tsquery('english', $1)`))
	}

	whereClause := ""
	if len(clauses) > 0 {
		whereClause = "WHERE " + strings.Join(clauses, " AND ")
	}

	order := ""
	if opts.SortByCreatedAtDesc {
		order = "ORDER BY metadata->>'created_at' DESC"
	}

	query := fmt.Sprintf(`
SELECT id, page_content, metadata, 0
FROM %s
%s
%s
LIMIT %d OFFSET %d
`, s.table, whereClause, order, opts.Size, opts.From)

	queryArgs := []any{}
	if opts.Query != "" {
		queryArgs = append(queryArgs, opts.Query)
	}
	queryArgs = append(queryArgs, args...)

	rows, err := s.pool.Query(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("full text search failed: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows, false)
}

func (s *PGVectorStore) GetMetadataKeyUniqueValues(ctx context.Context, key string) ([]string, error) {
	if !isSafeMetadataKey(key) {
		return nil, fmt.Errorf("invalid metadata key %q", key)
	}
	query := fmt.Sprintf(`SELECT DISTINCT metadata->>'%s' FROM %s WHERE metadata ? '%s'`, key, s.table, key)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata key %s: %w", key, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan metadata value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (s *PGVectorStore) Delete(ctx context.Context) error {
	query := fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", s.table, err)
	}
	return nil
}

// metadataWhereClause turns a normalized filter into a WHERE clause and its
// positional args, starting parameter numbering at startAt.
func metadataWhereClause(filter MetadataFilter, startAt int) (string, []any) {
	filter = filter.Normalize()
	if len(filter) == 0 {
		return "", nil
	}

	var clauses []string
	var args []any
	idx := startAt
	for key, value := range filter {
		if list, ok := value.([]any); ok {
			placeholders := make([]string, len(list))
			for i, v := range list {
				placeholders[i] = fmt.Sprintf("$%d", idx)
				args = append(args, fmt.Sprintf("%v", v))
				idx++
			}
			clauses = append(clauses, fmt.Sprintf(`metadata->>'%s' IN (%s)`, key, strings.Join(placeholders, ", ")))
			continue
		}
		clauses = append(clauses, fmt.Sprintf(`metadata->>'%s' = $%d`, key, idx))
		args = append(args, fmt.Sprintf("%v", value))
		idx++
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func scanDocuments(rows pgx.Rows, withScore bool) ([]Document, error) {
	var docs []Document
	for rows.Next() {
		var id, content string
		var metadataJSON []byte
		var score float64
		if err := rows.Scan(&id, &content, &metadataJSON, &score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var metadata map[string]any
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
		doc := Document{ID: id, PageContent: content, Metadata: metadata}
		if withScore {
			doc.Score = float32(score)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
