// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package query implements the Facade (C9) spec.md describes: every
// operation resolves a knowledge base to its embedder and vector store
// before delegating, rather than requiring callers to do that wiring
// themselves.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/northbound-system/kb-ingest/internal/apierr"
	"github.com/northbound-system/kb-ingest/internal/embedding"
	"github.com/northbound-system/kb-ingest/internal/metadatastore"
	"github.com/northbound-system/kb-ingest/internal/vectorstore"
)

const (
	defaultTopK = 3
)

// StoreResolver returns the vector store backing a knowledge base. It is
// provided by the caller (cmd/kb-server) since which backend applies
// depends on process-wide config, not on anything the metadata store
// tracks per KB.
type StoreResolver func(kb metadatastore.KnowledgeBase) (vectorstore.Store, error)

// Facade ties the metadata store, the embedder registry, and vector-store
// resolution together behind the operations the HTTP API exposes.
type Facade struct {
	Metadata   *metadatastore.Store
	Embeddings *embedding.Registry
	Resolve    StoreResolver
}

// New builds a Facade from its three dependencies.
func New(metadata *metadatastore.Store, embeddings *embedding.Registry, resolve StoreResolver) *Facade {
	return &Facade{Metadata: metadata, Embeddings: embeddings, Resolve: resolve}
}

func (f *Facade) resolveKB(kbID string) (metadatastore.KnowledgeBase, vectorstore.Store, error) {
	kb, err := f.Metadata.GetKnowledgeBase(kbID)
	if err != nil {
		return metadatastore.KnowledgeBase{}, nil, err
	}
	store, err := f.Resolve(kb)
	if err != nil {
		return metadatastore.KnowledgeBase{}, nil, fmt.Errorf("failed to resolve vector store for %s: %w", kbID, err)
	}
	return kb, store, nil
}

// SearchByVector embeds query using the knowledge base's configured model
// and searches its vector store. topK < 0 defaults to 3 (spec.md §4.9);
// topK == 0 is a valid request that returns no hits, per spec.md §8's
// boundary behavior.
func (f *Facade) SearchByVector(ctx context.Context, kbID, query string, topK int, filter vectorstore.MetadataFilter) ([]vectorstore.Document, error) {
	kb, store, err := f.resolveKB(kbID)
	if err != nil {
		return nil, err
	}

	embedder, err := f.Embeddings.Embedder(kb.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrValidation, err)
	}

	vectors, err := embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 query", len(vectors))
	}

	if topK < 0 {
		topK = defaultTopK
	}
	return store.SearchByVector(ctx, vectors[0], topK, filter)
}

// SearchByFullText delegates to the vector store's full text search,
// applying spec.md's from=0,size=30 defaults.
func (f *Facade) SearchByFullText(ctx context.Context, kbID string, opts vectorstore.FullTextSearchOptions) ([]vectorstore.Document, error) {
	_, store, err := f.resolveKB(kbID)
	if err != nil {
		return nil, err
	}
	return store.SearchByFullText(ctx, opts.WithDefaults())
}

// MetadataKeyUniqueValues returns the distinct values seen for a metadata
// key in a knowledge base's segments. key comes straight from the URL path
// and backends such as PGVectorStore splice it into raw SQL (there is no
// way to parameterize a JSONB key), so it is validated against the
// knowledge base's own registered fields first rather than handed to the
// backend unchecked.
func (f *Facade) MetadataKeyUniqueValues(ctx context.Context, kbID, key string) ([]string, error) {
	if !metadatastore.BuiltinMetadataKeys[key] {
		fields, err := f.Metadata.ListMetadataFields(kbID)
		if err != nil {
			return nil, err
		}
		registered := false
		for _, field := range fields {
			if field.Key == key {
				registered = true
				break
			}
		}
		if !registered {
			return nil, fmt.Errorf("%w: unknown metadata key %q", apierr.ErrValidation, key)
		}
	}

	_, store, err := f.resolveKB(kbID)
	if err != nil {
		return nil, err
	}
	return store.GetMetadataKeyUniqueValues(ctx, key)
}

// CreateSegments embeds and upserts caller-supplied text/metadata pairs
// directly (the POST .../segments HTTP operation), stamping the same
// built-in created_at/user_id metadata the ingestion pipeline stamps on
// every segment, and registering any new metadata keys.
func (f *Facade) CreateSegments(ctx context.Context, kbID, userID string, texts []string, metadata []map[string]any) ([]vectorstore.Document, error) {
	if len(texts) != len(metadata) {
		return nil, fmt.Errorf("%w: texts and metadata must be the same length", apierr.ErrValidation)
	}

	kb, store, err := f.resolveKB(kbID)
	if err != nil {
		return nil, err
	}

	embedder, err := f.Embeddings.Embedder(kb.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrValidation, err)
	}

	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed segments: %w", err)
	}

	createdAt := time.Now().Unix()
	docs := make([]vectorstore.Document, len(texts))
	keys := map[string]bool{}
	for i, text := range texts {
		segMetadata := make(map[string]any, len(metadata[i])+2)
		for k, v := range metadata[i] {
			segMetadata[k] = v
			if !metadatastore.BuiltinMetadataKeys[k] {
				keys[k] = true
			}
		}
		segMetadata["created_at"] = createdAt
		segMetadata["user_id"] = userID

		docs[i] = vectorstore.Document{
			ID:          vectorstore.SegmentID(text),
			PageContent: text,
			Metadata:    segMetadata,
			Vector:      vectors[i],
		}
	}

	if err := store.AddTexts(ctx, docs); err != nil {
		return nil, fmt.Errorf("failed to upsert segments: %w", err)
	}

	keyList := make([]string, 0, len(keys))
	for k := range keys {
		keyList = append(keyList, k)
	}
	if err := f.Metadata.RegisterMetadataKeys(kbID, keyList); err != nil {
		return nil, fmt.Errorf("failed to register metadata keys: %w", err)
	}

	return docs, nil
}

// UpdateSegment replaces the content/metadata of one segment by id,
// re-embedding it with the knowledge base's configured model and
// registering any newly-introduced metadata keys.
func (f *Facade) UpdateSegment(ctx context.Context, kbID, id, text string, metadata map[string]any) error {
	kb, store, err := f.resolveKB(kbID)
	if err != nil {
		return err
	}

	embedder, err := f.Embeddings.Embedder(kb.EmbeddingModel)
	if err != nil {
		return fmt.Errorf("%w: %v", apierr.ErrValidation, err)
	}

	vectors, err := embedder.EmbedBatch(ctx, []string{text})
	if err != nil {
		return fmt.Errorf("failed to embed segment: %w", err)
	}

	if err := store.UpdateByID(ctx, id, vectorstore.Document{
		PageContent: text,
		Metadata:    metadata,
		Vector:      vectors[0],
	}); err != nil {
		return err
	}

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		if !metadatastore.BuiltinMetadataKeys[k] {
			keys = append(keys, k)
		}
	}
	return f.Metadata.RegisterMetadataKeys(kbID, keys)
}

// DeleteSegment removes a single segment by id.
func (f *Facade) DeleteSegment(ctx context.Context, kbID, id string) error {
	_, store, err := f.resolveKB(kbID)
	if err != nil {
		return err
	}
	return store.DeleteByIDs(ctx, []string{id})
}

// DeleteDocumentSegments removes every segment whose metadata.document_id
// matches docID, per the DELETE .../documents/{doc_id} HTTP operation.
func (f *Facade) DeleteDocumentSegments(ctx context.Context, kbID, docID string) error {
	_, store, err := f.resolveKB(kbID)
	if err != nil {
		return err
	}
	return store.DeleteByMetadataField(ctx, "document_id", docID)
}
