// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package vectorstore generalizes the teacher's internal/vectordb (a
// single-backend Qdrant wrapper behind a small VectorDB interface) into the
// capability set required across three real backends: Elasticsearch,
// Milvus, and PGVector.
package vectorstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
)

// Document is one page_content + metadata pair as stored or retrieved from
// the vector store. Segments are first written under SegmentID(PageContent);
// UpdateByID keeps the existing id while replacing the content. It matches
// the teacher's Match type in shape but carries metadata as a free-form map
// instead of map[string]string, since spec.md metadata values are not
// always strings.
type Document struct {
	ID          string
	PageContent string
	Metadata    map[string]any
	Vector      []float32
	Score       float32
}

// SegmentID returns the deterministic content-hash id a segment is stored
// and upserted under: MD5 of its page content, hex-encoded. Sharing one
// implementation across all three backends keeps re-delivery of the same
// ingestion task idempotent (spec.md §5's idempotency guarantee).
func SegmentID(pageContent string) string {
	sum := md5.Sum([]byte(pageContent))
	return hex.EncodeToString(sum[:])
}

// MetadataFilter is an AND of equality/any-of constraints across metadata
// keys. A nil value for a key means "ignore this key" per spec.md's
// filter-normalization rule; empty strings and empty lists are kept.
type MetadataFilter map[string]any

// Normalize drops absent/nil entries and leaves list values as ANY-of,
// scalar values as equality, per spec.md §4.7's filter-normalization rule.
func (f MetadataFilter) Normalize() MetadataFilter {
	if f == nil {
		return nil
	}
	out := make(MetadataFilter, len(f))
	for k, v := range f {
		if v == nil {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// FullTextSearchOptions configures search_by_full_text.
type FullTextSearchOptions struct {
	Query          string
	MetadataFilter MetadataFilter
	From           int
	Size           int
	SortByCreatedAtDesc bool
}

// WithDefaults fills From/Size with spec.md's defaults (0, 30).
func (o FullTextSearchOptions) WithDefaults() FullTextSearchOptions {
	if o.Size <= 0 {
		o.Size = 30
	}
	if o.From < 0 {
		o.From = 0
	}
	return o
}

// Store is the capability set every backend implements, named exactly per
// spec.md §4.7's operation table.
type Store interface {
	CreateCollection(ctx context.Context, dimension int) error
	AddTexts(ctx context.Context, docs []Document) error
	DeleteByIDs(ctx context.Context, ids []string) error
	DeleteByMetadataField(ctx context.Context, key string, value any) error
	UpdateByID(ctx context.Context, id string, doc Document) error
	SearchByVector(ctx context.Context, vector []float32, topK int, filter MetadataFilter) ([]Document, error)
	SearchByFullText(ctx context.Context, opts FullTextSearchOptions) ([]Document, error)
	GetMetadataKeyUniqueValues(ctx context.Context, key string) ([]string, error)
	Delete(ctx context.Context) error
}
