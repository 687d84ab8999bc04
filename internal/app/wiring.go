// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package app holds the configuration-to-dependency wiring shared by
// cmd/kb-server and cmd/kb-worker: the two binaries stand up the same
// metadata store, embedding registry, and vector-store resolver, only
// their consumer (HTTP mux vs. queue worker loop) differs.
package app

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"

	"github.com/northbound-system/kb-ingest/internal/config"
	"github.com/northbound-system/kb-ingest/internal/embedding"
	"github.com/northbound-system/kb-ingest/internal/metadatastore"
	"github.com/northbound-system/kb-ingest/internal/query"
	"github.com/northbound-system/kb-ingest/internal/vectorstore"
)

// OpenMetadataStore opens the SQLite database backing the metadata store
// and ensures its schema exists.
func OpenMetadataStore(dbPath string) (*metadatastore.Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", dbPath, err)
	}
	store, err := metadatastore.New(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metadata store: %w", err)
	}
	return store, nil
}

// NewEmbeddingRegistry adapts the config package's mapstructure-tagged
// embeddings.models[] entries into the embedding package's ModelConfig
// shape.
func NewEmbeddingRegistry(cfg config.EmbeddingsConfig) *embedding.Registry {
	models := make([]embedding.ModelConfig, len(cfg.Models))
	for i, m := range cfg.Models {
		models[i] = embedding.ModelConfig{
			Name:        m.Name,
			DisplayName: m.DisplayName,
			Dimension:   m.Dimension,
			Enabled:     m.Enabled,
			Type:        m.Type,
			ModelPath:   m.ModelPath,
			API: embedding.APIConfig{
				URL:        m.APIConfig.URL,
				Headers:    m.APIConfig.Headers,
				ResultPath: m.APIConfig.ResultPath,
			},
		}
	}
	return embedding.NewRegistry(models)
}

// collectionName derives the backend-agnostic collection/index/table name
// for a knowledge base. Each backend further sanitizes this for its own
// identifier rules (PGVectorStore.sanitizeIdentifier in particular).
func collectionName(kbID string) string {
	return "kb_" + kbID
}

// NewVectorStoreResolver builds a query.StoreResolver that dispatches to
// the configured backend (spec.md §9's "pick a dispatch mechanism"
// resolution: a runtime switch on cfg.Type rather than a compile-time
// variant, since the backend is chosen by config, not by caller type).
// rdb may be nil when cfg.Type != "milvus", since only Milvus's
// collection-creation lock needs it.
func NewVectorStoreResolver(cfg config.VectorConfig, rdb redis.UniversalClient) query.StoreResolver {
	return func(kb metadatastore.KnowledgeBase) (vectorstore.Store, error) {
		name := collectionName(kb.ID)
		switch cfg.Type {
		case "elasticsearch":
			return vectorstore.NewElasticsearchStore(cfg.Elasticsearch, name)
		case "milvus":
			return vectorstore.NewMilvusStore(context.Background(), cfg.Milvus, rdb, name)
		case "pgvector":
			return vectorstore.NewPGVectorStore(context.Background(), cfg.PGVector, name)
		default:
			return nil, fmt.Errorf("unknown vector store type %q", cfg.Type)
		}
	}
}
