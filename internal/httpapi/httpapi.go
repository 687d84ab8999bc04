// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package httpapi binds the HTTP API table of spec.md §6 to
// internal/metadatastore, internal/query, and internal/queue, following
// the teacher's cmd/hive-server routes() function: a flat
// http.NewServeMux() wired directly against handler closures, no router
// framework.
package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/northbound-system/kb-ingest/internal/embedding"
	"github.com/northbound-system/kb-ingest/internal/metadatastore"
	"github.com/northbound-system/kb-ingest/internal/query"
	"github.com/northbound-system/kb-ingest/internal/queue"
)

// Dependencies bundles everything the HTTP layer needs, assembled by
// cmd/kb-server from configuration.
type Dependencies struct {
	Metadata   *metadatastore.Store
	Facade     *query.Facade
	Embeddings *embedding.Registry
	Queue      queue.Queue
	// Resolve looks up (or lazily creates) the vector store backing a
	// knowledge base, used directly by handlers that bypass the facade
	// (CreateKnowledgeBase's CreateCollection call, DeleteKnowledgeBase's
	// best-effort collection drop).
	Resolve query.StoreResolver
}

// NewMux builds the full route table.
func NewMux(deps Dependencies) http.Handler {
	mux := http.NewServeMux()
	h := &handlers{deps: deps}

	mux.HandleFunc("POST /knowledge-bases/", h.createKnowledgeBase)
	mux.HandleFunc("DELETE /knowledge-bases/{id}", h.deleteKnowledgeBase)

	mux.HandleFunc("POST /knowledge-bases/{id}/documents", h.submitDocument)
	mux.HandleFunc("GET /knowledge-bases/{id}/documents", h.listDocuments)
	mux.HandleFunc("DELETE /knowledge-bases/{id}/documents/{doc_id}", h.deleteDocument)

	mux.HandleFunc("GET /knowledge-bases/{id}/tasks", h.listTasks)
	mux.HandleFunc("GET /knowledge-bases/{id}/tasks/{task_id}", h.getTask)

	mux.HandleFunc("POST /knowledge-bases/{id}/segments", h.createSegments)
	mux.HandleFunc("DELETE /knowledge-bases/{id}/segments/{pk}", h.deleteSegment)
	mux.HandleFunc("PUT /knowledge-bases/{id}/segments/{pk}", h.updateSegment)

	mux.HandleFunc("POST /knowledge-bases/{id}/fulltext-search", h.fulltextSearch)
	mux.HandleFunc("POST /knowledge-bases/{id}/vector-search", h.vectorSearch)

	mux.HandleFunc("GET /knowledge-bases/{id}/metadata-fields", h.listMetadataFields)
	mux.HandleFunc("GET /knowledge-bases/{id}/metadata-fields/{key}/values", h.metadataFieldValues)

	return mux
}

type handlers struct {
	deps Dependencies
}

func newID() string {
	return uuid.NewString()
}
