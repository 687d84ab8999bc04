// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package embedding generalizes the teacher's internal/embeddings package
// (a flat {openai, ollama, mock} registry of per-text/per-batch embedders)
// into the {local, api} sum type a knowledge base's embedding_model names
// point into.
package embedding

import (
	"context"
	"fmt"
)

// Embedder generates vector embeddings from text, same method shapes as
// the teacher's embeddings.Embedder.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// ModelConfig describes one entry of the embeddings.models[] registry.
type ModelConfig struct {
	Name        string
	DisplayName string
	Dimension   int
	Enabled     bool
	Type        string // "local" or "api"
	ModelPath   string
	API         APIConfig
}

// APIConfig configures the "api" embedder type.
type APIConfig struct {
	URL        string
	Headers    map[string]string
	ResultPath string
}

// Registry resolves a configured model name to an Embedder, caching local
// model handles for the process lifetime (unlike the Milvus exists-marker
// cache, whose entries expire after an hour).
type Registry struct {
	models map[string]ModelConfig
	cache  *localModelCache
}

// NewRegistry builds a Registry from the embeddings.models[] config list.
func NewRegistry(models []ModelConfig) *Registry {
	byName := make(map[string]ModelConfig, len(models))
	for _, m := range models {
		byName[m.Name] = m
	}
	return &Registry{models: byName, cache: newLocalModelCache()}
}

// ModelConfig looks up a registered model by name.
func (r *Registry) ModelConfig(name string) (ModelConfig, bool) {
	m, ok := r.models[name]
	return m, ok
}

// Embedder returns the Embedder for a configured model name.
func (r *Registry) Embedder(name string) (Embedder, error) {
	cfg, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown embedding model %q", name)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("embedding model %q is disabled", name)
	}

	switch cfg.Type {
	case "local":
		return r.cache.get(cfg)
	case "api":
		return newAPIEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedder type %q for model %q", cfg.Type, cfg.Name)
	}
}
