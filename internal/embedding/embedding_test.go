package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIEmbedder_ExtractsEmbeddingsAtResultPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)

		resp := map[string]any{
			"data": map[string]any{
				"embeddings": []any{
					[]any{0.1, 0.2, 0.3},
					[]any{0.4, 0.5, 0.6},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	registry := NewRegistry([]ModelConfig{{
		Name:      "custom-api-model",
		Dimension: 3,
		Enabled:   true,
		Type:      "api",
		API: APIConfig{
			URL:        server.URL,
			ResultPath: "data.embeddings",
		},
	}})

	embedder, err := registry.Embedder("custom-api-model")
	if err != nil {
		t.Fatalf("Embedder failed: %v", err)
	}
	if embedder.Dimension() != 3 {
		t.Errorf("expected dimension 3, got %d", embedder.Dimension())
	}

	vectors, err := embedder.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vectors) != 2 || len(vectors[0]) != 3 {
		t.Errorf("unexpected vectors: %+v", vectors)
	}
	if vectors[1][2] != float32(0.6) {
		t.Errorf("unexpected value: %v", vectors[1][2])
	}
}

func TestAPIEmbedder_OpenAIShapedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"data": []any{
				map[string]any{"embedding": []any{1.0, 2.0}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	registry := NewRegistry([]ModelConfig{{
		Name: "openai-like", Dimension: 2, Enabled: true, Type: "api",
		API: APIConfig{URL: server.URL, ResultPath: "data"},
	}})

	embedder, err := registry.Embedder("openai-like")
	if err != nil {
		t.Fatalf("Embedder failed: %v", err)
	}
	vectors, err := embedder.EmbedBatch(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vectors) != 1 || vectors[0][1] != float32(2.0) {
		t.Errorf("unexpected vectors: %+v", vectors)
	}
}

func TestRegistry_UnknownModel(t *testing.T) {
	registry := NewRegistry(nil)
	if _, err := registry.Embedder("missing"); err == nil {
		t.Error("expected error for unknown model")
	}
}

func TestRegistry_DisabledModel(t *testing.T) {
	registry := NewRegistry([]ModelConfig{{Name: "off", Enabled: false, Type: "api"}})
	if _, err := registry.Embedder("off"); err == nil {
		t.Error("expected error for disabled model")
	}
}
