package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// apiEmbedder generalizes the teacher's OpenAIEmbedder/OllamaEmbedder HTTP
// POST pattern into a fully config-templated embedder: the request body is
// {"documents": [...], "model": <name>}, the documents are also
// substituted into cfg.API.Headers values
// containing the literal "{documents}" placeholder (for providers that key
// off a header-carried payload), and the response is walked by a dotted
// JSON path instead of a hardcoded struct.
type apiEmbedder struct {
	cfg    APIConfig
	name   string
	dim    int
	client *http.Client
}

func newAPIEmbedder(cfg ModelConfig) (Embedder, error) {
	if cfg.API.URL == "" {
		return nil, fmt.Errorf("api embedding model %q is missing apiConfig.url", cfg.Name)
	}
	return &apiEmbedder{
		cfg:    cfg.API,
		name:   cfg.Name,
		dim:    cfg.Dimension,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (e *apiEmbedder) Dimension() int {
	return e.dim
}

// EmbedBatch POSTs {"documents": texts, "model": name} to the configured
// URL and extracts the embedding list from the response at
// cfg.ResultPath (a dotted path like "data.embeddings").
func (e *apiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body := map[string]any{
		"documents": texts,
		"model":     e.name,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	documentsJSON, err := json.Marshal(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal documents for header templating: %w", err)
	}
	for k, v := range e.cfg.Headers {
		req.Header.Set(k, strings.ReplaceAll(v, "{documents}", string(documentsJSON)))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API returned status %d", resp.StatusCode)
	}

	var parsed any
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}

	raw, err := walkJSONPath(parsed, e.cfg.ResultPath)
	if err != nil {
		return nil, fmt.Errorf("failed to extract embeddings at path %q: %w", e.cfg.ResultPath, err)
	}

	return toFloat32Matrix(raw)
}

// walkJSONPath walks a decoded JSON value along a dotted path. A numeric
// path segment indexes into a slice.
func walkJSONPath(v any, path string) (any, error) {
	if path == "" {
		return v, nil
	}
	cur := v
	for _, segment := range strings.Split(path, ".") {
		if idx, err := strconv.Atoi(segment); err == nil {
			arr, ok := cur.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, fmt.Errorf("path segment %q is not a valid array index into %T", segment, cur)
			}
			cur = arr[idx]
			continue
		}
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path segment %q: expected object, got %T", segment, cur)
		}
		next, ok := obj[segment]
		if !ok {
			return nil, fmt.Errorf("path segment %q not found", segment)
		}
		cur = next
	}
	return cur, nil
}

// toFloat32Matrix converts a decoded [][]float64-shaped any into
// [][]float32, accepting either a list of vectors or a list of
// {"embedding": [...]}-shaped objects (OpenAI's response shape).
func toFloat32Matrix(v any) ([][]float32, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of embeddings, got %T", v)
	}

	result := make([][]float32, len(items))
	for i, item := range items {
		vec := item
		if obj, ok := item.(map[string]any); ok {
			if e, ok := obj["embedding"]; ok {
				vec = e
			}
		}
		floats, ok := vec.([]any)
		if !ok {
			return nil, fmt.Errorf("embedding %d: expected a numeric array, got %T", i, vec)
		}
		row := make([]float32, len(floats))
		for j, f := range floats {
			num, ok := f.(float64)
			if !ok {
				return nil, fmt.Errorf("embedding %d component %d: expected a number, got %T", i, j, f)
			}
			row[j] = float32(num)
		}
		result[i] = row
	}
	return result, nil
}
