//go:build cgo

package embedding

import (
	"context"
	"fmt"

	fastembed "github.com/anush008/fastembed-go"
)

// localModelMapping maps the friendly model names an operator writes into
// embeddings.models[].modelPath to the fastembed-go constant, the same
// lookup table the teacher's contextd-style FastEmbed provider builds.
var localModelMapping = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-small-en":                      fastembed.BGESmallEN,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"BAAI/bge-base-en":                       fastembed.BGEBaseEN,
	"BAAI/bge-small-zh-v1.5":                 fastembed.BGESmallZH,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
}

// localEmbedder wraps an in-process ONNX model loaded via fastembed-go.
type localEmbedder struct {
	model     *fastembed.FlagEmbedding
	dimension int
}

// newLocalEmbedder loads the model named by cfg.ModelPath (falling back to
// cfg.Name) and keeps it resident for reuse via localModelCache.
func newLocalEmbedder(cfg ModelConfig) (Embedder, error) {
	modelRef := cfg.ModelPath
	if modelRef == "" {
		modelRef = cfg.Name
	}

	model, ok := localModelMapping[modelRef]
	if !ok {
		model = fastembed.EmbeddingModel(modelRef)
	}

	showProgress := false
	flagEmbed, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing local embedding model %q: %w", modelRef, err)
	}

	return &localEmbedder{model: flagEmbed, dimension: cfg.Dimension}, nil
}

// EmbedBatch embeds texts as documents (fastembed's "passage" mode).
func (e *localEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	embeddings, err := e.model.PassageEmbed(texts, 256)
	if err != nil {
		return nil, fmt.Errorf("local embedding failed: %w", err)
	}
	return embeddings, nil
}

func (e *localEmbedder) Dimension() int {
	return e.dimension
}
