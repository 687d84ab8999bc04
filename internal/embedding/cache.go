package embedding

import (
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// localModelCache caches loaded local-model embedders by model name for
// the process lifetime. Loading an ONNX model is expensive enough that
// every ingestion task reusing the same model must not reload it; entries
// never expire, mirroring the teacher's TTL-cache idiom (see the Milvus
// collection-exists marker in internal/vectorstore) with NoExpiration
// instead of a time-boxed entry.
type localModelCache struct {
	c  *cache.Cache
	mu sync.Mutex
}

func newLocalModelCache() *localModelCache {
	return &localModelCache{c: cache.New(cache.NoExpiration, 0)}
}

func (l *localModelCache) get(cfg ModelConfig) (Embedder, error) {
	if v, ok := l.c.Get(cfg.Name); ok {
		return v.(Embedder), nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.c.Get(cfg.Name); ok {
		return v.(Embedder), nil
	}

	embedder, err := newLocalEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load local embedding model %q: %w", cfg.Name, err)
	}

	l.c.Set(cfg.Name, embedder, time.Duration(0))
	return embedder, nil
}
