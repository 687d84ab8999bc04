package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/northbound-system/kb-ingest/internal/config"
)

const (
	milvusFieldID       = "id"
	milvusFieldContent  = "page_content"
	milvusFieldMetadata = "metadata"
	milvusFieldVector   = "embeddings"

	milvusHNSWM              = 8
	milvusHNSWEfConstruction = 64
	milvusSearchEf           = 64

	milvusLockTTL    = 30 * time.Second
	milvusExistsTTL  = time.Hour
)

// milvusCollectionGate tracks whether a collection has already been
// created, so repeat ingestion runs against the same knowledge base skip
// the gRPC round trip. A Redis SETNX-style lock guards the slow path
// across concurrent workers racing to create the same collection; reusing
// go-redis (already a dependency for the task queue) avoids pulling in a
// dedicated distributed-lock library.
type milvusCollectionGate struct {
	redis redis.UniversalClient
	cache *gocache.Cache
}

func newMilvusCollectionGate(rdb redis.UniversalClient) *milvusCollectionGate {
	return &milvusCollectionGate{redis: rdb, cache: gocache.New(milvusExistsTTL, 10*time.Minute)}
}

func (g *milvusCollectionGate) ensure(ctx context.Context, collName string, create func(ctx context.Context) error) error {
	if _, ok := g.cache.Get(collName); ok {
		return nil
	}

	lockKey := fmt.Sprintf("kb:milvus:lock:%s", collName)
	acquired, err := g.redis.SetNX(ctx, lockKey, "1", milvusLockTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire milvus collection lock: %w", err)
	}
	if !acquired {
		// Another worker is creating it; assume success and let the
		// next call re-check if that assumption was wrong.
		return nil
	}
	defer g.redis.Del(ctx, lockKey)

	if err := create(ctx); err != nil {
		return err
	}
	g.cache.Set(collName, true, milvusExistsTTL)
	return nil
}

// MilvusStore implements Store with a collection-per-knowledge-base
// layout, grounded on teilomillet-raggo's milvus-sdk-go/v2 usage and
// generalized to the schema spec.md §4.7 calls for.
type MilvusStore struct {
	client     client.Client
	collection string
	gate       *milvusCollectionGate
	dimension  int
}

// NewMilvusStore dials the Milvus address in cfg and binds the returned
// store to the given collection name.
func NewMilvusStore(ctx context.Context, cfg config.MilvusConfig, rdb redis.UniversalClient, collectionName string) (*MilvusStore, error) {
	c, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial milvus at %s: %w", cfg.Address, err)
	}

	return &MilvusStore{
		client:     c,
		collection: collectionName,
		gate:       newMilvusCollectionGate(rdb),
	}, nil
}

func (s *MilvusStore) CreateCollection(ctx context.Context, dimension int) error {
	s.dimension = dimension
	return s.gate.ensure(ctx, s.collection, func(ctx context.Context) error {
		has, err := s.client.HasCollection(ctx, s.collection)
		if err != nil {
			return fmt.Errorf("failed to check collection existence: %w", err)
		}
		if has {
			return nil
		}

		schema := entity.NewSchema().
			WithName(s.collection).
			WithDescription("knowledge base segments").
			WithField(entity.NewField().WithName(milvusFieldID).WithDataType(entity.FieldTypeInt64).WithIsPrimaryKey(true).WithIsAutoID(true)).
			WithField(entity.NewField().WithName(milvusFieldContent).WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535)).
			WithField(entity.NewField().WithName(milvusFieldMetadata).WithDataType(entity.FieldTypeJSON)).
			WithField(entity.NewField().WithName(milvusFieldVector).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dimension)))

		if err := s.client.CreateCollection(ctx, schema, 2); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
		}

		idx, err := entity.NewIndexHNSW(entity.IP, milvusHNSWM, milvusHNSWEfConstruction)
		if err != nil {
			return fmt.Errorf("failed to build HNSW index spec: %w", err)
		}
		if err := s.client.CreateIndex(ctx, s.collection, milvusFieldVector, idx, false); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", s.collection, err)
		}
		if err := s.client.LoadCollection(ctx, s.collection, false); err != nil {
			return fmt.Errorf("failed to load collection %s: %w", s.collection, err)
		}
		return nil
	})
}

func (s *MilvusStore) AddTexts(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	// Milvus has no native upsert-by-application-id here since the
	// primary key is auto-generated; re-delivery dedup relies on
	// deleting any existing rows for the segment id first.
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		id := d.ID
		if id == "" {
			id = SegmentID(d.PageContent)
		}
		ids = append(ids, id)
	}
	if err := s.DeleteByIDs(ctx, ids); err != nil {
		return fmt.Errorf("failed to clear existing segments before insert: %w", err)
	}

	contents := make([]string, len(docs))
	metadataJSON := make([][]byte, len(docs))
	vectors := make([][]float32, len(docs))
	dim := s.dimension
	for i, d := range docs {
		contents[i] = d.PageContent
		encoded, err := json.Marshal(mergeSegmentID(d))
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadataJSON[i] = encoded
		vectors[i] = d.Vector
		if dim == 0 {
			dim = len(d.Vector)
		}
	}

	_, err := s.client.Insert(ctx, s.collection, "",
		entity.NewColumnVarChar(milvusFieldContent, contents),
		entity.NewColumnJSONBytes(milvusFieldMetadata, metadataJSON),
		entity.NewColumnFloatVector(milvusFieldVector, dim, vectors),
	)
	if err != nil {
		return fmt.Errorf("failed to insert segments: %w", err)
	}
	return s.client.Flush(ctx, s.collection, false)
}

func mergeSegmentID(d Document) map[string]any {
	id := d.ID
	if id == "" {
		id = SegmentID(d.PageContent)
	}
	out := make(map[string]any, len(d.Metadata)+1)
	for k, v := range d.Metadata {
		out[k] = v
	}
	out["segment_id"] = id
	return out
}

func (s *MilvusStore) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	expr := fmt.Sprintf(`%s["segment_id"] in %s`, milvusFieldMetadata, jsonStringList(ids))
	if err := s.client.Delete(ctx, s.collection, "", expr); err != nil {
		return fmt.Errorf("failed to delete segments by id: %w", err)
	}
	return nil
}

func (s *MilvusStore) DeleteByMetadataField(ctx context.Context, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata filter value: %w", err)
	}
	expr := fmt.Sprintf(`%s["%s"] == %s`, milvusFieldMetadata, key, string(encoded))
	if err := s.client.Delete(ctx, s.collection, "", expr); err != nil {
		return fmt.Errorf("failed to delete by metadata field %s: %w", key, err)
	}
	return nil
}

func (s *MilvusStore) UpdateByID(ctx context.Context, id string, doc Document) error {
	if err := s.DeleteByIDs(ctx, []string{id}); err != nil {
		return err
	}
	doc.ID = id
	return s.AddTexts(ctx, []Document{doc})
}

func (s *MilvusStore) SearchByVector(ctx context.Context, vector []float32, topK int, filter MetadataFilter) ([]Document, error) {
	if topK == 0 {
		return nil, nil
	}
	if topK < 0 {
		topK = 3
	}

	sp, err := entity.NewIndexHNSWSearchParam(milvusSearchEf)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	expr := milvusFilterExpr(filter)
	results, err := s.client.Search(ctx, s.collection, nil, expr,
		[]string{milvusFieldContent, milvusFieldMetadata}, []entity.Vector{entity.FloatVector(vector)},
		milvusFieldVector, entity.IP, topK, sp)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	var docs []Document
	for _, res := range results {
		contentCol := res.Fields.GetColumn(milvusFieldContent)
		metadataCol := res.Fields.GetColumn(milvusFieldMetadata)
		for i := 0; i < res.ResultCount; i++ {
			content, _ := contentCol.GetAsString(i)
			var metadata map[string]any
			if metadataCol != nil {
				if raw, err := metadataCol.Get(i); err == nil {
					if b, ok := raw.([]byte); ok {
						json.Unmarshal(b, &metadata)
					}
				}
			}
			doc := Document{PageContent: content, Metadata: metadata}
			if i < len(res.Scores) {
				doc.Score = res.Scores[i]
			}
			if id, ok := metadata["segment_id"].(string); ok {
				doc.ID = id
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// SearchByFullText returns an empty result: Milvus has no native BM25/full
// text engine, so this backend cannot satisfy full text search (spec.md
// §9's open question resolves to "unsupported, return empty" for Milvus).
func (s *MilvusStore) SearchByFullText(ctx context.Context, opts FullTextSearchOptions) ([]Document, error) {
	return nil, nil
}

func (s *MilvusStore) GetMetadataKeyUniqueValues(ctx context.Context, key string) ([]string, error) {
	expr := fmt.Sprintf(`%s["%s"] != null`, milvusFieldMetadata, key)
	results, err := s.client.Query(ctx, s.collection, nil, expr, []string{milvusFieldMetadata})
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata key %s: %w", key, err)
	}

	seen := map[string]bool{}
	var values []string
	for _, col := range results {
		if col.Name() != milvusFieldMetadata {
			continue
		}
		for i := 0; i < col.Len(); i++ {
			raw, err := col.Get(i)
			if err != nil {
				continue
			}
			b, ok := raw.([]byte)
			if !ok {
				continue
			}
			var metadata map[string]any
			if err := json.Unmarshal(b, &metadata); err != nil {
				continue
			}
			v := fmt.Sprintf("%v", metadata[key])
			if !seen[v] {
				seen[v] = true
				values = append(values, v)
			}
		}
	}
	return values, nil
}

func (s *MilvusStore) Delete(ctx context.Context) error {
	has, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !has {
		return nil
	}
	if err := s.client.DropCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", s.collection, err)
	}
	return nil
}

func milvusFilterExpr(filter MetadataFilter) string {
	filter = filter.Normalize()
	if len(filter) == 0 {
		return ""
	}
	expr := ""
	for key, value := range filter {
		encoded, err := json.Marshal(value)
		if err != nil {
			continue
		}
		clause := fmt.Sprintf(`%s["%s"] == %s`, milvusFieldMetadata, key, string(encoded))
		if list, ok := value.([]any); ok {
			clause = fmt.Sprintf(`%s["%s"] in %s`, milvusFieldMetadata, key, mustJSONList(list))
		}
		if expr != "" {
			expr += " and "
		}
		expr += clause
	}
	return expr
}

func jsonStringList(ids []string) string {
	b, _ := json.Marshal(ids)
	return string(b)
}

func mustJSONList(list []any) string {
	b, _ := json.Marshal(list)
	return string(b)
}
