package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	elastic "github.com/olivere/elastic/v7"

	"github.com/northbound-system/kb-ingest/internal/config"
)

// ElasticsearchStore implements Store with an index-per-knowledge-base
// layout, grounded on the original implementation's es_vector.py and
// generalized to olivere/elastic/v7's client surface.
type ElasticsearchStore struct {
	client *elastic.Client
	index  string
	cfg    config.ElasticsearchConfig
}

// NewElasticsearchStore opens a client against cfg and binds it to the
// given knowledge base's index.
func NewElasticsearchStore(cfg config.ElasticsearchConfig, indexName string) (*ElasticsearchStore, error) {
	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(cfg.URL),
		elastic.SetSniff(false),
	}
	if cfg.Username != "" {
		opts = append(opts, elastic.SetBasicAuth(cfg.Username, cfg.Password))
	}
	if cfg.KNNNumCandidates <= 0 {
		cfg.KNNNumCandidates = 100
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}

	client, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchStore{client: client, index: indexName, cfg: cfg}, nil
}

type esDoc struct {
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
	Embeddings  []float32      `json:"embeddings"`
}

// CreateCollection creates the index with a dense_vector field using
// l2_norm similarity, matching the original's field mapping.
func (s *ElasticsearchStore) CreateCollection(ctx context.Context, dimension int) error {
	exists, err := s.client.IndexExists(s.index).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	if exists {
		return nil
	}

	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"page_content": map[string]any{"type": "text"},
				"embeddings": map[string]any{
					"type":       "dense_vector",
					"dims":       dimension,
					"similarity": "l2_norm",
					"index":      true,
				},
				"metadata": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"created_at":  map[string]any{"type": "date"},
						"filename":    map[string]any{"type": "keyword"},
						"document_id": map[string]any{"type": "keyword"},
						"user_id":     map[string]any{"type": "keyword"},
					},
				},
			},
		},
	}

	_, err = s.client.CreateIndex(s.index).BodyJson(mapping).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", s.index, err)
	}
	return nil
}

// AddTexts bulk-upserts documents in batches of cfg.BatchSize, indexed by
// SegmentID(page_content). A failure in one batch aborts the whole call.
func (s *ElasticsearchStore) AddTexts(ctx context.Context, docs []Document) error {
	for start := 0; start < len(docs); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(docs) {
			end = len(docs)
		}

		bulk := s.client.Bulk()
		for _, doc := range docs[start:end] {
			id := doc.ID
			if id == "" {
				id = SegmentID(doc.PageContent)
			}
			source := esDoc{PageContent: doc.PageContent, Metadata: doc.Metadata, Embeddings: doc.Vector}
			req := elastic.NewBulkIndexRequest().Index(s.index).Id(id).Doc(source)
			bulk = bulk.Add(req)
		}

		resp, err := bulk.Do(ctx)
		if err != nil {
			return fmt.Errorf("bulk upsert failed: %w", err)
		}
		if resp.Errors {
			return fmt.Errorf("bulk upsert reported per-item failures in batch starting at %d", start)
		}
	}
	return nil
}

func (s *ElasticsearchStore) DeleteByIDs(ctx context.Context, ids []string) error {
	bulk := s.client.Bulk()
	for _, id := range ids {
		bulk = bulk.Add(elastic.NewBulkDeleteRequest().Index(s.index).Id(id))
	}
	if bulk.NumberOfActions() == 0 {
		return nil
	}
	_, err := bulk.Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete by ids: %w", err)
	}
	return nil
}

func (s *ElasticsearchStore) DeleteByMetadataField(ctx context.Context, key string, value any) error {
	query := elastic.NewTermQuery(fmt.Sprintf("metadata.%s", key), value)
	_, err := s.client.DeleteByQuery(s.index).Query(query).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete by metadata field %s: %w", key, err)
	}
	return nil
}

func (s *ElasticsearchStore) UpdateByID(ctx context.Context, id string, doc Document) error {
	source := esDoc{PageContent: doc.PageContent, Metadata: doc.Metadata, Embeddings: doc.Vector}
	_, err := s.client.Index().Index(s.index).Id(id).BodyJson(source).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", id, err)
	}
	return nil
}

func (s *ElasticsearchStore) SearchByVector(ctx context.Context, vector []float32, topK int, filter MetadataFilter) ([]Document, error) {
	if topK == 0 {
		return nil, nil
	}
	if topK < 0 {
		topK = 3
	}

	knn := map[string]any{
		"field":          "embeddings",
		"query_vector":   vector,
		"k":              topK,
		"num_candidates": s.cfg.KNNNumCandidates,
	}

	body := map[string]any{"knn": knn}
	if mustClauses := filterClauses(filter); len(mustClauses) > 0 {
		body["query"] = map[string]any{"bool": map[string]any{"must": mustClauses}}
	}

	resp, err := s.client.Search().Index(s.index).Source(body).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return hitsToDocuments(resp, true)
}

func (s *ElasticsearchStore) SearchByFullText(ctx context.Context, opts FullTextSearchOptions) ([]Document, error) {
	opts = opts.WithDefaults()

	var must []any
	if opts.Query != "" {
		must = append(must, map[string]any{"match": map[string]any{"page_content": opts.Query}})
	}
	must = append(must, filterClauses(opts.MetadataFilter)...)

	search := s.client.Search().Index(s.index).
		Query(elastic.NewRawStringQuery(mustJSON(must))).
		From(opts.From).Size(opts.Size)

	if opts.SortByCreatedAtDesc {
		search = search.Sort("metadata.created_at", false)
	}

	resp, err := search.Do(ctx)
	if err != nil {
		if elastic.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("full text search failed: %w", err)
	}
	return hitsToDocuments(resp, false)
}

func (s *ElasticsearchStore) GetMetadataKeyUniqueValues(ctx context.Context, key string) ([]string, error) {
	agg := elastic.NewTermsAggregation().Field(fmt.Sprintf("metadata.%s", key)).Size(1000)
	resp, err := s.client.Search().Index(s.index).Aggregation("values", agg).Size(0).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate metadata key %s: %w", key, err)
	}

	terms, found := resp.Aggregations.Terms("values")
	if !found {
		return nil, nil
	}

	var values []string
	for _, bucket := range terms.Buckets {
		values = append(values, fmt.Sprintf("%v", bucket.Key))
	}
	return values, nil
}

func (s *ElasticsearchStore) Delete(ctx context.Context) error {
	exists, err := s.client.IndexExists(s.index).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	if !exists {
		return nil
	}
	_, err = s.client.DeleteIndex(s.index).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete index %s: %w", s.index, err)
	}
	return nil
}

func filterClauses(filter MetadataFilter) []any {
	filter = filter.Normalize()
	var clauses []any
	for key, value := range filter {
		field := fmt.Sprintf("metadata.%s.keyword", key)
		if list, ok := value.([]any); ok {
			clauses = append(clauses, map[string]any{"terms": map[string]any{field: list}})
			continue
		}
		clauses = append(clauses, map[string]any{"term": map[string]any{field: value}})
	}
	return clauses
}

func mustJSON(must []any) string {
	b, _ := json.Marshal(map[string]any{"bool": map[string]any{"must": must}})
	return string(b)
}

func hitsToDocuments(resp *elastic.SearchResult, withScore bool) ([]Document, error) {
	if resp == nil || resp.Hits == nil {
		return nil, nil
	}

	docs := make([]Document, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		var source esDoc
		if err := json.Unmarshal(hit.Source, &source); err != nil {
			return nil, fmt.Errorf("failed to decode hit %s: %w", hit.Id, err)
		}
		doc := Document{ID: hit.Id, PageContent: source.PageContent, Metadata: source.Metadata, Vector: source.Embeddings}
		if withScore && hit.Score != nil {
			doc.Score = float32(*hit.Score)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
