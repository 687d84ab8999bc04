package query

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/northbound-system/kb-ingest/internal/embedding"
	"github.com/northbound-system/kb-ingest/internal/metadatastore"
	"github.com/northbound-system/kb-ingest/internal/vectorstore"
)

// fakeStore is an in-memory vectorstore.Store double for exercising the
// facade without a live backend.
type fakeStore struct {
	docs []vectorstore.Document
}

func (f *fakeStore) CreateCollection(ctx context.Context, dimension int) error { return nil }

func (f *fakeStore) AddTexts(ctx context.Context, docs []vectorstore.Document) error {
	f.docs = append(f.docs, docs...)
	return nil
}

func (f *fakeStore) DeleteByIDs(ctx context.Context, ids []string) error {
	idSet := map[string]bool{}
	for _, id := range ids {
		idSet[id] = true
	}
	var kept []vectorstore.Document
	for _, d := range f.docs {
		if !idSet[d.ID] {
			kept = append(kept, d)
		}
	}
	f.docs = kept
	return nil
}

func (f *fakeStore) DeleteByMetadataField(ctx context.Context, key string, value any) error {
	var kept []vectorstore.Document
	for _, d := range f.docs {
		if d.Metadata[key] != value {
			kept = append(kept, d)
		}
	}
	f.docs = kept
	return nil
}

func (f *fakeStore) UpdateByID(ctx context.Context, id string, doc vectorstore.Document) error {
	return nil
}

func (f *fakeStore) SearchByVector(ctx context.Context, vector []float32, topK int, filter vectorstore.MetadataFilter) ([]vectorstore.Document, error) {
	if topK > len(f.docs) {
		topK = len(f.docs)
	}
	return f.docs[:topK], nil
}

func (f *fakeStore) SearchByFullText(ctx context.Context, opts vectorstore.FullTextSearchOptions) ([]vectorstore.Document, error) {
	return f.docs, nil
}

func (f *fakeStore) GetMetadataKeyUniqueValues(ctx context.Context, key string) ([]string, error) {
	seen := map[string]bool{}
	var values []string
	for _, d := range f.docs {
		if v, ok := d.Metadata[key]; ok {
			s, _ := v.(string)
			if !seen[s] {
				seen[s] = true
				values = append(values, s)
			}
		}
	}
	return values, nil
}

func (f *fakeStore) Delete(ctx context.Context) error { return nil }

func newTestFacade(t *testing.T) (*Facade, *fakeStore) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	metaStore, err := metadatastore.New(db)
	if err != nil {
		t.Fatalf("failed to init metadata store: %v", err)
	}

	kb := metadatastore.KnowledgeBase{ID: "kb-1", EmbeddingModel: "test-model", Dimension: 3}
	if err := metaStore.CreateKnowledgeBase(kb); err != nil {
		t.Fatalf("failed to create knowledge base: %v", err)
	}

	registry := embedding.NewRegistry([]embedding.ModelConfig{{
		Name: "test-model", Dimension: 3, Enabled: true, Type: "api",
		API: embedding.APIConfig{URL: "http://unused.invalid", ResultPath: "data"},
	}})

	store := &fakeStore{}
	facade := New(metaStore, registry, func(metadatastore.KnowledgeBase) (vectorstore.Store, error) {
		return store, nil
	})
	return facade, store
}

func TestMetadataKeyUniqueValues_ReturnsDistinctValues(t *testing.T) {
	facade, store := newTestFacade(t)
	store.docs = []vectorstore.Document{
		{ID: "a", Metadata: map[string]any{"filename": "one.pdf"}},
		{ID: "b", Metadata: map[string]any{"filename": "two.pdf"}},
		{ID: "c", Metadata: map[string]any{"filename": "one.pdf"}},
	}

	values, err := facade.MetadataKeyUniqueValues(context.Background(), "kb-1", "filename")
	if err != nil {
		t.Fatalf("MetadataKeyUniqueValues failed: %v", err)
	}
	if len(values) != 2 {
		t.Errorf("expected 2 distinct values, got %d: %+v", len(values), values)
	}
}

func TestDeleteDocumentSegments_FiltersByDocumentID(t *testing.T) {
	facade, store := newTestFacade(t)
	store.docs = []vectorstore.Document{
		{ID: "a", Metadata: map[string]any{"document_id": "doc-1"}},
		{ID: "b", Metadata: map[string]any{"document_id": "doc-2"}},
	}

	if err := facade.DeleteDocumentSegments(context.Background(), "kb-1", "doc-1"); err != nil {
		t.Fatalf("DeleteDocumentSegments failed: %v", err)
	}
	if len(store.docs) != 1 || store.docs[0].ID != "b" {
		t.Errorf("expected only doc-2's segment to survive, got %+v", store.docs)
	}
}

func TestSearchByFullText_UnknownKnowledgeBase(t *testing.T) {
	facade, _ := newTestFacade(t)
	_, err := facade.SearchByFullText(context.Background(), "missing-kb", vectorstore.FullTextSearchOptions{})
	if err == nil {
		t.Error("expected an error for an unknown knowledge base")
	}
}

func TestMetadataKeyUniqueValues_RejectsUnregisteredKey(t *testing.T) {
	facade, _ := newTestFacade(t)
	_, err := facade.MetadataKeyUniqueValues(context.Background(), "kb-1", "robots' OR '1'='1")
	if err == nil {
		t.Fatal("expected an error for an unregistered metadata key")
	}
}

func TestCreateSegments_StampsBuiltinMetadata(t *testing.T) {
	facade, store := newTestFacade(t)

	docs, err := facade.CreateSegments(context.Background(), "kb-1", "user-42",
		[]string{"hello world"}, []map[string]any{{"topic": "greetings"}})
	if err != nil {
		t.Fatalf("CreateSegments failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(docs))
	}
	if docs[0].Metadata["user_id"] != "user-42" {
		t.Errorf("expected user_id to be stamped, got %+v", docs[0].Metadata)
	}
	if _, ok := docs[0].Metadata["created_at"].(int64); !ok {
		t.Errorf("expected created_at to be a Unix-seconds int64, got %+v", docs[0].Metadata["created_at"])
	}
	if len(store.docs) != 1 {
		t.Fatalf("expected the segment to reach the vector store, got %+v", store.docs)
	}

	fields, err := facade.Metadata.ListMetadataFields("kb-1")
	if err != nil {
		t.Fatalf("ListMetadataFields failed: %v", err)
	}
	if len(fields) != 1 || fields[0].Key != "topic" {
		t.Errorf("expected topic to be registered, got %+v", fields)
	}
}

func TestUpdateSegment_RegistersNewMetadataKeys(t *testing.T) {
	facade, store := newTestFacade(t)
	store.docs = []vectorstore.Document{{ID: "seg-1", PageContent: "old"}}

	if err := facade.UpdateSegment(context.Background(), "kb-1", "seg-1", "new", map[string]any{"category": "faq"}); err != nil {
		t.Fatalf("UpdateSegment failed: %v", err)
	}

	fields, err := facade.Metadata.ListMetadataFields("kb-1")
	if err != nil {
		t.Fatalf("ListMetadataFields failed: %v", err)
	}
	if len(fields) != 1 || fields[0].Key != "category" {
		t.Errorf("expected category to be registered, got %+v", fields)
	}
}
