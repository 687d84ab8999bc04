package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/northbound-system/kb-ingest/internal/embedding"
	"github.com/northbound-system/kb-ingest/internal/metadatastore"
	"github.com/northbound-system/kb-ingest/internal/query"
	"github.com/northbound-system/kb-ingest/internal/queue"
	"github.com/northbound-system/kb-ingest/internal/vectorstore"
)

// fakeStore is an in-memory vectorstore.Store double, matching the one in
// internal/query/facade_test.go, kept separate since Go doesn't let
// internal test helpers cross package boundaries.
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
	if topK < 0 {
		topK = 0
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

// fakeQueue records enqueued jobs instead of talking to Redis.
type fakeQueue struct {
	jobs []queue.Job
}

func (q *fakeQueue) Enqueue(ctx context.Context, job queue.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Dequeue(ctx context.Context) (queue.Job, error) {
	if len(q.jobs) == 0 {
		return queue.Job{}, context.Canceled
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, nil
}

type testServer struct {
	mux   http.Handler
	meta  *metadatastore.Store
	store *fakeStore
	queue *fakeQueue
}

func newTestServer(t *testing.T) *testServer {
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

	registry := embedding.NewRegistry([]embedding.ModelConfig{{
		Name: "test-model", Dimension: 3, Enabled: true, Type: "api",
		API: embedding.APIConfig{URL: "http://unused.invalid", ResultPath: "data"},
	}})

	store := &fakeStore{}
	resolve := func(metadatastore.KnowledgeBase) (vectorstore.Store, error) { return store, nil }
	facade := query.New(metaStore, registry, resolve)
	q := &fakeQueue{}

	mux := NewMux(Dependencies{
		Metadata:   metaStore,
		Facade:     facade,
		Embeddings: registry,
		Queue:      q,
		Resolve:    resolve,
	})

	return &testServer{mux: mux, meta: metaStore, store: store, queue: q}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateKnowledgeBase_UnknownModelIsRejected(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/knowledge-bases/", map[string]string{"embeddingModel": "nope"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateKnowledgeBase_Succeeds(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/knowledge-bases/", map[string]string{
		"embeddingModel": "test-model",
		"displayName":    "Docs",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var kb metadatastore.KnowledgeBase
	if err := json.Unmarshal(rec.Body.Bytes(), &kb); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if kb.Dimension != 3 {
		t.Errorf("expected dimension 3 from model config, got %d", kb.Dimension)
	}
}

func TestSubmitDocument_RequiresExactlyOneSource(t *testing.T) {
	s := newTestServer(t)
	if err := s.meta.CreateKnowledgeBase(metadatastore.KnowledgeBase{ID: "kb-1", EmbeddingModel: "test-model", Dimension: 3}); err != nil {
		t.Fatalf("failed to seed knowledge base: %v", err)
	}

	rec := s.do(t, http.MethodPost, "/knowledge-bases/kb-1/documents", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a request naming no source, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitDocument_EnqueuesIngestionJob(t *testing.T) {
	s := newTestServer(t)
	if err := s.meta.CreateKnowledgeBase(metadatastore.KnowledgeBase{ID: "kb-1", EmbeddingModel: "test-model", Dimension: 3}); err != nil {
		t.Fatalf("failed to seed knowledge base: %v", err)
	}

	rec := s.do(t, http.MethodPost, "/knowledge-bases/kb-1/documents", map[string]any{
		"fileURL":  "https://example.com/doc.txt",
		"fileName": "doc.txt",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(s.queue.jobs) != 1 {
		t.Fatalf("expected exactly one enqueued job, got %d", len(s.queue.jobs))
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	tasks, err := s.meta.ListTasks("kb-1")
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != resp["task_id"] {
		t.Fatalf("expected the created task to match the response task_id, got tasks=%+v resp=%+v", tasks, resp)
	}
}

func TestDeleteDocument_NonExistentIsNoOp(t *testing.T) {
	s := newTestServer(t)
	if err := s.meta.CreateKnowledgeBase(metadatastore.KnowledgeBase{ID: "kb-1", EmbeddingModel: "test-model", Dimension: 3}); err != nil {
		t.Fatalf("failed to seed knowledge base: %v", err)
	}

	rec := s.do(t, http.MethodDelete, "/knowledge-bases/kb-1/documents/missing-doc", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected deleting a non-existent document to be a no-op success, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestVectorSearch_TopKZeroReturnsEmpty(t *testing.T) {
	s := newTestServer(t)
	if err := s.meta.CreateKnowledgeBase(metadatastore.KnowledgeBase{ID: "kb-1", EmbeddingModel: "test-model", Dimension: 3}); err != nil {
		t.Fatalf("failed to seed knowledge base: %v", err)
	}
	s.store.docs = []vectorstore.Document{{ID: "a", PageContent: "hello"}}

	zero := 0
	body, _ := json.Marshal(vectorSearchRequest{Query: "hello", TopK: &zero})
	req := httptest.NewRequest(http.MethodPost, "/knowledge-bases/kb-1/vector-search", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	var resp searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Hits) != 0 {
		t.Errorf("expected topK=0 to return no hits, got %d", len(resp.Hits))
	}
}

func TestDeleteKnowledgeBase_NonExistentIsNoOp(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodDelete, "/knowledge-bases/missing-kb", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected deleting a non-existent knowledge base to be a no-op success, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteKnowledgeBase_RepeatedDeleteSucceeds(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/knowledge-bases/", map[string]string{"embeddingModel": "test-model"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var kb metadatastore.KnowledgeBase
	if err := json.Unmarshal(rec.Body.Bytes(), &kb); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	first := s.do(t, http.MethodDelete, "/knowledge-bases/"+kb.ID, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("expected first delete to succeed, got %d: %s", first.Code, first.Body.String())
	}
	second := s.do(t, http.MethodDelete, "/knowledge-bases/"+kb.ID, nil)
	if second.Code != http.StatusOK {
		t.Fatalf("expected repeated delete to be idempotent, got %d: %s", second.Code, second.Body.String())
	}
}

func TestDeleteSegment_RemovesFromVectorStore(t *testing.T) {
	s := newTestServer(t)
	if err := s.meta.CreateKnowledgeBase(metadatastore.KnowledgeBase{ID: "kb-1", EmbeddingModel: "test-model", Dimension: 3}); err != nil {
		t.Fatalf("failed to seed knowledge base: %v", err)
	}
	s.store.docs = []vectorstore.Document{{ID: "seg-1", PageContent: "hello"}}

	rec := s.do(t, http.MethodDelete, "/knowledge-bases/kb-1/segments/seg-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(s.store.docs) != 0 {
		t.Errorf("expected segment to be removed from the vector store, got %+v", s.store.docs)
	}
}
