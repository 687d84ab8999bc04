package metadatastore

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/northbound-system/kb-ingest/internal/apierr"

	_ "github.com/mattn/go-sqlite3"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := New(db)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestKnowledgeBase_CreateGetUpdateDelete(t *testing.T) {
	s := newTestStore(t)

	kb := KnowledgeBase{ID: "kb1", EmbeddingModel: "text-embedding-3-small", Dimension: 1536, DisplayName: "Docs"}
	if err := s.CreateKnowledgeBase(kb); err != nil {
		t.Fatalf("CreateKnowledgeBase failed: %v", err)
	}

	got, err := s.GetKnowledgeBase("kb1")
	if err != nil {
		t.Fatalf("GetKnowledgeBase failed: %v", err)
	}
	if got.Dimension != 1536 || got.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("unexpected knowledge base: %+v", got)
	}

	if err := s.UpdateKnowledgeBase("kb1", "Docs v2", "", "updated"); err != nil {
		t.Fatalf("UpdateKnowledgeBase failed: %v", err)
	}
	got, _ = s.GetKnowledgeBase("kb1")
	if got.DisplayName != "Docs v2" {
		t.Errorf("expected display name to update, got %q", got.DisplayName)
	}

	if err := s.DeleteKnowledgeBase("kb1"); err != nil {
		t.Fatalf("DeleteKnowledgeBase failed: %v", err)
	}
	if _, err := s.GetKnowledgeBase("kb1"); !errors.Is(err, apierr.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCreateKnowledgeBase_ValidationError(t *testing.T) {
	s := newTestStore(t)
	err := s.CreateKnowledgeBase(KnowledgeBase{ID: "kb1"})
	if !errors.Is(err, apierr.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestDocument_LifecycleTransitions(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateKnowledgeBase(KnowledgeBase{ID: "kb1", EmbeddingModel: "m", Dimension: 8}); err != nil {
		t.Fatalf("CreateKnowledgeBase failed: %v", err)
	}

	doc := Document{ID: "doc1", KnowledgeBaseID: "kb1", Filename: "a.txt"}
	if err := s.CreateDocument(doc); err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	got, err := s.GetDocument("doc1")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if got.IndexStatus != DocStatusPending {
		t.Errorf("expected new document to be pending, got %s", got.IndexStatus)
	}

	if err := s.UpdateDocumentStatus("doc1", DocStatusInProgress, ""); err != nil {
		t.Fatalf("UpdateDocumentStatus failed: %v", err)
	}
	if err := s.UpdateDocumentStatus("doc1", DocStatusFailed, "extractor timed out"); err != nil {
		t.Fatalf("UpdateDocumentStatus failed: %v", err)
	}

	got, _ = s.GetDocument("doc1")
	if got.IndexStatus != DocStatusFailed || got.FailedMessage != "extractor timed out" {
		t.Errorf("unexpected document state: %+v", got)
	}

	docs, err := s.ListDocuments("kb1")
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("expected 1 document, got %d", len(docs))
	}
}

func TestTask_ProgressIsMonotonic(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateKnowledgeBase(KnowledgeBase{ID: "kb1", EmbeddingModel: "m", Dimension: 8}); err != nil {
		t.Fatalf("CreateKnowledgeBase failed: %v", err)
	}
	if err := s.CreateTask(Task{ID: "task1", KnowledgeBaseID: "kb1"}); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if err := s.UpdateTaskProgress("task1", TaskStatusInProgress, 0.5, "halfway"); err != nil {
		t.Fatalf("UpdateTaskProgress failed: %v", err)
	}

	// A late update reporting a lower progress must not roll the task back.
	if err := s.UpdateTaskProgress("task1", TaskStatusInProgress, 0.2, "stale"); err != nil {
		t.Fatalf("UpdateTaskProgress failed: %v", err)
	}

	got, err := s.GetTask("task1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Progress != 0.5 || got.LatestMessage != "halfway" {
		t.Errorf("expected progress to stay at the high-water mark, got %+v", got)
	}

	if err := s.UpdateTaskProgress("task1", TaskStatusCompleted, 1.0, "done"); err != nil {
		t.Fatalf("UpdateTaskProgress failed: %v", err)
	}
	got, _ = s.GetTask("task1")
	if got.Status != TaskStatusCompleted || got.Progress != 1.0 {
		t.Errorf("expected task to be completed at progress 1.0, got %+v", got)
	}
}

func TestMetadataFields_RegisterSkipsBuiltins(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateKnowledgeBase(KnowledgeBase{ID: "kb1", EmbeddingModel: "m", Dimension: 8}); err != nil {
		t.Fatalf("CreateKnowledgeBase failed: %v", err)
	}

	err := s.RegisterMetadataKeys("kb1", []string{"document_id", "category", "created_at", "category"})
	if err != nil {
		t.Fatalf("RegisterMetadataKeys failed: %v", err)
	}

	fields, err := s.ListMetadataFields("kb1")
	if err != nil {
		t.Fatalf("ListMetadataFields failed: %v", err)
	}
	if len(fields) != 1 || fields[0].Key != "category" {
		t.Errorf("expected only the single non-builtin key registered once, got %+v", fields)
	}
}
