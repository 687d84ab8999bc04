package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/northbound-system/kb-ingest/internal/apierr"
	"github.com/northbound-system/kb-ingest/internal/extractor"
	"github.com/northbound-system/kb-ingest/internal/metadatastore"
	"github.com/northbound-system/kb-ingest/internal/orchestrator"
	"github.com/northbound-system/kb-ingest/internal/queue"
	"github.com/northbound-system/kb-ingest/internal/source"
)

const ingestJobType = "kb.ingest"

type splitterConfigRequest struct {
	ChunkSize    int    `json:"chunkSize"`
	ChunkOverlap int    `json:"chunkOverlap"`
	Separator    string `json:"separator"`
}

type submitDocumentRequest struct {
	FileURL         string                       `json:"fileURL"`
	FileName        string                       `json:"fileName"`
	OSSType         string                       `json:"ossType"`
	OSSConfig       *source.ObjectStoreConfig    `json:"ossConfig"`
	SplitterType    string                       `json:"splitterType"`
	SplitterConfig  splitterConfigRequest        `json:"splitterConfig"`
	PreProcessRules []extractor.PreprocessRule   `json:"preProcessRules"`
	JQSchema        string                       `json:"jqSchema"`
}

// submitDocument handles POST /knowledge-bases/{id}/documents: validates
// the request names either a file (fileURL+fileName) or an object-store
// prefix (ossType+ossConfig), creates a Task row, and enqueues the
// orchestrator's Payload for a worker to pick up.
func (h *handlers) submitDocument(w http.ResponseWriter, r *http.Request) {
	kbID := r.PathValue("id")
	if _, err := h.deps.Metadata.GetKnowledgeBase(kbID); err != nil {
		writeError(w, err)
		return
	}

	var req submitDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	hasFile := req.FileURL != "" && req.FileName != ""
	hasOSS := req.OSSType != "" && req.OSSConfig != nil
	if hasFile == hasOSS {
		badRequest(w, "exactly one of (fileURL, fileName) or (ossType, ossConfig) must be provided")
		return
	}

	identity := identityFromRequest(r)
	taskID := newID()

	if err := h.deps.Metadata.CreateTask(metadatastore.Task{
		ID:              taskID,
		KnowledgeBaseID: kbID,
		Status:          metadatastore.TaskStatusPending,
	}); err != nil {
		writeError(w, err)
		return
	}

	payload := orchestrator.Payload{
		TaskID:          taskID,
		KnowledgeBaseID: kbID,
		UserID:          identity.UserID,
		FileURL:         req.FileURL,
		Filename:        req.FileName,
		OSSType:         req.OSSType,
		OSSConfig:       req.OSSConfig,
		ChunkSize:       req.SplitterConfig.ChunkSize,
		ChunkOverlap:    req.SplitterConfig.ChunkOverlap,
		Separator:       req.SplitterConfig.Separator,
		PreProcessRules: req.PreProcessRules,
		JQSchema:        req.JQSchema,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		writeError(w, err)
		return
	}

	job := queue.Job{Type: ingestJobType, Payload: raw, CreatedAt: time.Now()}
	if err := h.deps.Queue.Enqueue(r.Context(), job); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

func (h *handlers) listDocuments(w http.ResponseWriter, r *http.Request) {
	kbID := r.PathValue("id")
	docs, err := h.deps.Metadata.ListDocuments(kbID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// deleteDocument handles DELETE /knowledge-bases/{id}/documents/{doc_id}:
// removes every segment carrying this document_id, then the Document row.
// A missing document is a no-op, not an error (spec.md §8).
func (h *handlers) deleteDocument(w http.ResponseWriter, r *http.Request) {
	kbID := r.PathValue("id")
	docID := r.PathValue("doc_id")

	if err := h.deps.Facade.DeleteDocumentSegments(r.Context(), kbID, docID); err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.Metadata.DeleteDocument(docID); err != nil && !errors.Is(err, apierr.ErrNotFound) {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	kbID := r.PathValue("id")
	tasks, err := h.deps.Metadata.ListTasks(kbID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *handlers) getTask(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("task_id")
	task, err := h.deps.Metadata.GetTask(taskID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
