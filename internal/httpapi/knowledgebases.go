package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/northbound-system/kb-ingest/internal/apierr"
	"github.com/northbound-system/kb-ingest/internal/metadatastore"
)

type createKnowledgeBaseRequest struct {
	EmbeddingModel string `json:"embeddingModel"`
	DisplayName    string `json:"displayName"`
	IconURL        string `json:"iconUrl"`
	Description    string `json:"description"`
}

// createKnowledgeBase handles POST /knowledge-bases/. The embedding
// model's configured dimension is looked up once here and frozen onto the
// KB row; it never changes afterwards.
func (h *handlers) createKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	var req createKnowledgeBaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.EmbeddingModel == "" {
		badRequest(w, "embeddingModel is required")
		return
	}

	model, ok := h.deps.Embeddings.ModelConfig(req.EmbeddingModel)
	if !ok || !model.Enabled {
		badRequest(w, "unknown or disabled embeddingModel: "+req.EmbeddingModel)
		return
	}

	kb := metadatastore.KnowledgeBase{
		ID:             newID(),
		EmbeddingModel: req.EmbeddingModel,
		Dimension:      model.Dimension,
		DisplayName:    req.DisplayName,
		IconURL:        req.IconURL,
		Description:    req.Description,
	}
	if err := h.deps.Metadata.CreateKnowledgeBase(kb); err != nil {
		writeError(w, err)
		return
	}

	store, err := h.deps.Resolve(kb)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := store.CreateCollection(r.Context(), kb.Dimension); err != nil {
		writeError(w, err)
		return
	}

	kb, err = h.deps.Metadata.GetKnowledgeBase(kb.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, kb)
}

// deleteKnowledgeBase handles DELETE /knowledge-bases/{id}: best-effort
// drop of the vector collection, then the KB row and everything under it.
// A non-existent knowledge base is a no-op, not an error (spec.md §4.1's
// idempotent delete_knowledge_base), matching deleteDocument's semantics.
func (h *handlers) deleteKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	kb, err := h.deps.Metadata.GetKnowledgeBase(id)
	if err != nil {
		if errors.Is(err, apierr.ErrNotFound) {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		writeError(w, err)
		return
	}

	if store, resolveErr := h.deps.Resolve(kb); resolveErr == nil {
		_ = store.Delete(r.Context())
	}

	if err := h.deps.Metadata.DeleteKnowledgeBase(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
