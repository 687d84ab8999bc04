package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
)

type createSegmentsRequest struct {
	Text      string           `json:"text"`
	Delimiter string           `json:"delimiter"`
	Metadata  map[string]any   `json:"metadata"`
}

// createSegments handles POST /knowledge-bases/{id}/segments: one segment
// per request, or N segments when delimiter splits text into multiple
// pieces, all sharing the request's metadata.
func (h *handlers) createSegments(w http.ResponseWriter, r *http.Request) {
	kbID := r.PathValue("id")

	var req createSegmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Text == "" {
		badRequest(w, "text is required")
		return
	}

	var texts []string
	if req.Delimiter != "" {
		for _, part := range strings.Split(req.Text, req.Delimiter) {
			if part != "" {
				texts = append(texts, part)
			}
		}
	} else {
		texts = []string{req.Text}
	}

	metadata := make([]map[string]any, len(texts))
	for i := range texts {
		metadata[i] = req.Metadata
	}

	identity := identityFromRequest(r)
	docs, err := h.deps.Facade.CreateSegments(r.Context(), kbID, identity.UserID, texts, metadata)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, docs)
}

func (h *handlers) deleteSegment(w http.ResponseWriter, r *http.Request) {
	kbID := r.PathValue("id")
	pk := r.PathValue("pk")
	if err := h.deps.Facade.DeleteSegment(r.Context(), kbID, pk); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type updateSegmentRequest struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

func (h *handlers) updateSegment(w http.ResponseWriter, r *http.Request) {
	kbID := r.PathValue("id")
	pk := r.PathValue("pk")

	var req updateSegmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Text == "" {
		badRequest(w, "text is required")
		return
	}

	if err := h.deps.Facade.UpdateSegment(r.Context(), kbID, pk, req.Text, req.Metadata); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
