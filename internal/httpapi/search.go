package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/northbound-system/kb-ingest/internal/vectorstore"
)

type searchHit struct {
	PK          string         `json:"pk"`
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
}

type searchResponse struct {
	Hits []searchHit `json:"hits"`
	Text string      `json:"text"`
}

// toSearchResponse tags each hit's metadata with its backend-computed
// score, per spec.md §4.7 ("tagged with a score in metadata when backend
// provides it").
func toSearchResponse(query string, docs []vectorstore.Document) searchResponse {
	hits := make([]searchHit, len(docs))
	for i, d := range docs {
		metadata := make(map[string]any, len(d.Metadata)+1)
		for k, v := range d.Metadata {
			metadata[k] = v
		}
		metadata["score"] = d.Score
		hits[i] = searchHit{PK: d.ID, PageContent: d.PageContent, Metadata: metadata}
	}
	return searchResponse{Hits: hits, Text: query}
}

type fulltextSearchRequest struct {
	Query          string                      `json:"query"`
	TopK           int                         `json:"topK"`
	From           int                         `json:"from"`
	Size           int                         `json:"size"`
	MetadataFilter vectorstore.MetadataFilter  `json:"metadata_filter"`
	SortByCreatedAt bool                       `json:"sortByCreatedAt"`
}

func (h *handlers) fulltextSearch(w http.ResponseWriter, r *http.Request) {
	kbID := r.PathValue("id")

	var req fulltextSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	opts := vectorstore.FullTextSearchOptions{
		Query:               req.Query,
		MetadataFilter:      req.MetadataFilter.Normalize(),
		From:                req.From,
		Size:                req.Size,
		SortByCreatedAtDesc: req.SortByCreatedAt,
	}
	if req.Size <= 0 && req.TopK > 0 {
		opts.Size = req.TopK
	}

	docs, err := h.deps.Facade.SearchByFullText(r.Context(), kbID, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSearchResponse(req.Query, docs))
}

type vectorSearchRequest struct {
	Query          string                     `json:"query"`
	TopK           *int                       `json:"topK"`
	MetadataFilter vectorstore.MetadataFilter `json:"metadata_filter"`
}

// vectorSearch handles POST /knowledge-bases/{id}/vector-search. TopK is a
// pointer so an omitted field (default to 3) is distinguishable from an
// explicit 0 (spec.md §8: "top_k=0 returns empty").
func (h *handlers) vectorSearch(w http.ResponseWriter, r *http.Request) {
	kbID := r.PathValue("id")

	var req vectorSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Query == "" {
		badRequest(w, "query is required")
		return
	}

	topK := -1
	if req.TopK != nil {
		topK = *req.TopK
	}

	docs, err := h.deps.Facade.SearchByVector(r.Context(), kbID, req.Query, topK, req.MetadataFilter.Normalize())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSearchResponse(req.Query, docs))
}
