package httpapi

import (
	"net/http"

	"github.com/northbound-system/kb-ingest/internal/metadatastore"
)

// listMetadataFields handles GET /knowledge-bases/{id}/metadata-fields:
// built-in keys plus every per-KB registered key.
func (h *handlers) listMetadataFields(w http.ResponseWriter, r *http.Request) {
	kbID := r.PathValue("id")

	fields, err := h.deps.Metadata.ListMetadataFields(kbID)
	if err != nil {
		writeError(w, err)
		return
	}

	keys := make([]string, 0, len(metadatastore.BuiltinMetadataKeys)+len(fields))
	for builtin := range metadatastore.BuiltinMetadataKeys {
		keys = append(keys, builtin)
	}
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	writeJSON(w, http.StatusOK, keys)
}

func (h *handlers) metadataFieldValues(w http.ResponseWriter, r *http.Request) {
	kbID := r.PathValue("id")
	key := r.PathValue("key")

	values, err := h.deps.Facade.MetadataKeyUniqueValues(r.Context(), kbID, key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, values)
}
