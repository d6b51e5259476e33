package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/talentloop/talentsync/internal/sync/filter"
	"github.com/talentloop/talentsync/internal/sync/schema"
	"github.com/talentloop/talentsync/internal/sync/unified"
)

// SchemaFn resolves the native record type for a connector kind.
type SchemaFn func(resource filter.Resource) *schema.RecordType

// SchemaHandler exposes record type metadata so clients can build filter
// and mapping pickers without hardcoding field lists.
type SchemaHandler struct {
	kinds map[string]SchemaFn
}

func NewSchemaHandler(kinds map[string]SchemaFn) *SchemaHandler {
	return &SchemaHandler{kinds: kinds}
}

func (h *SchemaHandler) GetUnified(w http.ResponseWriter, r *http.Request) {
	resource, err := filter.ParseResource(mux.Vars(r)["resource"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.write(w, r, unified.ByResource(resource))
}

func (h *SchemaHandler) GetConnector(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	fn, ok := h.kinds[vars["kind"]]
	if !ok {
		http.Error(w, "Unknown connector kind: "+vars["kind"], http.StatusNotFound)
		return
	}
	resource, err := filter.ParseResource(vars["resource"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.write(w, r, fn(resource))
}

func (h *SchemaHandler) write(w http.ResponseWriter, r *http.Request, rt *schema.RecordType) {
	prefilterableOnly := r.URL.Query().Get("prefilterable") == "true"
	resp := map[string]any{
		"name":     rt.Name(),
		"resource": rt.Resource(),
		"fields":   rt.Export(prefilterableOnly),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
