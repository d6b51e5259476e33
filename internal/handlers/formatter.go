package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/talentloop/talentsync/internal/repository"
	"github.com/talentloop/talentsync/internal/sync/formatter"
)

// FormatterHandler manages stored field mappings. Writes go to the
// database and the in-memory registry together; the registry is what run
// execution resolves against.
type FormatterHandler struct {
	repo     repository.FormatterRepository
	registry *formatter.Registry
	logger   zerolog.Logger
}

func NewFormatterHandler(repo repository.FormatterRepository, registry *formatter.Registry, logger zerolog.Logger) *FormatterHandler {
	return &FormatterHandler{repo: repo, registry: registry, logger: logger}
}

func (h *FormatterHandler) List(w http.ResponseWriter, r *http.Request) {
	specs := h.registry.List()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(specs)
}

func (h *FormatterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var spec formatter.Spec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	spec.ID = uuid.NewString()
	spec.CreatedAt = time.Now().UTC()

	if err := h.registry.Put(spec); err != nil {
		http.Error(w, "Invalid formatter spec: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.repo.Create(spec); err != nil {
		h.registry.Delete(spec.ID)
		http.Error(w, "Failed to persist formatter: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(spec)
}

func (h *FormatterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.repo.Delete(id); err != nil {
		http.Error(w, "Failed to delete formatter: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.registry.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}
