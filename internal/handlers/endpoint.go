package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/talentloop/talentsync/internal/connectors"
	"github.com/talentloop/talentsync/internal/models"
	"github.com/talentloop/talentsync/internal/repository"
	"github.com/talentloop/talentsync/internal/sync/filter"
)

type EndpointHandler struct {
	repo     repository.EndpointRepository
	registry *connectors.Registry
	logger   zerolog.Logger
}

func NewEndpointHandler(repo repository.EndpointRepository, registry *connectors.Registry, logger zerolog.Logger) *EndpointHandler {
	return &EndpointHandler{repo: repo, registry: registry, logger: logger}
}

func (h *EndpointHandler) List(w http.ResponseWriter, r *http.Request) {
	endpoints, err := h.repo.List()
	if err != nil {
		http.Error(w, "Failed to list endpoints: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(endpoints)
}

func (h *EndpointHandler) Get(w http.ResponseWriter, r *http.Request) {
	ep, err := h.repo.Get(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Endpoint not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ep)
}

func (h *EndpointHandler) Create(w http.ResponseWriter, r *http.Request) {
	var ep models.ConnectorEndpoint
	if err := json.NewDecoder(r.Body).Decode(&ep); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	ep.Name = strings.TrimSpace(ep.Name)
	if ep.Name == "" {
		http.Error(w, "Endpoint name is required", http.StatusBadRequest)
		return
	}
	if !models.IsValidConnectorKind(ep.Kind) {
		http.Error(w, "Unknown connector kind: "+ep.Kind, http.StatusBadRequest)
		return
	}

	created, err := h.repo.Create(&ep)
	if err != nil {
		http.Error(w, "Failed to create endpoint: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

func (h *EndpointHandler) Update(w http.ResponseWriter, r *http.Request) {
	var ep models.ConnectorEndpoint
	if err := json.NewDecoder(r.Body).Decode(&ep); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	ep.ID = mux.Vars(r)["id"]

	updated, err := h.repo.Update(&ep)
	if err != nil {
		http.Error(w, "Failed to update endpoint: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

func (h *EndpointHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(mux.Vars(r)["id"]); err != nil {
		http.Error(w, "Failed to delete endpoint: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Test builds a live connector from the stored endpoint and reads a
// single job to prove credentials and connectivity. The verdict is
// persisted on the endpoint's status column.
func (h *EndpointHandler) Test(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ep, err := h.repo.GetWithSecrets(id)
	if err != nil {
		http.Error(w, "Endpoint not found", http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	testErr := h.probe(ctx, ep)
	status := "valid"
	if testErr != nil {
		status = "invalid"
	}
	if err := h.repo.UpdateStatus(id, status); err != nil {
		h.logger.Error().Err(err).Str("endpoint_id", id).Msg("failed to persist endpoint status")
	}

	resp := map[string]string{"status": status}
	w.Header().Set("Content-Type", "application/json")
	if testErr != nil {
		resp["error"] = testErr.Error()
		w.WriteHeader(http.StatusBadRequest)
	}
	json.NewEncoder(w).Encode(resp)
}

func (h *EndpointHandler) probe(ctx context.Context, ep *models.ConnectorEndpoint) error {
	conn, err := h.registry.Build(ep)
	if err != nil {
		return err
	}
	if closer, ok := conn.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	_, _, err = conn.ReadBatch(ctx, filter.ResourceJob, nil, filter.Cursor{}, 1)
	return err
}
