package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/talentloop/talentsync/internal/authz"
	"github.com/talentloop/talentsync/internal/models"
	"github.com/talentloop/talentsync/internal/repository"
)

type UserHandler struct {
	repo   repository.UserRepository
	logger zerolog.Logger
}

func NewUserHandler(repo repository.UserRepository, logger zerolog.Logger) *UserHandler {
	return &UserHandler{repo: repo, logger: logger}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.repo.ListUsers()
	if err != nil {
		http.Error(w, "Failed to list users: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(users)
}

type updateRolesRequest struct {
	Roles []models.UserRole `json:"roles"`
}

func (h *UserHandler) UpdateRoles(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req updateRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	roles := models.NormalizeRoles(req.Roles)
	if !models.IsValidRoleList(roles) {
		http.Error(w, "Invalid roles", http.StatusBadRequest)
		return
	}

	user, err := h.repo.UpdateUserRoles(id, roles)
	if err != nil {
		http.Error(w, "Failed to update roles: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	// self-delete could remove the last admin
	if uid, ok := authz.UserIDFromRequest(r); ok && uid == id {
		http.Error(w, "Cannot delete your own account", http.StatusBadRequest)
		return
	}

	if err := h.repo.DeleteUser(id); err != nil {
		http.Error(w, "Failed to delete user: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
