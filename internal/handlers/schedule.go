package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/talentloop/talentsync/internal/models"
	"github.com/talentloop/talentsync/internal/repository"
	"github.com/talentloop/talentsync/internal/sync/filter"
)

type ScheduleHandler struct {
	repo   repository.ScheduleRepository
	logger zerolog.Logger
}

func NewScheduleHandler(repo repository.ScheduleRepository, logger zerolog.Logger) *ScheduleHandler {
	return &ScheduleHandler{repo: repo, logger: logger}
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.repo.List()
	if err != nil {
		http.Error(w, "Failed to list schedules: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(schedules)
}

func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.repo.Get(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Schedule not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(schedule)
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var schedule models.SyncSchedule
	if err := json.NewDecoder(r.Body).Decode(&schedule); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if msg := validateSchedule(&schedule); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	if schedule.NextRunAt.IsZero() {
		schedule.NextRunAt = time.Now().Add(schedule.Interval)
	}

	created, err := h.repo.Create(&schedule)
	if err != nil {
		http.Error(w, "Failed to create schedule: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var schedule models.SyncSchedule
	if err := json.NewDecoder(r.Body).Decode(&schedule); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	schedule.ID = mux.Vars(r)["id"]
	if msg := validateSchedule(&schedule); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	updated, err := h.repo.Update(&schedule)
	if err != nil {
		http.Error(w, "Failed to update schedule: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(mux.Vars(r)["id"]); err != nil {
		http.Error(w, "Failed to delete schedule: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validateSchedule(schedule *models.SyncSchedule) string {
	if schedule.Name == "" {
		return "schedule name is required"
	}
	if _, err := filter.ParseResource(schedule.Resource); err != nil {
		return err.Error()
	}
	if schedule.OriginID == "" || schedule.TargetID == "" {
		return "origin_id and target_id are required"
	}
	if schedule.Interval < time.Minute {
		return "interval must be at least one minute"
	}
	return ""
}
