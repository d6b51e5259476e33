package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/talentloop/talentsync/internal/connectors"
	"github.com/talentloop/talentsync/internal/models"
	"github.com/talentloop/talentsync/internal/repository"
	"github.com/talentloop/talentsync/internal/runner"
	"github.com/talentloop/talentsync/internal/sync/engine"
	"github.com/talentloop/talentsync/internal/sync/filter"
	"github.com/talentloop/talentsync/internal/temporal"
)

type RunHandler struct {
	runs      repository.RunRepository
	endpoints repository.EndpointRepository
	registry  *connectors.Registry
	runner    *runner.Runner
	temporal  temporalclient.Client // nil when the poll worker executes runs
	logger    zerolog.Logger
}

func NewRunHandler(
	runs repository.RunRepository,
	endpoints repository.EndpointRepository,
	registry *connectors.Registry,
	run *runner.Runner,
	temporalClient temporalclient.Client,
	logger zerolog.Logger,
) *RunHandler {
	return &RunHandler{
		runs:      runs,
		endpoints: endpoints,
		registry:  registry,
		runner:    run,
		temporal:  temporalClient,
		logger:    logger,
	}
}

type triggerRunRequest struct {
	Kind        string             `json:"kind"`
	Resource    string             `json:"resource"`
	OriginID    string             `json:"origin_id"`
	TargetID    string             `json:"target_id"`
	Where       []filter.Condition `json:"where,omitempty"`
	Having      []filter.Condition `json:"having,omitempty"`
	CursorStart string             `json:"cursor_start,omitempty"`
	CursorMode  string             `json:"cursor_mode,omitempty"`
	SortBy      string             `json:"sort_by,omitempty"`
	FormatterID *string            `json:"formatter_id,omitempty"`
	BatchSize   int                `json:"batch_size,omitempty"`
	PushMode    string             `json:"push_mode,omitempty"`
	Records     []filter.Record    `json:"records,omitempty"`
	DryRun      bool               `json:"dry_run,omitempty"`
}

func (req *triggerRunRequest) toRun() (*models.SyncRun, error) {
	run := &models.SyncRun{
		Kind:        models.SyncRunKind(req.Kind),
		Resource:    req.Resource,
		OriginID:    req.OriginID,
		TargetID:    req.TargetID,
		CursorStart: req.CursorStart,
		CursorMode:  req.CursorMode,
		SortBy:      req.SortBy,
		FormatterID: req.FormatterID,
		BatchSize:   req.BatchSize,
		PushMode:    req.PushMode,
		DryRun:      req.DryRun,
	}
	if len(req.Where) > 0 {
		raw, err := json.Marshal(req.Where)
		if err != nil {
			return nil, err
		}
		run.Where = raw
	}
	if len(req.Having) > 0 {
		raw, err := json.Marshal(req.Having)
		if err != nil {
			return nil, err
		}
		run.Having = raw
	}
	if req.Records != nil {
		raw, err := json.Marshal(req.Records)
		if err != nil {
			return nil, err
		}
		run.Records = raw
	}
	return run, nil
}

func (h *RunHandler) validate(req *triggerRunRequest) string {
	if req.Kind != string(models.SyncRunKindPull) && req.Kind != string(models.SyncRunKindPush) {
		return "kind must be pull or push"
	}
	if _, err := filter.ParseResource(req.Resource); err != nil {
		return err.Error()
	}
	if req.OriginID == "" || req.TargetID == "" {
		return "origin_id and target_id are required"
	}
	for _, c := range append(append([]filter.Condition{}, req.Where...), req.Having...) {
		if err := c.Validate(); err != nil {
			return err.Error()
		}
	}
	if req.Kind == string(models.SyncRunKindPush) {
		if req.PushMode == "" {
			req.PushMode = string(engine.PushModeResources)
		}
		if _, err := engine.ParsePushMode(req.PushMode); err != nil {
			return err.Error()
		}
		if req.PushMode == string(engine.PushModeResources) && req.Records == nil {
			return "push in resources mode requires records"
		}
	}
	return ""
}

// Trigger records a run and dispatches it. Dry runs execute synchronously
// and return the full accounting; everything else is queued and picked up
// by the worker or started as a Temporal workflow.
func (h *RunHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if msg := h.validate(&req); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	run, err := req.toRun()
	if err != nil {
		http.Error(w, "Invalid conditions: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.dispatch(w, r, run)
}

func (h *RunHandler) dispatch(w http.ResponseWriter, r *http.Request, run *models.SyncRun) {
	run, err := h.runs.Create(run)
	if err != nil {
		http.Error(w, "Failed to record run: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if run.DryRun {
		if err := h.runner.Execute(r.Context(), run); err != nil {
			h.logger.Warn().Err(err).Str("run_id", run.ID).Msg("dry run failed")
		}
		json.NewEncoder(w).Encode(run)
		return
	}

	if h.temporal != nil {
		if _, err := temporal.StartRun(r.Context(), h.temporal, run.ID); err != nil {
			http.Error(w, "Failed to start workflow: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(run)
}

// IngestEvents accepts raw change payloads (webhook bodies), parses them
// through the origin connector, and queues an EVENTS push for the ones the
// connector claims.
func (h *RunHandler) IngestEvents(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Resource    string             `json:"resource"`
		OriginID    string             `json:"origin_id"`
		TargetID    string             `json:"target_id"`
		Having      []filter.Condition `json:"having,omitempty"`
		FormatterID *string            `json:"formatter_id,omitempty"`
		BatchSize   int                `json:"batch_size,omitempty"`
		DryRun      bool               `json:"dry_run,omitempty"`
		Payloads    []json.RawMessage  `json:"payloads"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	resource, err := filter.ParseResource(req.Resource)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.OriginID == "" || req.TargetID == "" {
		http.Error(w, "origin_id and target_id are required", http.StatusBadRequest)
		return
	}

	origin, err := h.buildConnector(req.OriginID)
	if err != nil {
		http.Error(w, "Failed to build origin connector: "+err.Error(), http.StatusBadRequest)
		return
	}
	if closer, ok := origin.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	var events []engine.Event
	for _, payload := range req.Payloads {
		ev, err := origin.ParseEvent(resource, payload)
		if err != nil {
			http.Error(w, "Invalid event payload: "+err.Error(), http.StatusBadRequest)
			return
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
	if len(events) == 0 {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"accepted": 0})
		return
	}

	trigger := triggerRunRequest{
		Kind:        string(models.SyncRunKindPush),
		Resource:    req.Resource,
		OriginID:    req.OriginID,
		TargetID:    req.TargetID,
		Having:      req.Having,
		FormatterID: req.FormatterID,
		BatchSize:   req.BatchSize,
		PushMode:    string(engine.PushModeEvents),
		DryRun:      req.DryRun,
	}
	run, err := trigger.toRun()
	if err != nil {
		http.Error(w, "Invalid conditions: "+err.Error(), http.StatusBadRequest)
		return
	}
	raw, err := json.Marshal(events)
	if err != nil {
		http.Error(w, "Failed to encode events: "+err.Error(), http.StatusInternalServerError)
		return
	}
	run.Events = raw
	h.dispatch(w, r, run)
}

func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	runs, err := h.runs.List(limit)
	if err != nil {
		http.Error(w, "Failed to list runs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}

func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.Get(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

func (h *RunHandler) Stats(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 90 {
			days = parsed
		}
	}
	stats, err := h.runs.Stats(time.Now().AddDate(0, 0, -days))
	if err != nil {
		http.Error(w, "Failed to compute stats: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (h *RunHandler) buildConnector(endpointID string) (engine.Connector, error) {
	ep, err := h.endpoints.GetWithSecrets(endpointID)
	if err != nil {
		return nil, err
	}
	return h.registry.Build(ep)
}
