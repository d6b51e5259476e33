package models

import (
	"encoding/json"
	"time"
)

type SyncRunKind string

const (
	SyncRunKindPull SyncRunKind = "pull"
	SyncRunKindPush SyncRunKind = "push"
)

type SyncRunStatus string

const (
	SyncRunStatusPending   SyncRunStatus = "pending"
	SyncRunStatusRunning   SyncRunStatus = "running"
	SyncRunStatusSucceeded SyncRunStatus = "succeeded"
	SyncRunStatusFailed    SyncRunStatus = "failed"
)

// SyncRun is one recorded pull or push invocation: its request shape plus
// the accounting the engine reported. Pending runs are claimed by the
// worker; API-triggered runs go through the same table.
type SyncRun struct {
	ID         string        `json:"id" db:"id"`
	ScheduleID *string       `json:"schedule_id,omitempty" db:"schedule_id"`
	Kind       SyncRunKind   `json:"kind" db:"kind"`
	Resource   string        `json:"resource" db:"resource"`
	OriginID   string        `json:"origin_id" db:"origin_id"`
	TargetID   string        `json:"target_id" db:"target_id"`
	Status     SyncRunStatus `json:"status" db:"status"`
	DryRun     bool          `json:"dry_run" db:"dry_run"`

	// Request shape, JSON-encoded as submitted.
	Where       json.RawMessage `json:"where,omitempty" db:"where_conditions"`
	Having      json.RawMessage `json:"having,omitempty" db:"having_conditions"`
	CursorStart string          `json:"cursor_start,omitempty" db:"cursor_start"`
	CursorMode  string          `json:"cursor_mode,omitempty" db:"cursor_mode"`
	SortBy      string          `json:"sort_by,omitempty" db:"sort_by"`
	FormatterID *string         `json:"formatter_id,omitempty" db:"formatter_id"`
	BatchSize   int             `json:"batch_size" db:"batch_size"`
	PushMode    string          `json:"push_mode,omitempty" db:"push_mode"`
	Events      json.RawMessage `json:"events,omitempty" db:"events"`
	Records     json.RawMessage `json:"records,omitempty" db:"records"`

	// Engine accounting.
	Batches        int             `json:"batches" db:"batches"`
	TotalFetched   int             `json:"total_fetched" db:"total_fetched"`
	TotalWritten   int             `json:"total_written" db:"total_written"`
	TotalEvents    int             `json:"total_events" db:"total_events"`
	SkippedHaving  int             `json:"skipped_having" db:"skipped_having"`
	SkippedMissing int             `json:"skipped_missing" db:"skipped_missing"`
	ItemErrors     json.RawMessage `json:"item_errors,omitempty" db:"item_errors"`
	ErrorMessage   *string         `json:"error_message,omitempty" db:"error_message"`
	CursorEnd      string          `json:"cursor_end,omitempty" db:"cursor_end"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// SyncRunStatDay holds run counts for a single day.
type SyncRunStatDay struct {
	Day       time.Time `json:"day" db:"day"`
	Succeeded int       `json:"succeeded" db:"succeeded"`
	Failed    int       `json:"failed" db:"failed"`
	Running   int       `json:"running" db:"running"`
	Pending   int       `json:"pending" db:"pending"`
}

// SyncRunStat is the aggregated run statistics over a period, plus
// per-day details.
type SyncRunStat struct {
	Total        int              `json:"total" db:"total"`
	Succeeded    int              `json:"succeeded" db:"succeeded"`
	Failed       int              `json:"failed" db:"failed"`
	Running      int              `json:"running" db:"running"`
	SuccessRate  float64          `json:"success_rate" db:"success_rate"` // succeeded/total
	TotalWritten int64            `json:"total_written" db:"total_written"`
	PerDay       []SyncRunStatDay `json:"per_day" db:"per_day"`
}
