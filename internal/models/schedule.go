package models

import (
	"encoding/json"
	"time"
)

// SyncSchedule is a recurring pull definition. The worker (or the Temporal
// workflow) materializes due schedules into pending sync runs; the cursor
// persisted per schedule makes each materialized run incremental.
type SyncSchedule struct {
	ID          string          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Resource    string          `json:"resource" db:"resource"`
	OriginID    string          `json:"origin_id" db:"origin_id"`
	TargetID    string          `json:"target_id" db:"target_id"`
	Where       json.RawMessage `json:"where,omitempty" db:"where_conditions"`
	Having      json.RawMessage `json:"having,omitempty" db:"having_conditions"`
	CursorMode  string          `json:"cursor_mode" db:"cursor_mode"`
	SortBy      string          `json:"sort_by" db:"sort_by"`
	FormatterID *string         `json:"formatter_id,omitempty" db:"formatter_id"`
	BatchSize   int             `json:"batch_size" db:"batch_size"`
	Interval    time.Duration   `json:"interval" db:"interval_seconds"`
	Enabled     bool            `json:"enabled" db:"enabled"`
	NextRunAt   time.Time       `json:"next_run_at" db:"next_run_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}
