// Package engine drives pull and push runs between two warehouse
// connectors: batch iteration with cursor threading, in-memory
// postfiltering, formatter resolution, and per-item failure bookkeeping.
// The engine performs no I/O of its own; every fetch and write goes
// through the Connector capability interface.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/talentloop/talentsync/internal/sync/filter"
	"github.com/talentloop/talentsync/internal/sync/schema"
)

// Event is a unified change event, produced by a connector from a raw
// payload (webhook body, queue message) and resolvable back to a native
// record during an EVENTS push.
type Event struct {
	EventID    string         `json:"event_id"`
	ResourceID string         `json:"resource_id"`
	Type       string         `json:"type"`
	OccurredAt *time.Time     `json:"occurred_at,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Connector is the capability interface every warehouse adapter
// implements. The engine depends only on this method set; auth, transport,
// retries, and timeouts are the adapter's business.
type Connector interface {
	Name() string

	// RecordType exposes the native model metadata for a resource.
	RecordType(resource filter.Resource) *schema.RecordType

	// ReadBatch fetches up to batchSize native records. Prefilters may be
	// pushed down server-side. The returned cursor must carry End advanced
	// to the watermark of the last record, or unchanged for an empty batch.
	ReadBatch(ctx context.Context, resource filter.Resource, prefilters []filter.Condition, cursor filter.Cursor, batchSize int) ([]filter.Record, filter.Cursor, error)

	// WriteBatch upserts native records into the warehouse.
	WriteBatch(ctx context.Context, resource filter.Resource, records []filter.Record) error

	ToUnified(resource filter.Resource, rec filter.Record) (filter.Record, error)
	FromUnified(resource filter.Resource, rec filter.Record) (filter.Record, error)

	// ResourceID extracts the business identifier from a native record.
	ResourceID(resource filter.Resource, rec filter.Record) (string, error)

	// ParseEvent interprets a raw payload as a change event for the
	// resource. A nil event with nil error means "not ours, ignore".
	ParseEvent(resource filter.Resource, raw []byte) (*Event, error)

	// FetchByEvents resolves change events to native records. Events that
	// resolve to nothing are simply absent from the result.
	FetchByEvents(ctx context.Context, resource filter.Resource, events []Event) ([]filter.Record, error)
}

// ConnectorError marks a batch-fatal fetch or write failure. The engine
// stops iterating and surfaces it with the cursor of the last successful
// batch.
type ConnectorError struct {
	Op        string // "fetch" or "write"
	Connector string
	Err       error
}

func (e *ConnectorError) Error() string {
	return fmt.Sprintf("connector %s: %s failed: %v", e.Connector, e.Op, e.Err)
}

func (e *ConnectorError) Unwrap() error { return e.Err }

// ItemError is a recovered per-item failure. Runs accumulate these instead
// of aborting; callers inspect them to detect degraded runs.
type ItemError struct {
	Stage   string `json:"stage"` // "format", "fetch_events", "write"
	Index   int    `json:"index,omitempty"`
	Message string `json:"message"`
}

const defaultBatchSize = 1000
