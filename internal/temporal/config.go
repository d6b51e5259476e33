package temporal

import "time"

// TaskQueueName is the Temporal task queue sync run workflows are
// dispatched on.
const TaskQueueName = "TALENTSYNC_RUNS"

// RunWorkflowIDPrefix prefixes workflow IDs so a run can be located in the
// Temporal UI by its run record ID.
const RunWorkflowIDPrefix = "talentsync-run-"

// DefaultActivityTimeout bounds a single run execution activity. Large
// backfills should be split across scheduled runs rather than raising it.
const DefaultActivityTimeout = 30 * time.Minute

// SyncRunParams is the workflow input: the ID of an already recorded run.
type SyncRunParams struct {
	RunID string
}
