package workflows

import (
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/talentloop/talentsync/internal/temporal"
	"github.com/talentloop/talentsync/internal/temporal/activities"
)

// SyncRunWorkflow executes one recorded sync run. The heavy lifting lives
// in the activity; the workflow's job is making sure a run whose activity
// died still ends up marked failed instead of stuck in running.
func SyncRunWorkflow(ctx workflow.Context, params temporal.SyncRunParams) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: temporal.DefaultActivityTimeout,
		HeartbeatTimeout:    30 * time.Second,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)
	logger.Info("Starting sync run workflow", "RunID", params.RunID)

	// The actual implementation is registered on the worker; this is just
	// a proxy for activity name resolution.
	var a *activities.Activities

	err := workflow.ExecuteActivity(ctx, a.ExecuteRunActivity, params).Get(ctx, nil)
	if err != nil {
		logger.Error("Sync run activity failed.", "RunID", params.RunID, "error", err)

		// A disconnected context so the failure is recorded even when the
		// workflow itself is being cancelled.
		cleanupCtx, _ := workflow.NewDisconnectedContext(ctx)
		if markErr := workflow.ExecuteActivity(cleanupCtx, a.MarkRunFailedActivity, params.RunID, err.Error()).Get(cleanupCtx, nil); markErr != nil {
			logger.Error("Failed to record run failure.", "RunID", params.RunID, "error", markErr)
		}
		return err
	}

	logger.Info("Sync run workflow completed.", "RunID", params.RunID)
	return nil
}
