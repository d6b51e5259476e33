package activities

import (
	"context"

	"github.com/pkg/errors"
	"go.temporal.io/sdk/activity"

	"github.com/talentloop/talentsync/internal/models"
	"github.com/talentloop/talentsync/internal/repository"
	"github.com/talentloop/talentsync/internal/runner"
	"github.com/talentloop/talentsync/internal/temporal"
)

type Activities struct {
	RunRepo repository.RunRepository
	Runner  *runner.Runner
}

// ExecuteRunActivity loads the recorded run and drives it through the
// shared executor. The executor writes the outcome back itself; the
// activity error only signals Temporal whether the run failed.
func (a *Activities) ExecuteRunActivity(ctx context.Context, params temporal.SyncRunParams) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Executing sync run", "runID", params.RunID)

	run, err := a.RunRepo.Get(params.RunID)
	if err != nil {
		return errors.Wrap(err, "fetch sync run")
	}
	if run.Status != models.SyncRunStatusPending && run.Status != models.SyncRunStatusRunning {
		logger.Info("Run already completed, skipping", "runID", params.RunID, "status", string(run.Status))
		return nil
	}

	return a.Runner.Execute(ctx, run)
}

// MarkRunFailedActivity records a failure for a run whose execution
// activity died before the executor could write an outcome.
func (a *Activities) MarkRunFailedActivity(ctx context.Context, runID, reason string) error {
	logger := activity.GetLogger(ctx)

	run, err := a.RunRepo.Get(runID)
	if err != nil {
		return errors.Wrap(err, "fetch sync run")
	}
	if run.Status == models.SyncRunStatusSucceeded || run.Status == models.SyncRunStatusFailed {
		return nil
	}

	logger.Info("Marking orphaned run as failed", "runID", runID)
	run.Status = models.SyncRunStatusFailed
	run.ErrorMessage = &reason
	return a.RunRepo.Complete(run)
}
