package notification

import (
	"context"

	"github.com/talentloop/talentsync/internal/models"
)

// RunEvents adapts the notification service to the run executor's
// lifecycle hooks. Delivery failures are already logged by the service;
// the hooks deliberately swallow them so a broken channel never fails a
// run.
type RunEvents struct {
	svc Service
}

func NewRunEvents(svc Service) *RunEvents {
	return &RunEvents{svc: svc}
}

func (e *RunEvents) RunStarted(run *models.SyncRun) {
	_ = e.svc.NotifyRunStarted(context.Background(), run)
}

func (e *RunEvents) RunSucceeded(run *models.SyncRun) {
	_ = e.svc.NotifyRunSucceeded(context.Background(), run)
}

func (e *RunEvents) RunDegraded(run *models.SyncRun) {
	_ = e.svc.NotifyRunDegraded(context.Background(), run)
}

func (e *RunEvents) RunFailed(run *models.SyncRun, err error) {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	_ = e.svc.NotifyRunFailed(context.Background(), run, reason)
}
