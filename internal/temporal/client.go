package temporal

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/client"
)

// NewClient dials the Temporal frontend with zerolog wired into the SDK.
func NewClient(hostPort string, logger zerolog.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort: hostPort,
		Logger:   NewTemporalAdapter(logger),
	})
	if err != nil {
		return nil, errors.Wrap(err, "dial temporal")
	}
	return c, nil
}

// StartRun launches the sync run workflow for an already recorded run.
// The workflow ID embeds the run ID, so retriggering the same run while it
// is in flight is rejected by Temporal instead of racing it.
func StartRun(ctx context.Context, c client.Client, runID string) (string, error) {
	opts := client.StartWorkflowOptions{
		ID:        RunWorkflowIDPrefix + runID,
		TaskQueue: TaskQueueName,
	}
	we, err := c.ExecuteWorkflow(ctx, opts, "SyncRunWorkflow", SyncRunParams{RunID: runID})
	if err != nil {
		return "", errors.Wrap(err, "start sync run workflow")
	}
	return we.GetID(), nil
}
