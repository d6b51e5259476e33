// Package worker is the poll-based run executor used when Temporal is not
// configured: it materializes due schedules into pending runs and drains
// the pending queue, one run at a time.
package worker

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/talentloop/talentsync/internal/models"
	"github.com/talentloop/talentsync/internal/repository"
	"github.com/talentloop/talentsync/internal/runner"
)

type WorkerConfig struct {
	Runs         repository.RunRepository
	Schedules    repository.ScheduleRepository
	Runner       *runner.Runner
	PollInterval time.Duration
	Logger       zerolog.Logger
}

type Worker struct {
	cfg    WorkerConfig
	logger zerolog.Logger
}

func NewWorker(cfg WorkerConfig) *Worker {
	return &Worker{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "worker").Logger(),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().Dur("poll_interval", w.cfg.PollInterval).Msg("worker started, polling for runs")
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("worker stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := w.materializeSchedules(); err != nil {
				w.logger.Error().Err(err).Msg("failed to materialize due schedules")
			}
			if err := w.drainPending(ctx); err != nil {
				w.logger.Error().Err(err).Msg("error processing pending runs")
			}
		}
	}
}

// materializeSchedules turns every due schedule into a pending pull run.
// ClaimDue advances next_run_at atomically, so concurrent workers never
// double-materialize a schedule.
func (w *Worker) materializeSchedules() error {
	due, err := w.cfg.Schedules.ClaimDue(time.Now())
	if err != nil {
		return errors.Wrap(err, "claim due schedules")
	}
	for _, schedule := range due {
		run := runFromSchedule(schedule)
		if _, err := w.cfg.Runs.Create(run); err != nil {
			return errors.Wrapf(err, "create run for schedule %s", schedule.ID)
		}
		w.logger.Info().
			Str("schedule_id", schedule.ID).
			Str("schedule", schedule.Name).
			Str("run_id", run.ID).
			Msg("materialized scheduled run")
	}
	return nil
}

// drainPending claims and executes pending runs until the queue is empty.
// A failed run is already recorded by the executor; the loop keeps going.
func (w *Worker) drainPending(ctx context.Context) error {
	for {
		run, err := w.cfg.Runs.ClaimPending(ctx)
		if err != nil {
			return errors.Wrap(err, "claim pending run")
		}
		if run == nil {
			return nil
		}
		if err := w.cfg.Runner.Execute(ctx, run); err != nil {
			w.logger.Error().Err(err).Str("run_id", run.ID).Msg("run failed")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func runFromSchedule(schedule *models.SyncSchedule) *models.SyncRun {
	return &models.SyncRun{
		ScheduleID:  &schedule.ID,
		Kind:        models.SyncRunKindPull,
		Resource:    schedule.Resource,
		OriginID:    schedule.OriginID,
		TargetID:    schedule.TargetID,
		Where:       schedule.Where,
		Having:      schedule.Having,
		CursorMode:  schedule.CursorMode,
		SortBy:      schedule.SortBy,
		FormatterID: schedule.FormatterID,
		BatchSize:   schedule.BatchSize,
	}
}
