// Package runner executes recorded sync runs: it resolves the stored
// endpoints into live connectors, loads the persisted cursor, drives the
// engine, and writes the accounting back. Both the polling worker and the
// Temporal activities funnel through the same Execute path.
package runner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/talentloop/talentsync/internal/connectors"
	"github.com/talentloop/talentsync/internal/models"
	"github.com/talentloop/talentsync/internal/repository"
	"github.com/talentloop/talentsync/internal/sync/engine"
	"github.com/talentloop/talentsync/internal/sync/filter"
	"github.com/talentloop/talentsync/internal/sync/formatter"
)

// Events receives run lifecycle notifications. Implementations must not
// block; failures to notify never fail the run.
type Events interface {
	RunStarted(run *models.SyncRun)
	RunSucceeded(run *models.SyncRun)
	RunDegraded(run *models.SyncRun)
	RunFailed(run *models.SyncRun, err error)
}

// NopEvents discards all lifecycle notifications.
type NopEvents struct{}

func (NopEvents) RunStarted(*models.SyncRun)       {}
func (NopEvents) RunSucceeded(*models.SyncRun)     {}
func (NopEvents) RunDegraded(*models.SyncRun)      {}
func (NopEvents) RunFailed(*models.SyncRun, error) {}

type Runner struct {
	endpoints  repository.EndpointRepository
	cursors    repository.CursorRepository
	runs       repository.RunRepository
	registry   *connectors.Registry
	formatters *formatter.Registry
	engine     *engine.Engine
	events     Events
	logger     zerolog.Logger
}

func New(
	endpoints repository.EndpointRepository,
	cursors repository.CursorRepository,
	runs repository.RunRepository,
	registry *connectors.Registry,
	formatters *formatter.Registry,
	events Events,
	logger zerolog.Logger,
) *Runner {
	if events == nil {
		events = NopEvents{}
	}
	return &Runner{
		endpoints:  endpoints,
		cursors:    cursors,
		runs:       runs,
		registry:   registry,
		formatters: formatters,
		engine:     engine.New(logger),
		events:     events,
		logger:     logger.With().Str("component", "runner").Logger(),
	}
}

// Execute runs one claimed sync run end to end and records the outcome.
// The returned error reflects the run failing, not the bookkeeping; a run
// that finished with item errors is recorded as succeeded and reported as
// degraded.
func (r *Runner) Execute(ctx context.Context, run *models.SyncRun) error {
	if err := r.runs.MarkRunning(run.ID); err != nil {
		return errors.Wrap(err, "mark run running")
	}
	run.Status = models.SyncRunStatusRunning
	r.events.RunStarted(run)

	r.logger.Info().
		Str("run_id", run.ID).
		Str("kind", string(run.Kind)).
		Str("resource", run.Resource).
		Bool("dry_run", run.DryRun).
		Msg("executing sync run")

	runErr := r.execute(ctx, run)
	if runErr != nil {
		run.Status = models.SyncRunStatusFailed
		msg := runErr.Error()
		run.ErrorMessage = &msg
	} else {
		run.Status = models.SyncRunStatusSucceeded
	}

	if err := r.runs.Complete(run); err != nil {
		r.logger.Error().Err(err).Str("run_id", run.ID).Msg("failed to record run outcome")
		if runErr == nil {
			runErr = errors.Wrap(err, "record run outcome")
		}
	}

	switch {
	case runErr != nil:
		r.events.RunFailed(run, runErr)
	case len(run.ItemErrors) > 0:
		r.events.RunDegraded(run)
	default:
		r.events.RunSucceeded(run)
	}
	return runErr
}

func (r *Runner) execute(ctx context.Context, run *models.SyncRun) error {
	resource, err := filter.ParseResource(run.Resource)
	if err != nil {
		return err
	}
	origin, target, err := r.buildPair(run)
	if err != nil {
		return err
	}
	defer closeConnector(origin)
	defer closeConnector(target)

	where, err := decodeConditions(run.Where)
	if err != nil {
		return errors.Wrap(err, "decode where conditions")
	}
	having, err := decodeConditions(run.Having)
	if err != nil {
		return errors.Wrap(err, "decode having conditions")
	}
	fmtr, err := r.resolveFormatter(run)
	if err != nil {
		return err
	}

	switch run.Kind {
	case models.SyncRunKindPull:
		return r.pull(ctx, run, resource, origin, target, where, having, fmtr)
	case models.SyncRunKindPush:
		return r.push(ctx, run, resource, origin, target, having, fmtr)
	default:
		return fmt.Errorf("unknown run kind %q", run.Kind)
	}
}

func (r *Runner) pull(ctx context.Context, run *models.SyncRun, resource filter.Resource, origin, target engine.Connector, where, having []filter.Condition, fmtr formatter.Formatter) error {
	cursor, err := r.loadCursor(run)
	if err != nil {
		return err
	}

	committed, res, pullErr := r.engine.Pull(ctx, engine.PullParams{
		Resource:  resource,
		Origin:    origin,
		Target:    target,
		Cursor:    cursor,
		Where:     where,
		Having:    having,
		Formatter: fmtr,
		BatchSize: run.BatchSize,
		DryRun:    run.DryRun,
	})

	run.Batches = res.Batches
	run.TotalFetched = res.TotalFetched
	run.TotalWritten = res.TotalWritten
	run.SkippedHaving = res.SkippedHaving
	run.CursorEnd = committed.End
	recordItemErrors(run, res.Errors)

	// The committed cursor is valid even when the run failed midway;
	// persisting it lets the next run resume from the last good batch.
	if !run.DryRun {
		if err := r.cursors.Save(run.OriginID, run.TargetID, run.Resource, committed); err != nil {
			if pullErr == nil {
				return errors.Wrap(err, "save cursor")
			}
			r.logger.Error().Err(err).Str("run_id", run.ID).Msg("failed to save cursor after pull error")
		}
	}
	return pullErr
}

func (r *Runner) push(ctx context.Context, run *models.SyncRun, resource filter.Resource, origin, target engine.Connector, having []filter.Condition, fmtr formatter.Formatter) error {
	mode, err := engine.ParsePushMode(run.PushMode)
	if err != nil {
		return err
	}
	var events []engine.Event
	if len(run.Events) > 0 {
		if err := json.Unmarshal(run.Events, &events); err != nil {
			return errors.Wrap(err, "decode run events")
		}
	}
	var records []filter.Record
	if len(run.Records) > 0 {
		if err := json.Unmarshal(run.Records, &records); err != nil {
			return errors.Wrap(err, "decode run records")
		}
	}

	res, pushErr := r.engine.Push(ctx, engine.PushParams{
		Resource:  resource,
		Origin:    origin,
		Target:    target,
		Mode:      mode,
		Events:    events,
		Records:   records,
		Having:    having,
		Formatter: fmtr,
		BatchSize: run.BatchSize,
		DryRun:    run.DryRun,
	})

	run.TotalEvents = res.TotalEvents
	run.TotalFetched = res.TotalResourcesFetched
	run.TotalWritten = res.TotalResourcesPushed
	run.SkippedMissing = res.SkippedMissing
	run.SkippedHaving = res.SkippedHaving
	recordItemErrors(run, res.Errors)
	return pushErr
}

func (r *Runner) buildPair(run *models.SyncRun) (engine.Connector, engine.Connector, error) {
	origin, err := r.buildConnector(run.OriginID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "build origin connector")
	}
	target, err := r.buildConnector(run.TargetID)
	if err != nil {
		closeConnector(origin)
		return nil, nil, errors.Wrap(err, "build target connector")
	}
	return origin, target, nil
}

func (r *Runner) buildConnector(endpointID string) (engine.Connector, error) {
	ep, err := r.endpoints.GetWithSecrets(endpointID)
	if err != nil {
		return nil, err
	}
	return r.registry.Build(ep)
}

// loadCursor merges the persisted watermark with the run's overrides. An
// explicit cursor_start on the run wins over the stored position.
func (r *Runner) loadCursor(run *models.SyncRun) (filter.Cursor, error) {
	cursor := filter.Cursor{
		Mode:   filter.CursorMode(run.CursorMode),
		SortBy: filter.SortOrder(run.SortBy),
	}
	if !run.DryRun {
		stored, found, err := r.cursors.Load(run.OriginID, run.TargetID, run.Resource)
		if err != nil {
			return cursor, errors.Wrap(err, "load cursor")
		}
		if found {
			cursor.Start = stored.End
			if cursor.Mode == "" {
				cursor.Mode = stored.Mode
			}
			if cursor.SortBy == "" {
				cursor.SortBy = stored.SortBy
			}
		}
	}
	if run.CursorStart != "" {
		cursor.Start = run.CursorStart
	}
	return cursor.WithDefaults(), nil
}

func (r *Runner) resolveFormatter(run *models.SyncRun) (formatter.Formatter, error) {
	if run.FormatterID == nil || *run.FormatterID == "" {
		return formatter.Formatter{}, nil
	}
	spec, ok := r.formatters.Get(*run.FormatterID)
	if !ok {
		return formatter.Formatter{}, fmt.Errorf("formatter %q not found", *run.FormatterID)
	}
	return spec.Formatter(), nil
}

func recordItemErrors(run *models.SyncRun, itemErrs []engine.ItemError) {
	if len(itemErrs) == 0 {
		return
	}
	raw, err := json.Marshal(itemErrs)
	if err != nil {
		return
	}
	run.ItemErrors = raw
}

func decodeConditions(raw json.RawMessage) ([]filter.Condition, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var conds []filter.Condition
	if err := json.Unmarshal(raw, &conds); err != nil {
		return nil, err
	}
	for _, c := range conds {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	return conds, nil
}

func closeConnector(c engine.Connector) {
	if closer, ok := c.(interface{ Close() error }); ok {
		closer.Close()
	}
}
