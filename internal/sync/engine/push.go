package engine

import (
	"context"
	"fmt"

	"github.com/talentloop/talentsync/internal/sync/filter"
	"github.com/talentloop/talentsync/internal/sync/formatter"
	"github.com/talentloop/talentsync/internal/sync/postfilter"
)

// PushMode selects what seeds a push run: already-fetched native records,
// or change events that must first be resolved to native records.
type PushMode string

const (
	PushModeResources PushMode = "resources"
	PushModeEvents    PushMode = "events"
)

func ParsePushMode(s string) (PushMode, error) {
	switch PushMode(s) {
	case PushModeResources:
		return PushModeResources, nil
	case PushModeEvents:
		return PushModeEvents, nil
	default:
		return "", fmt.Errorf("unsupported push mode %q", s)
	}
}

// PushParams configures one push run, origin → target.
type PushParams struct {
	Resource  filter.Resource
	Origin    Connector
	Target    Connector
	Mode      PushMode
	Records   []filter.Record // RESOURCES mode
	Events    []Event         // EVENTS mode
	Having    []filter.Condition
	Formatter formatter.Formatter
	BatchSize int
	DryRun    bool
}

// PushResult is the accounting for one push invocation, immutable after
// return. Errors accumulates per-item failures and never aborts the run.
type PushResult struct {
	TotalEvents           int         `json:"total_events"`
	TotalResourcesFetched int         `json:"total_resources_fetched"`
	TotalResourcesPushed  int         `json:"total_resources_pushed"`
	SkippedMissing        int         `json:"skipped_missing"`
	SkippedHaving         int         `json:"skipped_having"`
	Errors                []ItemError `json:"errors,omitempty"`
}

// Push moves records origin → target in batches of BatchSize. In EVENTS
// mode each event batch is resolved through the origin first; an event
// with no matching record counts as skipped_missing, and a failed
// resolution call is recorded without stopping later batches. A write
// failure is batch-fatal and surfaces alongside the counts so far.
func (e *Engine) Push(ctx context.Context, p PushParams) (PushResult, error) {
	var res PushResult

	if err := validatePair(p.Origin, p.Target); err != nil {
		return res, err
	}
	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := e.logger.With().
		Str("resource", string(p.Resource)).
		Str("origin", p.Origin.Name()).
		Str("target", p.Target.Name()).
		Str("mode", string(p.Mode)).
		Bool("dry_run", p.DryRun).
		Logger()

	switch p.Mode {
	case PushModeEvents:
		res.TotalEvents = len(p.Events)
		for start := 0; start < len(p.Events); start += batchSize {
			end := start + batchSize
			if end > len(p.Events) {
				end = len(p.Events)
			}
			batch := p.Events[start:end]

			native, err := p.Origin.FetchByEvents(ctx, p.Resource, batch)
			if err != nil {
				res.Errors = append(res.Errors, ItemError{
					Stage:   "fetch_events",
					Index:   start,
					Message: err.Error(),
				})
				continue
			}
			res.TotalResourcesFetched += len(native)

			byID := make(map[string]filter.Record, len(native))
			for _, rec := range native {
				id, err := p.Origin.ResourceID(p.Resource, rec)
				if err != nil {
					res.Errors = append(res.Errors, ItemError{Stage: "fetch_events", Message: err.Error()})
					continue
				}
				byID[id] = rec
			}

			toPush := make([]filter.Record, 0, len(batch))
			for _, ev := range batch {
				rec, ok := byID[ev.ResourceID]
				if !ok {
					res.SkippedMissing++
					continue
				}
				if !postfilter.Matches(rec, p.Having) {
					res.SkippedHaving++
					continue
				}
				toPush = append(toPush, rec)
			}

			if err := e.formatAndWrite(ctx, p, toPush, &res); err != nil {
				return res, err
			}
		}

	case PushModeResources:
		if p.Records == nil {
			return res, fmt.Errorf("push in %s mode requires records", PushModeResources)
		}
		res.TotalResourcesFetched = len(p.Records)
		for start := 0; start < len(p.Records); start += batchSize {
			end := start + batchSize
			if end > len(p.Records) {
				end = len(p.Records)
			}
			batch := p.Records[start:end]

			kept, skipped := postfilter.Apply(batch, p.Having)
			res.SkippedHaving += skipped

			if err := e.formatAndWrite(ctx, p, kept, &res); err != nil {
				return res, err
			}
		}

	default:
		return res, fmt.Errorf("unsupported push mode %q", p.Mode)
	}

	logger.Info().
		Int("total_events", res.TotalEvents).
		Int("fetched", res.TotalResourcesFetched).
		Int("pushed", res.TotalResourcesPushed).
		Int("skipped_missing", res.SkippedMissing).
		Int("skipped_having", res.SkippedHaving).
		Int("item_errors", len(res.Errors)).
		Msg("push completed")

	return res, nil
}

func (e *Engine) formatAndWrite(ctx context.Context, p PushParams, records []filter.Record, res *PushResult) error {
	if len(records) == 0 {
		return nil
	}
	formatted, failed := formatter.Resolve(p.Resource, p.Origin, p.Target, p.Formatter, records)
	for _, fe := range failed {
		res.Errors = append(res.Errors, ItemError{Stage: "format", Index: fe.Index, Message: fe.Err.Error()})
	}
	if len(formatted) == 0 {
		return nil
	}
	if !p.DryRun {
		if err := p.Target.WriteBatch(ctx, p.Resource, formatted); err != nil {
			return &ConnectorError{Op: "write", Connector: p.Target.Name(), Err: err}
		}
	}
	res.TotalResourcesPushed += len(formatted)
	return nil
}
