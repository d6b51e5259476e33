package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/talentloop/talentsync/internal/sync/filter"
	"github.com/talentloop/talentsync/internal/sync/formatter"
	"github.com/talentloop/talentsync/internal/sync/postfilter"
)

// Engine runs pull and push operations. It holds no cross-run state; the
// cursor is threaded explicitly through parameters and results.
type Engine struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Engine {
	return &Engine{logger: logger.With().Str("component", "sync_engine").Logger()}
}

// PullParams configures one incremental pull run, origin → target.
type PullParams struct {
	Resource  filter.Resource
	Origin    Connector
	Target    Connector
	Cursor    filter.Cursor
	Where     []filter.Condition // prefilters, pushed down to the origin
	Having    []filter.Condition // postfilters, evaluated in memory
	Formatter formatter.Formatter
	BatchSize int
	DryRun    bool
}

// PullResult is the accounting for one pull run.
type PullResult struct {
	Batches       int         `json:"batches"`
	TotalFetched  int         `json:"total_fetched"`
	TotalWritten  int         `json:"total_written"`
	SkippedHaving int         `json:"skipped_having"`
	Errors        []ItemError `json:"errors,omitempty"`
}

// Pull iterates origin batches until a short batch signals exhaustion.
// Each batch is postfiltered, formatted, and written before the next is
// requested. The returned cursor reflects the last successfully processed
// batch even when a later fetch or write fails; the error tells the caller
// not to treat the run as complete.
func (e *Engine) Pull(ctx context.Context, p PullParams) (filter.Cursor, PullResult, error) {
	var res PullResult

	if err := validatePair(p.Origin, p.Target); err != nil {
		return p.Cursor, res, err
	}
	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	cursor := p.Cursor.WithDefaults()
	if err := cursor.Validate(); err != nil {
		return cursor, res, err
	}

	logger := e.logger.With().
		Str("resource", string(p.Resource)).
		Str("origin", p.Origin.Name()).
		Str("target", p.Target.Name()).
		Bool("dry_run", p.DryRun).
		Logger()

	// Cursor of the last batch that made it all the way through WRITE.
	committed := cursor

	for {
		records, next, err := p.Origin.ReadBatch(ctx, p.Resource, p.Where, cursor, batchSize)
		if err != nil {
			return committed, res, &ConnectorError{Op: "fetch", Connector: p.Origin.Name(), Err: err}
		}
		if len(records) == 0 {
			break
		}
		res.Batches++
		res.TotalFetched += len(records)

		kept, skipped := postfilter.Apply(records, p.Having)
		res.SkippedHaving += skipped

		if len(kept) > 0 {
			formatted, failed := formatter.Resolve(p.Resource, p.Origin, p.Target, p.Formatter, kept)
			for _, fe := range failed {
				res.Errors = append(res.Errors, ItemError{Stage: "format", Index: fe.Index, Message: fe.Err.Error()})
			}

			if !p.DryRun && len(formatted) > 0 {
				if err := p.Target.WriteBatch(ctx, p.Resource, formatted); err != nil {
					return committed, res, &ConnectorError{Op: "write", Connector: p.Target.Name(), Err: err}
				}
			}
			res.TotalWritten += len(formatted)
		}

		committed = next
		logger.Debug().
			Int("batch", res.Batches).
			Int("fetched", len(records)).
			Int("skipped_having", skipped).
			Str("cursor_end", committed.End).
			Msg("batch processed")

		if len(records) < batchSize {
			break
		}
		// Resume the next fetch from the observed watermark.
		cursor = next
		cursor.Start = next.End
	}

	logger.Info().
		Int("batches", res.Batches).
		Int("fetched", res.TotalFetched).
		Int("written", res.TotalWritten).
		Int("skipped_having", res.SkippedHaving).
		Int("item_errors", len(res.Errors)).
		Msg("pull completed")

	return committed, res, nil
}

func validatePair(origin, target Connector) error {
	if origin == nil || target == nil {
		return fmt.Errorf("both origin and target connectors are required")
	}
	return nil
}
