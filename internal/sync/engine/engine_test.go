package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentloop/talentsync/internal/sync/filter"
	"github.com/talentloop/talentsync/internal/sync/formatter"
	"github.com/talentloop/talentsync/internal/sync/schema"
)

// fakeConnector is an in-memory warehouse serving pre-cut batches of
// records, with switchable fetch and write failures.
type fakeConnector struct {
	name  string
	pages [][]filter.Record

	reads   int
	cursors []filter.Cursor // cursor seen by each ReadBatch call
	written [][]filter.Record

	failFetchAt  int // 1-based read call that errors, 0 = never
	failWrite    bool
	fetchByIDErr error
}

func newFakeConnector(name string, pages ...[]filter.Record) *fakeConnector {
	return &fakeConnector{name: name, pages: pages}
}

func (c *fakeConnector) Name() string { return c.name }

func (c *fakeConnector) RecordType(resource filter.Resource) *schema.RecordType {
	return schema.New(c.name+"_"+string(resource), resource,
		schema.Field{Name: "key", Type: "string", Required: true},
		schema.Field{Name: "title", Type: "string"},
	)
}

func (c *fakeConnector) ReadBatch(_ context.Context, _ filter.Resource, _ []filter.Condition, cursor filter.Cursor, _ int) ([]filter.Record, filter.Cursor, error) {
	c.reads++
	c.cursors = append(c.cursors, cursor)
	if c.failFetchAt > 0 && c.reads == c.failFetchAt {
		return nil, cursor, errors.New("origin unreachable")
	}
	if c.reads > len(c.pages) {
		return nil, cursor, nil
	}
	page := c.pages[c.reads-1]
	next := cursor
	next.End = fmt.Sprintf("watermark-%d", c.reads)
	return page, next, nil
}

func (c *fakeConnector) WriteBatch(_ context.Context, _ filter.Resource, records []filter.Record) error {
	if c.failWrite {
		return errors.New("target rejected batch")
	}
	c.written = append(c.written, records)
	return nil
}

func (c *fakeConnector) ToUnified(_ filter.Resource, rec filter.Record) (filter.Record, error) {
	return rec.Clone(), nil
}

func (c *fakeConnector) FromUnified(_ filter.Resource, rec filter.Record) (filter.Record, error) {
	return rec.Clone(), nil
}

func (c *fakeConnector) ResourceID(_ filter.Resource, rec filter.Record) (string, error) {
	id, ok := rec["key"].(string)
	if !ok {
		return "", errors.New("record has no key")
	}
	return id, nil
}

func (c *fakeConnector) ParseEvent(_ filter.Resource, raw []byte) (*Event, error) {
	return &Event{EventID: string(raw), ResourceID: string(raw)}, nil
}

func (c *fakeConnector) FetchByEvents(_ context.Context, _ filter.Resource, events []Event) ([]filter.Record, error) {
	if c.fetchByIDErr != nil {
		return nil, c.fetchByIDErr
	}
	var out []filter.Record
	for _, page := range c.pages {
		for _, rec := range page {
			for _, ev := range events {
				if rec["key"] == ev.ResourceID {
					out = append(out, rec)
				}
			}
		}
	}
	return out, nil
}

func job(key, title string) filter.Record {
	return filter.Record{"key": key, "title": title}
}

func testEngine() *Engine {
	return New(zerolog.Nop())
}

func TestPullIteratesUntilShortBatch(t *testing.T) {
	origin := newFakeConnector("origin",
		[]filter.Record{job("j1", "a"), job("j2", "b")},
		[]filter.Record{job("j3", "c"), job("j4", "d")},
		[]filter.Record{job("j5", "e")},
	)
	target := newFakeConnector("target")

	cursor, res, err := testEngine().Pull(context.Background(), PullParams{
		Resource:  filter.ResourceJob,
		Origin:    origin,
		Target:    target,
		Cursor:    filter.Cursor{Mode: filter.CursorModeUpdatedAt, Start: "seed", SortBy: filter.SortAsc},
		BatchSize: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Batches)
	assert.Equal(t, 5, res.TotalFetched)
	assert.Equal(t, 5, res.TotalWritten)
	assert.Zero(t, res.SkippedHaving)
	assert.Empty(t, res.Errors)
	require.Len(t, target.written, 3)

	// A short third batch means no fourth fetch.
	assert.Equal(t, 3, origin.reads)

	// Each subsequent fetch resumes from the previous batch's watermark.
	assert.Equal(t, "seed", origin.cursors[0].Start)
	assert.Equal(t, "watermark-1", origin.cursors[1].Start)
	assert.Equal(t, "watermark-2", origin.cursors[2].Start)
	assert.Equal(t, "watermark-3", cursor.End)
}

func TestPullEmptyOrigin(t *testing.T) {
	origin := newFakeConnector("origin")
	target := newFakeConnector("target")

	seed := filter.Cursor{Mode: filter.CursorModeUpdatedAt, Start: "seed", SortBy: filter.SortAsc}
	cursor, res, err := testEngine().Pull(context.Background(), PullParams{
		Resource: filter.ResourceJob,
		Origin:   origin,
		Target:   target,
		Cursor:   seed,
	})
	require.NoError(t, err)
	assert.Zero(t, res.Batches)
	assert.Zero(t, res.TotalFetched)
	assert.Equal(t, seed, cursor)
	assert.Empty(t, target.written)
}

func TestPullPostfilter(t *testing.T) {
	origin := newFakeConnector("origin",
		[]filter.Record{
			job("j1", "Data Engineer"),
			job("j2", "Product Manager"),
			job("j3", "Backend Engineer"),
		},
	)
	target := newFakeConnector("target")

	_, res, err := testEngine().Pull(context.Background(), PullParams{
		Resource: filter.ResourceJob,
		Origin:   origin,
		Target:   target,
		Cursor:   filter.Cursor{Mode: filter.CursorModeUpdatedAt, SortBy: filter.SortAsc},
		Having: []filter.Condition{
			{Field: "title", Op: filter.OpContains, Value: "Engineer"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.TotalFetched)
	assert.Equal(t, 2, res.TotalWritten)
	assert.Equal(t, 1, res.SkippedHaving)
	assert.Empty(t, res.Errors)
	require.Len(t, target.written, 1)
	assert.Equal(t, "j1", target.written[0][0]["key"])
	assert.Equal(t, "j3", target.written[0][1]["key"])
}

func TestPullFetchErrorReturnsCommittedCursor(t *testing.T) {
	origin := newFakeConnector("origin",
		[]filter.Record{job("j1", "a"), job("j2", "b")},
	)
	origin.failFetchAt = 2
	target := newFakeConnector("target")

	cursor, res, err := testEngine().Pull(context.Background(), PullParams{
		Resource:  filter.ResourceJob,
		Origin:    origin,
		Target:    target,
		Cursor:    filter.Cursor{Mode: filter.CursorModeUpdatedAt, SortBy: filter.SortAsc},
		BatchSize: 2,
	})
	require.Error(t, err)

	var ce *ConnectorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "fetch", ce.Op)
	assert.Equal(t, "origin", ce.Connector)

	// The first batch went through; its watermark is safe to persist.
	assert.Equal(t, "watermark-1", cursor.End)
	assert.Equal(t, 1, res.Batches)
	assert.Equal(t, 2, res.TotalWritten)
}

func TestPullWriteErrorReturnsCommittedCursor(t *testing.T) {
	origin := newFakeConnector("origin",
		[]filter.Record{job("j1", "a")},
	)
	target := newFakeConnector("target")
	target.failWrite = true

	seed := filter.Cursor{Mode: filter.CursorModeUpdatedAt, Start: "seed", SortBy: filter.SortAsc}
	cursor, res, err := testEngine().Pull(context.Background(), PullParams{
		Resource: filter.ResourceJob,
		Origin:   origin,
		Target:   target,
		Cursor:   seed,
	})
	require.Error(t, err)

	var ce *ConnectorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "write", ce.Op)

	// Nothing committed, the caller resumes from the seed cursor.
	assert.Equal(t, seed, cursor)
	assert.Zero(t, res.TotalWritten)
}

func TestPullDryRun(t *testing.T) {
	origin := newFakeConnector("origin",
		[]filter.Record{job("j1", "a"), job("j2", "b")},
	)
	target := newFakeConnector("target")

	_, res, err := testEngine().Pull(context.Background(), PullParams{
		Resource: filter.ResourceJob,
		Origin:   origin,
		Target:   target,
		Cursor:   filter.Cursor{Mode: filter.CursorModeUpdatedAt, SortBy: filter.SortAsc},
		DryRun:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalFetched)
	assert.Equal(t, 2, res.TotalWritten, "dry run reports full counts")
	assert.Empty(t, target.written, "dry run writes nothing")
}

func TestPullNilConnectors(t *testing.T) {
	_, _, err := testEngine().Pull(context.Background(), PullParams{Resource: filter.ResourceJob})
	assert.Error(t, err)
}

func TestPullFormatErrorIsolated(t *testing.T) {
	origin := newFakeConnector("origin",
		[]filter.Record{job("j1", "a"), job("j2", "b"), job("j3", "c")},
	)
	target := newFakeConnector("target")

	f := formatter.FromFunc(func(rec filter.Record) (filter.Record, error) {
		if rec["key"] == "j2" {
			return nil, errors.New("unformattable")
		}
		return filter.Record{"key": rec["key"], "title": rec["title"]}, nil
	})

	_, res, err := testEngine().Pull(context.Background(), PullParams{
		Resource:  filter.ResourceJob,
		Origin:    origin,
		Target:    target,
		Cursor:    filter.Cursor{Mode: filter.CursorModeUpdatedAt, SortBy: filter.SortAsc},
		Formatter: f,
	})
	require.NoError(t, err, "a per-record format failure does not fail the run")

	assert.Equal(t, 3, res.TotalFetched)
	assert.Equal(t, 2, res.TotalWritten)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "format", res.Errors[0].Stage)
	assert.Equal(t, 1, res.Errors[0].Index)
}

func TestPushResources(t *testing.T) {
	origin := newFakeConnector("origin")
	target := newFakeConnector("target")

	records := []filter.Record{
		job("j1", "Data Engineer"),
		job("j2", "Product Manager"),
		job("j3", "Backend Engineer"),
	}
	res, err := testEngine().Push(context.Background(), PushParams{
		Resource: filter.ResourceJob,
		Origin:   origin,
		Target:   target,
		Mode:     PushModeResources,
		Records:  records,
		Having: []filter.Condition{
			{Field: "title", Op: filter.OpContains, Value: "Engineer"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.TotalResourcesFetched)
	assert.Equal(t, 2, res.TotalResourcesPushed)
	assert.Equal(t, 1, res.SkippedHaving)
	assert.Zero(t, res.SkippedMissing)
	assert.Empty(t, res.Errors)
	require.Len(t, target.written, 1)
	assert.Len(t, target.written[0], 2)
}

func TestPushResourcesBatching(t *testing.T) {
	origin := newFakeConnector("origin")
	target := newFakeConnector("target")

	records := []filter.Record{
		job("j1", "a"), job("j2", "b"), job("j3", "c"), job("j4", "d"), job("j5", "e"),
	}
	res, err := testEngine().Push(context.Background(), PushParams{
		Resource:  filter.ResourceJob,
		Origin:    origin,
		Target:    target,
		Mode:      PushModeResources,
		Records:   records,
		BatchSize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.TotalResourcesPushed)
	require.Len(t, target.written, 3)
	assert.Len(t, target.written[2], 1)
}

func TestPushResourcesWithoutRecords(t *testing.T) {
	origin := newFakeConnector("origin")
	target := newFakeConnector("target")

	_, err := testEngine().Push(context.Background(), PushParams{
		Resource: filter.ResourceJob,
		Origin:   origin,
		Target:   target,
		Mode:     PushModeResources,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires records")
	assert.Empty(t, target.written)

	// An explicitly empty seed is a valid no-op.
	res, err := testEngine().Push(context.Background(), PushParams{
		Resource: filter.ResourceJob,
		Origin:   origin,
		Target:   target,
		Mode:     PushModeResources,
		Records:  []filter.Record{},
	})
	require.NoError(t, err)
	assert.Zero(t, res.TotalResourcesPushed)
}

func TestPushEventsAccounting(t *testing.T) {
	origin := newFakeConnector("origin",
		[]filter.Record{job("j1", "Data Engineer"), job("j2", "Product Manager")},
	)
	target := newFakeConnector("target")

	events := []Event{
		{EventID: "e1", ResourceID: "j1"},
		{EventID: "e2", ResourceID: "j2"},
		{EventID: "e3", ResourceID: "gone-1"},
		{EventID: "e4", ResourceID: "gone-2"},
	}
	res, err := testEngine().Push(context.Background(), PushParams{
		Resource: filter.ResourceJob,
		Origin:   origin,
		Target:   target,
		Mode:     PushModeEvents,
		Events:   events,
		Having: []filter.Condition{
			{Field: "title", Op: filter.OpContains, Value: "Engineer"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, res.TotalEvents)
	assert.Equal(t, 2, res.TotalResourcesFetched)
	assert.Equal(t, 2, res.SkippedMissing)
	assert.Equal(t, 1, res.SkippedHaving)
	assert.Equal(t, 1, res.TotalResourcesPushed)
	assert.Empty(t, res.Errors)
}

func TestPushEventsFetchErrorContinues(t *testing.T) {
	origin := newFakeConnector("origin")
	origin.fetchByIDErr = errors.New("lookup backend down")
	target := newFakeConnector("target")

	res, err := testEngine().Push(context.Background(), PushParams{
		Resource:  filter.ResourceJob,
		Origin:    origin,
		Target:    target,
		Mode:      PushModeEvents,
		Events:    []Event{{EventID: "e1", ResourceID: "j1"}, {EventID: "e2", ResourceID: "j2"}},
		BatchSize: 1,
	})
	require.NoError(t, err, "event resolution failures are recorded, not fatal")

	assert.Equal(t, 2, res.TotalEvents)
	assert.Zero(t, res.TotalResourcesPushed)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "fetch_events", res.Errors[0].Stage)
	assert.Equal(t, 0, res.Errors[0].Index)
	assert.Equal(t, 1, res.Errors[1].Index)
}

func TestPushWriteErrorIsFatal(t *testing.T) {
	origin := newFakeConnector("origin")
	target := newFakeConnector("target")
	target.failWrite = true

	res, err := testEngine().Push(context.Background(), PushParams{
		Resource: filter.ResourceJob,
		Origin:   origin,
		Target:   target,
		Mode:     PushModeResources,
		Records:  []filter.Record{job("j1", "a")},
	})
	require.Error(t, err)

	var ce *ConnectorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "write", ce.Op)
	assert.Equal(t, "target", ce.Connector)
	assert.Zero(t, res.TotalResourcesPushed)
}

func TestPushDryRun(t *testing.T) {
	origin := newFakeConnector("origin")
	target := newFakeConnector("target")

	res, err := testEngine().Push(context.Background(), PushParams{
		Resource: filter.ResourceJob,
		Origin:   origin,
		Target:   target,
		Mode:     PushModeResources,
		Records:  []filter.Record{job("j1", "a"), job("j2", "b")},
		DryRun:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalResourcesPushed)
	assert.Empty(t, target.written)
}

func TestPushUnsupportedMode(t *testing.T) {
	origin := newFakeConnector("origin")
	target := newFakeConnector("target")

	_, err := testEngine().Push(context.Background(), PushParams{
		Resource: filter.ResourceJob,
		Origin:   origin,
		Target:   target,
		Mode:     PushMode("bulk"),
	})
	assert.Error(t, err)
}

func TestParsePushMode(t *testing.T) {
	mode, err := ParsePushMode("events")
	require.NoError(t, err)
	assert.Equal(t, PushModeEvents, mode)

	_, err = ParsePushMode("stream")
	assert.Error(t, err)
}
