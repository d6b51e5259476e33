package hrflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentloop/talentsync/internal/sync/binder"
	"github.com/talentloop/talentsync/internal/sync/engine"
	"github.com/talentloop/talentsync/internal/sync/filter"
)

func TestEncodeParams(t *testing.T) {
	values := encodeParams(binder.Params{
		"keywords":   "golang",
		"board_keys": []string{"b1", "b2"},
		"tags":       []any{"remote", 7},
		"limit":      50,
	})

	assert.Equal(t, "golang", values.Get("keywords"))
	assert.Equal(t, []string{"b1", "b2"}, values["board_keys"])
	assert.Equal(t, []string{"remote", "7"}, values["tags"])
	assert.Equal(t, "50", values.Get("limit"))
}

func newTestConnector(t *testing.T, handler http.HandlerFunc) *Connector {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New("test", srv.URL, "secret-key")
	require.NoError(t, err)
	return c
}

func TestReadBatch(t *testing.T) {
	var gotQuery url.Values
	var gotKey string
	c := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/jobs/searching", r.URL.Path)
		gotQuery = r.URL.Query()
		gotKey = r.Header.Get("X-API-KEY")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"code": 200,
			"data": {"jobs": [
				{"key": "j1", "updated_at": "2024-03-01T00:00:00Z"},
				{"key": "j2", "updated_at": "2024-03-02T12:30:00Z"}
			]}
		}`))
	})

	cursor := filter.Cursor{Start: "2024-01-01T00:00:00Z"}
	prefilters := []filter.Condition{
		{Field: "board_key", Op: filter.OpIn, Value: []any{"b1", "b2"}},
	}
	records, next, err := c.ReadBatch(context.Background(), filter.ResourceJob, prefilters, cursor, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "secret-key", gotKey)
	assert.Equal(t, "2024-01-01T00:00:00Z", gotQuery.Get("date_range_min"))
	assert.Equal(t, "asc", gotQuery.Get("order_by"))
	assert.Equal(t, "2", gotQuery.Get("limit"))
	assert.Equal(t, []string{"b1", "b2"}, gotQuery["board_keys"])

	// The watermark advances to the cursor field of the last record.
	assert.Equal(t, "2024-03-02T12:30:00Z", next.End)
	assert.Equal(t, cursor.Start, next.Start)
}

func TestReadBatchEmptyKeepsCursor(t *testing.T) {
	c := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 200, "data": {"jobs": []}}`))
	})

	cursor := filter.Cursor{End: "2024-02-01T00:00:00Z"}
	records, next, err := c.ReadBatch(context.Background(), filter.ResourceJob, nil, cursor, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, cursor, next)
}

func TestReadBatchHTTPError(t *testing.T) {
	c := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, _, err := c.ReadBatch(context.Background(), filter.ResourceJob, nil, filter.Cursor{}, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestWriteBatch(t *testing.T) {
	var gotBody map[string]any
	calls := 0
	c := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/profiles/indexing/bulk", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"code": 200}`))
	})

	records := []filter.Record{{"key": "p1"}, {"key": "p2"}}
	require.NoError(t, c.WriteBatch(context.Background(), filter.ResourceProfile, records))
	require.Equal(t, 1, calls)

	items, ok := gotBody["items"].([]any)
	require.True(t, ok)
	assert.Len(t, items, 2)

	// An empty batch never reaches the API.
	require.NoError(t, c.WriteBatch(context.Background(), filter.ResourceProfile, nil))
	assert.Equal(t, 1, calls)
}

func TestFetchByEvents(t *testing.T) {
	var gotQuery url.Values
	c := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/profiles/searching", r.URL.Path)
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"code": 200, "data": {"profiles": [{"key": "p1"}]}}`))
	})

	events := []engine.Event{
		{ResourceID: "p1"},
		{ResourceID: "p2"},
	}
	records, err := c.FetchByEvents(context.Background(), filter.ResourceProfile, events)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"p1", "p2"}, gotQuery["keys"])
	assert.Equal(t, "2", gotQuery.Get("limit"))

	records, err = c.FetchByEvents(context.Background(), filter.ResourceProfile, nil)
	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestParseEvent(t *testing.T) {
	c := &Connector{name: "test"}

	ev, err := c.ParseEvent(filter.ResourceJob, []byte(`{
		"type": "job.updated",
		"occurred_at": "2024-03-01T00:00:00Z",
		"data": {"key": "j1", "name": "Engineer"}
	}`))
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "job.updated:j1:2024-03-01T00:00:00Z", ev.EventID)
	assert.Equal(t, "j1", ev.ResourceID)
	assert.Equal(t, "job.updated", ev.Type)
	assert.Equal(t, "Engineer", ev.Payload["name"])

	// Profile events are ignored when syncing jobs.
	ev, err = c.ParseEvent(filter.ResourceJob, []byte(`{"type": "profile.created", "data": {"key": "p1"}}`))
	require.NoError(t, err)
	assert.Nil(t, ev)

	_, err = c.ParseEvent(filter.ResourceJob, []byte(`{"type": "job.updated", "data": {}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no key")

	_, err = c.ParseEvent(filter.ResourceJob, []byte(`{broken`))
	require.Error(t, err)
}

func TestResourceID(t *testing.T) {
	c := &Connector{name: "test"}

	id, err := c.ResourceID(filter.ResourceJob, filter.Record{"key": "j1"})
	require.NoError(t, err)
	assert.Equal(t, "j1", id)

	_, err = c.ResourceID(filter.ResourceJob, filter.Record{"name": "Engineer"})
	require.Error(t, err)
}

func TestProfileUnifiedRoundTrip(t *testing.T) {
	c := &Connector{name: "test"}

	native := filter.Record{
		"key":        "p1",
		"source_key": "s1",
		"created_at": "2024-01-01T00:00:00Z",
		"updated_at": "2024-02-01T00:00:00Z",
		"info": map[string]any{
			"full_name": "Ada Lovelace",
			"email":     "ada@example.com",
		},
		"skills": []any{"math"},
	}

	uni, err := c.ToUnified(filter.ResourceProfile, native)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", uni["full_name"])
	assert.Equal(t, "ada@example.com", uni["email"])
	_, hasInfo := uni["info"]
	assert.False(t, hasInfo)

	back, err := c.FromUnified(filter.ResourceProfile, uni)
	require.NoError(t, err)
	info, ok := back["info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ada Lovelace", info["full_name"])
	assert.Equal(t, "ada@example.com", info["email"])
	assert.Equal(t, "p1", back["key"])
}

func TestFromUnifiedMissingRequired(t *testing.T) {
	c := &Connector{name: "test"}

	_, err := c.FromUnified(filter.ResourceJob, filter.Record{"key": "j1"})
	require.Error(t, err)
}
