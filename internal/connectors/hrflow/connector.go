package hrflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/talentloop/talentsync/internal/sync/binder"
	"github.com/talentloop/talentsync/internal/sync/engine"
	"github.com/talentloop/talentsync/internal/sync/filter"
	"github.com/talentloop/talentsync/internal/sync/schema"
	"github.com/talentloop/talentsync/internal/sync/unified"
)

// Connector adapts the talent API to the sync engine's capability
// interface. One instance is bound to one endpoint (base URL + API key).
type Connector struct {
	name   string
	client *client
}

func New(name, baseURL, apiKey string) (*Connector, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("hrflow connector %q: base URL is required", name)
	}
	return &Connector{name: name, client: newClient(baseURL, apiKey)}, nil
}

func (c *Connector) Name() string { return c.name }

func (c *Connector) RecordType(resource filter.Resource) *schema.RecordType {
	return recordType(resource)
}

func searchPath(resource filter.Resource) string {
	if resource == filter.ResourceProfile {
		return "/profiles/searching"
	}
	return "/jobs/searching"
}

func indexPath(resource filter.Resource) string {
	if resource == filter.ResourceProfile {
		return "/profiles/indexing/bulk"
	}
	return "/jobs/indexing/bulk"
}

type searchResult struct {
	Jobs     []filter.Record `json:"jobs"`
	Profiles []filter.Record `json:"profiles"`
}

func (r searchResult) records(resource filter.Resource) []filter.Record {
	if resource == filter.ResourceProfile {
		return r.Profiles
	}
	return r.Jobs
}

func (c *Connector) ReadBatch(ctx context.Context, resource filter.Resource, prefilters []filter.Condition, cursor filter.Cursor, batchSize int) ([]filter.Record, filter.Cursor, error) {
	params, err := binder.Bind(recordType(resource), prefilters, &cursor, sortParam)
	if err != nil {
		return nil, cursor, err
	}
	params["limit"] = batchSize

	var result searchResult
	if err := c.client.get(ctx, searchPath(resource), params, &result); err != nil {
		return nil, cursor, err
	}
	records := result.records(resource)

	next := cursor
	if len(records) > 0 {
		if watermark, ok := batchWatermark(recordType(resource), cursor, records[len(records)-1]); ok {
			next.End = watermark
		}
	}
	return records, next, nil
}

// batchWatermark reads the cursor field value of the last record in a
// batch. Records arrive ordered by that field.
func batchWatermark(rt *schema.RecordType, cursor filter.Cursor, last filter.Record) (string, bool) {
	f, _, ok := rt.CursorField(cursor.WithDefaults().Mode)
	if !ok {
		return "", false
	}
	v, ok := last.Lookup(f.Name)
	if !ok || v == nil {
		return "", false
	}
	return fmt.Sprint(v), true
}

func (c *Connector) WriteBatch(ctx context.Context, resource filter.Resource, records []filter.Record) error {
	if len(records) == 0 {
		return nil
	}
	body := map[string]any{"items": records}
	return c.client.post(ctx, indexPath(resource), body, nil)
}

func (c *Connector) ResourceID(resource filter.Resource, rec filter.Record) (string, error) {
	key, ok := rec["key"].(string)
	if !ok || key == "" {
		return "", fmt.Errorf("%s record has no key", resource)
	}
	return key, nil
}

// webhookPayload is the body of a change webhook.
type webhookPayload struct {
	Type       string         `json:"type"` // e.g. "job.updated", "profile.created"
	OccurredAt string         `json:"occurred_at"`
	Data       map[string]any `json:"data"`
}

func (c *Connector) ParseEvent(resource filter.Resource, raw []byte) (*engine.Event, error) {
	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	// Events for other resources are not ours to handle.
	if !strings.HasPrefix(payload.Type, string(resource)+".") {
		return nil, nil
	}
	key, _ := payload.Data["key"].(string)
	if key == "" {
		return nil, fmt.Errorf("webhook %s payload has no key", payload.Type)
	}
	return &engine.Event{
		EventID:    fmt.Sprintf("%s:%s:%s", payload.Type, key, payload.OccurredAt),
		ResourceID: key,
		Type:       payload.Type,
		Payload:    payload.Data,
	}, nil
}

func (c *Connector) FetchByEvents(ctx context.Context, resource filter.Resource, events []engine.Event) ([]filter.Record, error) {
	if len(events) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(events))
	for _, ev := range events {
		keys = append(keys, ev.ResourceID)
	}
	params := binder.Params{"keys": keys, "limit": len(keys)}

	var result searchResult
	if err := c.client.get(ctx, searchPath(resource), params, &result); err != nil {
		return nil, err
	}
	return result.records(resource), nil
}

func (c *Connector) ToUnified(resource filter.Resource, rec filter.Record) (filter.Record, error) {
	data := make(map[string]any, len(rec))
	for k, v := range rec {
		data[k] = v
	}
	if resource == filter.ResourceProfile {
		flattenInfo(rec, data)
	}
	return unified.ByResource(resource).Construct(data)
}

func (c *Connector) FromUnified(resource filter.Resource, rec filter.Record) (filter.Record, error) {
	data := make(map[string]any, len(rec))
	for k, v := range rec {
		data[k] = v
	}
	if resource == filter.ResourceProfile {
		data["info"] = nestInfo(rec)
	}
	return recordType(resource).Construct(data)
}

// infoFields are the unified identity fields stored under the native
// profile's nested info object.
var infoFields = []string{"full_name", "first_name", "last_name", "email", "phone", "date_birth", "location", "urls", "picture", "summary"}

func flattenInfo(rec filter.Record, data map[string]any) {
	for _, name := range infoFields {
		if v, ok := rec.Lookup("info." + name); ok {
			data[name] = v
		}
	}
	delete(data, "info")
}

func nestInfo(rec filter.Record) map[string]any {
	info := make(map[string]any, len(infoFields))
	for _, name := range infoFields {
		if v, ok := rec[name]; ok && v != nil {
			info[name] = v
		}
	}
	return info
}
