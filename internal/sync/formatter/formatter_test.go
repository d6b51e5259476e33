package formatter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentloop/talentsync/internal/sync/filter"
	"github.com/talentloop/talentsync/internal/sync/schema"
)

// fakeConverter speaks a native dialect whose field names carry a prefix,
// so the unified round-trip is observable in the output.
type fakeConverter struct {
	name   string
	prefix string
	rt     *schema.RecordType
}

func newFakeConverter(name, prefix string) *fakeConverter {
	return &fakeConverter{
		name:   name,
		prefix: prefix,
		rt: schema.New(name+"_job", filter.ResourceJob,
			schema.Field{Name: "reference", Type: "string", Required: true},
			schema.Field{Name: "title", Type: "string"},
		),
	}
}

func (c *fakeConverter) Name() string { return c.name }

func (c *fakeConverter) RecordType(resource filter.Resource) *schema.RecordType {
	if resource != filter.ResourceJob {
		return nil
	}
	return c.rt
}

func (c *fakeConverter) ToUnified(_ filter.Resource, rec filter.Record) (filter.Record, error) {
	out := make(filter.Record, len(rec))
	for k, v := range rec {
		if s, ok := v.(string); ok && len(s) >= len(c.prefix) && s[:len(c.prefix)] == c.prefix {
			out[k] = s[len(c.prefix):]
			continue
		}
		out[k] = v
	}
	return out, nil
}

func (c *fakeConverter) FromUnified(_ filter.Resource, rec filter.Record) (filter.Record, error) {
	out := make(filter.Record, len(rec))
	for k, v := range rec {
		if s, ok := v.(string); ok {
			out[k] = c.prefix + s
			continue
		}
		out[k] = v
	}
	return out, nil
}

func TestResolveMapping(t *testing.T) {
	origin := newFakeConverter("origin", "o:")
	target := newFakeConverter("target", "t:")

	f := FromMapping([]FieldMap{
		{From: "key", To: "reference"},
		{From: "meta.headline", To: "title"},
	})
	records := []filter.Record{
		{"key": "job-1", "meta": map[string]any{"headline": "Data Engineer"}, "ignored": true},
	}

	out, failed := Resolve(filter.ResourceJob, origin, target, f, records)
	require.Empty(t, failed)
	require.Len(t, out, 1)
	assert.Equal(t, filter.Record{"reference": "job-1", "title": "Data Engineer"}, out[0])
}

func TestResolveMappingMissingRequired(t *testing.T) {
	origin := newFakeConverter("origin", "o:")
	target := newFakeConverter("target", "t:")

	f := FromMapping([]FieldMap{{From: "title", To: "title"}})
	out, failed := Resolve(filter.ResourceJob, origin, target, f, []filter.Record{
		{"title": "No Reference"},
	})
	assert.Empty(t, out)
	require.Len(t, failed, 1)

	var ce *schema.ConstructError
	require.ErrorAs(t, failed[0].Err, &ce)
	assert.Equal(t, []string{"reference"}, ce.Missing)
}

func TestResolveFunc(t *testing.T) {
	origin := newFakeConverter("origin", "o:")
	target := newFakeConverter("target", "t:")

	f := FromFunc(func(rec filter.Record) (filter.Record, error) {
		return filter.Record{"reference": rec["key"], "title": "fixed"}, nil
	})
	out, failed := Resolve(filter.ResourceJob, origin, target, f, []filter.Record{{"key": "job-1"}})
	require.Empty(t, failed)
	require.Len(t, out, 1)
	assert.Equal(t, "job-1", out[0]["reference"])
	assert.Equal(t, "fixed", out[0]["title"])
}

func TestResolveFallbackEqualsUnifiedRoundTrip(t *testing.T) {
	origin := newFakeConverter("origin", "o:")
	target := newFakeConverter("target", "t:")

	rec := filter.Record{"reference": "o:job-1", "title": "o:Data Engineer"}
	out, failed := Resolve(filter.ResourceJob, origin, target, Formatter{}, []filter.Record{rec})
	require.Empty(t, failed)
	require.Len(t, out, 1)

	unified, err := origin.ToUnified(filter.ResourceJob, rec)
	require.NoError(t, err)
	want, err := target.FromUnified(filter.ResourceJob, unified)
	require.NoError(t, err)
	assert.Equal(t, want, out[0])
	assert.Equal(t, "t:job-1", out[0]["reference"])
}

func TestResolveIsolatesPerRecordFailures(t *testing.T) {
	origin := newFakeConverter("origin", "o:")
	target := newFakeConverter("target", "t:")

	boom := errors.New("bad record")
	f := FromFunc(func(rec filter.Record) (filter.Record, error) {
		if rec["key"] == "job-2" {
			return nil, boom
		}
		return filter.Record{"reference": rec["key"]}, nil
	})
	records := []filter.Record{{"key": "job-1"}, {"key": "job-2"}, {"key": "job-3"}}

	out, failed := Resolve(filter.ResourceJob, origin, target, f, records)
	require.Len(t, out, 2)
	require.Len(t, failed, 1)
	assert.Equal(t, 1, failed[0].Index)
	assert.ErrorIs(t, failed[0].Err, boom)
	assert.Contains(t, failed[0].Error(), "record 1")
}

func TestFormatterIsZero(t *testing.T) {
	assert.True(t, Formatter{}.IsZero())
	assert.False(t, FromMapping([]FieldMap{{From: "a", To: "b"}}).IsZero())
	assert.False(t, FromFunc(func(r filter.Record) (filter.Record, error) { return r, nil }).IsZero())
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	err := reg.Put(Spec{ID: "", Mapping: []FieldMap{{From: "a", To: "b"}}})
	assert.Error(t, err)
	err = reg.Put(Spec{ID: "f1"})
	assert.Error(t, err)

	spec := Spec{ID: "f1", Resource: "job", Origin: "hrflow", Target: "warehouse",
		Mapping: []FieldMap{{From: "key", To: "reference"}}}
	require.NoError(t, reg.Put(spec))

	got, ok := reg.Get("f1")
	require.True(t, ok)
	assert.Equal(t, spec, got)
	assert.Len(t, got.Formatter().Mapping, 1)

	assert.Len(t, reg.List(), 1)

	reg.Delete("f1")
	_, ok = reg.Get("f1")
	assert.False(t, ok)
}
