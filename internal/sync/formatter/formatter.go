// Package formatter decides how an origin-native record becomes a
// target-native record. A Formatter is either an explicit transform
// function or an ordered field mapping; when neither is supplied the
// resolver falls back to the canonical unified round-trip through the
// connectors' own conversions.
package formatter

import (
	"fmt"

	"github.com/talentloop/talentsync/internal/sync/filter"
	"github.com/talentloop/talentsync/internal/sync/schema"
)

// FieldMap copies one origin field into one target field.
type FieldMap struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Func is an explicit per-record transform. Its output is constructed
// against the target record type before use.
type Func func(filter.Record) (filter.Record, error)

// Formatter is a tagged variant: exactly one of Fn or Mapping is set, or
// neither for the unified fallback. Dispatch is explicit rather than by
// shape-sniffing the value.
type Formatter struct {
	Fn      Func
	Mapping []FieldMap
}

func FromFunc(fn Func) Formatter         { return Formatter{Fn: fn} }
func FromMapping(m []FieldMap) Formatter { return Formatter{Mapping: m} }
func (f Formatter) IsZero() bool         { return f.Fn == nil && len(f.Mapping) == 0 }

// Converter is the slice of the connector capability the resolver needs.
type Converter interface {
	Name() string
	RecordType(resource filter.Resource) *schema.RecordType
	ToUnified(resource filter.Resource, rec filter.Record) (filter.Record, error)
	FromUnified(resource filter.Resource, rec filter.Record) (filter.Record, error)
}

// RecordError is a formatting failure isolated to one record of a batch.
type RecordError struct {
	Index int
	Err   error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

// Resolve turns a batch of origin-native records into target-native
// records. A failure of one record is recorded and skipped; the rest of
// the batch is still processed.
func Resolve(resource filter.Resource, origin, target Converter, f Formatter, records []filter.Record) ([]filter.Record, []RecordError) {
	out := make([]filter.Record, 0, len(records))
	var failed []RecordError

	for i, rec := range records {
		formatted, err := resolveOne(resource, origin, target, f, rec)
		if err != nil {
			failed = append(failed, RecordError{Index: i, Err: err})
			continue
		}
		out = append(out, formatted)
	}
	return out, failed
}

func resolveOne(resource filter.Resource, origin, target Converter, f Formatter, rec filter.Record) (filter.Record, error) {
	switch {
	case f.Fn != nil:
		mapped, err := f.Fn(rec)
		if err != nil {
			return nil, err
		}
		return constructTarget(resource, target, mapped)
	case len(f.Mapping) > 0:
		mapped := make(map[string]any, len(f.Mapping))
		for _, m := range f.Mapping {
			if v, ok := rec.Lookup(m.From); ok {
				mapped[m.To] = v
			}
		}
		return constructTarget(resource, target, mapped)
	default:
		unified, err := origin.ToUnified(resource, rec)
		if err != nil {
			return nil, fmt.Errorf("to unified via %s: %w", origin.Name(), err)
		}
		native, err := target.FromUnified(resource, unified)
		if err != nil {
			return nil, fmt.Errorf("from unified via %s: %w", target.Name(), err)
		}
		return native, nil
	}
}

func constructTarget(resource filter.Resource, target Converter, data map[string]any) (filter.Record, error) {
	rt := target.RecordType(resource)
	if rt == nil {
		return nil, fmt.Errorf("connector %s has no record type for resource %q", target.Name(), resource)
	}
	return rt.Construct(data)
}
