package schema

import (
	"fmt"
	"strings"

	"github.com/talentloop/talentsync/internal/sync/filter"
)

// ConstructError reports which required fields were absent when building a
// record from a generic mapping. It is attributed to a single record, not
// the batch.
type ConstructError struct {
	RecordType string
	Missing    []string
}

func (e *ConstructError) Error() string {
	return fmt.Sprintf("record type %q: missing required fields: %s",
		e.RecordType, strings.Join(e.Missing, ", "))
}

// Construct builds a record of this type from a generic key/value mapping.
// Keys without a matching field descriptor are dropped; required fields
// that are absent or nil produce a ConstructError.
func (rt *RecordType) Construct(data map[string]any) (filter.Record, error) {
	out := make(filter.Record, len(rt.fields))
	var missing []string
	for _, f := range rt.fields {
		v, ok := data[f.Name]
		if !ok || v == nil {
			if f.Required {
				missing = append(missing, f.Name)
			}
			continue
		}
		out[f.Name] = v
	}
	if len(missing) > 0 {
		return nil, &ConstructError{RecordType: rt.name, Missing: missing}
	}
	return out, nil
}
