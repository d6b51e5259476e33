package filter

import (
	"fmt"
	"strings"
)

// Resource identifies the kind of entity moved between warehouses.
type Resource string

const (
	ResourceJob     Resource = "job"
	ResourceProfile Resource = "profile"
)

func ParseResource(s string) (Resource, error) {
	switch Resource(strings.ToLower(strings.TrimSpace(s))) {
	case ResourceJob:
		return ResourceJob, nil
	case ResourceProfile:
		return ResourceProfile, nil
	default:
		return "", fmt.Errorf("unsupported resource %q", s)
	}
}

// CursorMode names the record attribute used as the pagination watermark.
type CursorMode string

const (
	CursorModeID        CursorMode = "id"
	CursorModeCreatedAt CursorMode = "created_at"
	CursorModeUpdatedAt CursorMode = "updated_at"
)

func ParseCursorMode(s string) (CursorMode, error) {
	switch CursorMode(strings.ToLower(strings.TrimSpace(s))) {
	case CursorModeID:
		return CursorModeID, nil
	case CursorModeCreatedAt:
		return CursorModeCreatedAt, nil
	case CursorModeUpdatedAt:
		return CursorModeUpdatedAt, nil
	default:
		return "", fmt.Errorf("unsupported cursor mode %q", s)
	}
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Operator is the closed set of filter operators understood by the
// prefilter binders and the in-memory postfilter evaluator.
type Operator string

const (
	OpEq       Operator = "eq"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpIn       Operator = "in"
	OpContains Operator = "contains"
)

func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.ToLower(strings.TrimSpace(s)))
	switch op {
	case OpEq, OpGt, OpGte, OpLt, OpLte, OpIn, OpContains:
		return op, nil
	default:
		return "", fmt.Errorf("unsupported operator %q", s)
	}
}

// Condition is a single field predicate. Prefilter conditions are built
// through schema.Where and carry metadata validation; postfilter conditions
// may reference any field, including dotted paths into nested objects.
type Condition struct {
	Field string   `json:"field"`
	Op    Operator `json:"op"`
	Value any      `json:"value"`
}

func (c Condition) Validate() error {
	if strings.TrimSpace(c.Field) == "" {
		return fmt.Errorf("condition field is required")
	}
	if _, err := ParseOperator(string(c.Op)); err != nil {
		return err
	}
	if c.Op == OpIn {
		if _, ok := AsSlice(c.Value); !ok {
			return fmt.Errorf("condition on %q: operator %q requires a list value", c.Field, c.Op)
		}
	}
	return nil
}

// Cursor is the incremental-sync watermark. Start bounds the next fetch,
// End is the watermark observed after a batch and is what callers persist
// for resumption. Values are threaded explicitly and never mutated.
type Cursor struct {
	Mode   CursorMode `json:"mode"`
	Start  string     `json:"start,omitempty"`
	End    string     `json:"end,omitempty"`
	SortBy SortOrder  `json:"sort_by"`
}

// WithDefaults returns a copy with the documented defaults applied
// (sort_by=asc, mode=updated_at).
func (c Cursor) WithDefaults() Cursor {
	if c.Mode == "" {
		c.Mode = CursorModeUpdatedAt
	}
	if c.SortBy == "" {
		c.SortBy = SortAsc
	}
	return c
}

func (c Cursor) Validate() error {
	if _, err := ParseCursorMode(string(c.Mode)); err != nil {
		return err
	}
	switch c.SortBy {
	case SortAsc, SortDesc:
		return nil
	default:
		return fmt.Errorf("unsupported sort order %q", c.SortBy)
	}
}

// AsSlice normalizes a condition value into a generic slice. It accepts the
// shapes produced by JSON decoding and by Go callers.
func AsSlice(v any) ([]any, bool) {
	switch vv := v.(type) {
	case []any:
		return vv, true
	case []string:
		out := make([]any, len(vv))
		for i, s := range vv {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(vv))
		for i, n := range vv {
			out[i] = n
		}
		return out, true
	case []float64:
		out := make([]any, len(vv))
		for i, f := range vv {
			out[i] = f
		}
		return out, true
	default:
		return nil, false
	}
}
