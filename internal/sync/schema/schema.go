// Package schema holds the per-field metadata the sync core is driven by:
// cursor roles, allowed prefilter operators, and the search/IN binding rules
// the query parameter binder translates conditions with. Record types are
// declared once per connector model at registration time; the core only
// reads them.
package schema

import (
	"fmt"

	"github.com/talentloop/talentsync/internal/sync/filter"
)

// BoolJoin is the textual join used when composing search expressions.
type BoolJoin string

const (
	JoinAnd BoolJoin = "AND"
	JoinOr  BoolJoin = "OR"
)

// InFormatter selects the output shape of an IN-bound query parameter.
type InFormatter string

const (
	InFormatterArray       InFormatter = "array"
	InFormatterCSV         InFormatter = "csv"
	InFormatterArrayString InFormatter = "array_string"
)

// CursorRole marks a field as usable as the pagination watermark for one
// cursor mode, with optional overrides for the backend parameter names and
// order direction labels.
type CursorRole struct {
	Mode       filter.CursorMode
	StartParam string // range lower/upper bound parameter, e.g. "date_range_min"
	EndParam   string
	AscLabel   string
	DescLabel  string
}

// SearchBinding routes CONTAINS conditions on a field into a shared
// full-text search parameter.
type SearchBinding struct {
	SearchField string
	FieldJoin   BoolJoin // joins this field's expression with other fields'
	ValueJoin   BoolJoin // joins multiple values supplied for this field
}

// InBinding routes IN conditions on a field into a backend list parameter.
type InBinding struct {
	QueryField string
	Formatter  InFormatter
}

// Field is the descriptor for one attribute of a record type. A field has
// zero or more capabilities: cursor roles, a prefilter operator set, a
// search binding, an IN binding.
type Field struct {
	Name      string
	Type      string // exported type tag: string, float, int, bool, datetime, list, object
	Required  bool
	Cursor    []CursorRole
	Prefilter []filter.Operator
	Search    *SearchBinding
	In        *InBinding
}

func (f Field) allowsOperator(op filter.Operator) bool {
	for _, allowed := range f.Prefilter {
		if allowed == op {
			return true
		}
	}
	return false
}

// RecordType is the ordered field list plus metadata for one native or
// unified model. Declaration order is significant: cursor role tie-breaks
// and search expression composition follow it.
type RecordType struct {
	name     string
	resource filter.Resource
	fields   []Field
	index    map[string]int
}

// New builds a RecordType. Duplicate field names are a programming error
// in the connector definition and panic at registration time.
func New(name string, resource filter.Resource, fields ...Field) *RecordType {
	rt := &RecordType{
		name:     name,
		resource: resource,
		fields:   fields,
		index:    make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if _, dup := rt.index[f.Name]; dup {
			panic(fmt.Sprintf("schema: record type %q declares field %q twice", name, f.Name))
		}
		rt.index[f.Name] = i
	}
	return rt
}

func (rt *RecordType) Name() string              { return rt.name }
func (rt *RecordType) Resource() filter.Resource { return rt.resource }
func (rt *RecordType) Fields() []Field           { return rt.fields }

// Field returns the descriptor for a field name.
func (rt *RecordType) Field(name string) (Field, bool) {
	i, ok := rt.index[name]
	if !ok {
		return Field{}, false
	}
	return rt.fields[i], true
}

// CursorField returns the first declared field serving the given cursor
// role. Multiple fields declaring the same role is a metadata authoring
// error; the first one wins and the rest are ignored.
func (rt *RecordType) CursorField(mode filter.CursorMode) (Field, CursorRole, bool) {
	for _, f := range rt.fields {
		for _, role := range f.Cursor {
			if role.Mode == mode {
				return f, role, true
			}
		}
	}
	return Field{}, CursorRole{}, false
}
