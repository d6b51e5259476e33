// Package binder translates abstract filter conditions plus a cursor into
// the query parameter shapes a warehouse backend expects. Four independent
// strategies each own a disjoint subset of the output keys: equality,
// IN, boolean search, and cursor range. The result of a Bind call is
// deterministic for a given record type, condition list, and cursor.
package binder

import (
	"fmt"
	"strings"

	"github.com/talentloop/talentsync/internal/sync/filter"
	"github.com/talentloop/talentsync/internal/sync/schema"
)

// Params maps backend query parameter names to scalar or list values.
type Params map[string]any

// DefaultSortParam names the order parameter when the connector supplies
// no override.
const DefaultSortParam = "order"

// Bind composes the four sub-binders and merges their output. A key
// emitted by more than one sub-binder indicates conflicting field
// metadata and is reported as an error rather than silently overwritten.
func Bind(rt *schema.RecordType, conds []filter.Condition, cursor *filter.Cursor, sortParamName string) (Params, error) {
	merged := make(Params)

	parts := make([]Params, 0, 4)
	eq, err := bindEquality(rt, conds, cursor)
	if err != nil {
		return nil, err
	}
	parts = append(parts, eq)

	in, err := bindIn(rt, conds)
	if err != nil {
		return nil, err
	}
	parts = append(parts, in)

	search := bindSearch(rt, conds)
	parts = append(parts, search)

	if cursor != nil {
		cur, err := bindCursor(rt, *cursor, sortParamName)
		if err != nil {
			return nil, err
		}
		parts = append(parts, cur)
	}

	for _, p := range parts {
		for k, v := range p {
			if _, dup := merged[k]; dup {
				return nil, fmt.Errorf("query parameter %q bound by more than one strategy; fix the field metadata", k)
			}
			merged[k] = v
		}
	}
	return merged, nil
}

// bindEquality handles EQ/GT/GTE/LT/LTE conditions not claimed by another
// strategy. Fields with a search binding are bound exclusively by the
// search binder; conditions on the active cursor field are claimed by the
// cursor binder.
func bindEquality(rt *schema.RecordType, conds []filter.Condition, cursor *filter.Cursor) (Params, error) {
	var cursorField string
	if cursor != nil {
		if f, _, ok := rt.CursorField(cursor.Mode); ok {
			cursorField = f.Name
		}
	}

	out := make(Params)
	for _, c := range conds {
		switch c.Op {
		case filter.OpEq, filter.OpGt, filter.OpGte, filter.OpLt, filter.OpLte:
		default:
			continue
		}
		f, ok := rt.Field(c.Field)
		if !ok {
			return nil, fmt.Errorf("condition on %q: %w", c.Field, schema.ErrUnknownField)
		}
		if f.Search != nil || f.Name == cursorField {
			continue
		}
		key := c.Field
		if c.Op != filter.OpEq {
			key = c.Field + "__" + string(c.Op)
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("duplicate %s condition on field %q", c.Op, c.Field)
		}
		out[key] = c.Value
	}
	return out, nil
}

// bindIn handles IN conditions through the field's in_binding metadata.
func bindIn(rt *schema.RecordType, conds []filter.Condition) (Params, error) {
	out := make(Params)
	for _, c := range conds {
		if c.Op != filter.OpIn {
			continue
		}
		values, ok := filter.AsSlice(c.Value)
		if !ok {
			return nil, fmt.Errorf("condition on %q: IN value must be a list", c.Field)
		}
		f, found := rt.Field(c.Field)
		if !found {
			return nil, fmt.Errorf("condition on %q: %w", c.Field, schema.ErrUnknownField)
		}

		key := c.Field + "__in"
		format := schema.InFormatterArray
		if f.In != nil {
			if f.In.QueryField != "" {
				key = f.In.QueryField
			}
			if f.In.Formatter != "" {
				format = f.In.Formatter
			}
		}

		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("duplicate IN condition bound to query field %q", key)
		}
		out[key] = formatInValues(values, format)
	}
	return out, nil
}

func formatInValues(values []any, format schema.InFormatter) any {
	switch format {
	case schema.InFormatterCSV:
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = fmt.Sprint(v)
		}
		return strings.Join(parts, ",")
	case schema.InFormatterArrayString:
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = fmt.Sprint(v)
		}
		return parts
	default:
		return values
	}
}

// bindSearch groups CONTAINS conditions on search-bound fields by their
// declared search field and composes one boolean expression per group.
// Every per-field expression is parenthesized regardless of arity; groups
// are joined by each subsequent field's field_join in declaration order.
func bindSearch(rt *schema.RecordType, conds []filter.Condition) Params {
	type group struct {
		key  string
		expr strings.Builder
		n    int
	}
	var order []string
	groups := make(map[string]*group)

	for _, c := range conds {
		if c.Op != filter.OpContains {
			continue
		}
		f, ok := rt.Field(c.Field)
		if !ok || f.Search == nil {
			continue
		}
		sb := f.Search

		valueJoin := sb.ValueJoin
		if valueJoin == "" {
			valueJoin = schema.JoinOr
		}
		fieldJoin := sb.FieldJoin
		if fieldJoin == "" {
			fieldJoin = schema.JoinAnd
		}

		var values []any
		if list, isList := filter.AsSlice(c.Value); isList {
			values = list
		} else {
			values = []any{c.Value}
		}
		terms := make([]string, len(values))
		for i, v := range values {
			terms[i] = fmt.Sprint(v)
		}
		fieldExpr := strings.Join(terms, " "+string(valueJoin)+" ")

		g, exists := groups[sb.SearchField]
		if !exists {
			g = &group{key: sb.SearchField}
			groups[sb.SearchField] = g
			order = append(order, sb.SearchField)
		}
		if g.n > 0 {
			g.expr.WriteString(" " + string(fieldJoin) + " ")
		}
		g.expr.WriteString("(" + fieldExpr + ")")
		g.n++
	}

	out := make(Params, len(order))
	for _, key := range order {
		out[key] = groups[key].expr.String()
	}
	return out
}

// bindCursor emits the range-start and order parameters for the cursor.
// The start parameter name comes from the field's cursor metadata when
// declared, otherwise falls back to "<field>__gte" for ascending order and
// "<field>__lte" for descending.
func bindCursor(rt *schema.RecordType, cursor filter.Cursor, sortParamName string) (Params, error) {
	cursor = cursor.WithDefaults()
	f, role, ok := rt.CursorField(cursor.Mode)
	if !ok {
		return nil, fmt.Errorf("record type %q has no field serving cursor mode %q", rt.Name(), cursor.Mode)
	}

	out := make(Params, 2)
	if cursor.Start != "" {
		startKey := role.StartParam
		if startKey == "" {
			if cursor.SortBy == filter.SortDesc {
				startKey = f.Name + "__lte"
			} else {
				startKey = f.Name + "__gte"
			}
		}
		out[startKey] = cursor.Start
	}

	sortKey := sortParamName
	if sortKey == "" {
		sortKey = DefaultSortParam
	}
	label := role.AscLabel
	if cursor.SortBy == filter.SortDesc {
		label = role.DescLabel
	}
	if label == "" {
		label = string(cursor.SortBy)
	}
	out[sortKey] = label
	return out, nil
}
