package binder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentloop/talentsync/internal/sync/filter"
	"github.com/talentloop/talentsync/internal/sync/schema"
)

func testJobType() *schema.RecordType {
	return schema.New("test_job", filter.ResourceJob,
		schema.Field{Name: "key", Type: "string", Prefilter: []filter.Operator{filter.OpEq}},
		schema.Field{Name: "board_key", Type: "string", Prefilter: []filter.Operator{filter.OpIn},
			In: &schema.InBinding{QueryField: "board_keys", Formatter: schema.InFormatterCSV}},
		schema.Field{Name: "tags", Type: "list", Prefilter: []filter.Operator{filter.OpIn},
			In: &schema.InBinding{QueryField: "tags", Formatter: schema.InFormatterArrayString}},
		schema.Field{Name: "status", Type: "string", Prefilter: []filter.Operator{filter.OpIn}},
		schema.Field{Name: "name", Type: "string", Prefilter: []filter.Operator{filter.OpContains},
			Search: &schema.SearchBinding{SearchField: "keywords", FieldJoin: schema.JoinAnd, ValueJoin: schema.JoinOr}},
		schema.Field{Name: "text", Type: "string", Prefilter: []filter.Operator{filter.OpContains},
			Search: &schema.SearchBinding{SearchField: "keywords", FieldJoin: schema.JoinAnd, ValueJoin: schema.JoinOr}},
		schema.Field{Name: "updated_at", Type: "datetime",
			Cursor: []schema.CursorRole{{
				Mode:       filter.CursorModeUpdatedAt,
				StartParam: "date_range_min",
				EndParam:   "date_range_max",
				AscLabel:   "asc",
				DescLabel:  "desc",
			}},
			Prefilter: []filter.Operator{filter.OpGte, filter.OpLte}},
		schema.Field{Name: "created_at", Type: "datetime",
			Cursor: []schema.CursorRole{{Mode: filter.CursorModeCreatedAt}}},
	)
}

func TestBindEquality(t *testing.T) {
	rt := testJobType()
	params, err := Bind(rt, []filter.Condition{
		{Field: "key", Op: filter.OpEq, Value: "job-1"},
		{Field: "updated_at", Op: filter.OpGte, Value: "2024-01-01"},
	}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, Params{
		"key":             "job-1",
		"updated_at__gte": "2024-01-01",
	}, params)
}

func TestBindEqualitySkipsSearchBoundFields(t *testing.T) {
	rt := testJobType()
	params, err := Bind(rt, []filter.Condition{
		{Field: "name", Op: filter.OpEq, Value: "exact title"},
	}, nil, "")
	require.NoError(t, err)
	assert.Empty(t, params, "search-bound fields are bound exclusively by the search binder")
}

func TestBindInCSV(t *testing.T) {
	rt := testJobType()
	params, err := Bind(rt, []filter.Condition{
		{Field: "board_key", Op: filter.OpIn, Value: []any{"b1", "b2"}},
	}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, Params{"board_keys": "b1,b2"}, params)
}

func TestBindInFormatters(t *testing.T) {
	rt := testJobType()

	tests := []struct {
		name string
		cond filter.Condition
		key  string
		want any
	}{
		{
			name: "array_string coerces elements",
			cond: filter.Condition{Field: "tags", Op: filter.OpIn, Value: []any{"remote", 42}},
			key:  "tags",
			want: []string{"remote", "42"},
		},
		{
			name: "default array with key fallback",
			cond: filter.Condition{Field: "status", Op: filter.OpIn, Value: []any{"open", "archived"}},
			key:  "status__in",
			want: []any{"open", "archived"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := Bind(rt, []filter.Condition{tt.cond}, nil, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, params[tt.key])
		})
	}
}

func TestBindSearchComposition(t *testing.T) {
	rt := testJobType()
	params, err := Bind(rt, []filter.Condition{
		{Field: "name", Op: filter.OpContains, Value: "data"},
		{Field: "text", Op: filter.OpContains, Value: "science"},
	}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, Params{"keywords": "(data) AND (science)"}, params)
}

func TestBindSearchValueJoin(t *testing.T) {
	rt := testJobType()
	params, err := Bind(rt, []filter.Condition{
		{Field: "name", Op: filter.OpContains, Value: []any{"data", "ml"}},
		{Field: "text", Op: filter.OpContains, Value: "python"},
	}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "(data OR ml) AND (python)", params["keywords"])
}

func TestBindCursorWithOverrides(t *testing.T) {
	rt := testJobType()
	cursor := filter.Cursor{Mode: filter.CursorModeUpdatedAt, Start: "2024-01-01T00:00:00Z", SortBy: filter.SortAsc}
	params, err := Bind(rt, nil, &cursor, "")
	require.NoError(t, err)
	assert.Equal(t, Params{
		"date_range_min": "2024-01-01T00:00:00Z",
		"order":          "asc",
	}, params)
}

func TestBindCursorFallbackNames(t *testing.T) {
	rt := testJobType()

	asc := filter.Cursor{Mode: filter.CursorModeCreatedAt, Start: "x", SortBy: filter.SortAsc}
	params, err := Bind(rt, nil, &asc, "sort_by")
	require.NoError(t, err)
	assert.Equal(t, Params{"created_at__gte": "x", "sort_by": "asc"}, params)

	desc := filter.Cursor{Mode: filter.CursorModeCreatedAt, Start: "x", SortBy: filter.SortDesc}
	params, err = Bind(rt, nil, &desc, "")
	require.NoError(t, err)
	assert.Equal(t, Params{"created_at__lte": "x", "order": "desc"}, params)
}

func TestBindCursorWithoutStart(t *testing.T) {
	rt := testJobType()
	cursor := filter.Cursor{Mode: filter.CursorModeUpdatedAt, SortBy: filter.SortDesc}
	params, err := Bind(rt, nil, &cursor, "")
	require.NoError(t, err)
	assert.Equal(t, Params{"order": "desc"}, params)
}

func TestBindCursorUnknownMode(t *testing.T) {
	rt := schema.New("no_cursor", filter.ResourceJob,
		schema.Field{Name: "key", Type: "string"},
	)
	cursor := filter.Cursor{Mode: filter.CursorModeUpdatedAt, SortBy: filter.SortAsc}
	_, err := Bind(rt, nil, &cursor, "")
	assert.Error(t, err)
}

func TestBindCursorClaimsEqualityCondition(t *testing.T) {
	rt := testJobType()
	cursor := filter.Cursor{Mode: filter.CursorModeUpdatedAt, Start: "2024-02-01", SortBy: filter.SortAsc}
	params, err := Bind(rt, []filter.Condition{
		{Field: "updated_at", Op: filter.OpGte, Value: "2024-01-01"},
		{Field: "key", Op: filter.OpEq, Value: "job-1"},
	}, &cursor, "")
	require.NoError(t, err)
	assert.Equal(t, Params{
		"key":            "job-1",
		"date_range_min": "2024-02-01",
		"order":          "asc",
	}, params)
}

func TestBindDeterminism(t *testing.T) {
	rt := testJobType()
	conds := []filter.Condition{
		{Field: "board_key", Op: filter.OpIn, Value: []any{"b1", "b2"}},
		{Field: "name", Op: filter.OpContains, Value: "data"},
		{Field: "text", Op: filter.OpContains, Value: "science"},
		{Field: "key", Op: filter.OpEq, Value: "job-1"},
	}
	cursor := filter.Cursor{Mode: filter.CursorModeUpdatedAt, Start: "2024-01-01", SortBy: filter.SortAsc}

	first, err := Bind(rt, conds, &cursor, "")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Bind(rt, conds, &cursor, "")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBindUnknownField(t *testing.T) {
	rt := testJobType()
	_, err := Bind(rt, []filter.Condition{
		{Field: "nope", Op: filter.OpEq, Value: "x"},
	}, nil, "")
	assert.ErrorIs(t, err, schema.ErrUnknownField)
}

func TestBindKeyCollision(t *testing.T) {
	// A field whose IN binding claims the same query field name that the
	// equality binder would emit for another condition.
	rt := schema.New("colliding", filter.ResourceJob,
		schema.Field{Name: "status", Type: "string", Prefilter: []filter.Operator{filter.OpEq}},
		schema.Field{Name: "state", Type: "string", Prefilter: []filter.Operator{filter.OpIn},
			In: &schema.InBinding{QueryField: "status"}},
	)
	_, err := Bind(rt, []filter.Condition{
		{Field: "status", Op: filter.OpEq, Value: "open"},
		{Field: "state", Op: filter.OpIn, Value: []any{"open"}},
	}, nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than one strategy")
}
