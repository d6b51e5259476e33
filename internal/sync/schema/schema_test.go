package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentloop/talentsync/internal/sync/filter"
)

func testJobType() *RecordType {
	return New("test_job", filter.ResourceJob,
		Field{Name: "key", Type: "string", Required: true, Prefilter: []filter.Operator{filter.OpEq}},
		Field{Name: "board_key", Type: "string", Prefilter: []filter.Operator{filter.OpIn},
			In: &InBinding{QueryField: "board_keys", Formatter: InFormatterCSV}},
		Field{Name: "name", Type: "string", Required: true,
			Prefilter: []filter.Operator{filter.OpContains},
			Search:    &SearchBinding{SearchField: "keywords", FieldJoin: JoinAnd, ValueJoin: JoinOr}},
		Field{Name: "updated_at", Type: "datetime",
			Cursor:    []CursorRole{{Mode: filter.CursorModeUpdatedAt, StartParam: "date_range_min", EndParam: "date_range_max", AscLabel: "asc", DescLabel: "desc"}},
			Prefilter: []filter.Operator{filter.OpGte, filter.OpLte}},
		Field{Name: "summary", Type: "string"},
	)
}

func TestWhereUnknownField(t *testing.T) {
	rt := testJobType()
	_, err := Where(rt, "no_such_field")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestWhereFieldWithoutPrefilter(t *testing.T) {
	rt := testJobType()
	_, err := Where(rt, "summary")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedOperator)
}

func TestBuildRejectsUndeclaredOperator(t *testing.T) {
	rt := testJobType()
	b, err := Where(rt, "key")
	require.NoError(t, err)

	_, err = b.Contains("engineer")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedOperator)

	cond, err := b.Eq("job-1")
	require.NoError(t, err)
	assert.Equal(t, filter.Condition{Field: "key", Op: filter.OpEq, Value: "job-1"}, cond)
}

func TestBuilderChainMethods(t *testing.T) {
	rt := testJobType()

	b, err := Where(rt, "updated_at")
	require.NoError(t, err)

	cond, err := b.Gte("2024-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, filter.OpGte, cond.Op)

	cond, err = b.Lte("2024-12-31T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, filter.OpLte, cond.Op)

	_, err = b.In([]any{"a"})
	assert.ErrorIs(t, err, ErrUnsupportedOperator)

	inB, err := Where(rt, "board_key")
	require.NoError(t, err)
	cond, err = inB.In([]any{"b1", "b2"})
	require.NoError(t, err)
	assert.Equal(t, filter.OpIn, cond.Op)
}

func TestConstruct(t *testing.T) {
	rt := testJobType()

	rec, err := rt.Construct(map[string]any{
		"key":     "job-1",
		"name":    "Data Engineer",
		"unknown": "dropped",
	})
	require.NoError(t, err)
	assert.Equal(t, "job-1", rec["key"])
	assert.Equal(t, "Data Engineer", rec["name"])
	_, hasUnknown := rec["unknown"]
	assert.False(t, hasUnknown, "unknown keys must be ignored")

	_, err = rt.Construct(map[string]any{"key": "job-1"})
	require.Error(t, err)
	var ce *ConstructError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"name"}, ce.Missing)
}

func TestCursorFieldFirstDeclaredWins(t *testing.T) {
	rt := New("dup_cursor", filter.ResourceJob,
		Field{Name: "modified", Cursor: []CursorRole{{Mode: filter.CursorModeUpdatedAt, StartParam: "modified_min"}}},
		Field{Name: "touched", Cursor: []CursorRole{{Mode: filter.CursorModeUpdatedAt, StartParam: "touched_min"}}},
	)
	f, role, ok := rt.CursorField(filter.CursorModeUpdatedAt)
	require.True(t, ok)
	assert.Equal(t, "modified", f.Name)
	assert.Equal(t, "modified_min", role.StartParam)
}

func TestExport(t *testing.T) {
	rt := testJobType()

	all := rt.Export(false)
	assert.Len(t, all, 5)
	assert.Equal(t, "key", all[0].Name)

	filterable := rt.Export(true)
	require.Len(t, filterable, 4)
	for _, info := range filterable {
		assert.NotEmpty(t, info.PrefilterOps)
	}

	byName := make(map[string]FieldInfo)
	for _, info := range all {
		byName[info.Name] = info
	}
	assert.True(t, byName["name"].HasSearchBinding)
	assert.True(t, byName["board_key"].HasInBinding)
	assert.Equal(t, []string{"updated_at"}, byName["updated_at"].Cursor)
}

func TestNewPanicsOnDuplicateField(t *testing.T) {
	assert.Panics(t, func() {
		New("dup", filter.ResourceJob,
			Field{Name: "key"},
			Field{Name: "key"},
		)
	})
}
