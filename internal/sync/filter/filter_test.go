package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResource(t *testing.T) {
	r, err := ParseResource(" Job ")
	require.NoError(t, err)
	assert.Equal(t, ResourceJob, r)

	_, err = ParseResource("invoice")
	assert.Error(t, err)
}

func TestParseOperator(t *testing.T) {
	op, err := ParseOperator("CONTAINS")
	require.NoError(t, err)
	assert.Equal(t, OpContains, op)

	_, err = ParseOperator("like")
	assert.Error(t, err)
}

func TestConditionValidate(t *testing.T) {
	tests := []struct {
		name    string
		cond    Condition
		wantErr bool
	}{
		{"valid eq", Condition{Field: "key", Op: OpEq, Value: "x"}, false},
		{"valid in with list", Condition{Field: "key", Op: OpIn, Value: []string{"a"}}, false},
		{"empty field", Condition{Field: " ", Op: OpEq, Value: "x"}, true},
		{"unknown operator", Condition{Field: "key", Op: "like", Value: "x"}, true},
		{"in with scalar", Condition{Field: "key", Op: OpIn, Value: "a"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cond.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCursorDefaultsAndValidate(t *testing.T) {
	c := Cursor{}.WithDefaults()
	assert.Equal(t, CursorModeUpdatedAt, c.Mode)
	assert.Equal(t, SortAsc, c.SortBy)
	assert.NoError(t, c.Validate())

	set := Cursor{Mode: CursorModeID, SortBy: SortDesc}.WithDefaults()
	assert.Equal(t, CursorModeID, set.Mode)
	assert.Equal(t, SortDesc, set.SortBy)

	assert.Error(t, Cursor{Mode: "epoch", SortBy: SortAsc}.Validate())
	assert.Error(t, Cursor{Mode: CursorModeID, SortBy: "random"}.Validate())
}

func TestAsSlice(t *testing.T) {
	got, ok := AsSlice([]string{"a", "b"})
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, got)

	got, ok = AsSlice([]int{1, 2})
	require.True(t, ok)
	assert.Equal(t, []any{1, 2}, got)

	_, ok = AsSlice("a,b")
	assert.False(t, ok)
}

func TestRecordLookup(t *testing.T) {
	rec := Record{
		"key": "job-1",
		"location": map[string]any{
			"address": map[string]any{"city": "Berlin"},
		},
		"dotted.literal": "direct",
	}

	v, ok := rec.Lookup("key")
	require.True(t, ok)
	assert.Equal(t, "job-1", v)

	v, ok = rec.Lookup("location.address.city")
	require.True(t, ok)
	assert.Equal(t, "Berlin", v)

	// A literal key containing a dot wins over path traversal.
	v, ok = rec.Lookup("dotted.literal")
	require.True(t, ok)
	assert.Equal(t, "direct", v)

	_, ok = rec.Lookup("location.missing")
	assert.False(t, ok)
	_, ok = rec.Lookup("key.sub")
	assert.False(t, ok)
	_, ok = Record(nil).Lookup("key")
	assert.False(t, ok)
}

func TestRecordClone(t *testing.T) {
	rec := Record{"key": "job-1"}
	clone := rec.Clone()
	clone["key"] = "job-2"
	assert.Equal(t, "job-1", rec["key"])
	assert.Nil(t, Record(nil).Clone())
}
