package postfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentloop/talentsync/internal/sync/filter"
)

func sampleJob() filter.Record {
	return filter.Record{
		"key":        "job-1",
		"name":       "Senior Data Engineer",
		"salary_min": float64(90000),
		"headcount":  3,
		"remote":     true,
		"tags":       []any{"python", "spark"},
		"location": map[string]any{
			"city": "Berlin",
		},
		"created_at": "2024-03-01T10:00:00Z",
	}
}

func TestMatchesOperators(t *testing.T) {
	rec := sampleJob()

	tests := []struct {
		name string
		cond filter.Condition
		want bool
	}{
		{"eq string", filter.Condition{Field: "key", Op: filter.OpEq, Value: "job-1"}, true},
		{"eq string mismatch", filter.Condition{Field: "key", Op: filter.OpEq, Value: "job-2"}, false},
		{"eq bool", filter.Condition{Field: "remote", Op: filter.OpEq, Value: true}, true},
		{"eq numeric cross-type", filter.Condition{Field: "headcount", Op: filter.OpEq, Value: float64(3)}, true},
		{"gt number", filter.Condition{Field: "salary_min", Op: filter.OpGt, Value: 80000}, true},
		{"gte boundary", filter.Condition{Field: "salary_min", Op: filter.OpGte, Value: 90000}, true},
		{"lt number false", filter.Condition{Field: "salary_min", Op: filter.OpLt, Value: 90000}, false},
		{"lte timestamp lexical", filter.Condition{Field: "created_at", Op: filter.OpLte, Value: "2024-04-01T00:00:00Z"}, true},
		{"gt incomparable types", filter.Condition{Field: "name", Op: filter.OpGt, Value: 5}, false},
		{"in hit", filter.Condition{Field: "key", Op: filter.OpIn, Value: []any{"job-1", "job-9"}}, true},
		{"in miss", filter.Condition{Field: "key", Op: filter.OpIn, Value: []any{"job-9"}}, false},
		{"in non-list value", filter.Condition{Field: "key", Op: filter.OpIn, Value: "job-1"}, false},
		{"contains substring", filter.Condition{Field: "name", Op: filter.OpContains, Value: "Engineer"}, true},
		{"contains list membership", filter.Condition{Field: "tags", Op: filter.OpContains, Value: "spark"}, true},
		{"contains all elements", filter.Condition{Field: "tags", Op: filter.OpContains, Value: []any{"python", "spark"}}, true},
		{"contains missing element", filter.Condition{Field: "tags", Op: filter.OpContains, Value: []any{"python", "rust"}}, false},
		{"contains empty list", filter.Condition{Field: "tags", Op: filter.OpContains, Value: []any{}}, false},
		{"dotted path", filter.Condition{Field: "location.city", Op: filter.OpEq, Value: "Berlin"}, true},
		{"missing field", filter.Condition{Field: "salary_max", Op: filter.OpGt, Value: 0}, false},
		{"missing nested field", filter.Condition{Field: "location.country", Op: filter.OpEq, Value: "DE"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(rec, []filter.Condition{tt.cond}))
		})
	}
}

func TestMatchesConjunction(t *testing.T) {
	rec := sampleJob()
	conds := []filter.Condition{
		{Field: "remote", Op: filter.OpEq, Value: true},
		{Field: "salary_min", Op: filter.OpGte, Value: 100000},
	}
	assert.False(t, Matches(rec, conds), "one failing condition fails the record")
	assert.True(t, Matches(rec, nil), "no conditions matches everything")
}

func TestApply(t *testing.T) {
	records := []filter.Record{
		sampleJob(),
		{"key": "job-2", "name": "Backend Engineer", "remote": false},
		{"key": "job-3", "name": "Product Manager", "remote": true},
	}
	conds := []filter.Condition{
		{Field: "name", Op: filter.OpContains, Value: "Engineer"},
	}

	kept, skipped := Apply(records, conds)
	require.Len(t, kept, 2)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, "job-1", kept[0]["key"])
	assert.Equal(t, "job-2", kept[1]["key"])

	// Applying again to the kept set is a fixed point.
	again, skippedAgain := Apply(kept, conds)
	assert.Equal(t, kept, again)
	assert.Zero(t, skippedAgain)
}

func TestApplyNoConditions(t *testing.T) {
	records := []filter.Record{sampleJob()}
	kept, skipped := Apply(records, nil)
	assert.Equal(t, records, kept)
	assert.Zero(t, skipped)
}
