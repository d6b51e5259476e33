// Package postfilter evaluates conditions against fetched records in
// memory, after the origin query and before formatting. Unlike prefilters,
// postfilter conditions need no field metadata: any field and any operator
// may be used, and a mismatch is a non-match rather than an error.
package postfilter

import (
	"strings"

	"github.com/talentloop/talentsync/internal/sync/filter"
)

// Matches reports whether the record satisfies every condition.
func Matches(rec filter.Record, conds []filter.Condition) bool {
	for _, c := range conds {
		if !matchOne(rec, c) {
			return false
		}
	}
	return true
}

// Apply keeps the records matching all conditions and counts the dropped
// ones. Applying the same conditions to the kept set again is a no-op.
func Apply(records []filter.Record, conds []filter.Condition) ([]filter.Record, int) {
	if len(conds) == 0 {
		return records, 0
	}
	kept := make([]filter.Record, 0, len(records))
	for _, rec := range records {
		if Matches(rec, conds) {
			kept = append(kept, rec)
		}
	}
	return kept, len(records) - len(kept)
}

func matchOne(rec filter.Record, c filter.Condition) bool {
	value, ok := rec.Lookup(c.Field)
	if !ok || value == nil {
		return false
	}

	switch c.Op {
	case filter.OpEq:
		return equal(value, c.Value)
	case filter.OpGt, filter.OpGte, filter.OpLt, filter.OpLte:
		cmp, comparable := compare(value, c.Value)
		if !comparable {
			return false
		}
		switch c.Op {
		case filter.OpGt:
			return cmp > 0
		case filter.OpGte:
			return cmp >= 0
		case filter.OpLt:
			return cmp < 0
		default:
			return cmp <= 0
		}
	case filter.OpIn:
		values, isList := filter.AsSlice(c.Value)
		if !isList {
			return false
		}
		for _, candidate := range values {
			if equal(value, candidate) {
				return true
			}
		}
		return false
	case filter.OpContains:
		return contains(value, c.Value)
	default:
		return false
	}
}

// contains tests substring membership for strings and element membership
// for sequences. A list-valued condition requires every element to be
// contained.
func contains(fieldValue, condValue any) bool {
	if wanted, isList := filter.AsSlice(condValue); isList {
		for _, w := range wanted {
			if !containsOne(fieldValue, w) {
				return false
			}
		}
		return len(wanted) > 0
	}
	return containsOne(fieldValue, condValue)
}

func containsOne(fieldValue, wanted any) bool {
	if items, isList := filter.AsSlice(fieldValue); isList {
		for _, item := range items {
			if equal(item, wanted) {
				return true
			}
		}
		return false
	}
	s, sok := fieldValue.(string)
	w, wok := wanted.(string)
	if sok && wok {
		return strings.Contains(s, w)
	}
	return false
}

func equal(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return false
	}
}

// compare returns -1/0/1 for values with a native ordering. Numbers are
// normalized to float64; strings compare lexically, which also covers
// ISO 8601 timestamps.
func compare(a, b any) (int, bool) {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		if !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
