package warehouse

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/talentloop/talentsync/internal/sync/binder"
	"github.com/talentloop/talentsync/internal/sync/filter"
	"github.com/talentloop/talentsync/internal/sync/schema"
)

// columns extracted out of the doc; everything else is addressed through
// the JSONB document.
var realColumns = map[string]bool{
	"key":        true,
	"created_at": true,
	"updated_at": true,
}

func columnExpr(field string) string {
	if realColumns[field] {
		return field
	}
	return "doc->>'" + field + "'"
}

// keysetSep joins the watermark and the key tiebreak inside a cursor
// bound produced by ReadBatch. Postgres text cannot contain NUL, so the
// unit separator never collides with a stored key.
const keysetSep = "\x1f"

func encodeKeyset(watermark, key string) string {
	return watermark + keysetSep + key
}

// splitKeyset recognizes a composite bound. Plain bounds, such as a
// user-supplied start watermark, report ok=false and stay with the
// inclusive binder comparison.
func splitKeyset(bound string) (watermark, key string, ok bool) {
	return strings.Cut(bound, keysetSep)
}

// keysetPredicate resumes strictly after the last served row. Pages are
// ordered by (cursor column, key), so the row comparison advances even
// when more than a full batch shares one watermark.
func keysetPredicate(expr, dir, watermark, key string, args *[]any) string {
	op := ">"
	if dir == "DESC" {
		op = "<"
	}
	*args = append(*args, watermark, key)
	return fmt.Sprintf("(%s, key) %s ($%d, $%d)", expr, op, len(*args)-1, len(*args))
}

var suffixOps = []struct {
	suffix string
	sqlOp  string
}{
	{"__gte", ">="},
	{"__lte", "<="},
	{"__gt", ">"},
	{"__lt", "<"},
}

// buildWhere translates bound query parameters into SQL predicates. Keys
// follow the plain binder conventions: bare field names compare equal,
// a range suffix selects the comparison operator, and an __in suffix
// becomes an ANY match. The sort parameter is consumed by the caller and
// skipped here. Keys are sorted so the generated SQL is deterministic.
func buildWhere(params binder.Params) ([]string, []any, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == binder.DefaultSortParam {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var preds []string
	var args []any
	for _, k := range keys {
		v := params[k]

		if field, ok := strings.CutSuffix(k, "__in"); ok {
			values, isList := filter.AsSlice(v)
			if !isList {
				return nil, nil, fmt.Errorf("parameter %q: expected a list, got %T", k, v)
			}
			strs := make([]string, len(values))
			for i, item := range values {
				strs[i] = fmt.Sprint(item)
			}
			args = append(args, pq.Array(strs))
			preds = append(preds, fmt.Sprintf("%s = ANY($%d)", columnExpr(field), len(args)))
			continue
		}

		matched := false
		for _, s := range suffixOps {
			field, ok := strings.CutSuffix(k, s.suffix)
			if !ok {
				continue
			}
			args = append(args, fmt.Sprint(v))
			preds = append(preds, fmt.Sprintf("%s %s $%d", columnExpr(field), s.sqlOp, len(args)))
			matched = true
			break
		}
		if matched {
			continue
		}

		args = append(args, fmt.Sprint(v))
		preds = append(preds, fmt.Sprintf("%s = $%d", columnExpr(k), len(args)))
	}
	return preds, args, nil
}

// containsPredicates pushes CONTAINS prefilters down as case-insensitive
// substring matches. The binder leaves these conditions unbound for this
// record type; a list value requires every element to match.
func containsPredicates(rt *schema.RecordType, conds []filter.Condition, args *[]any) []string {
	var preds []string
	for _, c := range conds {
		if c.Op != filter.OpContains {
			continue
		}
		if _, ok := rt.Field(c.Field); !ok {
			continue
		}
		values, isList := filter.AsSlice(c.Value)
		if !isList {
			values = []any{c.Value}
		}
		for _, v := range values {
			*args = append(*args, fmt.Sprint(v))
			preds = append(preds, fmt.Sprintf("%s ILIKE '%%' || $%d || '%%'", columnExpr(c.Field), len(*args)))
		}
	}
	return preds
}
