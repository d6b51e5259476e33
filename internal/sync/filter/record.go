package filter

import "strings"

// Record is the generic shape every connector exchanges with the core:
// a native or unified resource decoded into a key/value map. Nested
// objects decode to nested maps and are addressable with dotted paths.
type Record map[string]any

// Lookup resolves a possibly dotted field path. A missing segment or a
// non-map intermediate yields (nil, false), never an error.
func (r Record) Lookup(path string) (any, bool) {
	if r == nil {
		return nil, false
	}
	if v, ok := r[path]; ok {
		return v, true
	}
	segments := strings.Split(path, ".")
	if len(segments) == 1 {
		return nil, false
	}
	var cur any = map[string]any(r)
	for _, seg := range segments {
		m, ok := toMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Clone returns a shallow copy. Nested maps are shared; the orchestrator
// only ever replaces top-level keys.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func toMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Record:
		return m, true
	default:
		return nil, false
	}
}
