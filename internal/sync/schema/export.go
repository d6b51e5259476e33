package schema

import "github.com/talentloop/talentsync/internal/sync/filter"

// FieldInfo is the JSON-serializable view of one field descriptor,
// consumed by the API layer to render filter and mapping pickers.
type FieldInfo struct {
	Name             string   `json:"name"`
	Type             string   `json:"type"`
	Required         bool     `json:"required,omitempty"`
	Cursor           []string `json:"cursor,omitempty"`
	PrefilterOps     []string `json:"prefilter_operators,omitempty"`
	HasSearchBinding bool     `json:"has_search_binding,omitempty"`
	HasInBinding     bool     `json:"has_in_binding,omitempty"`
}

// Export lists the record type's fields in declaration order. With
// prefilterableOnly set, fields without prefilter metadata are skipped;
// this backs the WHERE section of the UI.
func (rt *RecordType) Export(prefilterableOnly bool) []FieldInfo {
	out := make([]FieldInfo, 0, len(rt.fields))
	for _, f := range rt.fields {
		if prefilterableOnly && len(f.Prefilter) == 0 {
			continue
		}
		info := FieldInfo{
			Name:             f.Name,
			Type:             f.Type,
			Required:         f.Required,
			HasSearchBinding: f.Search != nil,
			HasInBinding:     f.In != nil,
		}
		for _, role := range f.Cursor {
			info.Cursor = append(info.Cursor, string(role.Mode))
		}
		for _, op := range f.Prefilter {
			info.PrefilterOps = append(info.PrefilterOps, string(op))
		}
		out = append(out, info)
	}
	return out
}

// Prefilterable reports whether the operator is allowed on the field.
func (rt *RecordType) Prefilterable(fieldName string, op filter.Operator) bool {
	f, ok := rt.Field(fieldName)
	if !ok {
		return false
	}
	return f.allowsOperator(op)
}
