// Package unified declares the canonical record types used when no
// explicit formatter is supplied: every connector knows how to convert its
// native records to and from these shapes. The schema objects carry the
// cursor, prefilter, and binding metadata the core is driven by.
package unified

import (
	"github.com/talentloop/talentsync/internal/sync/filter"
	"github.com/talentloop/talentsync/internal/sync/schema"
)

func dateCursor(mode filter.CursorMode) []schema.CursorRole {
	return []schema.CursorRole{{
		Mode:       mode,
		StartParam: "date_range_min",
		EndParam:   "date_range_max",
		AscLabel:   "asc",
		DescLabel:  "desc",
	}}
}

var keywordSearch = &schema.SearchBinding{
	SearchField: "keywords",
	FieldJoin:   schema.JoinAnd,
	ValueJoin:   schema.JoinOr,
}

// Job is the canonical job representation.
var Job = schema.New("unified_job", filter.ResourceJob,
	schema.Field{Name: "id", Type: "string", Cursor: []schema.CursorRole{{Mode: filter.CursorModeID}}},
	schema.Field{Name: "key", Type: "string", Required: true,
		Prefilter: []filter.Operator{filter.OpEq}},
	schema.Field{Name: "reference", Type: "string",
		Prefilter: []filter.Operator{filter.OpEq}},
	schema.Field{Name: "board_key", Type: "string", Required: true,
		Prefilter: []filter.Operator{filter.OpIn},
		In:        &schema.InBinding{QueryField: "board_keys", Formatter: schema.InFormatterArrayString}},
	schema.Field{Name: "created_at", Type: "datetime",
		Cursor:    dateCursor(filter.CursorModeCreatedAt),
		Prefilter: []filter.Operator{filter.OpGte, filter.OpLte}},
	schema.Field{Name: "updated_at", Type: "datetime", Required: true,
		Cursor:    dateCursor(filter.CursorModeUpdatedAt),
		Prefilter: []filter.Operator{filter.OpGte, filter.OpLte}},
	schema.Field{Name: "archived_at", Type: "datetime"},
	schema.Field{Name: "name", Type: "string", Required: true,
		Prefilter: []filter.Operator{filter.OpContains},
		Search:    keywordSearch},
	schema.Field{Name: "summary", Type: "string"},
	schema.Field{Name: "text", Type: "string",
		Prefilter: []filter.Operator{filter.OpContains},
		Search:    keywordSearch},
	schema.Field{Name: "url", Type: "string"},
	schema.Field{Name: "location", Type: "object"},
	schema.Field{Name: "culture", Type: "string"},
	schema.Field{Name: "benefits", Type: "string"},
	schema.Field{Name: "responsibilities", Type: "string"},
	schema.Field{Name: "requirements", Type: "string"},
	schema.Field{Name: "skills", Type: "list"},
	schema.Field{Name: "languages", Type: "list"},
	schema.Field{Name: "tasks", Type: "list"},
	schema.Field{Name: "certifications", Type: "list"},
	schema.Field{Name: "courses", Type: "list"},
	schema.Field{Name: "tags", Type: "list",
		Prefilter: []filter.Operator{filter.OpIn},
		In:        &schema.InBinding{QueryField: "tags", Formatter: schema.InFormatterArrayString}},
	schema.Field{Name: "metadatas", Type: "list"},
	schema.Field{Name: "ranges_float", Type: "list"},
	schema.Field{Name: "ranges_date", Type: "list"},
	schema.Field{Name: "payload", Type: "object"},
)

// Profile is the canonical profile representation.
var Profile = schema.New("unified_profile", filter.ResourceProfile,
	schema.Field{Name: "id", Type: "string", Cursor: []schema.CursorRole{{Mode: filter.CursorModeID}}},
	schema.Field{Name: "key", Type: "string", Required: true,
		Prefilter: []filter.Operator{filter.OpEq}},
	schema.Field{Name: "reference", Type: "string",
		Prefilter: []filter.Operator{filter.OpEq}},
	schema.Field{Name: "source_key", Type: "string", Required: true,
		Prefilter: []filter.Operator{filter.OpIn},
		In:        &schema.InBinding{QueryField: "source_keys", Formatter: schema.InFormatterArrayString}},
	schema.Field{Name: "created_at", Type: "datetime", Required: true,
		Cursor:    dateCursor(filter.CursorModeCreatedAt),
		Prefilter: []filter.Operator{filter.OpGte, filter.OpLte}},
	schema.Field{Name: "updated_at", Type: "datetime", Required: true,
		Cursor:    dateCursor(filter.CursorModeUpdatedAt),
		Prefilter: []filter.Operator{filter.OpGte, filter.OpLte}},
	schema.Field{Name: "archived_at", Type: "datetime"},
	schema.Field{Name: "full_name", Type: "string",
		Prefilter: []filter.Operator{filter.OpEq, filter.OpContains}},
	schema.Field{Name: "first_name", Type: "string"},
	schema.Field{Name: "last_name", Type: "string"},
	schema.Field{Name: "email", Type: "string"},
	schema.Field{Name: "phone", Type: "string"},
	schema.Field{Name: "date_birth", Type: "datetime"},
	schema.Field{Name: "location", Type: "object"},
	schema.Field{Name: "urls", Type: "list"},
	schema.Field{Name: "picture", Type: "string"},
	schema.Field{Name: "summary", Type: "string"},
	schema.Field{Name: "text", Type: "string",
		Prefilter: []filter.Operator{filter.OpContains},
		Search:    keywordSearch},
	schema.Field{Name: "text_language", Type: "string"},
	schema.Field{Name: "experiences_duration", Type: "float"},
	schema.Field{Name: "educations_duration", Type: "float"},
	schema.Field{Name: "experiences", Type: "list"},
	schema.Field{Name: "educations", Type: "list"},
	schema.Field{Name: "attachments", Type: "list"},
	schema.Field{Name: "skills", Type: "list"},
	schema.Field{Name: "languages", Type: "list"},
	schema.Field{Name: "tasks", Type: "list"},
	schema.Field{Name: "certifications", Type: "list"},
	schema.Field{Name: "courses", Type: "list"},
	schema.Field{Name: "interests", Type: "list"},
	schema.Field{Name: "tags", Type: "list",
		Prefilter: []filter.Operator{filter.OpIn},
		In:        &schema.InBinding{QueryField: "tags", Formatter: schema.InFormatterArray}},
	schema.Field{Name: "metadatas", Type: "list"},
	schema.Field{Name: "labels", Type: "list"},
	schema.Field{Name: "payload", Type: "object"},
)

// ByResource returns the canonical record type for a resource.
func ByResource(resource filter.Resource) *schema.RecordType {
	if resource == filter.ResourceProfile {
		return Profile
	}
	return Job
}
