// Package hrflow is the HTTP warehouse adapter for an hrflow-style talent
// API: searching endpoints driven by bound query parameters, bulk
// indexing, and webhook change events.
package hrflow

import (
	"github.com/talentloop/talentsync/internal/sync/filter"
	"github.com/talentloop/talentsync/internal/sync/schema"
)

// sortParam is the API's order parameter; it replaces the binder default.
const sortParam = "order_by"

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

// jobType describes the native job document of the searching and indexing
// endpoints, with the parameter bindings those endpoints understand.
var jobType = schema.New("hrflow_job", filter.ResourceJob,
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
	schema.Field{Name: "name", Type: "string", Required: true,
		Prefilter: []filter.Operator{filter.OpContains},
		Search:    keywordSearch},
	schema.Field{Name: "summary", Type: "string"},
	schema.Field{Name: "text", Type: "string",
		Prefilter: []filter.Operator{filter.OpContains},
		Search:    keywordSearch},
	schema.Field{Name: "url", Type: "string"},
	schema.Field{Name: "location", Type: "object"},
	schema.Field{Name: "sections", Type: "list"},
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
)

// profileType describes the native profile document. Identity fields live
// under the nested info object.
var profileType = schema.New("hrflow_profile", filter.ResourceProfile,
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
	schema.Field{Name: "info", Type: "object"},
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
		In:        &schema.InBinding{QueryField: "tags", Formatter: schema.InFormatterArrayString}},
	schema.Field{Name: "metadatas", Type: "list"},
	schema.Field{Name: "labels", Type: "list"},
)

func recordType(resource filter.Resource) *schema.RecordType {
	if resource == filter.ResourceProfile {
		return profileType
	}
	return jobType
}

// RecordTypeFor exposes the native model metadata without a live client,
// for schema introspection endpoints.
func RecordTypeFor(resource filter.Resource) *schema.RecordType {
	return recordType(resource)
}
