// Package warehouse is the SQL adapter: unified-shaped documents stored in
// Postgres with extracted key and watermark columns, keyset pagination on
// the cursor field, and bound parameters translated into WHERE clauses.
package warehouse

import (
	"github.com/talentloop/talentsync/internal/sync/filter"
	"github.com/talentloop/talentsync/internal/sync/schema"
)

// The warehouse accepts the plain binder conventions: equality keys,
// <field>__<op> ranges, <field>__in lists, <field>__gte cursor fallback.
// No search or IN bindings are declared; CONTAINS prefilters are pushed
// down as ILIKE by the adapter itself.

func cursorRole(mode filter.CursorMode) []schema.CursorRole {
	return []schema.CursorRole{{Mode: mode}}
}

var jobType = schema.New("warehouse_job", filter.ResourceJob,
	schema.Field{Name: "id", Type: "string", Cursor: cursorRole(filter.CursorModeID)},
	schema.Field{Name: "key", Type: "string", Required: true,
		Prefilter: []filter.Operator{filter.OpEq, filter.OpIn}},
	schema.Field{Name: "reference", Type: "string",
		Prefilter: []filter.Operator{filter.OpEq}},
	schema.Field{Name: "board_key", Type: "string", Required: true,
		Prefilter: []filter.Operator{filter.OpEq, filter.OpIn}},
	schema.Field{Name: "created_at", Type: "datetime",
		Cursor:    cursorRole(filter.CursorModeCreatedAt),
		Prefilter: []filter.Operator{filter.OpGt, filter.OpGte, filter.OpLt, filter.OpLte}},
	schema.Field{Name: "updated_at", Type: "datetime", Required: true,
		Cursor:    cursorRole(filter.CursorModeUpdatedAt),
		Prefilter: []filter.Operator{filter.OpGt, filter.OpGte, filter.OpLt, filter.OpLte}},
	schema.Field{Name: "name", Type: "string", Required: true,
		Prefilter: []filter.Operator{filter.OpEq, filter.OpContains}},
	schema.Field{Name: "summary", Type: "string"},
	schema.Field{Name: "text", Type: "string",
		Prefilter: []filter.Operator{filter.OpContains}},
	schema.Field{Name: "url", Type: "string"},
	schema.Field{Name: "location", Type: "object"},
	schema.Field{Name: "skills", Type: "list"},
	schema.Field{Name: "languages", Type: "list"},
	schema.Field{Name: "tags", Type: "list"},
	schema.Field{Name: "metadatas", Type: "list"},
	schema.Field{Name: "payload", Type: "object"},
)

var profileType = schema.New("warehouse_profile", filter.ResourceProfile,
	schema.Field{Name: "id", Type: "string", Cursor: cursorRole(filter.CursorModeID)},
	schema.Field{Name: "key", Type: "string", Required: true,
		Prefilter: []filter.Operator{filter.OpEq, filter.OpIn}},
	schema.Field{Name: "reference", Type: "string",
		Prefilter: []filter.Operator{filter.OpEq}},
	schema.Field{Name: "source_key", Type: "string", Required: true,
		Prefilter: []filter.Operator{filter.OpEq, filter.OpIn}},
	schema.Field{Name: "created_at", Type: "datetime", Required: true,
		Cursor:    cursorRole(filter.CursorModeCreatedAt),
		Prefilter: []filter.Operator{filter.OpGt, filter.OpGte, filter.OpLt, filter.OpLte}},
	schema.Field{Name: "updated_at", Type: "datetime", Required: true,
		Cursor:    cursorRole(filter.CursorModeUpdatedAt),
		Prefilter: []filter.Operator{filter.OpGt, filter.OpGte, filter.OpLt, filter.OpLte}},
	schema.Field{Name: "full_name", Type: "string",
		Prefilter: []filter.Operator{filter.OpEq, filter.OpContains}},
	schema.Field{Name: "email", Type: "string",
		Prefilter: []filter.Operator{filter.OpEq}},
	schema.Field{Name: "text", Type: "string",
		Prefilter: []filter.Operator{filter.OpContains}},
	schema.Field{Name: "experiences", Type: "list"},
	schema.Field{Name: "educations", Type: "list"},
	schema.Field{Name: "skills", Type: "list"},
	schema.Field{Name: "languages", Type: "list"},
	schema.Field{Name: "tags", Type: "list"},
	schema.Field{Name: "metadatas", Type: "list"},
	schema.Field{Name: "payload", Type: "object"},
)

func recordType(resource filter.Resource) *schema.RecordType {
	if resource == filter.ResourceProfile {
		return profileType
	}
	return jobType
}

func tableName(resource filter.Resource) string {
	if resource == filter.ResourceProfile {
		return "talent.profiles"
	}
	return "talent.jobs"
}

// RecordTypeFor exposes the native model metadata without a database
// handle, for schema introspection endpoints.
func RecordTypeFor(resource filter.Resource) *schema.RecordType {
	return recordType(resource)
}
