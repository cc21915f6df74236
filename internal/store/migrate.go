package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table definitions for the auto-migration. Every event table carries the
// global sequence number and a timestamp.
var (
	// SessionsColumns holds the columns for the "sessions" table. The full
	// session is kept in data; the other columns exist for filtering.
	SessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "subject_id", Type: field.TypeString},
		{Name: "domain", Type: field.TypeString},
		{Name: "status", Type: field.TypeString},
		{Name: "version", Type: field.TypeInt},
		{Name: "probe_count", Type: field.TypeInt, Default: 0},
		{Name: "needs_review", Type: field.TypeBool, Default: false},
		{Name: "reason", Type: field.TypeString, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
		{Name: "data", Type: field.TypeJSON},
	}
	SessionsTable = &schema.Table{
		Name:       "sessions",
		Columns:    SessionsColumns,
		PrimaryKey: []*schema.Column{SessionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "session_subject_id", Unique: false, Columns: []*schema.Column{SessionsColumns[1]}},
			{Name: "session_status_updated_at", Unique: false, Columns: []*schema.Column{SessionsColumns[3], SessionsColumns[9]}},
		},
	}

	// ProbeEventsColumns holds the columns for the "probe_events" table.
	ProbeEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "session_id", Type: field.TypeString},
		{Name: "node_code", Type: field.TypeString},
		{Name: "idempotency_key", Type: field.TypeString},
		{Name: "raw_response", Type: field.TypeString, Size: 2147483647},
		{Name: "outcome", Type: field.TypeString},
		{Name: "confidence", Type: field.TypeFloat64},
		{Name: "misconception_id", Type: field.TypeString, Default: ""},
		{Name: "source", Type: field.TypeString, Default: ""},
		{Name: "failed", Type: field.TypeBool, Default: false},
	}
	ProbeEventsTable = &schema.Table{
		Name:       "probe_events",
		Columns:    ProbeEventsColumns,
		PrimaryKey: []*schema.Column{ProbeEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "probeevent_session_id_idempotency_key", Unique: true, Columns: []*schema.Column{ProbeEventsColumns[3], ProbeEventsColumns[5]}},
			{Name: "probeevent_node_code", Unique: false, Columns: []*schema.Column{ProbeEventsColumns[4]}},
		},
	}

	// GapProfilesColumns holds the columns for the "gap_profiles" table.
	GapProfilesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "session_id", Type: field.TypeString, Unique: true},
		{Name: "subject_id", Type: field.TypeString},
		{Name: "is_current", Type: field.TypeBool, Default: false},
		{Name: "primary_gap_node", Type: field.TypeString, Default: ""},
		{Name: "reason", Type: field.TypeString},
		{Name: "overall_confidence", Type: field.TypeFloat64},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "data", Type: field.TypeJSON},
	}
	GapProfilesTable = &schema.Table{
		Name:       "gap_profiles",
		Columns:    GapProfilesColumns,
		PrimaryKey: []*schema.Column{GapProfilesColumns[0]},
		Indexes: []*schema.Index{
			{Name: "gapprofile_subject_id_is_current", Unique: false, Columns: []*schema.Column{GapProfilesColumns[2], GapProfilesColumns[3]}},
			{Name: "gapprofile_created_at", Unique: false, Columns: []*schema.Column{GapProfilesColumns[7]}},
		},
	}

	// LlmRequestEventsColumns holds the columns for the "llm_request_events" table.
	LlmRequestEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647, Default: ""},
	}
	LlmRequestEventsTable = &schema.Table{
		Name:       "llm_request_events",
		Columns:    LlmRequestEventsColumns,
		PrimaryKey: []*schema.Column{LlmRequestEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llmrequestevent_timestamp", Unique: false, Columns: []*schema.Column{LlmRequestEventsColumns[2]}},
			{Name: "llmrequestevent_purpose", Unique: false, Columns: []*schema.Column{LlmRequestEventsColumns[5]}},
			{Name: "llmrequestevent_success", Unique: false, Columns: []*schema.Column{LlmRequestEventsColumns[9]}},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		SessionsTable,
		ProbeEventsTable,
		GapProfilesTable,
		LlmRequestEventsTable,
	}
)
