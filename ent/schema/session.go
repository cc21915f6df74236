package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Session is one diagnostic session. The full state lives in data; the
// other columns exist for listing and filtering.
type Session struct {
	ent.Schema
}

func (Session) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Immutable(),
		field.String("subject_id").
			Immutable(),
		field.String("domain").
			Immutable(),
		field.String("status"),
		field.Int("version").
			Comment("Optimistic concurrency version; bumped on every update"),
		field.Int("probe_count").
			Default(0),
		field.Bool("needs_review").
			Default(false),
		field.String("reason").
			Default(""),
		field.Time("created_at").
			Immutable(),
		field.Time("updated_at"),
		field.JSON("data", map[string]any{}),
	}
}

func (Session) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("subject_id"),
		index.Fields("status", "updated_at"),
	}
}
