package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// GapProfile is the diagnosis produced when a session concludes. At most
// one profile per subject is current.
type GapProfile struct {
	ent.Schema
}

func (GapProfile) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Immutable(),
		field.String("session_id").
			Unique().
			Immutable(),
		field.String("subject_id").
			Immutable(),
		field.Bool("is_current").
			Default(false),
		field.String("primary_gap_node").
			Default(""),
		field.String("reason"),
		field.Float("overall_confidence"),
		field.Time("created_at").
			Immutable(),
		field.JSON("data", map[string]any{}),
	}
}

func (GapProfile) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("subject_id", "is_current"),
		index.Fields("created_at"),
	}
}
