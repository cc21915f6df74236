package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ProbeEvent is the audit record of one answered probe.
type ProbeEvent struct {
	ent.Schema
}

func (ProbeEvent) Mixin() []ent.Mixin {
	return []ent.Mixin{EventMixin{}}
}

func (ProbeEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("session_id").
			Immutable(),
		field.String("node_code").
			Immutable(),
		field.String("idempotency_key").
			Immutable(),
		field.Text("raw_response").
			Immutable(),
		field.String("outcome").
			Comment("mastered, gap or uncertain"),
		field.Float("confidence"),
		field.String("misconception_id").
			Default(""),
		field.String("source").
			Default("").
			Comment("Rule name or classifier that produced the outcome"),
		field.Bool("failed").
			Default(false).
			Comment("Classification failed and the probe was not counted"),
	}
}

func (ProbeEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("session_id", "idempotency_key").Unique(),
		index.Fields("node_code"),
	}
}
