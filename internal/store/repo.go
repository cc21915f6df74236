package store

import (
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// predicates returns the event-table predicates for the options.
func (o QueryOpts) predicates() []*entsql.Predicate {
	var ps []*entsql.Predicate
	if o.After > 0 {
		ps = append(ps, entsql.GT("sequence", o.After))
	}
	if o.Before > 0 {
		ps = append(ps, entsql.LT("sequence", o.Before))
	}
	if !o.From.IsZero() {
		ps = append(ps, entsql.GTE("timestamp", o.From.UTC()))
	}
	if !o.To.IsZero() {
		ps = append(ps, entsql.LTE("timestamp", o.To.UTC()))
	}
	return ps
}
