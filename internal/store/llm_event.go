package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/rootcause/internal/llm"
)

// EventRepo implements llm.EventLog backed by SQLite and the global
// sequence counter.
type EventRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

var _ llm.EventLog = (*EventRepo)(nil)

func (r *EventRepo) AppendLLMRequest(ctx context.Context, data llm.RequestEvent) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		seqNum, err := r.seq.Next(ctx, tx)
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}

		query, args := builder().Insert(LlmRequestEventsTable.Name).
			Columns("sequence", "timestamp", "provider", "model", "purpose", "input_tokens",
				"output_tokens", "latency_ms", "success", "error_message", "request_body", "response_body").
			Values(seqNum, time.Now().UTC(), data.Provider, data.Model, data.Purpose, data.InputTokens,
				data.OutputTokens, data.LatencyMs, data.Success, data.ErrorMessage, data.RequestBody, data.ResponseBody).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("save LLM request event: %w", err)
		}
		return nil
	})
}

// LLMRequestRecord is a stored LLM request event.
type LLMRequestRecord struct {
	Sequence  int64
	Timestamp time.Time
	llm.RequestEvent
}

// LLMRequests returns logged LLM requests, newest first.
func (r *EventRepo) LLMRequests(ctx context.Context, opts QueryOpts) ([]LLMRequestRecord, error) {
	sel := builder().Select("sequence", "timestamp", "provider", "model", "purpose", "input_tokens",
		"output_tokens", "latency_ms", "success", "error_message", "request_body", "response_body").
		From(entsql.Table(LlmRequestEventsTable.Name))
	for _, p := range opts.predicates() {
		sel.Where(p)
	}
	sel.OrderBy(entsql.Desc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM requests: %w", err)
	}
	defer rows.Close()

	var out []LLMRequestRecord
	for rows.Next() {
		var e LLMRequestRecord
		if err := rows.Scan(&e.Sequence, &e.Timestamp, &e.Provider, &e.Model, &e.Purpose, &e.InputTokens,
			&e.OutputTokens, &e.LatencyMs, &e.Success, &e.ErrorMessage, &e.RequestBody, &e.ResponseBody); err != nil {
			return nil, fmt.Errorf("scan LLM request: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
