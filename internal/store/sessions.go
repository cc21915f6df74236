package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/rootcause/internal/session"
)

// SessionRepo implements session.Repository on SQLite. Answered probes
// are also appended to probe_events under the global sequence.
type SessionRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

var _ session.Repository = (*SessionRepo)(nil)

func (r *SessionRepo) Create(ctx context.Context, s *session.Session) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := r.appendProbes(ctx, tx, s); err != nil {
			return err
		}
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		query, args := builder().Insert(SessionsTable.Name).
			Columns("id", "subject_id", "domain", "status", "version", "probe_count",
				"needs_review", "reason", "created_at", "updated_at", "data").
			Values(s.ID, s.SubjectID, string(s.Domain), string(s.Status), s.Version, s.ProbeCount,
				s.NeedsHumanReview, s.Reason, s.CreatedAt.UTC(), s.LastActivity.UTC(), string(data)).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert session %s: %w", s.ID, err)
		}
		return nil
	})
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*session.Session, error) {
	query, args := builder().Select("data").
		From(entsql.Table(SessionsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	var data string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get session %s: %w", id, session.ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query session %s: %w", id, err)
	}
	return decodeSession(data)
}

func (r *SessionRepo) Update(ctx context.Context, s *session.Session) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		query, args := builder().Select("version").
			From(entsql.Table(SessionsTable.Name)).
			Where(entsql.EQ("id", s.ID)).
			Query()
		var stored int
		err := tx.QueryRowContext(ctx, query, args...).Scan(&stored)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("update session %s: %w", s.ID, session.ErrSessionNotFound)
		}
		if err != nil {
			return fmt.Errorf("query session version: %w", err)
		}
		if stored != s.Version-1 {
			return fmt.Errorf("update session %s (version %d, stored %d): %w", s.ID, s.Version, stored, session.ErrStaleSubmission)
		}

		if err := r.appendProbes(ctx, tx, s); err != nil {
			return err
		}
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		query, args = builder().Update(SessionsTable.Name).
			Set("status", string(s.Status)).
			Set("version", s.Version).
			Set("probe_count", s.ProbeCount).
			Set("needs_review", s.NeedsHumanReview).
			Set("reason", s.Reason).
			Set("updated_at", s.LastActivity.UTC()).
			Set("data", string(data)).
			Where(entsql.EQ("id", s.ID)).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update session %s: %w", s.ID, err)
		}
		return nil
	})
}

func (r *SessionRepo) List(ctx context.Context, f session.ListFilter) ([]*session.Session, error) {
	sel := builder().Select("data").From(entsql.Table(SessionsTable.Name))
	if f.SubjectID != "" {
		sel.Where(entsql.EQ("subject_id", f.SubjectID))
	}
	if f.Status != "" {
		sel.Where(entsql.EQ("status", string(f.Status)))
	}
	if f.Open {
		sel.Where(entsql.NotIn("status",
			string(session.StatusConcluded), string(session.StatusAbandoned), string(session.StatusTimedOut)))
	}
	sel.OrderBy(entsql.Desc("updated_at"), entsql.Asc("id"))
	if f.Limit > 0 {
		sel.Limit(f.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*session.Session
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s, err := decodeSession(data)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// appendProbes writes probe records that have no sequence yet and assigns
// them one.
func (r *SessionRepo) appendProbes(ctx context.Context, tx *sql.Tx, s *session.Session) error {
	for i := range s.Probes {
		p := &s.Probes[i]
		if p.Seq != 0 {
			continue
		}
		seq, err := r.seq.Next(ctx, tx)
		if err != nil {
			return err
		}
		c := p.Classification
		query, args := builder().Insert(ProbeEventsTable.Name).
			Columns("sequence", "timestamp", "session_id", "node_code", "idempotency_key",
				"raw_response", "outcome", "confidence", "misconception_id", "source", "failed").
			Values(seq, p.AnsweredAt.UTC(), s.ID, p.NodeCode, p.IdempotencyKey,
				p.Raw, string(c.Outcome), c.Confidence, c.MisconceptionID, c.Source, c.Failed).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert probe event: %w", err)
		}
		p.Seq = seq
	}
	return nil
}

func (r *SessionRepo) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return inTx(ctx, r.db, fn)
}

func inTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func decodeSession(data string) (*session.Session, error) {
	var s session.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if s.Results == nil {
		s.Results = make(map[string]*session.NodeResult)
	}
	return &s, nil
}

// ProbeEvent is one row of the probe audit log.
type ProbeEvent struct {
	Sequence        int64
	Timestamp       time.Time
	SessionID       string
	NodeCode        string
	IdempotencyKey  string
	RawResponse     string
	Outcome         string
	Confidence      float64
	MisconceptionID string
	Source          string
	Failed          bool
}

// ProbeEvents returns the audit log of a session in sequence order.
func (r *SessionRepo) ProbeEvents(ctx context.Context, sessionID string, opts QueryOpts) ([]ProbeEvent, error) {
	sel := builder().Select("sequence", "timestamp", "session_id", "node_code", "idempotency_key",
		"raw_response", "outcome", "confidence", "misconception_id", "source", "failed").
		From(entsql.Table(ProbeEventsTable.Name)).
		Where(entsql.EQ("session_id", sessionID))
	for _, p := range opts.predicates() {
		sel.Where(p)
	}
	sel.OrderBy(entsql.Asc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query probe events: %w", err)
	}
	defer rows.Close()

	var out []ProbeEvent
	for rows.Next() {
		var e ProbeEvent
		if err := rows.Scan(&e.Sequence, &e.Timestamp, &e.SessionID, &e.NodeCode, &e.IdempotencyKey,
			&e.RawResponse, &e.Outcome, &e.Confidence, &e.MisconceptionID, &e.Source, &e.Failed); err != nil {
			return nil, fmt.Errorf("scan probe event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
