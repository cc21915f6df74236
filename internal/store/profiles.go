package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/rootcause/internal/profile"
)

// ProfileRepo implements profile.Store on SQLite.
type ProfileRepo struct {
	db *sql.DB
}

var _ profile.Store = (*ProfileRepo)(nil)

// SaveCurrent replaces any profile of p's session, demotes the subject's
// current profile and inserts p as the new current one in a single
// transaction.
func (r *ProfileRepo) SaveCurrent(ctx context.Context, p *profile.GapProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		query, args := builder().Delete(GapProfilesTable.Name).
			Where(entsql.EQ("session_id", p.SessionID)).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("replace session profile: %w", err)
		}

		query, args = builder().Update(GapProfilesTable.Name).
			Set("is_current", false).
			Where(entsql.And(
				entsql.EQ("subject_id", p.SubjectID),
				entsql.EQ("is_current", true),
			)).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("demote current profile: %w", err)
		}

		query, args = builder().Insert(GapProfilesTable.Name).
			Columns("id", "session_id", "subject_id", "is_current", "primary_gap_node",
				"reason", "overall_confidence", "created_at", "data").
			Values(p.ID, p.SessionID, p.SubjectID, true, p.PrimaryGapNode,
				p.Reason, p.OverallConfidence, p.CreatedAt.UTC(), string(data)).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert profile %s: %w", p.ID, err)
		}
		return nil
	})
}

func (r *ProfileRepo) Current(ctx context.Context, subjectID string) (*profile.GapProfile, error) {
	query, args := builder().Select("data").
		From(entsql.Table(GapProfilesTable.Name)).
		Where(entsql.And(
			entsql.EQ("subject_id", subjectID),
			entsql.EQ("is_current", true),
		)).
		Limit(1).
		Query()
	return r.one(ctx, query, args)
}

func (r *ProfileRepo) BySession(ctx context.Context, sessionID string) (*profile.GapProfile, error) {
	query, args := builder().Select("data").
		From(entsql.Table(GapProfilesTable.Name)).
		Where(entsql.EQ("session_id", sessionID)).
		Query()
	return r.one(ctx, query, args)
}

func (r *ProfileRepo) History(ctx context.Context, subjectID string, limit int) ([]*profile.GapProfile, error) {
	sel := builder().Select("data").
		From(entsql.Table(GapProfilesTable.Name)).
		Where(entsql.EQ("subject_id", subjectID)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	if limit > 0 {
		sel.Limit(limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query profile history: %w", err)
	}
	defer rows.Close()

	var out []*profile.GapProfile
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p, err := decodeProfile(data)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CurrentCount returns how many profiles of the subject are marked current.
func (r *ProfileRepo) CurrentCount(ctx context.Context, subjectID string) (int, error) {
	query, args := builder().Select(entsql.Count("*")).
		From(entsql.Table(GapProfilesTable.Name)).
		Where(entsql.And(
			entsql.EQ("subject_id", subjectID),
			entsql.EQ("is_current", true),
		)).
		Query()
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count current profiles: %w", err)
	}
	return n, nil
}

func (r *ProfileRepo) one(ctx context.Context, query string, args []any) (*profile.GapProfile, error) {
	var data string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return decodeProfile(data)
}

func decodeProfile(data string) (*profile.GapProfile, error) {
	var p profile.GapProfile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &p, nil
}
