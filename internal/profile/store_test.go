package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_DemotesPriorCurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Current(ctx, "learner"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	for _, p := range []*GapProfile{
		{ID: "a", SessionID: "s1", SubjectID: "learner"},
		{ID: "b", SessionID: "s2", SubjectID: "learner"},
		{ID: "c", SessionID: "s3", SubjectID: "other"},
	} {
		if err := s.SaveCurrent(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	cur, err := s.Current(ctx, "learner")
	if err != nil || cur.ID != "b" {
		t.Fatalf("current = %+v, %v; want b", cur, err)
	}
	old, err := s.BySession(ctx, "s1")
	if err != nil || old.ID != "a" {
		t.Fatalf("by session = %+v, %v", old, err)
	}

	hist, _ := s.History(ctx, "learner", 0)
	if len(hist) != 2 || hist[0].ID != "b" || hist[1].ID != "a" {
		t.Errorf("history = %v", hist)
	}
	hist, _ = s.History(ctx, "learner", 1)
	if len(hist) != 1 {
		t.Errorf("limited history = %d entries", len(hist))
	}
}

func TestMemoryStore_ReplacesSessionProfile(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.SaveCurrent(ctx, &GapProfile{ID: "old", SessionID: "s0", SubjectID: "learner"}))
	require.NoError(t, s.SaveCurrent(ctx, &GapProfile{ID: "first", SessionID: "s1", SubjectID: "learner"}))
	require.NoError(t, s.SaveCurrent(ctx, &GapProfile{ID: "retry", SessionID: "s1", SubjectID: "learner"}))

	hist, err := s.History(ctx, "learner", 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "retry", hist[0].ID)
	assert.Equal(t, "old", hist[1].ID)

	got, err := s.BySession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "retry", got.ID)
	cur, err := s.Current(ctx, "learner")
	require.NoError(t, err)
	assert.Equal(t, "retry", cur.ID)
}

func TestMemoryStore_CopiesProfiles(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	grade := 2
	in := &GapProfile{
		ID: "p", SessionID: "s1", SubjectID: "learner",
		GapNodes:            []string{"P2", "P1"},
		TracePath:           []string{"P2", "P1"},
		MatchedCascade:      &CascadeRef{ID: "c1", Overlap: 2},
		EstimatedGradeLevel: &grade,
	}
	require.NoError(t, s.SaveCurrent(ctx, in))

	in.GapNodes[0] = "changed"
	in.MatchedCascade.ID = "changed"
	grade = 9

	got, err := s.BySession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"P2", "P1"}, got.GapNodes)
	assert.Equal(t, "c1", got.MatchedCascade.ID)
	assert.Equal(t, 2, *got.EstimatedGradeLevel)

	got.TracePath[1] = "changed"
	got.MatchedCascade.Overlap = 0
	*got.EstimatedGradeLevel = 7

	for _, read := range []func() (*GapProfile, error){
		func() (*GapProfile, error) { return s.BySession(ctx, "s1") },
		func() (*GapProfile, error) { return s.Current(ctx, "learner") },
		func() (*GapProfile, error) {
			h, err := s.History(ctx, "learner", 1)
			if err != nil || len(h) == 0 {
				return nil, err
			}
			return h[0], nil
		},
	} {
		p, err := read()
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, []string{"P2", "P1"}, p.TracePath)
		assert.Equal(t, 2, p.MatchedCascade.Overlap)
		assert.Equal(t, 2, *p.EstimatedGradeLevel)
	}
}
