package profile

import (
	"context"
	"slices"
	"sync"
)

// Store persists gap profiles.
type Store interface {
	// SaveCurrent writes p as the subject's current profile, demoting any
	// prior current profile for the same subject in the same step. A
	// profile already written for p's session is replaced, so a session
	// concludes with exactly one profile however often it is retried.
	SaveCurrent(ctx context.Context, p *GapProfile) error

	// Current returns the subject's current profile or ErrNotFound.
	Current(ctx context.Context, subjectID string) (*GapProfile, error)

	// BySession returns the profile written for a session or ErrNotFound.
	BySession(ctx context.Context, sessionID string) (*GapProfile, error)

	// History returns up to limit profiles for a subject, newest first.
	History(ctx context.Context, subjectID string, limit int) ([]*GapProfile, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu        sync.RWMutex
	profiles  []*GapProfile
	current   map[string]string // subject -> profile ID
	bySession map[string]*GapProfile
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		current:   make(map[string]string),
		bySession: make(map[string]*GapProfile),
	}
}

func (m *MemoryStore) SaveCurrent(_ context.Context, p *GapProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.bySession[p.SessionID]; ok {
		m.profiles = slices.DeleteFunc(m.profiles, func(q *GapProfile) bool { return q == prev })
	}
	cp := p.Clone()
	m.profiles = append(m.profiles, cp)
	m.current[p.SubjectID] = p.ID
	m.bySession[p.SessionID] = cp
	return nil
}

func (m *MemoryStore) Current(_ context.Context, subjectID string) (*GapProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.current[subjectID]
	if !ok {
		return nil, ErrNotFound
	}
	for _, p := range m.profiles {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) BySession(_ context.Context, sessionID string) (*GapProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.bySession[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (m *MemoryStore) History(_ context.Context, subjectID string, limit int) ([]*GapProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*GapProfile
	for i := len(m.profiles) - 1; i >= 0; i-- {
		if m.profiles[i].SubjectID != subjectID {
			continue
		}
		out = append(out, m.profiles[i].Clone())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
