package session

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

// ListFilter selects sessions for Repository.List. Zero fields match all.
type ListFilter struct {
	SubjectID string
	Status    Status

	// Open restricts the result to non-terminal sessions.
	Open bool

	Limit int
}

func (f ListFilter) match(s *Session) bool {
	if f.SubjectID != "" && s.SubjectID != f.SubjectID {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Open && s.Status.Terminal() {
		return false
	}
	return true
}

// Repository persists sessions. Get returns a copy the caller may mutate;
// changes take effect only through Update.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)

	// Update replaces the stored session. The stored version must be
	// exactly s.Version-1, otherwise ErrStaleSubmission is returned.
	// Probe records with a zero Seq are assigned the next sequence number.
	Update(ctx context.Context, s *Session) error

	// List returns matching sessions, most recently active first.
	List(ctx context.Context, f ListFilter) ([]*Session, error)
}

// MemoryRepository is an in-process Repository.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	seq      int64
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string][]byte)}
}

func (m *MemoryRepository) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	return m.put(s)
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	raw, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("get session %s: %w", id, ErrSessionNotFound)
	}
	return decodeSession(raw)
}

func (m *MemoryRepository) Update(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.sessions[s.ID]
	if !ok {
		return fmt.Errorf("update session %s: %w", s.ID, ErrSessionNotFound)
	}
	prev, err := decodeSession(raw)
	if err != nil {
		return err
	}
	if prev.Version != s.Version-1 {
		return fmt.Errorf("update session %s (version %d, stored %d): %w", s.ID, s.Version, prev.Version, ErrStaleSubmission)
	}
	return m.put(s)
}

func (m *MemoryRepository) List(_ context.Context, f ListFilter) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Session
	for _, raw := range m.sessions {
		s, err := decodeSession(raw)
		if err != nil {
			return nil, err
		}
		if f.match(s) {
			out = append(out, s)
		}
	}
	SortByActivity(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryRepository) put(s *Session) error {
	for i := range s.Probes {
		if s.Probes[i].Seq == 0 {
			m.seq++
			s.Probes[i].Seq = m.seq
		}
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	m.sessions[s.ID] = raw
	return nil
}

func decodeSession(raw []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.Results == nil {
		s.Results = make(map[string]*NodeResult)
	}
	return &s, nil
}

// SortByActivity orders sessions most recently active first, then by ID.
func SortByActivity(ss []*Session) {
	slices.SortFunc(ss, func(a, b *Session) int {
		if c := b.LastActivity.Compare(a.LastActivity); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
