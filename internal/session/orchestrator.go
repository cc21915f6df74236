package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/abhisek/rootcause/internal/analyzer"
	"github.com/abhisek/rootcause/internal/profile"
	"github.com/abhisek/rootcause/internal/skillgraph"
)

// Analyzer classifies one probe response. *analyzer.Analyzer implements it.
type Analyzer interface {
	Analyze(ctx context.Context, pc analyzer.ProbeContext, raw string) analyzer.Classification
}

// Orchestrator runs diagnostic sessions against one curriculum graph.
// It is safe for concurrent use. Each session has a single writer at a
// time; different sessions proceed independently.
type Orchestrator struct {
	graph    *skillgraph.Graph
	analyzer Analyzer
	profiler *profile.Profiler
	profiles profile.Store
	repo     Repository
	cfg      Config

	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
	newID  func() string

	locks    sync.Map // session ID -> *sync.Mutex
	inflight singleflight.Group
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator overrides session ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

// New creates an Orchestrator.
func New(g *skillgraph.Graph, a Analyzer, p *profile.Profiler, profiles profile.Store, repo Repository, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		graph:    g,
		analyzer: a,
		profiler: p,
		profiles: profiles,
		repo:     repo,
		cfg:      cfg,
		logger:   slog.Default(),
		tracer:   defaultTracer(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CreateSession starts a session for subjectID and returns its ID. The
// first probe is available from CurrentProbe.
func (o *Orchestrator) CreateSession(ctx context.Context, subjectID string, entryGrade int, domain skillgraph.Strand) (id string, err error) {
	id = o.newID()
	ctx, span := o.startSpan(ctx, "Orchestrator.CreateSession", id,
		attribute.String("subject.id", subjectID),
		attribute.Int("entry.grade", entryGrade),
		attribute.String("domain", string(domain)))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(subjectID) == "" {
		return "", errors.New("subject ID is required")
	}
	queue := o.graph.PriorityScreeningOrder(entryGrade, domain)
	if len(queue) == 0 {
		return "", fmt.Errorf("grade %d, domain %q: %w", entryGrade, domain, ErrNoProbes)
	}

	now := o.now().UTC()
	s := &Session{
		ID:           id,
		SubjectID:    subjectID,
		Domain:       domain,
		EntryGrade:   entryGrade,
		Status:       StatusCreated,
		Results:      make(map[string]*NodeResult),
		CreatedAt:    now,
		LastActivity: now,
		Version:      1,
	}
	t, err := s.transition(StatusScreening, "created")
	if err != nil {
		return "", err
	}
	s.setPending(queue[0], 0, "")
	s.Queue = queue[1:]

	if err := o.repo.Create(ctx, s); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	sessionsCreated.Inc()
	o.logTransition(t)
	o.logger.Info("session created",
		"session", id, "subject", subjectID, "grade", entryGrade, "domain", domain,
		"screening", len(queue))
	return id, nil
}

// SubmitResponse applies the learner's raw answer to the pending probe.
//
// The idempotency key identifies the submission: repeating a key returns
// the bytes-identical Result of the first submission without touching the
// session, and concurrent repeats are coalesced into one classification.
// Classification runs without holding the session lock; if the session
// changed meanwhile the submission fails with ErrStaleSubmission.
func (o *Orchestrator) SubmitResponse(ctx context.Context, sessionID, nodeCode, raw, idempotencyKey string) (res *Result, err error) {
	if idempotencyKey == "" {
		return nil, ErrMissingIdempotencyKey
	}
	ctx, span := o.startSpan(ctx, "Orchestrator.SubmitResponse", sessionID,
		attribute.String("node.code", nodeCode))
	defer func() { endSpan(span, err) }()

	v, err, _ := o.inflight.Do(sessionID+"\x00"+idempotencyKey, func() (any, error) {
		return o.submit(ctx, sessionID, nodeCode, raw, idempotencyKey)
	})
	if err != nil {
		return nil, err
	}

	var out Result
	if err := json.Unmarshal(v.([]byte), &out); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &out, nil
}

func (o *Orchestrator) submit(ctx context.Context, sessionID, nodeCode, raw, key string) ([]byte, error) {
	pc, version, cached, err := o.prepare(ctx, sessionID, nodeCode, key)
	if err != nil || cached != nil {
		return cached, err
	}

	start := time.Now()
	c := o.analyzer.Analyze(ctx, pc, raw)
	classifyLatency.Observe(time.Since(start).Seconds())

	unlock := o.lock(sessionID)
	defer unlock()

	s, err := o.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec, ok := s.probeByKey(key); ok {
		duplicateSubmissions.Inc()
		return rec.Result, nil
	}
	if s.Version != version {
		if s.Status.Terminal() {
			o.forget(sessionID)
			return nil, fmt.Errorf("session %s is %s: %w", sessionID, s.Status, ErrSessionClosed)
		}
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrStaleSubmission)
	}

	phase := s.Status
	if err := o.apply(s, nodeCode, c); err != nil {
		return nil, err
	}
	probesAnswered.WithLabelValues(string(phase), string(c.Outcome)).Inc()

	res := &Result{
		SessionID:      s.ID,
		Classification: c,
		ProbeCount:     s.ProbeCount,
	}
	if s.Status == StatusConcluded {
		gp, err := o.profiler.Build(s.profileInput())
		if err != nil {
			return nil, fmt.Errorf("build profile: %w", err)
		}
		if err := o.profiles.SaveCurrent(ctx, gp); err != nil {
			return nil, fmt.Errorf("save profile: %w", err)
		}
		s.ProfileID = gp.ID
		s.RootGap = gp.PrimaryGapNode
		res.Profile = gp
		o.logger.Info("session concluded",
			"session", s.ID, "reason", s.Reason, "root", gp.PrimaryGapNode,
			"confidence", gp.OverallConfidence, "probes", s.ProbeCount,
			"review", s.NeedsHumanReview)
	} else {
		res.Next = o.probe(s)
	}
	res.Status = s.Status

	encoded, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	now := o.now().UTC()
	s.Probes = append(s.Probes, ProbeRecord{
		NodeCode:       nodeCode,
		IdempotencyKey: key,
		Raw:            raw,
		Classification: c,
		AnsweredAt:     now,
		Result:         encoded,
	})
	s.LastActivity = now
	s.Version++
	if err := o.repo.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	if s.Status.Terminal() {
		o.forget(s.ID)
	}
	return encoded, nil
}

// prepare validates a submission under the session lock and snapshots what
// the analyzer needs. A non-nil cached result short-circuits the call.
func (o *Orchestrator) prepare(ctx context.Context, sessionID, nodeCode, key string) (analyzer.ProbeContext, int, []byte, error) {
	unlock := o.lock(sessionID)
	defer unlock()

	s, err := o.repo.Get(ctx, sessionID)
	if err != nil {
		return analyzer.ProbeContext{}, 0, nil, err
	}
	if rec, ok := s.probeByKey(key); ok {
		duplicateSubmissions.Inc()
		return analyzer.ProbeContext{}, 0, rec.Result, nil
	}
	if s.Status.Terminal() {
		o.forget(sessionID)
		return analyzer.ProbeContext{}, 0, nil, fmt.Errorf("session %s is %s: %w", sessionID, s.Status, ErrSessionClosed)
	}
	if o.idle(s) {
		if err := o.close(ctx, s, StatusTimedOut, "idle"); err != nil {
			return analyzer.ProbeContext{}, 0, nil, err
		}
		return analyzer.ProbeContext{}, 0, nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionExpired)
	}
	if nodeCode != s.Pending {
		return analyzer.ProbeContext{}, 0, nil, fmt.Errorf("got %q, pending %q: %w", nodeCode, s.Pending, ErrUnexpectedNode)
	}
	pc, err := o.probeContext(s)
	if err != nil {
		return analyzer.ProbeContext{}, 0, nil, err
	}
	return pc, s.Version, nil, nil
}

// GetProfile returns the gap profile of a concluded session.
func (o *Orchestrator) GetProfile(ctx context.Context, sessionID string) (*profile.GapProfile, error) {
	if _, err := o.repo.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	gp, err := o.profiles.BySession(ctx, sessionID)
	if errors.Is(err, profile.ErrNotFound) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrProfileNotFound)
	}
	return gp, err
}

// CurrentProbe returns the pending probe of an open session.
func (o *Orchestrator) CurrentProbe(ctx context.Context, sessionID string) (*Probe, error) {
	s, err := o.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status.Terminal() {
		return nil, fmt.Errorf("session %s is %s: %w", sessionID, s.Status, ErrSessionClosed)
	}
	return o.probe(s), nil
}

// GetSession returns a snapshot of the session.
func (o *Orchestrator) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	return o.repo.Get(ctx, sessionID)
}

// ListSessions lists sessions matching f.
func (o *Orchestrator) ListSessions(ctx context.Context, f ListFilter) ([]*Session, error) {
	return o.repo.List(ctx, f)
}

// Abandon ends an open session without a profile.
func (o *Orchestrator) Abandon(ctx context.Context, sessionID string) error {
	unlock := o.lock(sessionID)
	defer unlock()

	s, err := o.repo.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.Status.Terminal() {
		o.forget(sessionID)
		return fmt.Errorf("session %s is %s: %w", sessionID, s.Status, ErrSessionClosed)
	}
	return o.close(ctx, s, StatusAbandoned, "abandoned")
}

// ExpireStale moves every open session idle for longer than the configured
// TTL to timed_out and returns how many it expired.
func (o *Orchestrator) ExpireStale(ctx context.Context) (int, error) {
	if o.cfg.IdleTTL <= 0 {
		return 0, nil
	}
	open, err := o.repo.List(ctx, ListFilter{Open: true})
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range open {
		if !o.idle(candidate) {
			continue
		}
		ok, err := o.expireOne(ctx, candidate.ID)
		if err != nil {
			return expired, err
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

func (o *Orchestrator) expireOne(ctx context.Context, id string) (bool, error) {
	unlock := o.lock(id)
	defer unlock()

	s, err := o.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if s.Status.Terminal() {
		o.forget(id)
		return false, nil
	}
	if !o.idle(s) {
		return false, nil
	}
	return true, o.close(ctx, s, StatusTimedOut, "idle")
}

// close moves s to a terminal status other than concluded. The caller
// holds the session lock.
func (o *Orchestrator) close(ctx context.Context, s *Session, to Status, trigger string) error {
	t, err := s.transition(to, trigger)
	if err != nil {
		return err
	}
	s.Reason = string(to)
	s.setPending("", 0, "")
	s.Queue = nil
	s.Version++
	if err := o.repo.Update(ctx, s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	sessionsClosed.WithLabelValues(string(to)).Inc()
	o.logTransition(t)
	o.forget(s.ID)
	return nil
}

func (o *Orchestrator) idle(s *Session) bool {
	return o.cfg.IdleTTL > 0 && o.now().Sub(s.LastActivity) > o.cfg.IdleTTL
}

func (o *Orchestrator) lock(id string) func() {
	v, _ := o.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// forget drops the lock entry of a session that reached a terminal status.
// The caller holds that lock. A writer still queued on the old mutex only
// finds the terminal session, which no path mutates.
func (o *Orchestrator) forget(id string) {
	o.locks.Delete(id)
}

func (o *Orchestrator) probe(s *Session) *Probe {
	n, err := o.graph.Node(s.Pending)
	if err != nil {
		return nil
	}
	attempt := 1
	if r, ok := s.Results[s.Pending]; ok {
		attempt = r.Attempts + 1
	}
	return &Probe{
		SessionID: s.ID,
		NodeCode:  n.Code,
		NodeName:  n.Name,
		Prompt:    n.ProbePrompt,
		Grade:     n.GradeLevel,
		Strand:    n.Strand,
		Phase:     s.Status,
		Attempt:   attempt,
	}
}

func (o *Orchestrator) probeContext(s *Session) (analyzer.ProbeContext, error) {
	n, err := o.graph.Node(s.Pending)
	if err != nil {
		return analyzer.ProbeContext{}, err
	}
	attempt := 1
	if r, ok := s.Results[s.Pending]; ok {
		attempt = r.Attempts + 1
	}
	return analyzer.ProbeContext{
		SessionID:      s.ID,
		NodeCode:       n.Code,
		NodeName:       n.Name,
		Description:    n.Description,
		Prompt:         n.ProbePrompt,
		ExpectedAnswer: n.ExpectedAnswer,
		Grade:          n.GradeLevel,
		Strand:         n.Strand,
		Attempt:        attempt,
		Misconceptions: o.graph.Misconceptions(n.Code),
	}, nil
}

func (o *Orchestrator) logTransition(t StatusTransition) {
	o.logger.Debug("session status changed",
		"session", t.SessionID, "from", t.From, "to", t.To, "trigger", t.Trigger)
}
