package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Config holds the analyzer's call policy.
type Config struct {
	// Timeout bounds one external classification call.
	Timeout time.Duration `env:"TIMEOUT"`

	// RatePerSecond throttles external calls; zero disables throttling.
	RatePerSecond float64 `env:"RATE_PER_SECOND"`
	RateBurst     int     `env:"RATE_BURST"`
}

// DefaultConfig returns the default analyzer policy.
func DefaultConfig() Config {
	return Config{
		Timeout:   20 * time.Second,
		RateBurst: 1,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("analyzer timeout must be positive, got %s", c.Timeout)
	}
	if c.RatePerSecond < 0 {
		return fmt.Errorf("analyzer rate must be >= 0, got %f", c.RatePerSecond)
	}
	if c.RatePerSecond > 0 && c.RateBurst < 1 {
		return fmt.Errorf("analyzer rate burst must be >= 1, got %d", c.RateBurst)
	}
	return nil
}

// Analyzer classifies probe responses: built-in rules first, then the
// external Classifier under a timeout. It never returns an error; failures
// come back as an uncertain Classification with Failed set.
type Analyzer struct {
	cfg      Config
	rules    []Rule
	external Classifier
	limiter  *rate.Limiter
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithClassifier sets the external classification capability.
func WithClassifier(c Classifier) Option {
	return func(a *Analyzer) { a.external = c }
}

// WithRules replaces the built-in rules.
func WithRules(rules ...Rule) Option {
	return func(a *Analyzer) { a.rules = rules }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// New creates an Analyzer.
func New(cfg Config, opts ...Option) *Analyzer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	a := &Analyzer{
		cfg:    cfg,
		rules:  DefaultRules(),
		logger: slog.Default(),
		tracer: defaultTracer(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if cfg.RatePerSecond > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), max(cfg.RateBurst, 1))
	}
	return a
}

// HasClassifier reports whether an external capability is configured.
func (a *Analyzer) HasClassifier() bool {
	return a.external != nil
}

// Analyze classifies raw for the probe described by pc.
//
// An explicit "don't know" or a match against the expected answer is
// decided by rule. A rule-decided gap on a node with known misconceptions
// is passed to the external capability for tagging only; the outcome
// stands whatever it answers. Otherwise the external capability decides.
// With no capability and no applicable rule the result is a failed
// uncertain verdict.
func (a *Analyzer) Analyze(ctx context.Context, pc ProbeContext, raw string) Classification {
	ctx, span := a.startSpan(ctx, pc)
	defer span.End()
	start := time.Now()

	c := a.analyze(ctx, pc, raw)

	endAnalyzeSpan(span, c)
	a.logger.Debug("probe classified",
		"session", pc.SessionID,
		"node", pc.NodeCode,
		"attempt", pc.Attempt,
		"outcome", c.Outcome,
		"confidence", c.Confidence,
		"source", c.Source,
		"failed", c.Failed,
		"elapsed", time.Since(start))
	return c
}

func (a *Analyzer) analyze(ctx context.Context, pc ProbeContext, raw string) Classification {
	out, conf, name := runRules(a.rules, pc, raw)
	if out == Mastered || (out == Gap && (a.external == nil || len(pc.Misconceptions) == 0)) {
		return Classification{Outcome: out, Confidence: conf, Source: name}
	}
	if out == Gap {
		ruled := Classification{Outcome: out, Confidence: conf, Source: name}
		tagged, err := a.callExternal(ctx, pc, raw)
		if err == nil && tagged.Outcome == Gap && tagged.MisconceptionID != "" {
			ruled.MisconceptionID = tagged.MisconceptionID
			ruled.Reasoning = tagged.Reasoning
		}
		return ruled
	}

	if a.external == nil {
		return failed("no classifier configured and no rule applies")
	}
	c, err := a.callExternal(ctx, pc, raw)
	if err != nil {
		a.logger.Warn("classification failed",
			"session", pc.SessionID, "node", pc.NodeCode, "err", err)
		return failed(err.Error())
	}
	return c
}

// callExternal runs the capability in its own goroutine so that a
// classifier ignoring its context still cannot hold the caller past the
// timeout.
func (a *Analyzer) callExternal(ctx context.Context, pc ProbeContext, raw string) (Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return Classification{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	type result struct {
		c   Classification
		err error
	}
	done := make(chan result, 1)
	go func() {
		c, err := a.external.Classify(ctx, pc, raw)
		done <- result{c, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return Classification{}, r.err
		}
		return sanitize(r.c, pc)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Classification{}, fmt.Errorf("classification timed out after %s", a.cfg.Timeout)
		}
		return Classification{}, ctx.Err()
	}
}

// sanitize enforces the classification contract on capability output.
func sanitize(c Classification, pc ProbeContext) (Classification, error) {
	if !c.Outcome.Valid() {
		return Classification{}, fmt.Errorf("invalid outcome %q", c.Outcome)
	}
	if math.IsNaN(c.Confidence) {
		c.Confidence = 0
	}
	c.Confidence = min(max(c.Confidence, 0), 1)
	c.Failed = false

	if c.MisconceptionID != "" && !knownMisconception(pc, c.MisconceptionID) {
		c.MisconceptionID = ""
	}
	if c.Outcome != Gap {
		c.MisconceptionID = ""
	}
	return c, nil
}

func knownMisconception(pc ProbeContext, id string) bool {
	for _, m := range pc.Misconceptions {
		if m.ID == id {
			return true
		}
	}
	return false
}

func failed(reason string) Classification {
	return Classification{
		Outcome:   Uncertain,
		Source:    SourceFallback,
		Reasoning: reason,
		Failed:    true,
	}
}
