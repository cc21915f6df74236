package session

import (
	"fmt"
	"time"
)

// Config holds the orchestration policy.
type Config struct {
	// MaxDepth bounds the backward trace from the origin gap.
	MaxDepth int `env:"MAX_DEPTH"`

	// ProbeBudget is the total number of answered probes after which a
	// session concludes regardless of progress.
	ProbeBudget int `env:"PROBE_BUDGET"`

	// MaxConsecutiveFailures escalates a node to human review once that
	// many analyzer failures happen in a row.
	MaxConsecutiveFailures int `env:"MAX_CONSECUTIVE_FAILURES"`

	// IdleTTL is how long a session may sit without a submission before it
	// times out. Zero disables expiry.
	IdleTTL time.Duration `env:"IDLE_TTL"`
}

// Budget bounds.
const (
	MinProbeBudget = 12
	MaxProbeBudget = 18
)

// DefaultConfig returns the default orchestration policy.
func DefaultConfig() Config {
	return Config{
		MaxDepth:               4,
		ProbeBudget:            15,
		MaxConsecutiveFailures: 2,
		IdleTTL:                30 * time.Minute,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxDepth < 1 {
		return fmt.Errorf("max depth must be >= 1, got %d", c.MaxDepth)
	}
	if c.ProbeBudget < MinProbeBudget || c.ProbeBudget > MaxProbeBudget {
		return fmt.Errorf("probe budget must be in [%d, %d], got %d", MinProbeBudget, MaxProbeBudget, c.ProbeBudget)
	}
	if c.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("max consecutive failures must be >= 1, got %d", c.MaxConsecutiveFailures)
	}
	if c.IdleTTL < 0 {
		return fmt.Errorf("idle TTL must be >= 0, got %s", c.IdleTTL)
	}
	return nil
}
