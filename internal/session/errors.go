package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is the base error for operations a session's status
	// does not allow.
	ErrInvalidState = errors.New("invalid session state")

	// ErrSessionClosed rejects a new submission to a terminal session.
	ErrSessionClosed = fmt.Errorf("session is closed: %w", ErrInvalidState)

	// ErrSessionExpired is returned when a submission arrives after the
	// idle timeout. The session is moved to timed_out.
	ErrSessionExpired = fmt.Errorf("session expired: %w", ErrInvalidState)

	ErrSessionNotFound = errors.New("session not found")
	ErrProfileNotFound = errors.New("profile not found")

	// ErrUnexpectedNode rejects an answer for a node that is not pending.
	ErrUnexpectedNode = errors.New("answer is not for the pending probe")

	// ErrStaleSubmission is returned when the session advanced while the
	// submission was being classified.
	ErrStaleSubmission = errors.New("session advanced during classification")

	// ErrNoProbes is returned when screening would start with nothing to ask.
	ErrNoProbes = errors.New("no screening probes for grade and domain")

	ErrMissingIdempotencyKey = errors.New("idempotency key is required")
)
