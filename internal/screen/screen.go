package screen

import (
	"context"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/rootcause/internal/session"
	"github.com/abhisek/rootcause/internal/skillgraph"
	"github.com/abhisek/rootcause/internal/ui/layout"
)

// Screen defines the interface for all application screens.
type Screen interface {
	// Init returns an initial command when the screen is first created.
	Init() tea.Cmd

	// Update handles messages and returns updated screen + command.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the screen content (excluding header/footer).
	View(width, height int) string

	// Title returns the screen name for the header.
	Title() string
}

// KeyHintProvider is an optional interface that screens can implement
// to provide custom footer key hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// StatusProvider is an optional interface for screens that report session
// progress in the header.
type StatusProvider interface {
	Status() layout.Status
}

// Engine is the slice of the session orchestrator the screens drive.
type Engine interface {
	CreateSession(ctx context.Context, subjectID string, entryGrade int, domain skillgraph.Strand) (string, error)
	CurrentProbe(ctx context.Context, sessionID string) (*session.Probe, error)
	SubmitResponse(ctx context.Context, sessionID, nodeCode, raw, idempotencyKey string) (*session.Result, error)
	Abandon(ctx context.Context, sessionID string) error
}

var _ Engine = (*session.Orchestrator)(nil)
