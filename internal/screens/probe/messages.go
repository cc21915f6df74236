package probe

import (
	sess "github.com/abhisek/rootcause/internal/session"
)

// submittedMsg is sent when a submission returned.
type submittedMsg struct {
	Result *sess.Result
	Err    error
}

// refreshedMsg is sent after re-reading the pending probe.
type refreshedMsg struct {
	Probe *sess.Probe
	Err   error
}

// abandonedMsg is sent after the session was abandoned.
type abandonedMsg struct {
	Err error
}
