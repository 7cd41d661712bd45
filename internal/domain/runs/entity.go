package runs

import (
	"time"
)

// ID tipe untuk Run
type RunID string

// RunType enum
type RunType string

const (
	TypeScan      RunType = "scan"
	TypeInventory RunType = "inventory"
)

func (t RunType) Valid() bool {
	return t == TypeScan || t == TypeInventory
}

// Status enum. Pending is the only non-terminal state.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Terminal reports whether the status can never change again.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// CanTransition reports whether s may legally move to next.
// The only legal moves are pending -> done and pending -> error.
func (s Status) CanTransition(next Status) bool {
	return s == StatusPending && next.Terminal()
}

// Aggregate Root: Run
// One scheduled execution of the external analyzer. The id is unique and
// immutable; the registry owns the record and only the dispatcher updates it.
type Run struct {
	ID      RunID     `json:"run_id"`
	Type    RunType   `json:"type"`
	Created time.Time `json:"created"`
	Status  Status    `json:"status"`
	Path    string    `json:"path"`
}
