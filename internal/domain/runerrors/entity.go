package runerrors

import "time"

// Diagnostic represents a persisted failure record for one run.
// The full detail (exit code, captured output) stays server-side; the API
// only ever exposes the run's terminal error status.
type Diagnostic struct {
	RunID     string    `json:"run_id"`
	Phase     string    `json:"phase"` // launch | exec | timeout
	ExitCode  int       `json:"exit_code"`
	Message   string    `json:"message"`
	Output    string    `json:"output,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
