package runerrors

import (
	"context"
)

// Repository defines persistence for run diagnostics
type Repository interface {
	Save(ctx context.Context, d *Diagnostic) error
	ListByRun(ctx context.Context, runID string) ([]*Diagnostic, error)
}
