package results

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/lintai-dev/lintai-server/internal/domain/runerrors"
	domain "github.com/lintai-dev/lintai-server/internal/domain/runs"
)

const diagnosticsName = "diagnostics.json"

// Diagnostics persists run failure records inside the run's own
// subdirectory, next to where the report would have been written.
type Diagnostics struct {
	store *Store
}

func NewDiagnostics(store *Store) *Diagnostics {
	return &Diagnostics{store: store}
}

func (d *Diagnostics) path(runID string) string {
	return filepath.Join(d.store.RunDir(domain.RunID(runID)), diagnosticsName)
}

func (d *Diagnostics) Save(ctx context.Context, diag *runerrors.Diagnostic) error {
	list, err := d.ListByRun(ctx, diag.RunID)
	if err != nil {
		return err
	}
	list = append(list, diag)

	if _, err := d.store.EnsureRunDir(domain.RunID(diag.RunID)); err != nil {
		return err
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(d.path(diag.RunID), data, 0o644)
}

func (d *Diagnostics) ListByRun(ctx context.Context, id string) ([]*runerrors.Diagnostic, error) {
	data, err := os.ReadFile(d.path(id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var list []*runerrors.Diagnostic
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}
