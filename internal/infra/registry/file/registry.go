package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	domain "github.com/lintai-dev/lintai-server/internal/domain/runs"
)

// Registry is a durable, ordered run collection backed by a single JSON
// file. Every mutation holds the lock, rewrites the full list to a temp
// file and renames it over the old one, so a crash mid-write never leaves
// a partial runs file behind.
type Registry struct {
	mu   sync.Mutex
	path string
	runs []*domain.Run
	log  *slog.Logger
}

// Open loads the registry file if it exists. The parent directory is
// created so a fresh data dir works out of the box.
func Open(path string, log *slog.Logger) (*Registry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}
	r := &Registry{path: path, log: log}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &r.runs); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// first start
	default:
		return nil, err
	}
	return r, nil
}

func (r *Registry) Create(ctx context.Context, run *domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.runs {
		if existing.ID == run.ID {
			return fmt.Errorf("%w: %s", domain.ErrRunExists, run.ID)
		}
	}
	cp := *run
	r.runs = append(r.runs, &cp)
	if err := r.persistLocked(); err != nil {
		r.runs = r.runs[:len(r.runs)-1]
		return err
	}
	return nil
}

func (r *Registry) List(ctx context.Context) ([]*domain.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.Run, len(r.runs))
	for i, run := range r.runs {
		cp := *run
		out[i] = &cp
	}
	return out, nil
}

func (r *Registry) SetStatus(ctx context.Context, id domain.RunID, st domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found *domain.Run
	for _, run := range r.runs {
		if run.ID == id {
			found = run
			break
		}
	}
	if found == nil {
		r.log.WarnContext(ctx, "set status for unknown run", "run_id", id, "status", st)
		return nil
	}
	if !found.Status.CanTransition(st) {
		r.log.WarnContext(ctx, "illegal status transition ignored",
			"run_id", id, "from", found.Status, "to", st)
		return nil
	}

	prev := found.Status
	found.Status = st
	if err := r.persistLocked(); err != nil {
		found.Status = prev
		return err
	}
	return nil
}

func (r *Registry) Lookup(ctx context.Context, id domain.RunID) (*domain.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, run := range r.runs {
		if run.ID == id {
			cp := *run
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
}

// persistLocked rewrites the whole file atomically. Caller holds the lock.
func (r *Registry) persistLocked() error {
	data, err := json.MarshalIndent(r.runs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal runs: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".runs-*.json")
	if err != nil {
		return fmt.Errorf("create temp runs file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write runs file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace runs file: %w", err)
	}
	return nil
}
