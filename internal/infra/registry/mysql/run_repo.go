package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	domain "github.com/lintai-dev/lintai-server/internal/domain/runs"
)

type RunRepository struct {
	db  *sql.DB
	log *slog.Logger
}

func NewRunRepository(db *sql.DB, log *slog.Logger) *RunRepository {
	return &RunRepository{db: db, log: log}
}

// Init creates the runs table. The auto-increment position column keeps
// insertion order.
func (r *RunRepository) Init(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS analysis_runs (
 position  BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
 id        VARCHAR(64) NOT NULL UNIQUE,
 run_type  VARCHAR(16) NOT NULL,
 created   DATETIME(6) NOT NULL,
 status    VARCHAR(16) NOT NULL,
 path      TEXT NOT NULL
) CHARACTER SET utf8mb4;`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

func (r *RunRepository) Create(ctx context.Context, run *domain.Run) error {
	const q = `
INSERT IGNORE INTO analysis_runs (id, run_type, created, status, path)
VALUES (?,?,?,?,?);`
	res, err := r.db.ExecContext(ctx, q, run.ID, run.Type, run.Created.UTC(), run.Status, run.Path)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrRunExists, run.ID)
	}
	return nil
}

func (r *RunRepository) List(ctx context.Context) ([]*domain.Run, error) {
	const q = `
SELECT id, run_type, created, status, path
FROM analysis_runs ORDER BY position;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Run
	for rows.Next() {
		var run domain.Run
		if err := rows.Scan(&run.ID, &run.Type, &run.Created, &run.Status, &run.Path); err != nil {
			return nil, err
		}
		out = append(out, &run)
	}
	return out, rows.Err()
}

// SetStatus moves a pending run to a terminal status. Unknown ids and
// already-terminal records are logged and ignored so completion callbacks
// never fail.
func (r *RunRepository) SetStatus(ctx context.Context, id domain.RunID, st domain.Status) error {
	if !st.Terminal() {
		r.log.WarnContext(ctx, "non-terminal status ignored", "run_id", id, "status", st)
		return nil
	}
	const q = `
UPDATE analysis_runs SET status=?
WHERE id=? AND status=?;`
	res, err := r.db.ExecContext(ctx, q, st, id, domain.StatusPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		r.log.WarnContext(ctx, "set status had no effect", "run_id", id, "status", st)
	}
	return nil
}

func (r *RunRepository) Lookup(ctx context.Context, id domain.RunID) (*domain.Run, error) {
	const q = `
SELECT id, run_type, created, status, path
FROM analysis_runs WHERE id=? LIMIT 1;`
	var run domain.Run
	err := r.db.QueryRowContext(ctx, q, id).Scan(&run.ID, &run.Type, &run.Created, &run.Status, &run.Path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
