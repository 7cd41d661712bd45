package postgres

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "log/slog"

    "github.com/lib/pq"

    domain "github.com/lintai-dev/lintai-server/internal/domain/runs"
)

type RunRepository struct {
    db  *sql.DB
    log *slog.Logger
}

func NewRunRepository(db *sql.DB, log *slog.Logger) *RunRepository {
    return &RunRepository{db: db, log: log}
}

// Init creates the runs table. Insertion order is kept by the serial
// position column.
func (r *RunRepository) Init(ctx context.Context) error {
    const q = `
CREATE TABLE IF NOT EXISTS analysis_runs (
 position  BIGSERIAL PRIMARY KEY,
 id        TEXT NOT NULL UNIQUE,
 run_type  TEXT NOT NULL,
 created   TIMESTAMPTZ NOT NULL,
 status    TEXT NOT NULL,
 path      TEXT NOT NULL
);`
    _, err := r.db.ExecContext(ctx, q)
    return err
}

func (r *RunRepository) Create(ctx context.Context, run *domain.Run) error {
    const q = `
INSERT INTO analysis_runs (id, run_type, created, status, path)
VALUES ($1,$2,$3,$4,$5);`
    _, err := r.db.ExecContext(ctx, q, run.ID, run.Type, run.Created, run.Status, run.Path)
    var pqErr *pq.Error
    if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
        return fmt.Errorf("%w: %s", domain.ErrRunExists, run.ID)
    }
    return err
}

func (r *RunRepository) List(ctx context.Context) ([]*domain.Run, error) {
    const q = `
SELECT id, run_type, created, status, path
FROM analysis_runs ORDER BY position;`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil { return nil, err }
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
UPDATE analysis_runs SET status=$1
WHERE id=$2 AND status=$3;`
    res, err := r.db.ExecContext(ctx, q, st, id, domain.StatusPending)
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 {
        r.log.WarnContext(ctx, "set status had no effect", "run_id", id, "status", st)
    }
    return nil
}

func (r *RunRepository) Lookup(ctx context.Context, id domain.RunID) (*domain.Run, error) {
    const q = `
SELECT id, run_type, created, status, path
FROM analysis_runs WHERE id=$1 LIMIT 1;`
    var run domain.Run
    err := r.db.QueryRowContext(ctx, q, id).Scan(&run.ID, &run.Type, &run.Created, &run.Status, &run.Path)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
    }
    if err != nil { return nil, err }
    return &run, nil
}
