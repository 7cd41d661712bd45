package runs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/lintai-dev/lintai-server/internal/application"
	"github.com/lintai-dev/lintai-server/internal/domain/runerrors"
	domain "github.com/lintai-dev/lintai-server/internal/domain/runs"
	"github.com/lintai-dev/lintai-server/internal/workspace"
)

// Service implements the run use-cases: triggering analyzer executions and
// serving every read-side query. It is safe for concurrent use.
type Service struct {
	Registry  domain.Registry
	Runner    domain.Runner
	Results   domain.Results
	Guard     *workspace.Guard
	Prefs     domain.PreferenceStore
	Diags     runerrors.Repository
	Artifacts domain.ArtifactStore // optional, nil disables archiving
	Clock     application.Clock
	Log       *slog.Logger

	// Workers caps how many analyzer processes run at once; excess
	// submissions queue on the semaphore. JobTimeout bounds one execution.
	Workers    int64
	JobTimeout time.Duration

	// Optional observer hooks, e.g. metrics counters.
	OnRunStarted  func()
	OnRunFinished func(failed bool)

	semOnce sync.Once
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
}

// UploadedFile is one file posted with a scan request; Name may contain
// nested directories relative to the run workspace.
type UploadedFile struct {
	Name string
	Data []byte
}

// TriggerCommand describes a scan or inventory submission.
type TriggerCommand struct {
	Type     domain.RunType
	Path     string
	Depth    int
	LogLevel string
	EnvFile  string
	Files    []UploadedFile // scan only
}

// Trigger authorizes the target, registers a pending run and schedules the
// analyzer asynchronously. It returns immediately; callers observe the
// outcome by polling.
func (s *Service) Trigger(ctx context.Context, cmd TriggerCommand) (*domain.Run, error) {
	if !cmd.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrWrongRunType, cmd.Type)
	}

	pref, err := s.Prefs.Load()
	if err != nil {
		s.Log.WarnContext(ctx, "preference load failed, using defaults", "err", err)
	}

	id := domain.RunID(uuid.New().String())
	runDir := filepath.Dir(s.Results.ReportPath(id, cmd.Type))
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run workspace: %w", err)
	}

	target, reportedPath, err := s.resolveTarget(cmd, pref, runDir)
	if err != nil {
		return nil, err
	}

	depth := cmd.Depth
	if depth <= 0 {
		depth = pref.Depth
	}
	logLevel := cmd.LogLevel
	if logLevel == "" {
		logLevel = pref.LogLevel
	}

	inv := domain.Invocation{
		Type:       cmd.Type,
		Target:     target,
		OutputPath: s.Results.ReportPath(id, cmd.Type),
		Depth:      depth,
		LogLevel:   logLevel,
		Ruleset:    pref.Ruleset,
		EnvFile:    s.Prefs.EnvFilePath(cmd.EnvFile),
	}

	run := &domain.Run{
		ID:      id,
		Type:    cmd.Type,
		Created: s.Clock.Now().UTC(),
		Status:  domain.StatusPending,
		Path:    reportedPath,
	}
	if err := s.Registry.Create(ctx, run); err != nil {
		return nil, err
	}

	if s.OnRunStarted != nil {
		s.OnRunStarted()
	}
	s.submit(run.ID, inv)
	return run, nil
}

// resolveTarget decides what to analyze: uploaded files materialized under
// the run workspace, or a guard-checked path inside the sandbox.
func (s *Service) resolveTarget(cmd TriggerCommand, pref domain.Preferences, runDir string) (string, string, error) {
	if len(cmd.Files) > 0 {
		for _, f := range cmd.Files {
			dest := filepath.Join(runDir, filepath.Clean(f.Name))
			if dest != runDir && !strings.HasPrefix(dest, runDir+string(filepath.Separator)) {
				return "", "", fmt.Errorf("%w: upload %s", workspace.ErrPathEscape, f.Name)
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return "", "", err
			}
			if err := os.WriteFile(dest, f.Data, 0o644); err != nil {
				return "", "", err
			}
		}
		reported := cmd.Path
		if reported == "" {
			reported = "."
		}
		return runDir, reported, nil
	}

	raw := cmd.Path
	if raw == "" {
		raw = pref.SourcePath
	}
	if raw == "" {
		raw = "."
	}
	target, err := s.Guard.Resolve(raw)
	if err != nil {
		return "", "", err
	}
	return target, raw, nil
}

// submit hands the invocation to the bounded dispatcher pool. The goroutine
// queues on the semaphore, so Trigger itself never blocks on a busy pool.
func (s *Service) submit(id domain.RunID, inv domain.Invocation) {
	s.semOnce.Do(func() {
		workers := s.Workers
		if workers <= 0 {
			workers = 4
		}
		s.sem = semaphore.NewWeighted(workers)
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// detached from the request: the job outlives the HTTP call
		ctx := context.Background()
		if err := s.sem.Acquire(ctx, 1); err != nil {
			s.finish(ctx, id, inv, domain.ExecResult{ExitCode: -1}, err, false)
			return
		}
		defer s.sem.Release(1)

		jobCtx := ctx
		if s.JobTimeout > 0 {
			var cancel context.CancelFunc
			jobCtx, cancel = context.WithTimeout(ctx, s.JobTimeout)
			defer cancel()
		}

		res, err := s.Runner.Run(jobCtx, inv)
		s.finish(ctx, id, inv, res, err, jobCtx.Err() == context.DeadlineExceeded)
	}()
}

// finish reconciles one execution outcome into the registry. It must never
// panic or propagate errors: a failed bookkeeping step is logged only.
func (s *Service) finish(ctx context.Context, id domain.RunID, inv domain.Invocation, res domain.ExecResult, err error, timedOut bool) {
	if s.OnRunFinished != nil {
		defer func() { s.OnRunFinished(timedOut || err != nil || res.ExitCode != 0) }()
	}
	switch {
	case timedOut:
		s.Log.ErrorContext(ctx, "analyzer timed out", "run_id", id, "timeout", s.JobTimeout)
		s.recordDiagnostic(ctx, id, "timeout", res, fmt.Sprintf("killed after %s", s.JobTimeout))
		s.setStatus(ctx, id, domain.StatusError)

	case err != nil:
		s.Log.ErrorContext(ctx, "analyzer launch failed", "run_id", id, "err", err)
		s.recordDiagnostic(ctx, id, "launch", res, err.Error())
		s.setStatus(ctx, id, domain.StatusError)

	case res.ExitCode != 0:
		s.Log.ErrorContext(ctx, "analyzer failed", "run_id", id, "exit_code", res.ExitCode)
		s.recordDiagnostic(ctx, id, "exec", res, fmt.Sprintf("exit code %d", res.ExitCode))
		s.setStatus(ctx, id, domain.StatusError)

	default:
		s.setStatus(ctx, id, domain.StatusDone)
		s.archive(ctx, id, inv)
	}
}

func (s *Service) setStatus(ctx context.Context, id domain.RunID, st domain.Status) {
	if err := s.Registry.SetStatus(ctx, id, st); err != nil {
		s.Log.ErrorContext(ctx, "status update failed", "run_id", id, "status", st, "err", err)
	}
}

func (s *Service) recordDiagnostic(ctx context.Context, id domain.RunID, phase string, res domain.ExecResult, msg string) {
	if s.Diags == nil {
		return
	}
	diag := &runerrors.Diagnostic{
		RunID:     string(id),
		Phase:     phase,
		ExitCode:  res.ExitCode,
		Message:   msg,
		Output:    string(res.Output),
		CreatedAt: s.Clock.Now().UTC(),
	}
	if err := s.Diags.Save(ctx, diag); err != nil {
		s.Log.ErrorContext(ctx, "diagnostic save failed", "run_id", id, "err", err)
	}
}

func (s *Service) archive(ctx context.Context, id domain.RunID, inv domain.Invocation) {
	if s.Artifacts == nil {
		return
	}
	key := fmt.Sprintf("%s/%s", id, filepath.Base(inv.OutputPath))
	if _, err := s.Artifacts.Upload(ctx, inv.OutputPath, key); err != nil {
		// archive is best effort, the run already succeeded
		s.Log.WarnContext(ctx, "report archive failed", "run_id", id, "err", err)
	}
}

// Wait blocks until every scheduled job has finished. Used on shutdown and
// by tests.
func (s *Service) Wait() {
	s.wg.Wait()
}

//
// ==== READ SIDE ====
//

// List returns all runs in insertion order.
func (s *Service) List(ctx context.Context) ([]*domain.Run, error) {
	return s.Registry.List(ctx)
}

// Result returns a run and its report; pending=true while the analyzer has
// not produced the report file yet.
func (s *Service) Result(ctx context.Context, id domain.RunID) (*domain.Run, *domain.Report, bool, error) {
	run, err := s.Registry.Lookup(ctx, id)
	if err != nil {
		return nil, nil, false, err
	}
	rep, pending, err := s.Results.Load(run.ID, run.Type)
	if err != nil {
		return nil, nil, false, err
	}
	return run, rep, pending, nil
}

// LastResult returns the most recent run, optionally restricted to one
// type, along with its report when available. No runs yields (nil, nil).
func (s *Service) LastResult(ctx context.Context, typeFilter domain.RunType) (*domain.Run, *domain.Report, error) {
	list, err := s.Registry.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	var latest *domain.Run
	for _, run := range list {
		if typeFilter != "" && run.Type != typeFilter {
			continue
		}
		if latest == nil || run.Created.After(latest.Created) {
			latest = run
		}
	}
	if latest == nil {
		return nil, nil, nil
	}

	rep, pending, err := s.Results.Load(latest.ID, latest.Type)
	if err != nil || pending {
		// a missing or unreadable report never hides the run itself
		return latest, nil, nil
	}
	return latest, rep, nil
}

// HistoryEntry is one run plus its embedded report, if already written.
type HistoryEntry struct {
	Type        domain.RunType  `json:"type"`
	Date        time.Time       `json:"date"`
	ScannedPath string          `json:"scanned_path,omitempty"`
	Errors      any             `json:"errors"`
	Run         *domain.Run     `json:"run"`
	Report      *domain.Report  `json:"report"`
}

// History returns every run with its report embedded where available.
func (s *Service) History(ctx context.Context) ([]HistoryEntry, error) {
	list, err := s.Registry.List(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(list))
	for _, run := range list {
		entry := HistoryEntry{Type: run.Type, Date: run.Created, Run: run}
		rep, pending, err := s.Results.Load(run.ID, run.Type)
		if err == nil && !pending {
			entry.Report = rep
			entry.ScannedPath = rep.ScannedPath
			if len(rep.Errors) > 0 {
				entry.Errors = rep.Errors
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Criteria are the findings filter predicates. Provided criteria combine
// with AND; absent ones are not applied.
type Criteria struct {
	Severity  string
	OwaspID   string
	Component string
}

func (c Criteria) matches(f domain.Finding) bool {
	if c.Severity != "" && f.Severity() != c.Severity {
		return false
	}
	if c.OwaspID != "" && !strings.Contains(f.OwaspID(), c.OwaspID) {
		return false
	}
	if c.Component != "" && !strings.Contains(f.Location(), c.Component) {
		return false
	}
	return true
}

// FilterFindings loads a scan report and returns the findings matching the
// criteria. An empty criteria set returns the findings unchanged.
func (s *Service) FilterFindings(ctx context.Context, id domain.RunID, c Criteria) (*domain.Report, []domain.Finding, bool, error) {
	run, rep, pending, err := s.Result(ctx, id)
	if err != nil {
		return nil, nil, false, err
	}
	if pending {
		return nil, nil, true, nil
	}
	if run.Type != domain.TypeScan {
		return nil, nil, false, fmt.Errorf("%w: not a scan run", domain.ErrWrongRunType)
	}

	if c == (Criteria{}) {
		return rep, rep.Findings, false, nil
	}
	filtered := make([]domain.Finding, 0, len(rep.Findings))
	for _, f := range rep.Findings {
		if c.matches(f) {
			filtered = append(filtered, f)
		}
	}
	return rep, filtered, false, nil
}

// Subgraph extracts the bounded neighborhood of one node from an inventory
// run's graph. Depth bounds are enforced at the transport layer.
func (s *Service) Subgraph(ctx context.Context, id domain.RunID, node string, depth int) (*domain.Graph, bool, error) {
	run, rep, pending, err := s.Result(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if pending {
		return nil, true, nil
	}
	if run.Type != domain.TypeInventory {
		return nil, false, fmt.Errorf("%w: not an inventory run", domain.ErrWrongRunType)
	}
	if rep.Graph == nil {
		return nil, false, fmt.Errorf("%w: missing graph", domain.ErrMalformedReport)
	}

	sub := rep.Graph.Neighborhood(node, depth)
	return &sub, false, nil
}
