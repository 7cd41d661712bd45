package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lintai-dev/lintai-server/internal/domain/ai"
	domain "github.com/lintai-dev/lintai-server/internal/domain/runs"
)

// Analyses stores AI output next to the run it belongs to.
type Analyses interface {
	SaveAnalysis(id domain.RunID, result []byte) error
	LoadAnalysis(id domain.RunID) ([]byte, bool, error)
}

// Service runs AI analysis over completed scan reports.
type Service struct {
	Client   ai.Client
	Registry domain.Registry
	Results  domain.Results
	Store    Analyses
	Log      *slog.Logger
}

// AnalyzeRun sends a scan run's findings to the AI client and persists the
// returned JSON beside the report. Pending runs yield pending=true.
func (s *Service) AnalyzeRun(ctx context.Context, id domain.RunID) (json.RawMessage, bool, error) {
	run, err := s.Registry.Lookup(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if run.Type != domain.TypeScan {
		return nil, false, fmt.Errorf("%w: not a scan run", domain.ErrWrongRunType)
	}

	rep, pending, err := s.Results.Load(run.ID, run.Type)
	if err != nil {
		return nil, false, err
	}
	if pending {
		return nil, true, nil
	}

	digest, err := json.Marshal(rep.Findings)
	if err != nil {
		return nil, false, err
	}
	result, err := s.Client.Analyze(ctx, string(digest))
	if err != nil {
		return nil, false, err
	}

	raw := json.RawMessage(result)
	if !json.Valid(raw) {
		return nil, false, fmt.Errorf("ai returned invalid JSON for run %s", id)
	}
	if err := s.Store.SaveAnalysis(id, raw); err != nil {
		s.Log.WarnContext(ctx, "analysis save failed", "run_id", id, "err", err)
	}
	return raw, false, nil
}

// Analysis returns the stored analysis for a run, pending=true if none has
// been produced yet.
func (s *Service) Analysis(ctx context.Context, id domain.RunID) (json.RawMessage, bool, error) {
	if _, err := s.Registry.Lookup(ctx, id); err != nil {
		return nil, false, err
	}
	data, pending, err := s.Store.LoadAnalysis(id)
	return json.RawMessage(data), pending, err
}
