package results

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	domain "github.com/lintai-dev/lintai-server/internal/domain/runs"
)

const (
	scanReportName      = "scan_report.json"
	inventoryReportName = "inventory.json"
	analysisName        = "analysis.json"
)

// Store maps (run id, run type) to report files under a fixed data
// directory: one subdirectory per run id, one fixed filename per type.
// The same path is handed to the analyzer for writing and used for reads.
type Store struct {
	dataDir string
	log     *slog.Logger
}

func New(dataDir string, log *slog.Logger) *Store {
	return &Store{dataDir: dataDir, log: log}
}

// RunDir returns the per-run subdirectory.
func (s *Store) RunDir(id domain.RunID) string {
	return filepath.Join(s.dataDir, string(id))
}

// EnsureRunDir creates the per-run subdirectory.
func (s *Store) EnsureRunDir(id domain.RunID) (string, error) {
	dir := s.RunDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func (s *Store) ReportPath(id domain.RunID, t domain.RunType) string {
	name := scanReportName
	if t == domain.TypeInventory {
		name = inventoryReportName
	}
	return filepath.Join(s.RunDir(id), name)
}

// Load reads a report. A missing file means the job is still running and
// yields pending=true, not an error. Scan findings get their location
// rewritten relative to the run directory before being returned.
func (s *Store) Load(id domain.RunID, t domain.RunType) (*domain.Report, bool, error) {
	data, err := os.ReadFile(s.ReportPath(id, t))
	if os.IsNotExist(err) {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	var rep domain.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrMalformedReport, err)
	}

	if t == domain.TypeScan {
		if rep.Findings == nil {
			return nil, false, fmt.Errorf("%w: missing findings", domain.ErrMalformedReport)
		}
		s.rewriteLocations(id, rep.Findings)
	}
	return &rep, false, nil
}

// rewriteLocations makes finding locations relative to the run's own
// subdirectory when they point inside it. Anything unparsable or outside
// is left untouched; one bad record never fails the whole read.
func (s *Store) rewriteLocations(id domain.RunID, findings []domain.Finding) {
	base, err := filepath.Abs(s.RunDir(id))
	if err != nil {
		return
	}
	for _, f := range findings {
		loc := f.Location()
		if loc == "" {
			continue
		}
		abs, err := filepath.Abs(loc)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(base, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		f.SetLocation(rel)
	}
}

// SaveAnalysis stores an AI analysis artifact next to the run's report.
func (s *Store) SaveAnalysis(id domain.RunID, result []byte) error {
	dir, err := s.EnsureRunDir(id)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, analysisName), result, 0o644)
}

// LoadAnalysis returns the stored analysis, or pending=true if none exists.
func (s *Store) LoadAnalysis(id domain.RunID) ([]byte, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.RunDir(id), analysisName))
	if os.IsNotExist(err) {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, false, nil
}
