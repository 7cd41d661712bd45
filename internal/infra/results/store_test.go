package results_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/lintai-dev/lintai-server/internal/domain/runs"
	"github.com/lintai-dev/lintai-server/internal/infra/results"
)

func newStore(t *testing.T) (*results.Store, string) {
	t.Helper()
	dir := t.TempDir()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 4}))
	return results.New(dir, log), dir
}

func writeReport(t *testing.T, store *results.Store, id domain.RunID, typ domain.RunType, body string) {
	t.Helper()
	_, err := store.EnsureRunDir(id)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.ReportPath(id, typ), []byte(body), 0o644))
}

func TestReportPath_Deterministic(t *testing.T) {
	store, dir := newStore(t)

	require.Equal(t,
		filepath.Join(dir, "r1", "scan_report.json"),
		store.ReportPath("r1", domain.TypeScan))
	require.Equal(t,
		filepath.Join(dir, "r1", "inventory.json"),
		store.ReportPath("r1", domain.TypeInventory))
}

func TestLoad_PendingWhenMissing(t *testing.T) {
	store, _ := newStore(t)

	rep, pending, err := store.Load("r1", domain.TypeScan)
	require.NoError(t, err)
	require.True(t, pending)
	require.Nil(t, rep)
}

func TestLoad_Scan(t *testing.T) {
	store, _ := newStore(t)
	writeReport(t, store, "r1", domain.TypeScan,
		`{"findings":[{"severity":"HIGH","owasp_id":"LLM01"}],"scanned_path":"src"}`)

	rep, pending, err := store.Load("r1", domain.TypeScan)
	require.NoError(t, err)
	require.False(t, pending)
	require.Len(t, rep.Findings, 1)
	require.Equal(t, "HIGH", rep.Findings[0].Severity())
	require.Equal(t, "src", rep.ScannedPath)
}

func TestLoad_ScanEmptyFindings(t *testing.T) {
	store, _ := newStore(t)
	writeReport(t, store, "r1", domain.TypeScan, `{"findings":[]}`)

	rep, pending, err := store.Load("r1", domain.TypeScan)
	require.NoError(t, err)
	require.False(t, pending)
	require.NotNil(t, rep.Findings)
	require.Empty(t, rep.Findings)
}

func TestLoad_ScanMissingFindings(t *testing.T) {
	store, _ := newStore(t)
	writeReport(t, store, "r1", domain.TypeScan, `{"scanned_path":"src"}`)

	_, _, err := store.Load("r1", domain.TypeScan)
	require.ErrorIs(t, err, domain.ErrMalformedReport)
}

func TestLoad_InvalidJSON(t *testing.T) {
	store, _ := newStore(t)
	writeReport(t, store, "r1", domain.TypeScan, `{broken`)

	_, _, err := store.Load("r1", domain.TypeScan)
	require.ErrorIs(t, err, domain.ErrMalformedReport)
}

func TestLoad_Inventory(t *testing.T) {
	store, _ := newStore(t)
	writeReport(t, store, "r1", domain.TypeInventory,
		`{"graph":{"nodes":[{"id":"A"}],"edges":[]}}`)

	rep, pending, err := store.Load("r1", domain.TypeInventory)
	require.NoError(t, err)
	require.False(t, pending)
	require.NotNil(t, rep.Graph)
	require.Len(t, rep.Graph.Nodes, 1)
}

// inventory reports carry no findings, that is not malformed
func TestLoad_InventoryWithoutFindings(t *testing.T) {
	store, _ := newStore(t)
	writeReport(t, store, "r1", domain.TypeInventory, `{"graph":{"nodes":[],"edges":[]}}`)

	_, pending, err := store.Load("r1", domain.TypeInventory)
	require.NoError(t, err)
	require.False(t, pending)
}

func TestLoad_RewritesLocationsInsideRunDir(t *testing.T) {
	store, _ := newStore(t)
	runDir := store.RunDir("r1")
	inside := filepath.Join(runDir, "src", "app.py")
	outside := "/somewhere/else/app.py"

	writeReport(t, store, "r1", domain.TypeScan,
		`{"findings":[`+
			`{"location":"`+inside+`"},`+
			`{"location":"`+outside+`"},`+
			`{"severity":"LOW"}]}`)

	rep, _, err := store.Load("r1", domain.TypeScan)
	require.NoError(t, err)
	require.Equal(t, filepath.Join("src", "app.py"), rep.Findings[0].Location())
	// outside paths are left untouched
	require.Equal(t, outside, rep.Findings[1].Location())
	// findings without a location stay as they are
	require.Empty(t, rep.Findings[2].Location())
}

func TestAnalysisRoundTrip(t *testing.T) {
	store, _ := newStore(t)

	_, pending, err := store.LoadAnalysis("r1")
	require.NoError(t, err)
	require.True(t, pending)

	require.NoError(t, store.SaveAnalysis("r1", []byte(`{"themes":[]}`)))

	data, pending, err := store.LoadAnalysis("r1")
	require.NoError(t, err)
	require.False(t, pending)
	require.JSONEq(t, `{"themes":[]}`, string(data))
}
