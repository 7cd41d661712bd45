package file_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/lintai-dev/lintai-server/internal/domain/runs"
	"github.com/lintai-dev/lintai-server/internal/infra/registry/file"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

func openRegistry(t *testing.T) (*file.Registry, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.json")
	reg, err := file.Open(path, discard())
	require.NoError(t, err)
	return reg, path
}

func newRun(id string, typ domain.RunType) *domain.Run {
	return &domain.Run{
		ID:      domain.RunID(id),
		Type:    typ,
		Created: time.Now().UTC(),
		Status:  domain.StatusPending,
		Path:    ".",
	}
}

func TestCreateAndLookup(t *testing.T) {
	reg, _ := openRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.Create(ctx, newRun("r1", domain.TypeScan)))

	got, err := reg.Lookup(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, got.Status)
	require.Equal(t, domain.TypeScan, got.Type)
}

func TestCreate_Duplicate(t *testing.T) {
	reg, _ := openRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.Create(ctx, newRun("r1", domain.TypeScan)))
	err := reg.Create(ctx, newRun("r1", domain.TypeInventory))
	require.ErrorIs(t, err, domain.ErrRunExists)
}

func TestLookup_Missing(t *testing.T) {
	reg, _ := openRegistry(t)

	_, err := reg.Lookup(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestSetStatus(t *testing.T) {
	reg, _ := openRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.Create(ctx, newRun("r1", domain.TypeScan)))
	require.NoError(t, reg.Create(ctx, newRun("r2", domain.TypeScan)))

	require.NoError(t, reg.SetStatus(ctx, "r1", domain.StatusDone))

	got, err := reg.Lookup(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusDone, got.Status)

	// other runs untouched
	other, err := reg.Lookup(ctx, "r2")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, other.Status)
}

func TestSetStatus_UnknownRunIsNoop(t *testing.T) {
	reg, _ := openRegistry(t)

	require.NoError(t, reg.SetStatus(context.Background(), "ghost", domain.StatusDone))
}

func TestSetStatus_TerminalIsImmutable(t *testing.T) {
	reg, _ := openRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.Create(ctx, newRun("r1", domain.TypeScan)))
	require.NoError(t, reg.SetStatus(ctx, "r1", domain.StatusError))

	// the illegal move is ignored, not an error
	require.NoError(t, reg.SetStatus(ctx, "r1", domain.StatusDone))

	got, err := reg.Lookup(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusError, got.Status)
}

func TestList_PreservesInsertionOrder(t *testing.T) {
	reg, _ := openRegistry(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, reg.Create(ctx, newRun(id, domain.TypeScan)))
	}

	list, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, domain.RunID("c"), list[0].ID)
	require.Equal(t, domain.RunID("a"), list[1].ID)
	require.Equal(t, domain.RunID("b"), list[2].ID)
}

func TestList_ReturnsCopies(t *testing.T) {
	reg, _ := openRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.Create(ctx, newRun("r1", domain.TypeScan)))

	list, err := reg.List(ctx)
	require.NoError(t, err)
	list[0].Status = domain.StatusDone

	got, err := reg.Lookup(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, got.Status)
}

func TestReopen_RestoresStateAndOrder(t *testing.T) {
	reg, path := openRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.Create(ctx, newRun("r1", domain.TypeScan)))
	require.NoError(t, reg.Create(ctx, newRun("r2", domain.TypeInventory)))
	require.NoError(t, reg.SetStatus(ctx, "r1", domain.StatusDone))

	reopened, err := file.Open(path, discard())
	require.NoError(t, err)

	list, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, domain.RunID("r1"), list[0].ID)
	require.Equal(t, domain.StatusDone, list[0].Status)
	require.Equal(t, domain.RunID("r2"), list[1].ID)
	require.Equal(t, domain.StatusPending, list[1].Status)
}

func TestOpen_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := file.Open(path, discard())
	require.Error(t, err)
}
