package workspace_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lintai-dev/lintai-server/internal/workspace"
)

func newGuard(t *testing.T) (*workspace.Guard, string) {
	t.Helper()
	root := t.TempDir()
	g, err := workspace.NewGuard(root)
	require.NoError(t, err)
	return g, g.Root()
}

func TestNewGuard_MissingRoot(t *testing.T) {
	_, err := workspace.NewGuard(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestResolve_Inside(t *testing.T) {
	g, root := newGuard(t)

	p, err := g.Resolve("src/app.py")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "src", "app.py"), p)
}

func TestResolve_Root(t *testing.T) {
	g, root := newGuard(t)

	p, err := g.Resolve(".")
	require.NoError(t, err)
	require.Equal(t, root, p)
}

func TestResolve_Escape(t *testing.T) {
	g, _ := newGuard(t)

	cases := []string{
		"../outside",
		"../../etc/passwd",
		"src/../../other",
		"/etc/passwd",
	}
	for _, input := range cases {
		_, err := g.Resolve(input)
		require.ErrorIs(t, err, workspace.ErrPathEscape, "input %q", input)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	g, _ := newGuard(t)

	first, err := g.Resolve("pkg/mod")
	require.NoError(t, err)
	second, err := g.Resolve(first)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestResolve_SiblingPrefix(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(root+"-evil", 0o755))
	g, err := workspace.NewGuard(root)
	require.NoError(t, err)

	// a sibling dir sharing the root as a string prefix is still outside
	_, err = g.Resolve(root + "-evil")
	require.ErrorIs(t, err, workspace.ErrPathEscape)
}

func TestListDir(t *testing.T) {
	g, root := newGuard(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.py"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte("x"), 0o644))

	cwd, entries, err := g.ListDir("")
	require.NoError(t, err)
	require.Empty(t, cwd)
	require.Len(t, entries, 2)
	require.Equal(t, "main.py", entries[0].Name)
	require.False(t, entries[0].Dir)
	require.Equal(t, "src", entries[1].Name)
	require.True(t, entries[1].Dir)
}

func TestListDir_Subdir(t *testing.T) {
	g, root := newGuard(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "pkg"), 0o755))

	cwd, entries, err := g.ListDir("src")
	require.NoError(t, err)
	require.Equal(t, "src", cwd)
	require.Len(t, entries, 1)
	require.Equal(t, filepath.Join("src", "pkg"), entries[0].Path)
}

func TestListDir_Escape(t *testing.T) {
	g, _ := newGuard(t)

	_, _, err := g.ListDir("..")
	require.ErrorIs(t, err, workspace.ErrPathEscape)
}

func TestListDir_NotADirectory(t *testing.T) {
	g, root := newGuard(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "file.txt"), []byte("x"), 0o644))

	_, _, err := g.ListDir("file.txt")
	require.Error(t, err)
}
