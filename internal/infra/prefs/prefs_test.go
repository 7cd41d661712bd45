package prefs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/lintai-dev/lintai-server/internal/domain/runs"
	"github.com/lintai-dev/lintai-server/internal/infra/prefs"
)

func newStore(t *testing.T) (*prefs.Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := prefs.New(dir)
	require.NoError(t, err)
	return s, dir
}

func TestLoad_Defaults(t *testing.T) {
	s, _ := newStore(t)

	p, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, ".", p.SourcePath)
	require.Equal(t, 2, p.Depth)
	require.Equal(t, "INFO", p.LogLevel)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s, _ := newStore(t)

	in := domain.Preferences{
		SourcePath: "services/api",
		Depth:      4,
		LogLevel:   "DEBUG",
		Ruleset:    "custom.yaml",
	}
	require.NoError(t, s.Save(in))

	out, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestEnvFilePath_Priority(t *testing.T) {
	s, dir := newStore(t)

	// nothing configured
	require.Empty(t, s.EnvFilePath(""))

	// stored config env is the last fallback
	require.NoError(t, s.WriteEnv(map[string]string{"FOO": "bar"}))
	require.Equal(t, filepath.Join(dir, "config.env"), s.EnvFilePath(""))

	// secrets env wins over config env
	require.NoError(t, s.WriteSecrets(map[string]string{"OPENAI_API_KEY": "sk-x"}))
	require.Equal(t, filepath.Join(dir, "secrets.env"), s.EnvFilePath(""))

	// configured preference wins over stored files
	require.NoError(t, s.Save(domain.Preferences{EnvFile: "/custom/.env"}))
	require.Equal(t, "/custom/.env", s.EnvFilePath(""))

	// explicit request value wins over everything
	require.Equal(t, "/explicit/.env", s.EnvFilePath("/explicit/.env"))
}

func TestReadEnv_ScrubsSecrets(t *testing.T) {
	s, _ := newStore(t)

	require.NoError(t, s.WriteEnv(map[string]string{
		"LINTAI_MAX_LLM_TOKENS": "5000",
		"OPENAI_API_KEY":        "sk-oops",
	}))

	values, err := s.ReadEnv()
	require.NoError(t, err)
	require.Equal(t, "5000", values["LINTAI_MAX_LLM_TOKENS"])
	require.NotContains(t, values, "OPENAI_API_KEY")
}

func TestReadEnv_MissingFile(t *testing.T) {
	s, _ := newStore(t)

	values, err := s.ReadEnv()
	require.NoError(t, err)
	require.Empty(t, values)
}

func TestWriteEnv_SkipsEmptyValues(t *testing.T) {
	s, _ := newStore(t)

	require.NoError(t, s.WriteEnv(map[string]string{"A": "1", "B": ""}))

	values, err := s.ReadEnv()
	require.NoError(t, err)
	require.Equal(t, map[string]string{"A": "1"}, values)
}

func TestSecretsFile_Permissions(t *testing.T) {
	s, dir := newStore(t)

	require.NoError(t, s.WriteSecrets(map[string]string{"LLM_API_KEY": "x"}))

	info, err := os.Stat(filepath.Join(dir, "secrets.env"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
