package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lintai-dev/lintai-server/internal/config"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "lintai", cfg.Analyzer.Binary)
	require.Equal(t, "file", cfg.Registry.Driver)
	require.Equal(t, 4, cfg.Dispatcher.Workers)
	require.Equal(t, 900, cfg.Dispatcher.JobTimeoutSeconds)
	require.Contains(t, cfg.Server.AllowedOrigins, "http://localhost:5173")
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  port: 9090
workspace:
  root: /ws
dispatcher:
  workers: 8
registry:
  driver: postgres
database:
  host: db
  port: 5432
  user: lintai
  password: secret
  name: runs
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "/ws", cfg.Workspace.Root)
	require.Equal(t, 8, cfg.Dispatcher.Workers)
	require.Equal(t, "postgres", cfg.Registry.Driver)
	require.Equal(t,
		"host=db port=5432 user=lintai password=secret dbname=runs sslmode=disable",
		cfg.PostgresDSN())
}

func TestLoad_EnvOverridesRoot(t *testing.T) {
	t.Setenv("LINTAI_SRC_CODE_ROOT", "/env/ws")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, "/env/ws", cfg.Workspace.Root)
}

func TestMySQLDSN(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	cfg.Database.Host = "db"
	cfg.Database.Port = 3306
	cfg.Database.User = "u"
	cfg.Database.Password = "p"
	cfg.Database.Name = "runs"

	require.Equal(t, "u:p@tcp(db:3306)/runs?parseTime=true&charset=utf8mb4&loc=UTC", cfg.MySQLDSN())
}
