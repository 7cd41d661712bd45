package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	domain "github.com/lintai-dev/lintai-server/internal/domain/runs"
)

const (
	prefsName     = "config.json"
	configEnvName = "config.env"
	secretEnvName = "secrets.env"
)

// secretKeys are write-only: they never come back out through ReadEnv,
// even when a user pasted them into the non-secret env by mistake.
var secretKeys = []string{
	"LLM_API_KEY",
	"OPENAI_API_KEY",
	"AZURE_OPENAI_API_KEY",
	"ANTHROPIC_API_KEY",
	"GOOGLE_API_KEY",
	"COHERE_API_KEY",
}

// Store persists UI preferences and env files under the server data
// directory. It backs the PreferenceStore port; the preference data itself
// is owned by the UI, this server just reads defaults from it.
type Store struct {
	mu  sync.Mutex
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create prefs dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) prefsPath() string     { return filepath.Join(s.dir, prefsName) }
func (s *Store) configEnvPath() string { return filepath.Join(s.dir, configEnvName) }
func (s *Store) secretEnvPath() string { return filepath.Join(s.dir, secretEnvName) }

func defaults() domain.Preferences {
	return domain.Preferences{
		SourcePath: ".",
		Depth:      2,
		LogLevel:   "INFO",
	}
}

func (s *Store) Load() (domain.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.prefsPath())
	if os.IsNotExist(err) {
		return defaults(), nil
	}
	if err != nil {
		return defaults(), err
	}
	p := defaults()
	if err := json.Unmarshal(data, &p); err != nil {
		return defaults(), fmt.Errorf("parse %s: %w", prefsName, err)
	}
	return p, nil
}

func (s *Store) Save(p domain.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.prefsPath(), data, 0o644)
}

// EnvFilePath picks the env file handed to the analyzer, in priority
// order: explicit request value, configured preference, stored secrets
// env, stored config env, none.
func (s *Store) EnvFilePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p, err := s.Load(); err == nil && p.EnvFile != "" {
		return p.EnvFile
	}
	if _, err := os.Stat(s.secretEnvPath()); err == nil {
		return s.secretEnvPath()
	}
	if _, err := os.Stat(s.configEnvPath()); err == nil {
		return s.configEnvPath()
	}
	return ""
}

// ReadEnv returns the non-secret env values, with secret keys scrubbed.
func (s *Store) ReadEnv() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string)
	data, err := os.ReadFile(s.configEnvPath())
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	for _, k := range secretKeys {
		delete(out, k)
	}
	return out, nil
}

func (s *Store) WriteEnv(values map[string]string) error {
	return s.writeEnvFile(s.configEnvPath(), values)
}

func (s *Store) WriteSecrets(values map[string]string) error {
	return s.writeEnvFile(s.secretEnvPath(), values)
}

func (s *Store) writeEnvFile(path string, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(values))
	for k := range values {
		if values[k] == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, values[k])
	}
	// keys may be credentials, keep the file private
	return os.WriteFile(path, []byte(b.String()), 0o600)
}
