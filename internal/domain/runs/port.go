package runs

import "context"

// Registry port (interface untuk persistence).
// Implementations must be durable across restarts and keep insertion order.
type Registry interface {
	// Create appends a new pending record. Fails with ErrRunExists if the
	// id is already registered.
	Create(ctx context.Context, r *Run) error

	// List returns all records in insertion order.
	List(ctx context.Context) ([]*Run, error)

	// SetStatus transitions a pending record to a terminal status.
	// A missing id or an illegal transition is logged and ignored, never
	// returned as an error: completion handlers must not crash the
	// dispatcher.
	SetStatus(ctx context.Context, id RunID, st Status) error

	// Lookup returns the record or ErrRunNotFound.
	Lookup(ctx context.Context, id RunID) (*Run, error)
}

// Invocation describes one external analyzer execution.
type Invocation struct {
	Type       RunType
	Target     string
	OutputPath string
	Depth      int
	LogLevel   string
	Ruleset    string
	EnvFile    string
}

// ExecResult hasil dari Runner.
type ExecResult struct {
	ExitCode   int
	Output     []byte // combined stdout+stderr, tail only
	DurationMS int64
}

// Runner port (interface untuk eksekusi analyzer).
// Exit code 0 means the report file exists at Invocation.OutputPath.
// A non-nil error means the process could not be launched at all.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (ExecResult, error)
}

// Results port: deterministic report locations plus lazy loading.
type Results interface {
	ReportPath(id RunID, t RunType) string

	// Load returns the report, or pending=true while the report file does
	// not exist yet. Pending is a sentinel state, not an error.
	Load(id RunID, t RunType) (rep *Report, pending bool, err error)
}

// ArtifactStore port (interface untuk penyimpanan artefak).
type ArtifactStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}

// Preferences are the analyzer defaults owned by the external preference
// store: default scan path, call depth, log level and optional extras.
type Preferences struct {
	SourcePath string `json:"source_path"`
	Depth      int    `json:"ai_call_depth"`
	LogLevel   string `json:"log_level"`
	Ruleset    string `json:"ruleset,omitempty"`
	EnvFile    string `json:"env_file,omitempty"`
}

// PreferenceStore port. The store itself is an external collaborator; this
// core only reads defaults from it and forwards writes.
type PreferenceStore interface {
	Load() (Preferences, error)
	Save(p Preferences) error

	// EnvFilePath picks the env file handed to the analyzer: an explicit
	// request value wins, then the configured preference, then the stored
	// secret/config env files. Empty means none.
	EnvFilePath(explicit string) string

	ReadEnv() (map[string]string, error)
	WriteEnv(values map[string]string) error
	WriteSecrets(values map[string]string) error
}
