package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrPathEscape indicates a user-supplied path that resolves outside the
// sandbox root.
var ErrPathEscape = errors.New("path escapes workspace root")

// Guard validates that any user-supplied path resolves inside a fixed
// sandbox root. It does not follow symlinks beyond filepath's own
// canonicalization.
type Guard struct {
	root string
}

func NewGuard(root string) (*Guard, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("workspace root %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %q is not a directory", root)
	}
	return &Guard{root: filepath.Clean(abs)}, nil
}

// Root returns the sandbox root.
func (g *Guard) Root() string { return g.root }

// Resolve expands and canonicalizes input relative to the root and fails
// with ErrPathEscape if the result leaves it. Resolving an already-canonical
// inside path returns it unchanged.
func (g *Guard) Resolve(input string) (string, error) {
	p := expandHome(input)
	if !filepath.IsAbs(p) {
		p = filepath.Join(g.root, p)
	}
	p = filepath.Clean(p)

	if p != g.root && !strings.HasPrefix(p, g.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, input)
	}
	return p, nil
}

// Entry is one directory listing item, path relative to the root.
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Dir  bool   `json:"dir"`
}

// ListDir lists the non-hidden entries of a directory inside the sandbox.
// The returned cwd is relative to the root, empty for the root itself.
func (g *Guard) ListDir(input string) (string, []Entry, error) {
	if input == "" {
		input = "."
	}
	dir, err := g.Resolve(input)
	if err != nil {
		return "", nil, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", nil, err
	}
	if !info.IsDir() {
		return "", nil, fmt.Errorf("not a directory: %s", input)
	}

	items, err := os.ReadDir(dir)
	if err != nil {
		return "", nil, err
	}
	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		if strings.HasPrefix(it.Name(), ".") {
			continue
		}
		rel, err := filepath.Rel(g.root, filepath.Join(dir, it.Name()))
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Name: it.Name(), Path: rel, Dir: it.IsDir()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	cwd := ""
	if dir != g.root {
		cwd, _ = filepath.Rel(g.root, dir)
	}
	return cwd, entries, nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
