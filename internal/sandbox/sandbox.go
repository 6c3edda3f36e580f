// Package sandbox confines file and shell access to a single root directory.
//
// Every path is joined to the root, canonicalized (symlinks and ".."
// resolved) and only then checked against the root. A root that is itself a
// symlink is resolved once in New and trusted from then on.
package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultShellTimeout bounds shell_exec wall-clock time.
const DefaultShellTimeout = 30 * time.Second

// Sandbox is bound to one canonical root.
type Sandbox struct {
	root         string
	shellTimeout time.Duration
}

// Option configures a Sandbox.
type Option func(*Sandbox)

// WithShellTimeout overrides DefaultShellTimeout.
func WithShellTimeout(d time.Duration) Option {
	return func(s *Sandbox) { s.shellTimeout = d }
}

// New resolves root to an absolute, symlink-free directory path.
func New(root string, opts ...Option) (*Sandbox, error) {
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("sandbox: getwd: %w", err)
		}
		root = cwd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("sandbox: abs(%s): %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("sandbox: resolve root: %w", err)
	}
	fi, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("sandbox: stat root: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("sandbox: root %s is not a directory", resolved)
	}
	s := &Sandbox{root: resolved, shellTimeout: DefaultShellTimeout}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Root returns the canonical root.
func (s *Sandbox) Root() string { return s.root }

// Resolve maps p to a canonical absolute path inside the root.
// Absolute inputs are accepted when they canonicalize into the root.
func (s *Sandbox) Resolve(p string) (string, error) {
	candidate := p
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(s.root, candidate)
	}
	candidate = filepath.Clean(candidate)

	resolved, err := canonical(candidate)
	if err != nil {
		return "", err
	}

	// Boundary check using filepath.Rel (robust against partial prefix matches)
	rel, err := filepath.Rel(s.root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", violation("access denied: path resolves outside the sandbox root")
	}
	return resolved, nil
}

// canonical resolves symlinks in path. When the leaf (or several trailing
// components) do not exist yet, the deepest existing ancestor is resolved and
// the missing tail rejoined, which still reveals escapes via symlinked parents.
func canonical(path string) (string, error) {
	existing := path
	var tail []string
	for {
		r, err := filepath.EvalSymlinks(existing)
		if err == nil {
			return filepath.Join(append([]string{r}, tail...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", ToolError{Code: CodeExecution, Message: err.Error()}
		}
		if _, lerr := os.Lstat(existing); lerr == nil {
			// exists but cannot be followed: a dangling symlink
			return "", violation("access denied: unresolvable symlink")
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return path, nil
		}
		tail = append([]string{filepath.Base(existing)}, tail...)
		existing = parent
	}
}
