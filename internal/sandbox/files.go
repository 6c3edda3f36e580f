package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// ListDir lists the direct entries of a directory, sorted by name.
// Directories are prefixed with "[d] ", everything else with four spaces.
func (s *Sandbox) ListDir(p string) (string, error) {
	if p == "" {
		p = "."
	}
	abs, err := s.Resolve(p)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", statError(p, err)
	}
	if !fi.IsDir() {
		return "", ToolError{Code: CodeNotADirectory, Message: fmt.Sprintf("not a directory: %s", p)}
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return "", ToolError{Code: CodeExecution, Message: err.Error()}
	}
	if len(entries) == 0 {
		return "(empty directory)", nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		prefix := "    "
		if e.IsDir() {
			prefix = "[d] "
		}
		lines = append(lines, prefix+e.Name())
	}
	return strings.Join(lines, "\n"), nil
}

// ReadFile returns the contents of a UTF-8 text file.
func (s *Sandbox) ReadFile(p string) (string, error) {
	abs, err := s.Resolve(p)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", statError(p, err)
	}
	if fi.IsDir() {
		return "", ToolError{Code: CodeNotAFile, Message: fmt.Sprintf("not a file: %s", p)}
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return "", ToolError{Code: CodeExecution, Message: err.Error()}
	}
	if !utf8.Valid(b) {
		return "", ToolError{Code: CodeDecode, Message: fmt.Sprintf("cannot read %s: not a text file", p)}
	}
	return string(b), nil
}

// WriteFile replaces the file at p with content, creating parent directories
// as needed. The data is written to a temporary file in the target directory
// and renamed into place, so readers never observe a partial file.
func (s *Sandbox) WriteFile(p, content string) (int, error) {
	abs, err := s.Resolve(p)
	if err != nil {
		return 0, err
	}
	if fi, err := os.Stat(abs); err == nil && fi.IsDir() {
		return 0, ToolError{Code: CodeNotAFile, Message: fmt.Sprintf("not a file: %s", p)}
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, ToolError{Code: CodeExecution, Message: err.Error()}
	}
	tmp, err := os.CreateTemp(dir, ".graft-write-*")
	if err != nil {
		return 0, ToolError{Code: CodeExecution, Message: err.Error()}
	}
	defer os.Remove(tmp.Name())

	n, err := tmp.WriteString(content)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, ToolError{Code: CodeExecution, Message: err.Error()}
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return 0, ToolError{Code: CodeExecution, Message: err.Error()}
	}
	if err := os.Rename(tmp.Name(), abs); err != nil {
		return 0, ToolError{Code: CodeExecution, Message: err.Error()}
	}
	return n, nil
}

func statError(p string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return ToolError{Code: CodeNotFound, Message: fmt.Sprintf("not found: %s", p)}
	}
	return ToolError{Code: CodeExecution, Message: err.Error()}
}
