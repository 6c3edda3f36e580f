package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/petasbytes/graft/internal/conversation"
	"github.com/petasbytes/graft/internal/logging"
	"github.com/spf13/afero"
)

const ext = ".json"

var (
	// ErrNotFound is returned for a name with no saved conversation.
	ErrNotFound = errors.New("memory: conversation not found")
	// ErrExists is returned when a rename target is taken.
	ErrExists = errors.New("memory: conversation already exists")
)

// ValidateName rejects names that cannot be used as a single file name.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errors.New("memory: name is empty")
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("memory: name %q must not start with a dot", name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("memory: name %q must not contain path separators", name)
	case len(name) > 200:
		return fmt.Errorf("memory: name is too long (%d bytes)", len(name))
	}
	return nil
}

// SanitizeName turns an arbitrary title into a usable name.
func SanitizeName(s string) string {
	s = strings.TrimSpace(strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '-'
		}
		return r
	}, s))
	if len(s) > 200 {
		s = s[:200]
	}
	if ValidateName(s) != nil {
		return "imported"
	}
	return s
}

// Summary describes one saved conversation. Err is set, and the other
// fields except Name are empty, when the file could not be read.
type Summary struct {
	Name     string
	Modified time.Time
	Messages int
	Model    string
	Err      error
}

// Store keeps conversations as <dir>/<name>.json on fs.
type Store struct {
	fs  afero.Fs
	dir string
	now func() time.Time
}

// NewStore returns a store rooted at dir on fs.
func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir, now: time.Now}
}

// NewOSStore returns a store on the local filesystem.
func NewOSStore(dir string) *Store { return NewStore(afero.NewOsFs(), dir) }

// Dir returns the directory conversations are kept in.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, strings.TrimSuffix(name, ext)+ext)
}

// Path returns the file a conversation named name is saved to.
func (s *Store) Path(name string) string { return s.path(name) }

// Exists reports whether name has been saved.
func (s *Store) Exists(name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	ok, err := afero.Exists(s.fs, s.path(name))
	return err == nil && ok
}

// Save writes c under c.Name, stamping Modified and clearing Unsaved.
func (s *Store) Save(c *conversation.Conversation) error {
	if err := ValidateName(c.Name); err != nil {
		return err
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("memory: mkdir %s: %w", s.dir, err)
	}

	prev := c.Modified
	c.Modified = s.now()
	if c.Created.IsZero() {
		c.Created = c.Modified
	}
	b, err := json.MarshalIndent(toRecord(c), "", "  ")
	if err != nil {
		c.Modified = prev
		return fmt.Errorf("memory: encode %s: %w", c.Name, err)
	}
	if err := s.writeAtomic(s.path(c.Name), b); err != nil {
		c.Modified = prev
		return err
	}
	c.Unsaved = false
	return nil
}

func (s *Store) writeAtomic(path string, b []byte) error {
	tmp, err := afero.TempFile(s.fs, s.dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("memory: temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(name)
		return fmt.Errorf("memory: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(name)
		return fmt.Errorf("memory: close: %w", err)
	}
	if err := s.fs.Chmod(name, 0o644); err != nil {
		_ = s.fs.Remove(name)
		return fmt.Errorf("memory: chmod: %w", err)
	}
	if err := s.fs.Rename(name, path); err != nil {
		_ = s.fs.Remove(name)
		return fmt.Errorf("memory: rename: %w", err)
	}
	return nil
}

// Load reads the conversation saved as name. The result is validated; a
// trailing unanswered tool_use is dropped with a warning and the result
// marked unsaved.
func (s *Store) Load(name string) (*conversation.Conversation, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	b, err := afero.ReadFile(s.fs, s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, fmt.Errorf("memory: read %s: %w", name, err)
	}
	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("memory: decode %s: %w", name, err)
	}
	c := r.conversation()
	if c.Name == "" {
		c.Name = strings.TrimSuffix(name, ext)
	}
	if err := validate(c); err != nil {
		return nil, fmt.Errorf("memory: %s: %w", name, err)
	}
	return c, nil
}

// validate checks c, repairing a history that ends in a tool_use nobody
// answered. Anything else is reported as the original validation error.
func validate(c *conversation.Conversation) error {
	err := c.Validate()
	if err == nil {
		return nil
	}
	if !c.TrimUnanswered() || c.Validate() != nil {
		return err
	}
	logging.Warn().Str("conversation", c.Name).Int("messages", c.Len()).
		Msg("dropped unanswered tool_use at end of history")
	return nil
}

// List summarizes every saved conversation, sorted by name. Unreadable
// files are reported through Summary.Err rather than failing the listing.
func (s *Store) List() ([]Summary, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("memory: list %s: %w", s.dir, err)
	}

	var out []Summary
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		sum := Summary{Name: strings.TrimSuffix(e.Name(), ext)}
		b, err := afero.ReadFile(s.fs, filepath.Join(s.dir, e.Name()))
		if err == nil {
			var h header
			if err = json.Unmarshal(b, &h); err == nil {
				sum.Modified = parseTime(h.Modified)
				sum.Messages = len(h.Messages)
				sum.Model = deref(h.Model)
			}
		}
		sum.Err = err
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes the saved conversation name.
func (s *Store) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if !s.Exists(name) {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err := s.fs.Remove(s.path(name)); err != nil {
		return fmt.Errorf("memory: delete %s: %w", name, err)
	}
	return nil
}

// Rename moves the saved file from oldName to newName and rewrites the name
// stored inside it.
func (s *Store) Rename(oldName, newName string) error {
	if err := ValidateName(newName); err != nil {
		return err
	}
	c, err := s.Load(oldName)
	if err != nil {
		return err
	}
	if s.Exists(newName) {
		return fmt.Errorf("%w: %q", ErrExists, newName)
	}
	c.Name = newName
	b, err := json.MarshalIndent(toRecord(c), "", "  ")
	if err != nil {
		return fmt.Errorf("memory: encode %s: %w", newName, err)
	}
	if err := s.writeAtomic(s.path(newName), b); err != nil {
		return err
	}
	if err := s.fs.Remove(s.path(oldName)); err != nil {
		return fmt.Errorf("memory: remove %s: %w", oldName, err)
	}
	return nil
}
