// Package telemetry records session events as JSON lines for offline
// inspection. Events carry sizes, counts, names and codes, never message or
// tool payload text.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Recorder appends one JSON object per event. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	log    zerolog.Logger
	closer io.Closer
}

// New returns a recorder writing to w.
func New(w io.Writer) *Recorder {
	return &Recorder{log: zerolog.New(w).With().Timestamp().Logger()}
}

// Open appends to the file at path, creating it and its directory. An empty
// path returns a nil recorder.
func Open(path string) (*Recorder, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("telemetry: mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	r := New(f)
	r.closer = f
	return r, nil
}

// Emit writes event name with fields. The turn ID from ctx, if any, is added
// as turn_id.
func (r *Recorder) Emit(ctx context.Context, name string, fields map[string]any) {
	if r == nil {
		return
	}
	ev := r.log.Log().Str("event", name)
	if id, ok := TurnIDFromContext(ctx); ok {
		ev = ev.Str("turn_id", id)
	}
	ev.Fields(fields).Send()
}

// Close releases the underlying file, if any.
func (r *Recorder) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
