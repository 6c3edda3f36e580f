package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/petasbytes/graft/internal/config"
	"github.com/petasbytes/graft/internal/provider"
	"github.com/petasbytes/graft/internal/stream"
	"github.com/petasbytes/graft/memory"
	"github.com/spf13/afero"
)

type scripted struct {
	openErr error
	events  []stream.Event
}

type fakeTransport struct {
	script   []scripted
	requests []provider.Request
}

func (f *fakeTransport) Stream(_ context.Context, req provider.Request) (stream.Source, error) {
	f.requests = append(f.requests, req)
	if len(f.script) == 0 {
		return nil, fmt.Errorf("no reply scripted for request %d", len(f.requests))
	}
	s := f.script[0]
	f.script = f.script[1:]
	if s.openErr != nil {
		return nil, s.openErr
	}
	return &sliceSource{events: s.events}, nil
}

type sliceSource struct {
	events []stream.Event
	pos    int
}

func (s *sliceSource) Next() bool {
	if s.pos >= len(s.events) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceSource) Event() stream.Event { return s.events[s.pos-1] }
func (s *sliceSource) Err() error          { return nil }
func (s *sliceSource) Close() error        { return nil }

func textReply(text string) scripted {
	return scripted{events: []stream.Event{
		{Type: stream.EventMessageStart, Usage: stream.Usage{InputTokens: 100, OutputTokens: 1, CacheReadTokens: 50}},
		{Type: stream.EventBlockStart, Index: 0, Block: stream.BlockText},
		{Type: stream.EventBlockDelta, Index: 0, Delta: stream.DeltaText, Fragment: text},
		{Type: stream.EventBlockStop, Index: 0},
		{Type: stream.EventMessageDelta, StopReason: stream.StopEndTurn, Usage: stream.Usage{OutputTokens: 7}},
		{Type: stream.EventMessageStop},
	}}
}

func openFailure(msg string) scripted {
	return scripted{openErr: fmt.Errorf("%s", msg)}
}

func testApp(out *bytes.Buffer) *app {
	return &app{
		cfg: &config.Config{
			DefaultModel: provider.DefaultModel,
			CacheTTL:     "5m",
			MaxTokens:    8192,
		},
		dir:   "/graft",
		store: memory.NewStore(afero.NewMemMapFs(), "/graft/conversations"),
		out:   out,
	}
}

// newTestSession returns a session reading the given lines. Nothing
// interrupts it and retries do not wait.
func newTestSession(t *testing.T, a *app, ft *fakeTransport, lines ...string) *session {
	t.Helper()
	input := ""
	if len(lines) > 0 {
		input = strings.Join(lines, "\n") + "\n"
	}
	s := newSession(a, ft, strings.NewReader(input), nil)
	s.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return s
}
