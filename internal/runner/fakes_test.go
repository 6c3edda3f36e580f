package runner_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/petasbytes/graft/internal/conversation"
	"github.com/petasbytes/graft/internal/provider"
	"github.com/petasbytes/graft/internal/stream"
	"github.com/petasbytes/graft/tools"
)

// scripted is one canned reply: either an open error or an event list that
// may end in a stream error.
type scripted struct {
	openErr   error
	events    []stream.Event
	streamErr error
}

type fakeTransport struct {
	script   []scripted
	requests []provider.Request
	sources  []*sliceSource
}

func (f *fakeTransport) Stream(ctx context.Context, req provider.Request) (stream.Source, error) {
	f.requests = append(f.requests, req)
	if len(f.script) == 0 {
		return nil, fmt.Errorf("fake transport: no reply scripted for request %d", len(f.requests))
	}
	s := f.script[0]
	f.script = f.script[1:]
	if s.openErr != nil {
		return nil, s.openErr
	}
	src := &sliceSource{events: s.events, err: s.streamErr}
	f.sources = append(f.sources, src)
	return src, nil
}

type sliceSource struct {
	events []stream.Event
	pos    int
	err    error
	closed bool
}

func (s *sliceSource) Next() bool {
	if s.pos >= len(s.events) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceSource) Event() stream.Event { return s.events[s.pos-1] }
func (s *sliceSource) Err() error          { return s.err }
func (s *sliceSource) Close() error        { s.closed = true; return nil }

var usage = stream.Usage{InputTokens: 100, OutputTokens: 1, CacheReadTokens: 50}

func textReply(text string) scripted {
	return scripted{events: []stream.Event{
		{Type: stream.EventMessageStart, Usage: usage},
		{Type: stream.EventBlockStart, Index: 0, Block: stream.BlockText},
		{Type: stream.EventBlockDelta, Index: 0, Delta: stream.DeltaText, Fragment: text},
		{Type: stream.EventBlockStop, Index: 0},
		{Type: stream.EventMessageDelta, StopReason: stream.StopEndTurn, Usage: stream.Usage{OutputTokens: 7}},
		{Type: stream.EventMessageStop},
	}}
}

func toolReply(uses ...conversation.ToolUse) scripted {
	evs := []stream.Event{{Type: stream.EventMessageStart, Usage: usage}}
	for i, tu := range uses {
		evs = append(evs,
			stream.Event{Type: stream.EventBlockStart, Index: i, Block: stream.BlockToolUse, ToolID: tu.ID, ToolName: tu.Name},
			stream.Event{Type: stream.EventBlockDelta, Index: i, Delta: stream.DeltaInputJSON, Fragment: string(tu.Input)},
			stream.Event{Type: stream.EventBlockStop, Index: i},
		)
	}
	evs = append(evs,
		stream.Event{Type: stream.EventMessageDelta, StopReason: stream.StopToolUse, Usage: stream.Usage{OutputTokens: 3}},
		stream.Event{Type: stream.EventMessageStop},
	)
	return scripted{events: evs}
}

func use(id, name, input string) conversation.ToolUse {
	return conversation.ToolUse{ID: id, Name: name, Input: json.RawMessage(input)}
}

type fakeExecutor struct {
	calls []string
	fail  map[string]bool
}

func (f *fakeExecutor) Definitions() []tools.ToolDefinition { return tools.Registry(false) }

func (f *fakeExecutor) Execute(ctx context.Context, name string, input json.RawMessage) tools.Result {
	f.calls = append(f.calls, name+" "+strings.TrimSpace(string(input)))
	if f.fail[name] {
		return tools.Result{Text: `{"code":"ERR_NOT_FOUND"}`, IsError: true}
	}
	return tools.Result{Text: "ran " + name}
}
