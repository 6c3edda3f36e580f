package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/petasbytes/graft/internal/cacheplan"
	"github.com/petasbytes/graft/internal/conversation"
	"github.com/petasbytes/graft/internal/logging"
	"github.com/petasbytes/graft/internal/metrics"
	"github.com/petasbytes/graft/internal/provider"
	"github.com/petasbytes/graft/internal/stream"
	"github.com/petasbytes/graft/internal/telemetry"
	"github.com/petasbytes/graft/tools"
)

// NoExecutorMessage answers tool calls made while no executor is attached.
const NoExecutorMessage = "Error: tool executor not configured"

// DefaultMaxTokens is used when Options.MaxTokens is zero.
const DefaultMaxTokens = 8192

// ToolExecutor runs tool calls. Execute must fold every failure into the
// returned Result.
type ToolExecutor interface {
	Definitions() []tools.ToolDefinition
	Execute(ctx context.Context, name string, input json.RawMessage) tools.Result
}

// Options tune how turns are sent. All fields are optional.
type Options struct {
	MaxTokens      int64
	ThinkingBudget int64
	CacheTTL       cacheplan.TTL

	Hooks        stream.Hooks
	OnToolCall   func(tu conversation.ToolUse)
	OnToolResult func(tu conversation.ToolUse, res tools.Result)

	Recorder *telemetry.Recorder
	Clock    func() time.Time
}

// TurnUsage aggregates every request made during one Submit.
type TurnUsage struct {
	InputTokens      int64
	OutputTokens     int64
	CacheWriteTokens int64
	CacheReadTokens  int64
	WebSearches      int64
	ToolCalls        int
	Requests         int

	LastContextTokens int64
	StopReason        stream.StopReason
}

func (u *TurnUsage) add(x stream.Usage) {
	u.InputTokens += x.InputTokens
	u.OutputTokens += x.OutputTokens
	u.CacheWriteTokens += x.CacheWriteTokens
	u.CacheReadTokens += x.CacheReadTokens
	u.WebSearches += x.WebSearches
	u.Requests++
	u.LastContextTokens = x.ContextTokens()
}

// Runner owns one conversation and the session counters that go with it.
// It is not safe for concurrent use.
type Runner struct {
	transport provider.Transport
	conv      *conversation.Conversation
	executor  ToolExecutor
	opts      Options

	stats metrics.Stats
	rate  *metrics.RateWindow
	state state
}

// New returns a runner for conv. exec may be nil, in which case no tools are
// advertised.
func New(transport provider.Transport, conv *conversation.Conversation, exec ToolExecutor, opts Options) *Runner {
	rate := metrics.NewRateWindow()
	if opts.Clock != nil {
		rate = rate.WithClock(opts.Clock)
	}
	return &Runner{transport: transport, conv: conv, executor: exec, opts: opts, rate: rate}
}

// Conversation returns the conversation the runner writes to.
func (r *Runner) Conversation() *conversation.Conversation { return r.conv }

// SetConversation switches to conv and resets the session counters.
func (r *Runner) SetConversation(conv *conversation.Conversation) {
	r.conv = conv
	r.stats.Reset()
	r.rate.Reset()
}

// Executor returns the attached tool executor, or nil.
func (r *Runner) Executor() ToolExecutor { return r.executor }

// SetExecutor attaches exec. Pass a nil interface to detach.
func (r *Runner) SetExecutor(exec ToolExecutor) { r.executor = exec }

// Options returns the current options.
func (r *Runner) Options() Options { return r.opts }

// UpdateOptions applies fn to the options used by later turns.
func (r *Runner) UpdateOptions(fn func(*Options)) { fn(&r.opts) }

// Stats returns the session counters.
func (r *Runner) Stats() metrics.Stats { return r.stats }

// turn is the scratch state of one Submit call.
type turn struct {
	checkpoint int
	unsaved    bool
	usage      TurnUsage
	source     stream.Source
	pending    []conversation.ToolUse
	err        error
}

// Submit appends text as a user message and runs the turn to completion.
// On a TransportError the conversation is restored to what it was before
// the call. Tool failures never fail the turn.
func (r *Runner) Submit(ctx context.Context, text string) (TurnUsage, error) {
	if r.state != stateIdle {
		return TurnUsage{}, ErrBusy
	}
	ctx, _ = telemetry.EnsureTurnID(ctx)
	started := time.Now()

	t := &turn{checkpoint: r.conv.Len(), unsaved: r.conv.Unsaved}
	r.conv.Append(conversation.UserText(text))
	r.move(stateAwaitingResponse)

	for !r.state.terminal() {
		r.move(r.step(ctx, t))
	}

	failed := r.state == stateFailed
	r.move(stateIdle)

	if failed {
		if t.source != nil {
			_ = t.source.Close()
		}
		r.conv.Truncate(t.checkpoint)
		r.conv.Unsaved = t.unsaved
		logging.Warn().Err(t.err).Int("messages", r.conv.Len()).Msg("turn rolled back")
		r.opts.Recorder.Emit(ctx, "turn_failed", map[string]any{
			"requests":    t.usage.Requests,
			"tool_calls":  t.usage.ToolCalls,
			"duration_ms": time.Since(started).Milliseconds(),
			"error":       "transport",
		})
		return t.usage, t.err
	}

	r.opts.Recorder.Emit(ctx, "turn_complete", map[string]any{
		"requests":      t.usage.Requests,
		"tool_calls":    t.usage.ToolCalls,
		"input_tokens":  t.usage.InputTokens,
		"output_tokens": t.usage.OutputTokens,
		"stop_reason":   string(t.usage.StopReason),
		"duration_ms":   time.Since(started).Milliseconds(),
	})
	return t.usage, nil
}

func (r *Runner) move(to state) {
	if !canMove(r.state, to) {
		panic(fmt.Sprintf("runner: illegal transition %s -> %s", r.state, to))
	}
	r.state = to
}

// step performs the work of the current state and returns the next one.
func (r *Runner) step(ctx context.Context, t *turn) state {
	switch r.state {
	case stateAwaitingResponse:
		return r.request(ctx, t)
	case stateStreaming:
		return r.receive(ctx, t)
	case stateExecutingTools:
		return r.executeTools(ctx, t)
	case stateIdle, stateDone, stateFailed:
	}
	panic(fmt.Sprintf("runner: no step from %s", r.state))
}

func (r *Runner) request(ctx context.Context, t *turn) state {
	msgs, plan := cacheplan.Prepare(r.conv.Messages, r.opts.CacheTTL)

	model := r.conv.Model
	if model == "" {
		model = provider.DefaultModel
	}
	maxTokens := r.opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	req := provider.Request{
		Model:          model,
		System:         r.conv.SystemPrompt,
		MaxTokens:      maxTokens,
		Messages:       msgs,
		WebSearch:      r.conv.WebSearch,
		ThinkingBudget: r.opts.ThinkingBudget,
	}
	if r.executor != nil {
		req.Tools = r.executor.Definitions()
	}

	r.opts.Recorder.Emit(ctx, "request_prepared", map[string]any{
		"model":           model,
		"messages":        len(msgs),
		"human_turns":     plan.HumanTurns,
		"breakpoint":      plan.Breakpoint,
		"cache_ttl":       string(r.opts.CacheTTL),
		"tools":           len(req.Tools),
		"web_search":      req.WebSearch,
		"thinking_budget": req.ThinkingBudget,
	})
	logging.Debug().
		Str("model", model).
		Int("messages", len(msgs)).
		Int("breakpoint", plan.Breakpoint).
		Msg("sending request")

	src, err := r.transport.Stream(ctx, req)
	if err != nil {
		t.err = &TransportError{Op: "open", Err: err}
		return stateFailed
	}
	t.source = src
	return stateStreaming
}

func (r *Runner) receive(ctx context.Context, t *turn) state {
	resp, err := stream.NewDecoder(r.opts.Hooks).Decode(t.source)
	_ = t.source.Close()
	t.source = nil
	if err != nil {
		t.err = &TransportError{Op: "stream", Err: err}
		return stateFailed
	}

	r.stats.Record(resp.Usage)
	t.usage.add(resp.Usage)
	r.opts.Recorder.Emit(ctx, "response_decoded", map[string]any{
		"blocks":        len(resp.Blocks),
		"tool_uses":     len(resp.ToolUses()),
		"stop_reason":   string(resp.StopReason),
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
		"cache_write":   resp.Usage.CacheWriteTokens,
		"cache_read":    resp.Usage.CacheReadTokens,
		"web_searches":  resp.Usage.WebSearches,
	})
	logging.Debug().
		Str("stop_reason", string(resp.StopReason)).
		Int("blocks", len(resp.Blocks)).
		Int64("output_tokens", resp.Usage.OutputTokens).
		Msg("response decoded")

	if uses := resp.ToolUses(); resp.StopReason == stream.StopToolUse && len(uses) > 0 {
		r.conv.Append(conversation.AssistantBlocks(resp.Blocks...))
		t.pending = uses
		return stateExecutingTools
	}

	r.conv.Append(finalMessage(resp))
	t.usage.StopReason = resp.StopReason
	return stateDone
}

// finalMessage stores text-only replies as plain text. Anything else keeps
// its blocks, except tool requests the model did not stop for: those would
// be left without results.
func finalMessage(resp *stream.Response) conversation.Message {
	if resp.TextOnly() {
		return conversation.AssistantText(resp.Text())
	}
	blocks := make([]conversation.Block, 0, len(resp.Blocks))
	for _, b := range resp.Blocks {
		if tu, ok := b.(conversation.ToolUse); ok {
			logging.Warn().Str("tool", tu.Name).Str("stop_reason", string(resp.StopReason)).Msg("dropping unanswered tool request")
			continue
		}
		blocks = append(blocks, b)
	}
	return conversation.AssistantBlocks(blocks...)
}

func (r *Runner) executeTools(ctx context.Context, t *turn) state {
	results := make([]conversation.ToolResult, 0, len(t.pending))
	for _, tu := range t.pending {
		if r.opts.OnToolCall != nil {
			r.opts.OnToolCall(tu)
		}
		start := time.Now()
		res := r.execute(ctx, tu)
		res.Text += r.rate.Check()
		r.stats.RecordToolCall()
		t.usage.ToolCalls++

		r.opts.Recorder.Emit(ctx, "tool_exec", map[string]any{
			"tool_name":   tu.Name,
			"input_size":  len(tu.Input),
			"output_size": len(res.Text),
			"is_error":    res.IsError,
			"code":        string(res.Code),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if r.opts.OnToolResult != nil {
			r.opts.OnToolResult(tu, res)
		}
		results = append(results, conversation.ToolResult{ToolUseID: tu.ID, Content: res.Text, IsError: res.IsError})
	}
	r.conv.Append(conversation.ToolResults(results...))
	t.pending = nil
	return stateAwaitingResponse
}

func (r *Runner) execute(ctx context.Context, tu conversation.ToolUse) tools.Result {
	if r.executor == nil {
		return tools.Result{Text: NoExecutorMessage, IsError: true}
	}
	return r.executor.Execute(ctx, tu.Name, tu.Input)
}
