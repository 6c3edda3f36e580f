package provider

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/petasbytes/graft/internal/stream"
)

// AnthropicTransport streams responses from the Messages API.
type AnthropicTransport struct {
	client *anthropic.Client
}

// NewTransport wraps client.
func NewTransport(client *anthropic.Client) *AnthropicTransport {
	return &AnthropicTransport{client: client}
}

// Stream sends req. Errors the API reports before the first event, such as
// an HTTP error status, are returned here; later failures surface through
// the source's Err.
func (t *AnthropicTransport) Stream(ctx context.Context, req Request) (stream.Source, error) {
	s := t.client.Messages.NewStreaming(ctx, BuildParams(req))
	if err := s.Err(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return &sseSource{s: s}, nil
}

// sseSource adapts the SDK event stream to stream.Source.
type sseSource struct {
	s   *ssestream.Stream[anthropic.MessageStreamEventUnion]
	cur stream.Event
}

func (src *sseSource) Next() bool {
	for src.s.Next() {
		if ev, ok := convertEvent(src.s.Current()); ok {
			src.cur = ev
			return true
		}
	}
	return false
}

func (src *sseSource) Event() stream.Event { return src.cur }
func (src *sseSource) Err() error          { return src.s.Err() }
func (src *sseSource) Close() error        { return src.s.Close() }

func convertEvent(e anthropic.MessageStreamEventUnion) (stream.Event, bool) {
	switch v := e.AsAny().(type) {
	case anthropic.MessageStartEvent:
		u := v.Message.Usage
		return stream.Event{Type: stream.EventMessageStart, Usage: stream.Usage{
			InputTokens:      u.InputTokens,
			OutputTokens:     u.OutputTokens,
			CacheWriteTokens: u.CacheCreationInputTokens,
			CacheReadTokens:  u.CacheReadInputTokens,
			WebSearches:      u.ServerToolUse.WebSearchRequests,
		}}, true
	case anthropic.ContentBlockStartEvent:
		ev := stream.Event{Type: stream.EventBlockStart, Index: int(v.Index)}
		switch b := v.ContentBlock.AsAny().(type) {
		case anthropic.TextBlock:
			ev.Block = stream.BlockText
			ev.Text = b.Text
		case anthropic.ThinkingBlock:
			ev.Block = stream.BlockThinking
			ev.Text = b.Thinking
			ev.Signature = b.Signature
		case anthropic.ToolUseBlock:
			// Input arrives in full through input_json deltas.
			ev.Block = stream.BlockToolUse
			ev.ToolID = b.ID
			ev.ToolName = b.Name
		default:
			ev.Block = stream.BlockOther
		}
		return ev, true
	case anthropic.ContentBlockDeltaEvent:
		ev := stream.Event{Type: stream.EventBlockDelta, Index: int(v.Index)}
		switch d := v.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			ev.Delta, ev.Fragment = stream.DeltaText, d.Text
		case anthropic.ThinkingDelta:
			ev.Delta, ev.Fragment = stream.DeltaThinking, d.Thinking
		case anthropic.SignatureDelta:
			ev.Delta, ev.Fragment = stream.DeltaSignature, d.Signature
		case anthropic.InputJSONDelta:
			ev.Delta, ev.Fragment = stream.DeltaInputJSON, d.PartialJSON
		default:
			ev.Delta = stream.DeltaOther
		}
		return ev, true
	case anthropic.ContentBlockStopEvent:
		return stream.Event{Type: stream.EventBlockStop, Index: int(v.Index)}, true
	case anthropic.MessageDeltaEvent:
		u := v.Usage
		return stream.Event{
			Type:       stream.EventMessageDelta,
			StopReason: stream.StopReason(v.Delta.StopReason),
			Usage: stream.Usage{
				InputTokens:      u.InputTokens,
				OutputTokens:     u.OutputTokens,
				CacheWriteTokens: u.CacheCreationInputTokens,
				CacheReadTokens:  u.CacheReadInputTokens,
				WebSearches:      u.ServerToolUse.WebSearchRequests,
			},
		}, true
	case anthropic.MessageStopEvent:
		return stream.Event{Type: stream.EventMessageStop}, true
	}
	return stream.Event{}, false
}
