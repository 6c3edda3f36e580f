package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/petasbytes/graft/internal/conversation"
)

// ErrTruncated is returned when the source ends before the message is
// complete.
var ErrTruncated = errors.New("stream: truncated response")

// Hooks receive progress while a response is decoded. Any field may be nil.
type Hooks struct {
	Text          func(fragment string)
	ThinkingStart func()
	ThinkingDone  func(chars int)
}

// Response is a fully decoded model response.
type Response struct {
	Blocks     []conversation.Block
	StopReason StopReason
	Usage      Usage
}

// ToolUses returns the tool requests in emission order.
func (r *Response) ToolUses() []conversation.ToolUse {
	var out []conversation.ToolUse
	for _, b := range r.Blocks {
		if tu, ok := b.(conversation.ToolUse); ok {
			out = append(out, tu)
		}
	}
	return out
}

// TextOnly reports whether every block is a Text block.
func (r *Response) TextOnly() bool {
	for _, b := range r.Blocks {
		if _, ok := b.(conversation.Text); !ok {
			return false
		}
	}
	return true
}

// Text joins the Text blocks.
func (r *Response) Text() string {
	var sb strings.Builder
	for _, b := range r.Blocks {
		if t, ok := b.(conversation.Text); ok {
			sb.WriteString(t.Text)
		}
	}
	return sb.String()
}

type openBlock struct {
	kind BlockType
	id   string
	name string
	buf  strings.Builder
	sig  strings.Builder
}

type finished struct {
	index int
	block conversation.Block
}

// Decoder turns events into a Response.
type Decoder struct {
	hooks Hooks
}

// NewDecoder returns a decoder reporting progress to h.
func NewDecoder(h Hooks) *Decoder {
	return &Decoder{hooks: h}
}

// Decode consumes src until it is exhausted. It does not close src.
func (d *Decoder) Decode(src Source) (*Response, error) {
	open := make(map[int]*openBlock)
	var done []finished
	resp := &Response{}
	stopped := false

	for src.Next() {
		ev := src.Event()
		switch ev.Type {
		case EventMessageStart:
			resp.Usage = ev.Usage
		case EventBlockStart:
			if _, dup := open[ev.Index]; dup {
				return nil, fmt.Errorf("stream: block %d started twice", ev.Index)
			}
			ob := &openBlock{kind: ev.Block, id: ev.ToolID, name: ev.ToolName}
			open[ev.Index] = ob
			switch ev.Block {
			case BlockText:
				if ev.Text != "" {
					ob.buf.WriteString(ev.Text)
					d.text(ev.Text)
				}
			case BlockThinking:
				ob.buf.WriteString(ev.Text)
				ob.sig.WriteString(ev.Signature)
				if d.hooks.ThinkingStart != nil {
					d.hooks.ThinkingStart()
				}
			case BlockToolUse, BlockOther:
			}
		case EventBlockDelta:
			ob, ok := open[ev.Index]
			if !ok {
				return nil, fmt.Errorf("stream: delta for unknown block %d", ev.Index)
			}
			if err := d.apply(ob, ev); err != nil {
				return nil, fmt.Errorf("stream: block %d: %w", ev.Index, err)
			}
		case EventBlockStop:
			ob, ok := open[ev.Index]
			if !ok {
				return nil, fmt.Errorf("stream: stop for unknown block %d", ev.Index)
			}
			delete(open, ev.Index)
			b, err := d.finish(ob)
			if err != nil {
				return nil, fmt.Errorf("stream: block %d: %w", ev.Index, err)
			}
			if b != nil {
				done = append(done, finished{index: ev.Index, block: b})
			}
		case EventMessageDelta:
			if ev.StopReason != "" {
				resp.StopReason = ev.StopReason
			}
			resp.Usage = mergeUsage(resp.Usage, ev.Usage)
		case EventMessageStop:
			stopped = true
		}
	}
	if err := src.Err(); err != nil {
		return nil, fmt.Errorf("stream: %w", err)
	}
	if !stopped {
		return nil, ErrTruncated
	}
	if len(open) > 0 {
		return nil, fmt.Errorf("%w: %d blocks still open", ErrTruncated, len(open))
	}

	sort.SliceStable(done, func(i, j int) bool { return done[i].index < done[j].index })
	resp.Blocks = make([]conversation.Block, 0, len(done))
	for _, f := range done {
		resp.Blocks = append(resp.Blocks, f.block)
	}
	return resp, nil
}

func (d *Decoder) apply(ob *openBlock, ev Event) error {
	if ob.kind == BlockOther || ev.Delta == DeltaOther {
		return nil
	}
	if blockFor(ev.Delta) != ob.kind {
		return fmt.Errorf("delta type %d does not match block type %d", ev.Delta, ob.kind)
	}
	switch ev.Delta {
	case DeltaText:
		ob.buf.WriteString(ev.Fragment)
		d.text(ev.Fragment)
	case DeltaThinking, DeltaInputJSON:
		ob.buf.WriteString(ev.Fragment)
	case DeltaSignature:
		ob.sig.WriteString(ev.Fragment)
	case DeltaOther:
	}
	return nil
}

// blockFor returns the block type a delta may extend.
func blockFor(dt DeltaType) BlockType {
	switch dt {
	case DeltaText:
		return BlockText
	case DeltaThinking, DeltaSignature:
		return BlockThinking
	case DeltaInputJSON:
		return BlockToolUse
	case DeltaOther:
	}
	return BlockOther
}

func (d *Decoder) finish(ob *openBlock) (conversation.Block, error) {
	switch ob.kind {
	case BlockText:
		return conversation.Text{Text: ob.buf.String()}, nil
	case BlockThinking:
		if d.hooks.ThinkingDone != nil {
			d.hooks.ThinkingDone(utf8.RuneCountInString(ob.buf.String()))
		}
		return conversation.Thinking{Text: ob.buf.String(), Signature: ob.sig.String()}, nil
	case BlockToolUse:
		input := strings.TrimSpace(ob.buf.String())
		if input == "" {
			input = "{}"
		}
		if !json.Valid([]byte(input)) {
			return nil, fmt.Errorf("tool_use %s: invalid input JSON", ob.id)
		}
		return conversation.ToolUse{ID: ob.id, Name: ob.name, Input: json.RawMessage(input)}, nil
	case BlockOther:
	}
	return nil, nil
}

func (d *Decoder) text(s string) {
	if d.hooks.Text != nil && s != "" {
		d.hooks.Text(s)
	}
}

// mergeUsage applies message_delta counters, which are cumulative, over
// those from message_start.
func mergeUsage(base, delta Usage) Usage {
	if delta.InputTokens > 0 {
		base.InputTokens = delta.InputTokens
	}
	if delta.OutputTokens > 0 {
		base.OutputTokens = delta.OutputTokens
	}
	if delta.CacheWriteTokens > 0 {
		base.CacheWriteTokens = delta.CacheWriteTokens
	}
	if delta.CacheReadTokens > 0 {
		base.CacheReadTokens = delta.CacheReadTokens
	}
	if delta.WebSearches > 0 {
		base.WebSearches = delta.WebSearches
	}
	return base
}
