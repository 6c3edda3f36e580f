package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn. When Blocks is nil the content is the plain
// string in Text; otherwise Text is ignored and Blocks is the content.
type Message struct {
	Role   Role
	Text   string
	Blocks []Block
}

// UserText returns a plain-text user message.
func UserText(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// AssistantText returns a plain-text assistant message.
func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Text: text}
}

// AssistantBlocks returns an assistant message with structured content.
func AssistantBlocks(blocks ...Block) Message {
	return Message{Role: RoleAssistant, Blocks: append([]Block{}, blocks...)}
}

// ToolResults returns the user message that answers a tool round.
func ToolResults(results ...ToolResult) Message {
	blocks := make([]Block, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, r)
	}
	return Message{Role: RoleUser, Blocks: blocks}
}

// Plain reports whether the content is a plain string.
func (m Message) Plain() bool { return m.Blocks == nil }

// Content returns the content in block form. Plain text becomes a single
// Text block. The returned slice is a fresh copy.
func (m Message) Content() []Block {
	if m.Plain() {
		return []Block{Text{Text: m.Text}}
	}
	return append([]Block(nil), m.Blocks...)
}

// HasText reports whether the message holds at least one Text block.
func (m Message) HasText() bool {
	if m.Plain() {
		return true
	}
	for _, b := range m.Blocks {
		if _, ok := b.(Text); ok {
			return true
		}
	}
	return false
}

// ToolUses returns the ToolUse blocks in emission order.
func (m Message) ToolUses() []ToolUse {
	var out []ToolUse
	for _, b := range m.Blocks {
		if tu, ok := b.(ToolUse); ok {
			out = append(out, tu)
		}
	}
	return out
}

// VisibleText joins the text blocks of m.
func (m Message) VisibleText() string {
	if m.Plain() {
		return m.Text
	}
	var parts []string
	for _, b := range m.Blocks {
		if t, ok := b.(Text); ok {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "")
}

// wire forms

type wireMessage struct {
	Role    Role            `json:"role"`
	Content json.RawMessage `json:"content"`
}

type wireBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  *string         `json:"thinking,omitempty"`
	Signature *string         `json:"signature,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// MarshalJSON encodes m in the Messages API shape: content is a string for
// plain messages and a list of typed blocks otherwise.
func (m Message) MarshalJSON() ([]byte, error) {
	var content any
	if m.Plain() {
		content = m.Text
	} else {
		blocks := make([]wireBlock, 0, len(m.Blocks))
		for _, b := range m.Blocks {
			wb, err := encodeBlock(b)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, wb)
		}
		content = blocks
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireMessage{Role: m.Role, Content: raw})
}

// UnmarshalJSON accepts string or block-list content.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Role != RoleUser && w.Role != RoleAssistant {
		return fmt.Errorf("conversation: invalid role %q", w.Role)
	}
	*m = Message{Role: w.Role}
	raw := bytes.TrimSpace(w.Content)
	if len(raw) == 0 || raw[0] == '"' {
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &m.Text); err != nil {
				return err
			}
		}
		return nil
	}
	var wbs []wireBlock
	if err := json.Unmarshal(raw, &wbs); err != nil {
		return fmt.Errorf("conversation: content: %w", err)
	}
	m.Blocks = make([]Block, 0, len(wbs))
	for i, wb := range wbs {
		b, err := decodeBlock(wb)
		if err != nil {
			return fmt.Errorf("conversation: block %d: %w", i, err)
		}
		m.Blocks = append(m.Blocks, b)
	}
	return nil
}

func encodeBlock(b Block) (wireBlock, error) {
	switch v := b.(type) {
	case Text:
		return wireBlock{Type: TypeText, Text: v.Text}, nil
	case Thinking:
		return wireBlock{Type: TypeThinking, Thinking: &v.Text, Signature: &v.Signature}, nil
	case ToolUse:
		input := v.Input
		if len(bytes.TrimSpace(input)) == 0 {
			input = json.RawMessage(`{}`)
		}
		return wireBlock{Type: TypeToolUse, ID: v.ID, Name: v.Name, Input: input}, nil
	case ToolResult:
		content, err := json.Marshal(v.Content)
		if err != nil {
			return wireBlock{}, err
		}
		return wireBlock{Type: TypeToolResult, ToolUseID: v.ToolUseID, Content: content, IsError: v.IsError}, nil
	}
	return wireBlock{}, fmt.Errorf("unknown block %T", b)
}

func decodeBlock(wb wireBlock) (Block, error) {
	switch wb.Type {
	case TypeText:
		return Text{Text: wb.Text}, nil
	case TypeThinking:
		t := Thinking{}
		if wb.Thinking != nil {
			t.Text = *wb.Thinking
		}
		if wb.Signature != nil {
			t.Signature = *wb.Signature
		}
		return t, nil
	case TypeToolUse:
		return ToolUse{ID: wb.ID, Name: wb.Name, Input: compact(wb.Input)}, nil
	case TypeToolResult:
		content, err := toolResultText(wb.Content)
		if err != nil {
			return nil, err
		}
		return ToolResult{ToolUseID: wb.ToolUseID, Content: content, IsError: wb.IsError}, nil
	default:
		return nil, fmt.Errorf("unsupported block type %q", wb.Type)
	}
}

// compact strips insignificant whitespace so inputs compare equal after a
// pretty-printed round trip.
func compact(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

// toolResultText flattens tool_result content, which the API allows to be a
// string or a list of text blocks.
func toolResultText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var parts []wireBlock
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", fmt.Errorf("tool_result content: %w", err)
	}
	var sb strings.Builder
	for _, p := range parts {
		if p.Type == TypeText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), nil
}
