package conversation

import "encoding/json"

// Block is one content block of a message. The set of implementations is
// closed: Text, Thinking, ToolUse and ToolResult. Type switches over Block
// must name every variant; the gochecksumtype linter enforces this.
//
//sumtype:decl
type Block interface {
	isBlock()
}

// Text is visible model or user text.
type Text struct {
	Text string
}

// Thinking is a reasoning segment. Signature is an opaque continuation token
// that must be sent back unchanged on later requests.
type Thinking struct {
	Text      string
	Signature string
}

// ToolUse is a model request to invoke a named tool with JSON input.
type ToolUse struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResult carries the output of a ToolUse back to the model.
type ToolResult struct {
	ToolUseID string
	Content   string
	IsError   bool
}

func (Text) isBlock()       {}
func (Thinking) isBlock()   {}
func (ToolUse) isBlock()    {}
func (ToolResult) isBlock() {}

// Wire type names used by the Messages API and the persisted record.
const (
	TypeText       = "text"
	TypeThinking   = "thinking"
	TypeToolUse    = "tool_use"
	TypeToolResult = "tool_result"
)

// TypeOf returns the wire type name of b.
func TypeOf(b Block) string {
	switch b.(type) {
	case Text:
		return TypeText
	case Thinking:
		return TypeThinking
	case ToolUse:
		return TypeToolUse
	case ToolResult:
		return TypeToolResult
	}
	return ""
}
