package conversation

import "fmt"

// ValidationError reports the first message that breaks the tool pairing
// invariant.
type ValidationError struct {
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("conversation: message %d: %s", e.Index, e.Reason)
}

// Validate checks roles and tool_use/tool_result pairing:
//   - an assistant message with tool_use blocks is followed by a user message
//     whose leading blocks are the matching tool_results;
//   - results appear in the order the requests were emitted, one per request;
//   - tool_result blocks never appear anywhere else.
func (c *Conversation) Validate() error {
	for i, m := range c.Messages {
		switch m.Role {
		case RoleUser, RoleAssistant:
		default:
			return &ValidationError{Index: i, Reason: fmt.Sprintf("invalid role %q", m.Role)}
		}

		results := leadingToolResults(m)
		if m.Role == RoleAssistant {
			if len(results) > 0 {
				return &ValidationError{Index: i, Reason: "tool_result in assistant message"}
			}
		} else if len(results) > 0 {
			if i == 0 || c.Messages[i-1].Role != RoleAssistant || len(c.Messages[i-1].ToolUses()) == 0 {
				return &ValidationError{Index: i, Reason: "tool_result without preceding tool_use"}
			}
		}
		if countToolResults(m) != len(results) {
			return &ValidationError{Index: i, Reason: "ordering_invalid"}
		}

		uses := m.ToolUses()
		if m.Role != RoleAssistant || len(uses) == 0 {
			continue
		}
		if i+1 >= len(c.Messages) || c.Messages[i+1].Role != RoleUser {
			return &ValidationError{Index: i, Reason: "not_followed_by_user"}
		}
		got := leadingToolResults(c.Messages[i+1])
		switch {
		case len(got) < len(uses):
			return &ValidationError{Index: i + 1, Reason: "missing_results"}
		case len(got) > len(uses):
			return &ValidationError{Index: i + 1, Reason: "extra_results"}
		}
		for j := range uses {
			if got[j].ToolUseID != uses[j].ID {
				return &ValidationError{Index: i + 1, Reason: fmt.Sprintf("result %d answers %q, want %q", j, got[j].ToolUseID, uses[j].ID)}
			}
		}
	}
	return nil
}

// leadingToolResults returns the tool_result blocks that open m.
func leadingToolResults(m Message) []ToolResult {
	var out []ToolResult
	for _, b := range m.Blocks {
		tr, ok := b.(ToolResult)
		if !ok {
			break
		}
		out = append(out, tr)
	}
	return out
}

func countToolResults(m Message) int {
	n := 0
	for _, b := range m.Blocks {
		if _, ok := b.(ToolResult); ok {
			n++
		}
	}
	return n
}

// TrimUnanswered drops a final assistant message whose tool_use requests
// were never answered and reports whether it did.
func (c *Conversation) TrimUnanswered() bool {
	last, ok := c.Last()
	if !ok || last.Role != RoleAssistant || len(last.ToolUses()) == 0 {
		return false
	}
	c.Truncate(c.Len() - 1)
	c.Unsaved = true
	return true
}
