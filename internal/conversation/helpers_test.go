package conversation_test

import (
	"encoding/json"

	"github.com/petasbytes/graft/internal/conversation"
)

// Text block constructor
func T(text string) conversation.Block { return conversation.Text{Text: text} }

// Tool-use block constructor
func TU(id string) conversation.Block {
	return conversation.ToolUse{ID: id, Name: "list_dir", Input: json.RawMessage(`{"path":"."}`)}
}

// Tool-result constructor
func TR(id string) conversation.ToolResult {
	return conversation.ToolResult{ToolUseID: id, Content: "ok"}
}

// Assistant message constructor
func Asst(blocks ...conversation.Block) conversation.Message {
	return conversation.AssistantBlocks(blocks...)
}

// User message constructor
func User(blocks ...conversation.Block) conversation.Message {
	return conversation.Message{Role: conversation.RoleUser, Blocks: blocks}
}

func conv(msgs ...conversation.Message) *conversation.Conversation {
	c := conversation.New("test-model")
	for _, m := range msgs {
		c.Append(m)
	}
	return c
}
