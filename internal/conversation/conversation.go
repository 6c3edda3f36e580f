package conversation

import (
	"time"
	"unicode/utf8"
)

// Conversation is an ordered message history plus the settings that travel
// with it when saved.
type Conversation struct {
	Name         string
	Created      time.Time
	Modified     time.Time
	Model        string
	SystemPrompt string
	Messages     []Message

	WebSearch    bool
	ToolsPath    string // empty when file tools are disabled
	ShellEnabled bool

	// Unsaved is set by any mutation and cleared by persistence.
	Unsaved bool
}

// New returns an empty, unnamed conversation for model.
func New(model string) *Conversation {
	now := time.Now()
	return &Conversation{Created: now, Modified: now, Model: model}
}

// Append adds m to the end of the history.
func (c *Conversation) Append(m Message) {
	c.Messages = append(c.Messages, m)
	c.Unsaved = true
}

// Truncate drops every message at index n and beyond.
func (c *Conversation) Truncate(n int) {
	if n < 0 || n >= len(c.Messages) {
		return
	}
	for i := n; i < len(c.Messages); i++ {
		c.Messages[i] = Message{}
	}
	c.Messages = c.Messages[:n]
}

// Len returns the number of messages.
func (c *Conversation) Len() int { return len(c.Messages) }

// Last returns the final message, if any.
func (c *Conversation) Last() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// TokenEstimate is a rough token count: text characters divided by two.
// Only plain content and Text blocks are counted.
func (c *Conversation) TokenEstimate() int {
	total := 0
	for _, m := range c.Messages {
		if m.Plain() {
			total += utf8.RuneCountInString(m.Text)
			continue
		}
		for _, b := range m.Blocks {
			if t, ok := b.(Text); ok {
				total += utf8.RuneCountInString(t.Text)
			}
		}
	}
	return total / 2
}
