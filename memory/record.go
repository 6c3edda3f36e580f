package memory

import (
	"encoding/json"
	"time"

	"github.com/petasbytes/graft/internal/conversation"
)

type record struct {
	Name         string                 `json:"name"`
	Created      string                 `json:"created"`
	Modified     string                 `json:"modified"`
	Model        *string                `json:"model"`
	SystemPrompt string                 `json:"system_prompt"`
	Messages     []conversation.Message `json:"messages"`
	WebSearch    bool                   `json:"web_search"`
	ToolsPath    *string                `json:"tools_path"`
	ShellEnabled bool                   `json:"shell_enabled"`
}

// header is the part of a record List needs. Messages are left undecoded.
type header struct {
	Modified string            `json:"modified"`
	Model    *string           `json:"model"`
	Messages []json.RawMessage `json:"messages"`
}

func toRecord(c *conversation.Conversation) record {
	msgs := c.Messages
	if msgs == nil {
		msgs = []conversation.Message{}
	}
	return record{
		Name:         c.Name,
		Created:      formatTime(c.Created),
		Modified:     formatTime(c.Modified),
		Model:        optional(c.Model),
		SystemPrompt: c.SystemPrompt,
		Messages:     msgs,
		WebSearch:    c.WebSearch,
		ToolsPath:    optional(c.ToolsPath),
		ShellEnabled: c.ShellEnabled,
	}
}

func (r record) conversation() *conversation.Conversation {
	c := &conversation.Conversation{
		Name:         r.Name,
		Created:      parseTime(r.Created),
		Model:        deref(r.Model),
		SystemPrompt: r.SystemPrompt,
		Messages:     r.Messages,
		WebSearch:    r.WebSearch,
		ToolsPath:    deref(r.ToolsPath),
		ShellEnabled: r.ShellEnabled,
	}
	c.Modified = parseTime(r.Modified)
	if c.Modified.IsZero() {
		c.Modified = c.Created
	}
	return c
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// timeLayouts are tried in order. The zone-less forms match files written
// by tools that store local ISO timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format(time.RFC3339Nano)
}

// parseTime returns the zero time for empty or unrecognized input.
func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
