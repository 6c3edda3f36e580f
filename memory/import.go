package memory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/petasbytes/graft/internal/conversation"
	"github.com/spf13/afero"
)

// ImportOptions control how foreign exports are converted. The zero value
// keeps everything.
type ImportOptions struct {
	Name       string // overrides the name found in the file
	NoThinking bool   // exporter format only: drop thinking blocks
	NoToolUse  bool   // exporter format only: drop tool calls and results
}

// ErrUnrecognized is returned for JSON that matches no known export shape.
var ErrUnrecognized = errors.New("memory: unrecognized conversation format")

const defaultImportName = "imported"

// ImportFile reads path from fs and imports it.
func ImportFile(fs afero.Fs, path string, opts ImportOptions) (*conversation.Conversation, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("memory: import: %w", err)
	}
	return Import(b, opts)
}

// Import converts one of three shapes into an unsaved conversation:
//   - a bare array of API messages;
//   - an object with "messages" and optional "metadata" (source_name,
//     source_model), including files written by Store.Save;
//   - a chat exporter object with "chat_messages", whose blocks are
//     flattened to text and whose consecutive same-role messages are merged.
func Import(data []byte, opts ImportOptions) (*conversation.Conversation, error) {
	if opts.Name != "" {
		if err := ValidateName(opts.Name); err != nil {
			return nil, err
		}
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrUnrecognized
	}

	var (
		msgs  []conversation.Message
		name  = defaultImportName
		model string
	)
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &msgs); err != nil {
			return nil, fmt.Errorf("memory: import messages: %w", err)
		}
	case '{':
		var shape map[string]json.RawMessage
		if err := json.Unmarshal(data, &shape); err != nil {
			return nil, fmt.Errorf("memory: import: %w", err)
		}
		var err error
		switch {
		case shape["chat_messages"] != nil:
			msgs, name, model, err = fromExporter(data, opts)
		case shape["messages"] != nil:
			msgs, name, model, err = fromAPIExport(data)
		default:
			return nil, ErrUnrecognized
		}
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrUnrecognized
	}

	c := conversation.New(model)
	c.Name = SanitizeName(name)
	if opts.Name != "" {
		c.Name = opts.Name
	}
	c.Messages = msgs
	c.Unsaved = true
	if err := validate(c); err != nil {
		return nil, fmt.Errorf("memory: import: %w", err)
	}
	return c, nil
}

type apiExport struct {
	Name     string                 `json:"name"`
	Model    string                 `json:"model"`
	Messages []conversation.Message `json:"messages"`
	Metadata struct {
		SourceName  string `json:"source_name"`
		SourceModel string `json:"source_model"`
	} `json:"metadata"`
}

func fromAPIExport(data []byte) ([]conversation.Message, string, string, error) {
	var f apiExport
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", "", fmt.Errorf("memory: import messages: %w", err)
	}
	name := firstNonEmpty(f.Metadata.SourceName, f.Name, defaultImportName)
	model := firstNonEmpty(f.Metadata.SourceModel, f.Model)
	return f.Messages, name, model, nil
}

type exportFile struct {
	Name         string          `json:"name"`
	Model        string          `json:"model"`
	ChatMessages []exportMessage `json:"chat_messages"`
}

type exportMessage struct {
	Sender  string        `json:"sender"`
	Content []exportBlock `json:"content"`
}

type exportBlock struct {
	Type     string          `json:"type"`
	Text     string          `json:"text"`
	Thinking string          `json:"thinking"`
	Name     string          `json:"name"`
	Input    json.RawMessage `json:"input"`
	Content  json.RawMessage `json:"content"`
}

func fromExporter(data []byte, opts ImportOptions) ([]conversation.Message, string, string, error) {
	var f exportFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", "", fmt.Errorf("memory: import chat export: %w", err)
	}

	var out []conversation.Message
	for _, m := range f.ChatMessages {
		var role conversation.Role
		switch m.Sender {
		case "human":
			role = conversation.RoleUser
		case "assistant":
			role = conversation.RoleAssistant
		default:
			continue
		}

		var parts []string
		for _, b := range m.Content {
			if s := flattenBlock(b, opts); s != "" {
				parts = append(parts, s)
			}
		}
		text := strings.Join(parts, "\n\n")
		if strings.TrimSpace(text) == "" {
			continue
		}

		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Text += "\n\n" + text
			continue
		}
		out = append(out, conversation.Message{Role: role, Text: text})
	}
	return out, firstNonEmpty(f.Name, defaultImportName), f.Model, nil
}

func flattenBlock(b exportBlock, opts ImportOptions) string {
	switch b.Type {
	case "text":
		return b.Text
	case "thinking":
		if opts.NoThinking || b.Thinking == "" {
			return ""
		}
		return "[Thinking]\n" + b.Thinking + "\n[/Thinking]"
	case "tool_use":
		if opts.NoToolUse {
			return ""
		}
		name := firstNonEmpty(b.Name, "unknown")
		return "[Tool: " + name + "]\n" + indentJSON(b.Input)
	case "tool_result":
		if opts.NoToolUse {
			return ""
		}
		var items []json.RawMessage
		if json.Unmarshal(b.Content, &items) != nil || len(items) == 0 {
			return ""
		}
		var first map[string]any
		if json.Unmarshal(items[0], &first) != nil {
			return ""
		}
		title, _ := first["title"].(string)
		if r := []rune(title); len(r) > 100 {
			title = string(r[:100])
		}
		return "[Tool Result: " + title + "...]"
	}
	return ""
}

func indentJSON(raw json.RawMessage) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
