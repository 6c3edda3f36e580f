package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/petasbytes/graft/internal/cacheplan"
	"github.com/petasbytes/graft/internal/conversation"
	"github.com/petasbytes/graft/internal/stream"
	"github.com/petasbytes/graft/tools"
)

const (
	// MinThinkingBudget is the smallest budget that enables extended thinking.
	MinThinkingBudget = 1024
	// WebSearchMaxUses caps server-side searches per request.
	WebSearchMaxUses = 5
)

// Request is everything one model call needs.
type Request struct {
	Model          string
	System         string
	MaxTokens      int64
	Messages       []cacheplan.Message
	Tools          []tools.ToolDefinition
	WebSearch      bool
	ThinkingBudget int64
}

// Transport opens a streamed response for a request.
type Transport interface {
	Stream(ctx context.Context, req Request) (stream.Source, error)
}

// BuildParams maps req onto the SDK request type.
//
// Empty text blocks are dropped because the API rejects them; a message left
// with no content is dropped entirely.
func BuildParams(req Request) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  make([]anthropic.MessageParam, 0, len(req.Messages)),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.ThinkingBudget >= MinThinkingBudget {
		params.Thinking = anthropic.ThinkingConfigParamUnion{
			OfEnabled: &anthropic.ThinkingConfigEnabledParam{BudgetTokens: req.ThinkingBudget},
		}
	}

	for _, m := range req.Messages {
		content := make([]anthropic.ContentBlockParamUnion, 0, len(m.Blocks))
		for _, b := range m.Blocks {
			if t, ok := b.Block.(conversation.Text); ok && t.Text == "" {
				continue
			}
			content = append(content, blockParam(b))
		}
		if len(content) == 0 {
			continue
		}
		role := anthropic.MessageParamRoleUser
		if m.Role == conversation.RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}
		params.Messages = append(params.Messages, anthropic.MessageParam{Role: role, Content: content})
	}

	if req.WebSearch {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{MaxUses: anthropic.Int(WebSearchMaxUses)},
		})
	}
	for _, t := range req.Tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: t.InputSchema,
		}})
	}
	return params
}

func blockParam(b cacheplan.Block) anthropic.ContentBlockParamUnion {
	cc := cacheControl(b.Cache)
	switch v := b.Block.(type) {
	case conversation.Text:
		return anthropic.ContentBlockParamUnion{OfText: &anthropic.TextBlockParam{Text: v.Text, CacheControl: cc}}
	case conversation.Thinking:
		// Thinking blocks cannot carry cache_control.
		return anthropic.ContentBlockParamUnion{OfThinking: &anthropic.ThinkingBlockParam{Thinking: v.Text, Signature: v.Signature}}
	case conversation.ToolUse:
		input := v.Input
		if len(bytes.TrimSpace(input)) == 0 {
			input = json.RawMessage(`{}`)
		}
		return anthropic.ContentBlockParamUnion{OfToolUse: &anthropic.ToolUseBlockParam{
			ID:           v.ID,
			Name:         v.Name,
			Input:        input,
			CacheControl: cc,
		}}
	case conversation.ToolResult:
		tr := &anthropic.ToolResultBlockParam{
			ToolUseID:    v.ToolUseID,
			CacheControl: cc,
			Content: []anthropic.ToolResultBlockParamContentUnion{
				{OfText: &anthropic.TextBlockParam{Text: v.Content}},
			},
		}
		if v.IsError {
			tr.IsError = anthropic.Bool(true)
		}
		return anthropic.ContentBlockParamUnion{OfToolResult: tr}
	}
	panic(fmt.Sprintf("provider: unhandled block %T", b.Block))
}

func cacheControl(m *cacheplan.Marker) anthropic.CacheControlEphemeralParam {
	if m == nil {
		return anthropic.CacheControlEphemeralParam{}
	}
	cc := anthropic.NewCacheControlEphemeralParam()
	switch m.TTL {
	case cacheplan.TTL1h:
		cc.TTL = anthropic.CacheControlEphemeralTTLTTL1h
	case cacheplan.TTL5m, cacheplan.TTLOff:
	}
	return cc
}
