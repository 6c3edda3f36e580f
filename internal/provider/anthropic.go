package provider

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultModel is used when neither config nor a saved conversation names one.
const DefaultModel = "claude-opus-4-5-20251101"

// NewAnthropicClient returns a client for apiKey. An empty key falls back to
// ANTHROPIC_API_KEY from the environment. SDK retries are disabled: a turn
// either completes or is rolled back, and retrying is the caller's decision.
func NewAnthropicClient(apiKey string, opts ...option.RequestOption) *anthropic.Client {
	base := []option.RequestOption{option.WithMaxRetries(0)}
	if apiKey != "" {
		base = append(base, option.WithAPIKey(apiKey))
	}
	c := anthropic.NewClient(append(base, opts...)...)
	return &c
}
