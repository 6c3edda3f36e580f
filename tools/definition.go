package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"

	"github.com/petasbytes/graft/internal/sandbox"
)

// ToolDefinition describes one tool and its handler.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema anthropic.ToolInputSchemaParam
	Function    func(ctx context.Context, sb *sandbox.Sandbox, input json.RawMessage) (string, error)
}

// GenerateSchema reflects T into an inline input schema. Fields without
// omitempty are required.
func GenerateSchema[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return anthropic.ToolInputSchemaParam{
		Properties: schema.Properties,
		Required:   schema.Required,
	}
}

// decodeInput unmarshals the model's tool input into T.
func decodeInput[T any](input json.RawMessage) (T, error) {
	var v T
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(input, &v); err != nil {
		return v, sandbox.ToolError{Code: sandbox.CodeExecution, Message: fmt.Sprintf("invalid input: %v", err)}
	}
	return v, nil
}

func missing(field string) error {
	return sandbox.ToolError{Code: sandbox.CodeExecution, Message: fmt.Sprintf("invalid input: %s is required", field)}
}
