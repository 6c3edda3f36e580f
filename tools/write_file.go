package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/petasbytes/graft/internal/sandbox"
)

type WriteFileInput struct {
	Path    string  `json:"path" jsonschema_description:"Path to file, relative to project root."`
	Content *string `json:"content" jsonschema_description:"Content to write to the file."`
}

var WriteFileDefinition = ToolDefinition{
	Name:        "write_file",
	Description: "Write content to a file. Creates the file and any parent directories if they don't exist, overwrites the file if it does.",
	InputSchema: WriteFileInputSchema,
	Function:    WriteFile,
}

var WriteFileInputSchema = GenerateSchema[WriteFileInput]()

// WriteFile replaces the file contents. Empty content is allowed; a missing
// content field is not.
func WriteFile(_ context.Context, sb *sandbox.Sandbox, input json.RawMessage) (string, error) {
	in, err := decodeInput[WriteFileInput](input)
	if err != nil {
		return "", err
	}
	if in.Path == "" {
		return "", missing("path")
	}
	if in.Content == nil {
		return "", missing("content")
	}
	n, err := sb.WriteFile(in.Path, *in.Content)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully wrote %d bytes to %s", n, in.Path), nil
}
