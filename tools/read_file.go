package tools

import (
	"context"
	"encoding/json"

	"github.com/petasbytes/graft/internal/sandbox"
)

type ReadFileInput struct {
	Path string `json:"path" jsonschema_description:"Path to file, relative to project root."`
}

var ReadFileDefinition = ToolDefinition{
	Name:        "read_file",
	Description: "Read the contents of a text file.",
	InputSchema: ReadFileInputSchema,
	Function:    ReadFile,
}

var ReadFileInputSchema = GenerateSchema[ReadFileInput]()

// ReadFile returns the whole file. Non-UTF-8 content is rejected.
func ReadFile(_ context.Context, sb *sandbox.Sandbox, input json.RawMessage) (string, error) {
	in, err := decodeInput[ReadFileInput](input)
	if err != nil {
		return "", err
	}
	if in.Path == "" {
		return "", missing("path")
	}
	return sb.ReadFile(in.Path)
}
