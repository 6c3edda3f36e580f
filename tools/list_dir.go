package tools

import (
	"context"
	"encoding/json"

	"github.com/petasbytes/graft/internal/sandbox"
)

type ListDirInput struct {
	Path string `json:"path" jsonschema_description:"Path to directory, relative to project root. Use '.' for project root."`
}

var ListDirDefinition = ToolDefinition{
	Name:        "list_dir",
	Description: "List contents of a directory. Returns file names with [d] prefix for directories.",
	InputSchema: ListDirInputSchema,
	Function:    ListDir,
}

var ListDirInputSchema = GenerateSchema[ListDirInput]()

// ListDir lists one directory level. An empty path means the root.
func ListDir(_ context.Context, sb *sandbox.Sandbox, input json.RawMessage) (string, error) {
	in, err := decodeInput[ListDirInput](input)
	if err != nil {
		return "", err
	}
	return sb.ListDir(in.Path)
}
