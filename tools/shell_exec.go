package tools

import (
	"context"
	"encoding/json"

	"github.com/petasbytes/graft/internal/sandbox"
)

type ShellExecInput struct {
	Command string `json:"command" jsonschema_description:"Shell command to execute"`
}

var ShellExecDefinition = ToolDefinition{
	Name: "shell_exec",
	Description: `Execute a shell command in the project directory. Returns stdout/stderr and the exit code when non-zero.

TIMEOUT: commands are killed after 30 seconds. Only the shell itself is killed; anything it started in the background may keep running.
For long-running operations use screen -dmS name command, or redirect output to a file and check on it later.
Backgrounding (&) and nohup do not reliably preserve pipelines.`,
	InputSchema: ShellExecInputSchema,
	Function:    ShellExec,
}

var ShellExecInputSchema = GenerateSchema[ShellExecInput]()

// ShellExec runs the command through the sandbox shell.
func ShellExec(ctx context.Context, sb *sandbox.Sandbox, input json.RawMessage) (string, error) {
	in, err := decodeInput[ShellExecInput](input)
	if err != nil {
		return "", err
	}
	if in.Command == "" {
		return "", missing("command")
	}
	return sb.Shell(ctx, in.Command)
}
