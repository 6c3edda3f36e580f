package tools_test

import (
	"context"
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/graft/internal/sandbox"
	"github.com/petasbytes/graft/tools"
)

func TestExecute_Success(t *testing.T) {
	ctx := context.Background()
	res := executor.Execute(ctx, "write_file", input(t, map[string]string{"path": rel(t, "f.txt"), "content": "data"}))
	require.False(t, res.IsError, res.Text)

	res = executor.Execute(ctx, "read_file", input(t, map[string]string{"path": rel(t, "f.txt")}))
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, "data", res.Text)
	assert.Empty(t, res.Code)
}

func TestExecute_ShellExec(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	res := executor.Execute(context.Background(), "shell_exec", input(t, map[string]string{"command": "echo ok"}))
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, "stdout:\nok\n", res.Text)
}

func TestExecute_FailuresBecomeResults(t *testing.T) {
	noShell := tools.NewExecutor(sb, false)
	assert.Equal(t, []string{"list_dir", "read_file", "write_file"}, names(noShell.Definitions()))

	tests := []struct {
		name  string
		exec  *tools.Executor
		tool  string
		input json.RawMessage
		code  sandbox.Code
	}{
		{"unknown tool", executor, "edit_file", json.RawMessage(`{}`), sandbox.CodeUnknownTool},
		{"shell disabled", noShell, "shell_exec", json.RawMessage(`{"command":"echo hi"}`), sandbox.CodeDisabled},
		{"malformed input", executor, "read_file", json.RawMessage(`{"path":1}`), sandbox.CodeExecution},
		{"escape", executor, "read_file", json.RawMessage(`{"path":"../../etc/passwd"}`), sandbox.CodeSandboxViolation},
		{"missing file", executor, "read_file", json.RawMessage(`{"path":"nope/none.txt"}`), sandbox.CodeNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := tc.exec.Execute(context.Background(), tc.tool, tc.input)
			assert.True(t, res.IsError)
			assert.Equal(t, tc.code, res.Code)

			var body sandbox.ToolError
			require.NoError(t, json.Unmarshal([]byte(res.Text), &body))
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestExecute_RecoversPanics(t *testing.T) {
	broken := tools.NewExecutor(nil, false)
	var res tools.Result
	require.NotPanics(t, func() {
		res = broken.Execute(context.Background(), "list_dir", json.RawMessage(`{"path":"."}`))
	})
	assert.True(t, res.IsError)
	assert.Equal(t, sandbox.CodeExecution, res.Code)
	assert.Contains(t, res.Text, "panic")
}
