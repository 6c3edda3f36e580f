package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/petasbytes/graft/internal/logging"
	"github.com/petasbytes/graft/internal/sandbox"
)

// Result is the text returned to the model for one tool call.
type Result struct {
	Text    string
	IsError bool
	Code    sandbox.Code // empty on success
}

// Executor runs tools against one sandbox.
type Executor struct {
	sandbox *sandbox.Sandbox
	shell   bool
}

// NewExecutor binds the tools to sb. shell controls whether shell_exec is
// offered and allowed.
func NewExecutor(sb *sandbox.Sandbox, shell bool) *Executor {
	return &Executor{sandbox: sb, shell: shell}
}

// Root returns the sandbox root.
func (e *Executor) Root() string { return e.sandbox.Root() }

// ShellEnabled reports whether shell_exec is allowed.
func (e *Executor) ShellEnabled() bool { return e.shell }

// Definitions returns the tools to advertise.
func (e *Executor) Definitions() []ToolDefinition { return Registry(e.shell) }

// Execute runs the named tool. It never returns an error and never panics:
// every failure is folded into an error Result.
func (e *Executor) Execute(ctx context.Context, name string, input json.RawMessage) (res Result) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res = errorResult(sandbox.ToolError{Code: sandbox.CodeExecution, Message: fmt.Sprintf("panic: %v", p)})
		}
		logging.Debug().
			Str("tool", name).
			Int("input_size", len(input)).
			Int("output_size", len(res.Text)).
			Str("code", string(res.Code)).
			Dur("elapsed", time.Since(start)).
			Msg("tool executed")
	}()

	def, ok := Lookup(name)
	if !ok {
		return errorResult(sandbox.ToolError{Code: sandbox.CodeUnknownTool, Message: fmt.Sprintf("unknown tool %q", name)})
	}
	if def.Name == ShellExecDefinition.Name && !e.shell {
		return errorResult(sandbox.ToolError{Code: sandbox.CodeDisabled, Message: "shell_exec is not enabled for this conversation"})
	}

	out, err := def.Function(ctx, e.sandbox, input)
	if err != nil {
		return errorResult(err)
	}
	return Result{Text: out}
}

func errorResult(err error) Result {
	var te sandbox.ToolError
	if !errors.As(err, &te) {
		te = sandbox.ToolError{Code: sandbox.CodeExecution, Message: fmt.Sprintf("%T: %v", err, err)}
	}
	return Result{Text: te.Error(), IsError: true, Code: te.Code}
}
