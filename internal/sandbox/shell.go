package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"mvdan.cc/sh/v3/syntax"
)

// waitDelay bounds how long Run waits for output pipes after the shell has
// been killed. Background children that inherited stdout would otherwise
// hold Wait open until they exit.
const waitDelay = 2 * time.Second

// Shell runs command with the sandbox root as working directory and returns
// the composed output:
//
//	stdout:\n<stdout>
//	stderr:\n<stderr>
//	(exit code: N)
//
// Sections are omitted when empty; "(no output)" is returned when all are.
// A non-zero exit is reported in the text, not as an error.
//
// On timeout only the shell process is killed. Processes it started in the
// background or detached (&, nohup, setsid) are not in a killed process group
// and may keep running after Shell returns.
func (s *Sandbox) Shell(ctx context.Context, command string) (string, error) {
	if strings.TrimSpace(command) == "" {
		return "", ToolError{Code: CodeExecution, Message: "empty command"}
	}
	if err := checkSyntax(command); err != nil {
		return "", err
	}

	cctx, cancel := context.WithTimeout(ctx, s.shellTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, shellPath(), "-c", command)
	cmd.Dir = s.root
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		msg := fmt.Sprintf("command timed out and was killed after %s; child processes it spawned may still be running. "+
			"For long-running commands detach them fully (e.g. screen -dmS name command) and check on them later", s.shellTimeout)
		return "", ToolError{Code: CodeTimedOut, Message: msg}
	}
	if ctx.Err() != nil {
		return "", ToolError{Code: CodeExecution, Message: fmt.Sprintf("command cancelled: %v", ctx.Err())}
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			exitCode = exitErr.ExitCode()
		case errors.Is(err, exec.ErrWaitDelay):
			// the shell exited; a background child kept the pipes open
		default:
			return "", ToolError{Code: CodeExecution, Message: err.Error()}
		}
	}
	return composeOutput(stdout.String(), stderr.String(), exitCode), nil
}

func composeOutput(stdout, stderr string, exitCode int) string {
	var parts []string
	if stdout != "" {
		parts = append(parts, "stdout:\n"+stdout)
	}
	if stderr != "" {
		parts = append(parts, "stderr:\n"+stderr)
	}
	if exitCode != 0 {
		parts = append(parts, fmt.Sprintf("(exit code: %d)", exitCode))
	}
	if len(parts) == 0 {
		return "(no output)"
	}
	return strings.Join(parts, "\n")
}

// checkSyntax rejects commands the shell could not parse, before anything
// is spawned.
func checkSyntax(command string) error {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash), syntax.KeepComments(false))
	if _, err := parser.Parse(strings.NewReader(command), ""); err != nil {
		return ToolError{Code: CodeExecution, Message: fmt.Sprintf("invalid shell syntax: %v", err)}
	}
	return nil
}

func shellPath() string {
	if p, err := exec.LookPath("bash"); err == nil {
		return p
	}
	return "/bin/sh"
}
