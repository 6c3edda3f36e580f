package sandbox

import (
	"encoding/json"
	"errors"
)

// Code classifies a ToolError.
type Code string

const (
	CodeSandboxViolation Code = "ERR_SANDBOX_VIOLATION"
	CodeNotFound         Code = "ERR_NOT_FOUND"
	CodeNotAFile         Code = "ERR_NOT_A_FILE"
	CodeNotADirectory    Code = "ERR_NOT_A_DIRECTORY"
	CodeDecode           Code = "ERR_DECODE"
	CodeTimedOut         Code = "ERR_TIMED_OUT"
	CodeExecution        Code = "ERR_EXECUTION"
	CodeUnknownTool      Code = "ERR_UNKNOWN_TOOL"
	CodeDisabled         Code = "ERR_DISABLED"
)

// ToolError is a machine-readable error body for surfacing back to the model as JSON.
type ToolError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Error returns a compact, single-line JSON string to keep tool_result payloads small.
func (e ToolError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// HasCode reports whether err is a ToolError with code c.
func HasCode(err error, c Code) bool {
	var te ToolError
	return errors.As(err, &te) && te.Code == c
}

func violation(msg string) ToolError {
	return ToolError{Code: CodeSandboxViolation, Message: msg}
}
