// Package tools defines the sandboxed tools offered to the model and the
// executor that runs them.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - File tools: list_dir, read_file, write_file. Shell tool: shell_exec.
//   - Executor: the error boundary. Execute always returns a Result; tool
//     failures and panics become error results for the model.
package tools
