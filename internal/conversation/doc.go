// Package conversation holds the in-memory conversation model shared by the
// runner, the cache planner and persistence.
//
// Invariant:
//   - a message carrying ToolResult blocks has role user and immediately
//     follows the assistant message that emitted the matching ToolUse ids,
//     one result per request, in emission order.
//
// Flow:
//
//	user(text) -> assistant(tool_use...) -> user(tool_result...) -> assistant(text)
package conversation
