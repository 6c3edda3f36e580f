// Package runner drives one conversation turn against the model: it sends
// the prepared history, decodes the streamed reply and dispatches tool calls
// until the model stops asking for tools.
//
// Invariant:
//   - The conversation always ends on a completed turn. A turn that fails in
//     transport is rolled back to the message count it started from.
//
// Flow:
//
//	user(text) -> [assistant(tool_use...) -> user(tool_result...)]* -> assistant(final)
//
// A turn moves through explicit states:
//
//	idle -> awaiting_response -> streaming -> [executing_tools -> awaiting_response]* -> done | failed -> idle
package runner
