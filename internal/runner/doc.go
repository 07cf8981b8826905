// Package runner drives one chat turn against a provider backend and
// dispatches the tool calls the model asks for.
//
// Invariant:
//   - an assistant tool request and all of its function results are stored
//     together, before any further external call.
//   - turns of one conversation never overlap; different conversations run
//     concurrently.
//
// Flow:
//
//	user(text) -> assistant(tool_calls) -> function(result)... -> assistant(text)
package runner
