// Package tools defines tool contracts and the dispatcher that runs them.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Dispatcher: register-once name lookup; unknown names fail with ErrNotFound.
//   - Built-in tools: current_time.
package tools
