package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ToolDefinition describes a callable the model may request by name.
// Function receives the raw JSON arguments chosen by the model.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Function    func(input json.RawMessage) (string, error)
}

// Call is a model request to run the named tool.
type Call struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// GenerateSchema derives the JSON Schema of T, inlined and closed to extra properties.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// Parameters returns the input schema as a plain JSON object schema
// ({"type":"object","properties":...,"required":...}) suitable for providers.
func (d ToolDefinition) Parameters() map[string]any {
	params := map[string]any{"type": "object"}
	if d.InputSchema != nil && d.InputSchema.Properties != nil && d.InputSchema.Properties.Len() > 0 {
		params["properties"] = d.InputSchema.Properties
	} else {
		params["properties"] = map[string]any{}
	}
	if d.InputSchema != nil && len(d.InputSchema.Required) > 0 {
		params["required"] = d.InputSchema.Required
	}
	return params
}
