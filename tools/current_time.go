package tools

import (
	"encoding/json"
	"fmt"
	"time"
)

type CurrentTimeInput struct {
	Timezone string `json:"timezone,omitempty" jsonschema_description:"IANA timezone name, e.g. Europe/London. Defaults to the client's timezone."`
}

var CurrentTimeInputSchema = GenerateSchema[CurrentTimeInput]()

// CurrentTimeDefinition reports the current date and time, defaulting to loc.
// now is injectable for tests; nil means time.Now.
func CurrentTimeDefinition(loc *time.Location, now func() time.Time) ToolDefinition {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return ToolDefinition{
		Name:        "current_time",
		Description: "Get the current date, time and weekday, optionally in a given IANA timezone.",
		InputSchema: CurrentTimeInputSchema,
		Function: func(input json.RawMessage) (string, error) {
			var in CurrentTimeInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", err
			}
			l := loc
			if in.Timezone != "" {
				var err error
				if l, err = time.LoadLocation(in.Timezone); err != nil {
					return "", fmt.Errorf("unknown timezone %q", in.Timezone)
				}
			}
			t := now().In(l)
			return fmt.Sprintf("%s (%s, %s)", t.Format(time.RFC3339), t.Weekday(), l.String()), nil
		},
	}
}

// Registry returns the built-in tool definitions wired for the CLI.
func Registry(loc *time.Location) []ToolDefinition {
	return []ToolDefinition{CurrentTimeDefinition(loc, nil)}
}
