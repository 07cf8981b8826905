package telemetry

import "os"

// DefaultEventsDir is where events.jsonl is written when SC_EVENTS_DIR is unset.
const DefaultEventsDir = ".simplechat"

// ObserveEnabled reports whether JSONL emission is on (SC_OBSERVE_JSON=1).
// The variable is read on every call so tests can toggle it with t.Setenv.
func ObserveEnabled() bool {
	return os.Getenv("SC_OBSERVE_JSON") == "1"
}

// EventsDir returns the directory holding events.jsonl.
func EventsDir() string {
	if v := os.Getenv("SC_EVENTS_DIR"); v != "" {
		return v
	}
	return DefaultEventsDir
}
