package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const eventsFile = "events.jsonl"

var emitMu sync.Mutex

// Emit appends one event line to <EventsDir>/events.jsonl when SC_OBSERVE_JSON=1.
// The line holds fields plus "event" and an RFC3339Nano "time"; fields is not modified.
func Emit(name string, fields map[string]any) {
	if !ObserveEnabled() {
		return
	}
	line, err := encode(name, fields)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: encode %s: %v\n", name, err)
		return
	}
	if err := appendLine(EventsDir(), line); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: %v\n", err)
	}
}

// EmitContext is Emit with "turn_id" taken from ctx unless fields sets it.
func EmitContext(ctx context.Context, name string, fields map[string]any) {
	if !ObserveEnabled() {
		return
	}
	if _, set := fields["turn_id"]; !set {
		if id, ok := TurnIDFromContext(ctx); ok {
			withTurn := make(map[string]any, len(fields)+1)
			for k, v := range fields {
				withTurn[k] = v
			}
			withTurn["turn_id"] = id
			fields = withTurn
		}
	}
	Emit(name, fields)
}

func encode(name string, fields map[string]any) ([]byte, error) {
	ev := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		ev[k] = v
	}
	ev["event"] = name
	ev["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// appendLine writes line under emitMu so concurrent turns never interleave.
func appendLine(dir string, line []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, eventsFile)

	emitMu.Lock()
	defer emitMu.Unlock()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
