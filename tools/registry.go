package tools

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNotFound is returned by Dispatch for a tool name that was never registered.
	ErrNotFound = errors.New("tool not found")
	// ErrDuplicate is returned by Register when the name is already in use.
	ErrDuplicate = errors.New("tool already registered")
)

// Dispatcher maps tool names to their definitions and runs them on request.
// Tools are registered once and never removed.
type Dispatcher struct {
	mu    sync.RWMutex
	tools map[string]ToolDefinition
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{tools: make(map[string]ToolDefinition)}
}

// Register adds def under def.Name.
func (d *Dispatcher) Register(def ToolDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if def.Function == nil {
		return fmt.Errorf("tool %s has no function", def.Name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.tools[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, def.Name)
	}
	d.tools[def.Name] = def
	return nil
}

// Lookup returns the definition registered under name.
func (d *Dispatcher) Lookup(name string) (ToolDefinition, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	def, ok := d.tools[name]
	return def, ok
}

// Definitions returns all registered tools ordered by name.
func (d *Dispatcher) Definitions() []ToolDefinition {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]ToolDefinition, 0, len(d.tools))
	for _, def := range d.tools {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len reports the number of registered tools.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.tools)
}

// Dispatch runs the tool named by call synchronously and returns its result.
// A panicking tool is reported as an error.
func (d *Dispatcher) Dispatch(call Call) (out string, err error) {
	def, ok := d.Lookup(call.Name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, call.Name)
	}
	input := call.Arguments
	if len(input) == 0 {
		input = []byte("{}")
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("tool %s panicked: %v", call.Name, r)
		}
	}()
	out, err = def.Function(input)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", call.Name, err)
	}
	return out, nil
}
