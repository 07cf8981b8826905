package runner_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/petasbytes/simplechat/internal/provider"
	"github.com/petasbytes/simplechat/memory"
	"github.com/petasbytes/simplechat/tools"
)

// scripted is a provider.Backend replaying completions in order and
// recording each request it receives.
type scripted struct {
	mu       sync.Mutex
	replies  []provider.Completion
	err      error
	requests []provider.Request
	image    string
	imageErr error
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Complete(_ context.Context, req provider.Request) (provider.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req.Messages = append([]memory.Message(nil), req.Messages...)
	s.requests = append(s.requests, req)
	if s.err != nil {
		return provider.Completion{}, s.err
	}
	if len(s.replies) == 0 {
		return provider.Completion{Content: "done"}, nil
	}
	c := s.replies[0]
	s.replies = s.replies[1:]
	return c, nil
}

func (s *scripted) GenerateImage(context.Context, provider.ImageRequest) (string, error) {
	return s.image, s.imageErr
}

func (s *scripted) sent() []provider.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]provider.Request(nil), s.requests...)
}

func constTool(name, out string) tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        name,
		Description: "returns " + out,
		InputSchema: tools.GenerateSchema[struct{}](),
		Function:    func(json.RawMessage) (string, error) { return out, nil },
	}
}

func dispatcherWith(t *testing.T, defs ...tools.ToolDefinition) *tools.Dispatcher {
	t.Helper()
	d := tools.NewDispatcher()
	for _, def := range defs {
		if err := d.Register(def); err != nil {
			t.Fatalf("register %s: %v", def.Name, err)
		}
	}
	return d
}

func observe(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SC_OBSERVE_JSON", "1")
	t.Setenv("SC_EVENTS_DIR", dir)
	return dir
}

func readEvents(t *testing.T, dir string) []map[string]any {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "events.jsonl"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("open events: %v", err)
	}
	defer f.Close()
	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	return out
}
