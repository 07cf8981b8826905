package windowing

import (
	"github.com/petasbytes/simplechat/internal/metrics"
	"github.com/petasbytes/simplechat/memory"
)

// TokenCounter estimates input-token cost for messages or groups.
type TokenCounter interface {
	CountMessage(m memory.Message) int
	CountGroup(g memory.Group, all []memory.Message) int
}

// HeuristicCounter is the default deterministic estimator.
// Rules:
//   - content: rune count
//   - tool calls: rune count of name plus arguments, per call
//   - a fixed per-message overhead for role/formatting
type HeuristicCounter struct{}

// Fixed per-message overhead for deterministic counts; changing this requires updating the guard test.
const messageOverhead = 4

func (HeuristicCounter) CountMessage(m memory.Message) int {
	total := metrics.CountFeatures(m.Content).Runes + messageOverhead
	for _, c := range m.ToolCalls {
		total += metrics.CountFeatures(c.Name).Add(metrics.CountFeatures(c.Arguments)).Runes
	}
	return total
}

func (h HeuristicCounter) CountGroup(g memory.Group, all []memory.Message) int {
	total := 0
	for i := g.Start; i < g.End && i < len(all); i++ {
		total += h.CountMessage(all[i])
	}
	return total
}
