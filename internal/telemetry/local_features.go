package telemetry

import (
	"context"

	"github.com/petasbytes/simplechat/internal/metrics"
)

// EmitLocalFeatures records size features of a user prompt (never the prompt itself).
func EmitLocalFeatures(ctx context.Context, conversationID, prompt string) {
	if !ObserveEnabled() {
		return
	}
	f := metrics.CountFeatures(prompt)
	EmitContext(ctx, "local_features", map[string]any{
		"conversation_id":  conversationID,
		"features_version": "1",
		"user": map[string]any{
			"bytes": f.Bytes,
			"runes": f.Runes,
			"words": f.Words,
			"lines": f.Lines,
		},
	})
}
