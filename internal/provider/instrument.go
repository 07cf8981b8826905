package provider

import (
	"context"
	"time"

	"github.com/petasbytes/simplechat/internal/metrics"
)

type instrumented struct {
	Backend
}

// Instrument records call counts and latency for b in the metrics registry.
// Each attempt is observed, so wrap before WithRetry to count retries.
func Instrument(b Backend) Backend {
	return &instrumented{Backend: b}
}

func (i *instrumented) Complete(ctx context.Context, req Request) (Completion, error) {
	start := time.Now()
	c, err := i.Backend.Complete(ctx, req)
	metrics.ObserveExternalCall(i.Name(), "chat", start, err)
	return c, err
}

func (i *instrumented) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	start := time.Now()
	url, err := i.Backend.GenerateImage(ctx, req)
	metrics.ObserveExternalCall(i.Name(), "image", start, err)
	return url, err
}
