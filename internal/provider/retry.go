package provider

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds exponential backoff around external calls.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxElapsedTime:  10 * time.Second,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if p.MaxElapsedTime > 0 {
		b.MaxElapsedTime = p.MaxElapsedTime
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

func withRetry[T any](ctx context.Context, p RetryPolicy, op func() (T, error)) (T, error) {
	var out T
	err := backoff.Retry(func() error {
		v, err := op()
		if err != nil {
			if !Retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = v
		return nil
	}, p.backOff(ctx))
	return out, err
}

type retrying struct {
	Backend
	policy RetryPolicy
}

// WithRetry wraps b so that transient failures are retried under p.
func WithRetry(b Backend, p RetryPolicy) Backend {
	return &retrying{Backend: b, policy: p}
}

func (r *retrying) Complete(ctx context.Context, req Request) (Completion, error) {
	return withRetry(ctx, r.policy, func() (Completion, error) { return r.Backend.Complete(ctx, req) })
}

func (r *retrying) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	return withRetry(ctx, r.policy, func() (string, error) { return r.Backend.GenerateImage(ctx, req) })
}
