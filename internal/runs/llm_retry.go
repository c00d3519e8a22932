package runs

import (
	"context"
	"errors"
	"time"

	"legal-backend/internal/llm"
	"legal-backend/internal/shared/telemetry"
)

// retryingClient wraps an llm.Client with a single in-call retry for
// transient transport failures. Permanent errors (auth, malformed request)
// pass through on the first attempt.
type retryingClient struct {
	base  llm.Client
	delay time.Duration
}

func withRetry(base llm.Client) llm.Client {
	return &retryingClient{base: base, delay: 300 * time.Millisecond}
}

func (r *retryingClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	content, err := r.base.Complete(ctx, req)
	if err == nil || !transient(err) {
		return content, err
	}

	telemetry.Info("llm.retry", map[string]any{"error": err.Error()})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(r.delay):
	}
	return r.base.Complete(ctx, req)
}

func transient(err error) bool {
	return errors.Is(err, llm.ErrTimeout) ||
		errors.Is(err, llm.ErrUnavailable) ||
		errors.Is(err, llm.ErrRateLimited)
}
