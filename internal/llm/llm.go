package llm

import (
	"context"
	"errors"
)

// Request carries one completion call to the language-model collaborator.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

// Client abstracts language-model providers. The response is free-form text
// that is expected, not guaranteed, to embed a single JSON object.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Transport-level failure modes surfaced by provider clients.
var (
	ErrUnauthorized = errors.New("llm unauthorized")
	ErrRateLimited  = errors.New("llm rate limited")
	ErrUnavailable  = errors.New("llm unavailable")
	ErrTimeout      = errors.New("llm request timeout")
)

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("llm client not configured")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(ctx context.Context, req Request) (string, error) {
	_ = ctx
	_ = req
	return "", ErrNotConfigured
}
