package runs

import (
	"context"
	"testing"
	"time"

	"legal-backend/internal/llm"
)

func TestRetryingClientRetriesTransientErrors(t *testing.T) {
	base := &scriptedLLM{
		errs:      []error{llm.ErrUnavailable, nil},
		responses: []string{"", "recovered"},
	}
	client := &retryingClient{base: base, delay: time.Millisecond}

	got, err := client.Complete(context.Background(), llm.Request{UserPrompt: "p"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != "recovered" || base.calls != 2 {
		t.Errorf("got %q after %d calls, want recovered after 2", got, base.calls)
	}
}

func TestRetryingClientPassesThroughPermanentErrors(t *testing.T) {
	base := &scriptedLLM{errs: []error{llm.ErrUnauthorized}}
	client := &retryingClient{base: base, delay: time.Millisecond}

	if _, err := client.Complete(context.Background(), llm.Request{UserPrompt: "p"}); err == nil {
		t.Fatal("expected error")
	}
	if base.calls != 1 {
		t.Errorf("calls = %d, want 1", base.calls)
	}
}

type alwaysTimeoutLLM struct {
	calls int
}

func (a *alwaysTimeoutLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	_ = ctx
	_ = req
	a.calls++
	return "", llm.ErrTimeout
}

func TestRetryingClientHonorsContext(t *testing.T) {
	base := &alwaysTimeoutLLM{}
	client := &retryingClient{base: base, delay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Complete(ctx, llm.Request{UserPrompt: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	if base.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry after cancellation)", base.calls)
	}
}
