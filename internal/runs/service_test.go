package runs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"legal-backend/internal/llm"
)

const (
	validOptimizationJSON = `{"optimized_text": "We retain personal data for 30 days.", "modifications": [{"type": "modify", "original_text": "retain personal data", "suggested_text": "retain personal data for 30 days", "legal_basis": "Art. 5(1)(e)"}], "summary": "added retention period"}`
	validTranslationJSON  = `{"translated_text": "Wir speichern personenbezogene Daten 30 Tage.", "translated_modifications": [{"type": "modify", "original_text": "speichern Daten", "suggested_text": "speichern Daten 30 Tage"}], "target_language": "de"}`
)

func newTestService(client llm.Client) *Service {
	return &Service{
		Repo:     NewMemoryRepo(),
		Exec:     &Executor{LLM: client},
		inFlight: make(map[string]struct{}),
	}
}

func startRun(t *testing.T, svc *Service, targetLang string) AnalysisRun {
	t.Helper()
	run, err := svc.Start(context.Background(), StartParams{
		DocumentText:     "We retain personal data indefinitely.",
		PrimaryFramework: "gdpr",
		TargetLanguage:   targetLang,
	})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	return run
}

func collectEvents(svc *Service, runID string) []Event {
	var events []Event
	svc.Execute(context.Background(), runID, func(ev Event) {
		events = append(events, ev)
	})
	return events
}

func TestStartValidation(t *testing.T) {
	svc := newTestService(&scriptedLLM{})
	ctx := context.Background()

	if _, err := svc.Start(ctx, StartParams{PrimaryFramework: "gdpr"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty text: err = %v", err)
	}
	if _, err := svc.Start(ctx, StartParams{DocumentText: "x", PrimaryFramework: "blorp"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown framework: err = %v", err)
	}
	if _, err := svc.Start(ctx, StartParams{DocumentText: "x", PrimaryFramework: "gdpr", SecondaryFramework: "gdpr"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("secondary == primary: err = %v", err)
	}
}

func TestStartOmitsTranslationWithoutTargetLanguage(t *testing.T) {
	svc := newTestService(&scriptedLLM{})
	run := startRun(t, svc, "")
	if len(run.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(run.Steps))
	}
	run = startRun(t, svc, "de")
	if len(run.Steps) != 3 || run.Steps[2].Name != StepTranslation {
		t.Fatalf("steps = %+v, want translation last", run.Steps)
	}
}

func TestExecuteEmitsOrderedEvents(t *testing.T) {
	client := &scriptedLLM{responses: []string{validAnalysisJSON, validOptimizationJSON, validTranslationJSON}}
	svc := newTestService(client)
	run := startRun(t, svc, "de")

	events := collectEvents(svc, run.ID)
	if len(events) == 0 {
		t.Fatal("no events emitted")
	}
	if events[0].Type != EventProgress || events[0].Progress == nil || *events[0].Progress != 0 {
		t.Errorf("first event = %+v, want progress 0", events[0])
	}
	last := events[len(events)-1]
	if last.Type != EventComplete {
		t.Fatalf("last event type = %s, want complete", last.Type)
	}

	var steps []StepName
	prev := -1
	for _, ev := range events {
		switch ev.Type {
		case EventStepResult:
			steps = append(steps, ev.Step)
		case EventProgress:
			if *ev.Progress < prev {
				t.Errorf("progress regressed: %d after %d", *ev.Progress, prev)
			}
			prev = *ev.Progress
		}
	}
	if prev != 100 {
		t.Errorf("final progress = %d, want 100", prev)
	}
	want := []StepName{StepLegalAnalysis, StepOptimization, StepTranslation}
	if len(steps) != len(want) {
		t.Fatalf("step results = %v, want %v", steps, want)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Errorf("step result %d = %s, want %s", i, steps[i], want[i])
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(last.Result, &snap); err != nil {
		t.Fatalf("unmarshal complete payload: %v", err)
	}
	if snap.CompletedStepCount != 3 || snap.FailedStepCount != 0 {
		t.Errorf("snapshot counters = %d/%d, want 3/0", snap.CompletedStepCount, snap.FailedStepCount)
	}
	if snap.CompletedAt == nil {
		t.Error("completed run should have completedAt set")
	}
}

func TestExecuteStepFailureEndsStreamWithoutComplete(t *testing.T) {
	client := &scriptedLLM{responses: []string{"garbled, not JSON"}}
	svc := newTestService(client)
	run := startRun(t, svc, "de")

	events := collectEvents(svc, run.ID)
	for _, ev := range events {
		if ev.Type == EventComplete {
			t.Fatal("failed run must not emit a complete event")
		}
	}

	stored, err := svc.Repo.GetByID(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("load run: %v", err)
	}
	step := stored.StepByName(StepLegalAnalysis)
	if step.Status != StatusFailed {
		t.Fatalf("step status = %s, want failed", step.Status)
	}
	if step.Error == nil || step.Error.Reason != FailureParse {
		t.Errorf("step error = %+v, want parse_error", step.Error)
	}
	if opt := stored.StepByName(StepOptimization); opt.Status != StatusPending {
		t.Errorf("downstream step status = %s, want pending", opt.Status)
	}
	if got := stored.CanRetry(); len(got) != 1 || got[0] != StepLegalAnalysis {
		t.Errorf("can retry = %v, want [legal_analysis]", got)
	}
}

func TestRetryReplacesFailedStepResult(t *testing.T) {
	client := &scriptedLLM{responses: []string{"garbled", validAnalysisJSON}}
	svc := newTestService(client)
	run := startRun(t, svc, "de")
	collectEvents(svc, run.ID)

	raw, err := svc.Retry(context.Background(), run.ID, StepLegalAnalysis)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	var res LegalAnalysisResult
	if err := json.Unmarshal(raw, &res); err != nil {
		t.Fatalf("unmarshal retry result: %v", err)
	}
	if res.ComplianceScore == nil || int(*res.ComplianceScore) != 62 {
		t.Errorf("score = %v, want 62", res.ComplianceScore)
	}

	stored, _ := svc.Repo.GetByID(context.Background(), run.ID)
	if stored.StepByName(StepLegalAnalysis).Status != StatusSucceeded {
		t.Error("retried step should be succeeded")
	}
	if stored.CompletedSteps() != 1 || stored.FailedSteps() != 0 {
		t.Errorf("counters = %d/%d, want 1/0", stored.CompletedSteps(), stored.FailedSteps())
	}
	// Downstream steps stay pending; a retry never cascades.
	if stored.StepByName(StepOptimization).Status != StatusPending {
		t.Error("optimization should remain pending after upstream retry")
	}
}

func TestRetryPreconditions(t *testing.T) {
	client := &scriptedLLM{responses: []string{"garbled"}}
	svc := newTestService(client)
	run := startRun(t, svc, "de")
	collectEvents(svc, run.ID)
	ctx := context.Background()

	if _, err := svc.Retry(ctx, "missing-run", StepLegalAnalysis); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing run: err = %v", err)
	}
	if _, err := svc.Retry(ctx, run.ID, StepOptimization); !errors.Is(err, ErrStepNotFailed) {
		t.Errorf("pending step: err = %v", err)
	}

	// A failed step whose dependency also failed cannot be retried.
	stored, _ := svc.Repo.GetByID(ctx, run.ID)
	stored.StepByName(StepOptimization).Status = StatusFailed
	if err := svc.Repo.Update(ctx, stored); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := svc.Retry(ctx, run.ID, StepOptimization); !errors.Is(err, ErrDependencyNotMet) {
		t.Errorf("unmet dependency: err = %v", err)
	}
}

type blockingLLM struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	_ = req
	close(b.started)
	select {
	case <-b.release:
		return validAnalysisJSON, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestRetrySerializesPerStep(t *testing.T) {
	svc := newTestService(&scriptedLLM{responses: []string{"garbled"}})
	run := startRun(t, svc, "")
	collectEvents(svc, run.ID)

	block := &blockingLLM{started: make(chan struct{}), release: make(chan struct{})}
	svc.Exec.LLM = block

	done := make(chan error, 1)
	go func() {
		_, err := svc.Retry(context.Background(), run.ID, StepLegalAnalysis)
		done <- err
	}()

	<-block.started
	if _, err := svc.Retry(context.Background(), run.ID, StepLegalAnalysis); !errors.Is(err, ErrRetryInFlight) {
		t.Errorf("concurrent retry: err = %v, want ErrRetryInFlight", err)
	}

	close(block.release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("first retry: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first retry did not finish")
	}

	stored, _ := svc.Repo.GetByID(context.Background(), run.ID)
	if stored.StepByName(StepLegalAnalysis).Status != StatusSucceeded {
		t.Error("retried step should be succeeded once the in-flight retry finishes")
	}
}

func TestRetryFailureReturnsTypedFailure(t *testing.T) {
	client := &scriptedLLM{responses: []string{"garbled", "still garbled"}}
	svc := newTestService(client)
	run := startRun(t, svc, "")
	collectEvents(svc, run.ID)

	_, err := svc.Retry(context.Background(), run.ID, StepLegalAnalysis)
	var failure *Failure
	if !errors.As(err, &failure) || failure.Reason != FailureParse {
		t.Fatalf("err = %v, want *Failure with parse_error", err)
	}

	stored, _ := svc.Repo.GetByID(context.Background(), run.ID)
	step := stored.StepByName(StepLegalAnalysis)
	if step.Status != StatusFailed || step.Error == nil {
		t.Errorf("step after failed retry = %+v, want failed with error", step)
	}
}

func TestProgressIsFloorOfCompletedOverTotal(t *testing.T) {
	client := &scriptedLLM{responses: []string{validAnalysisJSON, validOptimizationJSON, validTranslationJSON}}
	svc := newTestService(client)
	run := startRun(t, svc, "de")

	seen := map[int]bool{}
	for _, ev := range collectEvents(svc, run.ID) {
		if ev.Type == EventProgress {
			seen[*ev.Progress] = true
		}
	}
	for _, want := range []int{0, 33, 66, 100} {
		if !seen[want] {
			t.Errorf("progress %d never emitted; saw %v", want, seen)
		}
	}
}
