package runs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"legal-backend/internal/frameworks"
	"legal-backend/internal/llm"
	"legal-backend/internal/shared/metrics"
	"legal-backend/internal/shared/telemetry"
)

// Service orchestrates the analysis pipeline: run creation, sequential step
// execution with progress events, and targeted retries of failed steps.
type Service struct {
	Repo Repo
	Exec *Executor

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewService constructs a Service around the repo and model client.
func NewService(repo Repo, client llm.Client) *Service {
	return &Service{
		Repo:     repo,
		Exec:     &Executor{LLM: withRetry(client)},
		inFlight: make(map[string]struct{}),
	}
}

// StartParams describes a new analysis run.
type StartParams struct {
	DocumentID         string
	DocumentText       string
	PrimaryFramework   string
	SecondaryFramework string
	TargetLanguage     string
}

// Start validates the request and persists a fresh run with every step
// pending. Execution happens separately so the caller can begin streaming
// before the first model call.
func (s *Service) Start(ctx context.Context, p StartParams) (AnalysisRun, error) {
	if strings.TrimSpace(p.DocumentText) == "" {
		return AnalysisRun{}, fmt.Errorf("%w: document text is required", ErrInvalidInput)
	}
	sel, err := frameworks.NewSelection(p.PrimaryFramework, p.SecondaryFramework)
	if err != nil {
		return AnalysisRun{}, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	now := time.Now().UTC()
	run := AnalysisRun{
		ID:               uuid.NewString(),
		DocumentID:       p.DocumentID,
		DocumentText:     p.DocumentText,
		PrimaryFramework: string(sel.Primary),
		TargetLanguage:   strings.TrimSpace(p.TargetLanguage),
		Steps:            newSteps(strings.TrimSpace(p.TargetLanguage) != ""),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if sel.Secondary != nil {
		run.SecondaryFramework = string(*sel.Secondary)
	}
	if err := s.Repo.Create(ctx, run); err != nil {
		return AnalysisRun{}, err
	}
	metrics.IncRunStarted()
	telemetry.Info("run.created", map[string]any{
		"run_id":    run.ID,
		"primary":   run.PrimaryFramework,
		"secondary": run.SecondaryFramework,
		"steps":     len(run.Steps),
	})
	return run, nil
}

// Execute drives the run's pipeline to completion, emitting events to sink.
// The pipeline runs on a context detached from cancellation: a consumer that
// stops reading the stream does not abort the analysis, it only stops seeing
// events. On any step failure the stream ends without a complete event and
// the run is left for targeted retries.
func (s *Service) Execute(ctx context.Context, runID string, sink EventSink) {
	ctx = context.WithoutCancel(ctx)

	run, err := s.Repo.GetByID(ctx, runID)
	if err != nil {
		telemetry.Error("run.load", map[string]any{"run_id": runID, "error": err.Error()})
		return
	}

	total := len(run.Steps)
	sink(progressEvent(0, "starting compliance review"))

	input := StepInput{
		DocumentText:       run.DocumentText,
		PrimaryFramework:   frameworks.DisplayName(frameworks.Framework(run.PrimaryFramework)),
		SecondaryFramework: secondaryDisplay(run.SecondaryFramework),
		TargetLanguage:     run.TargetLanguage,
	}

	for i := range run.Steps {
		step := &run.Steps[i]
		pct := 100 * run.CompletedSteps() / total
		sink(progressEvent(pct, stepMessage(step.Name)))

		step.Status = StatusRunning
		s.persist(ctx, &run)

		started := time.Now()
		raw, failure := s.Exec.Execute(ctx, step.Name, input)
		metrics.ObserveStepDurationMs(float64(time.Since(started).Milliseconds()))

		if failure != nil {
			step.Status = StatusFailed
			step.Error = &StepError{Reason: failure.Reason, Message: failure.Message}
			s.persist(ctx, &run)
			metrics.IncStepFailed()
			metrics.IncRunFailed()
			telemetry.Error("run.step_failed", map[string]any{
				"run_id": run.ID,
				"step":   string(step.Name),
				"reason": failure.Reason,
			})
			return
		}

		step.Status = StatusSucceeded
		step.Result = raw
		step.Error = nil
		s.persist(ctx, &run)
		telemetry.Info("run.step_succeeded", map[string]any{
			"run_id":      run.ID,
			"step":        string(step.Name),
			"duration_ms": time.Since(started).Milliseconds(),
		})

		sink(stepResultEvent(step.Name, raw))
		sink(progressEvent(100*run.CompletedSteps()/total, stepDoneMessage(step.Name)))

		if err := accumulate(&input, step.Name, raw); err != nil {
			telemetry.Error("run.accumulate", map[string]any{"run_id": run.ID, "error": err.Error()})
			return
		}
	}

	now := time.Now().UTC()
	run.CompletedAt = &now
	s.persist(ctx, &run)
	metrics.IncRunCompleted()
	telemetry.Info("run.completed", map[string]any{"run_id": run.ID})
	sink(completeEvent(run.Snapshot()))
}

// Retry re-executes a single failed step. Concurrent retries of the same
// step are rejected rather than queued; downstream results are left as they
// are even when stale relative to the new output.
func (s *Service) Retry(ctx context.Context, runID string, name StepName) (json.RawMessage, error) {
	run, err := s.Repo.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	step := run.StepByName(name)
	if step == nil {
		return nil, ErrUnknownStep
	}
	if step.Status != StatusFailed {
		return nil, ErrStepNotFailed
	}
	if !run.DependenciesSucceeded(name) {
		return nil, ErrDependencyNotMet
	}

	key := runID + "/" + string(name)
	s.mu.Lock()
	if _, busy := s.inFlight[key]; busy {
		s.mu.Unlock()
		return nil, ErrRetryInFlight
	}
	s.inFlight[key] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inFlight, key)
		s.mu.Unlock()
	}()

	step.Status = StatusRetrying
	s.persist(ctx, &run)
	metrics.IncStepRetried()
	telemetry.Info("run.step_retrying", map[string]any{"run_id": runID, "step": string(name)})

	input := StepInput{
		DocumentText:       run.DocumentText,
		PrimaryFramework:   frameworks.DisplayName(frameworks.Framework(run.PrimaryFramework)),
		SecondaryFramework: secondaryDisplay(run.SecondaryFramework),
		TargetLanguage:     run.TargetLanguage,
	}
	for i := range run.Steps {
		if run.Steps[i].Name == name {
			break
		}
		if err := accumulate(&input, run.Steps[i].Name, run.Steps[i].Result); err != nil {
			return nil, err
		}
	}

	raw, failure := s.Exec.Execute(context.WithoutCancel(ctx), name, input)
	if failure != nil {
		step.Status = StatusFailed
		step.Error = &StepError{Reason: failure.Reason, Message: failure.Message}
		s.persist(ctx, &run)
		metrics.IncStepFailed()
		telemetry.Error("run.step_failed", map[string]any{
			"run_id": runID,
			"step":   string(name),
			"reason": failure.Reason,
			"retry":  true,
		})
		return nil, failure
	}

	step.Status = StatusSucceeded
	step.Result = raw
	step.Error = nil
	if run.CompletedSteps() == len(run.Steps) {
		now := time.Now().UTC()
		run.CompletedAt = &now
		metrics.IncRunCompleted()
	}
	s.persist(ctx, &run)
	telemetry.Info("run.step_succeeded", map[string]any{"run_id": runID, "step": string(name), "retry": true})
	return raw, nil
}

// Get returns the run snapshot.
func (s *Service) Get(ctx context.Context, runID string) (Snapshot, error) {
	run, err := s.Repo.GetByID(ctx, runID)
	if err != nil {
		return Snapshot{}, err
	}
	return run.Snapshot(), nil
}

// List returns run snapshots newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Snapshot, error) {
	all, err := s.Repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	snaps := make([]Snapshot, 0, len(all))
	for _, run := range all {
		snaps = append(snaps, run.Snapshot())
	}
	return snaps, nil
}

// OptimizationResult returns the stored optimization output, or ErrNotReady
// when the step has not succeeded yet.
func (s *Service) OptimizationResult(ctx context.Context, run *AnalysisRun) (*OptimizationResult, error) {
	step := run.StepByName(StepOptimization)
	if step == nil || step.Status != StatusSucceeded {
		return nil, ErrNotReady
	}
	var res OptimizationResult
	if err := json.Unmarshal(step.Result, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// TranslationResult returns the stored translation output if present.
func (s *Service) TranslationResult(run *AnalysisRun) (*TranslationResult, bool) {
	step := run.StepByName(StepTranslation)
	if step == nil || step.Status != StatusSucceeded {
		return nil, false
	}
	var res TranslationResult
	if err := json.Unmarshal(step.Result, &res); err != nil {
		return nil, false
	}
	return &res, true
}

func (s *Service) persist(ctx context.Context, run *AnalysisRun) {
	run.UpdatedAt = time.Now().UTC()
	if err := s.Repo.Update(ctx, *run); err != nil {
		telemetry.Error("run.persist", map[string]any{"run_id": run.ID, "error": err.Error()})
	}
}

// accumulate parses a succeeded step's stored result into the input of the
// steps after it.
func accumulate(input *StepInput, name StepName, raw json.RawMessage) error {
	switch name {
	case StepLegalAnalysis:
		var res LegalAnalysisResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return fmt.Errorf("stored legal_analysis result: %w", err)
		}
		input.Analysis = &res
		input.AnalysisRaw = raw
	case StepOptimization:
		var res OptimizationResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return fmt.Errorf("stored optimization result: %w", err)
		}
		input.Optimization = &res
	}
	return nil
}

func secondaryDisplay(code string) string {
	if code == "" {
		return ""
	}
	return frameworks.DisplayName(frameworks.Framework(code))
}

func stepMessage(name StepName) string {
	switch name {
	case StepLegalAnalysis:
		return "reviewing document compliance"
	case StepOptimization:
		return "drafting optimized text"
	case StepTranslation:
		return "translating optimized document"
	}
	return string(name)
}

func stepDoneMessage(name StepName) string {
	switch name {
	case StepLegalAnalysis:
		return "compliance review complete"
	case StepOptimization:
		return "optimization complete"
	case StepTranslation:
		return "translation complete"
	}
	return string(name)
}
