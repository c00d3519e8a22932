package runs

import (
	"encoding/json"
	"time"
)

// StepName identifies one phase of the analysis pipeline.
type StepName string

const (
	StepLegalAnalysis StepName = "legal_analysis"
	StepOptimization  StepName = "optimization"
	StepTranslation   StepName = "translation"
)

// stepOrder is the full pipeline; each step depends on every step before it.
var stepOrder = []StepName{StepLegalAnalysis, StepOptimization, StepTranslation}

// StepStatus is the per-step state machine value.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusRunning   StepStatus = "running"
	StatusSucceeded StepStatus = "succeeded"
	StatusFailed    StepStatus = "failed"
	StatusRetrying  StepStatus = "retrying"
)

// StepError records why a step failed.
type StepError struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// Step is one entry of a run's ordered step list.
type Step struct {
	Name   StepName        `json:"name"`
	Status StepStatus      `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *StepError      `json:"error,omitempty"`
}

// AnalysisRun is one end-to-end pipeline execution over a single document.
type AnalysisRun struct {
	ID                 string     `json:"id"`
	DocumentID         string     `json:"documentId,omitempty"`
	DocumentText       string     `json:"documentText"`
	PrimaryFramework   string     `json:"primaryFramework"`
	SecondaryFramework string     `json:"secondaryFramework,omitempty"`
	TargetLanguage     string     `json:"targetLanguage,omitempty"`
	Steps              []Step     `json:"steps"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
}

// newSteps builds the run's step list. Translation is part of the pipeline
// only when a target language was requested.
func newSteps(withTranslation bool) []Step {
	steps := []Step{
		{Name: StepLegalAnalysis, Status: StatusPending},
		{Name: StepOptimization, Status: StatusPending},
	}
	if withTranslation {
		steps = append(steps, Step{Name: StepTranslation, Status: StatusPending})
	}
	return steps
}

// StepByName returns a pointer into the run's step list, or nil.
func (r *AnalysisRun) StepByName(name StepName) *Step {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i]
		}
	}
	return nil
}

// DependenciesSucceeded reports whether every step before name has succeeded.
func (r *AnalysisRun) DependenciesSucceeded(name StepName) bool {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return true
		}
		if r.Steps[i].Status != StatusSucceeded {
			return false
		}
	}
	return false
}

// CompletedSteps counts succeeded steps.
func (r *AnalysisRun) CompletedSteps() int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == StatusSucceeded {
			n++
		}
	}
	return n
}

// FailedSteps counts failed steps.
func (r *AnalysisRun) FailedSteps() int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == StatusFailed {
			n++
		}
	}
	return n
}

// CanRetry lists failed steps whose dependencies have all succeeded.
func (r *AnalysisRun) CanRetry() []StepName {
	out := []StepName{}
	for _, s := range r.Steps {
		if s.Status == StatusFailed && r.DependenciesSucceeded(s.Name) {
			out = append(out, s.Name)
		}
	}
	return out
}

// Terminal reports whether every step reached succeeded or failed.
func (r *AnalysisRun) Terminal() bool {
	for _, s := range r.Steps {
		switch s.Status {
		case StatusSucceeded, StatusFailed:
		default:
			return false
		}
	}
	return true
}

// Snapshot is the externally visible view of a run, with derived counters.
type Snapshot struct {
	AnalysisRun
	CompletedStepCount int      `json:"completed_steps"`
	FailedStepCount    int      `json:"failed_steps"`
	CanRetrySteps      []string `json:"can_retry"`
}

// Snapshot derives the counter view of the run.
func (r AnalysisRun) Snapshot() Snapshot {
	canRetry := []string{}
	for _, s := range r.CanRetry() {
		canRetry = append(canRetry, string(s))
	}
	return Snapshot{
		AnalysisRun:        r,
		CompletedStepCount: r.CompletedSteps(),
		FailedStepCount:    r.FailedSteps(),
		CanRetrySteps:      canRetry,
	}
}

// ParseStepName validates a raw step identifier.
func ParseStepName(raw string) (StepName, error) {
	for _, s := range stepOrder {
		if StepName(raw) == s {
			return s, nil
		}
	}
	return "", ErrUnknownStep
}
