package runs

import "errors"

var (
	ErrNotFound         = errors.New("analysis run not found")
	ErrUnknownStep      = errors.New("unknown pipeline step")
	ErrStepNotFailed    = errors.New("step is not in a failed state")
	ErrDependencyNotMet = errors.New("step dependencies have not succeeded")
	ErrRetryInFlight    = errors.New("a retry for this step is already in flight")
	ErrNotReady         = errors.New("optimization step has not completed")
	ErrInvalidInput     = errors.New("invalid run input")
)

// Error codes surfaced in HTTP error bodies.
const (
	ErrCodeNotFound      = "not_found"
	ErrCodeUnknownStep   = "unknown_step"
	ErrCodeStepNotFailed = "step_not_failed"
	ErrCodeDependency    = "dependency_not_met"
	ErrCodeRetryConflict = "retry_in_flight"
	ErrCodeNotReady      = "result_not_ready"
	ErrCodeValidation    = "validation_error"
	ErrCodeInternal      = "internal_error"
)
