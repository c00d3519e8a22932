package runs

import "encoding/json"

// Event types emitted on the run progress stream.
const (
	EventProgress   = "progress"
	EventStepResult = "step_result"
	EventComplete   = "complete"
)

// Event is one NDJSON line of the progress stream. Progress events carry
// progress and message; step_result and complete carry result.
type Event struct {
	Type     string          `json:"type"`
	Progress *int            `json:"progress,omitempty"`
	Message  string          `json:"message,omitempty"`
	Step     StepName        `json:"step,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
}

// EventSink receives stream events in emission order. A sink must tolerate
// being called after its consumer went away; the pipeline does not stop for
// a broken stream.
type EventSink func(Event)

func progressEvent(pct int, msg string) Event {
	return Event{Type: EventProgress, Progress: &pct, Message: msg}
}

func stepResultEvent(step StepName, result json.RawMessage) Event {
	return Event{Type: EventStepResult, Step: step, Result: result}
}

func completeEvent(snap Snapshot) Event {
	raw, err := json.Marshal(snap)
	if err != nil {
		raw = json.RawMessage(`{}`)
	}
	return Event{Type: EventComplete, Result: raw}
}
