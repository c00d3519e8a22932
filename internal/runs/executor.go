package runs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"legal-backend/internal/highlight"
	"legal-backend/internal/llm"
	"legal-backend/internal/textpos"
)

// Failure reasons recorded on a failed step.
const (
	FailureTransport = "transport_error"
	FailureParse     = "parse_error"
	FailureInvalid   = "invalid_response"
)

// Failure describes why a step execution did not produce a usable result.
type Failure struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Reason, f.Message)
}

// StepInput carries everything a single step needs: the document plus the
// validated results of the steps before it.
type StepInput struct {
	DocumentText       string
	PrimaryFramework   string
	SecondaryFramework string
	TargetLanguage     string
	Analysis           *LegalAnalysisResult
	AnalysisRaw        json.RawMessage
	Optimization       *OptimizationResult
}

// Executor runs one pipeline step against the model and validates its output.
type Executor struct {
	LLM llm.Client
}

// Execute performs the named step. On success it returns the normalized
// result JSON to be stored on the step. Failures are classified so retries
// and the API can report what went wrong.
func (e *Executor) Execute(ctx context.Context, step StepName, in StepInput) (json.RawMessage, *Failure) {
	req, failure := buildRequest(step, in)
	if failure != nil {
		return nil, failure
	}

	content, err := e.LLM.Complete(ctx, req)
	if err != nil {
		return nil, &Failure{Reason: FailureTransport, Message: err.Error()}
	}

	payload, ok := firstJSONObject(content)
	if !ok {
		return nil, &Failure{Reason: FailureParse, Message: "model response contains no JSON object"}
	}

	switch step {
	case StepLegalAnalysis:
		var res LegalAnalysisResult
		if err := json.Unmarshal([]byte(payload), &res); err != nil {
			return nil, &Failure{Reason: FailureParse, Message: err.Error()}
		}
		if err := validateLegalAnalysis(&res); err != nil {
			return nil, &Failure{Reason: FailureInvalid, Message: err.Error()}
		}
		return marshalResult(res)
	case StepOptimization:
		var res OptimizationResult
		if err := json.Unmarshal([]byte(payload), &res); err != nil {
			return nil, &Failure{Reason: FailureParse, Message: err.Error()}
		}
		if err := validateOptimization(&res); err != nil {
			return nil, &Failure{Reason: FailureInvalid, Message: err.Error()}
		}
		resolveInsertions(&res)
		return marshalResult(res)
	case StepTranslation:
		var res TranslationResult
		if err := json.Unmarshal([]byte(payload), &res); err != nil {
			return nil, &Failure{Reason: FailureParse, Message: err.Error()}
		}
		if err := validateTranslation(&res); err != nil {
			return nil, &Failure{Reason: FailureInvalid, Message: err.Error()}
		}
		if res.TargetLanguage == "" {
			res.TargetLanguage = in.TargetLanguage
		}
		return marshalResult(res)
	}
	return nil, &Failure{Reason: FailureInvalid, Message: fmt.Sprintf("unknown step %q", step)}
}

func buildRequest(step StepName, in StepInput) (llm.Request, *Failure) {
	switch step {
	case StepLegalAnalysis:
		return llm.AnalysisPrompt(in.DocumentText, in.PrimaryFramework, in.SecondaryFramework), nil
	case StepOptimization:
		if in.Analysis == nil {
			return llm.Request{}, &Failure{Reason: FailureInvalid, Message: "optimization requires a legal analysis result"}
		}
		return llm.OptimizationPrompt(in.DocumentText, in.PrimaryFramework, string(in.AnalysisRaw)), nil
	case StepTranslation:
		if in.Optimization == nil {
			return llm.Request{}, &Failure{Reason: FailureInvalid, Message: "translation requires an optimization result"}
		}
		mods, err := json.Marshal(in.Optimization.Modifications)
		if err != nil {
			return llm.Request{}, &Failure{Reason: FailureInvalid, Message: err.Error()}
		}
		return llm.TranslationPrompt(in.Optimization.OptimizedText, string(mods), in.TargetLanguage), nil
	}
	return llm.Request{}, &Failure{Reason: FailureInvalid, Message: fmt.Sprintf("unknown step %q", step)}
}

// resolveInsertions splices added clauses the model described but did not
// include into optimized_text, anchored to the line named by insert_before.
// Anchors that resolve record the resulting character span on the
// modification; anchors that don't are left for the highlighter's literal
// text search.
func resolveInsertions(res *OptimizationResult) {
	for i := range res.Modifications {
		m := &res.Modifications[i]
		if m.Type != highlight.TypeAdd || m.InsertBefore == "" {
			continue
		}
		snippet := strings.TrimSpace(m.SuggestedText)
		if snippet == "" || strings.Contains(res.OptimizedText, snippet) {
			continue
		}
		offset, ok := textpos.InsertionOffset(res.OptimizedText, m.InsertBefore)
		if !ok {
			continue
		}
		res.OptimizedText = textpos.Insert(res.OptimizedText, snippet, offset)
		start, end := offset, offset+len(snippet)
		m.HighlightStart = &start
		m.HighlightEnd = &end
	}
}

func marshalResult(v any) (json.RawMessage, *Failure) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, &Failure{Reason: FailureInvalid, Message: err.Error()}
	}
	return raw, nil
}
