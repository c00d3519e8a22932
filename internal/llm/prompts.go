package llm

import (
	"fmt"
	"strings"
)

// Prompt builders for the three pipeline steps. Each instructs the model to
// answer with a single JSON object so the executor can extract and validate it.

const analysisSystemPrompt = `You are a legal compliance reviewer. Review the document against the named legal framework(s). Respond with a single JSON object only, no prose, using the schema:
{"compliance_score": 0-100, "risk_factors": [{"severity": "high|medium|low", "description": "...", "article": "..."}], "matched_articles": [{"article": "...", "excerpt": "..."}], "summary": "..."}`

// AnalysisPrompt builds the legal_analysis step request.
func AnalysisPrompt(documentText, primaryFramework, secondaryFramework string) Request {
	var b strings.Builder
	fmt.Fprintf(&b, "Primary framework: %s\n", primaryFramework)
	if secondaryFramework != "" {
		fmt.Fprintf(&b, "Secondary framework: %s\n", secondaryFramework)
	}
	b.WriteString("\nDocument:\n")
	b.WriteString(documentText)
	return Request{
		SystemPrompt: analysisSystemPrompt,
		UserPrompt:   b.String(),
		Temperature:  0,
		MaxTokens:    4096,
	}
}

const optimizationSystemPrompt = `You are a legal drafting assistant. Rewrite the document to address the compliance risks found in the prior review. Respond with a single JSON object only, using the schema:
{"optimized_text": "...", "modifications": [{"type": "add|modify|delete", "original_text": "...", "suggested_text": "...", "highlight_type": "add|modify|delete", "legal_basis": "...", "reason": "...", "insert_before": "..."}], "summary": "..."}
Every modification must quote text exactly as it appears. For additions, leave original_text empty and, when the clause is not already present in optimized_text, name the existing line it should precede in insert_before.`

// OptimizationPrompt builds the optimization step request. analysisJSON is the
// validated legal_analysis result, passed through as accumulated context.
func OptimizationPrompt(documentText, primaryFramework, analysisJSON string) Request {
	var b strings.Builder
	fmt.Fprintf(&b, "Framework: %s\n\nCompliance review:\n%s\n\nDocument:\n%s", primaryFramework, analysisJSON, documentText)
	return Request{
		SystemPrompt: optimizationSystemPrompt,
		UserPrompt:   b.String(),
		Temperature:  0,
		MaxTokens:    8192,
	}
}

const translationSystemPrompt = `You are a legal translator. Translate the optimized document and each modification record into the target language, preserving legal terminology. Respond with a single JSON object only, using the schema:
{"translated_text": "...", "translated_modifications": [<same shape as the input modifications, with text fields translated>], "target_language": "..."}`

// TranslationPrompt builds the translation step request. modificationsJSON is
// the optimization step's modification list serialized as JSON.
func TranslationPrompt(optimizedText, modificationsJSON, targetLanguage string) Request {
	var b strings.Builder
	fmt.Fprintf(&b, "Target language: %s\n\nModifications:\n%s\n\nDocument:\n%s", targetLanguage, modificationsJSON, optimizedText)
	return Request{
		SystemPrompt: translationSystemPrompt,
		UserPrompt:   b.String(),
		Temperature:  0,
		MaxTokens:    8192,
	}
}
