package runs

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"legal-backend/internal/highlight"
)

// Score is a compliance score on a 0-100 scale. Models occasionally return
// fractional or out-of-range values; decoding rounds and clamps.
type Score int

func (s *Score) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("compliance_score must be a number: %w", err)
	}
	v := int(math.Round(f))
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	*s = Score(v)
	return nil
}

// RiskFactor is one identified compliance risk.
type RiskFactor struct {
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Article     string `json:"article,omitempty"`
}

// MatchedArticle ties a regulation article to the document excerpt it governs.
type MatchedArticle struct {
	Article string `json:"article"`
	Excerpt string `json:"excerpt,omitempty"`
}

// LegalAnalysisResult is the validated output of the legal_analysis step.
type LegalAnalysisResult struct {
	ComplianceScore *Score           `json:"compliance_score"`
	RiskFactors     []RiskFactor     `json:"risk_factors"`
	MatchedArticles []MatchedArticle `json:"matched_articles"`
	Summary         string           `json:"summary"`
}

// OptimizationResult is the validated output of the optimization step.
type OptimizationResult struct {
	OptimizedText string                   `json:"optimized_text"`
	Modifications []highlight.Modification `json:"modifications"`
	Summary       string                   `json:"summary,omitempty"`
}

// TranslationResult is the validated output of the translation step.
type TranslationResult struct {
	TranslatedText          string                   `json:"translated_text"`
	TranslatedModifications []highlight.Modification `json:"translated_modifications"`
	TargetLanguage          string                   `json:"target_language,omitempty"`
}

func validateLegalAnalysis(res *LegalAnalysisResult) error {
	if res.ComplianceScore == nil {
		return fmt.Errorf("missing compliance_score")
	}
	for i := range res.RiskFactors {
		switch strings.ToLower(strings.TrimSpace(res.RiskFactors[i].Severity)) {
		case "low":
			res.RiskFactors[i].Severity = "low"
		case "high":
			res.RiskFactors[i].Severity = "high"
		default:
			res.RiskFactors[i].Severity = "medium"
		}
	}
	if res.RiskFactors == nil {
		res.RiskFactors = []RiskFactor{}
	}
	if res.MatchedArticles == nil {
		res.MatchedArticles = []MatchedArticle{}
	}
	return nil
}

func validateOptimization(res *OptimizationResult) error {
	if strings.TrimSpace(res.OptimizedText) == "" {
		return fmt.Errorf("missing optimized_text")
	}
	for i := range res.Modifications {
		m := &res.Modifications[i]
		switch m.Type {
		case highlight.TypeAdd, highlight.TypeModify, highlight.TypeDelete:
		case "":
			m.Type = highlight.TypeModify
		default:
			return fmt.Errorf("modification %d has unknown type %q", i, m.Type)
		}
	}
	if res.Modifications == nil {
		res.Modifications = []highlight.Modification{}
	}
	return nil
}

func validateTranslation(res *TranslationResult) error {
	if strings.TrimSpace(res.TranslatedText) == "" {
		return fmt.Errorf("missing translated_text")
	}
	if res.TranslatedModifications == nil {
		res.TranslatedModifications = []highlight.Modification{}
	}
	return nil
}
