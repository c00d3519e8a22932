package highlight

import (
	"encoding/json"
	"strings"
)

// Modification kinds.
const (
	TypeAdd    = "add"
	TypeModify = "modify"
	TypeDelete = "delete"
)

// Modification is a structured suggested edit produced by the optimization
// step. It is never mutated after creation; a retry replaces the whole list.
type Modification struct {
	Type           string `json:"type"`
	OriginalText   string `json:"original_text,omitempty"`
	SuggestedText  string `json:"suggested_text,omitempty"`
	HighlightType  string `json:"highlight_type,omitempty"`
	LegalBasis     string `json:"legal_basis,omitempty"`
	Reason         string `json:"reason,omitempty"`
	HighlightStart *int   `json:"highlight_start,omitempty"`
	HighlightEnd   *int   `json:"highlight_end,omitempty"`
	InsertBefore   string `json:"insert_before,omitempty"`
}

type modificationAlias struct {
	Type           string `json:"type"`
	OriginalText   string `json:"original_text"`
	SuggestedText  string `json:"suggested_text"`
	OptimizedText  string `json:"optimized_text"`
	HighlightType  string `json:"highlight_type"`
	LegalBasis     string `json:"legal_basis"`
	Reason         string `json:"reason"`
	HighlightStart *int   `json:"highlight_start"`
	HighlightEnd   *int   `json:"highlight_end"`
	InsertBefore   string `json:"insert_before"`
}

// UnmarshalJSON accepts optimized_text as an alias for suggested_text and
// defaults highlight_type when the collaborator omits it.
func (m *Modification) UnmarshalJSON(data []byte) error {
	var alias modificationAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	m.Type = strings.ToLower(strings.TrimSpace(alias.Type))
	m.OriginalText = alias.OriginalText
	m.SuggestedText = alias.SuggestedText
	if m.SuggestedText == "" {
		m.SuggestedText = alias.OptimizedText
	}
	m.HighlightType = strings.ToLower(strings.TrimSpace(alias.HighlightType))
	if m.HighlightType == "" {
		m.HighlightType = TypeModify
	}
	m.LegalBasis = alias.LegalBasis
	m.Reason = alias.Reason
	m.HighlightStart = alias.HighlightStart
	m.HighlightEnd = alias.HighlightEnd
	m.InsertBefore = alias.InsertBefore
	return nil
}
