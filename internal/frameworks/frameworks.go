package frameworks

import (
	"errors"
	"strings"
)

// Framework identifies a supported legal framework.
type Framework string

const (
	GDPR  Framework = "gdpr"
	CCPA  Framework = "ccpa"
	HIPAA Framework = "hipaa"
	PIPL  Framework = "pipl"
	LGPD  Framework = "lgpd"
	PDPA  Framework = "pdpa"
)

var catalog = map[Framework]string{
	GDPR:  "General Data Protection Regulation (EU)",
	CCPA:  "California Consumer Privacy Act (US-CA)",
	HIPAA: "Health Insurance Portability and Accountability Act (US)",
	PIPL:  "Personal Information Protection Law (CN)",
	LGPD:  "Lei Geral de Proteção de Dados (BR)",
	PDPA:  "Personal Data Protection Act (SG)",
}

var (
	ErrUnknownFramework   = errors.New("unknown framework")
	ErrSecondaryEqualsPri = errors.New("secondary framework must differ from primary")
)

// Normalize canonicalizes a raw framework identifier.
func Normalize(raw string) (Framework, error) {
	f := Framework(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := catalog[f]; !ok {
		return "", ErrUnknownFramework
	}
	return f, nil
}

// DisplayName returns the human-readable name of a framework.
func DisplayName(f Framework) string {
	if name, ok := catalog[f]; ok {
		return name
	}
	return string(f)
}

// Selection is a validated primary/secondary framework pair.
type Selection struct {
	Primary   Framework
	Secondary *Framework
}

// NewSelection validates a primary framework with an optional secondary one.
// The secondary framework must differ from the primary.
func NewSelection(primary, secondary string) (Selection, error) {
	p, err := Normalize(primary)
	if err != nil {
		return Selection{}, err
	}
	sel := Selection{Primary: p}
	if strings.TrimSpace(secondary) == "" {
		return sel, nil
	}
	s, err := Normalize(secondary)
	if err != nil {
		return Selection{}, err
	}
	if s == p {
		return Selection{}, ErrSecondaryEqualsPri
	}
	sel.Secondary = &s
	return sel, nil
}

// List returns all supported framework identifiers.
func List() []Framework {
	out := make([]Framework, 0, len(catalog))
	for f := range catalog {
		out = append(out, f)
	}
	return out
}
