// Package highlight overlays modification records onto document text as
// addressable markers. A missing snippet is skipped, never an error.
package highlight

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
)

// Side selects which text of a modification is being rendered.
type Side int

const (
	// SideOriginal marks original_text of modify/delete records.
	SideOriginal Side = iota
	// SideOptimized marks suggested_text of add/modify records.
	SideOptimized
)

var markerRe = regexp.MustCompile(`<mark class="hl hl-[a-z]+" data-mod="\d+">|</mark>`)

// Strip removes all markers from previously rendered output and undoes the
// rendering escape, returning the underlying text. Unmarked input is returned
// unchanged.
func Strip(text string) string {
	if !markerRe.MatchString(text) {
		return text
	}
	return html.UnescapeString(markerRe.ReplaceAllString(text, ""))
}

// Render wraps each located snippet in a marker carrying the modification's
// index and highlight type. The input may be raw text or a previous Render
// output; markers are never nested. All content is HTML-escaped.
func Render(text string, mods []Modification, side Side) string {
	out := html.EscapeString(Strip(text))

	type located struct {
		index    int
		snippet  string
		position int
		literal  bool
	}

	// Records sharing a snippet claim successive occurrences, so each marks
	// its own stretch of text.
	nextStart := make(map[string]int)
	candidates := make([]located, 0, len(mods))
	for i, mod := range mods {
		snippet := snippetFor(mod, side)
		if strings.TrimSpace(snippet) == "" {
			continue
		}
		escaped := html.EscapeString(snippet)
		position := 0
		literal := false
		if side == SideOptimized && mod.HighlightEnd != nil {
			position = *mod.HighlightEnd
		} else {
			start := nextStart[escaped]
			if start > len(out) {
				continue
			}
			idx := strings.Index(out[start:], escaped)
			if idx < 0 {
				continue
			}
			position = start + idx
			nextStart[escaped] = position + len(escaped)
			literal = true
		}
		candidates = append(candidates, located{index: i, snippet: escaped, position: position, literal: literal})
	}

	// Later spans first, so inserting a marker never shifts the offsets of
	// spans still to be processed. Longest first on ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].position != candidates[j].position {
			return candidates[i].position > candidates[j].position
		}
		return len(candidates[i].snippet) > len(candidates[j].snippet)
	})

	// limit is the start of the most recently inserted marker. Text below it
	// is still unmarked, so bounding each wrap there keeps markers disjoint.
	limit := len(out)
	for _, cand := range candidates {
		idx := -1
		if cand.literal {
			if cand.position+len(cand.snippet) <= limit && strings.HasPrefix(out[cand.position:], cand.snippet) {
				idx = cand.position
			}
		} else {
			idx = strings.Index(out[:limit], cand.snippet)
		}
		if idx < 0 {
			continue
		}
		marker := fmt.Sprintf(`<mark class="hl hl-%s" data-mod="%d">%s</mark>`,
			markerClass(mods[cand.index]), cand.index, cand.snippet)
		out = out[:idx] + marker + out[idx+len(cand.snippet):]
		limit = idx
	}

	return out
}

func snippetFor(mod Modification, side Side) string {
	switch side {
	case SideOriginal:
		if mod.Type == TypeAdd {
			return ""
		}
		return mod.OriginalText
	default:
		if mod.Type == TypeDelete {
			return ""
		}
		return mod.SuggestedText
	}
}

func markerClass(mod Modification) string {
	switch mod.HighlightType {
	case TypeAdd, TypeModify, TypeDelete:
		return mod.HighlightType
	}
	return TypeModify
}
