// Package docdiff renders differences between two text blobs when no
// structured modification spans are available.
package docdiff

import (
	"html"
	"strings"
	"unicode"
)

// Render compares two texts line by line and marks changed words as
// added/removed HTML spans. The word walk is greedy and deterministic; it
// does not compute a minimal edit script.
func Render(textA, textB string) string {
	linesA := strings.Split(textA, "\n")
	linesB := strings.Split(textB, "\n")

	n := len(linesA)
	if len(linesB) > n {
		n = len(linesB)
	}

	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		a, b := "", ""
		if i < len(linesA) {
			a = linesA[i]
		}
		if i < len(linesB) {
			b = linesB[i]
		}
		if a == b {
			out = append(out, html.EscapeString(a))
			continue
		}
		out = append(out, diffLine(a, b))
	}
	return strings.Join(out, "\n")
}

func diffLine(a, b string) string {
	tokensA := tokenize(a)
	tokensB := tokenize(b)

	var buf strings.Builder
	i, j := 0, 0
	for i < len(tokensA) || j < len(tokensB) {
		if i < len(tokensA) && j < len(tokensB) && tokensA[i] == tokensB[j] {
			buf.WriteString(html.EscapeString(tokensA[i]))
			i++
			j++
			continue
		}
		if i < len(tokensA) {
			buf.WriteString(`<span class="diff-removed">`)
			buf.WriteString(html.EscapeString(tokensA[i]))
			buf.WriteString(`</span>`)
			i++
		}
		if j < len(tokensB) {
			buf.WriteString(`<span class="diff-added">`)
			buf.WriteString(html.EscapeString(tokensB[j]))
			buf.WriteString(`</span>`)
			j++
		}
	}
	return buf.String()
}

// tokenize splits a line into alternating word and whitespace runs, so the
// original line can be reconstructed verbatim from its tokens.
func tokenize(s string) []string {
	if s == "" {
		return nil
	}
	tokens := []string{}
	start := 0
	inSpace := unicode.IsSpace(rune(s[0]))
	for idx, r := range s {
		isSpace := unicode.IsSpace(r)
		if isSpace != inSpace {
			tokens = append(tokens, s[start:idx])
			start = idx
			inSpace = isSpace
		}
	}
	tokens = append(tokens, s[start:])
	return tokens
}
