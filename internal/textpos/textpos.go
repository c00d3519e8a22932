// Package textpos resolves insertion points inside plain text documents.
package textpos

import "strings"

// Line is one entry of a parsed line index.
type Line struct {
	// Start is the byte offset of the first character of the line.
	Start int
	// Text is the line content without its trailing newline.
	Text string
}

// Index splits text into lines and records each line's starting byte offset.
func Index(text string) []Line {
	lines := []Line{}
	start := 0
	for {
		idx := strings.IndexByte(text[start:], '\n')
		if idx < 0 {
			lines = append(lines, Line{Start: start, Text: text[start:]})
			return lines
		}
		lines = append(lines, Line{Start: start, Text: text[start : start+idx]})
		start += idx + 1
	}
}

// InsertionOffset returns the byte offset of the start of the first line
// containing anchor. It reports false when anchor is empty or not found.
func InsertionOffset(text, anchor string) (int, bool) {
	anchor = strings.TrimSpace(anchor)
	if anchor == "" {
		return 0, false
	}
	for _, line := range Index(text) {
		if strings.Contains(line.Text, anchor) {
			return line.Start, true
		}
	}
	return 0, false
}

// Insert splices insertion into text at offset, on its own line. Offsets out
// of range are clamped.
func Insert(text, insertion string, offset int) string {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}
	if !strings.HasSuffix(insertion, "\n") {
		insertion += "\n"
	}
	head := text[:offset]
	if head != "" && !strings.HasSuffix(head, "\n") {
		insertion = "\n" + insertion
	}
	return head + insertion + text[offset:]
}
