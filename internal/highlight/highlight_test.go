package highlight

import (
	"strings"
	"testing"
)

func TestRenderMarksFirstOccurrenceOnly(t *testing.T) {
	mods := []Modification{
		{Type: TypeModify, OriginalText: "B", SuggestedText: "B2", HighlightType: TypeModify},
	}
	out := Render("A B C B", mods, SideOriginal)
	if got := strings.Count(out, "<mark"); got != 1 {
		t.Fatalf("marker count = %d, want 1: %q", got, out)
	}
	if !strings.HasPrefix(out, `A <mark class="hl hl-modify" data-mod="0">B</mark> C B`) {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestRenderDuplicateSnippetsMarkDistinctOccurrences(t *testing.T) {
	mods := []Modification{
		{Type: TypeModify, OriginalText: "B", SuggestedText: "B1", HighlightType: TypeModify},
		{Type: TypeModify, OriginalText: "B", SuggestedText: "B2", HighlightType: TypeModify},
	}
	out := Render("B x B", mods, SideOriginal)
	want := `<mark class="hl hl-modify" data-mod="0">B</mark> x <mark class="hl hl-modify" data-mod="1">B</mark>`
	if out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
	if strings.Contains(out, "</mark></mark>") {
		t.Errorf("nested markers in output: %q", out)
	}
}

func TestRenderMoreRecordsThanOccurrences(t *testing.T) {
	mods := []Modification{
		{Type: TypeModify, OriginalText: "B", HighlightType: TypeModify},
		{Type: TypeModify, OriginalText: "B", HighlightType: TypeModify},
		{Type: TypeModify, OriginalText: "B", HighlightType: TypeModify},
	}
	out := Render("B x B", mods, SideOriginal)
	if opens, closes := strings.Count(out, "<mark"), strings.Count(out, "</mark>"); opens != 2 || closes != 2 {
		t.Errorf("marker counts = %d/%d, want 2/2: %q", opens, closes, out)
	}
	if got := Strip(out); got != "B x B" {
		t.Errorf("Strip = %q, want original text", got)
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	text := "We retain data & cookies indefinitely."
	mods := []Modification{
		{Type: TypeModify, OriginalText: "data & cookies", SuggestedText: "data", HighlightType: TypeModify},
	}
	once := Render(text, mods, SideOriginal)
	twice := Render(once, mods, SideOriginal)
	if once != twice {
		t.Errorf("second render differs:\n once: %q\ntwice: %q", once, twice)
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	text := `click <script>alert(1)</script> now`
	mods := []Modification{
		{Type: TypeModify, OriginalText: "<script>alert(1)</script>", HighlightType: TypeModify},
	}
	out := Render(text, mods, SideOriginal)
	if strings.Contains(out, "<script>") {
		t.Fatalf("unescaped payload in output: %q", out)
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Errorf("escaped snippet missing: %q", out)
	}
	if !strings.Contains(out, "<mark") {
		t.Errorf("escaped snippet was not marked: %q", out)
	}
}

func TestRenderSkipsMissingAndWhitespaceSnippets(t *testing.T) {
	mods := []Modification{
		{Type: TypeModify, OriginalText: "not present anywhere", HighlightType: TypeModify},
		{Type: TypeModify, OriginalText: "   ", HighlightType: TypeModify},
	}
	out := Render("short document", mods, SideOriginal)
	if out != "short document" {
		t.Errorf("output = %q, want untouched text", out)
	}
}

func TestRenderSidesFilterByType(t *testing.T) {
	mods := []Modification{
		{Type: TypeAdd, SuggestedText: "new clause", HighlightType: TypeAdd},
		{Type: TypeDelete, OriginalText: "old clause", HighlightType: TypeDelete},
	}

	original := Render("old clause remains", mods, SideOriginal)
	if strings.Contains(original, "hl-add") {
		t.Errorf("add marked on original side: %q", original)
	}
	if !strings.Contains(original, "hl-delete") {
		t.Errorf("delete missing on original side: %q", original)
	}

	optimized := Render("new clause added", mods, SideOptimized)
	if strings.Contains(optimized, "hl-delete") {
		t.Errorf("delete marked on optimized side: %q", optimized)
	}
	if !strings.Contains(optimized, "hl-add") {
		t.Errorf("add missing on optimized side: %q", optimized)
	}
}

func TestRenderDescendingPositionsKeepOffsetsStable(t *testing.T) {
	text := "alpha beta gamma"
	mods := []Modification{
		{Type: TypeModify, OriginalText: "gamma", HighlightType: TypeModify},
		{Type: TypeModify, OriginalText: "alpha", HighlightType: TypeModify},
	}
	out := Render(text, mods, SideOriginal)
	want := `<mark class="hl hl-modify" data-mod="1">alpha</mark> beta <mark class="hl hl-modify" data-mod="0">gamma</mark>`
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestStripRoundTrip(t *testing.T) {
	text := "terms & conditions apply"
	mods := []Modification{
		{Type: TypeModify, OriginalText: "conditions", HighlightType: TypeModify},
	}
	rendered := Render(text, mods, SideOriginal)
	if got := Strip(rendered); got != text {
		t.Errorf("Strip(Render(text)) = %q, want %q", got, text)
	}
	// Text without markers passes through untouched, even if it contains
	// entities of its own.
	if got := Strip("already &amp; plain"); got != "already &amp; plain" {
		t.Errorf("Strip(plain) = %q", got)
	}
}

func TestModificationUnmarshalAliases(t *testing.T) {
	var m Modification
	err := m.UnmarshalJSON([]byte(`{"type": "ADD", "optimized_text": "new text"}`))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Type != TypeAdd {
		t.Errorf("type = %q, want add", m.Type)
	}
	if m.SuggestedText != "new text" {
		t.Errorf("suggested text = %q, want alias value", m.SuggestedText)
	}
	if m.HighlightType != TypeModify {
		t.Errorf("highlight type = %q, want default modify", m.HighlightType)
	}
}
