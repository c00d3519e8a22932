package metrics

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
)

func renderHistogram(t *testing.T, h *histogram) string {
	t.Helper()
	var buf bytes.Buffer
	writeHistogram(&buf, "x", "test histogram", h.Snapshot())
	return buf.String()
}

func bucketValue(t *testing.T, rendered, le string) int {
	t.Helper()
	prefix := `x_bucket{le="` + le + `"} `
	for _, line := range strings.Split(rendered, "\n") {
		if strings.HasPrefix(line, prefix) {
			v, err := strconv.Atoi(strings.TrimPrefix(line, prefix))
			if err != nil {
				t.Fatalf("parse bucket %s: %v", le, err)
			}
			return v
		}
	}
	t.Fatalf("bucket le=%q not rendered:\n%s", le, rendered)
	return 0
}

func TestHistogramSingleObservation(t *testing.T) {
	h := newHistogram([]float64{100, 250, 500})
	h.Observe(200)

	rendered := renderHistogram(t, h)
	if got := bucketValue(t, rendered, "100"); got != 0 {
		t.Fatalf("le=100 = %d, want 0", got)
	}
	if got := bucketValue(t, rendered, "250"); got != 1 {
		t.Fatalf("le=250 = %d, want 1", got)
	}
	if got := bucketValue(t, rendered, "500"); got != 1 {
		t.Fatalf("le=500 = %d, want 1", got)
	}
	if got := bucketValue(t, rendered, "+Inf"); got != 1 {
		t.Fatalf("le=+Inf = %d, want 1", got)
	}
}

func TestHistogramBucketsMonotonic(t *testing.T) {
	h := newHistogram([]float64{100, 250, 500})
	for _, v := range []float64{50, 200, 200, 400, 9000} {
		h.Observe(v)
	}

	rendered := renderHistogram(t, h)
	inf := bucketValue(t, rendered, "+Inf")
	if inf != 5 {
		t.Fatalf("le=+Inf = %d, want 5", inf)
	}
	prev := 0
	for _, le := range []string{"100", "250", "500"} {
		got := bucketValue(t, rendered, le)
		if got < prev {
			t.Fatalf("bucket le=%s = %d below preceding bucket %d", le, got, prev)
		}
		if got > inf {
			t.Fatalf("bucket le=%s = %d exceeds total %d", le, got, inf)
		}
		prev = got
	}
	if got := bucketValue(t, rendered, "500"); got != 4 {
		t.Fatalf("le=500 = %d, want 4", got)
	}
}
