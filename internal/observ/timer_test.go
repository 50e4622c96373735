package observ_test

import (
	"strings"
	"testing"

	"eddy/internal/observ"
)

// TestTimer_PhasesAndSummary tests that finished phases show up in the
// summary table in order, with notes and a total line.
func TestTimer_PhasesAndSummary(t *testing.T) {
	tm := observ.NewTimer()
	tm.Phase("parse")("")
	tm.Phase("split")("failed")

	out := tm.Summary()
	if !strings.HasPrefix(out, "timings:\n") {
		t.Fatalf("summary header missing:\n%s", out)
	}
	parseAt := strings.Index(out, "parse")
	splitAt := strings.Index(out, "split")
	totalAt := strings.Index(out, "total")
	if parseAt < 0 || splitAt < 0 || totalAt < 0 {
		t.Fatalf("summary misses a line:\n%s", out)
	}
	if !(parseAt < splitAt && splitAt < totalAt) {
		t.Fatalf("phases out of order:\n%s", out)
	}
	if !strings.Contains(out, "// failed") {
		t.Fatalf("note dropped from the summary:\n%s", out)
	}
}

// TestTimer_Empty tests that a timer with no finished phases renders
// nothing rather than a lone total line.
func TestTimer_Empty(t *testing.T) {
	if out := observ.NewTimer().Summary(); out != "" {
		t.Fatalf("empty timer rendered %q", out)
	}
}

// TestTimer_NilSafe tests that a nil timer absorbs the whole API, so the
// pipeline keeps one code path with and without --timings.
func TestTimer_NilSafe(t *testing.T) {
	var tm *observ.Timer
	tm.Phase("parse")("")
	if tm.Total() != 0 {
		t.Fatalf("nil timer accumulated time")
	}
	if out := tm.Summary(); out != "" {
		t.Fatalf("nil timer rendered %q", out)
	}
}
