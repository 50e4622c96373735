package trace_test

import (
	"strings"
	"testing"

	"eddy/internal/trace"
)

// TestParseLevel tests the accepted spellings and the error case.
func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want trace.Level
	}{
		{"", trace.LevelOff},
		{"off", trace.LevelOff},
		{"phase", trace.LevelPhase},
		{"FUNC", trace.LevelFunc},
		{"debug", trace.LevelDebug},
	}
	for _, tc := range cases {
		got, err := trace.ParseLevel(tc.in)
		if err != nil || got != tc.want {
			t.Fatalf("ParseLevel(%q) = %v, %v", tc.in, got, err)
		}
	}
	if _, err := trace.ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

// TestLevel_ShouldEmit tests the scope gating per level.
func TestLevel_ShouldEmit(t *testing.T) {
	if trace.LevelOff.ShouldEmit(trace.ScopeDriver) {
		t.Fatalf("off level emitted")
	}
	if !trace.LevelPhase.ShouldEmit(trace.ScopePass) {
		t.Fatalf("phase level dropped a pass event")
	}
	if trace.LevelPhase.ShouldEmit(trace.ScopeFunc) {
		t.Fatalf("phase level leaked a func event")
	}
	if !trace.LevelDebug.ShouldEmit(trace.ScopeFunc) {
		t.Fatalf("debug level dropped an event")
	}
}

// TestStreamTracer_Spans tests the begin/end lines a span pair writes,
// including parent linkage.
func TestStreamTracer_Spans(t *testing.T) {
	var sb strings.Builder
	tr := trace.NewStreamTracer(&sb, trace.LevelPhase)

	root := trace.Begin(tr, trace.ScopeDriver, "split", 0)
	child := trace.Begin(tr, trace.ScopePass, "parse", root.ID())
	child.End("ok")
	root.End("")

	out := sb.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "split") || !strings.Contains(lines[1], "parse") {
		t.Fatalf("unexpected order:\n%s", out)
	}
	if !strings.Contains(lines[1], "parent=") {
		t.Fatalf("child span lost its parent:\n%s", out)
	}
	if !strings.Contains(lines[2], "// ok") {
		t.Fatalf("end detail missing:\n%s", out)
	}
}

// TestStreamTracer_FiltersByLevel tests that events above the level are
// dropped at the source.
func TestStreamTracer_FiltersByLevel(t *testing.T) {
	var sb strings.Builder
	tr := trace.NewStreamTracer(&sb, trace.LevelPhase)

	sp := trace.Begin(tr, trace.ScopeFunc, "gen", 0)
	sp.End("")

	if sb.Len() != 0 {
		t.Fatalf("func-scope span emitted at phase level:\n%s", sb.String())
	}
}

// TestNop tests that the no-op tracer is safe to use everywhere.
func TestNop(t *testing.T) {
	if trace.Nop.Enabled() {
		t.Fatalf("nop tracer claims to be enabled")
	}
	sp := trace.Begin(trace.Nop, trace.ScopeDriver, "x", 0)
	if sp.ID() != 0 {
		t.Fatalf("nop span allocated an ID")
	}
	sp.End("")
}
