package observ

import (
	"fmt"
	"strings"
	"time"
)

// Timer accumulates wall-clock durations for the pipeline's phases. A nil
// Timer is valid and records nothing, so callers keep one timing path
// whether or not --timings was asked for.
type Timer struct {
	phases []phase
}

type phase struct {
	name string
	dur  time.Duration
	note string
}

// NewTimer creates a new empty Timer.
func NewTimer() *Timer { return &Timer{} }

// Phase starts timing a named phase and returns the function that stops
// it. The note, when non-empty, is carried onto the phase's summary line.
func (t *Timer) Phase(name string) func(note string) {
	if t == nil {
		return func(string) {}
	}
	start := time.Now()
	return func(note string) {
		t.phases = append(t.phases, phase{name: name, dur: time.Since(start), note: note})
	}
}

// Total returns the summed duration of every finished phase.
func (t *Timer) Total() time.Duration {
	if t == nil {
		return 0
	}
	var total time.Duration
	for _, p := range t.phases {
		total += p.dur
	}
	return total
}

// Summary renders the per-phase table printed under --timings. An empty
// string means nothing was timed.
func (t *Timer) Summary() string {
	if t == nil || len(t.phases) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range t.phases {
		fmt.Fprintf(&sb, "  %-12s %8.2f ms", p.name, millis(p.dur))
		if p.note != "" {
			sb.WriteString("  // " + p.note)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "  %-12s %8.2f ms\n", "total", millis(t.Total()))
	return sb.String()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
