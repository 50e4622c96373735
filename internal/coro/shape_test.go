package coro_test

import (
	"strings"
	"testing"

	"eddy/internal/coro"
	"eddy/internal/ir"
	"eddy/internal/types"
)

func parseFunc(t *testing.T, src, name string) *ir.Func {
	t.Helper()
	m, err := ir.ParseModule(src, types.NewInterner())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	f := m.FuncNamed(name)
	if f == nil {
		t.Fatalf("func %s not found", name)
	}
	return f
}

// TestBuildShape_NotACoroutine tests that a marker-free function yields
// a nil shape without error.
func TestBuildShape_NotACoroutine(t *testing.T) {
	f := parseFunc(t, `
func @plain() -> unit {
bb0:
  ret
}
`, "plain")
	s, err := coro.BuildShape(f)
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if s != nil {
		t.Fatalf("expected nil shape, got %+v", s)
	}
}

// TestBuildShape_Generator tests the scan of the canonical fixture.
func TestBuildShape_Generator(t *testing.T) {
	m, _, _ := parseCoro(t, generatorSrc)
	f := m.FuncNamed("gen")

	s, err := coro.BuildShape(f)
	if err != nil {
		t.Fatalf("build shape: %v", err)
	}
	if s.FramePtr != 4 {
		t.Fatalf("frame ptr = %%%d, want %%4", s.FramePtr)
	}
	if s.AllocVar != 1 {
		t.Fatalf("alloc hint = %%%d, want %%1", s.AllocVar)
	}
	if len(s.Suspends) != 2 {
		t.Fatalf("suspends = %d, want 2", len(s.Suspends))
	}
	if s.Suspends[0].Final || !s.Suspends[1].Final {
		t.Fatalf("final flags wrong: %+v", s.Suspends)
	}
	if _, ok := s.FinalSuspend(); !ok {
		t.Fatalf("final suspend not reported")
	}
	if n := s.ResumeIndexCount(); n != 1 {
		t.Fatalf("resume index count = %d, want 1", n)
	}
	if len(s.Ends) != 1 || len(s.Sizes) != 1 || len(s.Frees) != 1 {
		t.Fatalf("end/size/free counts: %d/%d/%d", len(s.Ends), len(s.Sizes), len(s.Frees))
	}
}

// TestBuildShape_Malformed tests the structural rules a begin marker
// makes mandatory.
func TestBuildShape_Malformed(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "multiple begins",
			src: `
func @f(%0: ptr) -> unit {
  local %1: ptr
  local %2: ptr
bb0:
  %1 = coro.begin mem=%0
  %2 = coro.begin mem=%0
  ret
}
`,
			want: "multiple begin markers",
		},
		{
			name: "suspend without save",
			src: `
func @f(%0: ptr) -> unit {
  local %1: ptr
  local %2: i8
bb0:
  %1 = coro.begin mem=%0
  %2 = coro.suspend save=%1
  ret
}
`,
			want: "no save marker",
		},
		{
			name: "final suspend not last",
			src: `
func @f(%0: ptr) -> unit {
  local %1: ptr
  local %2: ptr
  local %3: i8
  local %4: ptr
  local %5: i8
bb0:
  %1 = coro.begin mem=%0
  %2 = coro.save
  %3 = coro.suspend save=%2 final
  %4 = coro.save
  %5 = coro.suspend save=%4
  ret
}
`,
			want: "final suspend is not the last",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := parseFunc(t, tc.src, "f")
			_, err := coro.BuildShape(f)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}

// TestBuildShape_SkipsUnreachable tests that markers in unreachable
// blocks do not count. Dead suspends would otherwise inflate the frame.
func TestBuildShape_SkipsUnreachable(t *testing.T) {
	src := `
func @f(%0: ptr) -> unit {
  local %1: ptr
  local %2: ptr
bb0:
  %1 = coro.begin mem=%0
  ret
bb1:
  %2 = coro.begin mem=%0
  unreachable
}
`
	f := parseFunc(t, src, "f")
	s, err := coro.BuildShape(f)
	if err != nil {
		t.Fatalf("dead second begin rejected: %v", err)
	}
	if s == nil || s.FramePtr != 1 {
		t.Fatalf("shape did not anchor on the live begin")
	}
}

// TestSimplifySuspends_SelfResume tests the peephole: a suspend whose
// save span fetches this frame's resume slot and calls it collapses to
// the resume selector.
func TestSimplifySuspends_SelfResume(t *testing.T) {
	src := `
func @pump(%0: ptr) -> ptr {
  local %1: ptr
  local %2: ptr
  local %3: fnptr
  local %4: i8
  local %5: ptr
  local %6: i8
  local %7: bool
  local %8: bool
bb0:
  %1 = coro.begin mem=%0
  %2 = coro.save
  %3 = coro.subfn frame=%1 index=0
  call value %3(%1)
  %4 = coro.suspend save=%2
  switch %4 [0 -> bb1, 1 -> bb2] default bb3
bb1:
  %5 = coro.save
  %6 = coro.suspend save=%5
  switch %6 [0 -> bb1, 1 -> bb2] default bb3
bb2:
  %7 = coro.free frame=%1
  goto bb3
bb3:
  %8 = coro.end
  ret %1
}
`
	f := parseFunc(t, src, "pump")
	s, err := coro.BuildShape(f)
	if err != nil {
		t.Fatalf("build shape: %v", err)
	}
	if len(s.Suspends) != 2 {
		t.Fatalf("precondition: %d suspends", len(s.Suspends))
	}

	changed, err := coro.SimplifySuspends(s)
	if err != nil {
		t.Fatalf("simplify: %v", err)
	}
	if !changed {
		t.Fatalf("self-resuming suspend not simplified")
	}
	if len(s.Suspends) != 1 {
		t.Fatalf("suspends after simplify = %d, want 1", len(s.Suspends))
	}

	// The span collapsed to a selector literal; the second suspend, with
	// no call in its span, must survive untouched.
	ins := &f.Blocks[0].Instrs[4]
	if ins.Kind != ir.InstrAssign || ins.Assign.Src.Kind != ir.RValueUse ||
		ins.Assign.Src.Use.Const.IntValue != 0 {
		t.Fatalf("suspend not replaced by the resume selector: %+v", ins)
	}
}

// TestSimplifySuspends_ForeignCall tests that a span calling anything
// other than this frame's own slots is left alone.
func TestSimplifySuspends_ForeignCall(t *testing.T) {
	src := `
func @pump(%0: ptr) -> ptr {
  local %1: ptr
  local %2: ptr
  local %3: fnptr
  local %4: i8
  local %5: bool
bb0:
  %1 = coro.begin mem=%0
  %2 = coro.save
  %3 = coro.subfn frame=%1 index=0
  call value %3(%1)
  call extern "log"(%1)
  %4 = coro.suspend save=%2
  switch %4 [0 -> bb1, 1 -> bb1] default bb1
bb1:
  %5 = coro.end
  ret %1
}
`
	f := parseFunc(t, src, "pump")
	s, err := coro.BuildShape(f)
	if err != nil {
		t.Fatalf("build shape: %v", err)
	}
	changed, err := coro.SimplifySuspends(s)
	if err != nil {
		t.Fatalf("simplify: %v", err)
	}
	if changed {
		t.Fatalf("span with a second call must not simplify")
	}
}
