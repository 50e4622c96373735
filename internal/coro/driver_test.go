package coro_test

import (
	"strings"
	"testing"

	"eddy/internal/callgraph"
	"eddy/internal/coro"
	"eddy/internal/ir"
)

// attrSrc is the generator fixture with the frontend's eligibility
// marker, the form the scheduler actually sees.
func attrSrc() string {
	return strings.Replace(generatorSrc,
		"func @gen(%0: i32) -> ptr {",
		"func @gen(%0: i32) -> ptr attrs(coro.presplit=0) {", 1)
}

// TestSplitPass_TwoPhase tests the prepare/split protocol: the first
// encounter plants the probe and asks for a revisit, the second splits
// and strips the attribute.
func TestSplitPass_TwoPhase(t *testing.T) {
	m, typesIn, eng := parseCoro(t, attrSrc())
	f := m.FuncNamed("gen")
	pass := &coro.SplitPass{Types: typesIn, Layout: eng}

	res1, err := pass.RunOnSCC(m, []ir.FuncID{f.ID})
	if err != nil {
		t.Fatalf("first encounter: %v", err)
	}
	if !res1.Revisit || !res1.Changed {
		t.Fatalf("first encounter must prepare and request a revisit: %+v", res1)
	}
	if v, ok := f.Attr(coro.PresplitAttr); !ok || v != coro.PreparedForSplit {
		t.Fatalf("attr after prepare = %q, %v", v, ok)
	}
	if m.FuncNamed(coro.DevirtTriggerName) == nil {
		t.Fatalf("trigger function not created")
	}
	probe := false
	for _, ins := range f.Blocks[f.Entry].Instrs {
		if ins.Kind == ir.InstrCoroSubFn && ins.CoroSubFn.Index == ir.SubFnRestartTrigger {
			probe = true
		}
	}
	if !probe {
		t.Fatalf("devirtualization probe missing from the entry block")
	}
	if len(pass.Records) != 0 {
		t.Fatalf("prepared-only coroutine already recorded")
	}

	res2, err := pass.RunOnSCC(m, []ir.FuncID{f.ID})
	if err != nil {
		t.Fatalf("second encounter: %v", err)
	}
	if res2.Revisit {
		t.Fatalf("split encounter must not ask for another round")
	}
	if _, ok := f.Attr(coro.PresplitAttr); ok {
		t.Fatalf("attribute survived the split")
	}
	if len(res2.Added) != 3 {
		t.Fatalf("added = %v, want the three clones", res2.Added)
	}
	if len(pass.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(pass.Records))
	}
	rec := pass.Records[0]
	if rec.Func != "gen" || rec.Resume != "gen.resume" || rec.Destroy != "gen.destroy" ||
		rec.Cleanup != "gen.cleanup" {
		t.Fatalf("record names wrong: %+v", rec)
	}
	if rec.FrameSize != 24 || rec.SuspendCount != 2 || !rec.HasFinal {
		t.Fatalf("record facts wrong: %+v", rec)
	}
}

// TestSplitPass_UnderScheduler tests the whole protocol end to end
// through the call-graph scheduler, including that the trigger is shared
// across coroutines and everything validates afterwards.
func TestSplitPass_UnderScheduler(t *testing.T) {
	src := attrSrc() + `
func @driver() -> unit {
bb0:
  call @gen(1:i32)
  ret
}
`
	m, typesIn, eng := parseCoro(t, src)
	pass := &coro.SplitPass{Types: typesIn, Layout: eng}

	sched := &callgraph.Scheduler{Passes: []callgraph.Pass{pass}}
	if err := sched.Run(m); err != nil {
		t.Fatalf("run: %v", err)
	}

	if err := ir.Validate(m); err != nil {
		t.Fatalf("validate output: %v", err)
	}
	gen := m.FuncNamed("gen")
	if _, ok := gen.Attr(coro.PresplitAttr); ok {
		t.Fatalf("attribute survived scheduling")
	}
	for _, name := range []string{"gen.resume", "gen.destroy", "gen.cleanup", coro.DevirtTriggerName} {
		if m.FuncNamed(name) == nil {
			t.Fatalf("missing %s after scheduling", name)
		}
	}
	if len(pass.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(pass.Records))
	}
}

// TestSplitPass_IgnoresPlainFunctions tests that an SCC with no marked
// functions reports no changes.
func TestSplitPass_IgnoresPlainFunctions(t *testing.T) {
	m, typesIn, eng := parseCoro(t, `
func @plain() -> unit {
bb0:
  ret
}
`)
	pass := &coro.SplitPass{Types: typesIn, Layout: eng}
	res, err := pass.RunOnSCC(m, []ir.FuncID{m.FuncNamed("plain").ID})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Changed || res.Revisit || len(res.Added) != 0 {
		t.Fatalf("plain SCC produced %+v", res)
	}
	if m.FuncNamed(coro.DevirtTriggerName) != nil {
		t.Fatalf("trigger created without any coroutine")
	}
}

// TestSplitPass_AttrWithoutBegin tests that a function claiming
// eligibility without a begin marker aborts the unit instead of being
// silently skipped, the frontend broke its contract.
func TestSplitPass_AttrWithoutBegin(t *testing.T) {
	m, typesIn, eng := parseCoro(t, `
func @bogus() -> unit attrs(coro.presplit=0) {
bb0:
  ret
}
`)
	f := m.FuncNamed("bogus")
	pass := &coro.SplitPass{Types: typesIn, Layout: eng}

	res1, err := pass.RunOnSCC(m, []ir.FuncID{f.ID})
	if err != nil {
		t.Fatalf("prepare encounter: %v", err)
	}
	if !res1.Revisit {
		t.Fatalf("prepare encounter must request a revisit: %+v", res1)
	}

	_, err = pass.RunOnSCC(m, []ir.FuncID{f.ID})
	if err == nil {
		t.Fatalf("split encounter accepted a marked function with no begin marker")
	}
	if !strings.Contains(err.Error(), "no begin marker") {
		t.Fatalf("error does not name the broken contract: %v", err)
	}
	if len(pass.Records) != 0 {
		t.Fatalf("bogus coroutine recorded: %+v", pass.Records)
	}
}
