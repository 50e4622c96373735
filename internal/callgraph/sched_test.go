package callgraph_test

import (
	"strings"
	"testing"

	"eddy/internal/callgraph"
	"eddy/internal/ir"
	"eddy/internal/types"
)

type recordingPass struct {
	name string
	run  func(m *ir.Module, scc []ir.FuncID) (callgraph.Result, error)
}

func (p *recordingPass) Name() string { return p.name }

func (p *recordingPass) RunOnSCC(m *ir.Module, scc []ir.FuncID) (callgraph.Result, error) {
	return p.run(m, scc)
}

func twoFuncModule(t *testing.T) *ir.Module {
	t.Helper()
	src := `
func @caller() -> unit {
bb0:
  call @callee()
  ret
}

func @callee() -> unit {
bb0:
  ret
}
`
	m, err := ir.ParseModule(src, types.NewInterner())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return m
}

// TestScheduler_Revisit tests that an SCC asking for a revisit is rerun
// before the scheduler moves to the next component.
func TestScheduler_Revisit(t *testing.T) {
	m := twoFuncModule(t)
	callee := m.FuncNamed("callee").ID

	var visits []ir.FuncID
	rounds := 0
	pass := &recordingPass{name: "probe", run: func(_ *ir.Module, scc []ir.FuncID) (callgraph.Result, error) {
		visits = append(visits, scc...)
		if scc[0] == callee && rounds == 0 {
			rounds++
			return callgraph.Result{Changed: true, Revisit: true}, nil
		}
		return callgraph.Result{}, nil
	}}

	if err := (&callgraph.Scheduler{Passes: []callgraph.Pass{pass}}).Run(m); err != nil {
		t.Fatalf("run: %v", err)
	}
	// callee twice (initial + revisit), then caller once.
	if len(visits) != 3 || visits[0] != callee || visits[1] != callee {
		t.Fatalf("visit order %v, want callee, callee, caller", visits)
	}
}

// TestScheduler_AddedFuncsScheduled tests that functions created by a
// pass get their own components after the producing SCC settles.
func TestScheduler_AddedFuncsScheduled(t *testing.T) {
	m := twoFuncModule(t)
	caller := m.FuncNamed("caller").ID

	var newID ir.FuncID = ir.NoFuncID
	var visits []ir.FuncID
	pass := &recordingPass{name: "outline", run: func(m *ir.Module, scc []ir.FuncID) (callgraph.Result, error) {
		visits = append(visits, scc...)
		if scc[0] == caller && newID == ir.NoFuncID {
			nf := &ir.Func{Name: "caller.split", Result: m.Funcs[caller].Result, Entry: ir.NoBlockID}
			bb := ir.NewBlock(nf)
			nf.Entry = bb
			ir.SetTerm(nf, bb, ir.ReturnVoid())
			id, err := m.AddFunc(nf)
			if err != nil {
				return callgraph.Result{}, err
			}
			newID = id
			return callgraph.Result{Changed: true, Added: []ir.FuncID{id}}, nil
		}
		return callgraph.Result{}, nil
	}}

	if err := (&callgraph.Scheduler{Passes: []callgraph.Pass{pass}}).Run(m); err != nil {
		t.Fatalf("run: %v", err)
	}
	if newID == ir.NoFuncID {
		t.Fatalf("pass never ran on the caller")
	}
	if visits[len(visits)-1] != newID {
		t.Fatalf("added function was not scheduled last: %v", visits)
	}
}

// TestScheduler_RevisitCap tests that a pass requesting revisits forever
// is cut off with an error instead of looping.
func TestScheduler_RevisitCap(t *testing.T) {
	m := twoFuncModule(t)

	pass := &recordingPass{name: "spin", run: func(_ *ir.Module, _ []ir.FuncID) (callgraph.Result, error) {
		return callgraph.Result{Revisit: true}, nil
	}}

	err := (&callgraph.Scheduler{Passes: []callgraph.Pass{pass}}).Run(m)
	if err == nil || !strings.Contains(err.Error(), "did not converge") {
		t.Fatalf("err = %v, want convergence failure", err)
	}
}
