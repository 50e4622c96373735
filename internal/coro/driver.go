package coro

import (
	"fmt"

	"eddy/internal/callgraph"
	"eddy/internal/ir"
	"eddy/internal/layout"
	"eddy/internal/types"
)

// PresplitAttr is the tri-state eligibility marker the frontend sets on
// every coroutine. Its value moves from unprepared to prepared on the
// first scheduler encounter; the attribute disappears entirely once the
// function is split, which is what makes splitting at-most-once.
const (
	PresplitAttr       = "coro.presplit"
	UnpreparedForSplit = "0"
	PreparedForSplit   = "1"
)

// DevirtTriggerName is the shared probe target. The function is never
// meant to run, it exists so the probe's indirect call has something for
// the devirtualization stage to resolve.
const DevirtTriggerName = "coro.devirt.trigger"

// SplitPass plugs coroutine splitting into the call-graph scheduler. On
// the first encounter with a coroutine's SCC it only prepares the
// function and asks for a revisit, so earlier optimizations see the whole
// body once more; the actual split happens on the second encounter.
type SplitPass struct {
	Types  *types.Interner
	Layout *layout.Engine

	// Records accumulates one entry per split coroutine, in split order,
	// for the metadata sidecar.
	Records []Record
}

func (p *SplitPass) Name() string { return "coro-split" }

func (p *SplitPass) RunOnSCC(m *ir.Module, scc []ir.FuncID) (callgraph.Result, error) {
	var coroutines []*ir.Func
	for _, id := range scc {
		f := m.Funcs[id]
		if f == nil {
			continue
		}
		if _, ok := f.Attr(PresplitAttr); ok {
			coroutines = append(coroutines, f)
		}
	}
	if len(coroutines) == 0 {
		return callgraph.Result{}, nil
	}

	var out callgraph.Result
	out.Changed = true
	if id, created := ensureDevirtTrigger(m, p.Types); created {
		out.Added = append(out.Added, id)
	}

	for _, f := range coroutines {
		state, _ := f.Attr(PresplitAttr)
		if state == UnpreparedForSplit {
			prepareForSplit(f, p.Types)
			out.Revisit = true
			continue
		}
		f.RemoveAttr(PresplitAttr)
		res, err := Split(m, f, p.Types, p.Layout)
		if err != nil {
			return callgraph.Result{}, err
		}
		if res == nil {
			// The attribute promises a coroutine body. A function that
			// carries it without a begin marker means the frontend broke
			// its contract.
			return callgraph.Result{}, fmt.Errorf("coro: %s: marked %s but has no begin marker", f.Name, PresplitAttr)
		}
		if !res.Split {
			continue
		}
		out.Added = append(out.Added, res.Resume, res.Destroy, res.Cleanup)
		p.Records = append(p.Records, Record{
			Func:         f.Name,
			FrameSize:    res.FrameSize,
			SuspendCount: res.SuspendCount,
			HasFinal:     res.HasFinal,
			Resume:       m.Funcs[res.Resume].Name,
			Destroy:      m.Funcs[res.Destroy].Name,
			Cleanup:      m.Funcs[res.Cleanup].Name,
		})
	}
	return out, nil
}

// prepareForSplit marks f prepared and plants the devirtualization probe
// in its entry block:
//
//	%a = coro.subfn frame=null index=-1
//	call value %a(null)
//
// The indirect call forces the scheduler to come back to this SCC, and
// the downstream devirtualization stage resolves it away.
func prepareForSplit(f *ir.Func, typesIn *types.Interner) {
	f.SetAttr(PresplitAttr, PreparedForSplit)
	b := typesIn.Builtins()

	addr := ir.AddLocal(f, "devirt.addr", b.FnPtr)
	null := ir.ConstOperand(ir.NullConst(b.RawPtr))
	probe := []ir.Instr{
		{Kind: ir.InstrCoroSubFn, CoroSubFn: ir.CoroSubFnInstr{
			Dst:   addr,
			Frame: null,
			Index: ir.SubFnRestartTrigger,
		}},
		{Kind: ir.InstrCall, Call: ir.CallInstr{
			Callee: ir.Callee{Kind: ir.CalleeValue, Value: ir.CopyOf(addr, b.FnPtr)},
			Args:   []ir.Operand{null},
		}},
	}
	insertInstrs(f, f.Entry, len(f.Blocks[f.Entry].Instrs), probe)
}

// ensureDevirtTrigger creates the shared trigger function on first use.
// Reports whether this call created it.
func ensureDevirtTrigger(m *ir.Module, typesIn *types.Interner) (ir.FuncID, bool) {
	if f := m.FuncNamed(DevirtTriggerName); f != nil {
		return f.ID, false
	}
	b := typesIn.Builtins()
	f := &ir.Func{Name: DevirtTriggerName, Result: b.Unit, Entry: ir.NoBlockID}
	arg := ir.AddLocal(f, "frame", b.RawPtr)
	f.Params = []ir.LocalID{arg}
	entry := ir.NewBlock(f)
	f.Entry = entry
	ir.SetTerm(f, entry, ir.ReturnVoid())
	id, err := m.AddFunc(f)
	if err != nil {
		// Name collision is impossible, FuncNamed just missed.
		return ir.NoFuncID, false
	}
	return id, true
}
