package coro

import (
	"fmt"

	"eddy/internal/ir"
	"eddy/internal/layout"
	"eddy/internal/types"
)

// Fixed frame field positions. External code resumes and destroys a frame
// by calling through the first two slots without knowing the full layout,
// so these never move regardless of how many values spill.
const (
	frameFieldResume     = 0
	frameFieldDestroy    = 1
	frameFieldIndex      = 2
	frameFieldFirstSpill = 3
)

// buildFrame computes which locals are live across a suspension, registers
// the frame struct, and rewrites every access to a spilled local into an
// access through the frame pointer. Spilled values produced before the
// begin marker, parameters included, get an explicit store into their slot
// right after the marker, since they exist only during the initial
// invocation.
func buildFrame(s *Shape, typesIn *types.Interner) error {
	f := s.Func
	spills := spillSet(s)

	b := typesIn.Builtins()
	fields := []types.Field{
		{Name: "resume.fn", Type: b.FnPtr},
		{Name: "destroy.fn", Type: b.FnPtr},
		{Name: "index", Type: b.I32},
	}
	s.SpillSlots = make(map[ir.LocalID]int, len(spills))
	for _, id := range spills {
		s.SpillSlots[id] = len(fields)
		name := f.Locals[id].Name
		if name == "" {
			name = fmt.Sprintf("spill.%d", id)
		}
		fields = append(fields, types.Field{Name: name, Type: f.LocalType(id)})
	}
	s.FrameType = typesIn.RegisterStruct(f.Name+".frame", fields)

	rewriteSpillAccess(s)
	insertPreBeginSpills(s, spills)
	return s.rescan()
}

// spillSet returns, in stable order, every local that is live just after
// some suspend point. Marker results and the frame pointer itself never
// spill.
func spillSet(s *Shape) []ir.LocalID {
	f := s.Func
	excluded := make(ir.LocalSet)
	excluded.Add(s.FramePtr)
	if s.AllocVar != ir.NoLocalID {
		excluded.Add(s.AllocVar)
	}
	for _, sp := range s.Suspends {
		excluded.Add(f.Blocks[sp.Save.Block].Instrs[sp.Save.Instr].CoroSave.Dst)
		excluded.Add(s.suspendInstr(sp).Dst)
	}

	live := ir.ComputeLiveness(f)
	spills := make(ir.LocalSet)
	for _, sp := range s.Suspends {
		for id := range liveAfter(f, live, sp.Suspend) {
			if !excluded.Has(id) {
				spills.Add(id)
			}
		}
	}
	return spills.Sorted()
}

// liveAfter computes the live set at the program point just past site,
// walking the block backwards from its live-out.
func liveAfter(f *ir.Func, live []ir.BlockLiveness, site Site) ir.LocalSet {
	bb := &f.Blocks[site.Block]
	set := ir.CloneSet(live[site.Block].Out)
	ir.TermUses(&bb.Term, set.Add)
	for i := len(bb.Instrs) - 1; i > site.Instr; i-- {
		ins := &bb.Instrs[i]
		for _, def := range ir.InstrDefs(ins) {
			delete(set, def)
		}
		ir.InstrUses(ins, set.Add)
	}
	return set
}

// preBeginBlocks returns the blocks that execute before the begin marker:
// every block from which the begin block is reachable. The begin block
// itself is handled positionally by the marker's instruction index.
func preBeginBlocks(s *Shape) map[ir.BlockID]struct{} {
	preds := ir.PredBlocks(s.Func)
	pre := make(map[ir.BlockID]struct{})
	var visit func(id ir.BlockID)
	visit = func(id ir.BlockID) {
		if _, ok := pre[id]; ok {
			return
		}
		pre[id] = struct{}{}
		for _, p := range preds[id] {
			visit(p)
		}
	}
	for _, p := range preds[s.Begin.Block] {
		visit(p)
	}
	delete(pre, s.Begin.Block)
	return pre
}

// rewriteSpillAccess redirects every read and write of a spilled local
// through the frame pointer. Accesses before the begin marker, whether in
// an earlier block of the prologue or earlier in the begin block, are
// left alone, the frame does not exist yet there.
func rewriteSpillAccess(s *Shape) {
	f := s.Func
	rw := func(pl *ir.Place) {
		slot, ok := s.SpillSlots[pl.Local]
		if !ok {
			return
		}
		inner := pl.Proj
		*pl = ir.FieldPlace(s.FramePtr, slot)
		pl.Proj = append(pl.Proj, inner...)
	}
	pre := preBeginBlocks(s)
	for bi := range f.Blocks {
		if _, ok := pre[ir.BlockID(bi)]; ok { //nolint:gosec // block count bounded
			continue
		}
		bb := &f.Blocks[bi]
		for ii := range bb.Instrs {
			if ir.BlockID(bi) == s.Begin.Block && ii <= s.Begin.Instr { //nolint:gosec // block count bounded
				continue
			}
			rewriteInstrPlaces(&bb.Instrs[ii], rw)
		}
		rewriteTermPlaces(&bb.Term, rw)
	}
}

// insertPreBeginSpills stores every spilled local whose value is produced
// before the begin marker into its frame slot right after the marker.
// That covers parameters, prologue computations, and definitions the
// relocation pass pinned ahead of the frame allocation; they keep writing
// their plain locals, so the slot needs one explicit copy once the frame
// exists.
func insertPreBeginSpills(s *Shape, spills []ir.LocalID) {
	f := s.Func
	defined := make(ir.LocalSet)
	for _, p := range f.Params {
		defined.Add(p)
	}
	pre := preBeginBlocks(s)
	addDefs := func(ins *ir.Instr) {
		for _, def := range ir.InstrDefs(ins) {
			defined.Add(def)
		}
	}
	for bi := range pre {
		bb := &f.Blocks[bi]
		for ii := range bb.Instrs {
			addDefs(&bb.Instrs[ii])
		}
	}
	beginBB := &f.Blocks[s.Begin.Block]
	for ii := 0; ii < s.Begin.Instr; ii++ {
		addDefs(&beginBB.Instrs[ii])
	}

	var stores []ir.Instr
	for _, id := range spills {
		if !defined.Has(id) {
			continue
		}
		stores = append(stores, ir.Instr{Kind: ir.InstrAssign, Assign: ir.AssignInstr{
			Dst: ir.FieldPlace(s.FramePtr, s.SpillSlots[id]),
			Src: ir.UseRValue(ir.CopyOf(id, f.LocalType(id))),
		}})
	}
	if len(stores) == 0 {
		return
	}
	insertInstrs(f, s.Begin.Block, s.Begin.Instr+1, stores)
}

func insertInstrs(f *ir.Func, bbID ir.BlockID, at int, instrs []ir.Instr) {
	bb := &f.Blocks[bbID]
	out := make([]ir.Instr, 0, len(bb.Instrs)+len(instrs))
	out = append(out, bb.Instrs[:at]...)
	out = append(out, instrs...)
	out = append(out, bb.Instrs[at:]...)
	bb.Instrs = out
}

// FrameSize resolves the byte size of the computed frame type.
func FrameSize(s *Shape, eng *layout.Engine) (uint64, error) {
	if s.FrameType == types.NoTypeID {
		return 0, fmt.Errorf("coro: %s: frame type not built", s.Func.Name)
	}
	return eng.SizeOfU64(s.FrameType)
}

func rewriteInstrPlaces(ins *ir.Instr, rw func(*ir.Place)) {
	op := func(o *ir.Operand) {
		if o.Kind != ir.OperandConst {
			rw(&o.Place)
		}
	}
	switch ins.Kind {
	case ir.InstrAssign:
		rw(&ins.Assign.Dst)
		rewriteRValueOperands(&ins.Assign.Src, op)
	case ir.InstrCall:
		if ins.Call.HasDst {
			rw(&ins.Call.Dst)
		}
		if ins.Call.Callee.Kind == ir.CalleeValue {
			op(&ins.Call.Callee.Value)
		}
		for i := range ins.Call.Args {
			op(&ins.Call.Args[i])
		}
	case ir.InstrCoroBegin:
		op(&ins.CoroBegin.Mem)
	case ir.InstrCoroFree:
		op(&ins.CoroFree.Frame)
	case ir.InstrCoroSubFn:
		op(&ins.CoroSubFn.Frame)
	}
}

func rewriteTermPlaces(term *ir.Terminator, rw func(*ir.Place)) {
	op := func(o *ir.Operand) {
		if o.Kind != ir.OperandConst {
			rw(&o.Place)
		}
	}
	switch term.Kind {
	case ir.TermReturn:
		if term.Return.HasValue {
			op(&term.Return.Value)
		}
	case ir.TermIf:
		op(&term.If.Cond)
	case ir.TermSwitch:
		op(&term.Switch.Value)
	}
}

func rewriteRValueOperands(rv *ir.RValue, op func(*ir.Operand)) {
	switch rv.Kind {
	case ir.RValueUse:
		op(&rv.Use)
	case ir.RValueUnaryOp:
		op(&rv.Unary.Operand)
	case ir.RValueBinaryOp:
		op(&rv.Binary.Left)
		op(&rv.Binary.Right)
	case ir.RValueSelect:
		op(&rv.Select.Cond)
		op(&rv.Select.Then)
		op(&rv.Select.Else)
	}
}
