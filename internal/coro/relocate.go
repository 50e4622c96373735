package coro

import "eddy/internal/ir"

// relocateBeforeBegin moves instructions of the begin block that are not
// needed to compute the allocation to just after the begin marker. Their
// results may end up frame resident, and the frame only exists once begin
// has run. Instructions that take the address of a local stay put so the
// address keeps naming the original stack slot.
func relocateBeforeBegin(s *Shape) error {
	bb := &s.Func.Blocks[s.Begin.Block]
	beginAt := s.Begin.Instr
	if beginAt == 0 {
		return nil
	}

	needed := allocClosure(bb, beginAt)

	var kept, moved []ir.Instr
	for i := 0; i < beginAt; i++ {
		ins := bb.Instrs[i]
		if instrPinned(&ins, needed) {
			kept = append(kept, ins)
		} else {
			moved = append(moved, ins)
		}
	}
	if len(moved) == 0 {
		return nil
	}

	rest := bb.Instrs[beginAt+1:]
	out := make([]ir.Instr, 0, len(bb.Instrs))
	out = append(out, kept...)
	out = append(out, bb.Instrs[beginAt])
	out = append(out, moved...)
	out = append(out, rest...)
	bb.Instrs = out
	return s.rescan()
}

// allocClosure computes the locals the begin marker depends on, chasing
// definitions backwards through the begin block.
func allocClosure(bb *ir.Block, beginAt int) ir.LocalSet {
	needed := make(ir.LocalSet)
	ir.InstrUses(&bb.Instrs[beginAt], needed.Add)
	for i := beginAt - 1; i >= 0; i-- {
		ins := &bb.Instrs[i]
		defsNeeded := false
		for _, def := range ir.InstrDefs(ins) {
			if needed.Has(def) {
				defsNeeded = true
				break
			}
		}
		if defsNeeded {
			ir.InstrUses(ins, needed.Add)
		}
	}
	return needed
}

func instrPinned(ins *ir.Instr, needed ir.LocalSet) bool {
	if ins.Kind == ir.InstrAssign && rvalueTakesAddress(&ins.Assign.Src) {
		return true
	}
	for _, def := range ir.InstrDefs(ins) {
		if needed.Has(def) {
			return true
		}
	}
	return false
}

func rvalueTakesAddress(rv *ir.RValue) bool {
	taken := false
	visit := func(op *ir.Operand) {
		if op.Kind == ir.OperandAddrOf {
			taken = true
		}
	}
	switch rv.Kind {
	case ir.RValueUse:
		visit(&rv.Use)
	case ir.RValueUnaryOp:
		visit(&rv.Unary.Operand)
	case ir.RValueBinaryOp:
		visit(&rv.Binary.Left)
		visit(&rv.Binary.Right)
	case ir.RValueSelect:
		visit(&rv.Select.Cond)
		visit(&rv.Select.Then)
		visit(&rv.Select.Else)
	}
	return taken
}
