package ir

import "sort"

// LocalSet is a set of local IDs.
type LocalSet map[LocalID]struct{}

func (s LocalSet) Add(id LocalID) {
	if id == NoLocalID {
		return
	}
	s[id] = struct{}{}
}

func (s LocalSet) Has(id LocalID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s LocalSet) Sorted() []LocalID {
	out := make([]LocalID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CloneSet creates a copy of a LocalSet.
func CloneSet(s LocalSet) LocalSet {
	if len(s) == 0 {
		return LocalSet{}
	}
	out := make(LocalSet, len(s))
	for id := range s {
		out.Add(id)
	}
	return out
}

// UnionSet merges src into dst and returns dst.
func UnionSet(dst, src LocalSet) LocalSet {
	if dst == nil {
		dst = LocalSet{}
	}
	for id := range src {
		dst.Add(id)
	}
	return dst
}

// SubtractSet returns src minus sub.
func SubtractSet(src, sub LocalSet) LocalSet {
	out := LocalSet{}
	for id := range src {
		if sub.Has(id) {
			continue
		}
		out.Add(id)
	}
	return out
}

func setEqual(a, b LocalSet) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b.Has(id) {
			return false
		}
	}
	return true
}

// BlockLiveness holds use/def/in/out sets for one block.
type BlockLiveness struct {
	Use LocalSet
	Def LocalSet
	In  LocalSet
	Out LocalSet
}

// ComputeLiveness computes per-block liveness by backwards iteration to a
// fixpoint.
func ComputeLiveness(f *Func) []BlockLiveness {
	if f == nil {
		return nil
	}
	info := make([]BlockLiveness, len(f.Blocks))
	for i := range f.Blocks {
		use, def := blockUseDef(&f.Blocks[i])
		info[i].Use = use
		info[i].Def = def
	}

	changed := true
	for changed {
		changed = false
		for i := len(f.Blocks) - 1; i >= 0; i-- {
			out := LocalSet{}
			for _, succ := range SuccBlocks(f, BlockID(i)) { //nolint:gosec // bounded by block count
				if succ == NoBlockID || int(succ) >= len(info) {
					continue
				}
				out = UnionSet(out, info[succ].In)
			}
			in := UnionSet(CloneSet(info[i].Use), SubtractSet(out, info[i].Def))

			if !setEqual(out, info[i].Out) || !setEqual(in, info[i].In) {
				info[i].Out = out
				info[i].In = in
				changed = true
			}
		}
	}
	return info
}

func blockUseDef(bb *Block) (use, def LocalSet) {
	use = LocalSet{}
	def = LocalSet{}
	if bb == nil {
		return use, def
	}
	addUse := func(id LocalID) {
		if id == NoLocalID || def.Has(id) {
			return
		}
		use.Add(id)
	}
	addDef := func(id LocalID) {
		def.Add(id)
	}

	for i := range bb.Instrs {
		InstrUses(&bb.Instrs[i], addUse)
		for _, d := range InstrDefs(&bb.Instrs[i]) {
			addDef(d)
		}
	}
	TermUses(&bb.Term, addUse)
	return use, def
}

// InstrUses reports every local an instruction reads.
func InstrUses(ins *Instr, addUse func(LocalID)) {
	if ins == nil {
		return
	}
	switch ins.Kind {
	case InstrAssign:
		rvalueUses(&ins.Assign.Src, addUse)
		placeWriteUses(ins.Assign.Dst, addUse)
	case InstrCall:
		if ins.Call.Callee.Kind == CalleeValue {
			operandUses(&ins.Call.Callee.Value, addUse)
		}
		for i := range ins.Call.Args {
			operandUses(&ins.Call.Args[i], addUse)
		}
		if ins.Call.HasDst {
			placeWriteUses(ins.Call.Dst, addUse)
		}
	case InstrCoroBegin:
		operandUses(&ins.CoroBegin.Mem, addUse)
		if ins.CoroBegin.Alloc != NoLocalID {
			addUse(ins.CoroBegin.Alloc)
		}
	case InstrCoroSuspend:
		if ins.CoroSuspend.Save != NoLocalID {
			addUse(ins.CoroSuspend.Save)
		}
	case InstrCoroFree:
		operandUses(&ins.CoroFree.Frame, addUse)
	case InstrCoroSubFn:
		operandUses(&ins.CoroSubFn.Frame, addUse)
	}
}

// InstrDefs reports the bare locals an instruction writes.
func InstrDefs(ins *Instr) []LocalID {
	if ins == nil {
		return nil
	}
	switch ins.Kind {
	case InstrAssign:
		if len(ins.Assign.Dst.Proj) == 0 && ins.Assign.Dst.Local != NoLocalID {
			return []LocalID{ins.Assign.Dst.Local}
		}
	case InstrCall:
		if ins.Call.HasDst && len(ins.Call.Dst.Proj) == 0 && ins.Call.Dst.Local != NoLocalID {
			return []LocalID{ins.Call.Dst.Local}
		}
	case InstrCoroBegin:
		return []LocalID{ins.CoroBegin.Dst}
	case InstrCoroAlloc:
		return []LocalID{ins.CoroAlloc.Dst}
	case InstrCoroSave:
		return []LocalID{ins.CoroSave.Dst}
	case InstrCoroSuspend:
		return []LocalID{ins.CoroSuspend.Dst}
	case InstrCoroEnd:
		return []LocalID{ins.CoroEnd.Dst}
	case InstrCoroSize:
		return []LocalID{ins.CoroSize.Dst}
	case InstrCoroFree:
		return []LocalID{ins.CoroFree.Dst}
	case InstrCoroSubFn:
		return []LocalID{ins.CoroSubFn.Dst}
	}
	return nil
}

// TermUses reports every local a terminator reads.
func TermUses(term *Terminator, addUse func(LocalID)) {
	if term == nil {
		return
	}
	switch term.Kind {
	case TermReturn:
		if term.Return.HasValue {
			operandUses(&term.Return.Value, addUse)
		}
	case TermIf:
		operandUses(&term.If.Cond, addUse)
	case TermSwitch:
		operandUses(&term.Switch.Value, addUse)
	}
}

func operandUses(op *Operand, addUse func(LocalID)) {
	if op == nil {
		return
	}
	switch op.Kind {
	case OperandCopy, OperandMove, OperandAddrOf:
		placeUses(op.Place, addUse)
	}
}

func rvalueUses(rv *RValue, addUse func(LocalID)) {
	if rv == nil {
		return
	}
	switch rv.Kind {
	case RValueUse:
		operandUses(&rv.Use, addUse)
	case RValueUnaryOp:
		operandUses(&rv.Unary.Operand, addUse)
	case RValueBinaryOp:
		operandUses(&rv.Binary.Left, addUse)
		operandUses(&rv.Binary.Right, addUse)
	case RValueSelect:
		operandUses(&rv.Select.Cond, addUse)
		operandUses(&rv.Select.Then, addUse)
		operandUses(&rv.Select.Else, addUse)
	}
}

func placeUses(p Place, addUse func(LocalID)) {
	if p.Local != NoLocalID {
		addUse(p.Local)
	}
}

// placeWriteUses reports locals read by a write destination: a projected
// write goes through the base local, so the base is a use, not a def.
func placeWriteUses(p Place, addUse func(LocalID)) {
	if len(p.Proj) == 0 {
		return
	}
	placeUses(p, addUse)
}

// CountLocalUses counts how many instructions and terminators read id.
func CountLocalUses(f *Func, id LocalID) int {
	if f == nil || id == NoLocalID {
		return 0
	}
	count := 0
	probe := func(used LocalID) {
		if used == id {
			count++
		}
	}
	for bi := range f.Blocks {
		bb := &f.Blocks[bi]
		for i := range bb.Instrs {
			InstrUses(&bb.Instrs[i], probe)
		}
		TermUses(&bb.Term, probe)
	}
	return count
}
