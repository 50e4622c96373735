package ir

// FoldConstBranches folds If and Switch terminators whose operand has a
// single reachable constant definition. Reachability is recomputed after
// every round so that definitions in dead code do not inhibit folding.
// Dead blocks are left in place; run SimplifyCFG afterwards to drop them.
func FoldConstBranches(f *Func) bool {
	if f == nil || len(f.Blocks) == 0 {
		return false
	}
	folded := false
	for {
		changed := foldRound(f)
		if !changed {
			return folded
		}
		folded = true
	}
}

func foldRound(f *Func) bool {
	reach := make(map[BlockID]struct{})
	for _, id := range ReachableFrom(f, f.Entry) {
		reach[id] = struct{}{}
	}

	consts := reachableConstLocals(f, reach)

	changed := false
	for bi := range f.Blocks {
		if _, ok := reach[f.Blocks[bi].ID]; !ok {
			continue
		}
		term := &f.Blocks[bi].Term
		switch term.Kind {
		case TermIf:
			c, ok := operandConst(&term.If.Cond, consts)
			if !ok || c.Kind != ConstBool {
				continue
			}
			target := term.If.Else
			if c.BoolValue {
				target = term.If.Then
			}
			*term = GotoTo(target)
			changed = true
		case TermSwitch:
			c, ok := operandConst(&term.Switch.Value, consts)
			if !ok {
				continue
			}
			v, ok := constAsInt(c)
			if !ok {
				continue
			}
			target := term.Switch.Default
			for _, cs := range term.Switch.Cases {
				if cs.Value == v {
					target = cs.Target
					break
				}
			}
			*term = GotoTo(target)
			changed = true
		}
	}
	return changed
}

// reachableConstLocals finds locals with exactly one reachable definition,
// that definition being a constant assignment. Parameters and locals whose
// address is taken are never constant.
func reachableConstLocals(f *Func, reach map[BlockID]struct{}) map[LocalID]Const {
	excluded := LocalSet{}
	for _, p := range f.Params {
		excluded.Add(p)
	}
	for bi := range f.Blocks {
		bb := &f.Blocks[bi]
		for i := range bb.Instrs {
			markAddrTaken(&bb.Instrs[i], excluded)
		}
	}

	type defInfo struct {
		count int
		c     Const
		isC   bool
	}
	defs := make(map[LocalID]*defInfo)
	record := func(id LocalID, c Const, isC bool) {
		di := defs[id]
		if di == nil {
			di = &defInfo{}
			defs[id] = di
		}
		di.count++
		di.c = c
		di.isC = isC
	}

	for bi := range f.Blocks {
		bb := &f.Blocks[bi]
		if _, ok := reach[bb.ID]; !ok {
			continue
		}
		for i := range bb.Instrs {
			ins := &bb.Instrs[i]
			if ins.Kind == InstrAssign &&
				len(ins.Assign.Dst.Proj) == 0 &&
				ins.Assign.Src.Kind == RValueUse &&
				ins.Assign.Src.Use.Kind == OperandConst {
				record(ins.Assign.Dst.Local, ins.Assign.Src.Use.Const, true)
				continue
			}
			for _, d := range InstrDefs(ins) {
				record(d, Const{}, false)
			}
		}
	}

	out := make(map[LocalID]Const)
	for id, di := range defs {
		if di.count == 1 && di.isC && !excluded.Has(id) {
			out[id] = di.c
		}
	}
	return out
}

func markAddrTaken(ins *Instr, set LocalSet) {
	mark := func(op *Operand) {
		if op.Kind == OperandAddrOf && op.Place.Local != NoLocalID {
			set.Add(op.Place.Local)
		}
	}
	switch ins.Kind {
	case InstrAssign:
		switch ins.Assign.Src.Kind {
		case RValueUse:
			mark(&ins.Assign.Src.Use)
		case RValueUnaryOp:
			mark(&ins.Assign.Src.Unary.Operand)
		case RValueBinaryOp:
			mark(&ins.Assign.Src.Binary.Left)
			mark(&ins.Assign.Src.Binary.Right)
		case RValueSelect:
			mark(&ins.Assign.Src.Select.Cond)
			mark(&ins.Assign.Src.Select.Then)
			mark(&ins.Assign.Src.Select.Else)
		}
	case InstrCall:
		for i := range ins.Call.Args {
			mark(&ins.Call.Args[i])
		}
		if ins.Call.Callee.Kind == CalleeValue {
			mark(&ins.Call.Callee.Value)
		}
	case InstrCoroBegin:
		mark(&ins.CoroBegin.Mem)
	case InstrCoroFree:
		mark(&ins.CoroFree.Frame)
	case InstrCoroSubFn:
		mark(&ins.CoroSubFn.Frame)
	}
}

func operandConst(op *Operand, consts map[LocalID]Const) (Const, bool) {
	switch op.Kind {
	case OperandConst:
		return op.Const, true
	case OperandCopy, OperandMove:
		if len(op.Place.Proj) != 0 {
			return Const{}, false
		}
		c, ok := consts[op.Place.Local]
		return c, ok
	default:
		return Const{}, false
	}
}

func constAsInt(c Const) (int64, bool) {
	switch c.Kind {
	case ConstInt:
		return c.IntValue, true
	case ConstUint:
		return int64(c.UintValue), true //nolint:gosec // switch case values are small
	case ConstBool:
		if c.BoolValue {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
