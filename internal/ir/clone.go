package ir

import "slices"

// CloneFunc deep-copies a function body. Blocks and locals are addressed
// by dense indices, so cloned references remain valid without an explicit
// old-to-new value map; only the slices behind instructions need fresh
// backing storage. The clone has no ID until registered with a module.
func CloneFunc(f *Func) *Func {
	if f == nil {
		return nil
	}
	nf := &Func{
		ID:       NoFuncID,
		Name:     f.Name,
		Result:   f.Result,
		Params:   slices.Clone(f.Params),
		Locals:   slices.Clone(f.Locals),
		Entry:    f.Entry,
		CallConv: f.CallConv,
	}
	if len(f.Attrs) > 0 {
		nf.Attrs = make(map[string]string, len(f.Attrs))
		for k, v := range f.Attrs {
			nf.Attrs[k] = v
		}
	}
	nf.Blocks = make([]Block, len(f.Blocks))
	for i := range f.Blocks {
		nf.Blocks[i] = cloneBlock(&f.Blocks[i])
	}
	return nf
}

func cloneBlock(bb *Block) Block {
	out := Block{ID: bb.ID, Term: cloneTerm(&bb.Term)}
	out.Instrs = make([]Instr, len(bb.Instrs))
	for i := range bb.Instrs {
		out.Instrs[i] = cloneInstr(&bb.Instrs[i])
	}
	return out
}

func cloneInstr(ins *Instr) Instr {
	out := *ins
	switch ins.Kind {
	case InstrAssign:
		out.Assign.Dst.Proj = slices.Clone(ins.Assign.Dst.Proj)
		out.Assign.Src = cloneRValue(&ins.Assign.Src)
	case InstrCall:
		out.Call.Dst.Proj = slices.Clone(ins.Call.Dst.Proj)
		out.Call.Callee.Value = cloneOperand(&ins.Call.Callee.Value)
		out.Call.Args = make([]Operand, len(ins.Call.Args))
		for i := range ins.Call.Args {
			out.Call.Args[i] = cloneOperand(&ins.Call.Args[i])
		}
	case InstrCoroBegin:
		out.CoroBegin.Mem = cloneOperand(&ins.CoroBegin.Mem)
	case InstrCoroFree:
		out.CoroFree.Frame = cloneOperand(&ins.CoroFree.Frame)
	case InstrCoroSubFn:
		out.CoroSubFn.Frame = cloneOperand(&ins.CoroSubFn.Frame)
	}
	return out
}

func cloneRValue(rv *RValue) RValue {
	out := *rv
	switch rv.Kind {
	case RValueUse:
		out.Use = cloneOperand(&rv.Use)
	case RValueUnaryOp:
		out.Unary.Operand = cloneOperand(&rv.Unary.Operand)
	case RValueBinaryOp:
		out.Binary.Left = cloneOperand(&rv.Binary.Left)
		out.Binary.Right = cloneOperand(&rv.Binary.Right)
	case RValueSelect:
		out.Select.Cond = cloneOperand(&rv.Select.Cond)
		out.Select.Then = cloneOperand(&rv.Select.Then)
		out.Select.Else = cloneOperand(&rv.Select.Else)
	}
	return out
}

func cloneOperand(op *Operand) Operand {
	out := *op
	out.Place.Proj = slices.Clone(op.Place.Proj)
	return out
}

func cloneTerm(term *Terminator) Terminator {
	out := *term
	switch term.Kind {
	case TermReturn:
		out.Return.Value = cloneOperand(&term.Return.Value)
	case TermIf:
		out.If.Cond = cloneOperand(&term.If.Cond)
	case TermSwitch:
		out.Switch.Value = cloneOperand(&term.Switch.Value)
		out.Switch.Cases = slices.Clone(term.Switch.Cases)
	}
	return out
}
