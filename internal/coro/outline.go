package coro

import (
	"eddy/internal/ir"
	"eddy/internal/types"
)

// CloneKind selects which of the three outlined functions a clone becomes.
type CloneKind int

const (
	CloneResume CloneKind = iota
	CloneDestroy
	CloneCleanup
)

func (k CloneKind) suffix() string {
	switch k {
	case CloneResume:
		return ".resume"
	case CloneDestroy:
		return ".destroy"
	default:
		return ".cleanup"
	}
}

// selector returns the literal every suspend point collapses to in this
// clone: resume takes the zero path, destroy and cleanup take the cleanup
// path.
func (k CloneKind) selector() int64 {
	if k == CloneResume {
		return selectorResume
	}
	return selectorCleanup
}

// createClone outlines one specialization of the restructured coroutine
// body. The clone takes only the frame pointer, enters through the
// dispatch machinery instead of the original entry, and fixes every
// suspend point to a literal selector so dead paths fold away. Block IDs
// are dense and copied verbatim, so the dispatch block IDs recorded on d
// are valid inside the clone.
func createClone(s *Shape, d dispatch, kind CloneKind, typesIn *types.Interner) *ir.Func {
	b := typesIn.Builtins()
	nf := ir.CloneFunc(s.Func)
	nf.ID = ir.NoFuncID
	nf.Name = s.Func.Name + kind.suffix()
	nf.Result = b.Unit
	nf.CallConv = ir.CallConvFast
	nf.RemoveAttr(PresplitAttr)
	nf.Params = []ir.LocalID{s.FramePtr}

	oldEntry := nf.Entry
	newEntry := ir.NewBlock(nf)
	nf.Entry = newEntry

	// The original body only returns from the initial invocation; a clone
	// re-entering the body must never reach those exits. Do this before
	// end markers introduce the clone's own returns.
	for bi := range nf.Blocks {
		if nf.Blocks[bi].Term.Kind == ir.TermReturn {
			nf.Blocks[bi].Term = ir.Terminator{Kind: ir.TermUnreachable}
		}
	}

	if _, hasFinal := s.FinalSuspend(); hasFinal {
		dropFinalCase(nf, d)
	}
	if d.FinalResume != ir.NoBlockID && kind != CloneResume {
		// A nulled resume slot means the frame sits at the final suspend,
		// which has no switch case. Test it before dispatching.
		resumeFn := ir.AddLocal(nf, "resume.fn", b.FnPtr)
		atFinal := ir.AddLocal(nf, "at.final", b.Bool)
		ir.AppendInstr(nf, newEntry, ir.Instr{Kind: ir.InstrAssign, Assign: ir.AssignInstr{
			Dst: ir.LocalPlace(resumeFn),
			Src: ir.UseRValue(ir.CopyOfPlace(ir.FieldPlace(s.FramePtr, frameFieldResume), b.FnPtr)),
		}})
		ir.AppendInstr(nf, newEntry, ir.Instr{Kind: ir.InstrAssign, Assign: ir.AssignInstr{
			Dst: ir.LocalPlace(atFinal),
			Src: ir.RValue{Kind: ir.RValueBinaryOp, Binary: ir.BinaryOp{
				Op:    ir.BinaryEq,
				Left:  ir.CopyOf(resumeFn, b.FnPtr),
				Right: ir.ConstOperand(ir.NullConst(b.FnPtr)),
			}},
		}})
		ir.SetTerm(nf, newEntry, ir.Terminator{Kind: ir.TermIf, If: ir.IfTerm{
			Cond: ir.CopyOf(atFinal, b.Bool),
			Then: d.FinalResume,
			Else: d.Entry,
		}})
	} else {
		ir.SetTerm(nf, newEntry, ir.GotoTo(d.Entry))
	}

	specializeMarkers(nf, kind, b)
	retargetBlock(nf, oldEntry, d.Unreach)
	return nf
}

// dropFinalCase removes the final suspend's switch case from the clone's
// dispatch. Resuming at the final suspend point is undefined behavior, so
// no index ever selects it.
func dropFinalCase(nf *ir.Func, d dispatch) {
	sw := &nf.Blocks[d.Entry].Term.Switch
	if n := len(sw.Cases); n > 0 {
		sw.Cases = sw.Cases[:n-1]
	}
}

// specializeMarkers rewrites the markers that survive in a clone body:
// suspends become the clone's selector literal, fall-through ends become
// plain returns, unwind ends signal true, and free queries answer whether
// this clone deallocates.
func specializeMarkers(nf *ir.Func, kind CloneKind, b types.Builtins) {
	for bi := range nf.Blocks {
		bb := &nf.Blocks[bi]
		for ii := 0; ii < len(bb.Instrs); ii++ {
			ins := &bb.Instrs[ii]
			switch ins.Kind {
			case ir.InstrCoroSuspend:
				*ins = constAssign(ins.CoroSuspend.Dst, ir.IntConst(kind.selector(), b.I8))
			case ir.InstrCoroEnd:
				if ins.CoroEnd.Unwind {
					*ins = constAssign(ins.CoroEnd.Dst, ir.BoolConst(true, b.Bool))
					continue
				}
				// Normal completion: return here, the rest of the block
				// never runs again.
				bb.Instrs = bb.Instrs[:ii]
				bb.Term = ir.ReturnVoid()
			case ir.InstrCoroFree:
				*ins = constAssign(ins.CoroFree.Dst, ir.BoolConst(kind != CloneCleanup, b.Bool))
			}
		}
	}
}

func constAssign(dst ir.LocalID, c ir.Const) ir.Instr {
	return ir.Instr{Kind: ir.InstrAssign, Assign: ir.AssignInstr{
		Dst: ir.LocalPlace(dst),
		Src: ir.UseRValue(ir.ConstOperand(c)),
	}}
}

// retargetBlock redirects every edge into from over to target. Used to cut
// the cloned original entry out of the CFG so its one-shot setup code is
// provably dead.
func retargetBlock(nf *ir.Func, from, to ir.BlockID) {
	redirect := func(id *ir.BlockID) {
		if *id == from {
			*id = to
		}
	}
	for bi := range nf.Blocks {
		term := &nf.Blocks[bi].Term
		switch term.Kind {
		case ir.TermGoto:
			redirect(&term.Goto.Target)
		case ir.TermIf:
			redirect(&term.If.Then)
			redirect(&term.If.Else)
		case ir.TermSwitch:
			for ci := range term.Switch.Cases {
				redirect(&term.Switch.Cases[ci].Target)
			}
			redirect(&term.Switch.Default)
		}
	}
}
