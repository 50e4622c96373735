package coro

import (
	"slices"

	"eddy/internal/ir"
	"eddy/internal/types"
)

// Selector value a suspend evaluates to on the fall-through path, meaning
// "actually suspended, return to the caller".
const selectorSuspended = -1

// dispatch describes the resume entry machinery built into the original
// function. Block IDs survive cloning unchanged, so the clones locate
// their copies of these blocks by the same IDs.
type dispatch struct {
	Entry   ir.BlockID // switch on the stored resume index
	Unreach ir.BlockID // switch default, trap for corrupted frames
	// FinalResume is the block holding the final suspend point. The
	// destroy clone branches to it on a nulled resume slot. NoBlockID
	// when the coroutine has no final suspend.
	FinalResume ir.BlockID
}

// buildResumeEntry rewrites every suspend point into the split form the
// clones dispatch over and synthesizes the resume entry block:
//
//	dispatch:
//	  %idx = %frame.deref.f2
//	  switch %idx [0 -> resume.0, ...] default trap
//
// Each save marker becomes a store of the point's resume index into the
// frame; the final suspend stores null over the resume slot instead. The
// suspend itself is isolated in its own block so a clone can choose its
// path by swapping one instruction, and the fall-through predecessor
// assigns the "suspended" selector to merge with the clone's literal.
//
// The dispatch block has no predecessors in the original function; only
// the clones branch to it. Suspend points are processed last to first so
// earlier recorded sites stay valid while blocks split.
func buildResumeEntry(s *Shape, typesIn *types.Interner) dispatch {
	f := s.Func
	b := typesIn.Builtins()

	d := dispatch{
		Entry:       ir.NewBlock(f),
		Unreach:     ir.NewBlock(f),
		FinalResume: ir.NoBlockID,
	}
	ir.SetTerm(f, d.Unreach, ir.Terminator{Kind: ir.TermUnreachable})

	var cases []ir.SwitchCase
	for i := len(s.Suspends) - 1; i >= 0; i-- {
		sp := s.Suspends[i]
		suspendDst := s.suspendInstr(sp).Dst

		// Materialize the save marker's effect.
		saveSlot := ir.FieldPlace(s.FramePtr, frameFieldIndex)
		saveVal := ir.ConstOperand(ir.IntConst(int64(i), b.I32))
		if sp.Final {
			saveSlot = ir.FieldPlace(s.FramePtr, frameFieldResume)
			saveVal = ir.ConstOperand(ir.NullConst(b.FnPtr))
		}
		f.Blocks[sp.Save.Block].Instrs[sp.Save.Instr] = ir.Instr{
			Kind:   ir.InstrAssign,
			Assign: ir.AssignInstr{Dst: saveSlot, Src: ir.UseRValue(saveVal)},
		}

		// Isolate the suspend and give the fall-through path its selector.
		resumeBB := ir.SplitBlockAt(f, sp.Suspend.Block, sp.Suspend.Instr)
		landingBB := ir.SplitBlockAt(f, resumeBB, 1)
		ir.AppendInstr(f, sp.Suspend.Block, ir.Instr{Kind: ir.InstrAssign, Assign: ir.AssignInstr{
			Dst: ir.LocalPlace(suspendDst),
			Src: ir.UseRValue(ir.ConstOperand(ir.IntConst(selectorSuspended, b.I8))),
		}})
		ir.SetTerm(f, sp.Suspend.Block, ir.GotoTo(landingBB))

		cases = append(cases, ir.SwitchCase{Value: int64(i), Target: resumeBB})
		if sp.Final {
			d.FinalResume = resumeBB
		}
	}
	slices.Reverse(cases)

	idx := ir.AddLocal(f, "resume.idx", b.I32)
	ir.AppendInstr(f, d.Entry, ir.Instr{Kind: ir.InstrAssign, Assign: ir.AssignInstr{
		Dst: ir.LocalPlace(idx),
		Src: ir.UseRValue(ir.CopyOfPlace(ir.FieldPlace(s.FramePtr, frameFieldIndex), b.I32)),
	}})
	ir.SetTerm(f, d.Entry, ir.Terminator{Kind: ir.TermSwitch, Switch: ir.SwitchTerm{
		Value:   ir.CopyOf(idx, b.I32),
		Cases:   cases,
		Default: d.Unreach,
	}})
	return d
}
