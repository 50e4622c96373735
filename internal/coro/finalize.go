package coro

import (
	"fmt"

	"eddy/internal/ir"
	"eddy/internal/layout"
	"eddy/internal/types"
)

// replaceFrameSize resolves every frame-size query to the concrete byte
// size of the computed frame type.
func replaceFrameSize(s *Shape, eng *layout.Engine) error {
	if len(s.Sizes) == 0 {
		return nil
	}
	size, err := FrameSize(s, eng)
	if err != nil {
		return err
	}
	b := eng.Types.Builtins()
	for _, at := range s.Sizes {
		ins := &s.Func.Blocks[at.Block].Instrs[at.Instr]
		*ins = constAssign(ins.CoroSize.Dst, ir.UintConst(size, b.U64))
	}
	return nil
}

// updateFrame stores the outlined function addresses into the frame right
// after the begin marker. The resume slot always gets the resume clone.
// The destroy slot gets the destroy clone, except when the frontend
// supplied an elision hint: then the slot is chosen at run time, cleanup
// for an elided frame so no deallocation happens, destroy otherwise.
func updateFrame(s *Shape, resume, destroy, cleanup ir.FuncID, typesIn *types.Interner) {
	f := s.Func
	b := typesIn.Builtins()

	stores := []ir.Instr{{Kind: ir.InstrAssign, Assign: ir.AssignInstr{
		Dst: ir.FieldPlace(s.FramePtr, frameFieldResume),
		Src: ir.UseRValue(ir.ConstOperand(ir.FnConst(resume, b.FnPtr))),
	}}}

	destroySlot := ir.UseRValue(ir.ConstOperand(ir.FnConst(destroy, b.FnPtr)))
	if s.AllocVar != ir.NoLocalID {
		destroySlot = ir.RValue{Kind: ir.RValueSelect, Select: ir.SelectOp{
			Cond: ir.CopyOf(s.AllocVar, b.Bool),
			Then: ir.ConstOperand(ir.FnConst(destroy, b.FnPtr)),
			Else: ir.ConstOperand(ir.FnConst(cleanup, b.FnPtr)),
		}}
	}
	stores = append(stores, ir.Instr{Kind: ir.InstrAssign, Assign: ir.AssignInstr{
		Dst: ir.FieldPlace(s.FramePtr, frameFieldDestroy),
		Src: destroySlot,
	}})
	insertInstrs(f, s.Begin.Block, s.Begin.Instr+1, stores)
}

// setInfo records the outlined triple on the begin marker so the later
// devirtualization stage can resolve indirect resume and destroy calls
// without re-deriving it.
func setInfo(s *Shape, resume, destroy, cleanup ir.FuncID) {
	s.beginInstr().Info = ir.CoroInfo{Resume: resume, Destroy: destroy, Cleanup: cleanup}
}

// handleNoSuspend lowers a coroutine with no remaining suspend points.
// Nothing ever re-enters the body, so no state machine is needed: with an
// elision hint the frame degrades to a plain local and the heap path
// folds away, otherwise the caller-supplied storage is used as is.
func handleNoSuspend(s *Shape, typesIn *types.Interner) error {
	f := s.Func
	b := typesIn.Builtins()
	begin := &f.Blocks[s.Begin.Block].Instrs[s.Begin.Instr]
	elide := s.AllocVar != ir.NoLocalID

	for _, at := range s.Frees {
		ins := &f.Blocks[at.Block].Instrs[at.Instr]
		*ins = constAssign(ins.CoroFree.Dst, ir.BoolConst(!elide, b.Bool))
	}

	if elide {
		allocAt, ok := findAlloc(f, s.AllocVar)
		if !ok {
			return fmt.Errorf("coro: %s: begin has an elision hint but no alloc marker", f.Name)
		}
		storage := ir.AddLocal(f, "frame.storage", s.FrameType)
		allocIns := &f.Blocks[allocAt.Block].Instrs[allocAt.Instr]
		*allocIns = constAssign(s.AllocVar, ir.BoolConst(false, b.Bool))
		*begin = ir.Instr{Kind: ir.InstrAssign, Assign: ir.AssignInstr{
			Dst: ir.LocalPlace(begin.CoroBegin.Dst),
			Src: ir.UseRValue(ir.Operand{
				Kind:  ir.OperandAddrOf,
				Type:  b.RawPtr,
				Place: ir.LocalPlace(storage),
			}),
		}}
	} else {
		*begin = ir.Instr{Kind: ir.InstrAssign, Assign: ir.AssignInstr{
			Dst: ir.LocalPlace(begin.CoroBegin.Dst),
			Src: ir.UseRValue(begin.CoroBegin.Mem),
		}}
	}

	sweepEnds(s, b)
	return nil
}

func findAlloc(f *ir.Func, dst ir.LocalID) (Site, bool) {
	for bi := range f.Blocks {
		for ii := range f.Blocks[bi].Instrs {
			ins := &f.Blocks[bi].Instrs[ii]
			if ins.Kind == ir.InstrCoroAlloc && ins.CoroAlloc.Dst == dst {
				return Site{Block: ir.BlockID(bi), Instr: ii}, true //nolint:gosec // bounded by block count
			}
		}
	}
	return Site{}, false
}

// sweepEnds replaces the ramp's end markers with false: the ramp reaches
// them only on the initial pass, where no unwind is in flight.
func sweepEnds(s *Shape, b types.Builtins) {
	for _, e := range s.Ends {
		ins := &s.Func.Blocks[e.Site.Block].Instrs[e.Site.Instr]
		*ins = constAssign(ins.CoroEnd.Dst, ir.BoolConst(false, b.Bool))
	}
}

// sweepRampMarkers clears the suspend, free and end markers left in the
// ramp after cloning. A ramp suspend always suspends, so it evaluates to
// the suspended selector; ramp frees sit on the cleanup path and
// deallocate normally; ramp ends see no unwind in flight. The begin
// marker stays, it anchors the triple metadata.
func sweepRampMarkers(f *ir.Func, b types.Builtins) {
	for bi := range f.Blocks {
		for ii := range f.Blocks[bi].Instrs {
			ins := &f.Blocks[bi].Instrs[ii]
			switch ins.Kind {
			case ir.InstrCoroSuspend:
				*ins = constAssign(ins.CoroSuspend.Dst, ir.IntConst(selectorSuspended, b.I8))
			case ir.InstrCoroFree:
				*ins = constAssign(ins.CoroFree.Dst, ir.BoolConst(true, b.Bool))
			case ir.InstrCoroEnd:
				*ins = constAssign(ins.CoroEnd.Dst, ir.BoolConst(false, b.Bool))
			}
		}
	}
}
