package coro

import "eddy/internal/ir"

// Suspend selector values. The dispatch literal a suspend marker collapses
// to in each clone: zero resumes, nonzero runs cleanup.
const (
	selectorResume  = 0
	selectorCleanup = 1
)

// SimplifySuspends removes suspend points that provably resume or destroy
// themselves immediately. The proof is a local peephole over the span
// between a save marker and its suspend: the span must contain exactly one
// call, and that call must go through the coroutine's own frame slots. Any
// other call could itself resume or destroy the frame, so anything fancier
// is left alone on purpose.
func SimplifySuspends(s *Shape) (bool, error) {
	changed := false
	for {
		simplifiedOne := false
		for _, sp := range s.Suspends {
			if sp.Final {
				continue
			}
			if simplifySuspendPoint(s, sp) {
				simplifiedOne = true
				break
			}
		}
		if !simplifiedOne {
			return changed, nil
		}
		changed = true
		if err := s.rescan(); err != nil {
			return changed, err
		}
	}
}

// simplifySuspendPoint matches the span
//
//	%t = coro.save
//	%a = coro.subfn frame=%frame index=K
//	call value %a(...)
//	%d = coro.suspend save=%t
//
// with no other calls in between, and collapses it to the literal selector
// for K. Reports whether it rewrote anything.
func simplifySuspendPoint(s *Shape, sp SuspendSite) bool {
	if sp.Save.Block != sp.Suspend.Block {
		return false
	}
	bb := &s.Func.Blocks[sp.Save.Block]

	subFnAt, callAt := -1, -1
	for i := sp.Save.Instr + 1; i < sp.Suspend.Instr; i++ {
		switch ins := &bb.Instrs[i]; ins.Kind {
		case ir.InstrNop, ir.InstrAssign:
		case ir.InstrCoroSubFn:
			if subFnAt >= 0 {
				return false
			}
			subFnAt = i
		case ir.InstrCall:
			if callAt >= 0 {
				return false
			}
			callAt = i
		default:
			return false
		}
	}
	if subFnAt < 0 || callAt < subFnAt {
		return false
	}

	subFn := &bb.Instrs[subFnAt].CoroSubFn
	if !operandIsLocal(&subFn.Frame, s.FramePtr) {
		return false
	}
	var selector int64
	switch subFn.Index {
	case 0:
		selector = selectorResume
	case 1:
		selector = selectorCleanup
	default:
		return false
	}

	call := &bb.Instrs[callAt].Call
	if call.Callee.Kind != ir.CalleeValue || !operandIsLocal(&call.Callee.Value, subFn.Dst) {
		return false
	}
	// The fetched address must feed that one call and nothing else.
	if ir.CountLocalUses(s.Func, subFn.Dst) != 1 {
		return false
	}

	suspend := &s.Func.Blocks[sp.Suspend.Block].Instrs[sp.Suspend.Instr]
	dst := suspend.CoroSuspend.Dst
	dstTy := s.Func.LocalType(dst)
	*suspend = ir.Instr{Kind: ir.InstrAssign, Assign: ir.AssignInstr{
		Dst: ir.LocalPlace(dst),
		Src: ir.UseRValue(ir.ConstOperand(ir.IntConst(selector, dstTy))),
	}}
	bb.Instrs[sp.Save.Instr] = ir.Instr{Kind: ir.InstrNop}
	bb.Instrs[subFnAt] = ir.Instr{Kind: ir.InstrNop}
	bb.Instrs[callAt] = ir.Instr{Kind: ir.InstrNop}
	return true
}

func operandIsLocal(op *ir.Operand, id ir.LocalID) bool {
	if op.Kind != ir.OperandCopy && op.Kind != ir.OperandMove {
		return false
	}
	return op.Place.Local == id && len(op.Place.Proj) == 0
}
