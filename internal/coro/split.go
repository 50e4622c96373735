package coro

import (
	"fmt"

	"eddy/internal/ir"
	"eddy/internal/layout"
	"eddy/internal/types"
)

// SplitResult describes what splitting one coroutine produced. A nil
// result means the function carried no begin marker and was left alone.
type SplitResult struct {
	// Split is false for the degenerate no-suspend lowering, which
	// produces no clones.
	Split bool

	Resume  ir.FuncID
	Destroy ir.FuncID
	Cleanup ir.FuncID

	FrameSize    uint64
	SuspendCount int
	HasFinal     bool
}

// Split lowers one coroutine in place and registers its outlined clones
// with the module. The function is rewritten into the ramp; resume,
// destroy and cleanup clones are added to m. Malformed marker structure
// aborts the whole compilation unit, it means the frontend broke its
// contract.
func Split(m *ir.Module, f *ir.Func, typesIn *types.Interner, eng *layout.Engine) (*SplitResult, error) {
	s, err := BuildShape(f)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}

	if _, err := SimplifySuspends(s); err != nil {
		return nil, err
	}
	if err := relocateBeforeBegin(s); err != nil {
		return nil, err
	}
	if err := buildFrame(s, typesIn); err != nil {
		return nil, err
	}
	if err := replaceFrameSize(s, eng); err != nil {
		return nil, err
	}
	size, err := FrameSize(s, eng)
	if err != nil {
		return nil, err
	}

	res := &SplitResult{
		Resume:       ir.NoFuncID,
		Destroy:      ir.NoFuncID,
		Cleanup:      ir.NoFuncID,
		FrameSize:    size,
		SuspendCount: len(s.Suspends),
	}
	_, res.HasFinal = s.FinalSuspend()

	if len(s.Suspends) == 0 {
		if err := handleNoSuspend(s, typesIn); err != nil {
			return nil, err
		}
		if err := postSplitCleanup(f); err != nil {
			return nil, err
		}
		return res, checkRampMarkers(f)
	}

	d := buildResumeEntry(s, typesIn)

	// All three clones come from the same restructured body; the ramp is
	// swept only after the last one is taken.
	clones := [3]*ir.Func{
		createClone(s, d, CloneResume, typesIn),
		createClone(s, d, CloneDestroy, typesIn),
		createClone(s, d, CloneCleanup, typesIn),
	}
	var ids [3]ir.FuncID
	for i, nf := range clones {
		if ids[i], err = m.AddFunc(nf); err != nil {
			return nil, fmt.Errorf("coro: %s: register clone: %w", f.Name, err)
		}
	}
	res.Split = true
	res.Resume, res.Destroy, res.Cleanup = ids[0], ids[1], ids[2]

	b := typesIn.Builtins()
	sweepRampMarkers(f, b)

	// Block surgery above invalidated recorded sites; the begin marker is
	// still unique, find it again for the frame stores.
	beginAt, ok := findBegin(f)
	if !ok {
		return nil, fmt.Errorf("coro: %s: begin marker lost during split", f.Name)
	}
	s.Begin = beginAt
	updateFrame(s, ids[0], ids[1], ids[2], typesIn)
	setInfo(s, ids[0], ids[1], ids[2])

	if err := postSplitCleanup(f); err != nil {
		return nil, err
	}
	if err := checkRampMarkers(f); err != nil {
		return nil, err
	}
	for _, nf := range clones {
		if err := postSplitCleanup(nf); err != nil {
			return nil, err
		}
		if bb, idx, found := ir.FirstCoroMarker(nf); found {
			return nil, fmt.Errorf("coro: %s: residual marker at bb%d[%d]", nf.Name, bb, idx)
		}
	}
	return res, nil
}

// postSplitCleanup folds the branches the literal selectors decided,
// prunes what became unreachable and validates the result. A validation
// failure here is a defect in the transform, not in the input.
func postSplitCleanup(f *ir.Func) error {
	ir.FoldConstBranches(f)
	ir.SimplifyCFG(f)
	if err := ir.ValidateFunc(f); err != nil {
		return fmt.Errorf("coro: %s: post-split validation: %w", f.Name, err)
	}
	return nil
}

func findBegin(f *ir.Func) (Site, bool) {
	for bi := range f.Blocks {
		for ii := range f.Blocks[bi].Instrs {
			if f.Blocks[bi].Instrs[ii].Kind == ir.InstrCoroBegin {
				return Site{Block: ir.BlockID(bi), Instr: ii}, true //nolint:gosec // bounded by block count
			}
		}
	}
	return Site{}, false
}

// checkRampMarkers verifies the ramp retains only the markers that are
// supposed to survive: the begin marker anchoring the triple, the alloc
// hint it may reference, and devirtualization probes.
func checkRampMarkers(f *ir.Func) error {
	begins := 0
	for bi := range f.Blocks {
		for ii := range f.Blocks[bi].Instrs {
			switch f.Blocks[bi].Instrs[ii].Kind {
			case ir.InstrCoroBegin:
				begins++
			case ir.InstrCoroAlloc, ir.InstrCoroSubFn:
			case ir.InstrCoroSave, ir.InstrCoroSuspend, ir.InstrCoroEnd,
				ir.InstrCoroSize, ir.InstrCoroFree:
				return fmt.Errorf("coro: %s: residual marker at bb%d[%d]", f.Name, bi, ii)
			}
		}
	}
	if begins > 1 {
		return fmt.Errorf("coro: %s: %d begin markers after split", f.Name, begins)
	}
	return nil
}
