// Package coro lowers coroutines into state machines. A coroutine arrives
// from the frontend as an ordinary function carrying begin/save/suspend/end
// markers; splitting rewrites it into a ramp function plus three outlined
// clones (resume, destroy, cleanup) that share a frame holding every value
// live across a suspension.
package coro

import (
	"fmt"

	"eddy/internal/ir"
	"eddy/internal/types"
)

// Site addresses one instruction inside a function.
type Site struct {
	Block ir.BlockID
	Instr int
}

// SuspendSite pairs a suspend marker with the save marker it consumes.
type SuspendSite struct {
	Suspend Site
	Save    Site
	Final   bool
}

// EndSite is a coro.end marker tagged with its variant.
type EndSite struct {
	Site   Site
	Unwind bool
}

// Shape is the per-function scan result every splitting step works from.
// It is rebuilt after CFG surgery rather than patched, since sites are
// positional and cheap to recompute.
type Shape struct {
	Func *ir.Func

	Begin    Site
	FramePtr ir.LocalID // result of the begin marker
	AllocVar ir.LocalID // elision hint, NoLocalID when absent

	Suspends []SuspendSite
	Ends     []EndSite
	Sizes    []Site
	Frees    []Site

	// Filled by the frame builder.
	FrameType  types.TypeID
	SpillSlots map[ir.LocalID]int // local -> frame field index
}

// FinalSuspend returns the terminal suspend site, if any.
func (s *Shape) FinalSuspend() (SuspendSite, bool) {
	if n := len(s.Suspends); n > 0 && s.Suspends[n-1].Final {
		return s.Suspends[n-1], true
	}
	return SuspendSite{}, false
}

// ResumeIndexCount is the number of switch cases the dispatch needs. The
// final suspend, when present, is reached through the nulled resume slot
// instead of an index.
func (s *Shape) ResumeIndexCount() int {
	n := len(s.Suspends)
	if _, ok := s.FinalSuspend(); ok {
		n--
	}
	return n
}

// BuildShape scans f for coroutine markers. It returns nil when f carries
// no begin marker, meaning f is not a coroutine at all. A present begin
// marker makes the remaining structural rules mandatory; violating them is
// an upstream contract violation, not a recoverable condition.
func BuildShape(f *ir.Func) (*Shape, error) {
	s := &Shape{
		Func:     f,
		FramePtr: ir.NoLocalID,
		AllocVar: ir.NoLocalID,
	}
	saves := make(map[ir.LocalID]Site)
	haveBegin := false

	for _, bbID := range ir.ReachableFrom(f, f.Entry) {
		bb := &f.Blocks[bbID]
		for i := range bb.Instrs {
			ins := &bb.Instrs[i]
			at := Site{Block: bbID, Instr: i}
			switch ins.Kind {
			case ir.InstrCoroBegin:
				if haveBegin {
					return nil, fmt.Errorf("coro: %s: multiple begin markers", f.Name)
				}
				haveBegin = true
				s.Begin = at
				s.FramePtr = ins.CoroBegin.Dst
				s.AllocVar = ins.CoroBegin.Alloc
			case ir.InstrCoroSave:
				saves[ins.CoroSave.Dst] = at
			case ir.InstrCoroSuspend:
				save, ok := saves[ins.CoroSuspend.Save]
				if !ok {
					return nil, fmt.Errorf("coro: %s: suspend %%%d has no save marker", f.Name, ins.CoroSuspend.Dst)
				}
				s.Suspends = append(s.Suspends, SuspendSite{
					Suspend: at,
					Save:    save,
					Final:   ins.CoroSuspend.Final,
				})
			case ir.InstrCoroEnd:
				s.Ends = append(s.Ends, EndSite{Site: at, Unwind: ins.CoroEnd.Unwind})
			case ir.InstrCoroSize:
				s.Sizes = append(s.Sizes, at)
			case ir.InstrCoroFree:
				s.Frees = append(s.Frees, at)
			}
		}
	}

	if !haveBegin {
		return nil, nil
	}
	for i, sp := range s.Suspends {
		if sp.Final && i != len(s.Suspends)-1 {
			return nil, fmt.Errorf("coro: %s: final suspend is not the last suspend point", f.Name)
		}
	}
	return s, nil
}

// rescan rebuilds the positional parts of s after CFG surgery, keeping the
// frame fields intact.
func (s *Shape) rescan() error {
	fresh, err := BuildShape(s.Func)
	if err != nil {
		return err
	}
	if fresh == nil {
		return fmt.Errorf("coro: %s: begin marker vanished during transform", s.Func.Name)
	}
	fresh.FrameType = s.FrameType
	fresh.SpillSlots = s.SpillSlots
	*s = *fresh
	return nil
}

func (s *Shape) beginInstr() *ir.CoroBeginInstr {
	return &s.Func.Blocks[s.Begin.Block].Instrs[s.Begin.Instr].CoroBegin
}

func (s *Shape) suspendInstr(sp SuspendSite) *ir.CoroSuspendInstr {
	return &s.Func.Blocks[sp.Suspend.Block].Instrs[sp.Suspend.Instr].CoroSuspend
}
