package ir

import (
	"sort"

	"eddy/internal/types"
)

// AddLocal appends a fresh local and returns its ID.
func AddLocal(f *Func, name string, ty types.TypeID) LocalID {
	if f == nil {
		return NoLocalID
	}
	id := LocalID(len(f.Locals)) //nolint:gosec // bounded by locals length
	f.Locals = append(f.Locals, Local{Name: name, Type: ty})
	return id
}

// NewBlock appends an unterminated block and returns its ID.
func NewBlock(f *Func) BlockID {
	if f == nil {
		return NoBlockID
	}
	id := BlockID(len(f.Blocks)) //nolint:gosec // bounded by block count
	f.Blocks = append(f.Blocks, Block{ID: id, Term: Terminator{Kind: TermNone}})
	return id
}

//nolint:gocritic // hugeParam: passing Instr by value is intentional here
func AppendInstr(f *Func, bb BlockID, ins Instr) {
	if f == nil || bb == NoBlockID {
		return
	}
	if int(bb) < 0 || int(bb) >= len(f.Blocks) {
		return
	}
	f.Blocks[bb].Instrs = append(f.Blocks[bb].Instrs, ins)
}

//nolint:gocritic // hugeParam: passing Terminator by value is intentional here
func SetTerm(f *Func, bb BlockID, term Terminator) {
	if f == nil || bb == NoBlockID {
		return
	}
	if int(bb) < 0 || int(bb) >= len(f.Blocks) {
		return
	}
	f.Blocks[bb].Term = term
}

// SuccBlocks returns the successor blocks of a given block.
func SuccBlocks(f *Func, bbID BlockID) []BlockID {
	if f == nil || bbID == NoBlockID || int(bbID) >= len(f.Blocks) {
		return nil
	}
	bb := &f.Blocks[bbID]
	switch bb.Term.Kind {
	case TermGoto:
		return []BlockID{bb.Term.Goto.Target}
	case TermIf:
		return []BlockID{bb.Term.If.Then, bb.Term.If.Else}
	case TermSwitch:
		out := make([]BlockID, 0, len(bb.Term.Switch.Cases)+1)
		for _, c := range bb.Term.Switch.Cases {
			out = append(out, c.Target)
		}
		out = append(out, bb.Term.Switch.Default)
		return out
	default:
		return nil
	}
}

// PredBlocks returns, for every block, the set of its predecessors.
func PredBlocks(f *Func) [][]BlockID {
	if f == nil {
		return nil
	}
	preds := make([][]BlockID, len(f.Blocks))
	for i := range f.Blocks {
		for _, succ := range SuccBlocks(f, BlockID(i)) { //nolint:gosec // bounded by block count
			if succ == NoBlockID || int(succ) >= len(f.Blocks) {
				continue
			}
			preds[succ] = append(preds[succ], BlockID(i)) //nolint:gosec // bounded by block count
		}
	}
	return preds
}

// ReachableFrom returns the blocks reachable from start, sorted by ID.
func ReachableFrom(f *Func, start BlockID) []BlockID {
	if f == nil || start == NoBlockID {
		return nil
	}
	seen := make(map[BlockID]struct{})
	var order []BlockID
	var visit func(id BlockID)
	visit = func(id BlockID) {
		if id < 0 || int(id) >= len(f.Blocks) {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		order = append(order, id)
		for _, succ := range SuccBlocks(f, id) {
			visit(succ)
		}
	}
	visit(start)
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return order
}

// SplitBlockAt splits block bb before instruction index idx. The trailing
// instructions and the old terminator move to a fresh block; bb is left
// terminated with a goto to it. Returns the new block's ID.
func SplitBlockAt(f *Func, bb BlockID, idx int) BlockID {
	if f == nil || bb == NoBlockID || int(bb) >= len(f.Blocks) {
		return NoBlockID
	}
	tail := NewBlock(f)
	src := &f.Blocks[bb]
	if idx < 0 {
		idx = 0
	}
	if idx > len(src.Instrs) {
		idx = len(src.Instrs)
	}
	moved := make([]Instr, len(src.Instrs)-idx)
	copy(moved, src.Instrs[idx:])
	f.Blocks[tail].Instrs = moved
	f.Blocks[tail].Term = src.Term
	src.Instrs = src.Instrs[:idx:idx]
	src.Term = GotoTo(tail)
	return tail
}
