package ir

// SimplifyCFG performs control flow graph simplification on a function.
// Transformations:
// 1. Remove trivial goto blocks (0 instructions + goto terminator)
// 2. Collapse goto chains
// 3. Remove unreachable blocks
// 4. Renumber blocks deterministically
func SimplifyCFG(f *Func) {
	if f == nil || len(f.Blocks) == 0 {
		return
	}

	redirects := buildRedirectMap(f)
	applyRedirects(f, redirects)

	reachable := computeReachability(f)
	compactBlocks(f, reachable)
}

// buildRedirectMap finds all trivial goto blocks and builds a mapping
// from their IDs to their final targets (following chains).
func buildRedirectMap(f *Func) map[BlockID]BlockID {
	redirects := make(map[BlockID]BlockID)

	for i := range f.Blocks {
		bb := &f.Blocks[i]
		if len(bb.Instrs) != 0 || bb.Term.Kind != TermGoto {
			continue
		}
		target := bb.Term.Goto.Target
		visited := make(map[BlockID]bool)
		for !visited[target] {
			visited[target] = true

			if next, ok := redirects[target]; ok {
				target = next
				continue
			}
			if isTrivialGotoBlock(f, target) {
				target = f.Blocks[target].Term.Goto.Target
				continue
			}
			break
		}
		redirects[bb.ID] = target
	}
	return redirects
}

func isTrivialGotoBlock(f *Func, id BlockID) bool {
	if id < 0 || int(id) >= len(f.Blocks) {
		return false
	}
	bb := &f.Blocks[id]
	return len(bb.Instrs) == 0 && bb.Term.Kind == TermGoto
}

// applyRedirects updates all terminators and the entry to use the
// redirected targets.
func applyRedirects(f *Func, redirects map[BlockID]BlockID) {
	if len(redirects) == 0 {
		return
	}

	redirect := func(id BlockID) BlockID {
		if newID, ok := redirects[id]; ok {
			return newID
		}
		return id
	}

	for i := range f.Blocks {
		term := &f.Blocks[i].Term
		switch term.Kind {
		case TermGoto:
			term.Goto.Target = redirect(term.Goto.Target)
		case TermIf:
			term.If.Then = redirect(term.If.Then)
			term.If.Else = redirect(term.If.Else)
		case TermSwitch:
			for j := range term.Switch.Cases {
				term.Switch.Cases[j].Target = redirect(term.Switch.Cases[j].Target)
			}
			term.Switch.Default = redirect(term.Switch.Default)
		}
	}
	f.Entry = redirect(f.Entry)
}

func computeReachability(f *Func) []bool {
	reachable := make([]bool, len(f.Blocks))
	for _, id := range ReachableFrom(f, f.Entry) {
		reachable[id] = true
	}
	return reachable
}

// compactBlocks removes unreachable blocks and renumbers the remainder,
// entry first, then ascending old-ID order.
func compactBlocks(f *Func, reachable []bool) {
	remap := make(map[BlockID]BlockID, len(f.Blocks))
	kept := make([]Block, 0, len(f.Blocks))
	keep := func(i int) {
		newID := BlockID(len(kept)) //nolint:gosec // bounded by block count
		remap[f.Blocks[i].ID] = newID
		kept = append(kept, f.Blocks[i])
		kept[newID].ID = newID
	}
	if f.Entry != NoBlockID && int(f.Entry) < len(f.Blocks) && reachable[f.Entry] {
		keep(int(f.Entry))
	}
	for i := range f.Blocks {
		if !reachable[i] || BlockID(i) == f.Entry { //nolint:gosec // bounded by block count
			continue
		}
		keep(i)
	}

	mapTo := func(id BlockID) BlockID {
		if newID, ok := remap[id]; ok {
			return newID
		}
		return NoBlockID
	}

	for i := range kept {
		term := &kept[i].Term
		switch term.Kind {
		case TermGoto:
			term.Goto.Target = mapTo(term.Goto.Target)
		case TermIf:
			term.If.Then = mapTo(term.If.Then)
			term.If.Else = mapTo(term.If.Else)
		case TermSwitch:
			for j := range term.Switch.Cases {
				term.Switch.Cases[j].Target = mapTo(term.Switch.Cases[j].Target)
			}
			term.Switch.Default = mapTo(term.Switch.Default)
		}
	}

	f.Blocks = kept
	f.Entry = mapTo(f.Entry)
}
