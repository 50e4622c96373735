package ir

import (
	"errors"
	"fmt"
)

// Validate checks module invariants.
// Returns an error if any invariant is violated.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		if err := ValidateFunc(f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

// ValidateFunc checks the structural invariants of one function.
func ValidateFunc(f *Func) error {
	if f == nil {
		return nil
	}

	var errs []error

	if err := validateEntry(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateBlocksTerminated(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateBlockTargets(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateLocalIDs(f); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func validateEntry(f *Func) error {
	if f.Entry == NoBlockID || int(f.Entry) >= len(f.Blocks) {
		return fmt.Errorf("entry bb%d does not exist", f.Entry)
	}
	return nil
}

// validateBlocksTerminated checks that every block ends with a terminator.
func validateBlocksTerminated(f *Func) error {
	var errs []error
	for i := range f.Blocks {
		if f.Blocks[i].Term.Kind == TermNone {
			errs = append(errs, fmt.Errorf("bb%d: unterminated block", i))
		}
		if f.Blocks[i].ID != BlockID(i) { //nolint:gosec // bounded by block count
			errs = append(errs, fmt.Errorf("bb%d: stored ID %d disagrees with position", i, f.Blocks[i].ID))
		}
	}
	return errors.Join(errs...)
}

// validateBlockTargets checks that all block target IDs exist and that
// switch case values are unique.
func validateBlockTargets(f *Func) error {
	var errs []error

	blockExists := func(id BlockID) bool {
		return id >= 0 && int(id) < len(f.Blocks)
	}

	for i := range f.Blocks {
		bb := &f.Blocks[i]
		switch bb.Term.Kind {
		case TermGoto:
			if !blockExists(bb.Term.Goto.Target) {
				errs = append(errs, fmt.Errorf("bb%d: goto target bb%d does not exist", i, bb.Term.Goto.Target))
			}
		case TermIf:
			if !blockExists(bb.Term.If.Then) {
				errs = append(errs, fmt.Errorf("bb%d: if then target bb%d does not exist", i, bb.Term.If.Then))
			}
			if !blockExists(bb.Term.If.Else) {
				errs = append(errs, fmt.Errorf("bb%d: if else target bb%d does not exist", i, bb.Term.If.Else))
			}
		case TermSwitch:
			seen := make(map[int64]bool)
			for j, c := range bb.Term.Switch.Cases {
				if seen[c.Value] {
					errs = append(errs, fmt.Errorf("bb%d: switch has duplicate case for value %d", i, c.Value))
				}
				seen[c.Value] = true

				if !blockExists(c.Target) {
					errs = append(errs, fmt.Errorf("bb%d: switch case %d (value %d) target bb%d does not exist",
						i, j, c.Value, c.Target))
				}
			}
			if !blockExists(bb.Term.Switch.Default) {
				errs = append(errs, fmt.Errorf("bb%d: switch default target bb%d does not exist", i, bb.Term.Switch.Default))
			}
		}
	}
	return errors.Join(errs...)
}

// validateLocalIDs checks that every local referenced by instructions and
// terminators exists.
func validateLocalIDs(f *Func) error {
	var errs []error
	limit := len(f.Locals)

	check := func(ctx string, id LocalID) {
		if id == NoLocalID {
			return
		}
		if int(id) >= limit || id < 0 {
			errs = append(errs, fmt.Errorf("%s: local %%%d does not exist", ctx, id))
		}
	}

	for _, p := range f.Params {
		check("params", p)
	}

	for bi := range f.Blocks {
		bb := &f.Blocks[bi]
		ctx := fmt.Sprintf("bb%d", bi)
		for i := range bb.Instrs {
			InstrUses(&bb.Instrs[i], func(id LocalID) { check(ctx, id) })
			for _, d := range InstrDefs(&bb.Instrs[i]) {
				check(ctx, d)
			}
		}
		TermUses(&bb.Term, func(id LocalID) { check(ctx, id) })
	}
	return errors.Join(errs...)
}

// FirstCoroMarker returns the location of the first coroutine marker
// instruction left in the function, if any. Split output must not contain
// markers; the transform uses this as its post-split soundness check.
func FirstCoroMarker(f *Func) (BlockID, int, bool) {
	if f == nil {
		return NoBlockID, 0, false
	}
	for bi := range f.Blocks {
		bb := &f.Blocks[bi]
		for i := range bb.Instrs {
			switch bb.Instrs[i].Kind {
			case InstrCoroBegin, InstrCoroAlloc, InstrCoroSave, InstrCoroSuspend,
				InstrCoroEnd, InstrCoroSize, InstrCoroFree:
				return bb.ID, i, true
			}
		}
	}
	return NoBlockID, 0, false
}
