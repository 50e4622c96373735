package ir_test

import (
	"testing"

	"eddy/internal/ir"
	"eddy/internal/types"
)

// TestCloneFunc_Independent tests that a clone shares no mutable state
// with the original: editing the clone leaves the source untouched.
func TestCloneFunc_Independent(t *testing.T) {
	src := `
func @f(%0: ptr) -> unit attrs(coro.presplit=1) {
  local %1: i32
bb0:
  %0.deref.f2 = 3:i32
  call extern "sink"(%0, &%1)
  goto bb1
bb1:
  switch %1 [0 -> bb0, 1 -> bb1] default bb2
bb2:
  ret
}
`
	typesIn := types.NewInterner()
	m := parseFixture(t, src, typesIn)
	f := m.FuncNamed("f")

	nf := ir.CloneFunc(f)
	if nf.ID != ir.NoFuncID {
		t.Fatalf("clone carries an ID before registration: %d", nf.ID)
	}

	nf.Blocks[0].Instrs[0].Assign.Dst.Proj[1].FieldIdx = 9
	nf.Blocks[0].Instrs[1].Call.Args[0] = ir.ConstOperand(ir.NullConst(typesIn.Builtins().RawPtr))
	nf.Blocks[1].Term.Switch.Cases[0].Target = 2
	nf.SetAttr("coro.presplit", "0")
	nf.Locals = append(nf.Locals, ir.Local{Type: typesIn.Builtins().Bool})

	if f.Blocks[0].Instrs[0].Assign.Dst.Proj[1].FieldIdx != 2 {
		t.Fatalf("clone shares place projections with the original")
	}
	if f.Blocks[0].Instrs[1].Call.Args[0].Kind != ir.OperandCopy {
		t.Fatalf("clone shares call args with the original")
	}
	if f.Blocks[1].Term.Switch.Cases[0].Target != 0 {
		t.Fatalf("clone shares switch cases with the original")
	}
	if v, _ := f.Attr("coro.presplit"); v != "1" {
		t.Fatalf("clone shares attrs with the original")
	}
	if len(f.Locals) != 2 {
		t.Fatalf("clone shares the locals slice header effects with the original")
	}
}

// TestCloneFunc_PreservesBlockIDs tests that block IDs survive cloning
// unchanged. The outliner depends on this to locate the dispatch block
// in clones by ID.
func TestCloneFunc_PreservesBlockIDs(t *testing.T) {
	src := `
func @f(%0: bool) -> unit {
bb0:
  if %0 then bb1 else bb2
bb1:
  ret
bb2:
  ret
}
`
	typesIn := types.NewInterner()
	m := parseFixture(t, src, typesIn)
	f := m.FuncNamed("f")

	nf := ir.CloneFunc(f)
	if len(nf.Blocks) != len(f.Blocks) {
		t.Fatalf("block count changed: %d vs %d", len(nf.Blocks), len(f.Blocks))
	}
	for i := range nf.Blocks {
		if nf.Blocks[i].ID != f.Blocks[i].ID {
			t.Fatalf("block %d changed ID: %d vs %d", i, nf.Blocks[i].ID, f.Blocks[i].ID)
		}
	}
	if err := ir.ValidateFunc(nf); err != nil {
		t.Fatalf("validate clone: %v", err)
	}
}
