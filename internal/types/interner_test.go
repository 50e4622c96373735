package types_test

import (
	"testing"

	"eddy/internal/types"
)

// TestInterner_Dedup tests that structurally equal types intern to the
// same ID.
func TestInterner_Dedup(t *testing.T) {
	in := types.NewInterner()

	a := in.Intern(types.MakeInt(types.Width32))
	b := in.Intern(types.MakeInt(types.Width32))
	if a != b {
		t.Fatalf("expected same ID for equal types, got %d and %d", a, b)
	}

	c := in.Intern(types.MakeInt(types.Width64))
	if a == c {
		t.Fatalf("expected distinct IDs for i32 and i64")
	}
}

// TestInterner_Builtins tests that builtin IDs resolve to the expected
// kinds.
func TestInterner_Builtins(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()

	cases := []struct {
		id   types.TypeID
		kind types.Kind
	}{
		{b.Unit, types.KindUnit},
		{b.Bool, types.KindBool},
		{b.I8, types.KindInt},
		{b.I32, types.KindInt},
		{b.I64, types.KindInt},
		{b.U64, types.KindUint},
		{b.F64, types.KindFloat},
		{b.RawPtr, types.KindPtr},
		{b.FnPtr, types.KindFn},
	}
	for _, tc := range cases {
		tt, ok := in.Lookup(tc.id)
		if !ok {
			t.Fatalf("builtin type#%d not found", tc.id)
		}
		if tt.Kind != tc.kind {
			t.Errorf("type#%d: kind = %s, want %s", tc.id, tt.Kind, tc.kind)
		}
	}
}

// TestInterner_RegisterStruct tests nominal struct identity: two structs
// with the same field list are still distinct types.
func TestInterner_RegisterStruct(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()

	fields := []types.Field{
		{Name: "x", Type: b.I64},
		{Name: "y", Type: b.I64},
	}
	first := in.RegisterStruct("point", fields)
	second := in.RegisterStruct("vec", fields)
	if first == second {
		t.Fatalf("expected nominal identity for structs, got one ID %d", first)
	}

	info, ok := in.StructOf(first)
	if !ok {
		t.Fatalf("StructOf(%d) not found", first)
	}
	if info.Name != "point" || len(info.Fields) != 2 {
		t.Errorf("unexpected struct info: %+v", info)
	}
}

// TestInterner_MustLookupPanics tests that MustLookup panics for an
// invalid ID.
func TestInterner_MustLookupPanics(t *testing.T) {
	in := types.NewInterner()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for invalid type ID")
		}
	}()
	in.MustLookup(types.TypeID(9999))
}
