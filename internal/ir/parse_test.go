package ir_test

import (
	"strings"
	"testing"

	"eddy/internal/ir"
	"eddy/internal/types"
)

func dump(t *testing.T, m *ir.Module, typesIn *types.Interner) string {
	t.Helper()
	var sb strings.Builder
	if err := ir.DumpModule(&sb, m, typesIn, ir.DumpOptions{}); err != nil {
		t.Fatalf("dump: %v", err)
	}
	return sb.String()
}

// parseFixture parses a textual module and validates it.
func parseFixture(t *testing.T, src string, typesIn *types.Interner) *ir.Module {
	t.Helper()
	m, err := ir.ParseModule(src, typesIn)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := ir.Validate(m); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return m
}

// TestParse_Roundtrip tests that dump(parse(x)) is a fixed point for a
// module exercising every instruction, operand and terminator form.
func TestParse_Roundtrip(t *testing.T) {
	src := `
func @helper(%0: ptr) -> unit fastcc {
bb0:
  ret
}

func @gen(%0: i32) -> unit attrs(coro.presplit=0) {
  local %1: bool "use-heap"
  local %2: ptr
  local %3: u64
  local %4: ptr
  local %5: i32
  local %6: ptr "save"
  local %7: i8
  local %8: ptr
  local %9: bool
  local %10: i32
  local %11: fnptr
bb0:
  %1 = coro.alloc
  %3 = coro.size
  if %1 then bb1 else bb2
bb1:
  %2 = call extern "malloc"(%3)
  goto bb2
bb2:
  %4 = coro.begin mem=%2 alloc=%1
  %5 = add %0, 1:i32
  %10 = select %1, %5, 0:i32
  %6 = coro.save
  %7 = coro.suspend save=%6
  switch %7 [0 -> bb3, 1 -> bb4] default bb7
bb3:
  %11 = coro.subfn frame=%4 index=0
  call value %11(%4)
  goto bb4
bb4:
  %9 = coro.free frame=%4
  if %9 then bb5 else bb6
bb5:
  call extern "free"(move %4)
  goto bb6
bb6:
  %8 = coro.end
  ret
bb7:
  unreachable
}
`
	typesIn := types.NewInterner()
	m := parseFixture(t, src, typesIn)

	first := dump(t, m, typesIn)
	m2, err := ir.ParseModule(first, typesIn)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	second := dump(t, m2, typesIn)
	if first != second {
		t.Fatalf("dump is not a fixed point:\n--- first ---\n%s\n--- second ---\n%s", first, second)
	}

	gen := m.FuncNamed("gen")
	if gen == nil {
		t.Fatalf("func gen not found")
	}
	if v, ok := gen.Attr("coro.presplit"); !ok || v != "0" {
		t.Fatalf("attr coro.presplit = %q, %v", v, ok)
	}
	helper := m.FuncNamed("helper")
	if helper == nil || helper.CallConv != ir.CallConvFast {
		t.Fatalf("helper should be fastcc")
	}
}

// TestParse_ForwardFuncRef tests that @name constants may reference a
// function defined later in the input.
func TestParse_ForwardFuncRef(t *testing.T) {
	src := `
func @a() -> unit {
  local %0: fnptr
bb0:
  %0 = @b
  ret
}

func @b() -> unit {
bb0:
  ret
}
`
	typesIn := types.NewInterner()
	m := parseFixture(t, src, typesIn)

	a := m.FuncNamed("a")
	ins := &a.Blocks[0].Instrs[0]
	if ins.Kind != ir.InstrAssign || ins.Assign.Src.Kind != ir.RValueUse {
		t.Fatalf("unexpected instr %+v", ins)
	}
	c := ins.Assign.Src.Use.Const
	if ins.Assign.Src.Use.Kind != ir.OperandConst || c.Kind != ir.ConstFn {
		t.Fatalf("expected fn constant, got %+v", ins.Assign.Src.Use)
	}
	if m.Funcs[c.Func].Name != "b" {
		t.Fatalf("fn constant resolves to %q", m.Funcs[c.Func].Name)
	}
}

// TestParse_CoroInfoRoundtrip tests that the outlined triple on a begin
// marker survives dump and reparse.
func TestParse_CoroInfoRoundtrip(t *testing.T) {
	src := `
func @g(%0: ptr) -> ptr {
  local %1: ptr
bb0:
  %1 = coro.begin mem=%0 info=(@g.resume,@g.destroy,@g.cleanup)
  ret %1
}

func @g.cleanup(%0: ptr) -> unit fastcc {
bb0:
  ret
}

func @g.destroy(%0: ptr) -> unit fastcc {
bb0:
  ret
}

func @g.resume(%0: ptr) -> unit fastcc {
bb0:
  ret
}
`
	typesIn := types.NewInterner()
	m := parseFixture(t, src, typesIn)

	info := m.FuncNamed("g").Blocks[0].Instrs[0].CoroBegin.Info
	if !info.IsSet() {
		t.Fatalf("triple not parsed")
	}
	if m.Funcs[info.Resume].Name != "g.resume" || m.Funcs[info.Destroy].Name != "g.destroy" ||
		m.Funcs[info.Cleanup].Name != "g.cleanup" {
		t.Fatalf("triple resolved wrong: %+v", info)
	}

	first := dump(t, m, typesIn)
	m2, err := ir.ParseModule(first, typesIn)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if second := dump(t, m2, typesIn); first != second {
		t.Fatalf("info is not a dump fixed point:\n%s\nvs\n%s", first, second)
	}
}

// TestParse_BareBeginHasNoInfo tests that an unsplit begin marker does
// not claim a triple.
func TestParse_BareBeginHasNoInfo(t *testing.T) {
	src := `
func @g(%0: ptr) -> ptr {
  local %1: ptr
bb0:
  %1 = coro.begin mem=%0
  ret %1
}
`
	typesIn := types.NewInterner()
	m := parseFixture(t, src, typesIn)
	if m.FuncNamed("g").Blocks[0].Instrs[0].CoroBegin.Info.IsSet() {
		t.Fatalf("unsplit begin reports a triple")
	}
}

// TestParse_Places tests deref and field projection parsing.
func TestParse_Places(t *testing.T) {
	src := `
func @f(%0: ptr) -> unit {
  local %1: i32
bb0:
  %0.deref.f2 = 7:i32
  %1 = %0.deref.f2
  ret
}
`
	typesIn := types.NewInterner()
	m := parseFixture(t, src, typesIn)

	f := m.FuncNamed("f")
	dst := f.Blocks[0].Instrs[0].Assign.Dst
	if len(dst.Proj) != 2 ||
		dst.Proj[0].Kind != ir.PlaceProjDeref ||
		dst.Proj[1].Kind != ir.PlaceProjField || dst.Proj[1].FieldIdx != 2 {
		t.Fatalf("unexpected projections %+v", dst.Proj)
	}
}

// TestParse_Errors tests that malformed inputs are rejected with the
// offending line in the message.
func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "statement outside func",
			src:  "ret\n",
			want: "statement outside func",
		},
		{
			name: "unterminated func",
			src:  "func @f() -> unit {\nbb0:\n  ret\n",
			want: "unterminated func",
		},
		{
			name: "block out of order",
			src:  "func @f() -> unit {\nbb1:\n  ret\n}\n",
			want: "out of order",
		},
		{
			name: "statement after terminator",
			src:  "func @f() -> unit {\nbb0:\n  ret\n  nop\n}\n",
			want: "after terminator",
		},
		{
			name: "unknown type",
			src:  "func @f() -> i13 {\nbb0:\n  ret\n}\n",
			want: "unknown type",
		},
		{
			name: "suspend missing save",
			src:  "func @f() -> unit {\n  local %0: i8\nbb0:\n  %0 = coro.suspend\n  ret\n}\n",
			want: "requires save=",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ir.ParseModule(tc.src, types.NewInterner())
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}
