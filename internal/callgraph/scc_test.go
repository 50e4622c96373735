package callgraph_test

import (
	"slices"
	"testing"

	"eddy/internal/callgraph"
	"eddy/internal/ir"
	"eddy/internal/types"
)

// buildModule parses a module fixture for graph tests.
func buildModule(t *testing.T, src string) *ir.Module {
	t.Helper()
	m, err := ir.ParseModule(src, types.NewInterner())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return m
}

// TestBuild_Edges tests that direct calls and escaping function
// constants both contribute edges, deduplicated per caller.
func TestBuild_Edges(t *testing.T) {
	src := `
func @a() -> unit {
  local %0: fnptr
bb0:
  call @b()
  call @b()
  %0 = @c
  ret
}

func @b() -> unit {
bb0:
  ret
}

func @c() -> unit {
bb0:
  call extern "puts"()
  ret
}
`
	m := buildModule(t, src)
	g := callgraph.Build(m)

	a := m.FuncNamed("a").ID
	b := m.FuncNamed("b").ID
	c := m.FuncNamed("c").ID

	want := []ir.FuncID{b, c}
	slices.Sort(want)
	if got := g.Succs(a); !slices.Equal(got, want) {
		t.Fatalf("succs(a) = %v, want %v", got, want)
	}
	if got := g.Succs(b); len(got) != 0 {
		t.Fatalf("succs(b) = %v, want none", got)
	}
	if got := g.Succs(c); len(got) != 0 {
		t.Fatalf("extern call produced an edge: %v", got)
	}
}

// TestSCCs_CalleesFirst tests bottom-up component order on a chain.
func TestSCCs_CalleesFirst(t *testing.T) {
	src := `
func @top() -> unit {
bb0:
  call @mid()
  ret
}

func @mid() -> unit {
bb0:
  call @leaf()
  ret
}

func @leaf() -> unit {
bb0:
  ret
}
`
	m := buildModule(t, src)
	comps := callgraph.Build(m).SCCs()

	pos := make(map[ir.FuncID]int)
	for i, c := range comps {
		if len(c.Funcs) != 1 {
			t.Fatalf("component %d has %d funcs, want 1", i, len(c.Funcs))
		}
		pos[c.Funcs[0]] = i
	}
	leaf := m.FuncNamed("leaf").ID
	mid := m.FuncNamed("mid").ID
	top := m.FuncNamed("top").ID
	if !(pos[leaf] < pos[mid] && pos[mid] < pos[top]) {
		t.Fatalf("order not callees-first: leaf=%d mid=%d top=%d", pos[leaf], pos[mid], pos[top])
	}
}

// TestSCCs_Cycle tests that mutually recursive functions land in one
// component placed before their caller.
func TestSCCs_Cycle(t *testing.T) {
	src := `
func @even() -> unit {
bb0:
  call @odd()
  ret
}

func @odd() -> unit {
bb0:
  call @even()
  ret
}

func @main() -> unit {
bb0:
  call @even()
  ret
}
`
	m := buildModule(t, src)
	comps := callgraph.Build(m).SCCs()

	even := m.FuncNamed("even").ID
	odd := m.FuncNamed("odd").ID
	mainID := m.FuncNamed("main").ID

	var cycleIdx, mainIdx = -1, -1
	for i, c := range comps {
		got := slices.Clone(c.Funcs)
		slices.Sort(got)
		if slices.Equal(got, []ir.FuncID{even, odd}) {
			cycleIdx = i
		}
		if slices.Equal(got, []ir.FuncID{mainID}) {
			mainIdx = i
		}
	}
	if cycleIdx < 0 {
		t.Fatalf("even/odd not grouped into one component: %v", comps)
	}
	if mainIdx < cycleIdx {
		t.Fatalf("caller scheduled before its callee cycle")
	}
}
