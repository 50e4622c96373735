// Package callgraph builds the direct call graph of a module and drives
// passes over its strongly connected components in bottom-up order.
package callgraph

import (
	"slices"

	"eddy/internal/ir"
)

// Graph holds the direct call edges of a module. Indirect calls through
// values contribute no edges; passes that devirtualize them request a
// revisit through the scheduler instead.
type Graph struct {
	nodes []ir.FuncID
	succs map[ir.FuncID][]ir.FuncID
}

// Build scans every function for direct calls and function constants and
// records an edge for each.
func Build(m *ir.Module) *Graph {
	g := &Graph{succs: make(map[ir.FuncID][]ir.FuncID, len(m.Funcs))}
	for id := range m.Funcs {
		g.nodes = append(g.nodes, id)
	}
	slices.Sort(g.nodes)

	for _, id := range g.nodes {
		f := m.Funcs[id]
		seen := make(map[ir.FuncID]struct{})
		for bi := range f.Blocks {
			bb := &f.Blocks[bi]
			for ii := range bb.Instrs {
				instrCallees(&bb.Instrs[ii], func(callee ir.FuncID) {
					if _, ok := m.Funcs[callee]; !ok {
						return
					}
					if _, dup := seen[callee]; dup {
						return
					}
					seen[callee] = struct{}{}
					g.succs[id] = append(g.succs[id], callee)
				})
			}
		}
		slices.Sort(g.succs[id])
	}
	return g
}

// Nodes returns every function in the graph in ID order.
func (g *Graph) Nodes() []ir.FuncID { return g.nodes }

// Succs returns the direct callees of id.
func (g *Graph) Succs(id ir.FuncID) []ir.FuncID { return g.succs[id] }

func instrCallees(ins *ir.Instr, emit func(ir.FuncID)) {
	if ins.Kind == ir.InstrCall && ins.Call.Callee.Kind == ir.CalleeFunc {
		emit(ins.Call.Callee.Func)
	}
	// A function whose address escapes into an operand is treated as a
	// callee as well, so taking @f's address keeps f below its users in
	// the bottom-up order.
	operandFuncs(ins, emit)
}

func operandFuncs(ins *ir.Instr, emit func(ir.FuncID)) {
	visit := func(op *ir.Operand) {
		if op.Kind == ir.OperandConst && op.Const.Kind == ir.ConstFn {
			emit(op.Const.Func)
		}
	}
	switch ins.Kind {
	case ir.InstrAssign:
		rvalueOperands(&ins.Assign.Src, visit)
	case ir.InstrCall:
		if ins.Call.Callee.Kind == ir.CalleeValue {
			visit(&ins.Call.Callee.Value)
		}
		for i := range ins.Call.Args {
			visit(&ins.Call.Args[i])
		}
	case ir.InstrCoroBegin:
		visit(&ins.CoroBegin.Mem)
	case ir.InstrCoroFree:
		visit(&ins.CoroFree.Frame)
	case ir.InstrCoroSubFn:
		visit(&ins.CoroSubFn.Frame)
	}
}

func rvalueOperands(rv *ir.RValue, visit func(*ir.Operand)) {
	switch rv.Kind {
	case ir.RValueUse:
		visit(&rv.Use)
	case ir.RValueUnaryOp:
		visit(&rv.Unary.Operand)
	case ir.RValueBinaryOp:
		visit(&rv.Binary.Left)
		visit(&rv.Binary.Right)
	case ir.RValueSelect:
		visit(&rv.Select.Cond)
		visit(&rv.Select.Then)
		visit(&rv.Select.Else)
	}
}
