package callgraph

import "eddy/internal/ir"

// SCC is one strongly connected component of the call graph.
type SCC struct {
	Funcs []ir.FuncID
}

// SCCs computes the strongly connected components of g with Tarjan's
// algorithm. Components come out callees-first, so walking the result in
// order visits every callee SCC before any of its callers.
func (g *Graph) SCCs() []SCC {
	t := &tarjan{
		g:       g,
		index:   make(map[ir.FuncID]int, len(g.nodes)),
		lowlink: make(map[ir.FuncID]int, len(g.nodes)),
		onStack: make(map[ir.FuncID]bool, len(g.nodes)),
	}
	for _, id := range g.nodes {
		if _, seen := t.index[id]; !seen {
			t.visit(id)
		}
	}
	return t.out
}

type tarjan struct {
	g       *Graph
	next    int
	index   map[ir.FuncID]int
	lowlink map[ir.FuncID]int
	onStack map[ir.FuncID]bool
	stack   []ir.FuncID
	out     []SCC
}

type tarjanFrame struct {
	node ir.FuncID
	succ int
}

// visit runs the usual recursive formulation with an explicit stack so
// deep call chains cannot overflow the goroutine stack.
func (t *tarjan) visit(root ir.FuncID) {
	work := []tarjanFrame{{node: root}}
	t.push(root)

	for len(work) > 0 {
		fr := &work[len(work)-1]
		succs := t.g.Succs(fr.node)
		if fr.succ < len(succs) {
			next := succs[fr.succ]
			fr.succ++
			if _, seen := t.index[next]; !seen {
				t.push(next)
				work = append(work, tarjanFrame{node: next})
			} else if t.onStack[next] {
				if t.index[next] < t.lowlink[fr.node] {
					t.lowlink[fr.node] = t.index[next]
				}
			}
			continue
		}

		node := fr.node
		work = work[:len(work)-1]
		if len(work) > 0 {
			parent := work[len(work)-1].node
			if t.lowlink[node] < t.lowlink[parent] {
				t.lowlink[parent] = t.lowlink[node]
			}
		}
		if t.lowlink[node] == t.index[node] {
			var comp SCC
			for {
				top := t.stack[len(t.stack)-1]
				t.stack = t.stack[:len(t.stack)-1]
				t.onStack[top] = false
				comp.Funcs = append(comp.Funcs, top)
				if top == node {
					break
				}
			}
			t.out = append(t.out, comp)
		}
	}
}

func (t *tarjan) push(id ir.FuncID) {
	t.index[id] = t.next
	t.lowlink[id] = t.next
	t.next++
	t.stack = append(t.stack, id)
	t.onStack[id] = true
}
