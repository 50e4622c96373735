package callgraph

import (
	"fmt"

	"eddy/internal/ir"
)

// maxRevisits bounds how many times a single SCC may be reprocessed after
// a pass requests a revisit. Two rounds suffice for the prepare/split
// protocol; the cap catches passes that never settle.
const maxRevisits = 8

// Result reports what a pass did to an SCC.
type Result struct {
	// Changed is set when the pass mutated any function in the SCC.
	Changed bool
	// Added lists functions the pass created. They are scheduled after
	// the current SCC.
	Added []ir.FuncID
	// Revisit requests that the current SCC be processed again by the
	// full pass list before the scheduler moves on.
	Revisit bool
}

// Pass processes one strongly connected component at a time.
type Pass interface {
	Name() string
	RunOnSCC(m *ir.Module, scc []ir.FuncID) (Result, error)
}

// Scheduler walks the call graph bottom-up and applies each pass to every
// SCC. Functions added by a pass are scheduled as their own components
// once the SCC that produced them settles.
type Scheduler struct {
	Passes []Pass
}

// Run processes every SCC of m. The graph is built once up front; passes
// that change the call shape of an SCC signal it through Result rather
// than by invalidating the graph.
func (s *Scheduler) Run(m *ir.Module) error {
	work := Build(m).SCCs()
	for i := 0; i < len(work); i++ {
		added, err := s.runSCC(m, work[i].Funcs)
		if err != nil {
			return err
		}
		for _, id := range added {
			work = append(work, SCC{Funcs: []ir.FuncID{id}})
		}
	}
	return nil
}

func (s *Scheduler) runSCC(m *ir.Module, scc []ir.FuncID) ([]ir.FuncID, error) {
	var added []ir.FuncID
	for round := 0; ; round++ {
		if round > maxRevisits {
			return nil, fmt.Errorf("callgraph: scc %v did not converge after %d rounds", scc, maxRevisits)
		}
		revisit := false
		for _, pass := range s.Passes {
			res, err := pass.RunOnSCC(m, scc)
			if err != nil {
				return nil, fmt.Errorf("callgraph: pass %s: %w", pass.Name(), err)
			}
			added = append(added, res.Added...)
			if res.Revisit {
				revisit = true
			}
		}
		if !revisit {
			return added, nil
		}
	}
}
