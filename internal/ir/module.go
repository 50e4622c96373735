package ir

import "fmt"

// Module is one compilation unit: a set of functions addressed by FuncID.
type Module struct {
	Funcs      map[FuncID]*Func
	FuncByName map[string]FuncID

	nextFunc FuncID
}

// NewModule creates an empty module.
func NewModule() *Module {
	return &Module{
		Funcs:      make(map[FuncID]*Func),
		FuncByName: make(map[string]FuncID),
	}
}

// AddFunc registers a function, assigning its ID. Names must be unique
// within the module.
func (m *Module) AddFunc(f *Func) (FuncID, error) {
	if m == nil || f == nil {
		return NoFuncID, fmt.Errorf("ir: nil module or function")
	}
	if _, exists := m.FuncByName[f.Name]; exists {
		return NoFuncID, fmt.Errorf("ir: duplicate function %q", f.Name)
	}
	id := m.nextFunc
	m.nextFunc++
	f.ID = id
	m.Funcs[id] = f
	m.FuncByName[f.Name] = id
	return id, nil
}

// FuncNamed returns the function with the given name, or nil.
func (m *Module) FuncNamed(name string) *Func {
	if m == nil {
		return nil
	}
	id, ok := m.FuncByName[name]
	if !ok {
		return nil
	}
	return m.Funcs[id]
}
