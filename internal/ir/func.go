package ir

import "eddy/internal/types"

// CallConv records how a function expects to be invoked.
type CallConv uint8

const (
	// CallConvDefault is the platform calling convention.
	CallConvDefault CallConv = iota
	// CallConvFast marks functions only ever invoked indirectly through
	// stored addresses, never by name from arbitrary code.
	CallConvFast
)

type Func struct {
	ID   FuncID
	Name string

	Result   types.TypeID
	Params   []LocalID
	Locals   []Local
	Blocks   []Block
	Entry    BlockID
	CallConv CallConv

	// Attrs carries string-valued function attributes; the coroutine driver
	// uses them for its eligibility protocol.
	Attrs map[string]string
}

// Attr returns the value of a function attribute.
func (f *Func) Attr(key string) (string, bool) {
	if f == nil || f.Attrs == nil {
		return "", false
	}
	v, ok := f.Attrs[key]
	return v, ok
}

// SetAttr sets a function attribute.
func (f *Func) SetAttr(key, value string) {
	if f == nil {
		return
	}
	if f.Attrs == nil {
		f.Attrs = make(map[string]string, 2)
	}
	f.Attrs[key] = value
}

// RemoveAttr deletes a function attribute.
func (f *Func) RemoveAttr(key string) {
	if f == nil || f.Attrs == nil {
		return
	}
	delete(f.Attrs, key)
}

// LocalType returns the type of a local, or types.NoTypeID when id is out
// of range.
func (f *Func) LocalType(id LocalID) types.TypeID {
	if f == nil || id == NoLocalID || int(id) >= len(f.Locals) {
		return types.NoTypeID
	}
	return f.Locals[id].Type
}
