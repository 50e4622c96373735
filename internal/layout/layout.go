package layout

import (
	"fmt"

	"fortio.org/safecast"

	"eddy/internal/types"
)

// TypeLayout is the ABI layout of a type for a specific Target.
type TypeLayout struct {
	Size  int
	Align int

	// Struct-only:
	FieldOffsets []int
}

// Engine computes memory layout for types.
type Engine struct {
	Target Target
	Types  *types.Interner

	cache map[types.TypeID]TypeLayout
}

// NewEngine creates a layout engine for the specified target.
func NewEngine(target Target, typesIn *types.Interner) *Engine {
	return &Engine{
		Target: target,
		Types:  typesIn,
		cache:  make(map[types.TypeID]TypeLayout, 64),
	}
}

// LayoutOf computes and caches the layout of a type.
func (e *Engine) LayoutOf(id types.TypeID) (TypeLayout, error) {
	if e == nil || e.Types == nil {
		return TypeLayout{}, fmt.Errorf("layout: engine not initialized")
	}
	if l, ok := e.cache[id]; ok {
		return l, nil
	}
	l, err := e.compute(id)
	if err != nil {
		return TypeLayout{}, err
	}
	e.cache[id] = l
	return l, nil
}

func (e *Engine) compute(id types.TypeID) (TypeLayout, error) {
	tt, ok := e.Types.Lookup(id)
	if !ok {
		return TypeLayout{}, fmt.Errorf("layout: unknown type#%d", id)
	}

	switch tt.Kind {
	case types.KindUnit:
		return TypeLayout{Size: 0, Align: 1}, nil

	case types.KindBool:
		return TypeLayout{Size: 1, Align: 1}, nil

	case types.KindInt, types.KindUint, types.KindFloat:
		if tt.Width == types.WidthAny {
			return e.ptrLayout(), nil
		}
		return scalarLayoutBytes(int(tt.Width) / 8), nil

	case types.KindPtr, types.KindFn:
		return e.ptrLayout(), nil

	case types.KindStruct:
		return e.structLayout(id)

	default:
		return TypeLayout{}, fmt.Errorf("layout: cannot lay out %s type#%d", tt.Kind, id)
	}
}

func (e *Engine) structLayout(id types.TypeID) (TypeLayout, error) {
	info, ok := e.Types.StructOf(id)
	if !ok {
		return TypeLayout{}, fmt.Errorf("layout: type#%d is not a struct", id)
	}
	out := TypeLayout{Align: 1, FieldOffsets: make([]int, 0, len(info.Fields))}
	offset := 0
	for i := range info.Fields {
		fl, err := e.LayoutOf(info.Fields[i].Type)
		if err != nil {
			return TypeLayout{}, fmt.Errorf("layout: struct %s field %s: %w", info.Name, info.Fields[i].Name, err)
		}
		offset = alignUp(offset, fl.Align)
		out.FieldOffsets = append(out.FieldOffsets, offset)
		offset += fl.Size
		if fl.Align > out.Align {
			out.Align = fl.Align
		}
	}
	out.Size = alignUp(offset, out.Align)
	return out, nil
}

func (e *Engine) ptrLayout() TypeLayout {
	return TypeLayout{Size: e.Target.PtrSize, Align: e.Target.PtrAlign}
}

func scalarLayoutBytes(n int) TypeLayout {
	if n <= 0 {
		return TypeLayout{Size: 0, Align: 1}
	}
	return TypeLayout{Size: n, Align: n}
}

func alignUp(v, align int) int {
	if align <= 1 {
		return v
	}
	rem := v % align
	if rem == 0 {
		return v
	}
	return v + align - rem
}

// SizeOfU64 is LayoutOf with the size converted for storage in IR constants.
func (e *Engine) SizeOfU64(id types.TypeID) (uint64, error) {
	l, err := e.LayoutOf(id)
	if err != nil {
		return 0, err
	}
	size, err := safecast.Conv[uint64](l.Size)
	if err != nil {
		return 0, fmt.Errorf("layout: size overflow: %w", err)
	}
	return size, nil
}
