package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnit
	KindBool
	KindInt
	KindUint
	KindFloat
	KindPtr
	KindFn
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindPtr:
		return "ptr"
	case KindFn:
		return "fn"
	case KindStruct:
		return "struct"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Width captures the precision of integer/float primitives.
type Width uint8

const (
	WidthAny Width = 0
	Width8   Width = 8
	Width16  Width = 16
	Width32  Width = 32
	Width64  Width = 64
)

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind    Kind
	Elem    TypeID // pointee for KindPtr
	Width   Width  // for numeric primitives
	Payload uint32 // struct table index for KindStruct
}

// MakeInt builds an integer descriptor of the given width.
func MakeInt(w Width) Type { return Type{Kind: KindInt, Width: w} }

// MakeUint builds an unsigned integer descriptor of the given width.
func MakeUint(w Width) Type { return Type{Kind: KindUint, Width: w} }

// MakeFloat builds a float descriptor of the given width.
func MakeFloat(w Width) Type { return Type{Kind: KindFloat, Width: w} }

// MakePtr builds a pointer descriptor to elem.
func MakePtr(elem TypeID) Type { return Type{Kind: KindPtr, Elem: elem} }

// Field is one named member of a struct type.
type Field struct {
	Name string
	Type TypeID
}

// StructInfo stores the member list of a struct type.
type StructInfo struct {
	Name   string
	Fields []Field
}
