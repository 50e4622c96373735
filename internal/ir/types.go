package ir

import "eddy/internal/types"

type FuncID int32
type BlockID int32
type LocalID int32

const (
	NoFuncID  FuncID  = -1
	NoBlockID BlockID = -1
	NoLocalID LocalID = -1
)

// Local is one function-local slot. Parameters are locals listed in
// Func.Params; everything else is scratch storage.
type Local struct {
	Type types.TypeID
	Name string
}

type PlaceProjKind uint8

const (
	PlaceProjDeref PlaceProjKind = iota
	PlaceProjField
)

type PlaceProj struct {
	Kind     PlaceProjKind
	FieldIdx int
}

// Place is an addressable location: a local plus an optional projection
// path. Frame-resident values appear as frame.deref.field[i] places after
// the frame builder rewrite.
type Place struct {
	Local LocalID
	Proj  []PlaceProj
}

func (p Place) IsValid() bool {
	return p.Local != NoLocalID
}

// LocalPlace builds a bare place for a local.
func LocalPlace(id LocalID) Place {
	return Place{Local: id}
}

// FieldPlace builds base.deref.field[idx], the shape every frame access
// takes after spilling.
func FieldPlace(base LocalID, idx int) Place {
	return Place{Local: base, Proj: []PlaceProj{
		{Kind: PlaceProjDeref},
		{Kind: PlaceProjField, FieldIdx: idx},
	}}
}
