package ir

type TermKind uint8

const (
	TermNone TermKind = iota
	TermReturn
	TermGoto
	TermIf
	TermSwitch
	TermUnreachable
)

type Terminator struct {
	Kind TermKind

	Return      ReturnTerm
	Goto        GotoTerm
	If          IfTerm
	Switch      SwitchTerm
	Unreachable struct{}
}

type ReturnTerm struct {
	HasValue bool
	Value    Operand
}

type GotoTerm struct {
	Target BlockID
}

type IfTerm struct {
	Cond Operand
	Then BlockID
	Else BlockID
}

type SwitchCase struct {
	Value  int64
	Target BlockID
}

// SwitchTerm is a multi-way branch over an integer operand. Unknown values
// take Default.
type SwitchTerm struct {
	Value   Operand
	Cases   []SwitchCase
	Default BlockID
}

// GotoTo builds a goto terminator.
func GotoTo(target BlockID) Terminator {
	return Terminator{Kind: TermGoto, Goto: GotoTerm{Target: target}}
}

// ReturnVoid builds a value-less return terminator.
func ReturnVoid() Terminator {
	return Terminator{Kind: TermReturn}
}
