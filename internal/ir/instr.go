package ir

import "eddy/internal/types"

// InstrKind enumerates instruction kinds.
type InstrKind uint8

const (
	// InstrAssign represents an assignment instruction.
	InstrAssign InstrKind = iota
	// InstrCall represents a call instruction.
	InstrCall
	// InstrCoroBegin obtains the coroutine frame handle.
	InstrCoroBegin
	// InstrCoroAlloc asks whether the frame must be heap-allocated.
	InstrCoroAlloc
	// InstrCoroSave marks the point where the resume index is persisted.
	InstrCoroSave
	// InstrCoroSuspend yields control; its result selects the re-entry path.
	InstrCoroSuspend
	// InstrCoroEnd marks normal or unwind completion of the coroutine body.
	InstrCoroEnd
	// InstrCoroSize queries the frame size in bytes.
	InstrCoroSize
	// InstrCoroFree asks whether the frame must be deallocated.
	InstrCoroFree
	// InstrCoroSubFn fetches a resume or destroy address from a frame.
	InstrCoroSubFn
	// InstrNop represents a no-op instruction.
	InstrNop
)

// Instr represents an instruction. Kind selects the active payload.
type Instr struct {
	Kind InstrKind

	Assign      AssignInstr
	Call        CallInstr
	CoroBegin   CoroBeginInstr
	CoroAlloc   CoroAllocInstr
	CoroSave    CoroSaveInstr
	CoroSuspend CoroSuspendInstr
	CoroEnd     CoroEndInstr
	CoroSize    CoroSizeInstr
	CoroFree    CoroFreeInstr
	CoroSubFn   CoroSubFnInstr
}

// AssignInstr represents an assignment instruction.
type AssignInstr struct {
	Dst Place
	Src RValue
}

// CalleeKind distinguishes call target types.
type CalleeKind uint8

const (
	// CalleeFunc targets a function in the same module.
	CalleeFunc CalleeKind = iota
	// CalleeValue targets a computed function address.
	CalleeValue
	// CalleeExtern targets a function outside the module, by name.
	CalleeExtern
)

// Callee represents a call target.
type Callee struct {
	Kind  CalleeKind
	Func  FuncID
	Name  string
	Value Operand
}

// CallInstr represents a function call instruction.
type CallInstr struct {
	HasDst bool
	Dst    Place
	Callee Callee
	Args   []Operand
}

// CoroInfo is the outlined-function triple recorded on the begin marker
// once the coroutine has been split. Downstream devirtualization resolves
// indirect resume/destroy calls through it.
type CoroInfo struct {
	Resume  FuncID
	Destroy FuncID
	Cleanup FuncID
}

// IsSet reports whether the triple has been recorded.
func (ci CoroInfo) IsSet() bool {
	return ci.Resume != NoFuncID || ci.Destroy != NoFuncID || ci.Cleanup != NoFuncID
}

// CoroBeginInstr returns the coroutine frame handle. Mem is caller-supplied
// storage (null when the coroutine allocates its own frame). Alloc is the
// result local of the paired InstrCoroAlloc, or NoLocalID when the frontend
// emitted no elision hint.
type CoroBeginInstr struct {
	Dst   LocalID
	Mem   Operand
	Alloc LocalID
	Info  CoroInfo
}

// CoroAllocInstr produces true when the frame must be heap-allocated and
// false when the caller elides the allocation.
type CoroAllocInstr struct {
	Dst LocalID
}

// CoroSaveInstr produces a token consumed by the paired suspend.
type CoroSaveInstr struct {
	Dst LocalID
}

// CoroSuspendInstr suspends the coroutine. The result is an i8 selector:
// 0 resumes, 1 destroys, any other value returns control to the caller.
type CoroSuspendInstr struct {
	Dst   LocalID
	Save  LocalID
	Final bool
}

// CoroEndInstr marks coroutine completion. The unwind variant produces a
// bool consumed by the exception propagation path.
type CoroEndInstr struct {
	Dst    LocalID
	Unwind bool
}

// CoroSizeInstr produces the frame size in bytes.
type CoroSizeInstr struct {
	Dst LocalID
}

// CoroFreeInstr produces true when the frame must be deallocated.
type CoroFreeInstr struct {
	Dst   LocalID
	Frame Operand
}

// SubFnRestartTrigger is the index the devirtualization probe passes to
// coro.subfn; it never corresponds to a real frame slot.
const SubFnRestartTrigger int8 = -1

// CoroSubFnInstr fetches the resume (0) or destroy (1) address stored in
// a frame.
type CoroSubFnInstr struct {
	Dst   LocalID
	Frame Operand
	Index int8
}

// OperandKind distinguishes operand types.
type OperandKind uint8

const (
	// OperandConst represents a constant operand.
	OperandConst OperandKind = iota
	// OperandCopy represents a copy of a place.
	OperandCopy
	// OperandMove represents a move out of a place.
	OperandMove
	// OperandAddrOf represents the address of a place.
	OperandAddrOf
)

// Operand represents an instruction operand.
type Operand struct {
	Kind OperandKind
	Type types.TypeID

	Const Const
	Place Place
}

// ConstKind distinguishes constant kinds.
type ConstKind uint8

const (
	// ConstInt represents a signed integer constant.
	ConstInt ConstKind = iota
	// ConstUint represents an unsigned integer constant.
	ConstUint
	// ConstBool represents a boolean constant.
	ConstBool
	// ConstNull represents a null pointer constant.
	ConstNull
	// ConstFn represents a function address constant.
	ConstFn
	// ConstUnit represents the unit constant.
	ConstUnit
)

// Const represents a constant value.
type Const struct {
	Kind ConstKind
	Type types.TypeID

	IntValue  int64
	UintValue uint64
	BoolValue bool
	Func      FuncID
}

// RValueKind distinguishes right-hand value kinds.
type RValueKind uint8

const (
	// RValueUse represents a use of an operand.
	RValueUse RValueKind = iota
	// RValueUnaryOp represents a unary operation.
	RValueUnaryOp
	// RValueBinaryOp represents a binary operation.
	RValueBinaryOp
	// RValueSelect represents a conditional choice between two operands.
	RValueSelect
)

// RValue represents a right-hand value.
type RValue struct {
	Kind RValueKind

	Use    Operand
	Unary  UnaryOp
	Binary BinaryOp
	Select SelectOp
}

// UnaryOpKind enumerates unary operators.
type UnaryOpKind uint8

const (
	UnaryNot UnaryOpKind = iota
	UnaryNeg
)

// UnaryOp represents a unary operation.
type UnaryOp struct {
	Op      UnaryOpKind
	Operand Operand
}

// BinaryOpKind enumerates binary operators.
type BinaryOpKind uint8

const (
	BinaryAdd BinaryOpKind = iota
	BinarySub
	BinaryMul
	BinaryEq
	BinaryNe
	BinaryLt
	BinaryLe
)

// BinaryOp represents a binary operation.
type BinaryOp struct {
	Op    BinaryOpKind
	Left  Operand
	Right Operand
}

// SelectOp picks Then when Cond is true, Else otherwise.
type SelectOp struct {
	Cond Operand
	Then Operand
	Else Operand
}

// ConstOperand builds a constant operand.
func ConstOperand(c Const) Operand {
	return Operand{Kind: OperandConst, Type: c.Type, Const: c}
}

// IntConst builds a signed integer constant of the given type.
func IntConst(v int64, ty types.TypeID) Const {
	return Const{Kind: ConstInt, Type: ty, IntValue: v}
}

// UintConst builds an unsigned integer constant of the given type.
func UintConst(v uint64, ty types.TypeID) Const {
	return Const{Kind: ConstUint, Type: ty, UintValue: v}
}

// BoolConst builds a boolean constant.
func BoolConst(v bool, ty types.TypeID) Const {
	return Const{Kind: ConstBool, Type: ty, BoolValue: v}
}

// NullConst builds a null pointer constant.
func NullConst(ty types.TypeID) Const {
	return Const{Kind: ConstNull, Type: ty}
}

// FnConst builds a function address constant.
func FnConst(f FuncID, ty types.TypeID) Const {
	return Const{Kind: ConstFn, Type: ty, Func: f}
}

// CopyOf builds a copy operand of a bare local place.
func CopyOf(id LocalID, ty types.TypeID) Operand {
	return Operand{Kind: OperandCopy, Type: ty, Place: LocalPlace(id)}
}

// CopyOfPlace builds a copy operand of a place.
func CopyOfPlace(p Place, ty types.TypeID) Operand {
	return Operand{Kind: OperandCopy, Type: ty, Place: p}
}

// UseRValue wraps an operand in a use rvalue.
func UseRValue(op Operand) RValue {
	return RValue{Kind: RValueUse, Use: op}
}
