package ir

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"eddy/internal/types"
)

// DumpOptions configures module dumping.
type DumpOptions struct{}

// DumpModule writes a human-readable representation of a module.
// Functions are emitted in name order for stable output.
func DumpModule(w io.Writer, m *Module, typesIn *types.Interner, _ DumpOptions) error {
	if w == nil || m == nil {
		return nil
	}
	funcs := make([]*Func, 0, len(m.Funcs))
	for _, f := range m.Funcs {
		if f != nil {
			funcs = append(funcs, f)
		}
	}
	slices.SortStableFunc(funcs, func(a, b *Func) int {
		return strings.Compare(a.Name, b.Name)
	})
	for i, f := range funcs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := DumpFunc(w, m, f, typesIn); err != nil {
			return err
		}
	}
	return nil
}

// DumpFunc writes one function. The module is only consulted to render
// function constants by name and may be nil.
func DumpFunc(w io.Writer, m *Module, f *Func, typesIn *types.Interner) error {
	if w == nil || f == nil {
		return nil
	}
	p := &printer{m: m, f: f, types: typesIn}

	params := make([]string, 0, len(f.Params))
	paramSet := LocalSet{}
	for _, id := range f.Params {
		params = append(params, fmt.Sprintf("%%%d: %s", id, p.typeStr(f.LocalType(id))))
		paramSet.Add(id)
	}
	header := fmt.Sprintf("func @%s(%s) -> %s", f.Name, strings.Join(params, ", "), p.typeStr(f.Result))
	if len(f.Attrs) > 0 {
		keys := make([]string, 0, len(f.Attrs))
		for k := range f.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+f.Attrs[k])
		}
		header += " attrs(" + strings.Join(pairs, ", ") + ")"
	}
	if f.CallConv == CallConvFast {
		header += " fastcc"
	}
	fmt.Fprintf(w, "%s {\n", header)

	for id := range f.Locals {
		lid := LocalID(id) //nolint:gosec // bounded by locals length
		if paramSet.Has(lid) {
			continue
		}
		line := fmt.Sprintf("  local %%%d: %s", id, p.typeStr(f.Locals[id].Type))
		if f.Locals[id].Name != "" {
			line += fmt.Sprintf(" %q", f.Locals[id].Name)
		}
		fmt.Fprintln(w, line)
	}

	for bi := range f.Blocks {
		bb := &f.Blocks[bi]
		label := fmt.Sprintf("bb%d:", bb.ID)
		if bb.ID == f.Entry {
			label += " ; entry"
		}
		fmt.Fprintln(w, label)
		for i := range bb.Instrs {
			fmt.Fprintf(w, "  %s\n", p.instrStr(&bb.Instrs[i]))
		}
		fmt.Fprintf(w, "  %s\n", p.termStr(&bb.Term))
	}
	fmt.Fprintln(w, "}")
	return nil
}

type printer struct {
	m     *Module
	f     *Func
	types *types.Interner
}

func (p *printer) typeStr(id types.TypeID) string {
	if p.types == nil {
		return fmt.Sprintf("type#%d", id)
	}
	tt, ok := p.types.Lookup(id)
	if !ok {
		return fmt.Sprintf("type#%d", id)
	}
	switch tt.Kind {
	case types.KindUnit:
		return "unit"
	case types.KindBool:
		return "bool"
	case types.KindInt:
		return fmt.Sprintf("i%d", tt.Width)
	case types.KindUint:
		return fmt.Sprintf("u%d", tt.Width)
	case types.KindFloat:
		return fmt.Sprintf("f%d", tt.Width)
	case types.KindPtr:
		return "ptr"
	case types.KindFn:
		return "fnptr"
	case types.KindStruct:
		if info, ok := p.types.StructOf(id); ok && info.Name != "" {
			return "struct." + info.Name
		}
		return "struct"
	default:
		return fmt.Sprintf("type#%d", id)
	}
}

func (p *printer) placeStr(pl Place) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%%%d", pl.Local)
	for _, proj := range pl.Proj {
		switch proj.Kind {
		case PlaceProjDeref:
			sb.WriteString(".deref")
		case PlaceProjField:
			fmt.Fprintf(&sb, ".f%d", proj.FieldIdx)
		}
	}
	return sb.String()
}

func (p *printer) operandStr(op *Operand) string {
	switch op.Kind {
	case OperandConst:
		return p.constStr(&op.Const)
	case OperandCopy:
		return p.placeStr(op.Place)
	case OperandMove:
		return "move " + p.placeStr(op.Place)
	case OperandAddrOf:
		return "&" + p.placeStr(op.Place)
	default:
		return "?"
	}
}

func (p *printer) constStr(c *Const) string {
	switch c.Kind {
	case ConstInt:
		return fmt.Sprintf("%d:%s", c.IntValue, p.typeStr(c.Type))
	case ConstUint:
		return fmt.Sprintf("%d:%s", c.UintValue, p.typeStr(c.Type))
	case ConstBool:
		if c.BoolValue {
			return "true"
		}
		return "false"
	case ConstNull:
		return "null"
	case ConstUnit:
		return "unit"
	case ConstFn:
		return p.fnRef(c.Func)
	default:
		return "?"
	}
}

func (p *printer) fnRef(id FuncID) string {
	if p.m != nil {
		if f := p.m.Funcs[id]; f != nil {
			return "@" + f.Name
		}
	}
	return fmt.Sprintf("fn#%d", id)
}

func (p *printer) rvalueStr(rv *RValue) string {
	switch rv.Kind {
	case RValueUse:
		return p.operandStr(&rv.Use)
	case RValueUnaryOp:
		return fmt.Sprintf("%s %s", unaryName(rv.Unary.Op), p.operandStr(&rv.Unary.Operand))
	case RValueBinaryOp:
		return fmt.Sprintf("%s %s, %s", binaryName(rv.Binary.Op),
			p.operandStr(&rv.Binary.Left), p.operandStr(&rv.Binary.Right))
	case RValueSelect:
		return fmt.Sprintf("select %s, %s, %s", p.operandStr(&rv.Select.Cond),
			p.operandStr(&rv.Select.Then), p.operandStr(&rv.Select.Else))
	default:
		return "?"
	}
}

func unaryName(op UnaryOpKind) string {
	switch op {
	case UnaryNot:
		return "not"
	case UnaryNeg:
		return "neg"
	default:
		return "?"
	}
}

func binaryName(op BinaryOpKind) string {
	switch op {
	case BinaryAdd:
		return "add"
	case BinarySub:
		return "sub"
	case BinaryMul:
		return "mul"
	case BinaryEq:
		return "eq"
	case BinaryNe:
		return "ne"
	case BinaryLt:
		return "lt"
	case BinaryLe:
		return "le"
	default:
		return "?"
	}
}

func (p *printer) instrStr(ins *Instr) string {
	switch ins.Kind {
	case InstrAssign:
		return fmt.Sprintf("%s = %s", p.placeStr(ins.Assign.Dst), p.rvalueStr(&ins.Assign.Src))
	case InstrCall:
		return p.callStr(&ins.Call)
	case InstrCoroBegin:
		s := fmt.Sprintf("%%%d = coro.begin mem=%s", ins.CoroBegin.Dst, p.operandStr(&ins.CoroBegin.Mem))
		if ins.CoroBegin.Alloc != NoLocalID {
			s += fmt.Sprintf(" alloc=%%%d", ins.CoroBegin.Alloc)
		}
		if ins.CoroBegin.Info.IsSet() {
			s += fmt.Sprintf(" info=(%s,%s,%s)",
				p.fnRef(ins.CoroBegin.Info.Resume),
				p.fnRef(ins.CoroBegin.Info.Destroy),
				p.fnRef(ins.CoroBegin.Info.Cleanup))
		}
		return s
	case InstrCoroAlloc:
		return fmt.Sprintf("%%%d = coro.alloc", ins.CoroAlloc.Dst)
	case InstrCoroSave:
		return fmt.Sprintf("%%%d = coro.save", ins.CoroSave.Dst)
	case InstrCoroSuspend:
		s := fmt.Sprintf("%%%d = coro.suspend save=%%%d", ins.CoroSuspend.Dst, ins.CoroSuspend.Save)
		if ins.CoroSuspend.Final {
			s += " final"
		}
		return s
	case InstrCoroEnd:
		s := fmt.Sprintf("%%%d = coro.end", ins.CoroEnd.Dst)
		if ins.CoroEnd.Unwind {
			s += " unwind"
		}
		return s
	case InstrCoroSize:
		return fmt.Sprintf("%%%d = coro.size", ins.CoroSize.Dst)
	case InstrCoroFree:
		return fmt.Sprintf("%%%d = coro.free frame=%s", ins.CoroFree.Dst, p.operandStr(&ins.CoroFree.Frame))
	case InstrCoroSubFn:
		return fmt.Sprintf("%%%d = coro.subfn frame=%s index=%d",
			ins.CoroSubFn.Dst, p.operandStr(&ins.CoroSubFn.Frame), ins.CoroSubFn.Index)
	case InstrNop:
		return "nop"
	default:
		return "?"
	}
}

func (p *printer) callStr(call *CallInstr) string {
	args := make([]string, 0, len(call.Args))
	for i := range call.Args {
		args = append(args, p.operandStr(&call.Args[i]))
	}
	var target string
	switch call.Callee.Kind {
	case CalleeFunc:
		target = fmt.Sprintf("fn#%d", call.Callee.Func)
		if p.m != nil {
			if f := p.m.Funcs[call.Callee.Func]; f != nil {
				target = "@" + f.Name
			}
		}
	case CalleeValue:
		target = "value " + p.operandStr(&call.Callee.Value)
	case CalleeExtern:
		target = fmt.Sprintf("extern %q", call.Callee.Name)
	}
	s := fmt.Sprintf("call %s(%s)", target, strings.Join(args, ", "))
	if call.HasDst {
		s = p.placeStr(call.Dst) + " = " + s
	}
	return s
}

func (p *printer) termStr(term *Terminator) string {
	switch term.Kind {
	case TermReturn:
		if term.Return.HasValue {
			return "ret " + p.operandStr(&term.Return.Value)
		}
		return "ret"
	case TermGoto:
		return fmt.Sprintf("goto bb%d", term.Goto.Target)
	case TermIf:
		return fmt.Sprintf("if %s then bb%d else bb%d",
			p.operandStr(&term.If.Cond), term.If.Then, term.If.Else)
	case TermSwitch:
		cases := make([]string, 0, len(term.Switch.Cases))
		for _, c := range term.Switch.Cases {
			cases = append(cases, fmt.Sprintf("%d -> bb%d", c.Value, c.Target))
		}
		return fmt.Sprintf("switch %s [%s] default bb%d",
			p.operandStr(&term.Switch.Value), strings.Join(cases, ", "), term.Switch.Default)
	case TermUnreachable:
		return "unreachable"
	case TermNone:
		return "<unterminated>"
	default:
		return "?"
	}
}
