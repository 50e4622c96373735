package ir

import (
	"fmt"
	"strconv"
	"strings"

	"eddy/internal/types"
)

// ParseModule reads the textual form emitted by DumpModule. The format is
// line oriented; ';' starts a comment. Function references (@name) may
// point at functions defined later in the input.
func ParseModule(src string, typesIn *types.Interner) (*Module, error) {
	m := NewModule()
	lines := strings.Split(src, "\n")

	// Pre-register function names so @name constants resolve regardless of
	// definition order. IDs are assigned in order of appearance, matching
	// the AddFunc calls below.
	for ln, raw := range lines {
		line := stripComment(raw)
		if !strings.HasPrefix(line, "func @") {
			continue
		}
		name, err := funcNameOf(line)
		if err != nil {
			return nil, parseErr(ln, "%v", err)
		}
		stub := &Func{Name: name, Entry: NoBlockID}
		if _, err := m.AddFunc(stub); err != nil {
			return nil, parseErr(ln, "%v", err)
		}
	}

	p := &moduleParser{m: m, types: typesIn}
	var cur *funcParser
	for ln, raw := range lines {
		line := stripComment(raw)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "func @"):
			if cur != nil {
				return nil, parseErr(ln, "nested func")
			}
			fp, err := p.beginFunc(line, ln)
			if err != nil {
				return nil, err
			}
			cur = fp
		case line == "}":
			if cur == nil {
				return nil, parseErr(ln, "unexpected }")
			}
			if err := cur.finish(ln); err != nil {
				return nil, err
			}
			cur = nil
		default:
			if cur == nil {
				return nil, parseErr(ln, "statement outside func")
			}
			if err := cur.line(line, ln); err != nil {
				return nil, err
			}
		}
	}
	if cur != nil {
		return nil, fmt.Errorf("ir: parse: unterminated func @%s", cur.f.Name)
	}
	return m, nil
}

func parseErr(ln int, format string, args ...any) error {
	return fmt.Errorf("ir: parse line %d: %s", ln+1, fmt.Sprintf(format, args...))
}

func stripComment(raw string) string {
	if i := strings.IndexByte(raw, ';'); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}

func funcNameOf(line string) (string, error) {
	rest := strings.TrimPrefix(line, "func @")
	i := strings.IndexByte(rest, '(')
	if i <= 0 {
		return "", fmt.Errorf("malformed func header")
	}
	return rest[:i], nil
}

type moduleParser struct {
	m     *Module
	types *types.Interner
}

type funcParser struct {
	p   *moduleParser
	f   *Func
	cur BlockID
}

func (p *moduleParser) beginFunc(line string, ln int) (*funcParser, error) {
	name, err := funcNameOf(line)
	if err != nil {
		return nil, parseErr(ln, "%v", err)
	}
	f := p.m.FuncNamed(name)
	if f == nil {
		return nil, parseErr(ln, "func %q not pre-registered", name)
	}

	rest := line[strings.IndexByte(line, '(')+1:]
	close := strings.IndexByte(rest, ')')
	if close < 0 {
		return nil, parseErr(ln, "missing ) in func header")
	}
	paramsRaw, tail := rest[:close], strings.TrimSpace(rest[close+1:])

	fp := &funcParser{p: p, f: f, cur: NoBlockID}
	if strings.TrimSpace(paramsRaw) != "" {
		for _, part := range splitTopLevel(paramsRaw) {
			id, ty, _, err := fp.parseLocalDecl(part)
			if err != nil {
				return nil, parseErr(ln, "param: %v", err)
			}
			if int(id) != len(f.Locals) {
				return nil, parseErr(ln, "param %%%d out of order", id)
			}
			f.Locals = append(f.Locals, Local{Type: ty})
			f.Params = append(f.Params, id)
		}
	}

	if !strings.HasPrefix(tail, "->") {
		return nil, parseErr(ln, "missing result type")
	}
	tail = strings.TrimSpace(strings.TrimPrefix(tail, "->"))
	if !strings.HasSuffix(tail, "{") {
		return nil, parseErr(ln, "missing { in func header")
	}
	tail = strings.TrimSpace(strings.TrimSuffix(tail, "{"))

	if strings.HasSuffix(tail, "fastcc") {
		f.CallConv = CallConvFast
		tail = strings.TrimSpace(strings.TrimSuffix(tail, "fastcc"))
	}
	if i := strings.Index(tail, "attrs("); i >= 0 {
		attrsRaw := tail[i+len("attrs("):]
		j := strings.IndexByte(attrsRaw, ')')
		if j < 0 {
			return nil, parseErr(ln, "missing ) in attrs")
		}
		for _, pair := range splitTopLevel(attrsRaw[:j]) {
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, parseErr(ln, "malformed attr %q", pair)
			}
			f.SetAttr(strings.TrimSpace(k), strings.TrimSpace(v))
		}
		tail = strings.TrimSpace(tail[:i])
	}

	ty, err := fp.parseType(tail)
	if err != nil {
		return nil, parseErr(ln, "result: %v", err)
	}
	f.Result = ty
	return fp, nil
}

func (fp *funcParser) finish(ln int) error {
	if len(fp.f.Blocks) == 0 {
		return parseErr(ln, "func @%s has no blocks", fp.f.Name)
	}
	if fp.f.Entry == NoBlockID {
		fp.f.Entry = 0
	}
	return nil
}

func (fp *funcParser) line(line string, ln int) error {
	switch {
	case strings.HasPrefix(line, "local "):
		id, ty, name, err := fp.parseLocalDecl(strings.TrimPrefix(line, "local "))
		if err != nil {
			return parseErr(ln, "local: %v", err)
		}
		if int(id) != len(fp.f.Locals) {
			return parseErr(ln, "local %%%d out of order", id)
		}
		fp.f.Locals = append(fp.f.Locals, Local{Type: ty, Name: name})
		return nil

	case strings.HasPrefix(line, "bb") && strings.HasSuffix(line, ":"):
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(line, "bb"), ":"))
		if err != nil {
			return parseErr(ln, "malformed block label %q", line)
		}
		if n != len(fp.f.Blocks) {
			return parseErr(ln, "block bb%d out of order", n)
		}
		fp.cur = NewBlock(fp.f)
		return nil

	default:
		if fp.cur == NoBlockID {
			return parseErr(ln, "statement before first block label")
		}
		if fp.f.Blocks[fp.cur].Term.Kind != TermNone {
			return parseErr(ln, "statement after terminator in bb%d", fp.cur)
		}
		if term, ok, err := fp.parseTerm(line); err != nil {
			return parseErr(ln, "%v", err)
		} else if ok {
			SetTerm(fp.f, fp.cur, term)
			return nil
		}
		ins, err := fp.parseInstr(line)
		if err != nil {
			return parseErr(ln, "%v", err)
		}
		AppendInstr(fp.f, fp.cur, ins)
		return nil
	}
}

// parseLocalDecl parses `%N: type ["name"]`.
func (fp *funcParser) parseLocalDecl(s string) (LocalID, types.TypeID, string, error) {
	s = strings.TrimSpace(s)
	head, rest, ok := strings.Cut(s, ":")
	if !ok {
		return NoLocalID, types.NoTypeID, "", fmt.Errorf("missing type in %q", s)
	}
	id, err := parseLocalRef(strings.TrimSpace(head))
	if err != nil {
		return NoLocalID, types.NoTypeID, "", err
	}
	rest = strings.TrimSpace(rest)
	name := ""
	if i := strings.IndexByte(rest, '"'); i >= 0 {
		var nerr error
		name, nerr = strconv.Unquote(strings.TrimSpace(rest[i:]))
		if nerr != nil {
			return NoLocalID, types.NoTypeID, "", fmt.Errorf("malformed local name: %w", nerr)
		}
		rest = strings.TrimSpace(rest[:i])
	}
	ty, err := fp.parseType(rest)
	if err != nil {
		return NoLocalID, types.NoTypeID, "", err
	}
	return id, ty, name, nil
}

func parseLocalRef(s string) (LocalID, error) {
	if !strings.HasPrefix(s, "%") {
		return NoLocalID, fmt.Errorf("expected %%N, got %q", s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 0 {
		return NoLocalID, fmt.Errorf("malformed local ref %q", s)
	}
	return LocalID(n), nil //nolint:gosec // parsed from bounded text
}

func (fp *funcParser) parseType(s string) (types.TypeID, error) {
	b := fp.p.types.Builtins()
	switch strings.TrimSpace(s) {
	case "unit":
		return b.Unit, nil
	case "bool":
		return b.Bool, nil
	case "i8":
		return b.I8, nil
	case "i32":
		return b.I32, nil
	case "i64":
		return b.I64, nil
	case "u64":
		return b.U64, nil
	case "f64":
		return b.F64, nil
	case "ptr":
		return b.RawPtr, nil
	case "fnptr":
		return b.FnPtr, nil
	default:
		return types.NoTypeID, fmt.Errorf("unknown type %q", s)
	}
}

func (fp *funcParser) parsePlace(s string) (Place, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ".")
	id, err := parseLocalRef(parts[0])
	if err != nil {
		return Place{}, err
	}
	pl := Place{Local: id}
	for _, part := range parts[1:] {
		switch {
		case part == "deref":
			pl.Proj = append(pl.Proj, PlaceProj{Kind: PlaceProjDeref})
		case strings.HasPrefix(part, "f"):
			idx, err := strconv.Atoi(part[1:])
			if err != nil || idx < 0 {
				return Place{}, fmt.Errorf("malformed projection %q", part)
			}
			pl.Proj = append(pl.Proj, PlaceProj{Kind: PlaceProjField, FieldIdx: idx})
		default:
			return Place{}, fmt.Errorf("malformed projection %q", part)
		}
	}
	return pl, nil
}

func (fp *funcParser) placeType(pl Place) types.TypeID {
	if len(pl.Proj) != 0 {
		return types.NoTypeID
	}
	return fp.f.LocalType(pl.Local)
}

func (fp *funcParser) parseOperand(s string) (Operand, error) {
	s = strings.TrimSpace(s)
	b := fp.p.types.Builtins()
	switch {
	case s == "true" || s == "false":
		return ConstOperand(BoolConst(s == "true", b.Bool)), nil
	case s == "null":
		return ConstOperand(NullConst(b.RawPtr)), nil
	case s == "unit":
		return ConstOperand(Const{Kind: ConstUnit, Type: b.Unit}), nil
	case strings.HasPrefix(s, "@"):
		f := fp.p.m.FuncNamed(s[1:])
		if f == nil {
			return Operand{}, fmt.Errorf("unknown function %q", s)
		}
		return ConstOperand(FnConst(f.ID, b.FnPtr)), nil
	case strings.HasPrefix(s, "move "):
		pl, err := fp.parsePlace(strings.TrimPrefix(s, "move "))
		if err != nil {
			return Operand{}, err
		}
		return Operand{Kind: OperandMove, Type: fp.placeType(pl), Place: pl}, nil
	case strings.HasPrefix(s, "&"):
		pl, err := fp.parsePlace(s[1:])
		if err != nil {
			return Operand{}, err
		}
		return Operand{Kind: OperandAddrOf, Type: b.RawPtr, Place: pl}, nil
	case strings.HasPrefix(s, "%"):
		pl, err := fp.parsePlace(s)
		if err != nil {
			return Operand{}, err
		}
		return Operand{Kind: OperandCopy, Type: fp.placeType(pl), Place: pl}, nil
	default:
		valueRaw, tyRaw, ok := strings.Cut(s, ":")
		if !ok {
			return Operand{}, fmt.Errorf("malformed operand %q", s)
		}
		ty, err := fp.parseType(tyRaw)
		if err != nil {
			return Operand{}, err
		}
		tt := fp.p.types.MustLookup(ty)
		if tt.Kind == types.KindUint {
			v, err := strconv.ParseUint(valueRaw, 10, 64)
			if err != nil {
				return Operand{}, fmt.Errorf("malformed integer %q", valueRaw)
			}
			return ConstOperand(UintConst(v, ty)), nil
		}
		v, err := strconv.ParseInt(valueRaw, 10, 64)
		if err != nil {
			return Operand{}, fmt.Errorf("malformed integer %q", valueRaw)
		}
		return ConstOperand(IntConst(v, ty)), nil
	}
}

func (fp *funcParser) parseOperands(s string) ([]Operand, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := splitTopLevel(s)
	out := make([]Operand, 0, len(parts))
	for _, part := range parts {
		op, err := fp.parseOperand(part)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, nil
}

// splitTopLevel splits on commas that are not nested inside parentheses
// or brackets.
func splitTopLevel(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	out = append(out, strings.TrimSpace(s[start:]))
	return out
}

func (fp *funcParser) parseTerm(line string) (Terminator, bool, error) {
	switch {
	case line == "ret":
		return ReturnVoid(), true, nil
	case strings.HasPrefix(line, "ret "):
		op, err := fp.parseOperand(strings.TrimPrefix(line, "ret "))
		if err != nil {
			return Terminator{}, true, err
		}
		return Terminator{Kind: TermReturn, Return: ReturnTerm{HasValue: true, Value: op}}, true, nil
	case strings.HasPrefix(line, "goto "):
		bb, err := parseBlockRef(strings.TrimPrefix(line, "goto "))
		if err != nil {
			return Terminator{}, true, err
		}
		return GotoTo(bb), true, nil
	case strings.HasPrefix(line, "if "):
		rest := strings.TrimPrefix(line, "if ")
		condRaw, rest, ok := cutWord(rest, " then ")
		if !ok {
			return Terminator{}, true, fmt.Errorf("malformed if %q", line)
		}
		thenRaw, elseRaw, ok := cutWord(rest, " else ")
		if !ok {
			return Terminator{}, true, fmt.Errorf("malformed if %q", line)
		}
		cond, err := fp.parseOperand(condRaw)
		if err != nil {
			return Terminator{}, true, err
		}
		thenBB, err := parseBlockRef(thenRaw)
		if err != nil {
			return Terminator{}, true, err
		}
		elseBB, err := parseBlockRef(elseRaw)
		if err != nil {
			return Terminator{}, true, err
		}
		return Terminator{Kind: TermIf, If: IfTerm{Cond: cond, Then: thenBB, Else: elseBB}}, true, nil
	case strings.HasPrefix(line, "switch "):
		term, err := fp.parseSwitch(line)
		return term, true, err
	case line == "unreachable":
		return Terminator{Kind: TermUnreachable}, true, nil
	default:
		return Terminator{}, false, nil
	}
}

func (fp *funcParser) parseSwitch(line string) (Terminator, error) {
	rest := strings.TrimPrefix(line, "switch ")
	open := strings.IndexByte(rest, '[')
	closeIdx := strings.LastIndexByte(rest, ']')
	if open < 0 || closeIdx < open {
		return Terminator{}, fmt.Errorf("malformed switch %q", line)
	}
	value, err := fp.parseOperand(rest[:open])
	if err != nil {
		return Terminator{}, err
	}
	var cases []SwitchCase
	casesRaw := strings.TrimSpace(rest[open+1 : closeIdx])
	if casesRaw != "" {
		for _, part := range splitTopLevel(casesRaw) {
			valRaw, targetRaw, ok := strings.Cut(part, "->")
			if !ok {
				return Terminator{}, fmt.Errorf("malformed switch case %q", part)
			}
			v, err := strconv.ParseInt(strings.TrimSpace(valRaw), 10, 64)
			if err != nil {
				return Terminator{}, fmt.Errorf("malformed switch case value %q", valRaw)
			}
			target, err := parseBlockRef(targetRaw)
			if err != nil {
				return Terminator{}, err
			}
			cases = append(cases, SwitchCase{Value: v, Target: target})
		}
	}
	defRaw := strings.TrimSpace(rest[closeIdx+1:])
	if !strings.HasPrefix(defRaw, "default ") {
		return Terminator{}, fmt.Errorf("switch missing default in %q", line)
	}
	def, err := parseBlockRef(strings.TrimPrefix(defRaw, "default "))
	if err != nil {
		return Terminator{}, err
	}
	return Terminator{Kind: TermSwitch, Switch: SwitchTerm{Value: value, Cases: cases, Default: def}}, nil
}

func cutWord(s, sep string) (before, after string, found bool) {
	i := strings.Index(s, sep)
	if i < 0 {
		return s, "", false
	}
	return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+len(sep):]), true
}

func parseBlockRef(s string) (BlockID, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "bb") {
		return NoBlockID, fmt.Errorf("expected bbN, got %q", s)
	}
	n, err := strconv.Atoi(s[2:])
	if err != nil || n < 0 {
		return NoBlockID, fmt.Errorf("malformed block ref %q", s)
	}
	return BlockID(n), nil //nolint:gosec // parsed from bounded text
}

func (fp *funcParser) parseInstr(line string) (Instr, error) {
	if line == "nop" {
		return Instr{Kind: InstrNop}, nil
	}
	if strings.HasPrefix(line, "call ") {
		return fp.parseCall(line, Place{Local: NoLocalID}, false)
	}

	dstRaw, rest, ok := strings.Cut(line, "=")
	if !ok {
		return Instr{}, fmt.Errorf("malformed statement %q", line)
	}
	dst, err := fp.parsePlace(strings.TrimSpace(dstRaw))
	if err != nil {
		return Instr{}, err
	}
	rest = strings.TrimSpace(rest)

	switch {
	case strings.HasPrefix(rest, "coro."):
		return fp.parseCoroMarker(dst, rest)
	case strings.HasPrefix(rest, "call "):
		return fp.parseCall(rest, dst, true)
	default:
		rv, err := fp.parseRValue(rest)
		if err != nil {
			return Instr{}, err
		}
		return Instr{Kind: InstrAssign, Assign: AssignInstr{Dst: dst, Src: rv}}, nil
	}
}

func (fp *funcParser) parseRValue(s string) (RValue, error) {
	word, rest, _ := strings.Cut(s, " ")
	switch word {
	case "not", "neg":
		op, err := fp.parseOperand(rest)
		if err != nil {
			return RValue{}, err
		}
		kind := UnaryNot
		if word == "neg" {
			kind = UnaryNeg
		}
		return RValue{Kind: RValueUnaryOp, Unary: UnaryOp{Op: kind, Operand: op}}, nil
	case "add", "sub", "mul", "eq", "ne", "lt", "le":
		ops, err := fp.parseOperands(rest)
		if err != nil {
			return RValue{}, err
		}
		if len(ops) != 2 {
			return RValue{}, fmt.Errorf("%s expects 2 operands", word)
		}
		return RValue{Kind: RValueBinaryOp, Binary: BinaryOp{Op: binaryKind(word), Left: ops[0], Right: ops[1]}}, nil
	case "select":
		ops, err := fp.parseOperands(rest)
		if err != nil {
			return RValue{}, err
		}
		if len(ops) != 3 {
			return RValue{}, fmt.Errorf("select expects 3 operands")
		}
		return RValue{Kind: RValueSelect, Select: SelectOp{Cond: ops[0], Then: ops[1], Else: ops[2]}}, nil
	default:
		op, err := fp.parseOperand(s)
		if err != nil {
			return RValue{}, err
		}
		return UseRValue(op), nil
	}
}

func binaryKind(word string) BinaryOpKind {
	switch word {
	case "add":
		return BinaryAdd
	case "sub":
		return BinarySub
	case "mul":
		return BinaryMul
	case "eq":
		return BinaryEq
	case "ne":
		return BinaryNe
	case "lt":
		return BinaryLt
	default:
		return BinaryLe
	}
}

func (fp *funcParser) parseCall(s string, dst Place, hasDst bool) (Instr, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(s, "call "))
	open := strings.IndexByte(rest, '(')
	closeIdx := strings.LastIndexByte(rest, ')')
	if open < 0 || closeIdx < open {
		return Instr{}, fmt.Errorf("malformed call %q", s)
	}
	targetRaw := strings.TrimSpace(rest[:open])
	args, err := fp.parseOperands(rest[open+1 : closeIdx])
	if err != nil {
		return Instr{}, err
	}

	var callee Callee
	switch {
	case strings.HasPrefix(targetRaw, "@"):
		f := fp.p.m.FuncNamed(targetRaw[1:])
		if f == nil {
			return Instr{}, fmt.Errorf("unknown function %q", targetRaw)
		}
		callee = Callee{Kind: CalleeFunc, Func: f.ID, Name: f.Name}
	case strings.HasPrefix(targetRaw, "value "):
		op, err := fp.parseOperand(strings.TrimPrefix(targetRaw, "value "))
		if err != nil {
			return Instr{}, err
		}
		callee = Callee{Kind: CalleeValue, Value: op}
	case strings.HasPrefix(targetRaw, "extern "):
		name, err := strconv.Unquote(strings.TrimSpace(strings.TrimPrefix(targetRaw, "extern ")))
		if err != nil {
			return Instr{}, fmt.Errorf("malformed extern callee %q", targetRaw)
		}
		callee = Callee{Kind: CalleeExtern, Name: name}
	default:
		return Instr{}, fmt.Errorf("malformed callee %q", targetRaw)
	}
	return Instr{Kind: InstrCall, Call: CallInstr{HasDst: hasDst, Dst: dst, Callee: callee, Args: args}}, nil
}

func (fp *funcParser) parseCoroMarker(dst Place, s string) (Instr, error) {
	if len(dst.Proj) != 0 {
		return Instr{}, fmt.Errorf("coroutine marker result must be a bare local")
	}
	word, rest, _ := strings.Cut(s, " ")
	rest = strings.TrimSpace(rest)
	fields, err := fp.parseKeyFields(rest)
	if err != nil {
		return Instr{}, err
	}
	switch word {
	case "coro.begin":
		mem, ok := fields.ops["mem"]
		if !ok {
			return Instr{}, fmt.Errorf("coro.begin requires mem=")
		}
		alloc := NoLocalID
		if raw, ok := fields.raw["alloc"]; ok {
			alloc, err = parseLocalRef(raw)
			if err != nil {
				return Instr{}, err
			}
		}
		info := CoroInfo{Resume: NoFuncID, Destroy: NoFuncID, Cleanup: NoFuncID}
		if raw, ok := fields.raw["info"]; ok {
			info, err = fp.parseCoroInfo(raw)
			if err != nil {
				return Instr{}, err
			}
		}
		return Instr{Kind: InstrCoroBegin, CoroBegin: CoroBeginInstr{Dst: dst.Local, Mem: mem, Alloc: alloc, Info: info}}, nil
	case "coro.alloc":
		return Instr{Kind: InstrCoroAlloc, CoroAlloc: CoroAllocInstr{Dst: dst.Local}}, nil
	case "coro.save":
		return Instr{Kind: InstrCoroSave, CoroSave: CoroSaveInstr{Dst: dst.Local}}, nil
	case "coro.suspend":
		raw, ok := fields.raw["save"]
		if !ok {
			return Instr{}, fmt.Errorf("coro.suspend requires save=")
		}
		save, err := parseLocalRef(raw)
		if err != nil {
			return Instr{}, err
		}
		return Instr{Kind: InstrCoroSuspend, CoroSuspend: CoroSuspendInstr{
			Dst: dst.Local, Save: save, Final: fields.flags["final"],
		}}, nil
	case "coro.end":
		return Instr{Kind: InstrCoroEnd, CoroEnd: CoroEndInstr{Dst: dst.Local, Unwind: fields.flags["unwind"]}}, nil
	case "coro.size":
		return Instr{Kind: InstrCoroSize, CoroSize: CoroSizeInstr{Dst: dst.Local}}, nil
	case "coro.free":
		frame, ok := fields.ops["frame"]
		if !ok {
			return Instr{}, fmt.Errorf("coro.free requires frame=")
		}
		return Instr{Kind: InstrCoroFree, CoroFree: CoroFreeInstr{Dst: dst.Local, Frame: frame}}, nil
	case "coro.subfn":
		frame, ok := fields.ops["frame"]
		if !ok {
			return Instr{}, fmt.Errorf("coro.subfn requires frame=")
		}
		raw, ok := fields.raw["index"]
		if !ok {
			return Instr{}, fmt.Errorf("coro.subfn requires index=")
		}
		idx, err := strconv.ParseInt(raw, 10, 8)
		if err != nil {
			return Instr{}, fmt.Errorf("malformed subfn index %q", raw)
		}
		return Instr{Kind: InstrCoroSubFn, CoroSubFn: CoroSubFnInstr{Dst: dst.Local, Frame: frame, Index: int8(idx)}}, nil
	default:
		return Instr{}, fmt.Errorf("unknown marker %q", word)
	}
}

// parseCoroInfo parses the `(@resume,@destroy,@cleanup)` triple a split
// begin marker carries.
func (fp *funcParser) parseCoroInfo(raw string) (CoroInfo, error) {
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "("), ")")
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return CoroInfo{}, fmt.Errorf("malformed info triple %q", raw)
	}
	var ids [3]FuncID
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, "@") {
			return CoroInfo{}, fmt.Errorf("malformed info entry %q", part)
		}
		f := fp.p.m.FuncNamed(part[1:])
		if f == nil {
			return CoroInfo{}, fmt.Errorf("unknown function %q in info triple", part)
		}
		ids[i] = f.ID
	}
	return CoroInfo{Resume: ids[0], Destroy: ids[1], Cleanup: ids[2]}, nil
}

type markerFields struct {
	ops   map[string]Operand
	raw   map[string]string
	flags map[string]bool
}

// parseKeyFields parses space-separated `key=value` pairs and bare flags
// as used by coroutine markers.
func (fp *funcParser) parseKeyFields(s string) (markerFields, error) {
	out := markerFields{
		ops:   map[string]Operand{},
		raw:   map[string]string{},
		flags: map[string]bool{},
	}
	for _, field := range strings.Fields(s) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			out.flags[field] = true
			continue
		}
		out.raw[key] = value
		switch key {
		case "mem", "frame":
			op, err := fp.parseOperand(value)
			if err != nil {
				return out, err
			}
			out.ops[key] = op
		}
	}
	return out, nil
}
