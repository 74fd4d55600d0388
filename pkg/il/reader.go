package il

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseError is a single recoverable diagnostic produced while reading a
// textual module (spec.md §4.1 "unknown tokens fail with a recoverable
// diagnostic").
type ParseError struct {
	Line, Col int
	Msg       string
}

func (e *ParseError) Error() string {
	return "il: " + strconv.Itoa(e.Line) + ":" + strconv.Itoa(e.Col) + ": " + e.Msg
}

// reader parses the textual IL grammar of spec.md §6.1 into a Module.
// Its recursive-descent shape, reading one token ahead at a time, is
// grounded on the teacher's pkg/parser recursive-descent structure,
// retargeted from the C grammar to the IL grammar.
type reader struct {
	lex *Lexer
	tok Token
}

// Parse reads src as a textual IL module.
func Parse(src string) (*Module, error) {
	r := &reader{lex: NewLexer(src)}
	r.advance()
	return r.parseModule()
}

func (r *reader) advance() { r.tok = r.lex.NextToken() }

func (r *reader) errf(format string, args ...any) error {
	return errors.WithStack(&ParseError{Line: r.tok.Line, Col: r.tok.Col, Msg: fmt.Sprintf(format, args...)})
}

func (r *reader) expect(tt TokenType, what string) (Token, error) {
	if r.tok.Type != tt {
		return Token{}, r.errf("expected %s, got %q", what, r.tok.Literal)
	}
	t := r.tok
	r.advance()
	return t, nil
}

func (r *reader) expectIdent(lit string) error {
	if r.tok.Type != TokIdent || r.tok.Literal != lit {
		return r.errf("expected %q, got %q", lit, r.tok.Literal)
	}
	r.advance()
	return nil
}

func (r *reader) parseModule() (*Module, error) {
	m := NewModule()
	if err := r.expectIdent("il"); err != nil {
		return nil, err
	}
	// The lexer splits a dotted version such as 1.0.0 into several tokens
	// (a float, a '.', an int), so the version is every token left on the
	// header line, joined back together.
	verLine := r.tok.Line
	var ver strings.Builder
	for r.tok.Type != TokEOF && r.tok.Line == verLine {
		ver.WriteString(r.tok.Literal)
		r.advance()
	}
	if ver.Len() == 0 {
		return nil, r.errf("expected version, got %q", r.tok.Literal)
	}
	if v, ok := parseVersion(ver.String()); ok {
		m.Version = v
	}
	for r.tok.Type != TokEOF {
		switch {
		case r.tok.Type == TokIdent && r.tok.Literal == "extern":
			e, err := r.parseExtern()
			if err != nil {
				return nil, err
			}
			m.AddExtern(e)
		case r.tok.Type == TokIdent && r.tok.Literal == "global":
			g, err := r.parseGlobal()
			if err != nil {
				return nil, err
			}
			m.AddGlobal(g)
		case r.tok.Type == TokIdent && r.tok.Literal == "func":
			f, err := r.parseFunc()
			if err != nil {
				return nil, err
			}
			m.AddFunc(f)
		default:
			return nil, r.errf("expected extern/global/func, got %q", r.tok.Literal)
		}
	}
	return m, nil
}

func parseVersion(s string) (Version, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, false
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, false
		}
		nums[i] = n
	}
	return Version{nums[0], nums[1], nums[2]}, true
}

func (r *reader) parseType() (Type, error) {
	if r.tok.Type != TokIdent {
		return Type{}, r.errf("expected type, got %q", r.tok.Literal)
	}
	k, ok := ParseKind(r.tok.Literal)
	if !ok {
		return Type{}, r.errf("unknown type %q", r.tok.Literal)
	}
	r.advance()
	return Type{k}, nil
}

func (r *reader) parseTypeList() ([]Type, error) {
	var types []Type
	if r.tok.Type == TokRParen {
		return types, nil
	}
	for {
		t, err := r.parseType()
		if err != nil {
			return nil, err
		}
		types = append(types, t)
		if r.tok.Type != TokComma {
			break
		}
		r.advance()
	}
	return types, nil
}

func (r *reader) parseExtern() (Extern, error) {
	r.advance() // 'extern'
	name, err := r.expect(TokGlobal, "@name")
	if err != nil {
		return Extern{}, err
	}
	if _, err := r.expect(TokLParen, "("); err != nil {
		return Extern{}, err
	}
	params, err := r.parseTypeList()
	if err != nil {
		return Extern{}, err
	}
	if _, err := r.expect(TokRParen, ")"); err != nil {
		return Extern{}, err
	}
	if _, err := r.expect(TokArrow, "->"); err != nil {
		return Extern{}, err
	}
	ret, err := r.parseType()
	if err != nil {
		return Extern{}, err
	}
	return Extern{Name: name.Literal, Ret: ret, Params: params}, nil
}

func (r *reader) parseGlobal() (Global, error) {
	r.advance() // 'global'
	name, err := r.expect(TokGlobal, "@name")
	if err != nil {
		return Global{}, err
	}
	if _, err := r.expect(TokEquals, "="); err != nil {
		return Global{}, err
	}
	s, err := r.expect(TokString, "string literal")
	if err != nil {
		return Global{}, err
	}
	return Global{Label: name.Literal, Blob: []byte(s.Literal)}, nil
}

func (r *reader) parseFunc() (*Function, error) {
	r.advance() // 'func'
	name, err := r.expect(TokGlobal, "@name")
	if err != nil {
		return nil, err
	}
	if _, err := r.expect(TokLParen, "("); err != nil {
		return nil, err
	}
	var params []FuncParam
	if r.tok.Type != TokRParen {
		for {
			pname, err := r.expect(TokIdent, "param name")
			if err != nil {
				return nil, err
			}
			if _, err := r.expect(TokColon, ":"); err != nil {
				return nil, err
			}
			t, err := r.parseType()
			if err != nil {
				return nil, err
			}
			params = append(params, FuncParam{Name: pname.Literal, Type: t})
			if r.tok.Type != TokComma {
				break
			}
			r.advance()
		}
	}
	if _, err := r.expect(TokRParen, ")"); err != nil {
		return nil, err
	}
	if _, err := r.expect(TokArrow, "->"); err != nil {
		return nil, err
	}
	ret, err := r.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := r.expect(TokLBrace, "{"); err != nil {
		return nil, err
	}
	fn := NewFunction(name.Literal, ret, params)
	for r.tok.Type != TokRBrace {
		blk, err := r.parseBlock()
		if err != nil {
			return nil, err
		}
		fn.AddBlock(blk)
	}
	r.advance() // '}'
	return fn, nil
}

func (r *reader) parseBlock() (*BasicBlock, error) {
	label, err := r.expect(TokIdent, "block label")
	if err != nil {
		return nil, err
	}
	blk := NewBlock(label.Literal)
	if r.tok.Type == TokLParen {
		r.advance()
		if r.tok.Type != TokRParen {
			for {
				pname, err := r.expect(TokTemp, "%temp")
				if err != nil {
					return nil, err
				}
				if _, err := r.expect(TokColon, ":"); err != nil {
					return nil, err
				}
				t, err := r.parseType()
				if err != nil {
					return nil, err
				}
				id, _ := strconv.Atoi(pname.Literal)
				blk.AddParam("", id, t)
				if r.tok.Type != TokComma {
					break
				}
				r.advance()
			}
		}
		if _, err := r.expect(TokRParen, ")"); err != nil {
			return nil, err
		}
	}
	if _, err := r.expect(TokColon, ":"); err != nil {
		return nil, err
	}
	for !blk.Terminated {
		if r.tok.Type == TokRBrace || r.tok.Type == TokEOF {
			return nil, r.errf("block %q missing terminator", blk.Label)
		}
		instr, err := r.parseInstr()
		if err != nil {
			return nil, err
		}
		blk.Instrs = append(blk.Instrs, instr)
		if instr.Op.IsTerminator() {
			blk.Terminated = true
		}
	}
	return blk, nil
}

func (r *reader) parseValue() (Value, error) {
	switch r.tok.Type {
	case TokTemp:
		id, _ := strconv.Atoi(r.tok.Literal)
		r.advance()
		return VTemp(id), nil
	case TokInt:
		n, err := strconv.ParseInt(r.tok.Literal, 0, 64)
		if err != nil {
			return Value{}, r.errf("bad integer literal %q", r.tok.Literal)
		}
		r.advance()
		return VInt(n), nil
	case TokFloat:
		f, err := strconv.ParseFloat(r.tok.Literal, 64)
		if err != nil {
			return Value{}, r.errf("bad float literal %q", r.tok.Literal)
		}
		r.advance()
		return VFloat(f), nil
	case TokString:
		s := r.tok.Literal
		r.advance()
		return VStr(s), nil
	case TokGlobal:
		name := r.tok.Literal
		r.advance()
		return VGlobal(name), nil
	case TokIdent:
		if r.tok.Literal == "null" {
			r.advance()
			return VNull(), nil
		}
		if r.tok.Literal == "true" || r.tok.Literal == "false" {
			b := r.tok.Literal == "true"
			r.advance()
			return VBool(b), nil
		}
	}
	return Value{}, r.errf("expected operand, got %q", r.tok.Literal)
}

func (r *reader) parseValueList() ([]Value, error) {
	var vals []Value
	if r.tok.Type == TokRParen {
		return vals, nil
	}
	for {
		v, err := r.parseValue()
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
		if r.tok.Type != TokComma {
			break
		}
		r.advance()
	}
	return vals, nil
}

// parseTarget parses `label` or `label(arg, …)`.
func (r *reader) parseTarget() (string, []Value, error) {
	label, err := r.expect(TokIdent, "block label")
	if err != nil {
		return "", nil, err
	}
	var args []Value
	if r.tok.Type == TokLParen {
		r.advance()
		args, err = r.parseValueList()
		if err != nil {
			return "", nil, err
		}
		if _, err := r.expect(TokRParen, ")"); err != nil {
			return "", nil, err
		}
	}
	return label.Literal, args, nil
}

// parseOpcodeToken resolves an opcode mnemonic, optionally followed by an
// inline `.type` suffix that was lexed as part of the same ident token
// (spec.md §4.1: `<opcode>[.<type>] <operands...>`).
func parseOpcodeToken(tok string) (Opcode, Type, bool, error) {
	if op, ok := ParseOpcode(tok); ok {
		return op, Type{}, false, nil
	}
	idx := strings.LastIndexByte(tok, '.')
	if idx < 0 {
		return 0, Type{}, false, errors.Errorf("unknown opcode %q", tok)
	}
	base, suffix := tok[:idx], tok[idx+1:]
	op, ok := ParseOpcode(base)
	if !ok {
		return 0, Type{}, false, errors.Errorf("unknown opcode %q", tok)
	}
	k, ok := ParseKind(suffix)
	if !ok {
		return 0, Type{}, false, errors.Errorf("unknown type suffix %q on opcode %q", suffix, base)
	}
	return op, Type{k}, true, nil
}

func (r *reader) parseInstr() (Instr, error) {
	var result int
	var hasResult bool
	if r.tok.Type == TokTemp {
		id, _ := strconv.Atoi(r.tok.Literal)
		r.advance()
		if r.tok.Type != TokEquals {
			return Instr{}, r.errf("expected '=' after %%%d", id)
		}
		r.advance()
		result, hasResult = id, true
	}

	opTok, err := r.expect(TokIdent, "opcode")
	if err != nil {
		return Instr{}, err
	}
	op, explicitType, hasExplicit, perr := parseOpcodeToken(opTok.Literal)
	if perr != nil {
		return Instr{}, r.errf("%s", perr.Error())
	}

	instr := Instr{Op: op, HasResult: hasResult, Result: result}
	if hasExplicit {
		instr.Type = explicitType
	}

	switch op {
	case OpConstI64:
		if !hasExplicit {
			instr.Type = TI64()
		}
		v, err := r.parseValue()
		if err != nil {
			return Instr{}, err
		}
		if instr.Type.Kind == I1 {
			v.IsBool = true
		}
		instr.Operands = []Value{v}

	case OpConstF64:
		if !hasExplicit {
			instr.Type = TF64()
		}
		v, err := r.parseValue()
		if err != nil {
			return Instr{}, err
		}
		instr.Operands = []Value{v}

	case OpConstStr:
		instr.Type = TStr()
		v, err := r.parseValue()
		if err != nil {
			return Instr{}, err
		}
		instr.Operands = []Value{v}

	case OpNullPtr:
		instr.Type = TPtr()

	case OpAdd, OpSub, OpMul, OpIAddOvf, OpISubOvf, OpIMulOvf,
		OpSDivChk0, OpUDivChk0, OpSRemChk0, OpURemChk0,
		OpAnd, OpOr, OpXor, OpShl, OpShr:
		if !hasExplicit {
			instr.Type = TI64()
		}
		a, err := r.parseValue()
		if err != nil {
			return Instr{}, err
		}
		if _, err := r.expect(TokComma, ","); err != nil {
			return Instr{}, err
		}
		b, err := r.parseValue()
		if err != nil {
			return Instr{}, err
		}
		instr.Operands = []Value{a, b}

	case OpFAdd, OpFSub, OpFMul, OpFDiv:
		if !hasExplicit {
			instr.Type = TF64()
		}
		a, err := r.parseValue()
		if err != nil {
			return Instr{}, err
		}
		if _, err := r.expect(TokComma, ","); err != nil {
			return Instr{}, err
		}
		b, err := r.parseValue()
		if err != nil {
			return Instr{}, err
		}
		instr.Operands = []Value{a, b}

	case OpCastSiNarrowChk, OpSitofp, OpFptosi, OpTrunc1, OpZext1:
		v, err := r.parseValue()
		if err != nil {
			return Instr{}, err
		}
		instr.Operands = []Value{v}
		if !hasExplicit {
			switch op {
			case OpTrunc1:
				instr.Type = TI1()
			case OpZext1:
				instr.Type = TI64()
			case OpSitofp:
				instr.Type = TF64()
			case OpFptosi:
				instr.Type = TI64()
			default:
				return Instr{}, r.errf("%s requires an explicit .type suffix", op)
			}
		}

	case OpICmpEq, OpICmpNe, OpSCmpLt, OpSCmpLe, OpSCmpGt, OpSCmpGe,
		OpUCmpLt, OpUCmpLe, OpUCmpGt, OpUCmpGe,
		OpFCmpEq, OpFCmpNe, OpFCmpLt, OpFCmpLe, OpFCmpGt, OpFCmpGe:
		instr.Type = TI1()
		a, err := r.parseValue()
		if err != nil {
			return Instr{}, err
		}
		if _, err := r.expect(TokComma, ","); err != nil {
			return Instr{}, err
		}
		b, err := r.parseValue()
		if err != nil {
			return Instr{}, err
		}
		instr.Operands = []Value{a, b}

	case OpAlloca:
		instr.Type = TPtr()
		v, err := r.parseValue()
		if err != nil {
			return Instr{}, err
		}
		instr.Operands = []Value{v}

	case OpLoad:
		if !hasExplicit {
			return Instr{}, r.errf("load requires an explicit .type suffix")
		}
		v, err := r.parseValue()
		if err != nil {
			return Instr{}, err
		}
		instr.Operands = []Value{v}

	case OpStore:
		if !hasExplicit {
			return Instr{}, r.errf("store requires an explicit .type suffix")
		}
		ptr, err := r.parseValue()
		if err != nil {
			return Instr{}, err
		}
		if _, err := r.expect(TokComma, ","); err != nil {
			return Instr{}, err
		}
		val, err := r.parseValue()
		if err != nil {
			return Instr{}, err
		}
		instr.Operands = []Value{ptr, val}

	case OpAddrOf:
		instr.Type = TPtr()
		v, err := r.parseValue()
		if err != nil {
			return Instr{}, err
		}
		instr.Operands = []Value{v}

	case OpCall:
		name, err := r.expect(TokGlobal, "@callee")
		if err != nil {
			return Instr{}, err
		}
		instr.Callee = name.Literal
		if _, err := r.expect(TokLParen, "("); err != nil {
			return Instr{}, err
		}
		args, err := r.parseValueList()
		if err != nil {
			return Instr{}, err
		}
		if _, err := r.expect(TokRParen, ")"); err != nil {
			return Instr{}, err
		}
		if _, err := r.expect(TokArrow, "->"); err != nil {
			return Instr{}, err
		}
		t, err := r.parseType()
		if err != nil {
			return Instr{}, err
		}
		instr.Type = t
		instr.Operands = args
		if t.Kind == Void {
			instr.HasResult = false
		} else if !hasResult {
			return Instr{}, r.errf("non-void call must assign a result")
		}

	case OpBr:
		label, args, err := r.parseTarget()
		if err != nil {
			return Instr{}, err
		}
		instr.Succs = []string{label}
		instr.BrArgs = [][]Value{args}

	case OpCBr:
		cond, err := r.parseValue()
		if err != nil {
			return Instr{}, err
		}
		if _, err := r.expect(TokComma, ","); err != nil {
			return Instr{}, err
		}
		thenL, thenA, err := r.parseTarget()
		if err != nil {
			return Instr{}, err
		}
		if _, err := r.expect(TokComma, ","); err != nil {
			return Instr{}, err
		}
		elseL, elseA, err := r.parseTarget()
		if err != nil {
			return Instr{}, err
		}
		instr.Operands = []Value{cond}
		instr.Succs = []string{thenL, elseL}
		instr.BrArgs = [][]Value{thenA, elseA}

	case OpSwitchI32:
		scrut, err := r.parseValue()
		if err != nil {
			return Instr{}, err
		}
		if _, err := r.expect(TokComma, ","); err != nil {
			return Instr{}, err
		}
		defL, defA, err := r.parseTarget()
		if err != nil {
			return Instr{}, err
		}
		instr.Operands = []Value{scrut}
		instr.Succs = []string{defL}
		instr.BrArgs = [][]Value{defA}
		for r.tok.Type == TokComma {
			r.advance()
			cv, err := r.expect(TokInt, "case value")
			if err != nil {
				return Instr{}, err
			}
			n, _ := strconv.ParseInt(cv.Literal, 0, 32)
			if _, err := r.expect(TokComma, ","); err != nil {
				return Instr{}, err
			}
			label, args, err := r.parseTarget()
			if err != nil {
				return Instr{}, err
			}
			instr.SwitchCases = append(instr.SwitchCases, int32(n))
			instr.Succs = append(instr.Succs, label)
			instr.BrArgs = append(instr.BrArgs, args)
		}

	case OpRet:
		if r.atValueStart() {
			v, err := r.parseValue()
			if err != nil {
				return Instr{}, err
			}
			instr.Operands = []Value{v}
		}

	case OpTrap:
		kindTok, err := r.expect(TokIdent, "trap kind")
		if err != nil {
			return Instr{}, err
		}
		k, ok := ParseTrapKind(kindTok.Literal)
		if !ok {
			return Instr{}, r.errf("unknown trap kind %q", kindTok.Literal)
		}
		instr.TrapKind = k
		if r.tok.Type == TokString {
			instr.TrapMsg = r.tok.Literal
			instr.HasTrapMsg = true
			r.advance()
		}

	case OpEhPush:
		label, err := r.expect(TokIdent, "handler label")
		if err != nil {
			return Instr{}, err
		}
		instr.Succs = []string{label.Literal}

	case OpEhPop:
		// no operands

	case OpResumeSame, OpResumeNext:
		tok, err := r.parseValue()
		if err != nil {
			return Instr{}, err
		}
		instr.Operands = []Value{tok}

	case OpResumeLabel:
		tok, err := r.parseValue()
		if err != nil {
			return Instr{}, err
		}
		if _, err := r.expect(TokComma, ","); err != nil {
			return Instr{}, err
		}
		label, err := r.expect(TokIdent, "target label")
		if err != nil {
			return Instr{}, err
		}
		instr.Operands = []Value{tok}
		instr.Succs = []string{label.Literal}

	default:
		return Instr{}, r.errf("unsupported opcode %q", opTok.Literal)
	}

	if r.tok.Type == TokIdent && r.tok.Literal == ".loc" {
		r.advance()
		fileTok, err := r.expect(TokInt, "file id")
		if err != nil {
			return Instr{}, err
		}
		lineTok, err := r.expect(TokInt, "line")
		if err != nil {
			return Instr{}, err
		}
		colTok, err := r.expect(TokInt, "col")
		if err != nil {
			return Instr{}, err
		}
		fileID, _ := strconv.Atoi(fileTok.Literal)
		line, _ := strconv.Atoi(lineTok.Literal)
		col, _ := strconv.Atoi(colTok.Literal)
		instr.Loc = Loc{FileID: fileID, Line: line, Col: col}
	}

	return instr, nil
}

func (r *reader) atValueStart() bool {
	switch r.tok.Type {
	case TokTemp, TokInt, TokFloat, TokString, TokGlobal:
		return true
	case TokIdent:
		return r.tok.Literal == "null" || r.tok.Literal == "true" || r.tok.Literal == "false"
	}
	return false
}
