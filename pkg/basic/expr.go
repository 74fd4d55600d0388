package basic

import "github.com/viperlang/viper/pkg/il"

// emitExpr lowers an expression to an IL value along with its BASIC-level
// type: either a NumericType (isStr false) or a string (isStr true, typ is
// meaningless).
func (lw *Lowerer) emitExpr(e Expr) (il.Value, NumericType, bool) {
	switch ex := e.(type) {
	case NumberLit:
		if ex.IsFloat {
			return il.VFloat(ex.Float), Double, false
		}
		return il.VInt(ex.Int), intLitType(ex.Int), false
	case StringLit:
		return il.VStr(ex.Value), Long, true
	case VarRef:
		slot := lw.varFor(ex.Name)
		if slot.isStr {
			return lw.b.EmitValue(il.OpLoad, il.TStr(), slot.ptr), Long, true
		}
		return lw.b.EmitValue(il.OpLoad, slot.typ.asILType(), slot.ptr), slot.typ, false
	case UnaryExpr:
		return lw.emitUnary(ex)
	case BinaryExpr:
		return lw.emitBinary(ex)
	case CallExpr:
		return lw.emitCallExpr(ex)
	default:
		return il.VInt(0), Long, false
	}
}

func intLitType(n int64) NumericType {
	if n >= -32768 && n <= 32767 {
		return Integer
	}
	return Long
}

// emitExprAs lowers e and coerces its result to the requested BASIC type.
func (lw *Lowerer) emitExprAs(e Expr, typ NumericType, isStr bool) il.Value {
	v, vtyp, vIsStr := lw.emitExpr(e)
	if isStr {
		if !vIsStr {
			return v // caller declared a string slot; BASIC's parser already restricts this path
		}
		return v
	}
	if vIsStr {
		return v // assigning string expr into a numeric slot is a source error; pass through untyped
	}
	return lw.convertNumeric(v, vtyp, typ)
}

// emitBoolExpr lowers e as an i1 condition: non-comparison expressions are
// truthy on "not equal to zero" per BASIC convention.
func (lw *Lowerer) emitBoolExpr(e Expr) il.Value {
	if bin, ok := e.(BinaryExpr); ok {
		if v, ok := lw.emitComparisonValue(bin); ok {
			return v
		}
	}
	v, typ, isStr := lw.emitExpr(e)
	if isStr {
		return lw.b.EmitValue(il.OpICmpNe, il.TI1(), v, il.VInt(0))
	}
	zero := lw.literalOf(typ, 0)
	if typ.IsFloat() {
		return lw.b.EmitValue(il.OpFCmpNe, il.TI1(), v, zero)
	}
	return lw.b.EmitValue(il.OpICmpNe, il.TI1(), v, zero)
}

func (lw *Lowerer) convertNumeric(v il.Value, from, to NumericType) il.Value {
	if from == to {
		return v
	}
	switch {
	case from.IsFloat() && to.IsFloat():
		return v // both f32/f64 widen to f64 representation at the VM level; no-op here
	case !from.IsFloat() && to.IsFloat():
		return lw.b.EmitValue(il.OpSitofp, to.asILType(), v)
	case from.IsFloat() && !to.IsFloat():
		return lw.b.EmitValue(il.OpFptosi, to.asILType(), v)
	case to.ILKind() == il.I16 && from.ILKind() != il.I16:
		return lw.b.EmitValue(il.OpCastSiNarrowChk, to.asILType(), v)
	default:
		// Integer widening: the value always fits the wider type, so the
		// checked cast passes it through unchanged.
		return lw.b.EmitValue(il.OpCastSiNarrowChk, to.asILType(), v)
	}
}

func (lw *Lowerer) narrowInt(v il.Value, to NumericType) il.Value {
	return lw.convertNumeric(v, Long, to)
}

func (lw *Lowerer) toF64(v il.Value, from NumericType) il.Value {
	return lw.convertNumeric(v, from, Double)
}

func (lw *Lowerer) toI64(v il.Value, from NumericType) il.Value {
	if from.IsFloat() {
		return lw.b.EmitValue(il.OpFptosi, il.TI64(), v)
	}
	if from.ILKind() == il.I64 {
		return v
	}
	return lw.b.EmitValue(il.OpCastSiNarrowChk, il.TI64(), v)
}

func (lw *Lowerer) emitUnary(ex UnaryExpr) (il.Value, NumericType, bool) {
	if ex.Op == "NOT" {
		if bin, ok := ex.Value.(BinaryExpr); ok {
			if cond, ok := lw.emitComparisonValue(bin); ok {
				return lw.b.EmitValue(il.OpICmpEq, il.TI1(), cond, il.VBool(false)), Integer, false
			}
		}
		v, typ, isStr := lw.emitExpr(ex.Value)
		var cond il.Value
		switch {
		case isStr:
			cond = lw.b.EmitValue(il.OpICmpNe, il.TI1(), v, il.VInt(0))
		case typ.IsFloat():
			cond = lw.b.EmitValue(il.OpFCmpNe, il.TI1(), v, lw.literalOf(typ, 0))
		default:
			cond = lw.b.EmitValue(il.OpICmpNe, il.TI1(), v, lw.literalOf(typ, 0))
		}
		return lw.b.EmitValue(il.OpICmpEq, il.TI1(), cond, il.VBool(false)), Integer, false
	}

	v, typ, isStr := lw.emitExpr(ex.Value)
	if isStr {
		return v, typ, true
	}
	if ex.Op == "-" {
		zero := lw.literalOf(typ, 0)
		if typ.IsFloat() {
			return lw.b.EmitValue(il.OpFSub, typ.asILType(), zero, v), typ, false
		}
		return lw.b.EmitValue(il.OpSub, typ.asILType(), zero, v), typ, false
	}
	return v, typ, false
}

func (lw *Lowerer) emitBinary(ex BinaryExpr) (il.Value, NumericType, bool) {
	if v, ok := lw.emitComparisonValue(ex); ok {
		return v, Integer, false
	}
	switch ex.Op {
	case "AND", "OR":
		l := lw.emitBoolExpr(ex.Left)
		r := lw.emitBoolExpr(ex.Right)
		op := il.OpAnd
		if ex.Op == "OR" {
			op = il.OpOr
		}
		return lw.b.EmitValue(op, il.TI1(), l, r), Integer, false
	case "&":
		// Concatenation expects both sides already string-typed; numeric
		// operands need an explicit STR$() conversion the parser does not
		// yet expose as a builtin, so they pass through unconverted.
		l, _, _ := lw.emitExpr(ex.Left)
		r, _, _ := lw.emitExpr(ex.Right)
		return lw.b.EmitCall("rt_concat", il.TStr(), l, r), Long, true
	}

	lv, lt, lStr := lw.emitExpr(ex.Left)
	rv, rt, rStr := lw.emitExpr(ex.Right)
	if lStr || rStr {
		return lv, lt, true
	}
	result := resultType(ex.Op, lt, rt)
	lv = lw.convertNumeric(lv, lt, result)
	rv = lw.convertNumeric(rv, rt, result)

	switch ex.Op {
	case "+":
		if result.IsFloat() {
			return lw.b.EmitValue(il.OpFAdd, result.asILType(), lv, rv), result, false
		}
		return lw.b.EmitValue(il.OpIAddOvf, result.asILType(), lv, rv), result, false
	case "-":
		if result.IsFloat() {
			return lw.b.EmitValue(il.OpFSub, result.asILType(), lv, rv), result, false
		}
		return lw.b.EmitValue(il.OpISubOvf, result.asILType(), lv, rv), result, false
	case "*":
		if result.IsFloat() {
			return lw.b.EmitValue(il.OpFMul, result.asILType(), lv, rv), result, false
		}
		return lw.b.EmitValue(il.OpIMulOvf, result.asILType(), lv, rv), result, false
	case "/":
		if result.IsFloat() {
			return lw.b.EmitValue(il.OpFDiv, result.asILType(), lv, rv), result, false
		}
		lf := lw.convertNumeric(lv, result, Double)
		rf := lw.convertNumeric(rv, result, Double)
		return lw.b.EmitValue(il.OpFDiv, il.TF64(), lf, rf), Double, false
	case "\\":
		return lw.b.EmitValue(il.OpSDivChk0, result.asILType(), lv, rv), result, false
	case "MOD":
		return lw.b.EmitValue(il.OpSRemChk0, result.asILType(), lv, rv), result, false
	case "^":
		lf := lw.convertNumeric(lv, result, Double)
		rf := lw.convertNumeric(rv, result, Double)
		p := lw.b.EmitCall("rt_pow_f64_chkdom", il.TF64(), lf, rf)
		if result.IsFloat() {
			return lw.convertNumeric(p, Double, result), result, false
		}
		return lw.b.EmitValue(il.OpFptosi, result.asILType(), p), result, false
	default:
		return lv, result, false
	}
}

// emitComparisonValue lowers a comparison expression directly to an i1
// value, returning ok=false if ex is not a comparison operator (the
// caller falls back to truthiness testing for non-comparisons).
func (lw *Lowerer) emitComparisonValue(ex BinaryExpr) (il.Value, bool) {
	var intOp, floatOp il.Opcode
	switch ex.Op {
	case "=":
		intOp, floatOp = il.OpICmpEq, il.OpFCmpEq
	case "<>":
		intOp, floatOp = il.OpICmpNe, il.OpFCmpNe
	case "<":
		intOp, floatOp = il.OpSCmpLt, il.OpFCmpLt
	case "<=":
		intOp, floatOp = il.OpSCmpLe, il.OpFCmpLe
	case ">":
		intOp, floatOp = il.OpSCmpGt, il.OpFCmpGt
	case ">=":
		intOp, floatOp = il.OpSCmpGe, il.OpFCmpGe
	default:
		return il.Value{}, false
	}
	lv, lt, lStr := lw.emitExpr(ex.Left)
	rv, rt, rStr := lw.emitExpr(ex.Right)
	if lStr || rStr {
		if ex.Op == "=" {
			return lw.b.EmitCall("rt_str_eq", il.TI1(), lv, rv), true
		}
		return lw.b.EmitValue(il.OpICmpNe, il.TI1(), lv, rv), true
	}
	result := resultType("+", lt, rt)
	lv = lw.convertNumeric(lv, lt, result)
	rv = lw.convertNumeric(rv, rt, result)
	if result.IsFloat() {
		return lw.b.EmitValue(floatOp, il.TI1(), lv, rv), true
	}
	return lw.b.EmitValue(intOp, il.TI1(), lv, rv), true
}

func (lw *Lowerer) emitCallExpr(ex CallExpr) (il.Value, NumericType, bool) {
	args := make([]il.Value, 0, len(ex.Args))
	for _, a := range ex.Args {
		v, _, _ := lw.emitExpr(a)
		args = append(args, v)
	}
	isStr := hasStringSigil(ex.Name)
	ret := il.Type{Kind: il.I32}
	if isStr {
		ret = il.TStr()
	}
	return lw.b.EmitCall(mangleProcName(ex.Name), ret, args...), Long, isStr
}
