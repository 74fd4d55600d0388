package passes

import "github.com/viperlang/viper/pkg/il"

// ConstFold evaluates instructions whose operands are all compile-time
// constants and replaces every use of the result with the folded literal.
// It only folds opcodes with no trapping behavior (wrapping arithmetic,
// bitwise/shift, float arithmetic, comparisons, conversions); the checked
// family (IAddOvf, SDivChk0, …) is left for the VM to evaluate since
// folding would have to reproduce trap semantics at compile time, which
// spec.md does not ask O1/O2 to do.
func ConstFold(m *il.Module) (bool, error) {
	for _, fn := range m.Funcs {
		constFoldFunc(fn)
	}
	return true, nil
}

func constFoldFunc(fn *il.Function) {
	subst := make(map[int]il.Value)
	for _, b := range fn.Blocks {
		for i := range b.Instrs {
			instr := &b.Instrs[i]
			for j, op := range instr.Operands {
				instr.Operands[j] = resolveConst(op, subst)
			}
			if !instr.HasResult {
				continue
			}
			if v, ok := foldInstr(*instr); ok {
				subst[instr.Result] = v
			}
		}
	}
	if len(subst) == 0 {
		return
	}
	for _, b := range fn.Blocks {
		for i := range b.Instrs {
			instr := &b.Instrs[i]
			for j, op := range instr.Operands {
				instr.Operands[j] = resolveConst(op, subst)
			}
			for _, args := range instr.BrArgs {
				for j, op := range args {
					args[j] = resolveConst(op, subst)
				}
			}
		}
	}
}

func resolveConst(v il.Value, subst map[int]il.Value) il.Value {
	for v.Kind == il.ValTemp {
		r, ok := subst[v.Temp]
		if !ok {
			break
		}
		v = r
	}
	return v
}

func foldInstr(instr il.Instr) (il.Value, bool) {
	if len(instr.Operands) == 2 && instr.Operands[0].Kind == il.ValIntLit && instr.Operands[1].Kind == il.ValIntLit {
		a, b := instr.Operands[0].Int, instr.Operands[1].Int
		switch instr.Op {
		case il.OpAdd:
			return il.VInt(a + b), true
		case il.OpSub:
			return il.VInt(a - b), true
		case il.OpMul:
			return il.VInt(a * b), true
		case il.OpAnd:
			return il.VInt(a & b), true
		case il.OpOr:
			return il.VInt(a | b), true
		case il.OpXor:
			return il.VInt(a ^ b), true
		case il.OpShl:
			return il.VInt(a << (uint(b) & 63)), true
		case il.OpShr:
			return il.VInt(a >> (uint(b) & 63)), true
		case il.OpICmpEq:
			return il.VBool(a == b), true
		case il.OpICmpNe:
			return il.VBool(a != b), true
		case il.OpSCmpLt:
			return il.VBool(a < b), true
		case il.OpSCmpLe:
			return il.VBool(a <= b), true
		case il.OpSCmpGt:
			return il.VBool(a > b), true
		case il.OpSCmpGe:
			return il.VBool(a >= b), true
		case il.OpUCmpLt:
			return il.VBool(uint64(a) < uint64(b)), true
		case il.OpUCmpLe:
			return il.VBool(uint64(a) <= uint64(b)), true
		case il.OpUCmpGt:
			return il.VBool(uint64(a) > uint64(b)), true
		case il.OpUCmpGe:
			return il.VBool(uint64(a) >= uint64(b)), true
		}
	}
	if len(instr.Operands) == 2 && instr.Operands[0].Kind == il.ValFloatLit && instr.Operands[1].Kind == il.ValFloatLit {
		a, b := instr.Operands[0].Float, instr.Operands[1].Float
		switch instr.Op {
		case il.OpFAdd:
			return il.VFloat(a + b), true
		case il.OpFSub:
			return il.VFloat(a - b), true
		case il.OpFMul:
			return il.VFloat(a * b), true
		case il.OpFDiv:
			return il.VFloat(a / b), true
		case il.OpFCmpEq:
			return il.VBool(a == b), true
		case il.OpFCmpNe:
			return il.VBool(a != b), true
		case il.OpFCmpLt:
			return il.VBool(a < b), true
		case il.OpFCmpLe:
			return il.VBool(a <= b), true
		case il.OpFCmpGt:
			return il.VBool(a > b), true
		case il.OpFCmpGe:
			return il.VBool(a >= b), true
		}
	}
	if len(instr.Operands) == 1 {
		op := instr.Operands[0]
		switch instr.Op {
		case il.OpSitofp:
			if op.Kind == il.ValIntLit {
				return il.VFloat(float64(op.Int)), true
			}
		case il.OpFptosi:
			if op.Kind == il.ValFloatLit {
				return il.VInt(int64(op.Float)), true
			}
		case il.OpTrunc1:
			if op.Kind == il.ValIntLit {
				return il.VBool(op.Int&1 != 0), true
			}
		case il.OpZext1:
			if op.Kind == il.ValIntLit {
				var n int64
				if op.Int != 0 {
					n = 1
				}
				return il.VInt(n), true
			}
		}
	}
	return il.Value{}, false
}
