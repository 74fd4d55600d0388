package passes

import "github.com/viperlang/viper/pkg/il"

// InstCombine applies a handful of algebraic peephole identities that
// constfold cannot (one operand constant, one not): x+0, 0+x, x-0, x*1,
// 1*x, x*0, 0*x, x&0/0&x, x|0/0|x, x^0/0^x. Each match replaces every use
// of the instruction's result with the non-constant operand (or the zero
// constant for the annihilating cases) via the same substitution-then-
// sweep shape mem2reg/constfold/gvn use.
func InstCombine(m *il.Module) (bool, error) {
	for _, fn := range m.Funcs {
		instCombineFunc(fn)
	}
	return true, nil
}

func instCombineFunc(fn *il.Function) {
	subst := make(map[int]il.Value)
	for _, b := range fn.Blocks {
		for i := range b.Instrs {
			instr := &b.Instrs[i]
			for j, op := range instr.Operands {
				instr.Operands[j] = resolveConst(op, subst)
			}
			if !instr.HasResult || len(instr.Operands) != 2 {
				continue
			}
			if v, ok := simplifyPair(instr.Op, instr.Operands[0], instr.Operands[1]); ok {
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

func isIntConst(v il.Value, n int64) bool {
	return v.Kind == il.ValIntLit && !v.IsBool && v.Int == n
}

// simplifyPair returns the simplified replacement value for op(a, b) when
// one side is an identity or annihilating constant.
func simplifyPair(op il.Opcode, a, b il.Value) (il.Value, bool) {
	switch op {
	case il.OpAdd:
		if isIntConst(a, 0) {
			return b, true
		}
		if isIntConst(b, 0) {
			return a, true
		}
	case il.OpSub:
		if isIntConst(b, 0) {
			return a, true
		}
	case il.OpMul:
		if isIntConst(a, 1) {
			return b, true
		}
		if isIntConst(b, 1) {
			return a, true
		}
		if isIntConst(a, 0) || isIntConst(b, 0) {
			return il.VInt(0), true
		}
	case il.OpOr, il.OpXor:
		if isIntConst(a, 0) {
			return b, true
		}
		if isIntConst(b, 0) {
			return a, true
		}
	case il.OpAnd:
		if isIntConst(a, 0) || isIntConst(b, 0) {
			return il.VInt(0), true
		}
	}
	return il.Value{}, false
}
