package passes

import (
	"fmt"
	"strings"

	"github.com/viperlang/viper/pkg/il"
)

// GVN (global value numbering) merges syntactically congruent, side-effect
// free computations within a block into a single definition: the second
// `add %1, %2` with identical operands and type reuses the first
// instruction's result instead of recomputing it. Restricted to a single
// block (no dominance-based availability analysis) to stay correct without
// a full available-expressions lattice — still eliminates the common case
// of repeated subexpressions the BASIC frontend's expression lowering can
// produce.
func GVN(m *il.Module) (bool, error) {
	for _, fn := range m.Funcs {
		gvnFunc(fn)
	}
	return true, nil
}

func gvnFunc(fn *il.Function) {
	subst := make(map[int]il.Value)
	for _, b := range fn.Blocks {
		seen := make(map[string]int) // value number key -> defining temp
		for i := range b.Instrs {
			instr := &b.Instrs[i]
			for j, op := range instr.Operands {
				instr.Operands[j] = resolveConst(op, subst)
			}
			if hasSideEffects(instr.Op) || !instr.HasResult {
				continue
			}
			key := valueNumberKey(*instr)
			if key == "" {
				continue
			}
			if first, ok := seen[key]; ok {
				subst[instr.Result] = il.VTemp(first)
			} else {
				seen[key] = instr.Result
			}
		}
	}
	if len(subst) == 0 {
		return
	}
	removeInstrs := make(map[int]bool)
	for t := range subst {
		removeInstrs[t] = true
	}
	for _, b := range fn.Blocks {
		kept := b.Instrs[:0:0]
		for _, instr := range b.Instrs {
			for j, op := range instr.Operands {
				instr.Operands[j] = resolveConst(op, subst)
			}
			for _, args := range instr.BrArgs {
				for j, op := range args {
					args[j] = resolveConst(op, subst)
				}
			}
			if instr.HasResult && removeInstrs[instr.Result] {
				continue
			}
			kept = append(kept, instr)
		}
		b.Instrs = kept
	}
}

// valueNumberKey builds a string key identifying an instruction's
// computation (opcode, type, operands). Call is excluded via
// hasSideEffects already; Alloca and Load get no key ("") because two of
// them with equal operands need not yield the same value.
func valueNumberKey(instr il.Instr) string {
	switch instr.Op {
	case il.OpAlloca, il.OpLoad:
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d|%s|", instr.Op, instr.Type)
	for _, op := range instr.Operands {
		fmt.Fprintf(&sb, "%d:%d:%v:%v:%v:%q:%q|", op.Kind, op.Temp, op.Int, op.IsBool, op.Float, op.Str, op.Global)
	}
	return sb.String()
}
