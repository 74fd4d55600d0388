package passes

import "github.com/viperlang/viper/pkg/il"

// hasSideEffects reports whether an instruction must be kept regardless of
// whether its result (if any) is used: terminators, stores, calls (which
// may have externally observable effects through the runtime bridge), and
// EH stack operations.
func hasSideEffects(op il.Opcode) bool {
	if op.IsTerminator() {
		return true
	}
	switch op {
	case il.OpStore, il.OpCall, il.OpEhPush, il.OpEhPop:
		return true
	}
	return false
}

// DCE removes instructions whose result is never used and which have no
// side effects, iterating to a fixed point so a chain of now-dead
// definitions is fully eliminated in one pass invocation.
//
// Grounded on the teacher's pkg/regalloc liveness machinery (RegSet,
// interference.go's live-set bookkeeping): this pass repurposes the same
// "which temps are live" question DCE's worklist needs, without the
// register-allocation half of that package (spec.md's VM indexes registers
// by temp id directly; no allocator is needed).
func DCE(m *il.Module) (bool, error) {
	for _, fn := range m.Funcs {
		for dceFunc(fn) {
		}
	}
	return true, nil
}

// dceFunc removes one round of dead instructions and reports whether
// anything changed.
func dceFunc(fn *il.Function) bool {
	used := make(map[int]bool)
	mark := func(v il.Value) {
		if v.Kind == il.ValTemp {
			used[v.Temp] = true
		}
	}
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			for _, op := range instr.Operands {
				mark(op)
			}
			for _, args := range instr.BrArgs {
				for _, op := range args {
					mark(op)
				}
			}
		}
	}

	changed := false
	for _, b := range fn.Blocks {
		kept := b.Instrs[:0:0]
		for _, instr := range b.Instrs {
			if instr.HasResult && !used[instr.Result] && !hasSideEffects(instr.Op) {
				changed = true
				continue
			}
			kept = append(kept, instr)
		}
		b.Instrs = kept
	}
	return changed
}
