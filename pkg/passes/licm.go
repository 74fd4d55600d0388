package passes

import (
	"github.com/viperlang/viper/pkg/il"
	"github.com/viperlang/viper/pkg/ilanalysis"
)

// LICM hoists loop-invariant, side-effect-free instructions out of a loop
// body into a single preheader predecessor, when the loop header has
// exactly one predecessor outside the loop (the common structured-loop
// shape the BASIC lowering contract emits for WHILE/FOR; spec.md §4.7
// names while_head_k/for_head_k block naming). Loops without such a unique
// outside predecessor are left untouched — LICM is advisory (spec.md
// §4.4/§9) and this pass only ever removes redundant recomputation, never
// changes observable behavior.
func LICM(m *il.Module) (bool, error) {
	for _, fn := range m.Funcs {
		licmFunc(fn)
	}
	return true, nil
}

func licmFunc(fn *il.Function) {
	cfg := ilanalysis.BuildCFG(fn)
	dom := ilanalysis.BuildDomTree(cfg)
	info := ilanalysis.BuildLoopInfo(cfg, dom)

	for _, loop := range info.ByHeader {
		preheader := uniquePreheader(cfg, loop)
		if preheader == "" {
			continue
		}
		hoistLoop(fn, cfg, loop, preheader)
	}
}

// uniquePreheader returns the single predecessor of loop.Header that lies
// outside the loop body, or "" if there isn't exactly one.
func uniquePreheader(cfg *ilanalysis.CFGContext, loop *ilanalysis.Loop) string {
	var outside string
	count := 0
	for _, p := range cfg.Predecessors(loop.Header) {
		if !loop.Blocks[p] {
			outside = p
			count++
		}
	}
	if count != 1 {
		return ""
	}
	return outside
}

func hoistLoop(fn *il.Function, cfg *ilanalysis.CFGContext, loop *ilanalysis.Loop, preheaderLabel string) {
	preheader := fn.Block(preheaderLabel)
	if preheader == nil || len(preheader.Instrs) == 0 {
		return
	}
	term := preheader.Instrs[len(preheader.Instrs)-1]
	if term.Op != il.OpBr {
		return // only a plain fall-through preheader is safe to insert before
	}

	invariant := make(map[int]bool)
	for _, b := range fn.Blocks {
		if !loop.Blocks[b.Label] {
			for _, p := range b.Params {
				invariant[p.Temp] = true // defined outside the loop
			}
			for _, instr := range b.Instrs {
				if instr.HasResult {
					invariant[instr.Result] = true
				}
			}
		}
	}

	isInvariantOperand := func(v il.Value) bool {
		return v.Kind != il.ValTemp || invariant[v.Temp]
	}

	for _, b := range fn.Blocks {
		if !loop.Blocks[b.Label] {
			continue
		}
		kept := b.Instrs[:0:0]
		for _, instr := range b.Instrs {
			switch instr.Op {
			case il.OpLoad, il.OpAlloca, il.OpIAddOvf, il.OpISubOvf, il.OpIMulOvf,
				il.OpSDivChk0, il.OpUDivChk0, il.OpSRemChk0, il.OpURemChk0, il.OpCastSiNarrowChk:
				// Memory reads, fresh allocations and trapping ops stay put.
				kept = append(kept, instr)
				continue
			}
			if !hasSideEffects(instr.Op) && !instr.Op.IsTerminator() && allInvariant(instr, isInvariantOperand) {
				preheader.Instrs = append(preheader.Instrs[:len(preheader.Instrs)-1], instr, term)
				if instr.HasResult {
					invariant[instr.Result] = true
				}
				continue
			}
			kept = append(kept, instr)
		}
		b.Instrs = kept
	}
}

func allInvariant(instr il.Instr, isInvariant func(il.Value) bool) bool {
	for _, op := range instr.Operands {
		if !isInvariant(op) {
			return false
		}
	}
	return true
}
