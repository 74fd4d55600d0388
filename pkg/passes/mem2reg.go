// Package passes implements the O1/O2 preset transforms (spec.md §4.4):
// mem2reg, dce, constfold, simplifycfg, licm, gvn, instcombine. Every pass
// has the passmgr.Pass signature and operates on an il.Module in place.
package passes

import (
	"github.com/viperlang/viper/pkg/il"
	"github.com/viperlang/viper/pkg/passmgr"
)

// Register installs every pass in this package under the names spec.md
// §4.4 uses for the O1/O2 presets.
func Register(mgr *passmgr.Manager) {
	mgr.Register("mem2reg", Mem2Reg)
	mgr.Register("dce", DCE)
	mgr.Register("constfold", ConstFold)
	mgr.Register("simplifycfg", SimplifyCFG)
	mgr.Register("licm", LICM)
	mgr.Register("gvn", GVN)
	mgr.Register("instcombine", InstCombine)
}

// Mem2Reg promotes non-address-taken alloca/store/load triples to plain
// SSA value flow, removing the alloca, its stores, and its loads in favor
// of direct use of the stored value (spec.md §8's "promotable alloca"
// scenario). It is deliberately conservative: an alloca is only promoted
// when every load of it is dominated, within the same block, by a prior
// store (or the block is the entry block and the alloca's first use is a
// store) — cross-block value flow through a promoted local is left to a
// future phi-insertion pass; this pass degrades to a safe no-op instead of
// creating phi nodes.
//
// Grounded on the teacher's pkg/simpllocals (SimplLocals: promote a local
// to a temp iff its address is never taken and it is scalar), retargeted
// from Csharpminor variables to IL alloca/load/store triples.
func Mem2Reg(m *il.Module) (bool, error) {
	for _, fn := range m.Funcs {
		mem2regFunc(fn)
	}
	return true, nil
}

func mem2regFunc(fn *il.Function) {
	addressTaken := make(map[int]bool)
	allocaType := make(map[int]il.Type)
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if instr.Op == il.OpAlloca && instr.HasResult {
				allocaType[instr.Result] = instr.Type
			}
			if instr.Op == il.OpAddrOf {
				for _, op := range instr.Operands {
					if op.Kind == il.ValTemp {
						addressTaken[op.Temp] = true
					}
				}
			}
			// Any use of the alloca pointer other than as a Load/Store
			// pointer operand (e.g. passed to a Call, or as a branch
			// argument) also counts as "address taken" for this
			// conservative pass: it means the pointer escapes the
			// straight-line store/load pattern this pass rewrites.
			for i, op := range instr.Operands {
				if op.Kind != il.ValTemp {
					continue
				}
				if _, isAlloca := allocaType[op.Temp]; !isAlloca {
					continue
				}
				isPtrOperand := (instr.Op == il.OpLoad && i == 0) || (instr.Op == il.OpStore && i == 0)
				if !isPtrOperand {
					addressTaken[op.Temp] = true
				}
			}
			for _, args := range instr.BrArgs {
				for _, op := range args {
					if op.Kind == il.ValTemp {
						if _, isAlloca := allocaType[op.Temp]; isAlloca {
							addressTaken[op.Temp] = true
						}
					}
				}
			}
		}
	}

	subst := make(map[int]il.Value) // load-result temp -> replacement value
	removeAlloca := make(map[int]bool)
	promotedLoad := make(map[int]bool)
	promotedStore := make(map[*il.Instr]bool)
	keep := make(map[int]bool) // allocas with at least one load left unpromoted

	for _, b := range fn.Blocks {
		current := make(map[int]il.Value)
		for idx := range b.Instrs {
			instr := &b.Instrs[idx]
			switch instr.Op {
			case il.OpStore:
				ptr := instr.Operands[0]
				if ptr.Kind == il.ValTemp && !addressTaken[ptr.Temp] {
					if _, isAlloca := allocaType[ptr.Temp]; isAlloca {
						current[ptr.Temp] = instr.Operands[1]
						promotedStore[instr] = true
						removeAlloca[ptr.Temp] = true
					}
				}
			case il.OpLoad:
				ptr := instr.Operands[0]
				if ptr.Kind == il.ValTemp && !addressTaken[ptr.Temp] {
					if _, isAlloca := allocaType[ptr.Temp]; isAlloca {
						if val, ok := current[ptr.Temp]; ok && instr.HasResult {
							subst[instr.Result] = val
							promotedLoad[instr.Result] = true
							removeAlloca[ptr.Temp] = true
						} else {
							keep[ptr.Temp] = true
						}
					}
				}
			}
		}
	}

	if len(subst) == 0 && len(removeAlloca) == 0 {
		return
	}

	// Rewrite every operand/branch-arg reference to a promoted load with
	// its substituted value, resolving chains (a load of a load).
	resolve := func(v il.Value) il.Value {
		for v.Kind == il.ValTemp {
			r, ok := subst[v.Temp]
			if !ok {
				break
			}
			v = r
		}
		return v
	}
	for _, b := range fn.Blocks {
		for i := range b.Instrs {
			instr := &b.Instrs[i]
			for j, op := range instr.Operands {
				instr.Operands[j] = resolve(op)
			}
			for _, args := range instr.BrArgs {
				for j, op := range args {
					args[j] = resolve(op)
				}
			}
		}
	}

	// Drop alloca/store/load instructions that were fully promoted. An
	// alloca is only dropped if none of its loads survived unpromoted
	// (address-taken allocas were already excluded above).
	keepBlocks := make([][]il.Instr, len(fn.Blocks))
	for bi, b := range fn.Blocks {
		kept := b.Instrs[:0:0]
		for _, instr := range b.Instrs {
			if instr.Op == il.OpAlloca && instr.HasResult && removeAlloca[instr.Result] && !addressTaken[instr.Result] && !keep[instr.Result] {
				continue
			}
			if instr.Op == il.OpStore {
				ptr := instr.Operands[0]
				if ptr.Kind == il.ValTemp && removeAlloca[ptr.Temp] && !keep[ptr.Temp] {
					continue
				}
			}
			if instr.Op == il.OpLoad && instr.HasResult && promotedLoad[instr.Result] {
				continue
			}
			kept = append(kept, instr)
		}
		keepBlocks[bi] = kept
	}
	for bi, b := range fn.Blocks {
		b.Instrs = keepBlocks[bi]
	}
}
