package passes

import (
	"github.com/viperlang/viper/pkg/il"
	"github.com/viperlang/viper/pkg/ilanalysis"
)

// SimplifyCFG removes unreachable blocks and threads unconditional-branch
// chains: a block containing only `br target(args)` with no parameters of
// its own is elided by retargeting every predecessor straight to target.
func SimplifyCFG(m *il.Module) (bool, error) {
	for _, fn := range m.Funcs {
		removeUnreachable(fn)
		threadBranches(fn)
		removeUnreachable(fn)
	}
	return true, nil
}

func removeUnreachable(fn *il.Function) {
	cfg := ilanalysis.BuildCFG(fn)
	reach := cfg.Reachable()
	kept := fn.Blocks[:0:0]
	for _, b := range fn.Blocks {
		if reach[b.Label] {
			kept = append(kept, b)
		}
	}
	fn.Blocks = kept
}

// trampolineTarget reports whether b is an unconditional-branch trampoline
// (no params, single Br instruction) and returns its target/args.
func trampolineTarget(b *il.BasicBlock) (string, []il.Value, bool) {
	if len(b.Params) != 0 || len(b.Instrs) != 1 {
		return "", nil, false
	}
	instr := b.Instrs[0]
	if instr.Op != il.OpBr {
		return "", nil, false
	}
	return instr.Succs[0], instr.BrArgs[0], true
}

func threadBranches(fn *il.Function) {
	entry := fn.Entry()
	trampolines := make(map[string]bool)
	for _, b := range fn.Blocks {
		if b == entry {
			continue // never elide the entry block: it carries the function's formal parameters
		}
		if _, _, ok := trampolineTarget(b); ok {
			trampolines[b.Label] = true
		}
	}
	if len(trampolines) == 0 {
		return
	}

	resolve := func(label string, args []il.Value) (string, []il.Value) {
		seen := make(map[string]bool)
		for trampolines[label] && !seen[label] {
			seen[label] = true
			tb := fn.Block(label)
			if tb == nil {
				break
			}
			t, a, ok := trampolineTarget(tb)
			if !ok {
				break
			}
			label, args = t, a
		}
		return label, args
	}

	for _, b := range fn.Blocks {
		if trampolines[b.Label] {
			continue
		}
		term := b.Terminator()
		if term == nil {
			continue
		}
		for i, s := range term.Succs {
			if trampolines[s] {
				newLabel, newArgs := resolve(s, term.BrArgs[i])
				term.Succs[i] = newLabel
				term.BrArgs[i] = newArgs
			}
		}
	}
}
