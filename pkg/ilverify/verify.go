// Package ilverify checks the structural, type, and control-flow
// invariants a Module must satisfy before it is handed to the pass manager
// or the VM (spec.md §4.2). Verification is a single traversal per
// function; every failure is reported to a diag.Sink rather than aborting
// at the first one, so callers see every problem in one pass.
//
// Grounded on the original system's src/il/verify/VerifyCtx.hpp and
// src/il/verify/DiagFormat.hpp (the teacher has no verifier of its own —
// CompCert's backend trusts earlier passes — so this component follows
// original_source/ directly, per DESIGN.md).
package ilverify

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/viperlang/viper/pkg/diag"
	"github.com/viperlang/viper/pkg/il"
	"github.com/viperlang/viper/pkg/ilanalysis"
)

// ErrVerifyFailed is returned by Module when the sink recorded at least one
// Error-severity diagnostic.
var ErrVerifyFailed = errors.New("ilverify: module failed verification")

// Module verifies every function of m, reporting diagnostics to sink.
// It returns ErrVerifyFailed if any Error-severity diagnostic was reported;
// Warning-severity diagnostics (e.g. unreachable blocks) never fail
// verification on their own (spec.md §4.2 rule 4).
func Module(m *il.Module, sink *diag.Sink) error {
	for _, fn := range m.Funcs {
		verifyFunc(m, fn, sink)
	}
	if sink.HasErrors() {
		return ErrVerifyFailed
	}
	return nil
}

func verifyFunc(m *il.Module, fn *il.Function, sink *diag.Sink) {
	if len(fn.Blocks) == 0 {
		sink.Errorf(fn.Name, "", "", "function has no blocks")
		return
	}

	checkUniqueLabels(fn, sink)
	checkTerminated(fn, sink)

	cfg := ilanalysis.BuildCFG(fn)
	checkSuccessorsResolve(fn, cfg, sink)

	dom := ilanalysis.BuildDomTree(cfg)
	checkReachability(fn, cfg, dom, sink)
	checkSSA(fn, cfg, dom, sink)
	checkTypes(m, fn, sink)
	checkBranchArgs(fn, sink)
}

// checkUniqueLabels implements spec.md §4.2 rule 1 (first half): every
// block has a unique label.
func checkUniqueLabels(fn *il.Function, sink *diag.Sink) {
	seen := make(map[string]bool, len(fn.Blocks))
	for _, b := range fn.Blocks {
		if seen[b.Label] {
			sink.Errorf(fn.Name, b.Label, "", "duplicate block label '%s'", b.Label)
		}
		seen[b.Label] = true
	}
}

var terminatorOps = map[il.Opcode]bool{
	il.OpBr: true, il.OpCBr: true, il.OpSwitchI32: true, il.OpRet: true,
	il.OpTrap: true, il.OpResumeSame: true, il.OpResumeNext: true, il.OpResumeLabel: true,
}

// checkTerminated implements rule 1 (second half): every block is
// terminated and its last instruction is one of the allowed terminators.
func checkTerminated(fn *il.Function, sink *diag.Sink) {
	for _, b := range fn.Blocks {
		if !b.Terminated || len(b.Instrs) == 0 {
			sink.Errorf(fn.Name, b.Label, "", "block is not terminated")
			continue
		}
		last := b.Instrs[len(b.Instrs)-1]
		if !terminatorOps[last.Op] {
			sink.Errorf(fn.Name, b.Label, last.Op.String(), "last instruction is not a valid terminator")
		}
		for i, instr := range b.Instrs[:len(b.Instrs)-1] {
			if terminatorOps[instr.Op] {
				sink.Errorf(fn.Name, b.Label, instr.Op.String(), "terminator-only opcode at non-terminal position %d", i)
			}
		}
	}
}

// checkSuccessorsResolve implements rule 4: every successor label resolves
// to a block in the same function.
func checkSuccessorsResolve(fn *il.Function, cfg *ilanalysis.CFGContext, sink *diag.Sink) {
	for _, b := range fn.Blocks {
		for _, s := range b.Successors() {
			if fn.Block(s) == nil {
				sink.Errorf(fn.Name, b.Label, "", "successor label '%s' does not resolve to a block", s)
			}
		}
	}
}

// checkReachability implements rule 4's "entry is reachable" (an error) and
// "unreachable blocks are warnings".
func checkReachability(fn *il.Function, cfg *ilanalysis.CFGContext, dom *ilanalysis.DomTree, sink *diag.Sink) {
	entry := fn.Entry()
	if entry == nil {
		return
	}
	reach := cfg.Reachable()
	if !reach[entry.Label] {
		sink.Errorf(fn.Name, entry.Label, "", "entry block is unreachable")
	}
	for _, b := range fn.Blocks {
		if b.Label == entry.Label {
			continue
		}
		if !reach[b.Label] {
			sink.Warnf(fn.Name, b.Label, "", "unreachable block")
		}
	}
}

// checkSSA implements rule 2: every temp is defined exactly once, and every
// use is dominated by its definition.
func checkSSA(fn *il.Function, cfg *ilanalysis.CFGContext, dom *ilanalysis.DomTree, sink *diag.Sink) {
	defBlock := make(map[int]string)
	for _, b := range fn.Blocks {
		for _, p := range b.Params {
			if other, ok := defBlock[p.Temp]; ok {
				sink.Errorf(fn.Name, b.Label, "", "temp %%%d redefined (also defined in block '%s')", p.Temp, other)
				continue
			}
			defBlock[p.Temp] = b.Label
		}
		for _, instr := range b.Instrs {
			if !instr.HasResult {
				continue
			}
			if other, ok := defBlock[instr.Result]; ok {
				sink.Errorf(fn.Name, b.Label, instr.Op.String(), "temp %%%d redefined (also defined in block '%s')", instr.Result, other)
				continue
			}
			defBlock[instr.Result] = b.Label
		}
	}

	reach := cfg.Reachable()
	for _, b := range fn.Blocks {
		if !reach[b.Label] {
			continue // unreachable blocks are already warned; skip dominance checks
		}
		for _, instr := range b.Instrs {
			for _, op := range instr.Operands {
				checkUseDominated(fn, b.Label, instr, op, defBlock, dom, sink)
			}
			for _, args := range instr.BrArgs {
				for _, op := range args {
					checkUseDominated(fn, b.Label, instr, op, defBlock, dom, sink)
				}
			}
		}
	}
}

func checkUseDominated(fn *il.Function, useBlock string, instr il.Instr, op il.Value, defBlock map[int]string, dom *ilanalysis.DomTree, sink *diag.Sink) {
	if op.Kind != il.ValTemp {
		return
	}
	db, ok := defBlock[op.Temp]
	if !ok {
		sink.Errorf(fn.Name, useBlock, instr.Op.String(), "use of undefined temp %%%d", op.Temp)
		return
	}
	if db == useBlock {
		return // same-block def always precedes a later use by construction
	}
	if !dom.Dominates(db, useBlock) {
		sink.Errorf(fn.Name, useBlock, instr.Op.String(), "use of temp %%%d is not dominated by its definition in block '%s'", op.Temp, db)
	}
}

// checkBranchArgs implements the arity/type half of rule 3: branch argument
// lists match the target block's parameter count and types pairwise.
func checkBranchArgs(fn *il.Function, sink *diag.Sink) {
	temps := tempTypes(fn)
	for _, b := range fn.Blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		for i, target := range term.Succs {
			tb := fn.Block(target)
			if tb == nil {
				continue // already reported by checkSuccessorsResolve
			}
			args := term.BrArgs[i]
			if len(args) != len(tb.Params) {
				sink.Errorf(fn.Name, b.Label, term.Op.String(), "branch to '%s' passes %d argument(s), expected %d", target, len(args), len(tb.Params))
				continue
			}
			for j, arg := range args {
				want := tb.Params[j].Type
				got, ok := valueType(arg, temps)
				if ok && !got.Equal(want) {
					sink.Errorf(fn.Name, b.Label, term.Op.String(), "branch argument %d to '%s' has type %s, expected %s", j, target, got, want)
				}
			}
		}
	}
}

func tempTypes(fn *il.Function) map[int]il.Type {
	m := make(map[int]il.Type)
	for _, b := range fn.Blocks {
		for _, p := range b.Params {
			m[p.Temp] = p.Type
		}
		for _, instr := range b.Instrs {
			if instr.HasResult {
				m[instr.Result] = instr.Type
			}
		}
	}
	return m
}

func valueType(v il.Value, temps map[int]il.Type) (il.Type, bool) {
	switch v.Kind {
	case il.ValTemp:
		t, ok := temps[v.Temp]
		return t, ok
	case il.ValIntLit:
		if v.IsBool {
			return il.TI1(), true
		}
		return il.TI64(), true
	case il.ValFloatLit:
		return il.TF64(), true
	case il.ValStrLit:
		return il.TStr(), true
	case il.ValGlobal, il.ValNull:
		return il.TPtr(), true
	}
	return il.Type{}, false
}

// opSignature describes the expected operand types for a table-driven
// arity/type opcode, satisfying rule 3's "operand types match the opcode's
// expected signature".
type opSignature struct {
	operands []il.Kind // expected kind of each operand, in order
	result   il.Kind
}

func checkTypes(m *il.Module, fn *il.Function, sink *diag.Sink) {
	temps := tempTypes(fn)
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			switch instr.Op {
			case il.OpAdd, il.OpSub, il.OpMul, il.OpIAddOvf, il.OpISubOvf, il.OpIMulOvf,
				il.OpSDivChk0, il.OpUDivChk0, il.OpSRemChk0, il.OpURemChk0,
				il.OpAnd, il.OpOr, il.OpXor, il.OpShl, il.OpShr:
				checkOperandKinds(fn, b.Label, instr, temps, sink, isIntKind)
			case il.OpFAdd, il.OpFSub, il.OpFMul, il.OpFDiv:
				checkOperandKinds(fn, b.Label, instr, temps, sink, isFloatKind)
			case il.OpCall:
				checkCall(m, fn, b.Label, instr, temps, sink)
			}
		}
	}
}

func isIntKind(t il.Type) bool   { return t.IsInteger() }
func isFloatKind(t il.Type) bool { return t.IsFloat() }

func checkOperandKinds(fn *il.Function, block string, instr il.Instr, temps map[int]il.Type, sink *diag.Sink, accept func(il.Type) bool) {
	for _, op := range instr.Operands {
		t, ok := valueType(op, temps)
		if ok && !accept(t) {
			sink.Errorf(fn.Name, block, instr.Op.String(), "operand has unexpected type %s", t)
		}
	}
}

// checkCall implements the Call half of rule 3: operand count and types
// match the callee extern/function signature.
func checkCall(m *il.Module, fn *il.Function, block string, instr il.Instr, temps map[int]il.Type, sink *diag.Sink) {
	sig, ok := m.Resolve(instr.Callee)
	if !ok {
		sink.Errorf(fn.Name, block, instr.Op.String(), "call to unresolved symbol '%s'", instr.Callee)
		return
	}
	if len(instr.Operands) != len(sig.Params) {
		sink.Errorf(fn.Name, block, instr.Op.String(), "call to '%s' passes %d argument(s), expected %d", instr.Callee, len(instr.Operands), len(sig.Params))
		return
	}
	for i, op := range instr.Operands {
		got, ok := valueType(op, temps)
		if ok && !got.Equal(sig.Params[i]) {
			sink.Errorf(fn.Name, block, instr.Op.String(), "call to '%s' argument %d has type %s, expected %s", instr.Callee, i, got, sig.Params[i])
		}
	}
	if !instr.Type.Equal(sig.Ret) {
		sink.Errorf(fn.Name, block, instr.Op.String(), "call to '%s' declares return type %s, expected %s", instr.Callee, instr.Type, sig.Ret)
	}
}

// Format renders every diagnostic in sink, one per line, for a CLI or test
// to print verbatim (spec.md §4.2 "single-line message"; errors wrapped so
// callers can distinguish "had diagnostics" from "I/O failure" via errors.Is).
func Format(sink *diag.Sink) string {
	var sb strings.Builder
	for _, d := range sink.Diagnostics() {
		fmt.Fprintln(&sb, d.String())
	}
	return sb.String()
}
