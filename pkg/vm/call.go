package vm

import (
	"github.com/pkg/errors"

	"github.com/viperlang/viper/pkg/il"
	"github.com/viperlang/viper/pkg/rtbridge"
)

// resumeKind distinguishes the three resume.* forms (spec.md §4.6.5,
// GLOSSARY "Resume token").
type resumeKind int

const (
	resumeSame resumeKind = iota
	resumeNext
	resumeLabel
)

// call dispatches an OpCall: a runtime-helper name resolves through the
// bridge, anything else must be a module function (spec.md §4.5, §4.6.4).
func (vm *VM) call(fr *frame, instr il.Instr) error {
	vm.CallCount++

	if _, ok := vm.Bridge.Registry.Lookup(instr.Callee); ok {
		return vm.callExtern(fr, instr)
	}

	callee := vm.Module.Func(instr.Callee)
	if callee == nil {
		return errors.Errorf("vm: call to unknown symbol '%s'", instr.Callee)
	}
	return vm.callFunc(fr, instr, callee)
}

func (vm *VM) callExtern(fr *frame, instr il.Instr) error {
	args := make([]rtbridge.Value, len(instr.Operands))
	for i, op := range instr.Operands {
		args[i] = vm.toBridgeValue(vm.resolveOperandSlot(fr, op))
	}
	result, err := vm.Bridge.Call(instr.Callee, args)
	if err != nil {
		var te *rtbridge.TrapError
		if errors.As(err, &te) {
			return &TrapSignal{Kind: te.Kind, Msg: te.Msg, HasMsg: te.Msg != ""}
		}
		return err
	}
	if instr.HasResult {
		vm.assign(fr, instr.Result, vm.fromBridgeValue(result))
	}
	return vm.next(fr)
}

// callFunc pushes a new frame for callee, or — when tail-call reuse is
// enabled and this Call is immediately followed by a matching Ret — reuses
// the current frame in place (spec.md §4.6.4).
func (vm *VM) callFunc(fr *frame, instr il.Instr, callee *il.Function) error {
	args := make([]Slot, len(instr.Operands))
	for i, op := range instr.Operands {
		args[i] = vm.resolveOperandSlot(fr, op)
	}
	entry := callee.Entry()
	if entry == nil {
		return errors.Errorf("vm: function '%s' has no entry block", callee.Name)
	}

	if vm.TailCallEnabled && vm.isTailPosition(fr, instr) {
		nf := newFrame(callee, fr.CallerIdx, fr.DestReg, fr.HasDest, fr.DestType)
		nf.bindEntry(vm, entry, args)
		nf.EH = fr.EH
		vm.frames[vm.cur] = nf
		return nil
	}

	nf := newFrame(callee, vm.cur, instr.Result, instr.HasResult, instr.Type)
	nf.bindEntry(vm, entry, args)
	vm.frames = append(vm.frames, nf)
	vm.cur = len(vm.frames) - 1
	return nil
}

// isTailPosition reports whether instr (a Call) is immediately followed by
// a Ret that returns exactly its result (or, for a void call, a bare Ret).
func (vm *VM) isTailPosition(fr *frame, instr il.Instr) bool {
	next := fr.IP + 1
	if next >= len(fr.Block.Instrs) {
		return false
	}
	ret := fr.Block.Instrs[next]
	if ret.Op != il.OpRet {
		return false
	}
	if !instr.HasResult {
		return len(ret.Operands) == 0
	}
	return len(ret.Operands) == 1 && ret.Operands[0].Kind == il.ValTemp && ret.Operands[0].Temp == instr.Result
}

// ret pops the current frame, delivering its value (if any) to the caller,
// or — for the outermost frame — records the process exit code (spec.md
// §4.6.1, §7).
func (vm *VM) ret(fr *frame, instr il.Instr) error {
	var result Slot
	hasResult := len(instr.Operands) == 1
	if hasResult {
		result = vm.resolveOperandSlot(fr, instr.Operands[0])
	}

	// Read out the return value's content before releasing this frame's
	// registers, then mint it a fresh handle: the frame's own ownership of
	// the string is being torn down regardless, so the value crossing into
	// the caller starts from a clean retain rather than surviving the
	// teardown by accident.
	var resultStr string
	resultIsStr := hasResult && result.Kind == il.Str
	if resultIsStr {
		resultStr, _ = vm.Runtime.Strings.Lookup(result.Handle)
	}
	for _, r := range fr.Regs {
		if r.Kind == il.Str && r.Handle != 0 {
			vm.Runtime.Strings.Release(r.Handle)
		}
	}
	if resultIsStr {
		result.Handle = vm.Runtime.Strings.Intern(resultStr)
	}

	if fr.CallerIdx < 0 {
		if hasResult {
			vm.exitCode = result.Int
		}
		vm.status = StatusDone
		return nil
	}

	caller := vm.frames[fr.CallerIdx]
	vm.frames = vm.frames[:vm.cur]
	vm.cur = fr.CallerIdx

	if fr.HasDest && hasResult {
		vm.assign(caller, fr.DestReg, result)
	}
	caller.IP++
	return nil
}

// resume implements resume.same/next/label (spec.md §4.6.5): the token
// names the frame and position of the original trap, and control transfers
// relative to that, not to wherever the handler happens to run from.
func (vm *VM) resume(fr *frame, tokOperand il.Value, kind resumeKind, label string) error {
	tokSlot := vm.resolveOperandSlot(fr, tokOperand)
	tok, ok := vm.side.toks[tokSlot.Handle]
	if !ok {
		return errors.Errorf("vm: resume with invalid or stale resume token")
	}
	target := vm.frames[tok.FrameIdx]
	vm.cur = tok.FrameIdx

	switch kind {
	case resumeSame:
		target.Block = target.Fn.Block(tok.Block)
		target.IP = tok.FaultIP
	case resumeNext:
		target.Block = target.Fn.Block(tok.Block)
		target.IP = tok.FaultIP + 1
	case resumeLabel:
		blk := target.Fn.Block(label)
		if blk == nil {
			return errors.Errorf("vm: resume.label to unknown block '%s'", label)
		}
		target.Block = blk
		target.IP = 0
	}
	return nil
}
