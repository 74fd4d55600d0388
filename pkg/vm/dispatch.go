package vm

import (
	"math"

	"github.com/pkg/errors"

	"github.com/viperlang/viper/pkg/il"
)

// exec runs one instruction against fr, advancing fr.IP or transferring
// control as appropriate. A non-nil error is always a *TrapSignal except
// for malformed-module conditions the verifier should have already caught.
func (vm *VM) exec(fr *frame, instr il.Instr) error {
	switch instr.Op {
	case il.OpConstI64:
		vm.assign(fr, instr.Result, vm.fromValue(fr, instr.Operands[0], instr.Type.Kind))
		return vm.next(fr)
	case il.OpConstF64:
		vm.assign(fr, instr.Result, vm.fromValue(fr, instr.Operands[0], instr.Type.Kind))
		return vm.next(fr)
	case il.OpConstStr:
		vm.assign(fr, instr.Result, vm.fromValue(fr, instr.Operands[0], il.Str))
		return vm.next(fr)
	case il.OpNullPtr:
		vm.assign(fr, instr.Result, Slot{Kind: il.Ptr, Int: 0})
		return vm.next(fr)

	case il.OpAdd:
		a, b := vm.ints(fr, instr)
		return vm.setIntAndNext(fr, instr, a+b)
	case il.OpSub:
		a, b := vm.ints(fr, instr)
		return vm.setIntAndNext(fr, instr, a-b)
	case il.OpMul:
		a, b := vm.ints(fr, instr)
		return vm.setIntAndNext(fr, instr, a*b)

	case il.OpIAddOvf:
		a, b := vm.ints(fr, instr)
		if addOverflows(a, b) {
			return trap(il.TrapOverflow)
		}
		return vm.setIntAndNext(fr, instr, a+b)
	case il.OpISubOvf:
		a, b := vm.ints(fr, instr)
		if subOverflows(a, b) {
			return trap(il.TrapOverflow)
		}
		return vm.setIntAndNext(fr, instr, a-b)
	case il.OpIMulOvf:
		a, b := vm.ints(fr, instr)
		result := a * b
		if a != 0 && result/a != b {
			return trap(il.TrapOverflow)
		}
		return vm.setIntAndNext(fr, instr, result)
	case il.OpSDivChk0:
		a, b := vm.ints(fr, instr)
		if b == 0 {
			return trap(il.TrapDivideByZero)
		}
		return vm.setIntAndNext(fr, instr, a/b)
	case il.OpUDivChk0:
		a, b := vm.ints(fr, instr)
		if b == 0 {
			return trap(il.TrapDivideByZero)
		}
		return vm.setIntAndNext(fr, instr, int64(uint64(a)/uint64(b)))
	case il.OpSRemChk0:
		a, b := vm.ints(fr, instr)
		if b == 0 {
			return trap(il.TrapDivideByZero)
		}
		return vm.setIntAndNext(fr, instr, a%b)
	case il.OpURemChk0:
		a, b := vm.ints(fr, instr)
		if b == 0 {
			return trap(il.TrapDivideByZero)
		}
		return vm.setIntAndNext(fr, instr, int64(uint64(a)%uint64(b)))
	case il.OpCastSiNarrowChk:
		v := vm.resolveInt(fr, instr.Operands[0])
		n, ok := narrowCheck(v, instr.Type.Kind)
		if !ok {
			return trap(il.TrapInvalidCast)
		}
		return vm.setIntAndNext(fr, instr, n)

	case il.OpAnd:
		a, b := vm.ints(fr, instr)
		return vm.setIntAndNext(fr, instr, a&b)
	case il.OpOr:
		a, b := vm.ints(fr, instr)
		return vm.setIntAndNext(fr, instr, a|b)
	case il.OpXor:
		a, b := vm.ints(fr, instr)
		return vm.setIntAndNext(fr, instr, a^b)
	case il.OpShl:
		a, b := vm.ints(fr, instr)
		return vm.setIntAndNext(fr, instr, a<<(uint(b)&63))
	case il.OpShr:
		a, b := vm.ints(fr, instr)
		return vm.setIntAndNext(fr, instr, a>>(uint(b)&63))

	case il.OpFAdd:
		a, b := vm.floats(fr, instr)
		return vm.setFloatAndNext(fr, instr, a+b)
	case il.OpFSub:
		a, b := vm.floats(fr, instr)
		return vm.setFloatAndNext(fr, instr, a-b)
	case il.OpFMul:
		a, b := vm.floats(fr, instr)
		return vm.setFloatAndNext(fr, instr, a*b)
	case il.OpFDiv:
		a, b := vm.floats(fr, instr)
		return vm.setFloatAndNext(fr, instr, a/b)

	case il.OpSitofp:
		v := vm.resolveInt(fr, instr.Operands[0])
		return vm.setFloatAndNext(fr, instr, float64(v))
	case il.OpFptosi:
		v := vm.resolveFloat(fr, instr.Operands[0])
		return vm.setIntAndNext(fr, instr, int64(math.Trunc(v)))
	case il.OpTrunc1:
		v := vm.resolveInt(fr, instr.Operands[0])
		return vm.setIntAndNext(fr, instr, v&1)
	case il.OpZext1:
		v := vm.resolveInt(fr, instr.Operands[0])
		if v != 0 {
			v = 1
		}
		return vm.setIntAndNext(fr, instr, v)

	case il.OpICmpEq:
		a, b := vm.ints(fr, instr)
		return vm.setBoolAndNext(fr, instr, a == b)
	case il.OpICmpNe:
		a, b := vm.ints(fr, instr)
		return vm.setBoolAndNext(fr, instr, a != b)
	case il.OpSCmpLt:
		a, b := vm.ints(fr, instr)
		return vm.setBoolAndNext(fr, instr, a < b)
	case il.OpSCmpLe:
		a, b := vm.ints(fr, instr)
		return vm.setBoolAndNext(fr, instr, a <= b)
	case il.OpSCmpGt:
		a, b := vm.ints(fr, instr)
		return vm.setBoolAndNext(fr, instr, a > b)
	case il.OpSCmpGe:
		a, b := vm.ints(fr, instr)
		return vm.setBoolAndNext(fr, instr, a >= b)
	case il.OpUCmpLt:
		a, b := vm.ints(fr, instr)
		return vm.setBoolAndNext(fr, instr, uint64(a) < uint64(b))
	case il.OpUCmpLe:
		a, b := vm.ints(fr, instr)
		return vm.setBoolAndNext(fr, instr, uint64(a) <= uint64(b))
	case il.OpUCmpGt:
		a, b := vm.ints(fr, instr)
		return vm.setBoolAndNext(fr, instr, uint64(a) > uint64(b))
	case il.OpUCmpGe:
		a, b := vm.ints(fr, instr)
		return vm.setBoolAndNext(fr, instr, uint64(a) >= uint64(b))
	case il.OpFCmpEq:
		a, b := vm.floats(fr, instr)
		return vm.setBoolAndNext(fr, instr, a == b)
	case il.OpFCmpNe:
		a, b := vm.floats(fr, instr)
		return vm.setBoolAndNext(fr, instr, a != b)
	case il.OpFCmpLt:
		a, b := vm.floats(fr, instr)
		return vm.setBoolAndNext(fr, instr, a < b)
	case il.OpFCmpLe:
		a, b := vm.floats(fr, instr)
		return vm.setBoolAndNext(fr, instr, a <= b)
	case il.OpFCmpGt:
		a, b := vm.floats(fr, instr)
		return vm.setBoolAndNext(fr, instr, a > b)
	case il.OpFCmpGe:
		a, b := vm.floats(fr, instr)
		return vm.setBoolAndNext(fr, instr, a >= b)

	case il.OpAlloca:
		n := vm.resolveInt(fr, instr.Operands[0])
		vm.assign(fr, instr.Result, Slot{Kind: il.Ptr, Int: fr.allocaPtr(n)})
		return vm.next(fr)
	case il.OpLoad:
		v, err := vm.load(fr, instr)
		if err != nil {
			return err
		}
		vm.assign(fr, instr.Result, v)
		return vm.next(fr)
	case il.OpStore:
		return vm.store(fr, instr)
	case il.OpAddrOf:
		ptr := vm.resolveOperandSlot(fr, instr.Operands[0])
		vm.assign(fr, instr.Result, Slot{Kind: il.Ptr, Int: ptr.Int})
		return vm.next(fr)

	case il.OpBr:
		return vm.branch(fr, instr.Succs[0], instr.BrArgs[0])
	case il.OpCBr:
		cond := vm.resolveInt(fr, instr.Operands[0])
		if cond != 0 {
			return vm.branch(fr, instr.Succs[0], instr.BrArgs[0])
		}
		return vm.branch(fr, instr.Succs[1], instr.BrArgs[1])
	case il.OpSwitchI32:
		v := int32(vm.resolveInt(fr, instr.Operands[0]))
		for i, cv := range instr.SwitchCases {
			if cv == v {
				return vm.branch(fr, instr.Succs[i+1], instr.BrArgs[i+1])
			}
		}
		return vm.branch(fr, instr.Succs[0], instr.BrArgs[0])
	case il.OpRet:
		return vm.ret(fr, instr)
	case il.OpTrap:
		if instr.HasTrapMsg {
			return trapMsg(instr.TrapKind, "%s", instr.TrapMsg)
		}
		return trap(instr.TrapKind)

	case il.OpCall:
		return vm.call(fr, instr)

	case il.OpEhPush:
		fr.EH = append(fr.EH, ehRecord{Handler: instr.Succs[0]})
		return vm.next(fr)
	case il.OpEhPop:
		if len(fr.EH) > 0 {
			fr.EH = fr.EH[:len(fr.EH)-1]
		}
		return vm.next(fr)
	case il.OpResumeSame:
		return vm.resume(fr, instr.Operands[0], resumeSame, "")
	case il.OpResumeNext:
		return vm.resume(fr, instr.Operands[0], resumeNext, "")
	case il.OpResumeLabel:
		return vm.resume(fr, instr.Operands[0], resumeLabel, instr.Succs[0])
	}
	return errors.Errorf("vm: unimplemented opcode %s", instr.Op)
}

func (vm *VM) next(fr *frame) error {
	fr.IP++
	return nil
}

func (vm *VM) branch(fr *frame, target string, args []il.Value) error {
	blk := fr.Fn.Block(target)
	if blk == nil {
		return errors.Errorf("vm: branch to unknown block '%s'", target)
	}
	vals := make([]Slot, len(args))
	for i, a := range args {
		vals[i] = vm.resolveOperandSlot(fr, a)
	}
	fr.Block = blk
	fr.IP = 0
	for i, p := range blk.Params {
		if i < len(vals) {
			vm.assign(fr, p.Temp, vals[i])
		}
	}
	return nil
}

// resolveOperandSlot reads a Value as a Slot: a temp reference reads the
// register file directly (so its string handle, if any, is the live one a
// subsequent assign can retain); a literal materializes a fresh Slot.
func (vm *VM) resolveOperandSlot(fr *frame, v il.Value) Slot {
	if v.Kind == il.ValTemp {
		return fr.Regs[v.Temp]
	}
	return vm.fromValue(fr, v, guessKind(v))
}

func guessKind(v il.Value) il.Kind {
	switch v.Kind {
	case il.ValIntLit:
		if v.IsBool {
			return il.I1
		}
		return il.I64
	case il.ValFloatLit:
		return il.F64
	case il.ValStrLit:
		return il.Str
	}
	return il.Ptr
}

func (vm *VM) ints(fr *frame, instr il.Instr) (int64, int64) {
	return vm.resolveInt(fr, instr.Operands[0]), vm.resolveInt(fr, instr.Operands[1])
}

func (vm *VM) floats(fr *frame, instr il.Instr) (float64, float64) {
	return vm.resolveFloat(fr, instr.Operands[0]), vm.resolveFloat(fr, instr.Operands[1])
}

func (vm *VM) resolveInt(fr *frame, v il.Value) int64 {
	return vm.resolveOperandSlot(fr, v).Int
}

func (vm *VM) resolveFloat(fr *frame, v il.Value) float64 {
	return vm.resolveOperandSlot(fr, v).Float
}

func (vm *VM) setIntAndNext(fr *frame, instr il.Instr, v int64) error {
	vm.assign(fr, instr.Result, Slot{Kind: instr.Type.Kind, Int: v})
	return vm.next(fr)
}

func (vm *VM) setFloatAndNext(fr *frame, instr il.Instr, v float64) error {
	vm.assign(fr, instr.Result, Slot{Kind: instr.Type.Kind, Float: v})
	return vm.next(fr)
}

func (vm *VM) setBoolAndNext(fr *frame, instr il.Instr, b bool) error {
	var n int64
	if b {
		n = 1
	}
	vm.assign(fr, instr.Result, Slot{Kind: il.I1, Int: n})
	return vm.next(fr)
}

func addOverflows(a, b int64) bool {
	sum := a + b
	return ((a ^ sum) & (b ^ sum)) < 0
}

func subOverflows(a, b int64) bool {
	diff := a - b
	return ((a ^ b) & (a ^ diff)) < 0
}

// narrowCheck checks that v fits in the signed range of target (spec.md
// §7 InvalidCast).
func narrowCheck(v int64, target il.Kind) (int64, bool) {
	switch target {
	case il.I16:
		if v < math.MinInt16 || v > math.MaxInt16 {
			return 0, false
		}
	case il.I32:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return 0, false
		}
	case il.I1:
		if v != 0 && v != 1 {
			return 0, false
		}
	}
	return v, true
}
