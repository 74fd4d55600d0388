package vm

import (
	"math"

	"github.com/viperlang/viper/pkg/il"
)

// kindSize returns the byte width a Kind occupies in an arena (spec.md
// §3.7). Str/Error/ResumeTok store a table handle, sized like a pointer.
func kindSize(k il.Kind) int64 {
	switch k {
	case il.I1:
		return 1
	case il.I16:
		return 2
	case il.I32:
		return 4
	default:
		return 8
	}
}

// resolveBytes returns the backing byte slice and base index for ptr: a
// positive offset indexes the current frame's alloca arena, a negative one
// a global blob (see vm.globalOffset). The slice is never grown here: Load
// and Store check base plus the access width against its length and trap
// Bounds when the access runs past the end.
func (vm *VM) resolveBytes(fr *frame, ptr int64) ([]byte, int64, bool) {
	if ptr == 0 {
		return nil, 0, false
	}
	if ptr > 0 {
		return fr.Arena, ptr - 1, true
	}
	blob, ok := vm.globalBlob(ptr)
	if !ok {
		return nil, 0, false
	}
	return blob, 0, true
}

func (vm *VM) load(fr *frame, instr il.Instr) (Slot, error) {
	ptrSlot := vm.resolveOperandSlot(fr, instr.Operands[0])
	if ptrSlot.Int == 0 {
		return Slot{}, trap(il.TrapNull)
	}
	mem, base, ok := vm.resolveBytes(fr, ptrSlot.Int)
	if !ok {
		return Slot{}, trap(il.TrapBounds)
	}
	n := kindSize(instr.Type.Kind)
	if base < 0 || base+n > int64(len(mem)) {
		return Slot{}, trap(il.TrapBounds)
	}
	return decodeSlot(mem[base:base+n], instr.Type.Kind), nil
}

func (vm *VM) store(fr *frame, instr il.Instr) error {
	ptrSlot := vm.resolveOperandSlot(fr, instr.Operands[0])
	if ptrSlot.Int == 0 {
		return trap(il.TrapNull)
	}
	val := vm.resolveOperandSlot(fr, instr.Operands[1])
	mem, base, ok := vm.resolveBytes(fr, ptrSlot.Int)
	if !ok {
		return trap(il.TrapBounds)
	}
	n := kindSize(val.Kind)
	if base < 0 || base+n > int64(len(mem)) {
		return trap(il.TrapBounds)
	}
	encodeSlot(mem[base:base+n], val)
	fr.IP++
	return nil
}

func decodeSlot(b []byte, kind il.Kind) Slot {
	var u uint64
	for i := len(b) - 1; i >= 0; i-- {
		u = u<<8 | uint64(b[i])
	}
	switch kind {
	case il.F32:
		return Slot{Kind: kind, Float: float64(math.Float32frombits(uint32(u)))}
	case il.F64:
		return Slot{Kind: kind, Float: math.Float64frombits(u)}
	case il.Str, il.Error, il.ResumeTok:
		return Slot{Kind: kind, Handle: int64(u)}
	default:
		return Slot{Kind: kind, Int: signExtend(int64(u), kind)}
	}
}

func encodeSlot(b []byte, s Slot) {
	var u uint64
	switch s.Kind {
	case il.F32:
		u = uint64(math.Float32bits(float32(s.Float)))
	case il.F64:
		u = math.Float64bits(s.Float)
	case il.Str, il.Error, il.ResumeTok:
		u = uint64(s.Handle)
	default:
		u = uint64(s.Int)
	}
	for i := range b {
		b[i] = byte(u)
		u >>= 8
	}
}

func signExtend(v int64, kind il.Kind) int64 {
	switch kind {
	case il.I1:
		return v & 1
	case il.I16:
		return int64(int16(v))
	case il.I32:
		return int64(int32(v))
	default:
		return v
	}
}
