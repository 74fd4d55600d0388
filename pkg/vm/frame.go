package vm

import "github.com/viperlang/viper/pkg/il"

// ehRecord is one entry of a frame's EH stack (spec.md §4.6.5): the
// handler block a Trap transfers control to.
type ehRecord struct {
	Handler string
}

// frame is one ExecState (spec.md §3.7, §4.6.1): the executing function,
// current block/instruction pointer, a register file indexed by temp id, a
// per-frame EH stack, an alloca arena, and the GOSUB shadow stack a BASIC
// procedure's lazily-built prologue may use.
type frame struct {
	Fn         *il.Function
	Block      *il.BasicBlock
	IP         int
	Regs       []Slot
	EH         []ehRecord
	Arena      []byte
	Gosub      []int64 // return-site indices pushed by GOSUB, popped by RETURN

	CallerIdx int  // index into vm.frames of the caller, -1 for the outermost frame
	DestReg   int  // caller register to receive this frame's return value
	HasDest   bool // false for a void call
	DestType  il.Type
}

// newFrame allocates a frame for fn, sized to its maximum temp id.
func newFrame(fn *il.Function, callerIdx, destReg int, hasDest bool, destType il.Type) *frame {
	n := fn.MaxTemp() + 1
	fr := &frame{
		Fn:        fn,
		Regs:      make([]Slot, n),
		CallerIdx: callerIdx,
		DestReg:   destReg,
		HasDest:   hasDest,
		DestType:  destType,
	}
	// Every register starts as the zero Slot (Kind Void, value 0); block
	// and function parameters are bound before their first use.
	return fr
}

// bindEntry seeds fr's entry-block parameters from args and positions IP at
// the entry block's first instruction.
func (fr *frame) bindEntry(vm *VM, entry *il.BasicBlock, args []Slot) {
	fr.Block = entry
	fr.IP = 0
	for i, p := range entry.Params {
		if i < len(args) {
			vm.assign(fr, p.Temp, args[i])
		}
	}
}

// allocaPtr reserves n bytes, and never fewer than 8, in the frame's arena
// and returns the Ptr offset (1-based so 0 stays a valid null-pointer
// sentinel). The 8-byte floor lets a store of any register slot, a 64-bit
// literal included, fit the cell; a narrower load reads its low bytes.
func (fr *frame) allocaPtr(n int64) int64 {
	if n < 8 {
		n = 8
	}
	off := int64(len(fr.Arena)) + 1
	fr.Arena = append(fr.Arena, make([]byte, n)...)
	return off
}
