package vm

import (
	"fmt"

	"github.com/viperlang/viper/pkg/il"
)

// TraceMode selects the VM's per-instruction trace line format (spec.md
// §4.7, SPEC_FULL.md §3's --trace=il|src).
type TraceMode int

const (
	// TraceOff emits no trace lines.
	TraceOff TraceMode = iota
	// TraceIL emits one "[IL] fn:block#idx op ..." line per instruction.
	TraceIL
	// TraceSrc emits one "[SRC] file:line" line per instruction carrying a
	// source location, skipping instructions with no attached Loc.
	TraceSrc
)

// traceInstr writes the current trace line, if any, to vm.TraceOut before
// the instruction executes. Tracing is deterministic: the same module run
// with the same inputs always produces byte-identical trace output (spec.md
// §8), so this never consults wall-clock time or any non-replayable state.
func (vm *VM) traceInstr(fr *frame, instr il.Instr) {
	if vm.Trace == TraceOff || vm.TraceOut == nil {
		return
	}
	switch vm.Trace {
	case TraceIL:
		fmt.Fprintf(vm.TraceOut, "[IL] %s:%s#%d %s\n", fr.Fn.Name, fr.Block.Label, fr.IP, instr.Op)
	case TraceSrc:
		if instr.Loc.HasLoc() {
			path := ""
			if vm.Sources != nil {
				path = vm.Sources.Path(instr.Loc.FileID)
			}
			if path == "" {
				path = fmt.Sprintf("file#%d", instr.Loc.FileID)
			}
			fmt.Fprintf(vm.TraceOut, "[SRC] %s:%d:%d\n", path, instr.Loc.Line, instr.Loc.Col)
		}
	}
}
