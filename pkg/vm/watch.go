package vm

import (
	"fmt"

	"github.com/viperlang/viper/pkg/il"
)

// FormatWatch renders one --watch NAME resolution as the "NAME = <value>"
// half of a `[WATCH] NAME = <value>` line (SPEC_FULL.md §3). ok is false
// when name does not resolve to a live temporary in the current frame, in
// which case the caller skips the line silently.
func (vm *VM) FormatWatch(name string) (string, bool) {
	if vm.cur < 0 {
		return "", false
	}
	fr := vm.curFrame()
	temp, ok := fr.Fn.TempByName(name)
	if !ok {
		return "", false
	}
	if temp < 0 || temp >= len(fr.Regs) {
		return "", false
	}
	return fmt.Sprintf("%s = %s", name, vm.formatSlot(fr.Regs[temp])), true
}

// formatSlot renders a register Slot for a [WATCH]/--dump-trap line.
func (vm *VM) formatSlot(s Slot) string {
	switch s.Kind {
	case il.Void:
		return "<void>"
	case il.F32, il.F64:
		return fmt.Sprintf("%g", s.Float)
	case il.Str:
		if str, ok := vm.Runtime.Strings.Lookup(s.Handle); ok {
			return fmt.Sprintf("%q", str)
		}
		return "<invalid str>"
	case il.Error, il.ResumeTok:
		return fmt.Sprintf("<%s#%d>", s.Kind, s.Handle)
	default:
		return fmt.Sprintf("%d", s.Int)
	}
}
