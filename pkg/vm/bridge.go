package vm

import (
	"github.com/viperlang/viper/pkg/il"
	"github.com/viperlang/viper/pkg/rtbridge"
)

// toBridgeValue marshals a register Slot into the bridge's host-ABI Value
// (spec.md §4.5): a Str slot's handle is resolved to its live content since
// the bridge layer works with string data, not table handles.
func (vm *VM) toBridgeValue(s Slot) rtbridge.Value {
	switch s.Kind {
	case il.Str:
		str, _ := vm.Runtime.Strings.Lookup(s.Handle)
		return rtbridge.Value{Kind: il.Str, Str: str}
	case il.F32, il.F64:
		return rtbridge.Value{Kind: s.Kind, Float: s.Float}
	case il.Ptr:
		return rtbridge.Value{Kind: il.Ptr, Ptr: s.Int}
	default:
		return rtbridge.Value{Kind: s.Kind, Int: s.Int}
	}
}

// fromBridgeValue marshals a bridge result back into a register Slot. A
// returned string is freshly interned (spec.md §4.5: the bridge always
// hands back string content, never a handle, so every call result that
// holds a string mints its own table entry).
func (vm *VM) fromBridgeValue(v rtbridge.Value) Slot {
	switch v.Kind {
	case il.Str:
		return Slot{Kind: il.Str, Handle: vm.Runtime.Strings.Intern(v.Str)}
	case il.F32, il.F64:
		return Slot{Kind: v.Kind, Float: v.Float}
	case il.Ptr:
		return Slot{Kind: il.Ptr, Int: v.Ptr}
	default:
		return Slot{Kind: v.Kind, Int: v.Int}
	}
}
