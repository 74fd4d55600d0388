// Package vm implements the bytecode virtual machine (spec.md §4.6): a
// frame/register model, per-opcode dispatch, typed traps, tail-call frame
// reuse, an exception-handler stack with resume tokens, deterministic
// tracing, and a scripted debugger, wired to the runtime bridge (pkg/
// rtbridge) for extern calls.
//
// Grounded on the original system's src/vm/tco.hpp (tail-call reuse) and
// lib/VM/DebugScript.{h,cpp} (FIFO action queue, unknown commands ignored)
// from original_source/, per DESIGN.md.
package vm

import "github.com/viperlang/viper/pkg/il"

// Slot is a 64-bit register-file word interpreted per IL type (spec.md
// §3.7). Str slots hold a handle into the runtime string table; Error and
// ResumeTok slots hold handles into this VM's own side tables (sideTables
// errs/toks), since those two types only ever exist as values the EH
// machinery hands to a handler.
type Slot struct {
	Kind    il.Kind
	Int     int64   // I1/I16/I32/I64, and Ptr (arena offset)
	Float   float64 // F32/F64
	Handle  int64   // Str (string-table id), Error (sideTables.errs id), ResumeTok (sideTables.toks id)
}

// ZeroSlot returns the zero value of kind (spec.md is silent on
// initial-register content; zero-initializing every slot at frame creation
// keeps behavior deterministic before a first write).
func ZeroSlot(kind il.Kind) Slot {
	return Slot{Kind: kind}
}

// fromValue converts an operand into a Slot: a temp reference reads fr's
// register file, and a literal, global or null operand is materialized in
// place (spec.md §4.6.2 step 3).
func (vm *VM) fromValue(fr *frame, v il.Value, wantKind il.Kind) Slot {
	switch v.Kind {
	case il.ValTemp:
		return fr.Regs[v.Temp]
	case il.ValIntLit:
		k := wantKind
		if v.IsBool {
			k = il.I1
		}
		return Slot{Kind: k, Int: v.Int}
	case il.ValFloatLit:
		return Slot{Kind: wantKind, Float: v.Float}
	case il.ValStrLit:
		return Slot{Kind: il.Str, Handle: vm.Runtime.Strings.Intern(v.Str)}
	case il.ValGlobal:
		return Slot{Kind: il.Ptr, Int: vm.globalOffset(v.Global)}
	case il.ValNull:
		return Slot{Kind: il.Ptr, Int: 0}
	}
	return Slot{}
}

// assign writes v into fr.Regs[dst], releasing any string the slot
// previously held and retaining the new one (spec.md §4.6.1 "writing a new
// string into a slot releases the previous occupant").
func (vm *VM) assign(fr *frame, dst int, v Slot) {
	old := fr.Regs[dst]
	if old.Kind == il.Str && old.Handle != 0 {
		vm.Runtime.Strings.Release(old.Handle)
	}
	if v.Kind == il.Str && v.Handle != 0 {
		vm.Runtime.Strings.Retain(v.Handle)
	}
	fr.Regs[dst] = v
}
