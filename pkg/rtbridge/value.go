// Package rtbridge implements the stable C-callable runtime helper family
// (spec.md §4.5): I/O, strings, checked math, RNG, memory, each under an
// `rt_`-prefixed extern name, plus the name-keyed dispatcher the VM calls
// through. The dispatcher marshals typed il.Value arguments to host ABI
// slots and back, trapping on an unknown helper name or an unsupported
// type kind.
//
// Grounded on the original system's src/runtime/rt_fp.c / rt_fp.h (checked
// float-domain helpers — rt_pow_f64_chkdom's exact contract) and
// src/runtime/rt_random.h (the RNG family); the teacher contributes no
// runtime-bridge analog of its own, since its runtime support is libc
// linked at `cc` time rather than marshalled per call (see DESIGN.md).
package rtbridge

import "github.com/viperlang/viper/pkg/il"

// Value is one host-ABI argument or return slot: a tagged union mirroring
// il.Value's discriminant, but carrying resolved data instead of a
// reference, since by the time a call reaches the bridge every temp/
// literal has already been read from its register slot.
type Value struct {
	Kind  il.Kind
	Int   int64
	Float float64
	Str   string
	Ptr   int64 // offset into a Runtime's heap; 0 is null
}

// VInt builds an integer Value of the given kind (I16/I32/I64/I1).
func VInt(kind il.Kind, n int64) Value { return Value{Kind: kind, Int: n} }

// VFloat builds a floating-point Value.
func VFloat(kind il.Kind, f float64) Value { return Value{Kind: kind, Float: f} }

// VStr builds a string-handle Value.
func VStr(s string) Value { return Value{Kind: il.Str, Str: s} }

// VPtr builds a pointer Value.
func VPtr(p int64) Value { return Value{Kind: il.Ptr, Ptr: p} }

// VVoid is the Value returned by a void helper.
var VVoid = Value{Kind: il.Void}
