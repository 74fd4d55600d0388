package rtbridge

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/viperlang/viper/pkg/il"
)

// TrapError is returned by a helper (or the dispatcher itself) to signal
// that the call must trap rather than return a value. Kind feeds the VM's
// Error value and trap diagnostic (spec.md §7).
type TrapError struct {
	Kind il.TrapKind
	Msg  string
}

func (e *TrapError) Error() string { return e.Msg }

func trapf(kind il.TrapKind, format string, args ...any) error {
	return &TrapError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Helper is one registered runtime function: its signature (for arity
// checking) and its implementation.
type Helper struct {
	Name    string
	Params  []il.Kind
	Ret     il.Kind
	Fn      func(rt *Runtime, args []Value) (Value, error)
}

// Registry is the name-keyed table of helpers a Dispatcher looks up
// against (spec.md §4.5's "stable extern name" contract).
type Registry struct {
	helpers map[string]*Helper
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{helpers: make(map[string]*Helper)} }

// Register adds or replaces a helper.
func (r *Registry) Register(h *Helper) { r.helpers[h.Name] = h }

// Lookup returns the helper registered under name.
func (r *Registry) Lookup(name string) (*Helper, bool) {
	h, ok := r.helpers[name]
	return h, ok
}

// Names returns every registered helper name, for installing matching
// extern declarations into a Module (spec.md §4.8 "registers runtime
// helpers").
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.helpers))
	for n := range r.helpers {
		out = append(out, n)
	}
	return out
}

// Dispatcher marshals IL calls to runtime helpers (spec.md §4.5's bridge
// contract): look up by name, check argument kinds, invoke, and return the
// marshalled result.
type Dispatcher struct {
	Registry *Registry
	Runtime  *Runtime
}

// NewDispatcher wires a Registry (normally NewDefaultRegistry()) to a
// Runtime.
func NewDispatcher(reg *Registry, rt *Runtime) *Dispatcher {
	return &Dispatcher{Registry: reg, Runtime: rt}
}

// Call dispatches one runtime-helper call (spec.md §4.5):
//
//  1. an unknown name traps with "attempted to call unknown runtime
//     helper '<name>'".
//  2. an argument-count mismatch or unsupported type kind traps with a
//     RuntimeError-kind diagnostic.
//  3. the helper runs and its result is returned for the VM to marshal
//     back into the destination temp slot.
func (d *Dispatcher) Call(name string, args []Value) (Value, error) {
	h, ok := d.Registry.Lookup(name)
	if !ok {
		return Value{}, trapf(il.TrapRuntimeError, "attempted to call unknown runtime helper '%s'", name)
	}
	if len(args) != len(h.Params) {
		return Value{}, trapf(il.TrapRuntimeError, "runtime bridge: '%s' expects %d argument(s), got %d", name, len(h.Params), len(args))
	}
	for i, want := range h.Params {
		if !kindCompatible(want, args[i].Kind) {
			return Value{}, trapf(il.TrapRuntimeError, "runtime bridge does not support marshalling argument %d kind '%s' for '%s'", i, args[i].Kind, name)
		}
	}
	v, err := h.Fn(d.Runtime, args)
	if err != nil {
		var te *TrapError
		if errors.As(err, &te) {
			return Value{}, err
		}
		return Value{}, trapf(il.TrapRuntimeError, "%s", err.Error())
	}
	return v, nil
}

func kindCompatible(want, got il.Kind) bool {
	if want == got {
		return true
	}
	switch want {
	case il.I1, il.I16, il.I32, il.I64:
		switch got {
		case il.I1, il.I16, il.I32, il.I64:
			return true
		}
	}
	return false
}
