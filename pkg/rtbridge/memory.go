package rtbridge

import "github.com/viperlang/viper/pkg/il"

// registerMemory installs the memory helper family (spec.md §4.5):
// rt_alloc/rt_heap_release back an explicit runtime heap distinct from the
// VM's per-frame alloca arena (spec.md §3.7).
func registerMemory(r *Registry) {
	r.Register(&Helper{
		Name: "rt_alloc", Params: []il.Kind{il.I64}, Ret: il.Ptr,
		Fn: func(rt *Runtime, args []Value) (Value, error) {
			n := args[0].Int
			if n < 0 {
				return Value{}, trapf(il.TrapRuntimeError, "rt_alloc: negative size %d", n)
			}
			return VPtr(rt.Heap.Alloc(n)), nil
		},
	})
	r.Register(&Helper{
		Name: "rt_heap_release", Params: []il.Kind{il.Ptr}, Ret: il.Void,
		Fn: func(rt *Runtime, args []Value) (Value, error) {
			rt.Heap.Release(args[0].Ptr)
			return VVoid, nil
		},
	})
}

// NewDefaultRegistry returns a Registry with every rt_ helper family
// installed (spec.md §4.5 table). Collections (hash maps, bags, rings,
// priority queues) are an explicit §1 leaf family opaque to the core and
// are not part of this bridge's contract surface.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	registerIO(r)
	registerStrings(r)
	registerMathTraps(r)
	registerRNG(r)
	registerMemory(r)
	return r
}
