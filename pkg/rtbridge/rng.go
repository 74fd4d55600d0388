package rtbridge

import "github.com/viperlang/viper/pkg/il"

// registerRNG installs the RNG helper family (spec.md §4.5). The
// generator is process-wide (spec.md §3.7, §5): RANDOMIZE reseeds it for
// every subsequent rt_rnd/rt_rand_int call.
func registerRNG(r *Registry) {
	r.Register(&Helper{
		Name: "rt_randomize_u64", Params: []il.Kind{il.I64}, Ret: il.Void,
		Fn: func(rt *Runtime, args []Value) (Value, error) {
			rt.RNG.Seed(uint64(args[0].Int))
			return VVoid, nil
		},
	})
	r.Register(&Helper{
		Name: "rt_rnd", Params: nil, Ret: il.F64,
		Fn: func(rt *Runtime, args []Value) (Value, error) {
			return VFloat(il.F64, rt.RNG.Float64()), nil
		},
	})
	r.Register(&Helper{
		Name: "rt_rand_int", Params: []il.Kind{il.I64, il.I64}, Ret: il.I64,
		Fn: func(rt *Runtime, args []Value) (Value, error) {
			lo, hi := args[0].Int, args[1].Int
			if hi < lo {
				return Value{}, trapf(il.TrapDomainError, "rt_rand_int: hi %d < lo %d", hi, lo)
			}
			span := uint64(hi-lo) + 1
			return VInt(il.I64, lo+int64(rt.RNG.Next()%span)), nil
		},
	})
}
