package rtbridge

import (
	"math"

	"github.com/viperlang/viper/pkg/il"
)

// registerMathTraps installs the checked math helper family (spec.md
// §4.5). rt_pow_f64_chkdom's contract is load-bearing for spec.md §8's
// testable property: ok=false on a negative base with a non-integer
// exponent, or a non-finite result; ok=true and the IEEE result otherwise.
func registerMathTraps(r *Registry) {
	r.Register(&Helper{
		Name: "rt_pow_f64_chkdom", Params: []il.Kind{il.F64, il.F64}, Ret: il.F64,
		Fn: func(rt *Runtime, args []Value) (Value, error) {
			base, exp := args[0].Float, args[1].Float
			result := math.Pow(base, exp)
			ok := true
			if base < 0 && exp != math.Trunc(exp) {
				ok = false
				result = math.NaN()
			} else if math.IsNaN(result) || math.IsInf(result, 0) {
				ok = false
			}
			return powResult(result, ok), nil
		},
	})
	r.Register(&Helper{
		Name: "rt_sqrt_chk_f64", Params: []il.Kind{il.F64}, Ret: il.F64,
		Fn: func(rt *Runtime, args []Value) (Value, error) {
			x := args[0].Float
			if x < 0 {
				return Value{}, trapf(il.TrapDomainError, "rt_sqrt_chk_f64: negative argument %g", x)
			}
			return VFloat(il.F64, math.Sqrt(x)), nil
		},
	})
	r.Register(&Helper{
		Name: "rt_abs_i64_chk", Params: []il.Kind{il.I64}, Ret: il.I64,
		Fn: func(rt *Runtime, args []Value) (Value, error) {
			n := args[0].Int
			if n == math.MinInt64 {
				return Value{}, trapf(il.TrapOverflow, "rt_abs_i64_chk: abs(INT64_MIN) overflows")
			}
			if n < 0 {
				n = -n
			}
			return VInt(il.I64, n), nil
		},
	})
	r.Register(&Helper{
		Name: "rt_trap_div0", Params: nil, Ret: il.Void,
		Fn: func(rt *Runtime, args []Value) (Value, error) {
			return Value{}, trapf(il.TrapDivideByZero, "division by zero")
		},
	})
}

// powResult packs rt_pow_f64_chkdom's (value, ok) pair into a single
// Value: Float carries the result, Int carries ok as 0/1, matching the
// C-ABI out-parameter shape (`ok*`) spec.md §4.5 describes. The VM's
// fromBridgeValue keeps only the Float half of an f64 result, so IL code
// calling this helper receives the value and not the ok flag.
func powResult(result float64, ok bool) Value {
	v := VFloat(il.F64, result)
	if ok {
		v.Int = 1
	}
	return v
}
