package rtbridge

import (
	"strconv"
	"strings"

	"github.com/viperlang/viper/pkg/il"
)

// registerStrings installs the string helper family (spec.md §4.5). These
// helpers operate directly on Value.Str content; the VM owns the
// retain/release bookkeeping on slot assignment (spec.md §3.7), so the
// bridge itself only ever produces fresh string Values.
func registerStrings(r *Registry) {
	r.Register(&Helper{
		Name: "rt_concat", Params: []il.Kind{il.Str, il.Str}, Ret: il.Str,
		Fn: func(rt *Runtime, args []Value) (Value, error) {
			return VStr(args[0].Str + args[1].Str), nil
		},
	})
	r.Register(&Helper{
		Name: "rt_substr", Params: []il.Kind{il.Str, il.I64, il.I64}, Ret: il.Str,
		Fn: func(rt *Runtime, args []Value) (Value, error) {
			s := args[0].Str
			start, length := args[1].Int, args[2].Int
			if start < 0 || length < 0 || start > int64(len(s)) {
				return Value{}, trapf(il.TrapBounds, "rt_substr: start=%d length=%d out of range for string of length %d", start, length, len(s))
			}
			end := start + length
			if end > int64(len(s)) {
				end = int64(len(s))
			}
			return VStr(s[start:end]), nil
		},
	})
	r.Register(&Helper{
		Name: "rt_str_eq", Params: []il.Kind{il.Str, il.Str}, Ret: il.I1,
		Fn: func(rt *Runtime, args []Value) (Value, error) {
			eq := int64(0)
			if args[0].Str == args[1].Str {
				eq = 1
			}
			return VInt(il.I1, eq), nil
		},
	})
	r.Register(&Helper{
		Name: "rt_len", Params: []il.Kind{il.Str}, Ret: il.I64,
		Fn: func(rt *Runtime, args []Value) (Value, error) {
			return VInt(il.I64, int64(len(args[0].Str))), nil
		},
	})
	r.Register(&Helper{
		Name: "rt_to_int", Params: []il.Kind{il.Str}, Ret: il.I64,
		Fn: func(rt *Runtime, args []Value) (Value, error) {
			s := strings.TrimSpace(args[0].Str)
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return Value{}, trapf(il.TrapRuntimeError, "rt_to_int: %q is not an integer", args[0].Str)
			}
			return VInt(il.I64, n), nil
		},
	})
}
