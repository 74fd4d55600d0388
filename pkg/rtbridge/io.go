package rtbridge

import (
	"fmt"
	"strconv"

	"github.com/viperlang/viper/pkg/il"
)

// registerIO installs the I/O helper family (spec.md §4.5).
func registerIO(r *Registry) {
	r.Register(&Helper{
		Name: "rt_print_i64", Params: []il.Kind{il.I64}, Ret: il.Void,
		Fn: func(rt *Runtime, args []Value) (Value, error) {
			fmt.Fprintln(rt.Stdout, strconv.FormatInt(args[0].Int, 10))
			return VVoid, nil
		},
	})
	r.Register(&Helper{
		Name: "rt_print_f64", Params: []il.Kind{il.F64}, Ret: il.Void,
		Fn: func(rt *Runtime, args []Value) (Value, error) {
			fmt.Fprintln(rt.Stdout, strconv.FormatFloat(args[0].Float, 'g', -1, 64))
			return VVoid, nil
		},
	})
	r.Register(&Helper{
		Name: "rt_print_str", Params: []il.Kind{il.Str}, Ret: il.Void,
		Fn: func(rt *Runtime, args []Value) (Value, error) {
			fmt.Fprintln(rt.Stdout, args[0].Str)
			return VVoid, nil
		},
	})
	r.Register(&Helper{
		Name: "rt_input_str", Params: nil, Ret: il.Str,
		Fn: func(rt *Runtime, args []Value) (Value, error) {
			line, err := rt.Stdin.ReadString('\n')
			if err != nil && line == "" {
				return Value{}, trapf(il.TrapEOF, "rt_input_str: end of file")
			}
			line = trimNewline(line)
			return VStr(line), nil
		},
	})
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
