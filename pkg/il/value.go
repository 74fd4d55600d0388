package il

// ValueKind tags the discriminant of a Value.
type ValueKind uint8

const (
	// ValTemp is an SSA temporary result reference, unique within a function.
	ValTemp ValueKind = iota
	// ValIntLit is an integer literal (ConstI64-family operands, i1/i16/i32/i64).
	ValIntLit
	// ValFloatLit is a floating-point literal (f32/f64).
	ValFloatLit
	// ValStrLit is an inline string literal.
	ValStrLit
	// ValGlobal is a symbolic reference to a module-level global blob.
	ValGlobal
	// ValNull is the null pointer constant.
	ValNull
)

// Value is a tagged union of everything an instruction operand can be:
// a temporary id, an integer/float/string literal, a global address by
// name, or the null pointer. Exactly one field group is meaningful,
// selected by Kind.
type Value struct {
	Kind ValueKind

	Temp   int     // ValTemp
	Int    int64   // ValIntLit
	IsBool bool    // ValIntLit: true when this literal denotes an i1 constant
	Float  float64 // ValFloatLit
	Str    string  // ValStrLit
	Global string  // ValGlobal
}

// VTemp builds a reference to SSA temporary id.
func VTemp(id int) Value { return Value{Kind: ValTemp, Temp: id} }

// VInt builds an integer literal (isBool is false); the literal carries no
// width of its own.
func VInt(n int64) Value { return Value{Kind: ValIntLit, Int: n} }

// VBool builds an i1 literal.
func VBool(b bool) Value {
	var n int64
	if b {
		n = 1
	}
	return Value{Kind: ValIntLit, Int: n, IsBool: true}
}

// VFloat builds a floating-point literal.
func VFloat(f float64) Value { return Value{Kind: ValFloatLit, Float: f} }

// VStr builds an inline string literal.
func VStr(s string) Value { return Value{Kind: ValStrLit, Str: s} }

// VGlobal builds a reference to a named global blob.
func VGlobal(name string) Value { return Value{Kind: ValGlobal, Global: name} }

// VNull builds the null pointer constant.
func VNull() Value { return Value{Kind: ValNull} }

// IsConst reports whether v is a compile-time constant (everything but a
// temporary reference).
func (v Value) IsConst() bool { return v.Kind != ValTemp }
