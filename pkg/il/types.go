// Package il defines the typed SSA intermediate language shared by every
// Viper frontend and backend: types, values, instructions, basic blocks,
// functions, externs, and modules, along with their textual reader/writer
// and a builder for constructing IL programmatically.
package il

// Kind is the tag of a primitive IL type.
type Kind uint8

const (
	Void Kind = iota
	I1
	I16
	I32
	I64
	F32
	F64
	Ptr
	Str
	Error
	ResumeTok
)

var kindNames = [...]string{
	Void:      "void",
	I1:        "i1",
	I16:       "i16",
	I32:       "i32",
	I64:       "i64",
	F32:       "f32",
	F64:       "f64",
	Ptr:       "ptr",
	Str:       "str",
	Error:     "error",
	ResumeTok: "resume_tok",
}

// String renders the canonical lower-case textual token for a Kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "?"
}

// Type wraps a Kind. It exists as a distinct type (rather than a bare Kind)
// so signatures, struct fields, and the verifier's type-compatibility
// checks read as operating on "IL types" rather than raw tags.
type Type struct {
	Kind Kind
}

func (t Type) String() string { return t.Kind.String() }

// Equal reports whether two types are identical. The IL has no structural
// or generic types, so identity is tag equality.
func (t Type) Equal(o Type) bool { return t.Kind == o.Kind }

// IsInteger reports whether t is one of the integer-width kinds (i1 is
// boolean-width and counts as an integer kind for promotion purposes).
func (t Type) IsInteger() bool {
	switch t.Kind {
	case I1, I16, I32, I64:
		return true
	}
	return false
}

// IsFloat reports whether t is a floating-point kind.
func (t Type) IsFloat() bool {
	return t.Kind == F32 || t.Kind == F64
}

// Convenience constructors, mirroring the token table the reader parses.
func TVoid() Type      { return Type{Void} }
func TI1() Type        { return Type{I1} }
func TI16() Type       { return Type{I16} }
func TI32() Type       { return Type{I32} }
func TI64() Type       { return Type{I64} }
func TF32() Type       { return Type{F32} }
func TF64() Type       { return Type{F64} }
func TPtr() Type       { return Type{Ptr} }
func TStr() Type       { return Type{Str} }
func TError() Type     { return Type{Error} }
func TResumeTok() Type { return Type{ResumeTok} }

// kindByToken is consulted by the reader; keys are case-sensitive except
// for Error/ResumeTok which spec.md §6.1 marks case-insensitive.
var kindByToken = map[string]Kind{
	"void":       Void,
	"i1":         I1,
	"i16":        I16,
	"i32":        I32,
	"i64":        I64,
	"f32":        F32,
	"f64":        F64,
	"ptr":        Ptr,
	"str":        Str,
	"error":      Error,
	"resume_tok": ResumeTok,
}

// ParseKind resolves a type token to a Kind. ok is false for unrecognised
// tokens, matching the reader's "recoverable diagnostic" behavior.
func ParseKind(tok string) (Kind, bool) {
	switch toLowerASCII(tok) {
	case "error":
		return Error, true
	case "resumetok", "resume_tok":
		return ResumeTok, true
	}
	k, ok := kindByToken[tok]
	return k, ok
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}
