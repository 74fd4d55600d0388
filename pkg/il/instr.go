package il

// Loc is a source location attached to an instruction via `.loc` trivia
// (spec.md §4.1). FileID 0 means "no location recorded."
type Loc struct {
	FileID int
	Line   int
	Col    int
}

// HasLoc reports whether a non-default location is attached.
func (l Loc) HasLoc() bool { return l.FileID != 0 || l.Line != 0 || l.Col != 0 }

// Instr is the single uniform instruction shape every opcode uses
// (spec.md §3.3): an opcode, an optional SSA result, a result type, a
// flat operand list, an optional call callee, successor labels for
// control-flow instructions, per-successor branch-argument lists, and a
// source location.
//
// HasResult distinguishes "no result" (terminators, Store, EhPush/Pop)
// from "result is temp 0", since temp ids are dense per-function and 0
// is a valid id.
type Instr struct {
	Op     Opcode
	Result int
	HasResult bool
	Type   Type

	Operands []Value

	// Callee is the extern/function symbol for Call.
	Callee string

	// Succs holds successor block labels, in opcode-defined order:
	// Br: [target]; CBr: [then, else]; SwitchI32: [default, case0, case1, …];
	// ResumeLabel: [target].
	Succs []string

	// BrArgs holds, per entry in Succs, the branch-argument list passed to
	// that successor's block parameters. Always len(BrArgs) == len(Succs).
	BrArgs [][]Value

	// SwitchCases holds the i32 case constants for SwitchI32, aligned with
	// Succs[1:] (Succs[0] is the default target with no case value).
	SwitchCases []int32

	// Trap-specific.
	TrapKind TrapKind
	TrapMsg  string
	HasTrapMsg bool

	Loc Loc
}

// ResultValue returns the Value referring to this instruction's result,
// usable as an operand of a later instruction. Panics if the instruction
// has no result; callers that build IL should only call this after
// checking HasResult (or via Builder, which tracks this automatically).
func (i *Instr) ResultValue() Value {
	if !i.HasResult {
		panic("il: instruction has no result")
	}
	return VTemp(i.Result)
}

// TrapKind is the stable error-taxonomy tag (spec.md §7), reused by Trap
// instructions, the verifier's diagnostics, and the VM's Error value.
type TrapKind uint8

const (
	TrapNone TrapKind = iota
	TrapOverflow
	TrapDivideByZero
	TrapDomainError
	TrapInvalidCast
	TrapBounds
	TrapNull
	TrapEOF
	TrapIOError
	TrapFileNotFound
	TrapRuntimeError
)

var trapKindNames = [...]string{
	TrapNone:         "None",
	TrapOverflow:     "Overflow",
	TrapDivideByZero: "DivideByZero",
	TrapDomainError:  "DomainError",
	TrapInvalidCast:  "InvalidCast",
	TrapBounds:       "Bounds",
	TrapNull:         "Null",
	TrapEOF:          "EOF",
	TrapIOError:      "IOError",
	TrapFileNotFound: "FileNotFound",
	TrapRuntimeError: "RuntimeError",
}

func (k TrapKind) String() string {
	if int(k) < len(trapKindNames) {
		return trapKindNames[k]
	}
	return "?"
}

var trapKindByToken = func() map[string]TrapKind {
	m := make(map[string]TrapKind, len(trapKindNames))
	for k, name := range trapKindNames {
		m[name] = TrapKind(k)
	}
	return m
}()

// ParseTrapKind resolves the textual name of a trap kind.
func ParseTrapKind(tok string) (TrapKind, bool) {
	k, ok := trapKindByToken[tok]
	return k, ok
}

// Code returns the stable numeric code embedded in trap diagnostics
// (spec.md §4.6.5 "code=<n>").
func (k TrapKind) Code() int { return int(k) }
