package il

// Opcode is the closed set of IL instruction opcodes. The enum ordering
// fixes the dispatch-table index used by table-driven VM implementations
// (NumOpcodes gives the table size). pkg/vm keeps no such table: its exec
// dispatches through a switch on the opcode.
type Opcode uint8

const (
	OpInvalid Opcode = iota

	// Constants.
	OpConstI64
	OpConstF64
	OpConstStr
	OpNullPtr

	// Integer arithmetic (wrapping).
	OpAdd
	OpSub
	OpMul

	// Integer arithmetic (checked).
	OpIAddOvf
	OpISubOvf
	OpIMulOvf
	OpSDivChk0
	OpUDivChk0
	OpSRemChk0
	OpURemChk0
	OpCastSiNarrowChk

	// Bitwise & shift.
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr

	// Float arithmetic.
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv

	// Conversions.
	OpSitofp
	OpFptosi
	OpTrunc1
	OpZext1

	// Comparisons.
	OpICmpEq
	OpICmpNe
	OpSCmpLt
	OpSCmpLe
	OpSCmpGt
	OpSCmpGe
	OpUCmpLt
	OpUCmpLe
	OpUCmpGt
	OpUCmpGe
	OpFCmpEq
	OpFCmpNe
	OpFCmpLt
	OpFCmpLe
	OpFCmpGt
	OpFCmpGe

	// Memory.
	OpAlloca
	OpLoad
	OpStore
	OpAddrOf

	// Control flow (terminators).
	OpBr
	OpCBr
	OpSwitchI32
	OpRet
	OpTrap

	// Call.
	OpCall

	// Exception handling.
	OpEhPush
	OpEhPop
	OpResumeSame
	OpResumeNext
	OpResumeLabel

	opcodeCount
)

var opcodeNames = [...]string{
	OpInvalid:         "<invalid>",
	OpConstI64:        "const",
	OpConstF64:        "constf",
	OpConstStr:        "const.str",
	OpNullPtr:         "null.ptr",
	OpAdd:             "add",
	OpSub:             "sub",
	OpMul:             "mul",
	OpIAddOvf:         "iadd.ovf",
	OpISubOvf:         "isub.ovf",
	OpIMulOvf:         "imul.ovf",
	OpSDivChk0:        "sdiv.chk0",
	OpUDivChk0:        "udiv.chk0",
	OpSRemChk0:        "srem.chk0",
	OpURemChk0:        "urem.chk0",
	OpCastSiNarrowChk: "cast.si.narrow.chk",
	OpAnd:             "and",
	OpOr:              "or",
	OpXor:             "xor",
	OpShl:             "shl",
	OpShr:             "shr",
	OpFAdd:            "fadd",
	OpFSub:            "fsub",
	OpFMul:            "fmul",
	OpFDiv:            "fdiv",
	OpSitofp:          "sitofp",
	OpFptosi:          "fptosi",
	OpTrunc1:          "trunc1",
	OpZext1:           "zext1",
	OpICmpEq:          "icmp.eq",
	OpICmpNe:          "icmp.ne",
	OpSCmpLt:          "scmp.lt",
	OpSCmpLe:          "scmp.le",
	OpSCmpGt:          "scmp.gt",
	OpSCmpGe:          "scmp.ge",
	OpUCmpLt:          "ucmp.lt",
	OpUCmpLe:          "ucmp.le",
	OpUCmpGt:          "ucmp.gt",
	OpUCmpGe:          "ucmp.ge",
	OpFCmpEq:          "fcmp.eq",
	OpFCmpNe:          "fcmp.ne",
	OpFCmpLt:          "fcmp.lt",
	OpFCmpLe:          "fcmp.le",
	OpFCmpGt:          "fcmp.gt",
	OpFCmpGe:          "fcmp.ge",
	OpAlloca:          "alloca",
	OpLoad:            "load",
	OpStore:           "store",
	OpAddrOf:          "addrof",
	OpBr:              "br",
	OpCBr:             "cbr",
	OpSwitchI32:       "switch.i32",
	OpRet:             "ret",
	OpTrap:            "trap",
	OpCall:            "call",
	OpEhPush:          "eh.push",
	OpEhPop:           "eh.pop",
	OpResumeSame:      "resume.same",
	OpResumeNext:      "resume.next",
	OpResumeLabel:     "resume.label",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "<invalid>"
}

var opcodeByToken = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		if op == int(OpInvalid) {
			continue
		}
		m[name] = Opcode(op)
	}
	return m
}()

// ParseOpcode resolves a textual mnemonic to an Opcode.
func ParseOpcode(tok string) (Opcode, bool) {
	op, ok := opcodeByToken[tok]
	return op, ok
}

// IsTerminator reports whether op may only appear as the last instruction
// of a block (spec.md §3.3, §4.2 rule 1).
func (op Opcode) IsTerminator() bool {
	switch op {
	case OpBr, OpCBr, OpSwitchI32, OpRet, OpTrap, OpResumeSame, OpResumeNext, OpResumeLabel:
		return true
	}
	return false
}

// NumOpcodes returns the size a dispatch table must have to cover every
// opcode, including the reserved zero value.
func NumOpcodes() int { return int(opcodeCount) }
