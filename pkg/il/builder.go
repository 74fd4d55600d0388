package il

// Builder is the canonical non-textual construction path for a Function:
// it reserves temp ids, inserts blocks, tracks an insertion point, and
// records each instruction with its source location. It does not itself
// enforce typing invariants beyond arity — that is the verifier's
// responsibility (spec.md §4.1) — but it does maintain block-termination
// and dense-temp-id bookkeeping so callers cannot accidentally produce
// structurally malformed blocks.
//
// The fresh-id allocation scheme is grounded on rtlgen's RegAllocator
// (pkg/rtlgen/regs.go in the teacher): a monotonic counter handed out via
// Fresh, with no reuse across the function's lifetime.
type Builder struct {
	fn      *Function
	nextTmp int
	cur     *BasicBlock
	loc     Loc
}

// NewBuilder starts building fn, which should be freshly constructed
// (no blocks yet).
func NewBuilder(fn *Function) *Builder {
	return &Builder{fn: fn}
}

// Func returns the function under construction.
func (b *Builder) Func() *Function { return b.fn }

// Fresh reserves and returns a new, unused temp id.
func (b *Builder) Fresh() int {
	id := b.nextTmp
	b.nextTmp++
	return id
}

// SetLoc sets the source location attached to subsequently emitted
// instructions, mirroring `.loc` trivia attaching to the following line
// (spec.md §4.1).
func (b *Builder) SetLoc(l Loc) { b.loc = l }

// CreateBlock allocates a new block (not yet inserted into the
// function) with a fresh label derived from hint; collisions get a
// numeric suffix, matching the BASIC frontend's block-naming policy
// (spec.md §4.7) so any caller gets the same stable-naming behavior.
func (b *Builder) CreateBlock(hint string) *BasicBlock {
	label := b.uniqueLabel(hint)
	blk := NewBlock(label)
	b.fn.AddBlock(blk)
	return blk
}

func (b *Builder) uniqueLabel(hint string) string {
	if b.fn.Block(hint) == nil {
		return hint
	}
	for i := 1; ; i++ {
		cand := hint + itoa(i)
		if b.fn.Block(cand) == nil {
			return cand
		}
	}
}

// SetInsertPoint moves the insertion point to the end of blk.
func (b *Builder) SetInsertPoint(blk *BasicBlock) { b.cur = blk }

// InsertBlock returns the block instructions are currently appended to.
func (b *Builder) InsertBlock() *BasicBlock { return b.cur }

func (b *Builder) emit(instr Instr) Instr {
	instr.Loc = b.loc
	b.cur.Append(instr)
	return instr
}

// EmitValue emits a result-producing instruction and returns a Value
// referencing its result.
func (b *Builder) EmitValue(op Opcode, typ Type, operands ...Value) Value {
	id := b.Fresh()
	b.emit(Instr{Op: op, HasResult: true, Result: id, Type: typ, Operands: operands})
	return VTemp(id)
}

// EmitVoid emits an instruction with no result (Store, EhPush, EhPop).
func (b *Builder) EmitVoid(op Opcode, operands ...Value) {
	b.emit(Instr{Op: op, Operands: operands})
}

// EmitCall emits a Call instruction. typ is Void for a void callee.
func (b *Builder) EmitCall(callee string, typ Type, args ...Value) Value {
	id := b.Fresh()
	instr := Instr{Op: OpCall, Type: typ, Callee: callee, Operands: args}
	if typ.Kind != Void {
		instr.HasResult = true
		instr.Result = id
	}
	b.emit(instr)
	if typ.Kind == Void {
		return Value{}
	}
	return VTemp(id)
}

// EmitBr terminates the current block with an unconditional branch.
func (b *Builder) EmitBr(target string, args ...Value) {
	b.emit(Instr{Op: OpBr, Succs: []string{target}, BrArgs: [][]Value{args}})
}

// EmitCBr terminates the current block with a conditional branch.
func (b *Builder) EmitCBr(cond Value, thenLabel string, thenArgs []Value, elseLabel string, elseArgs []Value) {
	b.emit(Instr{
		Op:       OpCBr,
		Operands: []Value{cond},
		Succs:    []string{thenLabel, elseLabel},
		BrArgs:   [][]Value{thenArgs, elseArgs},
	})
}

// SwitchCase is one scrutinee-value/target pair for EmitSwitch.
type SwitchCase struct {
	Value  int32
	Target string
	Args   []Value
}

// EmitSwitch terminates the current block with a SwitchI32.
func (b *Builder) EmitSwitch(scrutinee Value, defaultLabel string, defaultArgs []Value, cases []SwitchCase) {
	succs := make([]string, 0, len(cases)+1)
	brArgs := make([][]Value, 0, len(cases)+1)
	vals := make([]int32, 0, len(cases))
	succs = append(succs, defaultLabel)
	brArgs = append(brArgs, defaultArgs)
	for _, c := range cases {
		succs = append(succs, c.Target)
		brArgs = append(brArgs, c.Args)
		vals = append(vals, c.Value)
	}
	b.emit(Instr{Op: OpSwitchI32, Operands: []Value{scrutinee}, Succs: succs, BrArgs: brArgs, SwitchCases: vals})
}

// EmitRet terminates the current block with a return of v. Use
// EmitRetVoid for a void return.
func (b *Builder) EmitRet(v Value) {
	b.emit(Instr{Op: OpRet, Operands: []Value{v}})
}

// EmitRetVoid terminates the current block with a void return.
func (b *Builder) EmitRetVoid() {
	b.emit(Instr{Op: OpRet})
}

// EmitTrap terminates the current block with an explicit Trap.
func (b *Builder) EmitTrap(kind TrapKind, msg string, hasMsg bool) {
	b.emit(Instr{Op: OpTrap, TrapKind: kind, TrapMsg: msg, HasTrapMsg: hasMsg})
}

// EmitResumeSame/Next/Label terminate the current block within an EH
// handler (spec.md §4.6.5).
func (b *Builder) EmitResumeSame(tok Value)  { b.emit(Instr{Op: OpResumeSame, Operands: []Value{tok}}) }
func (b *Builder) EmitResumeNext(tok Value)  { b.emit(Instr{Op: OpResumeNext, Operands: []Value{tok}}) }
func (b *Builder) EmitResumeLabel(tok Value, target string) {
	b.emit(Instr{Op: OpResumeLabel, Operands: []Value{tok}, Succs: []string{target}})
}

// EmitEhPush/EhPop are non-terminator EH stack operations.
func (b *Builder) EmitEhPush(handler string) {
	b.emit(Instr{Op: OpEhPush, Succs: []string{handler}})
}
func (b *Builder) EmitEhPop() { b.emit(Instr{Op: OpEhPop}) }
