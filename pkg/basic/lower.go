package basic

import (
	"fmt"

	"github.com/viperlang/viper/pkg/il"
)

// kGosubStackDepth is the maximum number of outstanding (unreturned)
// GOSUB calls a single procedure supports (spec.md §4.7's "fixed depth
// kGosubStackDepth"). The IL has no indexed-addressing opcode (AddrOf
// only takes the address of a whole value, never an array element), so
// there is no way to lower a real return-site array here; the return
// index lives in one alloca cell instead, and depth is fixed at 1. A
// nested GOSUB issued before the outstanding one returns traps rather
// than silently clobbering the pending resume index.
const kGosubStackDepth = 1

// varSlot is a lowered BASIC variable: its backing alloca pointer and its
// declared scalar type.
type varSlot struct {
	ptr   il.Value
	typ   NumericType
	isStr bool
}

// Lowerer walks a parsed Program and emits a complete *il.Module through
// three passes: scanProgram classifies every expression's type and records
// the runtime helpers emission will need (LowerScan.cpp's scan phase,
// spec.md §4.7) before anything is built; collectLabels then pre-creates a
// block per GOTO/GOSUB label so a forward reference lowers to a real block
// regardless of source order; Lower itself walks the statement list
// building IL via il.Builder.
type Lowerer struct {
	mod     *il.Module
	mangler *NameMangler
	scope   *ScopeTracker
	b       *il.Builder

	vars   map[string]*varSlot // mangled name -> slot, current function only
	labels map[string]*il.BasicBlock

	ehStack []string // handler label stack, mirrors runtime EhPush/EhPop nesting

	gosubDispatch *il.BasicBlock
	gosubTargets  []*il.BasicBlock // index -> resume block, aligned with dispatch's switch cases
	gosubSlot     il.Value         // ptr to the one-deep return-index cell
	gosubDepth    il.Value         // ptr to the outstanding-GOSUB counter, guards kGosubStackDepth

	pendingCaseBodies []caseBody
}

// caseBody pairs a SELECT CASE arm's block with its statements, lowered
// after the dispatching switch so every case label exists up front.
type caseBody struct {
	blk  *il.BasicBlock
	body []Stmt
}

// NewLowerer returns a Lowerer that emits into a fresh module.
func NewLowerer() *Lowerer {
	return &Lowerer{mod: il.NewModule()}
}

// runtimeExternTemplate is one runtime helper's extern signature (spec.md
// §4.5's stable `rt_`-prefixed contract names).
var runtimeExternTemplate = map[string]il.Extern{
	"rt_print_i64":      {Name: "rt_print_i64", Params: []il.Type{il.TI64()}, Ret: il.TVoid()},
	"rt_print_f64":      {Name: "rt_print_f64", Params: []il.Type{il.TF64()}, Ret: il.TVoid()},
	"rt_print_str":      {Name: "rt_print_str", Params: []il.Type{il.TStr()}, Ret: il.TVoid()},
	"rt_input_str":      {Name: "rt_input_str", Ret: il.TStr()},
	"rt_concat":         {Name: "rt_concat", Params: []il.Type{il.TStr(), il.TStr()}, Ret: il.TStr()},
	"rt_to_int":         {Name: "rt_to_int", Params: []il.Type{il.TStr()}, Ret: il.TI64()},
	"rt_pow_f64_chkdom": {Name: "rt_pow_f64_chkdom", Params: []il.Type{il.TF64(), il.TF64()}, Ret: il.TF64()},
	"rt_str_eq":         {Name: "rt_str_eq", Params: []il.Type{il.TStr(), il.TStr()}, Ret: il.TI1()},
}

// runtimeExternOrder fixes the declaration order so textual output stays
// deterministic regardless of the needs set's (map) iteration order.
var runtimeExternOrder = []string{
	"rt_print_i64", "rt_print_f64", "rt_print_str", "rt_input_str",
	"rt_concat", "rt_to_int", "rt_pow_f64_chkdom", "rt_str_eq",
}

// declareExterns declares exactly the runtime helpers needs names, in the
// pipeline's fixed order: by the time emission runs it never has to
// retroactively add an extern (spec.md §4.7).
func declareExterns(mod *il.Module, needs runtimeNeeds) {
	for _, name := range runtimeExternOrder {
		if needs[name] {
			mod.AddExtern(runtimeExternTemplate[name])
		}
	}
}

// Lower lowers prog to a complete module: a no-emit scan pass first
// classifies every expression's type and records the runtime helpers
// emission will need (scanProgram, spec.md §4.7); externs are declared
// from that set before any function is lowered. The emit pass then walks
// one function per ProcDecl plus a synthesized "main" holding the
// top-level statements.
func (lw *Lowerer) Lower(prog *Program) *il.Module {
	needs := scanProgram(prog)
	declareExterns(lw.mod, needs)

	for _, proc := range prog.Procs {
		lw.lowerProc(proc)
	}
	lw.lowerMain(prog.Stmts)
	return lw.mod
}

func (lw *Lowerer) lowerMain(stmts []Stmt) {
	fn := il.NewFunction("main", il.TI64(), nil)
	lw.beginFunc(fn)
	entry := lw.b.CreateBlock("entry")
	lw.b.SetInsertPoint(entry)
	lw.collectLabels(stmts)
	lw.emitStmts(stmts)
	if !lw.b.InsertBlock().Terminated {
		lw.b.EmitRet(il.VInt(0))
	}
	lw.finishFunc()
	lw.mod.AddFunc(fn)
}

func (lw *Lowerer) lowerProc(proc *ProcDecl) {
	ret := il.TVoid()
	if proc.IsFunc {
		if proc.RetIsStr {
			ret = il.TStr()
		} else {
			ret = proc.RetType.asILType()
		}
	}
	fn := il.NewFunction(mangleProcName(proc.Name), ret, nil)
	lw.beginFunc(fn)

	entry := lw.b.CreateBlock("entry")
	lw.b.SetInsertPoint(entry)
	for _, param := range proc.Params {
		typ := il.TStr()
		if !param.IsStr {
			typ = param.Typ.ILKind().asType()
		}
		temp := lw.b.Fresh()
		entry.AddParam(param.Name, temp, typ)
		slot := lw.declareVar(param.Name, param.Typ, param.IsStr)
		lw.b.EmitVoid(il.OpStore, slot.ptr, il.VTemp(temp))
	}

	lw.collectLabels(proc.Body)
	lw.emitStmts(proc.Body)
	if !lw.b.InsertBlock().Terminated {
		if proc.IsFunc {
			lw.b.EmitTrap(il.TrapRuntimeError, "function fell off end without a RETURN value", true)
		} else {
			lw.b.EmitRetVoid()
		}
	}
	lw.finishFunc()
	lw.mod.AddFunc(fn)
}

func mangleProcName(name string) string { return "proc_" + name }

func (n NumericType) asILType() il.Type { return il.Type{Kind: n.ILKind()} }

func (lw *Lowerer) beginFunc(fn *il.Function) {
	lw.mangler = NewNameMangler()
	lw.scope = NewScopeTracker()
	lw.b = il.NewBuilder(fn)
	lw.vars = make(map[string]*varSlot)
	lw.labels = make(map[string]*il.BasicBlock)
	lw.ehStack = nil
	lw.gosubDispatch = nil
	lw.gosubTargets = nil
	lw.gosubSlot = il.Value{}
	lw.gosubDepth = il.Value{}
}

func (lw *Lowerer) finishFunc() {
	if lw.gosubDispatch != nil {
		lw.finalizeGosubDispatch()
	}
}

// collectLabels pre-creates a block for every LabelStmt so GOTO/GOSUB can
// reference labels regardless of where they appear relative to the jump.
// This is forward-reference resolution only, not the runtime-needs/type
// scan scanProgram performs (spec.md §4.7) — the two passes serve
// different purposes and both run before a function's statements emit.
// Labels are only recognized at the top level of a procedure's statement
// list: BASIC line labels conventionally mark top-level statements, not
// nested block bodies.
func (lw *Lowerer) collectLabels(stmts []Stmt) {
	for _, s := range stmts {
		if label, ok := s.(LabelStmt); ok {
			lw.labels[label.Name] = lw.b.CreateBlock("label_" + label.Name)
		}
	}
}

func (lw *Lowerer) declareVar(name string, typ NumericType, isStr bool) *varSlot {
	mangled := lw.scope.Resolve(name)
	if slot, ok := lw.vars[mangled]; ok {
		return slot
	}
	elemType := il.TStr()
	size := int64(8)
	if !isStr {
		elemType = typ.asILType()
		size = kindByteSize(elemType.Kind)
	}
	// The alloca goes into the entry block, after the allocas already
	// there, so it dominates every use even when the variable is first
	// mentioned in a later block.
	id := lw.b.Fresh()
	entry := lw.b.Func().Entry()
	at := 0
	for at < len(entry.Instrs) && entry.Instrs[at].Op == il.OpAlloca {
		at++
	}
	alloca := il.Instr{Op: il.OpAlloca, HasResult: true, Result: id, Type: il.TPtr(), Operands: []il.Value{il.VInt(size)}}
	entry.Instrs = append(entry.Instrs[:at], append([]il.Instr{alloca}, entry.Instrs[at:]...)...)
	ptr := il.VTemp(id)
	slot := &varSlot{ptr: ptr, typ: typ, isStr: isStr}
	lw.vars[mangled] = slot
	return slot
}

func kindByteSize(k il.Kind) int64 {
	switch k {
	case il.I1:
		return 1
	case il.I16:
		return 2
	case il.I32:
		return 4
	default:
		return 8
	}
}

// varFor resolves name to its slot, implicitly declaring it as a Long
// (BASIC's default numeric type) or a string if it was never DIM'd: BASIC
// permits use of undeclared variables.
func (lw *Lowerer) varFor(name string) *varSlot {
	mangled := lw.scope.Resolve(name)
	if slot, ok := lw.vars[mangled]; ok {
		return slot
	}
	isStr := hasStringSigil(name)
	return lw.declareVar(name, Long, isStr)
}

func hasStringSigil(name string) bool {
	return len(name) > 0 && name[len(name)-1] == '$'
}

func (lw *Lowerer) emitStmts(stmts []Stmt) {
	for _, s := range stmts {
		if lw.b.InsertBlock().Terminated {
			return
		}
		lw.emitStmt(s)
	}
}

func (lw *Lowerer) emitStmt(s Stmt) {
	switch st := s.(type) {
	case LabelStmt:
		blk := lw.labels[st.Name]
		if !lw.b.InsertBlock().Terminated {
			lw.b.EmitBr(blk.Label)
		}
		lw.b.SetInsertPoint(blk)
	case LetStmt:
		slot := lw.varFor(st.Name)
		v := lw.emitExprAs(st.Expr, slot.typ, slot.isStr)
		lw.b.EmitVoid(il.OpStore, slot.ptr, v)
	case DimStmt:
		lw.declareVar(st.Name, st.Typ, st.IsStr)
	case PrintStmt:
		for _, arg := range st.Args {
			lw.emitPrint(arg)
		}
	case InputStmt:
		if st.Prompt != "" {
			lw.b.EmitCall("rt_print_str", il.TVoid(), il.VStr(st.Prompt))
		}
		raw := lw.b.EmitCall("rt_input_str", il.TStr())
		slot := lw.varFor(st.Name)
		if slot.isStr {
			lw.b.EmitVoid(il.OpStore, slot.ptr, raw)
		} else {
			asInt := lw.b.EmitCall("rt_to_int", il.TI64(), raw)
			lw.b.EmitVoid(il.OpStore, slot.ptr, lw.narrowInt(asInt, slot.typ))
		}
	case IfStmt:
		lw.emitIf(st)
	case WhileStmt:
		lw.emitWhile(st)
	case ForStmt:
		lw.emitFor(st)
	case GotoStmt:
		target := lw.labels[st.Target]
		lw.b.EmitBr(target.Label)
	case GosubStmt:
		lw.emitGosub(st)
	case ReturnStmt:
		lw.emitGosubReturn()
	case OnErrorGotoStmt:
		lw.emitOnErrorGoto(st)
	case ResumeStmt:
		lw.emitResume(st)
	case SelectCaseStmt:
		lw.emitSelectCase(st)
	case EndStmt:
		code := il.VInt(0)
		if st.Code != nil {
			code = lw.emitExprAs(st.Code, Long, false)
		}
		lw.b.EmitRet(code)
	}
}

func (lw *Lowerer) emitPrint(arg Expr) {
	v, typ, isStr := lw.emitExpr(arg)
	switch {
	case isStr:
		lw.b.EmitCall("rt_print_str", il.TVoid(), v)
	case typ.IsFloat():
		lw.b.EmitCall("rt_print_f64", il.TVoid(), lw.toF64(v, typ))
	default:
		lw.b.EmitCall("rt_print_i64", il.TVoid(), lw.toI64(v, typ))
	}
}

func (lw *Lowerer) emitIf(st IfStmt) {
	cond := lw.emitBoolExpr(st.Cond)
	thenBlk := lw.b.CreateBlock("then")
	elseBlk := lw.b.CreateBlock("else")
	join := lw.b.CreateBlock("endif")

	lw.b.EmitCBr(cond, thenBlk.Label, nil, elseBlk.Label, nil)

	lw.b.SetInsertPoint(thenBlk)
	lw.emitStmts(st.Then)
	if !lw.b.InsertBlock().Terminated {
		lw.b.EmitBr(join.Label)
	}

	lw.b.SetInsertPoint(elseBlk)
	lw.emitElseChain(st.Elifs, st.Else, join)

	lw.b.SetInsertPoint(join)
}

func (lw *Lowerer) emitElseChain(elifs []ElseIf, elseBody []Stmt, join *il.BasicBlock) {
	if len(elifs) == 0 {
		lw.emitStmts(elseBody)
		if !lw.b.InsertBlock().Terminated {
			lw.b.EmitBr(join.Label)
		}
		return
	}
	head := elifs[0]
	cond := lw.emitBoolExpr(head.Cond)
	thenBlk := lw.b.CreateBlock("elseif_then")
	nextBlk := lw.b.CreateBlock("elseif_else")
	lw.b.EmitCBr(cond, thenBlk.Label, nil, nextBlk.Label, nil)

	lw.b.SetInsertPoint(thenBlk)
	lw.emitStmts(head.Body)
	if !lw.b.InsertBlock().Terminated {
		lw.b.EmitBr(join.Label)
	}

	lw.b.SetInsertPoint(nextBlk)
	lw.emitElseChain(elifs[1:], elseBody, join)
}

func (lw *Lowerer) emitWhile(st WhileStmt) {
	head := lw.b.CreateBlock("while_head")
	body := lw.b.CreateBlock("while_body")
	exit := lw.b.CreateBlock("while_exit")

	lw.b.EmitBr(head.Label)
	lw.b.SetInsertPoint(head)
	cond := lw.emitBoolExpr(st.Cond)
	lw.b.EmitCBr(cond, body.Label, nil, exit.Label, nil)

	lw.b.SetInsertPoint(body)
	lw.emitStmts(st.Body)
	if !lw.b.InsertBlock().Terminated {
		lw.b.EmitBr(head.Label)
	}

	lw.b.SetInsertPoint(exit)
}

func (lw *Lowerer) emitFor(st ForStmt) {
	slot := lw.varFor(st.Var)
	start := lw.emitExprAs(st.Start, slot.typ, false)
	lw.b.EmitVoid(il.OpStore, slot.ptr, start)
	limit := lw.emitExprAs(st.End, slot.typ, false)
	var step il.Value
	if st.Step != nil {
		step = lw.emitExprAs(st.Step, slot.typ, false)
	} else {
		step = lw.literalOf(slot.typ, 1)
	}

	head := lw.b.CreateBlock("for_head")
	body := lw.b.CreateBlock("for_body")
	exit := lw.b.CreateBlock("for_exit")

	lw.b.EmitBr(head.Label)
	lw.b.SetInsertPoint(head)
	cur := lw.b.EmitValue(il.OpLoad, slot.typ.asILType(), slot.ptr)
	cond := lw.compareLe(cur, limit, slot.typ)
	lw.b.EmitCBr(cond, body.Label, nil, exit.Label, nil)

	lw.b.SetInsertPoint(body)
	lw.emitStmts(st.Body)
	if !lw.b.InsertBlock().Terminated {
		cur2 := lw.b.EmitValue(il.OpLoad, slot.typ.asILType(), slot.ptr)
		next := lw.addTyped(cur2, step, slot.typ)
		lw.b.EmitVoid(il.OpStore, slot.ptr, next)
		lw.b.EmitBr(head.Label)
	}

	lw.b.SetInsertPoint(exit)
}

func (lw *Lowerer) compareLe(a, b il.Value, typ NumericType) il.Value {
	if typ.IsFloat() {
		return lw.b.EmitValue(il.OpFCmpLe, il.TI1(), a, b)
	}
	return lw.b.EmitValue(il.OpSCmpLe, il.TI1(), a, b)
}

func (lw *Lowerer) addTyped(a, b il.Value, typ NumericType) il.Value {
	if typ.IsFloat() {
		return lw.b.EmitValue(il.OpFAdd, typ.asILType(), a, b)
	}
	return lw.b.EmitValue(il.OpAdd, typ.asILType(), a, b)
}

func (lw *Lowerer) literalOf(typ NumericType, n int64) il.Value {
	if typ.IsFloat() {
		return il.VFloat(float64(n))
	}
	return il.VInt(n)
}

// emitGosub implements GOSUB's lazy prologue: the return-index cell is
// only allocated on a function's first GOSUB. Each call records which
// resume point RETURN should jump back to and transfers control to the
// target label.
//
// The IL has no pointer-arithmetic opcode (AddrOf only takes the address
// of a whole value, not an indexed element), so there is no way to lower
// the general kGosubStackDepth return-site array here; this models one
// outstanding GOSUB per function (kGosubStackDepth == 1). A GOSUB issued
// while one is already pending — a subroutine that itself GOSUBs before
// RETURNing — would silently clobber the pending resume index, so the
// depth counter is checked first and a nested call traps instead.
func (lw *Lowerer) emitGosub(st GosubStmt) {
	lw.ensureGosubSlot()
	resume := lw.b.CreateBlock("gosub_resume")
	idx := int32(len(lw.gosubTargets))
	lw.gosubTargets = append(lw.gosubTargets, resume)

	depth := lw.b.EmitValue(il.OpLoad, il.TI32(), lw.gosubDepth)
	atCapacity := lw.b.EmitValue(il.OpICmpEq, il.TI1(), depth, il.VInt(kGosubStackDepth))
	overflow := lw.b.CreateBlock("gosub_overflow")
	proceed := lw.b.CreateBlock("gosub_proceed")
	lw.b.EmitCBr(atCapacity, overflow.Label, nil, proceed.Label, nil)

	lw.b.SetInsertPoint(overflow)
	lw.b.EmitTrap(il.TrapRuntimeError, fmt.Sprintf("GOSUB nesting exceeds supported depth (%d)", kGosubStackDepth), true)

	lw.b.SetInsertPoint(proceed)
	lw.b.EmitVoid(il.OpStore, lw.gosubDepth, il.VInt(depthAfterPush()))
	lw.b.EmitVoid(il.OpStore, lw.gosubSlot, il.VInt(int64(idx)))
	target := lw.labels[st.Target]
	lw.b.EmitBr(target.Label)

	lw.b.SetInsertPoint(resume)
}

// depthAfterPush is always 1 while kGosubStackDepth == 1; spelled out as a
// function rather than a literal so a future widening of the depth only
// touches this one definition.
func depthAfterPush() int64 { return kGosubStackDepth }

func (lw *Lowerer) ensureGosubSlot() {
	if lw.gosubDispatch != nil {
		return
	}
	lw.gosubSlot = lw.b.EmitValue(il.OpAlloca, il.TPtr(), il.VInt(4))
	lw.gosubDepth = lw.b.EmitValue(il.OpAlloca, il.TPtr(), il.VInt(4))
	lw.b.EmitVoid(il.OpStore, lw.gosubDepth, il.VInt(0))
	lw.gosubDispatch = lw.b.CreateBlock("gosub_dispatch")
}

// emitGosubReturn lowers RETURN: clear the depth counter so a later GOSUB
// may reuse the cell, read the pending resume index, and branch to the
// function-wide dispatch block, which demultiplexes to the right resume
// point. The dispatch block's switch is only finalized once, after the
// whole function has been lowered and every GOSUB call site is known.
func (lw *Lowerer) emitGosubReturn() {
	lw.ensureGosubSlot()
	lw.b.EmitVoid(il.OpStore, lw.gosubDepth, il.VInt(0))
	idx := lw.b.EmitValue(il.OpLoad, il.TI32(), lw.gosubSlot)
	lw.b.EmitBr(lw.gosubDispatch.Label, idx)
}

func (lw *Lowerer) finalizeGosubDispatch() {
	lw.gosubDispatch.AddParam("idx", lw.b.Fresh(), il.TI32())
	lw.b.SetInsertPoint(lw.gosubDispatch)
	idxVal := il.VTemp(lw.gosubDispatch.Params[0].Temp)
	cases := make([]il.SwitchCase, len(lw.gosubTargets))
	for i, target := range lw.gosubTargets {
		cases[i] = il.SwitchCase{Value: int32(i), Target: target.Label}
	}
	def := lw.gosubTargets[0].Label
	if len(cases) == 0 {
		def = lw.gosubDispatch.Label
	}
	lw.b.EmitSwitch(idxVal, def, nil, cases)
}

// emitOnErrorGoto implements ON ERROR GOTO 0/label: target "0" clears the
// current handler (EhPop), any other target pushes a new handler block
// that receives the trapped Error and ResumeTok (spec.md §4.6.5).
func (lw *Lowerer) emitOnErrorGoto(st OnErrorGotoStmt) {
	if st.Target == "0" {
		if len(lw.ehStack) > 0 {
			lw.b.EmitEhPop()
			lw.ehStack = lw.ehStack[:len(lw.ehStack)-1]
		}
		return
	}
	handler := lw.labels[st.Target]
	errTemp := lw.b.Fresh()
	tokTemp := lw.b.Fresh()
	handler.AddParam("err", errTemp, il.TError())
	handler.AddParam("tok", tokTemp, il.TResumeTok())
	lw.b.EmitEhPush(handler.Label)
	lw.ehStack = append(lw.ehStack, handler.Label)
}

// emitResume lowers RESUME/RESUME NEXT/RESUME <label> using the handler
// block's second parameter as the resume token operand.
func (lw *Lowerer) emitResume(st ResumeStmt) {
	handler := lw.b.InsertBlock()
	if len(handler.Params) < 2 {
		return
	}
	tok := il.VTemp(handler.Params[1].Temp)
	switch st.Kind {
	case ResumeNextPoint:
		lw.b.EmitResumeNext(tok)
	case ResumeToLabel:
		lw.b.EmitResumeLabel(tok, lw.labels[st.Label].Label)
	default:
		lw.b.EmitResumeSame(tok)
	}
}

// emitSelectCase lowers SELECT CASE to a SwitchI32 when every label is a
// small dense integer constant, and to a cascaded CBr chain otherwise
// (spec.md §4.7): a string label is only representable at all once
// enableSelectCaseConstLabels admits CONST/CHR$ labels (spec.md §6.2), and
// a string scrutinee can never feed SwitchI32 regardless of the flag.
func (lw *Lowerer) emitSelectCase(st SelectCaseStmt) {
	if caseLabelsAreSwitchable(st.Cases) {
		lw.emitSelectCaseSwitch(st)
		return
	}
	lw.emitSelectCaseChain(st)
}

// caseLabelsAreSwitchable reports whether every CASE label is an integer
// constant falling in a range dense enough to be worth a jump table; any
// string label (only reachable when enableSelectCaseConstLabels is set)
// forces the cascaded CBr chain instead.
func caseLabelsAreSwitchable(cases []CaseClause) bool {
	var lo, hi int32
	first := true
	count := 0
	for _, c := range cases {
		for _, v := range c.Values {
			if v.IsString {
				return false
			}
			if first {
				lo, hi, first = v.Int, v.Int, false
			}
			if v.Int < lo {
				lo = v.Int
			}
			if v.Int > hi {
				hi = v.Int
			}
			count++
		}
	}
	if count == 0 {
		return true // CASE ELSE only
	}
	return int64(hi)-int64(lo) <= int64(count)*4
}

func (lw *Lowerer) emitSelectCaseSwitch(st SelectCaseStmt) {
	scrutinee := lw.emitExprAs(st.Scrutinee, Long, false)
	join := lw.b.CreateBlock("select_end")

	var elseBody []Stmt
	cases := make([]il.SwitchCase, 0, len(st.Cases))
	for _, clause := range st.Cases {
		if len(clause.Values) == 0 {
			elseBody = clause.Body
			continue
		}
		blk := lw.b.CreateBlock("case")
		for _, v := range clause.Values {
			cases = append(cases, il.SwitchCase{Value: v.Int, Target: blk.Label})
		}
		lw.pendingCaseBodies = append(lw.pendingCaseBodies, caseBody{blk, clause.Body})
	}
	elseBlk := lw.b.CreateBlock("case_else")
	lw.b.EmitSwitch(scrutinee, elseBlk.Label, nil, cases)

	pending := lw.pendingCaseBodies
	lw.pendingCaseBodies = nil
	for _, cb := range pending {
		lw.b.SetInsertPoint(cb.blk)
		lw.emitStmts(cb.body)
		if !lw.b.InsertBlock().Terminated {
			lw.b.EmitBr(join.Label)
		}
	}

	lw.b.SetInsertPoint(elseBlk)
	lw.emitStmts(elseBody)
	if !lw.b.InsertBlock().Terminated {
		lw.b.EmitBr(join.Label)
	}

	lw.b.SetInsertPoint(join)
}

// emitSelectCaseChain lowers a SELECT CASE whose labels are not small
// dense integers (or include a CONST/CHR$ string label) to a cascade of
// CBr tests, one per clause in source order, in the same "test, then
// fall through to the next test" shape emitElseChain uses for IF/ELSEIF.
func (lw *Lowerer) emitSelectCaseChain(st SelectCaseStmt) {
	scrutVal, scrutTyp, _ := lw.emitExpr(st.Scrutinee)
	join := lw.b.CreateBlock("select_end")
	lw.emitCaseChainClauses(st.Cases, scrutVal, scrutTyp, join)
	lw.b.SetInsertPoint(join)
}

func (lw *Lowerer) emitCaseChainClauses(cases []CaseClause, scrutVal il.Value, scrutTyp NumericType, join *il.BasicBlock) {
	if len(cases) == 0 {
		if !lw.b.InsertBlock().Terminated {
			lw.b.EmitBr(join.Label)
		}
		return
	}
	clause := cases[0]
	if len(clause.Values) == 0 {
		// CASE ELSE is always the last clause and never falls through.
		lw.emitStmts(clause.Body)
		if !lw.b.InsertBlock().Terminated {
			lw.b.EmitBr(join.Label)
		}
		return
	}

	body := lw.b.CreateBlock("case")
	next := lw.b.CreateBlock("case_next")
	cond := lw.emitCaseValueMatch(clause.Values, scrutVal, scrutTyp)
	lw.b.EmitCBr(cond, body.Label, nil, next.Label, nil)

	lw.b.SetInsertPoint(body)
	lw.emitStmts(clause.Body)
	if !lw.b.InsertBlock().Terminated {
		lw.b.EmitBr(join.Label)
	}

	lw.b.SetInsertPoint(next)
	lw.emitCaseChainClauses(cases[1:], scrutVal, scrutTyp, join)
}

// emitCaseValueMatch ORs together an equality test per value in one CASE
// clause (CASE 1, 2, 3 matches any of the three); string values compare
// via the runtime bridge's rt_str_eq, integer values via a direct ICmpEq/
// FCmpEq against the scrutinee's own type.
func (lw *Lowerer) emitCaseValueMatch(values []CaseValue, scrutVal il.Value, scrutTyp NumericType) il.Value {
	var acc il.Value
	for i, v := range values {
		var test il.Value
		if v.IsString {
			test = lw.b.EmitCall("rt_str_eq", il.TI1(), scrutVal, il.VStr(v.Str))
		} else {
			lit := lw.literalOf(scrutTyp, int64(v.Int))
			if scrutTyp.IsFloat() {
				test = lw.b.EmitValue(il.OpFCmpEq, il.TI1(), scrutVal, lit)
			} else {
				test = lw.b.EmitValue(il.OpICmpEq, il.TI1(), scrutVal, lit)
			}
		}
		if i == 0 {
			acc = test
		} else {
			acc = lw.b.EmitValue(il.OpOr, il.TI1(), acc, test)
		}
	}
	return acc
}
