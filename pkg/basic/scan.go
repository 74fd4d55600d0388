package basic

// runtimeNeeds is the set of runtime helper extern names that emission
// will call, computed up front by scanProgram so declareExterns never has
// to retroactively add an extern mid-emission (spec.md §4.7).
type runtimeNeeds map[string]bool

func (n runtimeNeeds) need(name string) { n[name] = true }

// varType is one variable's scan-phase type classification.
type varType struct {
	typ   NumericType
	isStr bool
}

// scanVars is the scan phase's own variable type table, rebuilt per
// procedure: first DIM (or first use) fixes a name's type for the rest of
// the procedure, mirroring the emit phase's lw.vars bookkeeping exactly so
// the two passes agree on every variable's type.
type scanVars struct {
	types map[string]varType
}

func newScanVars() *scanVars { return &scanVars{types: map[string]varType{}} }

func (s *scanVars) declare(name string, typ NumericType, isStr bool) {
	if _, ok := s.types[name]; ok {
		return
	}
	s.types[name] = varType{typ, isStr}
}

func (s *scanVars) lookup(name string) varType {
	if v, ok := s.types[name]; ok {
		return v
	}
	v := varType{Long, hasStringSigil(name)}
	s.types[name] = v
	return v
}

// scanProgram runs the no-emit scan phase (spec.md §4.7, grounded on
// original_source/src/frontends/basic/LowerScan.cpp's scanExprTypes /
// scanStmtRuntimeNeeds / scanProgramRuntimeNeeds): it classifies every
// expression's semantic type using the same promotion lattice the emit
// phase uses (typerules.go's resultType/unaryResultType) purely to
// discover which runtime helpers later emission will call. It never
// touches an il.Builder or il.Module; "scan sets flags only, no IR
// emission."
func scanProgram(prog *Program) runtimeNeeds {
	needs := runtimeNeeds{}
	for _, proc := range prog.Procs {
		sv := newScanVars()
		for _, p := range proc.Params {
			sv.declare(p.Name, p.Typ, p.IsStr)
		}
		scanStmts(proc.Body, sv, needs)
	}
	scanStmts(prog.Stmts, newScanVars(), needs)
	return needs
}

func scanStmts(stmts []Stmt, sv *scanVars, needs runtimeNeeds) {
	for _, s := range stmts {
		scanStmt(s, sv, needs)
	}
}

func scanStmt(s Stmt, sv *scanVars, needs runtimeNeeds) {
	switch st := s.(type) {
	case LetStmt:
		sv.lookup(st.Name)
		scanExpr(st.Expr, sv, needs)
	case DimStmt:
		sv.declare(st.Name, st.Typ, st.IsStr)
	case PrintStmt:
		for _, a := range st.Args {
			typ, isStr := scanExpr(a, sv, needs)
			switch {
			case isStr:
				needs.need("rt_print_str")
			case typ.IsFloat():
				needs.need("rt_print_f64")
			default:
				needs.need("rt_print_i64")
			}
		}
	case InputStmt:
		if st.Prompt != "" {
			needs.need("rt_print_str")
		}
		needs.need("rt_input_str")
		if v := sv.lookup(st.Name); !v.isStr {
			needs.need("rt_to_int")
		}
	case IfStmt:
		scanExpr(st.Cond, sv, needs)
		scanStmts(st.Then, sv, needs)
		for _, e := range st.Elifs {
			scanExpr(e.Cond, sv, needs)
			scanStmts(e.Body, sv, needs)
		}
		scanStmts(st.Else, sv, needs)
	case WhileStmt:
		scanExpr(st.Cond, sv, needs)
		scanStmts(st.Body, sv, needs)
	case ForStmt:
		sv.lookup(st.Var)
		scanExpr(st.Start, sv, needs)
		scanExpr(st.End, sv, needs)
		if st.Step != nil {
			scanExpr(st.Step, sv, needs)
		}
		scanStmts(st.Body, sv, needs)
	case SelectCaseStmt:
		scanExpr(st.Scrutinee, sv, needs)
		for _, c := range st.Cases {
			for _, v := range c.Values {
				if v.IsString {
					needs.need("rt_str_eq")
				}
			}
			scanStmts(c.Body, sv, needs)
		}
	case EndStmt:
		if st.Code != nil {
			scanExpr(st.Code, sv, needs)
		}
	case LabelStmt, GotoStmt, GosubStmt, ReturnStmt, OnErrorGotoStmt, ResumeStmt:
		// no expressions, no runtime helpers
	}
}

// scanExpr classifies e's semantic type without emitting IR, recording any
// runtime helper the matching emit-phase expression would call.
func scanExpr(e Expr, sv *scanVars, needs runtimeNeeds) (NumericType, bool) {
	switch ex := e.(type) {
	case NumberLit:
		if ex.IsFloat {
			return Double, false
		}
		return intLitType(ex.Int), false
	case StringLit:
		return Long, true
	case VarRef:
		v := sv.lookup(ex.Name)
		return v.typ, v.isStr
	case UnaryExpr:
		if ex.Op == "NOT" {
			scanExpr(ex.Value, sv, needs) // recurse for nested needs only; NOT always yields Integer
			return Integer, false
		}
		typ, isStr := scanExpr(ex.Value, sv, needs)
		if isStr {
			return typ, true
		}
		return unaryResultType(ex.Op, typ), false
	case BinaryExpr:
		return scanBinary(ex, sv, needs)
	case CallExpr:
		for _, a := range ex.Args {
			scanExpr(a, sv, needs)
		}
		return Long, hasStringSigil(ex.Name)
	default:
		return Long, false
	}
}

// scanBinary mirrors expr.go's emitComparisonValue/emitBinary dispatch
// closely enough to classify the result type and flag runtime helper use
// without building any IL.
func scanBinary(ex BinaryExpr, sv *scanVars, needs runtimeNeeds) (NumericType, bool) {
	lt, lStr := scanExpr(ex.Left, sv, needs)
	rt, rStr := scanExpr(ex.Right, sv, needs)
	switch ex.Op {
	case "=", "<>", "<", "<=", ">", ">=":
		if (lStr || rStr) && ex.Op == "=" {
			needs.need("rt_str_eq")
		}
		return Integer, false
	case "AND", "OR":
		return Integer, false
	case "&":
		needs.need("rt_concat")
		return Long, true
	case "^":
		needs.need("rt_pow_f64_chkdom")
	}
	if lStr || rStr {
		return Long, true
	}
	res := resultType(ex.Op, lt, rt)
	if ex.Op == "/" && !res.IsFloat() {
		return Double, false // emitBinary divides integral operands in f64
	}
	return res, false
}
