package ilverify

import (
	"testing"

	"github.com/viperlang/viper/pkg/diag"
	"github.com/viperlang/viper/pkg/il"
)

func TestModuleAcceptsWellFormedFunction(t *testing.T) {
	m := il.NewModule()
	fn := il.NewFunction("main", il.TI32(), nil)
	b := il.NewBuilder(fn)
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)
	v := b.EmitValue(il.OpAdd, il.TI32(), il.VInt(1), il.VInt(2))
	b.EmitRet(v)
	m.AddFunc(fn)

	sink := diag.NewSink()
	if err := Module(m, sink); err != nil {
		t.Fatalf("Module() = %v, diagnostics: %s", err, Format(sink))
	}
}

func TestModuleRejectsUnterminatedBlock(t *testing.T) {
	m := il.NewModule()
	fn := il.NewFunction("main", il.TVoid(), nil)
	entry := il.NewBlock("entry")
	fn.AddBlock(entry)
	m.AddFunc(fn)

	sink := diag.NewSink()
	if err := Module(m, sink); err == nil {
		t.Fatal("Module() = nil, want ErrVerifyFailed for an unterminated block")
	}
	if !sink.HasErrors() {
		t.Error("sink should record at least one error")
	}
}

func TestModuleRejectsDuplicateLabels(t *testing.T) {
	m := il.NewModule()
	fn := il.NewFunction("main", il.TVoid(), nil)
	b1 := il.NewBlock("entry")
	b1.Append(il.Instr{Op: il.OpRet})
	b2 := il.NewBlock("entry")
	b2.Append(il.Instr{Op: il.OpRet})
	fn.AddBlock(b1)
	fn.AddBlock(b2)
	m.AddFunc(fn)

	sink := diag.NewSink()
	if err := Module(m, sink); err == nil {
		t.Fatal("Module() = nil, want an error for duplicate block labels")
	}
}

func TestModuleRejectsUndefinedTempUse(t *testing.T) {
	m := il.NewModule()
	fn := il.NewFunction("main", il.TI32(), nil)
	entry := il.NewBlock("entry")
	entry.Append(il.Instr{Op: il.OpRet, Operands: []il.Value{il.VTemp(99)}})
	fn.AddBlock(entry)
	m.AddFunc(fn)

	sink := diag.NewSink()
	if err := Module(m, sink); err == nil {
		t.Fatal("Module() = nil, want an error for a use of an undefined temp")
	}
}

func TestModuleRejectsNonDominatedUse(t *testing.T) {
	// left defines %0; right does not, but join uses %0 unconditionally,
	// which is not dominated by a single definition on every path.
	m := il.NewModule()
	fn := il.NewFunction("main", il.TI32(), nil)
	b := il.NewBuilder(fn)

	entry := b.CreateBlock("entry")
	left := b.CreateBlock("left")
	right := b.CreateBlock("right")
	join := b.CreateBlock("join")

	b.SetInsertPoint(entry)
	b.EmitCBr(il.VBool(true), left.Label, nil, right.Label, nil)

	b.SetInsertPoint(left)
	b.EmitValue(il.OpAdd, il.TI32(), il.VInt(1), il.VInt(1)) // defines %0
	b.EmitBr(join.Label)

	b.SetInsertPoint(right)
	b.EmitBr(join.Label)

	b.SetInsertPoint(join)
	b.EmitRet(il.VTemp(0))

	m.AddFunc(fn)
	sink := diag.NewSink()
	if err := Module(m, sink); err == nil {
		t.Fatal("Module() = nil, want an error: join's use of %0 is not dominated on the right path")
	}
}

func TestModuleWarnsOnUnreachableBlock(t *testing.T) {
	m := il.NewModule()
	fn := il.NewFunction("main", il.TVoid(), nil)
	entry := il.NewBlock("entry")
	entry.Append(il.Instr{Op: il.OpRet})
	orphan := il.NewBlock("orphan")
	orphan.Append(il.Instr{Op: il.OpRet})
	fn.AddBlock(entry)
	fn.AddBlock(orphan)
	m.AddFunc(fn)

	sink := diag.NewSink()
	if err := Module(m, sink); err != nil {
		t.Fatalf("Module() = %v, an unreachable block should only warn", err)
	}
	found := false
	for _, d := range sink.Diagnostics() {
		if d.Severity == diag.Warning {
			found = true
		}
	}
	if !found {
		t.Error("expected a warning diagnostic for the unreachable block")
	}
}

func TestModuleRejectsBranchArgArityMismatch(t *testing.T) {
	m := il.NewModule()
	fn := il.NewFunction("main", il.TVoid(), nil)
	b := il.NewBuilder(fn)

	entry := b.CreateBlock("entry")
	target := b.CreateBlock("target")
	target.AddParam("", 0, il.TI32())

	b.SetInsertPoint(entry)
	b.EmitBr(target.Label) // no args, but target wants one

	b.SetInsertPoint(target)
	b.EmitRetVoid()

	m.AddFunc(fn)
	sink := diag.NewSink()
	if err := Module(m, sink); err == nil {
		t.Fatal("Module() = nil, want an arity-mismatch error")
	}
}

func TestModuleRejectsUnresolvedCall(t *testing.T) {
	m := il.NewModule()
	fn := il.NewFunction("main", il.TVoid(), nil)
	b := il.NewBuilder(fn)
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)
	b.EmitCall("rt_does_not_exist", il.TVoid())
	b.EmitRetVoid()
	m.AddFunc(fn)

	sink := diag.NewSink()
	if err := Module(m, sink); err == nil {
		t.Fatal("Module() = nil, want an error for an unresolved call symbol")
	}
}
