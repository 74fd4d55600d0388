package passes

import (
	"testing"

	"github.com/viperlang/viper/pkg/il"
)

// buildPromotable constructs the spec's canonical promotable local:
//
//	%0 = alloca i32
//	store %0, 7
//	%1 = load %0
//	ret %1
func buildPromotable() *il.Module {
	m := il.NewModule()
	fn := il.NewFunction("main", il.TI32(), nil)
	b := il.NewBuilder(fn)
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)
	ptr := b.EmitValue(il.OpAlloca, il.TPtr(), il.VInt(4))
	b.EmitVoid(il.OpStore, ptr, il.VInt(7))
	loaded := b.EmitValue(il.OpLoad, il.TI32(), ptr)
	b.EmitRet(loaded)
	m.AddFunc(fn)
	return m
}

func countOp(fn *il.Function, op il.Opcode) int {
	n := 0
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if instr.Op == op {
				n++
			}
		}
	}
	return n
}

func TestMem2RegPromotesStraightLineAlloca(t *testing.T) {
	m := buildPromotable()
	ok, err := Mem2Reg(m)
	if err != nil || !ok {
		t.Fatalf("Mem2Reg() = %v, %v", ok, err)
	}
	fn := m.Func("main")
	if n := countOp(fn, il.OpAlloca); n != 0 {
		t.Errorf("alloca count after Mem2Reg = %d, want 0", n)
	}
	if n := countOp(fn, il.OpLoad); n != 0 {
		t.Errorf("load count after Mem2Reg = %d, want 0", n)
	}
	if n := countOp(fn, il.OpStore); n != 0 {
		t.Errorf("store count after Mem2Reg = %d, want 0", n)
	}

	entry := fn.Blocks[0]
	ret := entry.Terminator()
	if ret == nil || ret.Op != il.OpRet {
		t.Fatalf("expected a ret terminator, got %+v", ret)
	}
	if ret.Operands[0].Kind != il.ValIntLit || ret.Operands[0].Int != 7 {
		t.Errorf("ret operand = %+v, want the literal 7 substituted in directly", ret.Operands[0])
	}
}

// buildAddressTakenAlloca builds an alloca whose pointer escapes through a
// call argument, which must block promotion (spec.md §8's
// "non-promotable: address taken" case).
func buildAddressTakenAlloca() *il.Module {
	m := il.NewModule()
	m.AddExtern(il.Extern{Name: "rt_use_ptr", Ret: il.TVoid(), Params: []il.Type{il.TPtr()}})
	fn := il.NewFunction("main", il.TVoid(), nil)
	b := il.NewBuilder(fn)
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)
	ptr := b.EmitValue(il.OpAlloca, il.TPtr(), il.VInt(4))
	b.EmitVoid(il.OpStore, ptr, il.VInt(7))
	b.EmitCall("rt_use_ptr", il.TVoid(), ptr)
	b.EmitRetVoid()
	m.AddFunc(fn)
	return m
}

func TestMem2RegLeavesAddressTakenAllocaAlone(t *testing.T) {
	m := buildAddressTakenAlloca()
	if _, err := Mem2Reg(m); err != nil {
		t.Fatalf("Mem2Reg() failed: %v", err)
	}
	fn := m.Func("main")
	if n := countOp(fn, il.OpAlloca); n != 1 {
		t.Errorf("address-taken alloca should survive, got %d allocas", n)
	}
}
