package passmgr

import (
	"testing"

	"github.com/viperlang/viper/pkg/il"
)

// buildPromotable constructs @main() -> i32 with a single promotable
// alloca/store/load triple:
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

func countOps(fn *il.Function, op il.Opcode) int {
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

func TestRunO0LeavesAllocaIntact(t *testing.T) {
	mgr := NewManager()
	mgr.Register("mem2reg", func(m *il.Module) (bool, error) {
		t.Fatal("O0 must not run any registered pass")
		return true, nil
	})
	m := buildPromotable()
	if err := mgr.Run(O0, m); err != nil {
		t.Fatalf("Run(O0) failed: %v", err)
	}
	fn := m.Func("main")
	if countOps(fn, il.OpAlloca) != 1 {
		t.Error("O0 should leave the alloca untouched")
	}
}

func TestRunUnknownPassFails(t *testing.T) {
	mgr := NewManager()
	m := buildPromotable()
	err := mgr.Run([]string{"nonexistent"}, m)
	if err == nil {
		t.Fatal("Run() with an unregistered pass id should fail")
	}
}

func TestRunAbortsOnFalseReturn(t *testing.T) {
	mgr := NewManager()
	calls := 0
	mgr.Register("noop", func(m *il.Module) (bool, error) { calls++; return false, nil })
	mgr.Register("after", func(m *il.Module) (bool, error) { calls++; return true, nil })
	m := buildPromotable()
	err := mgr.Run([]string{"noop", "after"}, m)
	if err == nil {
		t.Fatal("Run() should report ErrPassAborted")
	}
	if calls != 1 {
		t.Errorf("pipeline should stop after the aborting pass, calls=%d", calls)
	}
}

func TestPresetNames(t *testing.T) {
	if _, ok := Preset("O0"); !ok {
		t.Error("Preset(O0) should resolve")
	}
	if _, ok := Preset("O3"); ok {
		t.Error("Preset(O3) should not resolve")
	}
}
