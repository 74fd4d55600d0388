package vm

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/viperlang/viper/pkg/il"
	"github.com/viperlang/viper/pkg/rtbridge"
)

func newTestVM(mod *il.Module) *VM {
	rt := rtbridge.NewRuntime(&bytes.Buffer{}, strings.NewReader(""))
	bridge := rtbridge.NewDispatcher(rtbridge.NewDefaultRegistry(), rt)
	return NewVM(mod, bridge)
}

// TestAddWrapsOnOverflow exercises spec.md §8's wrapping-add-vs-IAddOvf
// pair: plain Add silently wraps past MaxInt64.
func TestAddWrapsOnOverflow(t *testing.T) {
	m := il.NewModule()
	fn := il.NewFunction("main", il.TI64(), nil)
	b := il.NewBuilder(fn)
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)
	sum := b.EmitValue(il.OpAdd, il.TI64(), il.VInt(math.MaxInt64), il.VInt(1))
	cmp := b.EmitValue(il.OpICmpEq, il.TI1(), sum, il.VInt(math.MinInt64))
	wrapped := b.EmitValue(il.OpZext1, il.TI64(), cmp)
	b.EmitRet(wrapped)
	m.AddFunc(fn)

	vm := newTestVM(m)
	code, err := vm.CallMain("main")
	if err != nil {
		t.Fatalf("CallMain() = %v", err)
	}
	if code != 1 {
		t.Errorf("MaxInt64+1 should wrap to MinInt64, code=%d", code)
	}
}

func TestIAddOvfTrapsOnOverflow(t *testing.T) {
	m := il.NewModule()
	fn := il.NewFunction("main", il.TI64(), nil)
	b := il.NewBuilder(fn)
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)
	sum := b.EmitValue(il.OpIAddOvf, il.TI64(), il.VInt(math.MaxInt64), il.VInt(1))
	b.EmitRet(sum)
	m.AddFunc(fn)

	vm := newTestVM(m)
	_, err := vm.CallMain("main")
	if err == nil {
		t.Fatal("CallMain() = nil, want an unhandled Overflow trap")
	}
	if vm.LastTrap == nil || vm.LastTrap.Kind != il.TrapOverflow {
		t.Errorf("LastTrap = %+v, want Kind=Overflow", vm.LastTrap)
	}
}

// TestSDivChk0UnhandledTrap covers divide-by-zero with no EH handler
// installed: the VM terminates with a DivideByZero diagnostic.
func TestSDivChk0UnhandledTrap(t *testing.T) {
	m := il.NewModule()
	fn := il.NewFunction("main", il.TI64(), nil)
	b := il.NewBuilder(fn)
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)
	q := b.EmitValue(il.OpSDivChk0, il.TI64(), il.VInt(10), il.VInt(0))
	b.EmitRet(q)
	m.AddFunc(fn)

	vm := newTestVM(m)
	_, err := vm.CallMain("main")
	if err == nil {
		t.Fatal("CallMain() = nil, want an unhandled DivideByZero trap")
	}
	if vm.LastTrap == nil || vm.LastTrap.Kind != il.TrapDivideByZero {
		t.Errorf("LastTrap = %+v, want Kind=DivideByZero", vm.LastTrap)
	}
}

// TestSDivChk0HandledByEH covers the same fault with an EH handler
// installed: control transfers to the handler block instead of
// terminating the process (spec.md §4.6.5).
func TestSDivChk0HandledByEH(t *testing.T) {
	m := il.NewModule()
	fn := il.NewFunction("main", il.TI64(), nil)
	b := il.NewBuilder(fn)

	entry := b.CreateBlock("entry")
	handler := b.CreateBlock("handler")
	errTemp := b.Fresh()
	tokTemp := b.Fresh()
	handler.AddParam("e", errTemp, il.TError())
	handler.AddParam("tok", tokTemp, il.TResumeTok())

	b.SetInsertPoint(entry)
	b.EmitEhPush(handler.Label)
	q := b.EmitValue(il.OpSDivChk0, il.TI64(), il.VInt(10), il.VInt(0))
	b.EmitRet(q)

	b.SetInsertPoint(handler)
	b.EmitRet(il.VInt(42))

	m.AddFunc(fn)
	vm := newTestVM(m)
	code, err := vm.CallMain("main")
	if err != nil {
		t.Fatalf("CallMain() = %v, want the handler to recover", err)
	}
	if code != 42 {
		t.Errorf("code = %d, want 42 (handler's return value)", code)
	}
}

// TestSwitchDispatch exercises SwitchI32 picking the matching case and
// falling through to the default for an unmatched scrutinee.
func TestSwitchDispatch(t *testing.T) {
	m := il.NewModule()
	fn := il.NewFunction("main", il.TI64(), []il.FuncParam{{Name: "x", Type: il.TI32()}})
	b := il.NewBuilder(fn)

	entry := b.CreateBlock("entry")
	entry.AddParam("x", 0, il.TI32())
	caseA := b.CreateBlock("caseA")
	caseB := b.CreateBlock("caseB")
	def := b.CreateBlock("default")

	b.SetInsertPoint(entry)
	b.EmitSwitch(il.VTemp(0), def.Label, nil, []il.SwitchCase{
		{Value: 1, Target: caseA.Label},
		{Value: 2, Target: caseB.Label},
	})

	b.SetInsertPoint(caseA)
	b.EmitRet(il.VInt(100))
	b.SetInsertPoint(caseB)
	b.EmitRet(il.VInt(200))
	b.SetInsertPoint(def)
	b.EmitRet(il.VInt(999))

	m.AddFunc(fn)

	for _, tc := range []struct {
		x    int64
		want int
	}{
		{1, 100},
		{2, 200},
		{3, 999},
	} {
		vm := newTestVM(m)
		code, err := vm.CallMain("main", il.VInt(tc.x))
		if err != nil {
			t.Fatalf("CallMain(%d) = %v", tc.x, err)
		}
		if code != tc.want {
			t.Errorf("CallMain(%d) = %d, want %d", tc.x, code, tc.want)
		}
	}
}

// TestTailCallReusesFrame exercises spec.md §4.6.4: a self-tail-recursive
// count-down never grows the frame stack past one entry when
// TailCallEnabled, but does grow one frame per call otherwise.
func buildCountdown() *il.Module {
	m := il.NewModule()
	fn := il.NewFunction("countdown", il.TI64(), []il.FuncParam{{Name: "n", Type: il.TI64()}})
	b := il.NewBuilder(fn)

	entry := b.CreateBlock("entry")
	entry.AddParam("n", 0, il.TI64())
	base := b.CreateBlock("base")
	recurse := b.CreateBlock("recurse")

	b.SetInsertPoint(entry)
	isZero := b.EmitValue(il.OpICmpEq, il.TI1(), il.VTemp(0), il.VInt(0))
	b.EmitCBr(isZero, base.Label, nil, recurse.Label, nil)

	b.SetInsertPoint(base)
	b.EmitRet(il.VInt(0))

	b.SetInsertPoint(recurse)
	nMinus1 := b.EmitValue(il.OpSub, il.TI64(), il.VTemp(0), il.VInt(1))
	call := b.EmitCall("countdown", il.TI64(), nMinus1)
	b.EmitRet(call)

	m.AddFunc(fn)
	return m
}

func TestTailCallReusesFrame(t *testing.T) {
	m := buildCountdown()
	vm := newTestVM(m)
	vm.TailCallEnabled = true

	maxFrames := 0
	vm.InterruptEveryN = 1
	vm.PollCallback = func() bool {
		if len(vm.frames) > maxFrames {
			maxFrames = len(vm.frames)
		}
		return true
	}

	code, err := vm.CallMain("countdown", il.VInt(500))
	if err != nil {
		t.Fatalf("CallMain() = %v", err)
	}
	if code != 0 {
		t.Errorf("code = %d, want 0", code)
	}
	if maxFrames != 1 {
		t.Errorf("maxFrames = %d, want 1 with tail-call reuse enabled", maxFrames)
	}
}

func TestTailCallDisabledGrowsStack(t *testing.T) {
	m := buildCountdown()
	vm := newTestVM(m)
	vm.TailCallEnabled = false

	maxFrames := 0
	vm.InterruptEveryN = 1
	vm.PollCallback = func() bool {
		if len(vm.frames) > maxFrames {
			maxFrames = len(vm.frames)
		}
		return true
	}

	code, err := vm.CallMain("countdown", il.VInt(10))
	if err != nil {
		t.Fatalf("CallMain() = %v", err)
	}
	if code != 0 {
		t.Errorf("code = %d, want 0", code)
	}
	if maxFrames <= 1 {
		t.Errorf("maxFrames = %d, want >1 without tail-call reuse", maxFrames)
	}
}

// TestAddrOfLoadRoundTrip covers alloca/store/load through the frame
// arena: storing then loading the same address returns the stored value
// unchanged.
func TestAddrOfLoadRoundTrip(t *testing.T) {
	m := il.NewModule()
	fn := il.NewFunction("main", il.TI32(), nil)
	b := il.NewBuilder(fn)
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)
	ptr := b.EmitValue(il.OpAlloca, il.TPtr(), il.VInt(4))
	alias := b.EmitValue(il.OpAddrOf, il.TPtr(), ptr)
	b.EmitVoid(il.OpStore, ptr, il.VInt(7))
	loaded := b.EmitValue(il.OpLoad, il.TI32(), alias)
	b.EmitRet(loaded)
	m.AddFunc(fn)

	vm := newTestVM(m)
	code, err := vm.CallMain("main")
	if err != nil {
		t.Fatalf("CallMain() = %v", err)
	}
	if code != 7 {
		t.Errorf("code = %d, want 7 (the value stored through the original pointer)", code)
	}
}

func TestLoadNullTraps(t *testing.T) {
	m := il.NewModule()
	fn := il.NewFunction("main", il.TI32(), nil)
	b := il.NewBuilder(fn)
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)
	loaded := b.EmitValue(il.OpLoad, il.TI32(), il.VNull())
	b.EmitRet(loaded)
	m.AddFunc(fn)

	vm := newTestVM(m)
	_, err := vm.CallMain("main")
	if err == nil {
		t.Fatal("CallMain() = nil, want a Null trap on loading through a null pointer")
	}
	if vm.LastTrap == nil || vm.LastTrap.Kind != il.TrapNull {
		t.Errorf("LastTrap = %+v, want Kind=Null", vm.LastTrap)
	}
}
