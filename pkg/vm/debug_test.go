package vm

import (
	"bytes"
	"testing"

	"github.com/viperlang/viper/pkg/il"
)

func TestParseBreakSpecForms(t *testing.T) {
	tests := []struct {
		in   string
		want BreakSpec
	}{
		{"entry", BreakSpec{Kind: breakLabel, Label: "entry"}},
		{"main:loop", BreakSpec{Kind: breakFuncLabel, Func: "main", Label: "loop"}},
		{"foo.bas:12", BreakSpec{Kind: breakFileLine, File: "foo.bas", Line: 12}},
	}
	for _, tc := range tests {
		got, err := ParseBreakSpec(tc.in)
		if err != nil {
			t.Fatalf("ParseBreakSpec(%q) = %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseBreakSpec(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

// TestDebuggerBreaksAndReportsWatch drives a two-instruction function under
// a breakpoint on its entry label and confirms the paused VM reports the
// watched parameter's live value.
func TestDebuggerBreaksAndReportsWatch(t *testing.T) {
	m := il.NewModule()
	fn := il.NewFunction("main", il.TI64(), []il.FuncParam{{Name: "x", Type: il.TI64()}})
	b := il.NewBuilder(fn)
	entry := b.CreateBlock("entry")
	entry.AddParam("x", 0, il.TI64())
	b.SetInsertPoint(entry)
	b.EmitRet(il.VTemp(0))
	m.AddFunc(fn)

	vm := newTestVM(m)
	var out bytes.Buffer
	vm.Debugger = &Debugger{
		Out:         &out,
		Breakpoints: []BreakSpec{{Kind: breakLabel, Label: "entry"}},
		Cmds:        []DebugCmd{{Kind: CmdContinue}},
	}
	vm.Watches = []string{"x"}

	code, err := vm.CallMain("main", il.VInt(5))
	if err != nil {
		t.Fatalf("CallMain() = %v", err)
	}
	if code != 5 {
		t.Errorf("code = %d, want 5", code)
	}
	report := out.String()
	if !bytes.Contains(out.Bytes(), []byte("[BREAK]")) {
		t.Errorf("output = %q, want a [BREAK] line", report)
	}
	if !bytes.Contains(out.Bytes(), []byte("[WATCH] x = 5")) {
		t.Errorf("output = %q, want a [WATCH] x = 5 line", report)
	}
}

func TestFormatWatchUnresolvedNameIsFalse(t *testing.T) {
	m := il.NewModule()
	fn := il.NewFunction("main", il.TI64(), nil)
	b := il.NewBuilder(fn)
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)
	b.EmitRet(il.VInt(0))
	m.AddFunc(fn)

	vm := newTestVM(m)
	if _, err := vm.CallMain("main"); err != nil {
		t.Fatalf("CallMain() = %v", err)
	}
	if _, ok := vm.FormatWatch("nope"); ok {
		t.Error("FormatWatch(nope) = true, want false for a name with no bound temp")
	}
}
