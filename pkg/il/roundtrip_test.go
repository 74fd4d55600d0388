package il

import "testing"

// buildAddOne constructs @main(x: i32) -> i32 { ret x + 1 } directly through
// the Builder, mirroring the shape exercised across the il-opt tests.
func buildAddOne() *Module {
	m := NewModule()
	fn := NewFunction("main", TI32(), []FuncParam{{Name: "x", Type: TI32()}})
	b := NewBuilder(fn)
	entry := b.CreateBlock("entry")
	entry.AddParam("x", 0, TI32())
	b.SetInsertPoint(entry)
	sum := b.EmitValue(OpAdd, TI32(), VTemp(0), VInt(1))
	b.EmitRet(sum)
	m.AddFunc(fn)
	return m
}

func TestParsePrintRoundTrip(t *testing.T) {
	m := buildAddOne()
	text := Sprint(m)

	got, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse(Sprint(m)) failed: %v", err)
	}

	again := Sprint(got)
	if again != text {
		t.Errorf("round-trip text mismatch:\n--- first ---\n%s\n--- second ---\n%s", text, again)
	}
}

func TestParsePreservesStructure(t *testing.T) {
	m := buildAddOne()
	got, err := Parse(Sprint(m))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	fn := got.Func("main")
	if fn == nil {
		t.Fatal("main function missing after round-trip")
	}
	if len(fn.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(fn.Blocks))
	}
	entry := fn.Blocks[0]
	if !entry.Terminated {
		t.Error("entry block should be terminated")
	}
	last := entry.Terminator()
	if last == nil || last.Op != OpRet {
		t.Errorf("expected a ret terminator, got %+v", last)
	}
}

func TestModuleLookups(t *testing.T) {
	m := buildAddOne()
	m.AddExtern(Extern{Name: "rt_print_str", Ret: TVoid(), Params: []Type{TStr()}})
	m.AddGlobal(Global{Label: "greeting", Blob: []byte("hi")})

	if m.Func("main") == nil {
		t.Error("Func lookup failed")
	}
	if m.Extern("rt_print_str") == nil {
		t.Error("Extern lookup failed")
	}
	if m.Global("greeting") == nil {
		t.Error("Global lookup failed")
	}
	sig, ok := m.Resolve("rt_print_str")
	if !ok || sig.Ret.Kind != Void || len(sig.Params) != 1 {
		t.Errorf("Resolve(rt_print_str) = %+v, %v", sig, ok)
	}
}

func TestFunctionMaxTemp(t *testing.T) {
	m := buildAddOne()
	fn := m.Func("main")
	if got := fn.MaxTemp(); got != 1 {
		t.Errorf("MaxTemp() = %d, want 1", got)
	}
}

func TestTempByNameResolvesBuilderParams(t *testing.T) {
	m := buildAddOne()
	fn := m.Func("main")

	temp, ok := fn.TempByName("x")
	if !ok || temp != 0 {
		t.Errorf("TempByName(x) = %d, %v; want 0, true", temp, ok)
	}

	if _, ok := fn.TempByName("nonexistent"); ok {
		t.Error("TempByName should miss silently for an unbound name")
	}
}

func TestParseKindCaseSensitivity(t *testing.T) {
	tests := []struct {
		tok  string
		want Kind
		ok   bool
	}{
		{"i32", I32, true},
		{"Error", Error, true},
		{"ResumeTok", ResumeTok, true},
		{"bogus", 0, false},
	}
	for _, tc := range tests {
		got, ok := ParseKind(tc.tok)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("ParseKind(%q) = %v, %v; want %v, %v", tc.tok, got, ok, tc.want, tc.ok)
		}
	}
}
