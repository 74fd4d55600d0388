package ilanalysis

import (
	"testing"

	"github.com/viperlang/viper/pkg/il"
)

// buildDiamond builds:
//
//	entry -> left, right
//	left -> join
//	right -> join
//	join -> ret
func buildDiamond() *il.Function {
	fn := il.NewFunction("diamond", il.TI32(), []il.FuncParam{{Name: "c", Type: il.TI1()}})
	b := il.NewBuilder(fn)

	entry := b.CreateBlock("entry")
	entry.AddParam("c", 0, il.TI1())
	left := b.CreateBlock("left")
	right := b.CreateBlock("right")
	join := b.CreateBlock("join")

	b.SetInsertPoint(entry)
	b.EmitCBr(il.VTemp(0), left.Label, nil, right.Label, nil)

	b.SetInsertPoint(left)
	b.EmitBr(join.Label)

	b.SetInsertPoint(right)
	b.EmitBr(join.Label)

	b.SetInsertPoint(join)
	b.EmitRet(il.VInt(0))

	return fn
}

// buildLoop builds a single natural loop:
//
//	entry -> header
//	header -> body, exit   (cbr)
//	body -> header          (back-edge)
func buildLoop() *il.Function {
	fn := il.NewFunction("loopy", il.TVoid(), nil)
	b := il.NewBuilder(fn)

	entry := b.CreateBlock("entry")
	header := b.CreateBlock("header")
	header.AddParam("", 0, il.TI1())
	body := b.CreateBlock("body")
	exit := b.CreateBlock("exit")

	b.SetInsertPoint(entry)
	b.EmitBr(header.Label, il.VBool(true))

	b.SetInsertPoint(header)
	b.EmitCBr(il.VTemp(0), body.Label, nil, exit.Label, nil)

	b.SetInsertPoint(body)
	b.EmitBr(header.Label, il.VBool(false))

	b.SetInsertPoint(exit)
	b.EmitRetVoid()

	return fn
}

func TestCFGSuccessorsAndPredecessors(t *testing.T) {
	fn := buildDiamond()
	c := BuildCFG(fn)

	if got := c.Successors("entry"); len(got) != 2 {
		t.Errorf("entry successors = %v, want 2", got)
	}
	if got := c.Predecessors("join"); len(got) != 2 {
		t.Errorf("join predecessors = %v, want 2", got)
	}
	if c.Entry() != "entry" {
		t.Errorf("Entry() = %q, want entry", c.Entry())
	}
}

func TestPostOrderCoversReachableOnly(t *testing.T) {
	fn := buildDiamond()
	c := BuildCFG(fn)

	reach := c.Reachable()
	po := c.PostOrder()
	if len(po) != len(reach) {
		t.Fatalf("len(PostOrder())=%d != len(Reachable())=%d", len(po), len(reach))
	}
	if po[len(po)-1] != "entry" {
		t.Errorf("postorder should end at entry, got %v", po)
	}
}

func TestReversePostOrderStartsAtEntry(t *testing.T) {
	fn := buildDiamond()
	c := BuildCFG(fn)

	rpo := c.ReversePostOrder()
	if len(rpo) == 0 || rpo[0] != "entry" {
		t.Errorf("ReversePostOrder() = %v, want to start at entry", rpo)
	}
}

func TestTopoOrderAcyclic(t *testing.T) {
	fn := buildDiamond()
	c := BuildCFG(fn)

	order := c.TopoOrder()
	if order == nil {
		t.Fatal("TopoOrder() = nil for an acyclic diamond")
	}
	pos := make(map[string]int, len(order))
	for i, l := range order {
		pos[l] = i
	}
	if pos["entry"] > pos["left"] || pos["entry"] > pos["right"] {
		t.Error("entry must precede left and right")
	}
	if pos["left"] > pos["join"] || pos["right"] > pos["join"] {
		t.Error("left and right must precede join")
	}
}

func TestTopoOrderNilOnCycle(t *testing.T) {
	fn := buildLoop()
	c := BuildCFG(fn)
	if order := c.TopoOrder(); order != nil {
		t.Errorf("TopoOrder() on a cyclic CFG = %v, want nil", order)
	}
}

func TestDomTreeDiamond(t *testing.T) {
	fn := buildDiamond()
	c := BuildCFG(fn)
	dom := BuildDomTree(c)

	if idom, ok := dom.IDom("entry"); !ok || idom != "entry" {
		t.Errorf("IDom(entry) = %q, %v; want entry, true", idom, ok)
	}
	if idom, ok := dom.IDom("join"); !ok || idom != "entry" {
		t.Errorf("IDom(join) = %q, %v; want entry, true (left/right don't dominate join individually)", idom, ok)
	}
	if !dom.Dominates("entry", "join") {
		t.Error("entry should dominate join")
	}
	if !dom.Dominates("join", "join") {
		t.Error("Dominates should be reflexive")
	}
	if dom.Dominates("left", "right") {
		t.Error("left should not dominate right")
	}
}

func TestDomTreeUnreachable(t *testing.T) {
	fn := buildDiamond()
	// An orphan block with no predecessor is never reached by the CFG walk.
	orphan := il.NewBlock("orphan")
	orphan.Append(il.Instr{Op: il.OpRet})
	fn.AddBlock(orphan)

	c := BuildCFG(fn)
	dom := BuildDomTree(c)
	unreachable := dom.Unreachable(c)
	found := false
	for _, l := range unreachable {
		if l == "orphan" {
			found = true
		}
	}
	if !found {
		t.Errorf("Unreachable() = %v, want to include orphan", unreachable)
	}
}

func TestLoopInfoHeaderAndLatch(t *testing.T) {
	fn := buildLoop()
	c := BuildCFG(fn)
	dom := BuildDomTree(c)
	info := BuildLoopInfo(c, dom)

	loop, ok := info.ByHeader["header"]
	if !ok {
		t.Fatalf("ByHeader missing loop for header, got %v", info.ByHeader)
	}
	if len(loop.Latches) != 1 || loop.Latches[0] != "body" {
		t.Errorf("Latches = %v, want [body]", loop.Latches)
	}
	if !loop.Blocks["header"] || !loop.Blocks["body"] {
		t.Errorf("loop body = %v, want to include header and body", loop.Blocks)
	}
	if loop.Blocks["exit"] {
		t.Error("exit must not be part of the loop body")
	}

	foundExit := false
	for _, e := range loop.Exits {
		if e.From == "header" && e.To == "exit" {
			foundExit = true
		}
	}
	if !foundExit {
		t.Errorf("Exits = %v, want an edge header->exit", loop.Exits)
	}

	if got := info.LoopFor("body"); got != loop {
		t.Error("LoopFor(body) should return the loop")
	}
	if got := info.LoopFor("entry"); got != nil {
		t.Errorf("LoopFor(entry) = %v, want nil", got)
	}
	if loop.Depth() != 1 {
		t.Errorf("Depth() = %d, want 1", loop.Depth())
	}
}
