// Package ilanalysis computes control-flow, dominance, and loop structure
// over an il.Function: successor/predecessor maps, reverse-post-order and
// topological traversal, a dominator tree, and a loop forest (spec.md §3.6,
// §4.3).
//
// Grounded on the teacher's pkg/linearize (CFG-to-linear-order) and
// pkg/rtlgen/cfg.go (explicit node/edge bookkeeping during lowering); the
// dominator algorithm itself follows the Cooper-Harvey-Kennedy iterative
// scheme spec.md §4.3 names, structurally grounded on how
// golang.org/x/tools/go/ssa's Function/BasicBlock carry Preds/Succs slices
// per block rather than resolving a pointer graph lazily.
package ilanalysis

import "github.com/viperlang/viper/pkg/il"

// CFGContext caches, per block, the successor and predecessor label lists
// of one function. It must be rebuilt after any structural mutation of the
// function (spec.md §3.6, §9).
type CFGContext struct {
	fn    *il.Function
	succ  map[string][]string
	pred  map[string][]string
	order []string // block labels in declaration order, cached for determinism
}

// BuildCFG derives a CFGContext from fn's current terminators.
func BuildCFG(fn *il.Function) *CFGContext {
	c := &CFGContext{
		fn:   fn,
		succ: make(map[string][]string, len(fn.Blocks)),
		pred: make(map[string][]string, len(fn.Blocks)),
	}
	for _, b := range fn.Blocks {
		c.order = append(c.order, b.Label)
		c.succ[b.Label] = append([]string(nil), b.Successors()...)
	}
	for _, b := range fn.Blocks {
		for _, s := range c.succ[b.Label] {
			c.pred[s] = append(c.pred[s], b.Label)
		}
	}
	return c
}

// Func returns the function this context was built over.
func (c *CFGContext) Func() *il.Function { return c.fn }

// Successors returns the successor labels of block label.
func (c *CFGContext) Successors(label string) []string { return c.succ[label] }

// Predecessors returns the predecessor labels of block label.
func (c *CFGContext) Predecessors(label string) []string { return c.pred[label] }

// Blocks returns every block label in declaration order.
func (c *CFGContext) Blocks() []string { return c.order }

// Entry returns the entry block's label, or "" if the function has none.
func (c *CFGContext) Entry() string {
	if e := c.fn.Entry(); e != nil {
		return e.Label
	}
	return ""
}

// postorder performs a DFS from entry, appending each label the first time
// its subtree is fully explored (entry is thus last).
func (c *CFGContext) postorder() []string {
	entry := c.Entry()
	if entry == "" {
		return nil
	}
	visited := make(map[string]bool, len(c.order))
	var out []string
	var visit func(string)
	visit = func(label string) {
		if visited[label] {
			return
		}
		visited[label] = true
		for _, s := range c.succ[label] {
			visit(s)
		}
		out = append(out, label)
	}
	visit(entry)
	return out
}

// PostOrder returns blocks reachable from entry in DFS postorder (entry
// last). Unreachable blocks are excluded (spec.md §8 "|postOrder(F)| ==
// |reachable(F)|").
func (c *CFGContext) PostOrder() []string { return c.postorder() }

// ReversePostOrder returns PostOrder reversed (entry first), the standard
// forward-analysis traversal order.
func (c *CFGContext) ReversePostOrder() []string {
	po := c.postorder()
	rpo := make([]string, len(po))
	for i, l := range po {
		rpo[len(po)-1-i] = l
	}
	return rpo
}

// Reachable returns the set of block labels reachable from entry.
func (c *CFGContext) Reachable() map[string]bool {
	po := c.postorder()
	set := make(map[string]bool, len(po))
	for _, l := range po {
		set[l] = true
	}
	return set
}

// IsAcyclic reports whether the CFG (restricted to reachable blocks) has no
// cycles.
func (c *CFGContext) IsAcyclic() bool {
	return c.TopoOrder() != nil || len(c.Reachable()) == 0
}

// TopoOrder returns a topological order of reachable blocks via Kahn's
// algorithm, or nil if the reachable subgraph has a cycle (spec.md §4.3,
// §8).
func (c *CFGContext) TopoOrder() []string {
	reach := c.Reachable()
	indeg := make(map[string]int, len(reach))
	for l := range reach {
		indeg[l] = 0
	}
	for l := range reach {
		for _, s := range c.succ[l] {
			if reach[s] {
				indeg[s]++
			}
		}
	}
	// Seed the queue from declaration order for determinism.
	var queue []string
	for _, l := range c.order {
		if reach[l] && indeg[l] == 0 {
			queue = append(queue, l)
		}
	}
	var out []string
	for len(queue) > 0 {
		l := queue[0]
		queue = queue[1:]
		out = append(out, l)
		for _, s := range c.succ[l] {
			if !reach[s] {
				continue
			}
			indeg[s]--
			if indeg[s] == 0 {
				queue = append(queue, s)
			}
		}
	}
	if len(out) != len(reach) {
		return nil
	}
	return out
}
