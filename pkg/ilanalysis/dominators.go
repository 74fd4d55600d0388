package ilanalysis

// DomTree records each reachable block's immediate dominator, computed via
// the Cooper-Harvey-Kennedy iterative algorithm over reverse-post-order
// (spec.md §4.3): initialize idom(entry) = entry, then repeat
// intersect-based updates over RPO until no idom changes.
type DomTree struct {
	entry    string
	idom     map[string]string
	rpoIndex map[string]int
	children map[string][]string
}

// BuildDomTree computes a DomTree from c. Unreachable blocks have no entry
// in idom (spec.md §3.6 "if a != entry and has no idom, a is unreachable").
func BuildDomTree(c *CFGContext) *DomTree {
	rpo := c.ReversePostOrder()
	d := &DomTree{
		entry:    c.Entry(),
		idom:     make(map[string]string, len(rpo)),
		rpoIndex: make(map[string]int, len(rpo)),
	}
	if d.entry == "" {
		return d
	}
	for i, l := range rpo {
		d.rpoIndex[l] = i
	}
	d.idom[d.entry] = d.entry

	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if b == d.entry {
				continue
			}
			var newIdom string
			first := true
			for _, p := range c.Predecessors(b) {
				if _, ok := d.idom[p]; !ok {
					continue // predecessor not yet processed (or unreachable)
				}
				if first {
					newIdom = p
					first = false
					continue
				}
				newIdom = d.intersect(newIdom, p)
			}
			if first {
				continue // no processed predecessor yet
			}
			if d.idom[b] != newIdom {
				d.idom[b] = newIdom
				changed = true
			}
		}
	}
	d.buildChildren()
	return d
}

func (d *DomTree) intersect(a, b string) string {
	for a != b {
		for d.rpoIndex[a] > d.rpoIndex[b] {
			a = d.idom[a]
		}
		for d.rpoIndex[b] > d.rpoIndex[a] {
			b = d.idom[b]
		}
	}
	return a
}

func (d *DomTree) buildChildren() {
	d.children = make(map[string][]string, len(d.idom))
	for b, p := range d.idom {
		if b == d.entry {
			continue
		}
		d.children[p] = append(d.children[p], b)
	}
}

// IDom returns b's immediate dominator and whether b is reachable (has one).
// idom(entry) is defined to be entry itself, per spec.md §3.6.
func (d *DomTree) IDom(b string) (string, bool) {
	v, ok := d.idom[b]
	return v, ok
}

// Children returns the blocks whose immediate dominator is b.
func (d *DomTree) Children(b string) []string { return d.children[b] }

// Dominates reports whether a dominates b, including the reflexive case
// dominates(a, a) (spec.md §3.6, §8).
func (d *DomTree) Dominates(a, b string) bool {
	if _, ok := d.idom[b]; !ok {
		return false // b unreachable
	}
	for {
		if a == b {
			return true
		}
		if b == d.entry {
			return a == d.entry
		}
		b = d.idom[b]
	}
}

// Unreachable returns every block label with no recorded dominator other
// than the entry block itself.
func (d *DomTree) Unreachable(c *CFGContext) []string {
	var out []string
	for _, l := range c.Blocks() {
		if _, ok := d.idom[l]; !ok {
			out = append(out, l)
		}
	}
	return out
}
