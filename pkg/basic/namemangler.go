package basic

import "strconv"

// NameMangler generates deterministic, collision-free names for IL locals
// during lowering (original_source's NameMangler.hpp): one counter for
// synthetic variable names and one per block-name hint.
//
// Temp ids themselves are allocated by il.Builder.Fresh (grounded on
// rtlgen's RegAllocator, per DESIGN.md); NameMangler only covers the
// human-readable naming BASIC's surface syntax does not already provide —
// mangled names for loop induction copies and other compiler-introduced
// locals.
type NameMangler struct {
	varCounter   int
	blockCounters map[string]int
}

// NewNameMangler returns a mangler with no history.
func NewNameMangler() *NameMangler {
	return &NameMangler{blockCounters: make(map[string]int)}
}

// NextVar returns a fresh synthetic variable name ("__t0", "__t1", ...).
func (m *NameMangler) NextVar() string {
	name := "__t" + strconv.Itoa(m.varCounter)
	m.varCounter++
	return name
}

// Block returns a unique hint for a block name, appending a numeric suffix
// on reuse ("then", "then_1", "then_2", ...). The actual label uniqueness
// guarantee within a function is il.Builder.CreateBlock's job; this only
// keeps hints stable and readable when the same construct shape (e.g. two
// IFs) appears more than once in a procedure.
func (m *NameMangler) Block(hint string) string {
	n := m.blockCounters[hint]
	m.blockCounters[hint]++
	if n == 0 {
		return hint
	}
	return hint + "_" + strconv.Itoa(n)
}
