package il

// Param pairs are reused for function parameters; FuncParam keeps the
// name distinct from block Param, though the shapes overlap, because a
// Function's signature is part of its external contract (used by the
// verifier to type-check Call sites) while a block Param is purely an
// internal SSA artefact.
type FuncParam struct {
	Name string
	Type Type
}

// Function is a module-unique named sequence of basic blocks. The first
// block is always the entry block, and its parameters are the function's
// formal parameters (spec.md §3.4).
type Function struct {
	Name   string
	Ret    Type
	Params []FuncParam
	Blocks []*BasicBlock

	nameByTemp map[int]string // lazily maintained, diagnostics only
}

// NewFunction creates an empty function with no blocks.
func NewFunction(name string, ret Type, params []FuncParam) *Function {
	return &Function{Name: name, Ret: ret, Params: params}
}

// Entry returns the function's entry block, or nil if it has none yet.
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// Block looks up a block by label within the function.
func (f *Function) Block(label string) *BasicBlock {
	for _, b := range f.Blocks {
		if b.Label == label {
			return b
		}
	}
	return nil
}

// AddBlock appends a new block; the first call establishes the entry
// block.
func (f *Function) AddBlock(b *BasicBlock) {
	f.Blocks = append(f.Blocks, b)
}

// MaxTemp returns the highest temp id defined anywhere in the function
// (as a block parameter or an instruction result), or -1 if the function
// defines none. The VM sizes a frame's register file to MaxTemp()+1
// (spec.md §4.6.1).
func (f *Function) MaxTemp() int {
	max := -1
	for _, b := range f.Blocks {
		for _, p := range b.Params {
			if p.Temp > max {
				max = p.Temp
			}
		}
		for _, instr := range b.Instrs {
			if instr.HasResult && instr.Result > max {
				max = instr.Result
			}
		}
	}
	return max
}

// TempByName reverse-looks-up a named temp (a block parameter given a
// non-empty name by its producer, e.g. il.Builder callers or a frontend
// that names its block parameters after source variables). Used by the
// VM's --watch support (SPEC_FULL.md §3); returns ok=false for a name the
// function never bound, matching "skipped silently if the name is out of
// scope."
func (f *Function) TempByName(name string) (int, bool) {
	if f.nameByTemp == nil {
		f.NameOf(-1) // force the lazy map to build without requiring a hit
	}
	for temp, n := range f.nameByTemp {
		if n == name {
			return temp, true
		}
	}
	return 0, false
}

// NameOf returns a human-readable name for a temp id, for diagnostics
// only; it falls back to "%tN" when no name was recorded. The map is
// built lazily on first use and cached, matching the teacher's "lazily
// maintained name-by-temp-id map" note (spec.md §3.5).
func (f *Function) NameOf(temp int) string {
	if f.nameByTemp == nil {
		f.nameByTemp = make(map[int]string)
		for _, b := range f.Blocks {
			for _, p := range b.Params {
				if p.Name != "" {
					f.nameByTemp[p.Temp] = p.Name
				}
			}
		}
	}
	if name, ok := f.nameByTemp[temp]; ok {
		return name
	}
	return tempName(temp)
}

func tempName(id int) string {
	return "%t" + itoa(id)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Extern declares a symbol resolved externally (by the runtime bridge or
// at link time).
type Extern struct {
	Name   string
	Ret    Type
	Params []Type
}
