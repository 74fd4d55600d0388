package il

// Version is the textual IL format's `il <major>.<minor>.<patch>` header
// (spec.md §4.1).
type Version struct {
	Major, Minor, Patch int
}

// CurrentVersion is the version this package reads and writes.
var CurrentVersion = Version{1, 0, 0}

// Global is an inline initialized byte blob bound to a module-unique
// label (spec.md §3.5).
type Global struct {
	Label string
	Blob  []byte
}

// Module owns a set of externs, functions, and global blobs exclusively;
// references between them are by name, never by pointer, so structural
// edits (adding/removing a function) never invalidate another function's
// view of the module (spec.md §3.5, §9).
type Module struct {
	Version Version
	Externs []Extern
	Funcs   []*Function
	Globals []Global
}

// NewModule creates an empty module stamped with CurrentVersion.
func NewModule() *Module {
	return &Module{Version: CurrentVersion}
}

// Func looks up a function by name.
func (m *Module) Func(name string) *Function {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Extern looks up an extern declaration by name.
func (m *Module) Extern(name string) *Extern {
	for i := range m.Externs {
		if m.Externs[i].Name == name {
			return &m.Externs[i]
		}
	}
	return nil
}

// Global looks up a global blob by label.
func (m *Module) Global(label string) *Global {
	for i := range m.Globals {
		if m.Globals[i].Label == label {
			return &m.Globals[i]
		}
	}
	return nil
}

// AddExtern appends an extern declaration.
func (m *Module) AddExtern(e Extern) { m.Externs = append(m.Externs, e) }

// AddFunc appends a function.
func (m *Module) AddFunc(f *Function) { m.Funcs = append(m.Funcs, f) }

// AddGlobal appends a global blob.
func (m *Module) AddGlobal(g Global) { m.Globals = append(m.Globals, g) }

// Signature describes a callable thing (Extern or Function) for the
// verifier's Call type-checking (spec.md §4.2 rule 3).
type Signature struct {
	Ret    Type
	Params []Type
}

// Resolve looks up the signature of a call callee by name, checking
// functions before externs (functions and externs share one namespace in
// well-formed modules; spec.md does not define shadowing rules, so first
// match wins deterministically).
func (m *Module) Resolve(name string) (Signature, bool) {
	if f := m.Func(name); f != nil {
		params := make([]Type, len(f.Params))
		for i, p := range f.Params {
			params[i] = p.Type
		}
		return Signature{Ret: f.Ret, Params: params}, true
	}
	if e := m.Extern(name); e != nil {
		return Signature{Ret: e.Ret, Params: append([]Type(nil), e.Params...)}, true
	}
	return Signature{}, false
}
