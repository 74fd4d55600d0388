// Package passmgr is the named, ordered pipeline runner over il.Function/
// il.Module transforms (spec.md §4.4). A Manager maps string identifiers to
// Pass callbacks; a Pipeline is an ordered list of identifiers executed in
// turn with optional print-before/verify-after/print-after instrumentation
// hooks.
//
// Grounded on the teacher's cmd/ralph-cc/main.go debugFlags dispatch table
// (a string-keyed registry of independently invocable units), per
// DESIGN.md.
package passmgr

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/viperlang/viper/pkg/diag"
	"github.com/viperlang/viper/pkg/il"
)

// Pass transforms m in place. It returns false to abort the pipeline
// (spec.md §4.4 step 3) and an error when the abort was due to a failure
// rather than a fixed point/no-op decision.
type Pass func(m *il.Module) (bool, error)

// Manager is a registry of named passes.
type Manager struct {
	passes map[string]Pass
	order  []string // registration order, for listing

	// Hooks, each optional (nil means "not installed").
	PrintBefore func(id string, m *il.Module)
	VerifyAfter func(id string, m *il.Module) bool
	PrintAfter  func(id string, m *il.Module)
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{passes: make(map[string]Pass)}
}

// Register adds a pass under id, overwriting any prior registration.
func (mgr *Manager) Register(id string, p Pass) {
	if _, exists := mgr.passes[id]; !exists {
		mgr.order = append(mgr.order, id)
	}
	mgr.passes[id] = p
}

// Names returns every registered pass id in registration order.
func (mgr *Manager) Names() []string { return append([]string(nil), mgr.order...) }

// ErrUnknownPass is wrapped with the offending id via errors.Wrapf.
var ErrUnknownPass = errors.New("passmgr: unknown pass")

// ErrPassAborted marks a pipeline that stopped early because a pass
// (or verify-after hook) returned false without an error — a deliberate
// "nothing left to do" or "verification failed silently" signal.
var ErrPassAborted = errors.New("passmgr: pipeline aborted")

// Run executes the named pipeline in order against m (spec.md §4.4):
//
//  1. look up each id; an unknown id fails fast.
//  2. call PrintBefore(id) if installed.
//  3. execute the pass; a false return aborts the pipeline.
//  4. call VerifyAfter(id) if installed; a false return aborts.
//  5. call PrintAfter(id) if installed.
func (mgr *Manager) Run(pipeline []string, m *il.Module) error {
	for _, id := range pipeline {
		p, ok := mgr.passes[id]
		if !ok {
			return errors.Wrapf(ErrUnknownPass, "%q", id)
		}
		if mgr.PrintBefore != nil {
			mgr.PrintBefore(id, m)
		}
		ok2, err := p(m)
		if err != nil {
			return errors.Wrapf(err, "pass %q failed", id)
		}
		if !ok2 {
			return errors.Wrapf(ErrPassAborted, "pass %q", id)
		}
		if mgr.VerifyAfter != nil {
			if !mgr.VerifyAfter(id, m) {
				return errors.Wrapf(ErrPassAborted, "verify-after pass %q", id)
			}
		}
		if mgr.PrintAfter != nil {
			mgr.PrintAfter(id, m)
		}
	}
	return nil
}

// VerifyHook builds a VerifyAfter hook that runs ilverify against m and
// reports its diagnostics through report, for wiring a Manager's
// `-verify-each` behavior (spec.md §4.8) without passmgr importing ilverify
// directly (ilverify already depends on il; this keeps the dependency
// one-directional and lets callers choose how diagnostics are surfaced).
func VerifyHook(verify func(m *il.Module, sink *diag.Sink) error, report func(sink *diag.Sink)) func(id string, m *il.Module) bool {
	return func(id string, m *il.Module) bool {
		sink := diag.NewSink()
		err := verify(m, sink)
		if sink.Len() > 0 && report != nil {
			report(sink)
		}
		return err == nil
	}
}

// PrintHook builds a PrintBefore/PrintAfter hook that writes the module's
// canonical textual form labeled by pass id, matching `il-opt`'s
// print-before/print-after CLI flags (spec.md §4.4, §6.4).
func PrintHook(label string, write func(header string, m *il.Module)) func(id string, m *il.Module) {
	return func(id string, m *il.Module) {
		write(fmt.Sprintf("; -- %s %s --", label, id), m)
	}
}

// Preset pipelines (spec.md §4.4): O0 is empty (verify-each is opt-in via
// the manager's VerifyAfter hook, not the pipeline itself); O1 promotes
// locals, eliminates dead code, folds constants, and simplifies the CFG;
// O2 adds loop-invariant code motion, global value numbering, and
// instruction combining. Names are advisory per spec.md §4.4 — only the
// observable behavior in spec.md §8 is mandated.
var (
	O0 = []string{}
	O1 = []string{"mem2reg", "dce", "constfold", "simplifycfg"}
	O2 = append(append([]string{}, O1...), "licm", "gvn", "instcombine")
)

// Preset resolves a preset name ("O0"/"O1"/"O2") to its pipeline, or nil if
// name is not a preset (the driver then treats name as an explicit,
// comma-separated pass list; spec.md §4.8).
func Preset(name string) ([]string, bool) {
	switch name {
	case "O0":
		return O0, true
	case "O1":
		return O1, true
	case "O2":
		return O2, true
	}
	return nil, false
}
