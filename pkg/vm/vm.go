package vm

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/viperlang/viper/pkg/il"
	"github.com/viperlang/viper/pkg/rtbridge"
)

// Status is the VM's externally observable run state (spec.md §5).
type Status int

const (
	StatusRunning Status = iota
	StatusPaused
	StatusBreak
	StatusTrapped
	StatusDone
)

// VM executes one il.Module on a single thread (spec.md §4.6, §5). Multiple
// independent VM instances may run in parallel provided each owns its own
// Module, frame stack, and Runtime (spec.md §5); sharing any of those
// across goroutines is undefined, matching the source system's
// single-threaded assumption.
type VM struct {
	Module  *il.Module
	Bridge  *rtbridge.Dispatcher
	Runtime *rtbridge.Runtime

	// TailCallEnabled opts into frame reuse for a Call immediately
	// followed by a matching Ret (spec.md §4.6.4).
	TailCallEnabled bool

	// InterruptEveryN, if > 0, invokes PollCallback every N instructions;
	// a false return pauses the VM at the next instruction boundary
	// (spec.md §5).
	InterruptEveryN int
	PollCallback    func() bool

	Trace    TraceMode
	TraceOut io.Writer

	// Sources resolves .loc file ids to paths for --trace=src and the
	// debugger's path:line breakpoints (SPEC_FULL.md §3).
	Sources *il.SourceManager

	Debugger *Debugger

	Watches []string

	frames []*frame
	cur    int // index of the current (top) frame in frames; -1 when empty
	side   *sideTables

	status   Status
	exitCode int64

	// Counters for --count/--time (SPEC_FULL.md §3).
	InstrCount, CallCount, TrapCount int

	// LastTrap records the most recent unhandled trap for --dump-trap.
	LastTrap *UnhandledTrap
}

// UnhandledTrap carries everything cmd/run-il's --dump-trap flag prints.
type UnhandledTrap struct {
	Kind     il.TrapKind
	Message  string
	HasMsg   bool
	Func     string
	Block    string
	InstrIdx int
	Line     int
}

// NewVM wires mod to a runtime bridge. The caller constructs the Runtime
// and Dispatcher so stdout/stdin, the RNG seed, and the helper registry can
// be configured before the first instruction runs.
func NewVM(mod *il.Module, bridge *rtbridge.Dispatcher) *VM {
	return &VM{
		Module:  mod,
		Bridge:  bridge,
		Runtime: bridge.Runtime,
		cur:     -1,
		side:    newSideTables(),
		status:  StatusRunning,
	}
}

// ErrNoSuchFunction is returned by CallMain when the named entry point is
// missing from the module.
var ErrNoSuchFunction = errors.New("vm: no such function")

// CallMain runs fn (normally "main") to completion from a fresh call stack
// and returns its exit code clamped to [0, 255] (spec.md §4.8, §7), or an
// error if the function does not exist or the run ends on an unhandled
// trap (the caller distinguishes the latter via IsTrap).
func (vm *VM) CallMain(fn string, args ...il.Value) (int, error) {
	f := vm.Module.Func(fn)
	if f == nil {
		return 0, errors.Wrapf(ErrNoSuchFunction, "%q", fn)
	}
	entry := f.Entry()
	if entry == nil {
		return 0, errors.Errorf("vm: function %q has no entry block", fn)
	}
	argSlots := make([]Slot, len(args))
	for i, a := range args {
		argSlots[i] = vm.fromValue(nil, a, f.Ret.Kind)
	}
	fr := newFrame(f, -1, 0, false, il.TVoid())
	fr.bindEntry(vm, entry, argSlots)
	vm.frames = []*frame{fr}
	vm.cur = 0

	if err := vm.runLoop(); err != nil {
		return 0, err
	}
	return clampExit(vm.exitCode), nil
}

func clampExit(v int64) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return int(v)
}

// ErrTrapped marks an unhandled-trap termination; cmd/run-il checks
// errors.Is(err, ErrTrapped) to pick exit code 1 and decide whether
// --dump-trap applies.
var ErrTrapped = errors.New("vm: unhandled trap")

// runLoop drives Step until the VM is Done or Paused/Break, surfacing the
// first error (an unhandled trap) to the caller.
func (vm *VM) runLoop() error {
	for {
		switch vm.status {
		case StatusDone:
			return nil
		case StatusPaused, StatusBreak:
			return nil
		}
		if err := vm.Step(); err != nil {
			return err
		}
	}
}

// ContinueRun resumes a Paused VM (spec.md §5 "a paused VM can be resumed
// via continueRun()").
func (vm *VM) ContinueRun() error {
	if vm.status == StatusPaused || vm.status == StatusBreak {
		vm.status = StatusRunning
	}
	return vm.runLoop()
}

func (vm *VM) curFrame() *frame { return vm.frames[vm.cur] }

// Status reports the VM's current terminal/suspended state (spec.md §5),
// for callers (the run-il driver) deciding between a breakpoint, pause,
// and completed-normally exit code after CallMain returns.
func (vm *VM) Status() Status { return vm.status }

// Step executes exactly one instruction, handling polling, breakpoints,
// and tracing around it (spec.md §4.6.2, §5).
func (vm *VM) Step() error {
	if vm.status == StatusDone {
		return nil
	}
	fr := vm.curFrame()
	if fr.IP >= len(fr.Block.Instrs) {
		return errors.Errorf("vm: instruction pointer past end of block '%s'", fr.Block.Label)
	}
	instr := fr.Block.Instrs[fr.IP]

	if vm.Debugger != nil {
		if brk := vm.Debugger.checkBreak(vm, fr, instr); brk {
			vm.status = StatusBreak
			return nil
		}
	}
	vm.traceInstr(fr, instr)

	vm.InstrCount++
	if vm.InterruptEveryN > 0 && vm.PollCallback != nil && vm.InstrCount%vm.InterruptEveryN == 0 {
		if !vm.PollCallback() {
			vm.status = StatusPaused
			return nil
		}
	}

	if err := vm.exec(fr, instr); err != nil {
		return vm.handleTrap(fr, instr, err)
	}
	return nil
}

// handleTrap implements spec.md §4.6.5: consult the current frame's EH
// stack; if non-empty, transfer to the handler with a fresh Error/
// ResumeTok pair; otherwise terminate with a deterministic diagnostic.
func (vm *VM) handleTrap(fr *frame, instr il.Instr, cause error) error {
	sig, ok := cause.(*TrapSignal)
	if !ok {
		return cause // a non-trap error (e.g. a malformed module) always propagates
	}
	vm.TrapCount++

	if len(fr.EH) == 0 {
		vm.status = StatusDone
		vm.LastTrap = &UnhandledTrap{
			Kind: sig.Kind, Message: sig.Msg, HasMsg: sig.HasMsg,
			Func: fr.Fn.Name, Block: fr.Block.Label, InstrIdx: fr.IP, Line: instr.Loc.Line,
		}
		return errors.Wrapf(ErrTrapped, "%s", vm.FormatTrap())
	}

	rec := fr.EH[len(fr.EH)-1]
	fr.EH = fr.EH[:len(fr.EH)-1]
	handler := fr.Fn.Block(rec.Handler)
	if handler == nil {
		return errors.Errorf("vm: EH handler block '%s' does not exist", rec.Handler)
	}

	errID := vm.side.newError(sig.Kind, sig.Msg, sig.HasMsg)
	tokID := vm.side.newToken(vm.cur, fr.Block.Label, fr.IP)

	fr.Block = handler
	fr.IP = 0
	if len(handler.Params) > 0 {
		vm.assign(fr, handler.Params[0].Temp, Slot{Kind: il.Error, Handle: errID})
	}
	if len(handler.Params) > 1 {
		vm.assign(fr, handler.Params[1].Temp, Slot{Kind: il.ResumeTok, Handle: tokID})
	}
	return nil
}

// FormatTrap renders the last unhandled trap in spec.md §4.6.5's canonical
// form: `Trap @function:block#<instr_index> line <src_line>: <Kind>
// (code=<n>)`.
func (vm *VM) FormatTrap() string {
	t := vm.LastTrap
	if t == nil {
		return ""
	}
	return fmt.Sprintf("Trap @%s:%s#%d line %d: %s (code=%d)", t.Func, t.Block, t.InstrIdx, t.Line, t.Kind, t.Kind.Code())
}

// Pending reports whether a trap diagnostic is available without having
// terminated the whole driver (used by --dump-trap).
func (vm *VM) Pending() bool { return vm.LastTrap != nil }

// globalOffset resolves a global label to an arena-independent address.
// Globals live outside any frame's arena; this VM encodes a global address
// as its negative 1-based index into Module.Globals so Load/Store can
// distinguish it from a frame-local Alloca offset (which is always
// positive).
func (vm *VM) globalOffset(label string) int64 {
	for i, g := range vm.Module.Globals {
		if g.Label == label {
			return -int64(i + 1)
		}
	}
	return 0
}

func (vm *VM) globalBlob(offset int64) ([]byte, bool) {
	if offset >= 0 {
		return nil, false
	}
	idx := int(-offset) - 1
	if idx < 0 || idx >= len(vm.Module.Globals) {
		return nil, false
	}
	return vm.Module.Globals[idx].Blob, true
}
