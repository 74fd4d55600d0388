package vm

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/viperlang/viper/pkg/il"
)

// breakKind distinguishes the three breakpoint spec forms spec.md §4.8
// accepts: a bare block label (any function), a function:label pair, and a
// source path:line pair.
type breakKind int

const (
	breakLabel breakKind = iota
	breakFuncLabel
	breakFileLine
)

// BreakSpec is one parsed --break/--break-src argument.
type BreakSpec struct {
	Kind  breakKind
	Func  string
	Label string
	File  string
	Line  int
}

// ParseBreakSpec parses one of:
//
//	entry          (bare block label, matches any function)
//	main:loop      (function:label)
//	foo.bas:12     (source path:line)
//
// The form is disambiguated by whether the text after the last colon parses
// as an integer.
func ParseBreakSpec(s string) (BreakSpec, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return BreakSpec{Kind: breakLabel, Label: s}, nil
	}
	head, tail := s[:idx], s[idx+1:]
	if n, err := strconv.Atoi(tail); err == nil {
		return BreakSpec{Kind: breakFileLine, File: head, Line: n}, nil
	}
	return BreakSpec{Kind: breakFuncLabel, Func: head, Label: tail}, nil
}

func (b BreakSpec) matches(fr *frame, instr il.Instr, sources *il.SourceManager) bool {
	switch b.Kind {
	case breakLabel:
		return fr.Block.Label == b.Label && fr.IP == 0
	case breakFuncLabel:
		return fr.Fn.Name == b.Func && fr.Block.Label == b.Label && fr.IP == 0
	case breakFileLine:
		if instr.Loc.Line != b.Line {
			return false
		}
		if sources == nil || b.File == "" {
			return true
		}
		return sources.Path(instr.Loc.FileID) == b.File
	}
	return false
}

// stepMode is the debugger's single-step state machine, entered after a
// scripted step/step-over/step-out command is consumed at a break.
type stepMode int

const (
	stepNone stepMode = iota
	stepInto
	stepOver
	stepOut
)

// DebugCmdKind names the scripted debugger actions spec.md §4.8 supports,
// grounded on the original system's DebugScript FIFO action queue.
type DebugCmdKind int

const (
	CmdContinue DebugCmdKind = iota
	CmdStep
	CmdStepOver
	CmdStepOut
)

// DebugCmd is one queued scripted action; Count applies only to CmdStep
// ("step 3" advances three instructions before the next break).
type DebugCmd struct {
	Kind  DebugCmdKind
	Count int
}

// Debugger drives breakpoint matching and a FIFO queue of scripted
// continue/step commands (spec.md §4.8). Commands are consumed one at a
// time each time execution pauses; an exhausted queue leaves the VM paused
// indefinitely (the driver, or a human, decides what happens next). An
// unrecognised command left in the queue by a caller is simply never
// produced by ParseBreakSpec/DebugCmd's closed Kind set, matching the
// original DebugScript's "unknown commands ignored" behavior at the source
// level (there is nothing left here to misparse).
type Debugger struct {
	Breakpoints []BreakSpec
	Cmds        []DebugCmd
	Sources     *il.SourceManager
	Out         io.Writer

	mode        stepMode
	stepsLeft   int
	targetDepth int
}

// NewDebugger returns a Debugger with no breakpoints and an empty command
// queue (every break pauses indefinitely until Cmds gains an entry).
func NewDebugger(out io.Writer) *Debugger {
	return &Debugger{Out: out}
}

func (d *Debugger) popCmd() (DebugCmd, bool) {
	if len(d.Cmds) == 0 {
		return DebugCmd{}, false
	}
	c := d.Cmds[0]
	d.Cmds = d.Cmds[1:]
	return c, true
}

// checkBreak is called before every instruction executes (vm.Step). It
// returns true to pause the VM at instr without executing it.
func (d *Debugger) checkBreak(vm *VM, fr *frame, instr il.Instr) bool {
	if d.mode != stepNone {
		return d.continueStep(vm, fr, instr)
	}
	if !d.hit(fr, instr) {
		return false
	}
	d.report(vm, fr, instr)
	cmd, ok := d.popCmd()
	if !ok {
		return true
	}
	switch cmd.Kind {
	case CmdContinue:
		return false
	case CmdStep:
		n := cmd.Count
		if n <= 0 {
			n = 1
		}
		d.mode = stepInto
		d.stepsLeft = n
		return false
	case CmdStepOver:
		d.mode = stepOver
		d.targetDepth = len(vm.frames)
		return false
	case CmdStepOut:
		d.mode = stepOut
		d.targetDepth = len(vm.frames)
		return false
	}
	return false
}

// continueStep advances an in-progress step/step-over/step-out until its
// stopping condition is met, then reports a fresh break and returns to
// steady state (awaiting the next queued command).
func (d *Debugger) continueStep(vm *VM, fr *frame, instr il.Instr) bool {
	switch d.mode {
	case stepInto:
		d.stepsLeft--
		if d.stepsLeft > 0 {
			return false
		}
	case stepOver:
		if len(vm.frames) > d.targetDepth {
			return false
		}
	case stepOut:
		if len(vm.frames) >= d.targetDepth {
			return false
		}
	}
	d.mode = stepNone
	d.report(vm, fr, instr)
	cmd, ok := d.popCmd()
	if !ok {
		return true
	}
	switch cmd.Kind {
	case CmdStep:
		n := cmd.Count
		if n <= 0 {
			n = 1
		}
		d.mode = stepInto
		d.stepsLeft = n
	case CmdStepOver:
		d.mode = stepOver
		d.targetDepth = len(vm.frames)
	case CmdStepOut:
		d.mode = stepOut
		d.targetDepth = len(vm.frames)
	}
	return false
}

func (d *Debugger) hit(fr *frame, instr il.Instr) bool {
	for _, b := range d.Breakpoints {
		if b.matches(fr, instr, d.Sources) {
			return true
		}
	}
	return false
}

// report prints the "[BREAK] ..." line and, for every registered watch
// that resolves in the current frame, a following "[WATCH] NAME = <value>"
// line (SPEC_FULL.md §3).
func (d *Debugger) report(vm *VM, fr *frame, instr il.Instr) {
	if d.Out == nil {
		return
	}
	fmt.Fprintf(d.Out, "[BREAK] %s:%s#%d line %d\n", fr.Fn.Name, fr.Block.Label, fr.IP, instr.Loc.Line)
	for _, name := range vm.Watches {
		if line, ok := vm.FormatWatch(name); ok {
			fmt.Fprintf(d.Out, "[WATCH] %s\n", line)
		}
	}
}
