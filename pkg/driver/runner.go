package driver

import (
	"fmt"
	"io"
	"time"

	"github.com/kr/pretty"

	"github.com/viperlang/viper/pkg/il"
	"github.com/viperlang/viper/pkg/rtbridge"
	"github.com/viperlang/viper/pkg/vm"
)

// RunOptions configures one run-il invocation (spec.md §6.4).
type RunOptions struct {
	Entry           string // defaults to "main"
	Trace           vm.TraceMode
	StdinFrom       io.Reader
	MaxSteps        int // 0 means unlimited
	Breakpoints     []vm.BreakSpec
	Watches         []string
	Count           bool
	Time            bool
	DumpTrap        bool
	DebugCmds       []vm.DebugCmd
	TailCallEnabled bool
}

// RunResult carries everything cmd/run-il needs to pick an exit code and
// print its final diagnostics (spec.md §6.4, §7).
type RunResult struct {
	ExitCode     int
	Broke        bool // stopped at a [BREAK] (exit code 10)
	Trapped      bool // stopped on an unhandled trap (exit code 1)
	TrapMessage  string
	MaxStepsHit  bool
	Machine      *vm.VM
}

// Run executes mod's entry function under opts, writing program stdout to
// stdout and trace/debug/trap diagnostics to errOut (spec.md §4.8's
// "registers runtime helpers and invokes the VM on function @main").
func Run(mod *il.Module, sources *il.SourceManager, opts RunOptions, stdout io.Writer, errOut io.Writer) RunResult {
	entry := opts.Entry
	if entry == "" {
		entry = "main"
	}
	stdin := opts.StdinFrom
	if stdin == nil {
		stdin = emptyReader{}
	}
	rt := rtbridge.NewRuntime(stdout, stdin)
	bridge := rtbridge.NewDispatcher(rtbridge.NewDefaultRegistry(), rt)
	m := vm.NewVM(mod, bridge)
	m.TailCallEnabled = opts.TailCallEnabled
	m.Trace = opts.Trace
	m.TraceOut = errOut
	m.Sources = sources
	m.Watches = opts.Watches

	if len(opts.Breakpoints) > 0 || len(opts.DebugCmds) > 0 {
		dbg := vm.NewDebugger(errOut)
		dbg.Breakpoints = opts.Breakpoints
		dbg.Cmds = opts.DebugCmds
		dbg.Sources = sources
		m.Debugger = dbg
	}

	if opts.MaxSteps > 0 {
		limit := opts.MaxSteps
		m.InterruptEveryN = 1
		m.PollCallback = func() bool { return m.InstrCount < limit }
	}

	start := time.Now()
	code, err := m.CallMain(entry)
	elapsed := time.Since(start)

	res := RunResult{ExitCode: code, Machine: m}
	switch {
	case err != nil:
		res.Trapped = true
		res.TrapMessage = m.FormatTrap()
		fmt.Fprintln(errOut, res.TrapMessage)
		res.ExitCode = 1
		if opts.DumpTrap {
			dumpTrap(errOut, m)
		}
	case m.Debugger != nil && statusIsBreak(m):
		res.Broke = true
		res.ExitCode = 10
	case opts.MaxSteps > 0 && m.InstrCount >= opts.MaxSteps && statusIsPaused(m):
		res.MaxStepsHit = true
		fmt.Fprintf(errOut, "[LIMIT] max-steps=%d exceeded\n", opts.MaxSteps)
	}

	if opts.Count {
		fmt.Fprintf(errOut, "[COUNT] instructions=%d calls=%d traps=%d\n", m.InstrCount, m.CallCount, m.TrapCount)
	}
	if opts.Time {
		fmt.Fprintf(errOut, "[TIME] wall=%s\n", elapsed)
	}
	return res
}

// dumpTrap writes a structured kr/pretty dump of the last unhandled trap
// (spec.md §6.4 --dump-trap), richer than the single diagnostic line
// FormatTrap already printed.
func dumpTrap(errOut io.Writer, m *vm.VM) {
	if !m.Pending() {
		return
	}
	fmt.Fprint(errOut, "[TRAP-DUMP] ")
	pretty.Fprintf(errOut, "%# v\n", m.LastTrap)
}

func statusIsBreak(m *vm.VM) bool {
	return m.Status() == vm.StatusBreak
}

func statusIsPaused(m *vm.VM) bool {
	return m.Status() == vm.StatusPaused
}

type emptyReader struct{}

func (emptyReader) Read(p []byte) (int, error) { return 0, io.EOF }
