// Command run-il loads a textual IL module, registers the runtime bridge's
// default helper set, and executes it on the bytecode VM (spec.md §4.8,
// §6.4).
package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/viperlang/viper/pkg/driver"
	"github.com/viperlang/viper/pkg/vm"
)

var version = "0.1.0"

var (
	traceMode   string
	stdinFrom   string
	maxSteps    int
	breakSpecs  []string
	breakSrc    []string
	watches     []string
	countFlag   bool
	timeFlag    bool
	dumpTrap    bool
	debugCmds   string
	tailCalls   bool
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	code := 0
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		c, err := doRun(args[0], os.Stdout, os.Stderr)
		code = c
		return err
	}
	if err := rootCmd.Execute(); err != nil {
		if code == 0 {
			code = 1
		}
		return code
	}
	return code
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "run-il <file.il>",
		Short:         "run-il executes a textual IL module on the bytecode VM",
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.Flags().StringVar(&traceMode, "trace", "", "trace mode: il or src")
	rootCmd.Flags().StringVar(&stdinFrom, "stdin-from", "", "read program stdin from FILE")
	rootCmd.Flags().IntVar(&maxSteps, "max-steps", 0, "abort after N instructions")
	rootCmd.Flags().StringArrayVar(&breakSpecs, "break", nil, "breakpoint spec: label, fn:label, or file:line")
	rootCmd.Flags().StringArrayVar(&breakSrc, "break-src", nil, "breakpoint spec: file:line")
	rootCmd.Flags().StringArrayVar(&watches, "watch", nil, "print NAME on every break/step event")
	rootCmd.Flags().BoolVar(&countFlag, "count", false, "print an instruction/call/trap count on exit")
	rootCmd.Flags().BoolVar(&timeFlag, "time", false, "print wall-clock duration on exit")
	rootCmd.Flags().BoolVar(&dumpTrap, "dump-trap", false, "dump a structured trap frame on an unhandled trap")
	rootCmd.Flags().StringVar(&debugCmds, "debug-cmds", "", "scripted debugger command file")
	rootCmd.Flags().BoolVar(&tailCalls, "tail-calls", true, "reuse the current frame for a tail call")
	return rootCmd
}

func doRun(path string, out, errOut io.Writer) (int, error) {
	mod, sources, err := driver.LoadModule(path)
	if err != nil {
		return 1, err
	}

	opts := driver.RunOptions{
		Count:           countFlag,
		Time:            timeFlag,
		DumpTrap:        dumpTrap,
		MaxSteps:        maxSteps,
		Watches:         watches,
		TailCallEnabled: tailCalls,
	}

	switch traceMode {
	case "":
		opts.Trace = vm.TraceOff
	case "il":
		opts.Trace = vm.TraceIL
	case "src":
		opts.Trace = vm.TraceSrc
	default:
		return 1, errUnknownTrace(traceMode)
	}

	if stdinFrom != "" {
		f, err := os.Open(stdinFrom)
		if err != nil {
			return 1, err
		}
		defer f.Close()
		opts.StdinFrom = f
	}

	for _, s := range append(append([]string(nil), breakSpecs...), breakSrc...) {
		spec, err := vm.ParseBreakSpec(s)
		if err != nil {
			return 1, err
		}
		opts.Breakpoints = append(opts.Breakpoints, spec)
	}

	if debugCmds != "" {
		f, err := os.Open(debugCmds)
		if err != nil {
			return 1, err
		}
		opts.DebugCmds = driver.ParseDebugScript(f, errOut)
		f.Close()
	}

	res := driver.Run(mod, sources, opts, out, errOut)
	return res.ExitCode, nil
}

type unknownTraceError string

func (e unknownTraceError) Error() string { return "run-il: unknown --trace mode " + string(e) }

func errUnknownTrace(mode string) error { return unknownTraceError(mode) }
