// Command il-opt loads a textual IL module, runs it through a named
// transform pipeline, and writes the transformed module back out in
// canonical textual form (spec.md §4.8, §6.4).
package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/viperlang/viper/pkg/driver"
)

var version = "0.1.0"

var (
	outPath    string
	pipeline   string
	passesList string
	verifyEach bool
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "il-opt <file.il>",
		Short:         "il-opt runs a named transform pipeline over a textual IL module",
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return doOpt(args[0], out, errOut)
		},
	}
	rootCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default: stdout)")
	rootCmd.Flags().StringVar(&pipeline, "pipeline", "", "preset pipeline: O0, O1, or O2")
	rootCmd.Flags().StringVar(&passesList, "passes", "", "explicit comma-separated pass list")
	rootCmd.Flags().BoolVar(&verifyEach, "verify-each", false, "verify the module after every pass")
	return rootCmd
}

func doOpt(path string, out, errOut io.Writer) error {
	mod, _, err := driver.LoadModule(path)
	if err != nil {
		return err
	}

	ids, err := driver.ResolvePipeline(pipeline, passesList)
	if err != nil {
		return err
	}

	mgr := driver.NewPassManager()
	if verifyEach {
		mgr.VerifyAfter = driver.VerifyHook(errOut)
	}
	if len(ids) > 0 {
		if err := mgr.Run(ids, mod); err != nil {
			return err
		}
	}

	w := out
	if outPath != "" && outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	driver.WriteModule(w, mod)
	return nil
}
