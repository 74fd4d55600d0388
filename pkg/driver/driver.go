// Package driver wires the IL reader/writer, verifier, pass manager, and
// VM together behind the two entry points spec.md §4.8/§6.4 describes:
// `run-il` (execute a module) and `il-opt` (transform a module through a
// named pipeline). It holds no CLI framework dependency itself so both
// cmd/run-il and cmd/il-opt share one implementation of "load, verify,
// pipeline, report".
//
// Grounded on the teacher's cmd/ralph-cc/main.go: a run() int entry point
// independent of main's os.Exit, and file-reading helpers that return a
// wrapped error rather than calling os.Exit themselves.
package driver

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/viperlang/viper/pkg/diag"
	"github.com/viperlang/viper/pkg/il"
	"github.com/viperlang/viper/pkg/ilverify"
	"github.com/viperlang/viper/pkg/passes"
	"github.com/viperlang/viper/pkg/passmgr"
)

// LoadModule reads and parses path as textual IL, interning path into a
// fresh SourceManager as file id 1 so --trace=src and path:line
// breakpoints can resolve it back from a Loc.FileID (SPEC_FULL.md §3).
func LoadModule(path string) (*il.Module, *il.SourceManager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "reading %s", path)
	}
	mod, err := il.Parse(string(data))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "parsing %s", path)
	}
	sm := il.NewSourceManager()
	sm.Intern(path)
	return mod, sm, nil
}

// WriteModule writes m in canonical textual form to w (il-opt's output,
// run-il's --trace is separate).
func WriteModule(w io.Writer, m *il.Module) {
	il.NewWriter(w).WriteModule(m)
}

// Sprint is WriteModule rendered to a string, used by print-before/after
// hooks.
func Sprint(m *il.Module) string { return il.Sprint(m) }

// NewPassManager returns a Manager with every O1/O2 transform registered
// (spec.md §4.4).
func NewPassManager() *passmgr.Manager {
	mgr := passmgr.NewManager()
	passes.Register(mgr)
	return mgr
}

// ErrUnknownPipeline is wrapped with the offending name.
var ErrUnknownPipeline = errors.New("driver: unknown pipeline")

// ResolvePipeline turns the il-opt CLI's --pipeline/--passes flags into an
// ordered list of pass ids (spec.md §4.8): --passes wins if both are set,
// trimming whitespace around each comma-separated name; otherwise
// --pipeline resolves against the O0/O1/O2 presets. Neither flag set
// yields an empty (print-only) pipeline.
func ResolvePipeline(pipeline, passesList string) ([]string, error) {
	if strings.TrimSpace(passesList) != "" {
		parts := strings.Split(passesList, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
		return out, nil
	}
	if pipeline == "" {
		return nil, nil
	}
	preset, ok := passmgr.Preset(pipeline)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPipeline, "%q", pipeline)
	}
	return preset, nil
}

// Verify runs the verifier against m, writes any diagnostics to errOut in
// ilverify.Format's aggregate form, and reports whether verification
// passed (spec.md §4.2, §4.8's -verify-each).
func Verify(m *il.Module, errOut io.Writer) bool {
	sink := diag.NewSink()
	err := ilverify.Module(m, sink)
	if sink.Len() > 0 {
		io.WriteString(errOut, ilverify.Format(sink))
		io.WriteString(errOut, "\n")
	}
	return err == nil
}

// VerifyHook adapts Verify to passmgr's VerifyAfter hook shape for
// -verify-each (spec.md §4.8).
func VerifyHook(errOut io.Writer) func(id string, m *il.Module) bool {
	return func(id string, m *il.Module) bool {
		return Verify(m, errOut)
	}
}
