// Package diag is the shared diagnostic sink used by the verifier
// (pkg/ilverify), the BASIC frontend's TypeRules/ScopeTracker (pkg/basic),
// and the drivers (pkg/driver): a place to aggregate many failures before
// returning, with one formatting convention shared by every producer.
//
// Grounded on the original system's VerifyCtx/DiagFormat shape (single-line
// messages carrying function/block/instruction context; see
// original_source/src/il/verify/DiagFormat.hpp per DESIGN.md).
package diag

import "fmt"

// Severity classifies a Diagnostic. Warnings never abort a caller on their
// own (e.g. an unreachable block, spec.md §4.2 rule 4); errors do.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Diagnostic is one reported failure, carrying enough context to render
// spec.md §4.2's `function 'F' block 'L' [instr '<snippet>']: <reason>`
// line without the caller re-deriving it.
type Diagnostic struct {
	Severity Severity
	Func     string
	Block    string
	Instr    string // optional instruction snippet; empty when not applicable
	Reason   string
}

// String renders the diagnostic in the canonical single-line form.
func (d Diagnostic) String() string {
	switch {
	case d.Func != "" && d.Block != "" && d.Instr != "":
		return fmt.Sprintf("function '%s' block '%s' instr '%s': %s", d.Func, d.Block, d.Instr, d.Reason)
	case d.Func != "" && d.Block != "":
		return fmt.Sprintf("function '%s' block '%s': %s", d.Func, d.Block, d.Reason)
	case d.Func != "":
		return fmt.Sprintf("function '%s': %s", d.Func, d.Reason)
	default:
		return d.Reason
	}
}

// Sink aggregates diagnostics across a single verification or compilation
// pass. It is not concurrency-safe; the core is single-threaded (spec.md §5).
type Sink struct {
	diags []Diagnostic
}

// NewSink returns an empty Sink.
func NewSink() *Sink { return &Sink{} }

// Report appends a diagnostic.
func (s *Sink) Report(d Diagnostic) { s.diags = append(s.diags, d) }

// Errorf appends an Error-severity diagnostic built from a function/block/
// instr context and a formatted reason.
func (s *Sink) Errorf(fn, block, instr, format string, args ...any) {
	s.Report(Diagnostic{Severity: Error, Func: fn, Block: block, Instr: instr, Reason: fmt.Sprintf(format, args...)})
}

// Warnf appends a Warning-severity diagnostic.
func (s *Sink) Warnf(fn, block, instr, format string, args ...any) {
	s.Report(Diagnostic{Severity: Warning, Func: fn, Block: block, Instr: instr, Reason: fmt.Sprintf(format, args...)})
}

// Diagnostics returns every diagnostic reported so far, in report order.
func (s *Sink) Diagnostics() []Diagnostic { return s.diags }

// HasErrors reports whether any Error-severity diagnostic was reported.
func (s *Sink) HasErrors() bool {
	for _, d := range s.diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Errors returns only the Error-severity diagnostics.
func (s *Sink) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range s.diags {
		if d.Severity == Error {
			out = append(out, d)
		}
	}
	return out
}

// Len reports the total number of diagnostics reported.
func (s *Sink) Len() int { return len(s.diags) }
