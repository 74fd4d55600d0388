package basic

import "sync/atomic"

// Frontend feature flags (spec.md §6.2): process-wide, relaxed-atomic
// booleans that may be flipped before compilation begins, but never while
// a compile is in flight (spec.md §5). All three default to true.
var (
	enableRuntimeNamespaces     atomic.Bool
	enableRuntimeTypeBridging   atomic.Bool
	enableSelectCaseConstLabels atomic.Bool
)

func init() {
	enableRuntimeNamespaces.Store(true)
	enableRuntimeTypeBridging.Store(true)
	enableSelectCaseConstLabels.Store(true)
}

// EnableRuntimeNamespaces reports whether emitted runtime helper calls are
// treated as living in a namespaced runtime surface rather than a flat
// symbol space. No lowering decision in this package currently branches on
// it; it is carried here because spec.md §6.2 names it as part of the
// frontend's external interface regardless of which frontend reads it.
func EnableRuntimeNamespaces() bool { return enableRuntimeNamespaces.Load() }

// SetEnableRuntimeNamespaces flips the flag.
func SetEnableRuntimeNamespaces(v bool) { enableRuntimeNamespaces.Store(v) }

// EnableRuntimeTypeBridging reports whether implicit numeric/string
// coercions are allowed to route through the runtime bridge's marshalling
// path. Reserved for the same reason as EnableRuntimeNamespaces.
func EnableRuntimeTypeBridging() bool { return enableRuntimeTypeBridging.Load() }

// SetEnableRuntimeTypeBridging flips the flag.
func SetEnableRuntimeTypeBridging(v bool) { enableRuntimeTypeBridging.Store(v) }

// EnableSelectCaseConstLabels reports whether SELECT CASE admits CONST and
// CHR$ (string) labels in addition to plain integer literals (spec.md
// §4.7). The parser consults this when it encounters a string label.
func EnableSelectCaseConstLabels() bool { return enableSelectCaseConstLabels.Load() }

// SetEnableSelectCaseConstLabels flips the flag.
func SetEnableSelectCaseConstLabels(v bool) { enableSelectCaseConstLabels.Store(v) }
