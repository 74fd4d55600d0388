package vm

import (
	"fmt"

	"github.com/viperlang/viper/pkg/il"
)

// errValue is the payload behind an Error-kind Slot: the trap kind, its
// stable numeric code, and an optional message (spec.md §7, §4.6.5). A
// user-supplied Trap message is attached here (the handler's Error
// payload) and also to the top-level diagnostic on an unhandled trap,
// per SPEC_FULL.md §4's "preserve both paths conservatively" decision.
type errValue struct {
	Kind    il.TrapKind
	Code    int
	Message string
	HasMsg  bool
}

// resumeToken is the payload behind a ResumeTok-kind Slot (spec.md §4.6.5,
// GLOSSARY "Resume token"): it names the faulting instruction's position so
// resume.same/next/label can transfer control back relative to it.
type resumeToken struct {
	FrameIdx  int
	Block     string
	FaultIP   int
}

// sideTables holds the VM's Error/ResumeTok handle tables. These two IL
// types only ever arise from EH machinery, never from user-visible
// construction, so a simple monotonic table (no refcounting) suffices.
type sideTables struct {
	errs   map[int64]errValue
	toks   map[int64]resumeToken
	nextID int64
}

func newSideTables() *sideTables {
	return &sideTables{errs: make(map[int64]errValue), toks: make(map[int64]resumeToken)}
}

func (s *sideTables) newError(kind il.TrapKind, msg string, hasMsg bool) int64 {
	s.nextID++
	id := s.nextID
	s.errs[id] = errValue{Kind: kind, Code: kind.Code(), Message: msg, HasMsg: hasMsg}
	return id
}

func (s *sideTables) newToken(frameIdx int, block string, faultIP int) int64 {
	s.nextID++
	id := s.nextID
	s.toks[id] = resumeToken{FrameIdx: frameIdx, Block: block, FaultIP: faultIP}
	return id
}

// TrapSignal is raised internally by dispatch handlers to request a trap;
// the dispatch loop's trap path (handleTrap in vm.go) is the only place it
// is caught.
type TrapSignal struct {
	Kind   il.TrapKind
	Msg    string
	HasMsg bool
}

func (t *TrapSignal) Error() string { return t.Msg }

func trap(kind il.TrapKind) error { return &TrapSignal{Kind: kind} }

func trapMsg(kind il.TrapKind, format string, args ...any) error {
	return &TrapSignal{Kind: kind, Msg: fmt.Sprintf(format, args...), HasMsg: true}
}
