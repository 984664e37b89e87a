package trap

// Hooks is the set of scheduler entry points the syscall table and
// KillFaulting call into. The process package assigns a concrete Hooks
// value during boot (see process.GlobalScheduler.Init), mirroring the
// asm.DispatchHandler bridge so that trap never imports process.
var Hooks SchedulerHooks

// Predicate is a wake-up test polled against a waiting process's own
// saved trap frame; it may write a return value/status into tf before
// reporting the process ready (§9 "Waiting predicates").
type Predicate func(tf *Frame) bool

// TargetState is the subset of process.State the trap layer needs to
// name when asking the scheduler to switch the running process out —
// a small mirror of process.State kept here purely to avoid an import
// cycle (trap must not depend on process, since process depends on
// trap.Frame).
type TargetState int

const (
	TargetReady TargetState = iota
	TargetWaiting
	TargetDead
)

// SchedulerHooks is the scheduler-facing surface the trap layer needs.
type SchedulerHooks struct {
	// Switch schedules the running process out to state, optionally
	// with a wake predicate (TargetWaiting only), and blocks until the
	// scheduler restores some process's frame into tf — which, once
	// Switch returns, may or may not be the same process that called it.
	Switch   func(state TargetState, predicate Predicate, tf *Frame)
	Fork     func(tf *Frame) (childPID uint64, err OsError)
	PID      func() uint64
	Priority func() uint64
}
