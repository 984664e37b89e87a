// Package process owns the process table and the priority-queue
// scheduler: the part of the core that turns trap-frame
// snapshots and page tables into multiplexed execution. Grounded on
// original_source/kern/src/process/{process,context,scheduler}.rs,
// generalized from the source's single flat Ready queue to the
// priority-queue version §9 says to adopt.
package process

import "eos/internal/trap"

// Priority is one of four strict preemption classes (§3, §4.4).
type Priority int

const (
	Low Priority = iota
	Medium
	High
	Realtime
	numPriorities
)

// Kind is the tag half of the State sum type; Go has no tagged unions,
// so State pairs a Kind with an optional Predicate the way
// process.rs's State::Waiting(Box<dyn FnMut>) carries its closure.
type Kind int

const (
	Start Kind = iota
	Ready
	Running
	Waiting
	Dead
)

// State is the scheduling state of a Process (§3's state machine).
// Predicate is only meaningful when Kind == Waiting.
type State struct {
	Kind      Kind
	Predicate trap.Predicate
}
