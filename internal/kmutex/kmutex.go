// Package kmutex implements the single-CPU critical-section primitive used
// by the process-wide singletons (allocator, console, filesystem,
// scheduler); the panic screen's framebuffer is not guarded by one. On a
// single core there is no real contention to arbitrate;
// the only thing a critical section must do is keep the timer IRQ from
// firing — and so preempting the holder — until it is done. Masking IRQs
// is therefore the lock.
package kmutex

import "eos/internal/asm"

// Mutex guards a single-CPU critical section by masking the timer IRQ for
// its duration, per the design note in §5: "Scheduler state: guarded by a
// global mutex... All public scheduler entry points acquire it for the
// duration of the critical section."
type Mutex struct {
	held    bool
	savedIF bool
}

// Lock masks IRQs and marks the section held. Re-entrant locking panics:
// on a single CPU a second Lock call can only happen from the same
// thread of execution re-entering itself, which indicates a bug, not
// contention.
//
//go:nosplit
func (m *Mutex) Lock() {
	if m.held {
		panic("kmutex: re-entrant lock")
	}
	m.savedIF = asm.IRQsEnabled()
	asm.DisableIRQs()
	m.held = true
}

// Unlock restores the IRQ mask state that was in effect before Lock and
// clears held. Restoring rather than unconditionally re-enabling matters
// for nested callers that entered with IRQs already masked (e.g. from
// within an exception handler).
//
//go:nosplit
func (m *Mutex) Unlock() {
	if !m.held {
		panic("kmutex: unlock of unheld mutex")
	}
	m.held = false
	if m.savedIF {
		asm.EnableIRQs()
	}
}

// WithLock runs fn under the mutex and returns its result, the shape
// used by every singleton's public entry points.
func WithLock[T any](m *Mutex, fn func() T) T {
	m.Lock()
	defer m.Unlock()
	return fn()
}
