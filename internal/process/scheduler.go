package process

import (
	"eos/internal/allocator"
	"eos/internal/asm"
	"eos/internal/clock"
	"eos/internal/config"
	"eos/internal/irq"
	"eos/internal/kernlog"
	"eos/internal/kmutex"
	"eos/internal/trap"
	"eos/internal/vm"
	"unsafe"
)

// Scheduler holds the process table as four priority-ordered FIFO
// queues rather than the single VecDeque scheduler.rs uses — the
// redesign §9 calls for: "strict priority with FIFO within a class."
// running is tracked by an explicit pointer in place of the source's
// tid_el0()-against-every-process scan, since Go code running inside a
// syscall handler already has the process record at hand without
// reading a system register for it.
type Scheduler struct {
	queues  [numPriorities][]*Process
	running *Process
	lastID  ID
	hasLast bool
	alloc   *allocator.Allocator
}

func newScheduler(a *allocator.Allocator) *Scheduler {
	return &Scheduler{alloc: a}
}

func (s *Scheduler) nextID() (ID, bool) {
	if !s.hasLast {
		s.hasLast = true
		s.lastID = 0
		return 0, true
	}
	if s.lastID == ^ID(0) {
		return 0, false
	}
	s.lastID++
	return s.lastID, true
}

// releaseID gives back id if it is the most recently issued one,
// mirroring last_id.checked_sub(1) in Scheduler::kill — a cheap reuse
// of the common case (processes tend to die in roughly reverse order of
// an id-exhaustion run) rather than a free list.
func (s *Scheduler) releaseID(id ID) {
	if !s.hasLast || s.lastID != id {
		return
	}
	if id == 0 {
		s.hasLast = false
		return
	}
	s.lastID--
}

func (s *Scheduler) enqueue(p *Process) {
	s.queues[p.Priority] = append(s.queues[p.Priority], p)
}

func (s *Scheduler) removeAt(pr Priority, i int) *Process {
	q := s.queues[pr]
	p := q[i]
	s.queues[pr] = append(q[:i], q[i+1:]...)
	return p
}

// add assigns p a fresh id, marks it Ready, and enqueues it. Mirrors
// Scheduler::add, minus the "scan for any ready process" return value —
// a freshly Ready process is always a valid switch_to candidate, so the
// extra scan the source does is redundant here.
func (s *Scheduler) add(p *Process) ID {
	id, ok := s.nextID()
	if !ok {
		panic("process: id overflow")
	}
	p.PID = id
	p.TrapFrame.TPIDRUser = id
	p.State = State{Kind: Ready}
	s.enqueue(p)
	return id
}

// scheduleOut retires the running process into newState, snapshotting
// tf into its saved trap frame, then either re-enqueues it (Ready,
// Waiting) or reaps it on the spot (Dead). Mirrors
// Scheduler::schedule_out.
func (s *Scheduler) scheduleOut(newState State, tf *trap.Frame) bool {
	cur := s.running
	if cur == nil {
		return false
	}
	*cur.TrapFrame = *tf
	cur.State = newState
	s.running = nil
	if newState.Kind == Dead {
		kernlog.Printf("process: pid %d exited\n", cur.PID)
		s.reap(cur)
	} else {
		s.enqueue(cur)
	}
	return true
}

// switchTo scans the priority classes Realtime down to Low for the
// first ready process, restores its trap frame into tf, and arms the
// next tick. Mirrors Scheduler::switch_to, generalized from one flat
// queue to the four classes; processes found Dead along the way (a
// process killed while not running, e.g. by a fault on another core —
// moot on this single-core kernel, but the check is free) are reaped in
// place instead of ever being considered runnable.
func (s *Scheduler) switchTo(tf *trap.Frame) (ID, bool) {
	for pr := Realtime; pr >= Low; pr-- {
		q := s.queues[pr]
		for i := 0; i < len(q); i++ {
			p := q[i]
			if p.State.Kind == Dead {
				s.removeAt(pr, i)
				s.reap(p)
				i--
				continue
			}
			if !p.IsReady() {
				continue
			}
			s.removeAt(pr, i)
			*tf = *p.TrapFrame
			p.State = State{Kind: Running}
			p.NextTickTime = clock.Now() + config.TickMillis*1000
			irq.ArmTimer1(config.TickMillis * 1000)
			s.running = p
			return p.PID, true
		}
	}
	return 0, false
}

// reap returns a dead process's resources to the allocator and, if its
// id was the most recently issued, reclaims it. There is no Rust Drop
// here: vm.UserPageTable.Free must be called explicitly, exactly as its
// doc comment requires.
func (s *Scheduler) reap(p *Process) {
	if p.UserPageTable != nil {
		p.UserPageTable.Free()
	}
	s.alloc.Dealloc(p.KernelStack, kernelStackSize, 16)
	s.releaseID(p.PID)
}

// GlobalScheduler is the single process-wide scheduler instance,
// guarded by kmutex the way §5 requires every singleton to be: "All
// public scheduler entry points acquire it for the duration of the
// critical section." Mirrors GlobalScheduler(Mutex<Option<Scheduler>>).
type GlobalScheduler struct {
	mu kmutex.Mutex
	s  *Scheduler
}

// NewGlobal returns an uninitialized scheduler wrapper; Init must run
// before any other method.
func NewGlobal() *GlobalScheduler { return &GlobalScheduler{} }

func (g *GlobalScheduler) critical(fn func(s *Scheduler)) {
	kmutex.WithLock(&g.mu, func() struct{} {
		if g.s == nil {
			panic("process: scheduler uninitialized")
		}
		fn(g.s)
		return struct{}{}
	})
}

// Init creates the scheduler state, wires trap.Hooks so the syscall and
// fault-dispatch layers can reach it without trap importing process,
// and registers the tick handler on the timer IRQ. Call once, at boot,
// before Start.
func (g *GlobalScheduler) Init(a *allocator.Allocator) {
	g.s = newScheduler(a)
	trap.Hooks = trap.SchedulerHooks{
		Switch:   g.Switch,
		Fork:     g.Fork,
		PID:      g.PID,
		Priority: g.Priority,
	}
	irq.Register(irq.Timer1, func(tf *trap.Frame) {
		irq.ArmTimer1(config.TickMillis * 1000)
		g.Switch(trap.TargetReady, nil, tf)
	})
	irq.Enable(irq.Timer1)
}

// Switch schedules the running process out to state (optionally with a
// wake predicate), then blocks — looping on Wfe between attempts —
// until some process becomes runnable and its frame is restored into
// tf. Mirrors GlobalScheduler::switch + switch_to's wfe retry loop.
func (g *GlobalScheduler) Switch(state trap.TargetState, predicate trap.Predicate, tf *trap.Frame) {
	var kind Kind
	switch state {
	case trap.TargetReady:
		kind = Ready
	case trap.TargetWaiting:
		kind = Waiting
	case trap.TargetDead:
		kind = Dead
	}
	g.critical(func(s *Scheduler) { s.scheduleOut(State{Kind: kind, Predicate: predicate}, tf) })
	g.switchTo(tf)
}

func (g *GlobalScheduler) switchTo(tf *trap.Frame) ID {
	for {
		var id ID
		var ok bool
		g.critical(func(s *Scheduler) { id, ok = s.switchTo(tf) })
		if ok {
			return id
		}
		asm.Wfe()
	}
}

// Add enqueues an already-built process (Ready) and returns its id.
func (g *GlobalScheduler) Add(p *Process) ID {
	var id ID
	g.critical(func(s *Scheduler) { id = s.add(p) })
	return id
}

// Fork clones the running process: a fresh id, a deep copy of its
// mapped pages (not its mappings — vm.CloneFrom), and a trap frame
// identical to the parent's except for x0 (0 in the child, the child's
// pid in the parent, set by the syscall layer once this returns) and
// TTBR1 (the child's own page table). Mirrors Process::fork via
// scheduler::add, generalized into the scheduler critical section so
// id allocation and enqueue happen atomically with the clone.
func (g *GlobalScheduler) Fork(tf *trap.Frame) (uint64, trap.OsError) {
	var childID ID
	errOut := trap.Ok
	g.critical(func(s *Scheduler) {
		parent := s.running
		if parent == nil {
			errOut = trap.NoEntry
			return
		}
		id, ok := s.nextID()
		if !ok {
			errOut = trap.IdOverflow
			return
		}
		child := New(s.alloc, parent.Name, false)
		if child == nil {
			s.releaseID(id)
			errOut = trap.NoMemory
			return
		}
		child.UserPageTable.CloneFrom(parent.UserPageTable)
		*child.TrapFrame = *tf
		child.PID = id
		child.TrapFrame.TPIDRUser = id
		child.TrapFrame.TTBR1EL1 = uint64(child.UserPageTable.BaseAddr())
		child.TrapFrame.X[0] = 0
		child.TrapFrame.X[7] = uint64(trap.Ok)
		child.Priority = parent.Priority
		s.enqueue(child)
		childID = id
	})
	return childID, errOut
}

func (g *GlobalScheduler) PID() uint64 {
	var id ID
	g.critical(func(s *Scheduler) {
		if s.running != nil {
			id = s.running.PID
		}
	})
	return id
}

func (g *GlobalScheduler) Priority() uint64 {
	var pr uint64
	g.critical(func(s *Scheduler) {
		if s.running != nil {
			pr = uint64(s.running.Priority)
		}
	})
	return pr
}

// Info is a read-only snapshot of one process table row, the pid/name/
// state/priority tuple the panic screen dumps; it is not the live
// *Process so that rendering never races the scheduler.
type Info struct {
	PID      ID
	Name     string
	State    Kind
	Priority Priority
	Running  bool
}

// Snapshot copies the entire process table (the running process plus
// every queued one) for display. Called only from the fault path, so a
// full copy under the scheduler lock is not on any hot path.
func (g *GlobalScheduler) Snapshot() []Info {
	var out []Info
	g.critical(func(s *Scheduler) {
		if s.running != nil {
			out = append(out, Info{PID: s.running.PID, Name: s.running.Name, State: s.running.State.Kind, Priority: s.running.Priority, Running: true})
		}
		for pr := Realtime; pr >= Low; pr-- {
			for _, p := range s.queues[pr] {
				out = append(out, Info{PID: p.PID, Name: p.Name, State: p.State.Kind, Priority: p.Priority})
			}
		}
	})
	return out
}

// Start loads path as the first process, enqueues it, arms the tick
// timer, and hands control to it: restore a fake (zeroed) trap frame
// through switchTo to pick the first runnable process, then
// ContextRestore's eret leaves Go code for good. Mirrors
// GlobalScheduler::start; never returns on success.
func (g *GlobalScheduler) Start(a *allocator.Allocator, fs FileSystem, kernTTBR0 vm.PhysAddr, path string) error {
	p, err := Load(a, fs, kernTTBR0, path)
	if err != nil {
		return err
	}
	p.Priority = Medium
	g.Add(p)

	irq.ArmTimer1(config.TickMillis * 1000)

	var tf trap.Frame
	g.switchTo(&tf)
	asm.ContextRestore(unsafe.Pointer(&tf))
	panic("process: Start returned after ContextRestore")
}
