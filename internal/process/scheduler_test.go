package process

import (
	"eos/internal/allocator"
	"eos/internal/trap"
	"testing"
	"unsafe"
)

func newTestAllocator(t *testing.T, size uintptr) *allocator.Allocator {
	t.Helper()
	buf := make([]byte, size+65536)
	start := (uintptr(unsafe.Pointer(&buf[0])) + 65535) &^ 65535
	return allocator.New(start, start+size)
}

// switchTo/ArmTimer1 touch real BCM2837 MMIO registers, so it is
// exercised by the boot-time integration path rather than here; these
// tests cover the pure bookkeeping around it.

func TestSchedulerAddAssignsSequentialIDs(t *testing.T) {
	a := newTestAllocator(t, 8*1024*1024)
	s := newScheduler(a)
	p0 := New(a, "one", true)
	p1 := New(a, "two", true)
	if id := s.add(p0); id != 0 {
		t.Fatalf("first id = %d, want 0", id)
	}
	if id := s.add(p1); id != 1 {
		t.Fatalf("second id = %d, want 1", id)
	}
	if len(s.queues[p0.Priority]) != 2 {
		t.Fatalf("expected both processes enqueued in class %d", p0.Priority)
	}
}

func TestSchedulerScheduleOutRequeuesReady(t *testing.T) {
	a := newTestAllocator(t, 8*1024*1024)
	s := newScheduler(a)
	p := New(a, "one", true)
	s.add(p)
	s.running = s.removeAt(p.Priority, 0)

	tf := &trap.Frame{TPIDRUser: 77}
	if ok := s.scheduleOut(State{Kind: Ready}, tf); !ok {
		t.Fatal("scheduleOut on a running process should report true")
	}
	if s.running != nil {
		t.Fatal("running should be cleared after scheduleOut")
	}
	if len(s.queues[p.Priority]) != 1 {
		t.Fatalf("expected process requeued, got %d entries", len(s.queues[p.Priority]))
	}
	if s.queues[p.Priority][0].TrapFrame.TPIDRUser != 77 {
		t.Fatal("scheduleOut did not snapshot tf into the process's trap frame")
	}
}

func TestSchedulerScheduleOutDeadReapsProcess(t *testing.T) {
	a := newTestAllocator(t, 8*1024*1024)
	s := newScheduler(a)
	p := New(a, "one", true)
	s.add(p)
	s.running = s.removeAt(p.Priority, 0)

	before := a.Allocated()
	s.scheduleOut(State{Kind: Dead}, &trap.Frame{})
	if len(s.queues[p.Priority]) != 0 {
		t.Fatal("dead process must not be requeued")
	}
	if a.Allocated() >= before {
		t.Fatal("reap should return the process's kernel stack to the allocator")
	}
	if s.hasLast {
		t.Fatal("reaping the only (most recent) process should reclaim its id")
	}
}

func TestSchedulerScheduleOutWithNoRunningProcessFails(t *testing.T) {
	a := newTestAllocator(t, 8*1024*1024)
	s := newScheduler(a)
	if s.scheduleOut(State{Kind: Ready}, &trap.Frame{}) {
		t.Fatal("scheduleOut with no running process should report false")
	}
}

func TestSchedulerReleaseIDOnlyReclaimsMostRecent(t *testing.T) {
	a := newTestAllocator(t, 8*1024*1024)
	s := newScheduler(a)
	s.hasLast = true
	s.lastID = 5
	s.releaseID(3)
	if s.lastID != 5 {
		t.Fatalf("releasing a non-most-recent id should be a no-op, lastID = %d", s.lastID)
	}
	s.releaseID(5)
	if s.lastID != 4 {
		t.Fatalf("lastID = %d, want 4", s.lastID)
	}
}

func TestSchedulerIDOverflowPanics(t *testing.T) {
	a := newTestAllocator(t, 8*1024*1024)
	s := newScheduler(a)
	s.hasLast = true
	s.lastID = ^ID(0)
	defer func() {
		if recover() == nil {
			t.Fatal("expected add to panic on id overflow")
		}
	}()
	s.add(New(a, "overflow", true))
}
