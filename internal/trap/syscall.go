package trap

import (
	"eos/internal/clock"
	"eos/internal/config"
	"eos/internal/console"
	"eos/internal/kernlog"
)

// Syscall numbers, part of the external ABI (§6).
const (
	nrSleep       = 1
	nrTime        = 2
	nrExit        = 3
	nrWrite       = 4
	nrGetpid      = 5
	nrFork        = 6
	nrYield       = 7
	nrRead        = 8
	nrGetcwd      = 9
	nrWriteStr    = 14
	nrGetpriority = 15
)

func handleSyscall(num uint16, tf *Frame) {
	switch num {
	case nrSleep:
		sysSleep(uint32(tf.X[0]), tf)
	case nrTime:
		sysTime(tf)
	case nrExit:
		sysExit(tf)
	case nrWrite:
		sysWrite(byte(tf.X[0]), tf)
	case nrGetpid:
		sysGetpid(tf)
	case nrFork:
		sysFork(tf)
	case nrYield:
		sysYield(tf)
	case nrRead:
		sysRead(tf)
	case nrGetcwd:
		sysGetcwd(tf.X[0], uintptr(tf.X[1]), tf)
	case nrWriteStr:
		sysWriteStr(uintptr(tf.X[0]), uintptr(tf.X[1]), tf)
	case nrGetpriority:
		sysGetpriority(tf)
	default:
		// §4.5: "Unknown syscall numbers are a no-op with an unchanged
		// status (accepted simplification)."
	}
}

// sysSleep captures t0, computes the wake deadline, and suspends the
// caller behind a predicate that fires once clock.Now() reaches it.
// Grounded on original_source/kern/src/traps/syscall.rs's sys_sleep.
func sysSleep(ms uint32, tf *Frame) {
	t0 := clock.Now()
	deadlineUs, overflow := addOverflows(t0, uint64(ms)*1000)
	if overflow {
		tf.X[7] = uint64(statusErr)
		return
	}
	predicate := func(waiting *Frame) bool {
		now := clock.Now()
		if now < deadlineUs {
			return false
		}
		waiting.X[0] = (now - t0) / 1000
		waiting.X[7] = uint64(Ok)
		return true
	}
	Hooks.Switch(TargetWaiting, predicate, tf)
}

func addOverflows(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum < a
}

// sysTime reports wall time as (seconds, nanoseconds) since boot.
// §9 mandates status=Ok=1 unconditionally, resolving the open question
// about inconsistent revisions in the source.
func sysTime(tf *Frame) {
	now := clock.Now()
	tf.X[0] = now / 1_000_000
	tf.X[1] = (now % 1_000_000) * 1000
	tf.X[7] = uint64(Ok)
}

func sysExit(tf *Frame) {
	Hooks.Switch(TargetDead, nil, tf)
}

func sysWrite(b byte, tf *Frame) {
	console.PutByte(b)
	tf.X[7] = uint64(Ok)
}

func sysGetpid(tf *Frame) {
	tf.X[0] = Hooks.PID()
	tf.X[7] = uint64(Ok)
}

func sysGetpriority(tf *Frame) {
	tf.X[0] = Hooks.Priority()
	tf.X[7] = uint64(Ok)
}

func sysFork(tf *Frame) {
	childPID, err := Hooks.Fork(tf)
	if err != Ok {
		tf.X[7] = uint64(err)
		return
	}
	tf.X[0] = childPID
	tf.X[7] = uint64(Ok)
}

func sysYield(tf *Frame) {
	Hooks.Switch(TargetReady, nil, tf)
}

// sysRead suspends the caller behind a predicate that fires once a
// console byte is available, the same single-call Waiting-predicate
// shape sysSleep uses (§9's recommended ReadByte(fd) tagged-variant
// refactor). A busy-poll loop calling Hooks.Switch on every spin would
// be wrong here: each Switch call hands tf to whatever process
// switch_to next picks, so a second iteration in this same call frame
// would resume with someone else's trap frame in tf, not the caller's.
// One call in, one call out, exactly like every other blocking syscall.
func sysRead(tf *Frame) {
	predicate := func(waiting *Frame) bool {
		if !console.HasByte() {
			return false
		}
		waiting.X[0] = uint64(console.ReadByte())
		waiting.X[7] = uint64(Ok)
		return true
	}
	Hooks.Switch(TargetWaiting, predicate, tf)
}

// sysGetcwd logs the request and reports Ok without copying
// Process.Cwd into the caller's buffer — the syscall table (§4.5) only
// specifies the status register for this call, and original_source's
// own sys_getcwd is the same unfinished stub (a TODO, not a real
// implementation this one diverges from).
func sysGetcwd(vaddr uint64, size uintptr, tf *Frame) {
	kernlog.Printf("getcwd: %x size %d\n", vaddr, size)
	tf.X[7] = uint64(Ok)
}

// sysWriteStr validates the user slice bounds before printing, §4.5's
// "slice [va, va+len) must lie entirely at or above USER_IMG_BASE and
// not overflow; otherwise BadAddress."
func sysWriteStr(va, length uintptr, tf *Frame) {
	msg, ok := userSlice(va, length)
	if !ok {
		tf.X[7] = uint64(BadAddress)
		return
	}
	console.PutString(string(msg))
	tf.X[0] = uint64(len(msg))
	tf.X[7] = uint64(Ok)
}

func userSlice(va, length uintptr) ([]byte, bool) {
	_, overflow := addUintptrOverflows(va, length)
	if overflow || va < config.USERIMGBase {
		return nil, false
	}
	return bytesAt(va, length), true
}

func addUintptrOverflows(a, b uintptr) (uintptr, bool) {
	sum := a + b
	return sum, sum < a
}
