package trap

import "eos/internal/kernlog"

// DecodeInfo unpacks the {source, kind} pair the assembly trampoline
// bakes into each vector-table entry (see asm/vectors_arm64.s). Exported
// so cmd/kernel's boot wiring can route IRQ-kind traps to the irq
// package without trap importing irq itself (trap must stay free of
// that dependency or the two packages would cycle, since irq handlers
// are typed against trap.Frame).
func DecodeInfo(packed uint32) Info {
	return decodeInfo(packed)
}

// Dispatch handles a synchronous exception (info.Kind == Synchronous):
// SVC routes to the syscall table, BRK steps past the breakpoint, and
// anything else is logged and the faulting process killed. Called from
// the boot-time dispatch router for every non-IRQ, non-FIQ/SError trap.
func Dispatch(esr uint64, info Info, tf *Frame) {
	syn := decodeSyndrome(esr)
	switch syn.Class {
	case ECSVC64:
		handleSyscall(syn.SVCNumber(), tf)
	case ECBRK64:
		// §4.5: "enter the in-kernel debug shell, advance elr by 4,
		// return." The debug shell itself is an external collaborator
		// (out of core); here we only perform the ABI-mandated PC
		// advance so execution can resume past the breakpoint.
		tf.ELRELx += 4
	default:
		kernlog.Printf("trap: unhandled sync exception class %x elr=%x, killing process %d\n", uint32(syn.Class), tf.ELRELx, tf.TPIDRUser)
		KillFaulting(tf, esr)
	}
}

// OnFault, when set, is invoked by KillFaulting before the faulting
// process is torn down, so the kernel can render a diagnostic screen
// from the faulting frame and ESR. Left nil unless cmd/kernel wires it
// to eos/internal/panicscreen at boot — trap itself must stay free of
// panicscreen's gg/freetype dependency the same way it stays free of
// irq and process.
var OnFault func(tf *Frame, esr uint64)

// KillFaulting transitions the owner of tf to Dead, used both for
// unhandled synchronous faults and for FIQ/SError traps the core does
// not otherwise support.
func KillFaulting(tf *Frame, esr uint64) {
	if OnFault != nil {
		OnFault(tf, esr)
	}
	if Hooks.Switch != nil {
		Hooks.Switch(TargetDead, nil, tf)
	}
}
