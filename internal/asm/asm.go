// Package asm declares the handful of operations that cannot be expressed
// in Go: system-register access, cache/TLB maintenance, the trap-frame
// restore, and the exception vector table. Each is a bodyless Go function
// backed by a Plan 9 assembly definition in a sibling .s file, the same
// split the teacher uses for setVbarEl1ToAddr ("Assembly function to set
// VBAR_EL1...") and the pattern usbarmory/tamago's arm64 package documents
// as "defined in mmu.s" for flush_tlb/set_ttbr0.
package asm

import "unsafe"

// MmioRead32/MmioWrite32 perform a single non-reordered 32-bit access to a
// device register. Every MMIO-mapped driver (console, mailbox, interrupt
// controller, timer) goes through these two instead of a raw Go pointer
// dereference, so a single place enforces the volatile access the
// compiler would otherwise be free to elide or reorder.
func MmioRead32(addr uintptr) uint32
func MmioWrite32(addr uintptr, v uint32)

// MmioRead16/MmioWrite16 are the 16-bit-register counterparts, needed
// by the SDHCI command/interrupt-status registers the rest of the
// peripheral set doesn't expose at word granularity.
func MmioRead16(addr uintptr) uint16
func MmioWrite16(addr uintptr, v uint16)

// Dsb/Isb/Dmb are the barrier instructions used around page-table and
// cache-maintenance updates.
func Dsb()
func Isb()
func Dmb()

// CleanDataCacheVA/InvalidateInstructionCacheAll back the exception
// vector relocation step at boot, mirroring the teacher's
// InitializeExceptions.
func CleanDataCacheVA(addr uintptr)
func InvalidateInstructionCacheAll()
func InvalidateTLBAll()

// SetVbarEl1 points VBAR_EL1 at the relocated exception vector table.
func SetVbarEl1(addr uintptr)

// SetTTBR0/SetTTBR1 load the kernel and user translation table base
// registers respectively.
func SetTTBR0(phys uint64)
func SetTTBR1(phys uint64)

// IRQsEnabled/DisableIRQs/EnableIRQs read and set PSTATE.I, the bit
// kmutex masks for its single-CPU critical sections.
func IRQsEnabled() bool
func DisableIRQs()
func EnableIRQs()

// Wfe halts the core until the next event, used by the scheduler's outer
// loop when no process is ready.
func Wfe()

// CurrentEL reads CurrentEL[3:2] (2 at boot, 1 after the EL2->EL1 drop).
func CurrentEL() uint32

// GetTextStartAddr/GetTextEndAddr/GetBssStartAddr/GetBssEndAddr resolve
// the linker-provided symbols bounding the kernel's own image, the way
// the teacher's getLinkerSymbol reaches through asm.GetTextStartAddr
// and friends instead of hardcoding addresses memory.go's comment says
// "the linker provides the actual values" for. config.InitLinkerSymbols
// is the only caller; everything else goes through config.TextEnd/BSSEnd.
func GetTextStartAddr() uintptr
func GetTextEndAddr() uintptr
func GetBssStartAddr() uintptr
func GetBssEndAddr() uintptr

// ReadFarEl1 reads FAR_EL1, the faulting virtual address latched by the
// most recent data/instruction abort. Consulted only by the panic
// screen's fault dump; ESR_EL1 itself arrives already in hand as the
// dispatcher's esr argument, so it needs no register read of its own.
func ReadFarEl1() uint64

// DropToEL1 performs the one-time EL2->EL1 transition at boot: it
// programs HCR_EL2, SPSR_EL2 and ELR_EL2 then eret's into the EL1
// continuation at contPC with stack sp.
func DropToEL1(contPC, sp uintptr)

// ContextRestore reloads a TrapFrame (see trap.Frame, 816 bytes, §6)
// into the architectural registers it describes and is the last step
// before `eret` returns to EL0. It does not return to its caller in the
// normal sense: control leaves through eret.
func ContextRestore(tf unsafe.Pointer)

// ExceptionVectorTable returns the address of the 16-entry vector table
// defined in vectors_arm64.s; cmd/kernel's relocateVectors points
// VBAR_EL1 at it.
func ExceptionVectorTable() uintptr

// DispatchHandler is set once, at boot, to cmd/kernel's dispatch router,
// which hands traps on to trap.Dispatch, irq.Dispatch or
// trap.KillFaulting. The vector trampoline in vectors_arm64.s cannot
// import those packages directly (it is untyped assembly), so it calls
// the small Go shim below, which forwards to whatever handler boot
// installed here. This
// mirrors the teacher's handle_exception/go:linkname split between raw
// assembly and the typed Go dispatcher it calls into.
var DispatchHandler func(esr uint64, info uint32, tf unsafe.Pointer)

//go:nosplit
func dispatchFromAsm(esr uint64, info uint32, tf unsafe.Pointer) {
	if DispatchHandler != nil {
		DispatchHandler(esr, info, tf)
	}
}
