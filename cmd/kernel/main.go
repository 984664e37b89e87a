// Command kernel is the board's entry point: it brings up the bin/buddy
// allocator and kernel page table, relocates the exception vector table,
// wires the trap/IRQ dispatch chain, mounts the SD card's FAT32 volume,
// and starts the scheduler on /shell. Grounded on the teacher's kernel.go
// boot sequence (uartInit/mailbox probe/jump to the first task), adapted
// to this kernel's own subsystems in place of the teacher's direct MMIO
// pokes.
package main

import (
	"unsafe"

	"eos/internal/allocator"
	"eos/internal/asm"
	"eos/internal/config"
	"eos/internal/console"
	"eos/internal/fat32"
	"eos/internal/irq"
	"eos/internal/kernlog"
	"eos/internal/panicscreen"
	"eos/internal/process"
	"eos/internal/sdcard"
	"eos/internal/trap"
	"eos/internal/vm"
)

// fsAdapter makes *fat32.FS satisfy process.FileSystem: FS.OpenFile
// returns a concrete fat32.File by value, but Read/IsEnd are defined on
// *fat32.File, so process.File needs the pointer, not the value.
type fsAdapter struct{ fs *fat32.FS }

func (a fsAdapter) OpenFile(path string) (process.File, error) {
	f, err := a.fs.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// funcval mirrors the runtime's own func-value layout (a pointer to a
// struct whose first word is the entry PC) just enough to recover
// continueBoot's code address for DropToEL1's ELR_EL2.
type funcval struct{ fn uintptr }

func main() {
	if asm.CurrentEL() == 2 {
		cont := continueBoot
		contPC := (*(**funcval)(unsafe.Pointer(&cont))).fn
		asm.DropToEL1(contPC, bootStack())
		return
	}
	continueBoot()
}

// bootStack hands DropToEL1 the SP to continue on at EL1. The kernel
// thread that called main already owns a stack from the runtime's own
// startup; DropToEL1 just needs a valid value to load into SP_EL1
// before the eret, not a fresh allocation.
func bootStack() uintptr {
	var x int
	return uintptr(unsafe.Pointer(&x))
}

func continueBoot() {
	console.PutString("eos: boot\n")
	config.InitLinkerSymbols()
	kernlog.Boot("boot", "linker symbols resolved")

	ramEnd := config.GPUBase
	allocStart := (config.BSSBeg + config.PageSize - 1) &^ (config.PageSize - 1)
	if config.BSSEnd > allocStart {
		allocStart = config.BSSEnd
	}
	alloc := allocator.New(allocStart, uintptr(ramEnd))
	kernlog.Boot("boot", "allocator ready")

	kernPT := vm.NewKernPageTable(alloc, uintptr(ramEnd))
	asm.SetTTBR0(uint64(kernPT.BaseAddr()))
	kernlog.Boot("boot", "kernel page table installed")

	relocateVectors()

	asm.DispatchHandler = dispatch

	sched := process.NewGlobal()
	sched.Init(alloc)
	kernlog.Boot("boot", "scheduler initialized")

	panicscreen.Init(alloc, sched)
	trap.OnFault = panicscreen.Show

	card := sdcard.Open()
	fs, err := fat32.Mount(card)
	if err != nil {
		kernlog.Printf("boot: fat32 mount failed: %s\n", err)
		for {
			asm.Wfe()
		}
	}
	kernlog.Boot("boot", "fat32 volume mounted")

	err = sched.Start(alloc, fsAdapter{fs}, kernPT.BaseAddr(), "/shell")
	kernlog.Printf("boot: scheduler start returned: %s\n", err)
	for {
		asm.Wfe()
	}
}

// relocateVectors points VBAR_EL1 at the vector table the boot assembly
// already built in RAM and syncs the instruction/data caches around the
// switch, mirroring the teacher's InitializeExceptions.
func relocateVectors() {
	addr := asm.ExceptionVectorTable()
	asm.CleanDataCacheVA(addr)
	asm.SetVbarEl1(addr)
	asm.InvalidateInstructionCacheAll()
	asm.Isb()
}

// dispatch is the one Go-typed entry point the assembly trampoline
// calls into (via asm.DispatchHandler) for every exception: it decodes
// the {source, kind} pair the vector stub packed and routes IRQs to
// eos/internal/irq, synchronous exceptions to eos/internal/trap, and
// FIQ/SError to KillFaulting, the same three-way split
// original_source/kern/src/traps.rs's handle_exception performs.
func dispatch(esr uint64, info uint32, tf unsafe.Pointer) {
	frame := (*trap.Frame)(tf)
	decoded := trap.DecodeInfo(info)
	switch decoded.Kind {
	case trap.IRQ:
		irq.Dispatch(frame)
	case trap.Synchronous:
		trap.Dispatch(esr, decoded, frame)
	default: // FIQ, SError: neither is supported (§ Non-goals), kill and report
		trap.KillFaulting(frame, esr)
	}
}
