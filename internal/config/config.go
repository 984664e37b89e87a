// Package config centralizes the board layout and ABI constants shared by
// every kernel subsystem, the way the teacher keeps linker-symbol and
// memory-layout constants in one place instead of scattering them.
package config

import "eos/internal/asm"

const (
	// PageSize is the MMU's translation granule: 64 KiB pages throughout.
	PageSize = 65536

	// PageShift is log2(PageSize), used to split virtual addresses.
	PageShift = 16

	// L2IndexShift/L3IndexShift locate the L2 and L3 indices within a
	// virtual address: L2 index = (v >> L2IndexShift) & L2IndexMask, etc.
	L2IndexShift = 29
	L2IndexMask  = 0x1FF
	L3IndexShift = 16
	L3IndexMask  = 0x1FFF

	// L2EntryCount / L3EntryCount are the fixed table sizes (§3).
	L2EntryCount = 8192
	L3EntryCount = 8192

	// MaxL3Tables is the number of L3 tables one PageTable owns (the L2's
	// first three slots reference them), capping user VM at 3*512MiB.
	MaxL3Tables = 3

	// USERIMGBase is the high-half virtual base user images load at.
	// TTBR1 selection strips the top bits, so this is "conceptually" the
	// high half; any value works as long as TTBR1 selection is consistent.
	USERIMGBase = 0xFFFF_FFFF_C000_0000

	// USERMaxVMSize is the VM span the three L3 tables cover (3 * 512 MiB).
	// Above USERIMGBase only the first 1 GiB of it lies inside the 64-bit
	// address space.
	USERMaxVMSize = 3 * 512 * 1024 * 1024

	// USERStackBase is the highest page of the 64-bit address space, the
	// page holding the initial user sp (process.stackTop).
	USERStackBase = 1<<64 - PageSize

	// GPUBase/IOBaseEnd bound the MMIO window the kernel page table
	// identity-maps as device memory (BCM2837 peripheral window).
	GPUBase   = 0x3F000000
	IOBaseEnd = 0x40000000

	// TickMillis is the fixed scheduling quantum (§4.4); 10ms as in the
	// original.
	TickMillis = 10

	// KernelStackSize is the fixed per-process kernel stack allocation.
	KernelStackSize = 1 * 1024 * 1024

	// OpenFileTableSize is the number of filesystem-entry slots a Process
	// carries (§3).
	OpenFileTableSize = 16
)

// Linker symbols the boot assembly exports; resolved once during
// InitLinkerSymbols and cached, mirroring the teacher's getLinkerSymbol
// helper in memory.go.
var (
	TextBeg uintptr
	TextEnd uintptr
	BSSBeg  uintptr
	BSSEnd  uintptr
)

// InitLinkerSymbols resolves the boot-time addresses the allocator and
// kernel page table are built from, mirroring the teacher's
// getLinkerSymbol switch collapsed to the four cases this kernel
// actually consults. Call once, at the very start of boot, before
// constructing anything in internal/allocator or internal/vm.
func InitLinkerSymbols() {
	TextBeg = asm.GetTextStartAddr()
	TextEnd = asm.GetTextEndAddr()
	BSSBeg = asm.GetBssStartAddr()
	BSSEnd = asm.GetBssEndAddr()
}