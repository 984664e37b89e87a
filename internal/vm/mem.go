package vm

import (
	"unsafe"

	"eos/internal/allocator"
	"eos/internal/config"
)

// Before the kernel's own page table is installed, physical and
// virtual addresses coincide (the teacher's page.go makes the same
// assumption throughout pageInit/allocPage), so a plain Go pointer
// doubles as a physical address.

// allocPageTable allocates one page-sized, page-aligned block from a
// and reinterprets it as a *T, zeroing it first the way
// L2PageTable::new / L3PageTable::new start from an all-zero array.
func allocPageTable[T any](a *allocator.Allocator) *T {
	addr := a.Alloc(config.PageSize, config.PageSize)
	if addr == 0 {
		panic("vm: allocator out of memory for page table")
	}
	zero(addr, config.PageSize)
	return (*T)(unsafe.Pointer(addr))
}

func physOf[T any](p *T) PhysAddr {
	return PhysAddr(uintptr(unsafe.Pointer(p)))
}

//go:nosplit
func zero(addr uintptr, n uintptr) {
	b := bytesAt(addr, n)
	for i := range b {
		b[i] = 0
	}
}

func bytesAt(addr uintptr, n uintptr) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}

//go:nosplit
func copyPhys(dst, src uintptr, n uintptr) {
	d := bytesAt(dst, n)
	s := bytesAt(src, n)
	copy(d, s)
}
