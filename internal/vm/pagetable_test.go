package vm

import (
	"testing"
	"unsafe"

	"eos/internal/allocator"
	"eos/internal/config"
)

func newTestAllocator(t *testing.T) *allocator.Allocator {
	t.Helper()
	const size = 8 * 1024 * 1024
	buf := make([]byte, size+config.PageSize)
	start := (uintptr(unsafe.Pointer(&buf[0])) + config.PageSize - 1) &^ (config.PageSize - 1)
	return allocator.New(start, start+size)
}

func TestUserAllocMapsFreshZeroedPage(t *testing.T) {
	a := newTestAllocator(t)
	u := NewUserPageTable(a)
	va := VirtAddr(config.USERIMGBase)
	page := u.Alloc(va)
	if len(page) != config.PageSize {
		t.Fatalf("page length = %d, want %d", len(page), config.PageSize)
	}
	for i, b := range page {
		if b != 0 {
			t.Fatalf("page not zeroed at offset %d", i)
			break
		}
	}
	page[0] = 0xAB
	if !u.IsValid(VirtAddr(0)) {
		t.Fatal("expected relative address 0 to be valid after Alloc")
	}
}

func TestUserAllocPanicsBelowImageBase(t *testing.T) {
	a := newTestAllocator(t)
	u := NewUserPageTable(a)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for address below USERIMGBase")
		}
	}()
	u.Alloc(VirtAddr(0))
}

func TestUserAllocPanicsOnDoubleMap(t *testing.T) {
	a := newTestAllocator(t)
	u := NewUserPageTable(a)
	va := VirtAddr(config.USERIMGBase)
	u.Alloc(va)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic remapping an already-mapped page")
		}
	}()
	u.Alloc(va)
}

func TestCloneFromCopiesPagesNotMappings(t *testing.T) {
	a := newTestAllocator(t)
	src := NewUserPageTable(a)
	va := VirtAddr(config.USERIMGBase)
	page := src.Alloc(va)
	page[0] = 0x42

	dst := NewUserPageTable(a)
	dst.CloneFrom(src)

	if !dst.IsValid(VirtAddr(0)) {
		t.Fatal("expected cloned table to have the same mapping valid")
	}
	srcPhys := src.GetKernAddr(va)
	dstPhys := dst.GetKernAddr(va)
	if srcPhys == dstPhys {
		t.Fatal("cloned page aliases the source page's physical address")
	}
	dstBytes := bytesAt(uintptr(dstPhys), config.PageSize)
	if dstBytes[0] != 0x42 {
		t.Fatal("cloned page did not copy source contents")
	}
}

func TestGetPhysAddrPanicsWhenUnmapped(t *testing.T) {
	a := newTestAllocator(t)
	u := NewUserPageTable(a)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic translating an unmapped address")
		}
	}()
	u.GetKernAddr(VirtAddr(config.USERIMGBase))
}

func TestKernPageTableIdentityMapsRAM(t *testing.T) {
	a := newTestAllocator(t)
	const ramEnd = 16 * config.PageSize
	kpt := NewKernPageTable(a, ramEnd)
	if !kpt.IsValid(VirtAddr(0)) {
		t.Fatal("expected address 0 to be mapped in the kernel table")
	}
	if kpt.GetPhysAddr(VirtAddr(config.PageSize)) != PhysAddr(config.PageSize) {
		t.Fatal("expected identity mapping for kernel page table")
	}
}
