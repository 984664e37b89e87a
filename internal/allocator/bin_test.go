package allocator

import (
	"testing"
	"unsafe"
)

// newTestAllocator backs the allocator's physical range with a plain
// byte slice; the allocator only ever treats free memory as opaque
// addresses, so a heap-backed slice stands in fine for real RAM.
func newTestAllocator(t *testing.T, size uintptr) (*Allocator, uintptr) {
	t.Helper()
	buf := make([]byte, size+4096)
	start := alignUp(uintptr(unsafe.Pointer(&buf[0])), 4096)
	return New(start, start+size), start
}

func alignUp(v, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}

func TestMapToBinPowersOfTwo(t *testing.T) {
	cases := []struct {
		size uintptr
		want int
	}{
		{1, 0},
		{8, 0},
		{9, 1},
		{16, 1},
		{17, 2},
		{1 << 20, 17},
	}
	for _, c := range cases {
		if got := mapToBin(c.size, 1); got != c.want {
			t.Errorf("mapToBin(%d) = %d, want %d", c.size, got, c.want)
		}
	}
}

func TestAllocDeallocRoundTrip(t *testing.T) {
	a, _ := newTestAllocator(t, 1<<20)
	before := a.Allocated()
	addr := a.Alloc(64, 64)
	if addr == 0 {
		t.Fatal("alloc failed")
	}
	if addr%64 != 0 {
		t.Fatalf("addr %x not aligned to 64", addr)
	}
	if a.Allocated() == before {
		t.Fatal("allocated counter did not increase")
	}
	a.Dealloc(addr, 64, 64)
	if a.Allocated() != before {
		t.Fatalf("allocated counter not restored after dealloc: got %d want %d", a.Allocated(), before)
	}
}

func TestAllocSplitsLargerBlock(t *testing.T) {
	a, _ := newTestAllocator(t, 1<<20)
	small := a.Alloc(8, 8)
	if small == 0 {
		t.Fatal("alloc failed")
	}
	// A second small allocation should come from the buddy split off the
	// same larger block, not fail outright, since the pool has plenty of
	// room above the requested size.
	small2 := a.Alloc(8, 8)
	if small2 == 0 {
		t.Fatal("second small alloc failed")
	}
	if small == small2 {
		t.Fatal("two live allocations aliased the same address")
	}
}

func TestDeallocCoalescesBuddies(t *testing.T) {
	a, _ := newTestAllocator(t, 1<<20)
	before := a.Allocated()
	x := a.Alloc(8, 8)
	y := a.Alloc(8, 8)
	a.Dealloc(x, 8, 8)
	a.Dealloc(y, 8, 8)
	if a.Allocated() != before {
		t.Fatalf("allocated counter not restored after coalescing pair: got %d want %d", a.Allocated(), before)
	}
	// Allocation must still succeed once both blocks have gone back
	// through the coalescing path.
	z := a.Alloc(8, 8)
	if z == 0 {
		t.Fatal("alloc after coalescing failed")
	}
	a.Dealloc(z, 8, 8)
}

func TestAllocExhaustion(t *testing.T) {
	a, _ := newTestAllocator(t, 64)
	var got []uintptr
	for {
		addr := a.Alloc(64, 64)
		if addr == 0 {
			break
		}
		got = append(got, addr)
	}
	if len(got) == 0 {
		t.Fatal("expected at least one successful allocation")
	}
	if a.Alloc(64, 64) != 0 {
		t.Fatal("expected exhaustion to persist")
	}
}
