package vm

import (
	"eos/internal/allocator"
	"eos/internal/config"
	"eos/internal/kernlog"
)

// L2PageTable is the top-level table: up to config.MaxL3Tables entries
// point at real L3 tables, the rest are never walked.
type L2PageTable struct {
	Entries [config.L2EntryCount]RawL2Entry
}

// L3PageTable holds one entry per 64KiB page in its range.
type L3PageTable struct {
	Entries [config.L3EntryCount]RawL3Entry
}

// PageTable owns one L2 table and the handful of L3 tables it can
// address (config.MaxL3Tables of them, matching the 3*512MiB user
// virtual-address-space ceiling spec.md names). Both KernPageTable and
// UserPageTable are thin wrappers around one of these.
type PageTable struct {
	L2 *L2PageTable
	L3 [config.MaxL3Tables]*L3PageTable
}

// newPageTable allocates a fresh PageTable from a, wiring every L3
// table's physical address into the matching L2 entry with the given
// access permission. Mirrors PageTable::new in pagetable.rs.
func newPageTable(a *allocator.Allocator, perm uint64) *PageTable {
	pt := &PageTable{L2: allocPageTable[L2PageTable](a)}
	for i := 0; i < config.MaxL3Tables; i++ {
		l3 := allocPageTable[L3PageTable](a)
		pt.L3[i] = l3
		pt.L2.Entries[i] = newTableEntry(physOf(l3), perm)
	}
	return pt
}

// locateEntry returns the L3 entry slot addressed by va.
func (pt *PageTable) locateEntry(va VirtAddr) *RawL3Entry {
	l2i, l3i := locate(va)
	return &pt.L3[l2i].Entries[l3i]
}

// IsValid reports whether va currently maps to a present page.
func (pt *PageTable) IsValid(va VirtAddr) bool {
	return pt.locateEntry(va).Valid()
}

// SetEntry installs entry at the slot va addresses.
func (pt *PageTable) SetEntry(va VirtAddr, entry RawL3Entry) {
	*pt.locateEntry(va) = entry
}

// BaseAddr returns the physical address of the L2 table, the value
// TTBR0_EL1/TTBR1_EL1 must be loaded with to activate this table.
func (pt *PageTable) BaseAddr() PhysAddr {
	return physOf(pt.L2)
}

// GetPhysAddr translates va to its backing physical address, including
// the low bits below the page boundary. Panics if va is not mapped.
func (pt *PageTable) GetPhysAddr(va VirtAddr) PhysAddr {
	aligned := VirtAddr(uintptr(va) &^ (config.PageSize - 1))
	entry := pt.locateEntry(aligned)
	if !entry.Valid() {
		panic("vm: address not mapped")
	}
	return entry.Addr() | PhysAddr(uintptr(va)&(config.PageSize-1))
}

// entries iterates every L3 slot across all L3 tables in order,
// mirroring pagetable.rs's chained IntoIterator over l3[0] then l3[1]
// — generalized here to config.MaxL3Tables tables instead of a
// hardcoded pair.
func (pt *PageTable) entries(visit func(e *RawL3Entry)) {
	for _, l3 := range pt.L3 {
		for i := range l3.Entries {
			visit(&l3.Entries[i])
		}
	}
}

// KernPageTable is the identity-mapped table used while running at EL1
// in kernel mode: every physical RAM page and the MMIO window is
// mapped 1:1, so virtual and physical addresses coincide.
type KernPageTable struct {
	*PageTable
}

// NewKernPageTable builds the identity map: RAM from 0 up to ramEnd as
// normal, cacheable memory, then the peripheral window
// [config.GPUBase, config.IOBaseEnd) as device memory. Mirrors
// KernPageTable::new in pagetable.rs.
func NewKernPageTable(a *allocator.Allocator, ramEnd uintptr) *KernPageTable {
	pt := newPageTable(a, PermKernRW)
	addr := uintptr(0)
	pt.entries(func(e *RawL3Entry) {
		if addr+config.PageSize > ramEnd {
			return
		}
		*e = newEntry(PhysAddr(addr), AttrMem, ShInner, PermKernRW)
		addr += config.PageSize
	})
	for addr := uintptr(config.GPUBase); addr+config.PageSize <= config.IOBaseEnd; addr += config.PageSize {
		pt.SetEntry(VirtAddr(addr), newEntry(PhysAddr(addr), AttrDev, ShOuter, PermKernRW))
	}
	kernlog.Boot("vm", "kernel page table built")
	return &KernPageTable{pt}
}

// UserPageTable backs a single user process's address space: the
// program image, heap, and stack, all above config.USERIMGBase.
type UserPageTable struct {
	*PageTable
	alloc *allocator.Allocator
}

// NewUserPageTable allocates an empty user table (no pages mapped yet).
func NewUserPageTable(a *allocator.Allocator) *UserPageTable {
	return &UserPageTable{PageTable: newPageTable(a, PermUserRW), alloc: a}
}

// Alloc maps a fresh, zeroed page at va (which must be >=
// config.USERIMGBase and not already mapped) and returns it as a byte
// slice the caller can fill in — typically the loader copying in a
// segment of the program image. Mirrors UserPageTable::alloc.
func (u *UserPageTable) Alloc(va VirtAddr) []byte {
	if uintptr(va) < config.USERIMGBase {
		panic("vm: virtual address below USERIMGBase")
	}
	rel := VirtAddr(uintptr(va) - config.USERIMGBase)
	if u.IsValid(rel) {
		panic("vm: virtual address already mapped")
	}
	phys := u.alloc.Alloc(config.PageSize, config.PageSize)
	if phys == 0 {
		panic("vm: allocator out of memory")
	}
	zero(phys, config.PageSize)
	u.SetEntry(rel, newEntry(PhysAddr(phys), AttrMem, ShInner, PermUserRW))
	return bytesAt(phys, config.PageSize)
}

// CloneFrom populates u by copying every mapped page out of old into a
// freshly allocated physical page of u's own, giving the two tables
// identical mappings with disjoint backing storage — the page-level
// copy-on-fork semantics fork() needs. Mirrors UserPageTable::from.
func (u *UserPageTable) CloneFrom(old *UserPageTable) {
	oldL3 := flatten(old.PageTable)
	newL3 := flatten(u.PageTable)
	for i, oldEntry := range oldL3 {
		if !oldEntry.Valid() {
			continue
		}
		newPhys := u.alloc.Alloc(config.PageSize, config.PageSize)
		if newPhys == 0 {
			panic("vm: allocator out of memory during fork")
		}
		copyPhys(newPhys, uintptr(oldEntry.Addr()), config.PageSize)
		*newL3[i] = oldEntry.withAddr(PhysAddr(newPhys))
	}
}

// GetKernAddr translates an absolute user virtual address (at or above
// config.USERIMGBase) to the physical address backing it.
func (u *UserPageTable) GetKernAddr(va VirtAddr) PhysAddr {
	return u.GetPhysAddr(VirtAddr(uintptr(va) - config.USERIMGBase))
}

// Free returns every mapped page, then the L3 and L2 table frames
// themselves, to the allocator; u is unusable afterwards. Call exactly
// once, when the owning process is reaped — there is no finalizer backing
// this the way Rust's Drop would, since the kernel has no garbage
// collector to rely on for physical pages (§6 Non-goals: no swap, no
// demand paging, one owner per page).
func (u *UserPageTable) Free() {
	u.entries(func(e *RawL3Entry) {
		if e.Valid() {
			u.alloc.Dealloc(uintptr(e.Addr()), config.PageSize, config.PageSize)
			*e = 0
		}
	})
	for i, l3 := range u.L3 {
		u.alloc.Dealloc(uintptr(physOf(l3)), config.PageSize, config.PageSize)
		u.L3[i] = nil
	}
	u.alloc.Dealloc(uintptr(physOf(u.L2)), config.PageSize, config.PageSize)
	u.L2 = nil
}

func flatten(pt *PageTable) []*RawL3Entry {
	out := make([]*RawL3Entry, 0, config.MaxL3Tables*config.L3EntryCount)
	for _, l3 := range pt.L3 {
		for i := range l3.Entries {
			out = append(out, &l3.Entries[i])
		}
	}
	return out
}
