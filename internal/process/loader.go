package process

import (
	"eos/internal/allocator"
	"eos/internal/config"
	"eos/internal/vm"
)

// Load turns a path on the filesystem collaborator into a ready-to-run
// Process: open the file, map in its contents page by page, add a
// heap page and a stack page, and pre-populate the trap frame so the
// scheduler can switch straight into it. Mirrors Process::load /
// Process::do_load (§4.3).
func Load(a *allocator.Allocator, fs FileSystem, kernTTBR0 vm.PhysAddr, path string) (*Process, error) {
	f, err := fs.OpenFile(path)
	if err != nil {
		return nil, err
	}
	p := New(a, path, false)
	if p == nil {
		return nil, errNoMemory
	}

	codeVA := imageBase()
	for !f.IsEnd() {
		page := p.UserPageTable.Alloc(codeVA)
		n, rerr := f.Read(page)
		if rerr != nil && n == 0 {
			break
		}
		codeVA = vm.VirtAddr(uintptr(codeVA) + config.PageSize)
	}

	// One additional RWX page as the initial heap, immediately after
	// the program image, page-aligned.
	heapVA := vm.VirtAddr((uintptr(codeVA) + config.PageSize - 1) &^ (config.PageSize - 1))
	p.UserPageTable.Alloc(heapVA)

	// Initial user stack.
	p.UserPageTable.Alloc(stackBase())

	p.TrapFrame.SPUser = uint64(stackTop())
	p.TrapFrame.ELRELx = uint64(imageBase())
	p.TrapFrame.TTBR0EL1 = uint64(kernTTBR0)
	p.TrapFrame.TTBR1EL1 = uint64(p.UserPageTable.BaseAddr())
	// EL1h->EL0t, D/A/F masked (bits 9, 8, 6), mode bits 0: EL0t.
	p.TrapFrame.SPSRELx = 0b11_0100_0000

	return p, nil
}

type loadError string

func (e loadError) Error() string { return string(e) }

const errNoMemory = loadError("process: out of memory allocating process record")
