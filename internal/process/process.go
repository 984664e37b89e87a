package process

import (
	"eos/internal/allocator"
	"eos/internal/config"
	"eos/internal/kernlog"
	"eos/internal/trap"
	"eos/internal/vm"
)

// ID is a process identifier, monotonically allocated (§3).
type ID = uint64

// File is the minimal read side of an open filesystem entry the
// loader needs — satisfied by eos/internal/fat32's file handles
// without process importing fat32 directly, mirroring the Rust
// source's trait-bound FileSystem/File rather than a concrete type.
type File interface {
	Read(p []byte) (n int, err error)
	IsEnd() bool
}

// FileSystem opens files by path for the loader.
type FileSystem interface {
	OpenFile(path string) (File, error)
}

// OpenFileEntry is one slot of a process's open_file_table.
type OpenFileEntry struct {
	File File
	Path string
}

// Process is the fixed-size record §3 describes: identity, saved
// architectural state, kernel-side resources, and scheduling state.
type Process struct {
	PID  ID
	Name string

	TrapFrame   *trap.Frame
	KernelStack uintptr // base of a 1MiB region from the bin allocator (§3's owned resource; traps themselves run on the one shared boot stack, not this one)

	UserPageTable *vm.UserPageTable // nil for kernel threads

	Cwd           string
	OpenFileTable [config.OpenFileTableSize]*OpenFileEntry

	State        State
	Priority     Priority
	NextTickTime uint64 // valid only while Running
}

const kernelStackSize = config.KernelStackSize

// New allocates a process record: a fresh kernel stack and, unless
// kernelThread, an empty user page table. Mirrors Process::new.
func New(a *allocator.Allocator, name string, kernelThread bool) *Process {
	stack := a.Alloc(kernelStackSize, 16)
	if stack == 0 {
		kernlog.Boot("process", "failed to allocate kernel stack")
		return nil
	}
	p := &Process{
		Name:        name,
		TrapFrame:   &trap.Frame{},
		KernelStack: stack,
		State:       State{Kind: Ready},
		Cwd:         "/",
	}
	if !kernelThread {
		p.UserPageTable = vm.NewUserPageTable(a)
	}
	return p
}

// IsReady reports whether p should be considered by switch_to: true
// immediately for Ready, false for Running/Dead, and for Waiting polls
// the predicate once, transitioning to Ready on success. Mirrors
// Process::is_ready.
func (p *Process) IsReady() bool {
	switch p.State.Kind {
	case Ready:
		return true
	case Running, Dead:
		return false
	case Waiting:
		if p.State.Predicate(p.TrapFrame) {
			p.State = State{Kind: Ready}
			return true
		}
		return false
	default:
		return false
	}
}

// stackTop returns the highest 16-byte-aligned user virtual address,
// the initial sp for every process (Process::get_stack_top).
func stackTop() vm.VirtAddr {
	return vm.VirtAddr(^uintptr(0) &^ 15)
}

func imageBase() vm.VirtAddr  { return vm.VirtAddr(config.USERIMGBase) }
func stackBase() vm.VirtAddr { return vm.VirtAddr(config.USERStackBase) }
