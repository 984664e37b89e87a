// Package trap is the exception vector C-ABI boundary: it decodes the
// packed Info/ESR pair the assembly trampoline (eos/internal/asm)
// hands it and routes synchronous exceptions: SVC to the syscall table,
// BRK by stepping ELR past the breakpoint (no debug shell is entered).
// IRQs do not pass through this package; cmd/kernel routes them to
// eos/internal/irq. Grounded on
// original_source/kern/src/traps.rs, traps/frame.rs, traps/syndrome.rs,
// and traps/syscall.rs.
//
// trap cannot import the process package (the scheduler needs trap.Frame,
// so the reverse import would cycle); instead process installs its
// entry points into the package-level Hooks value during boot, the
// same bridge pattern eos/internal/asm uses for DispatchHandler.
package trap

// Frame is the 816-byte trap frame §6 specifies, field order fixed to
// match save_trap_frame/ContextRestore in eos/internal/asm.
type Frame struct {
	TTBR0EL1  uint64
	TTBR1EL1  uint64
	ELRELx    uint64
	SPSRELx   uint64
	SPUser    uint64
	TPIDRUser uint64   // = pid
	Q         [32][16]byte
	X         [31]uint64 // x0..x30 (x30 = lr)
	_         uint64     // pad to 816 for 16-byte alignment
}

const FrameSize = 816

// statusOK/statusErr are the x7 sentinel values every syscall writes.
const (
	statusErr = 0
	statusOK  = 1
)
