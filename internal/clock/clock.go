// Package clock is the kernel's sole time source: the BCM2837 System
// Timer's free-running 64-bit microsecond counter. Split out from
// eos/internal/irq (which owns arming the timer's match register) so
// that eos/internal/trap — which needs to read the clock for sleep/time
// syscalls but must not import irq (irq's Handler type is itself typed
// against trap.Frame) — has a leaf dependency to reach for instead.
package clock

import (
	"eos/internal/asm"
	"eos/internal/config"
)

const (
	sysTimerBase = config.GPUBase + 0x3000
	regCLO       = sysTimerBase + 0x04
	regCHI       = sysTimerBase + 0x08
)

// Now returns the current free-running microsecond counter. It never
// resets for the lifetime of the board (§9: "document the clock as
// monotonic and never resetting").
func Now() uint64 {
	hi := asm.MmioRead32(regCHI)
	lo := asm.MmioRead32(regCLO)
	hi2 := asm.MmioRead32(regCHI)
	if hi2 != hi {
		lo = asm.MmioRead32(regCLO)
		hi = hi2
	}
	return uint64(hi)<<32 | uint64(lo)
}
