package irq

import (
	"eos/internal/asm"
	"eos/internal/clock"
	"eos/internal/config"
)

// The BCM2837 System Timer: a free-running 64-bit counter (CLO/CHI,
// read via eos/internal/clock) and four 32-bit compare registers
// (C0-C3). Timer1 (the source this kernel arms) fires when CLO reaches
// the value in C1; the handler must rewrite C1 to the next deadline and
// acknowledge by writing back the CS bit it fired.
const (
	sysTimerBase = config.GPUBase + 0x3000

	regCS = sysTimerBase + 0x00
	regC1 = sysTimerBase + 0x10

	cs1Match = 1 << 1
)

// ArmTimer1 schedules the next Timer1 match micros microseconds from
// now and clears any stale pending match, the "timer rearm happens
// before the scheduler picks a new process" ordering §5 requires.
func ArmTimer1(micros uint32) {
	asm.MmioWrite32(regCS, cs1Match)
	deadline := uint32(clock.Now()) + micros
	asm.MmioWrite32(regC1, deadline)
}
