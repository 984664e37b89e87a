// Package irq is the interrupt controller driver and the bounded IRQ
// registry §9 calls for: "Represent as a bounded table (8 entries, one
// per supported source) of optional owned closures; register/invoke by
// numeric index, not by inheritance." Grounded on
// original_source/lib/pi/src/interrupt.rs's Controller/Interrupt and the
// teacher's gic_qemu.go enable/pending/ack sequence.
package irq

import (
	"eos/internal/asm"
	"eos/internal/config"
	"eos/internal/trap"
)

// Source is one of the BCM2837's eight interrupt lines the kernel cares
// about, matching original_source's Interrupt enum.
type Source int

const (
	Timer1 Source = iota
	Timer3
	USB
	GPIO0
	GPIO1
	GPIO2
	GPIO3
	UART
	maxSources
)

const (
	controllerBase = config.GPUBase + 0xB000 + 0x200

	regPendingBasic = controllerBase + 0x00
	regPending1     = controllerBase + 0x04
	regPending2     = controllerBase + 0x08
	regEnable1      = controllerBase + 0x10
	regEnable2      = controllerBase + 0x14
	regDisable1     = controllerBase + 0x1C
	regDisable2     = controllerBase + 0x20
)

func irqNumber(s Source) uint32 {
	switch s {
	case Timer1:
		return 1
	case Timer3:
		return 3
	case USB:
		return 9
	case GPIO0:
		return 49
	case GPIO1:
		return 50
	case GPIO2:
		return 51
	case GPIO3:
		return 52
	case UART:
		return 57
	default:
		panic("irq: unknown source")
	}
}

func regAndMask(s Source) (reg uintptr, disableReg uintptr, mask uint32) {
	n := irqNumber(s)
	if n < 32 {
		return regEnable1, regDisable1, 1 << n
	}
	return regEnable2, regDisable2, 1 << (n - 32)
}

// Enable unmasks the given interrupt source at the controller.
func Enable(s Source) {
	reg, _, mask := regAndMask(s)
	asm.MmioWrite32(reg, mask)
}

// Disable masks the given interrupt source at the controller.
func Disable(s Source) {
	_, reg, mask := regAndMask(s)
	asm.MmioWrite32(reg, mask)
}

// IsPending reports whether the given source currently has an interrupt
// asserted.
func IsPending(s Source) bool {
	n := irqNumber(s)
	reg := uintptr(regPending1)
	bit := n
	if n >= 32 {
		reg = regPending2
		bit -= 32
	}
	return asm.MmioRead32(reg)&(1<<bit) != 0
}

// Handler is invoked with the trap frame of the context the interrupt
// preempted. Handlers run with IRQs still masked (§5) and must not
// block. Typed against *trap.Frame rather than the process package
// itself, since only the frame — not the owning Process record — is
// ever needed at this layer (the timer handler only reprograms the
// match register and asks the scheduler to switch).
type Handler func(tf *trap.Frame)

var handlers [maxSources]Handler

// Register installs h as the handler for s. A nil h clears any existing
// registration. This is the only way handlers are attached — by numeric
// index into the bounded table, never by subclassing or an interface
// hierarchy (§9).
func Register(s Source, h Handler) {
	handlers[s] = h
}

// Dispatch is called from the boot-time dispatch router for every
// IRQ-kind trap: it scans every supported source and invokes the
// registered handler (if any) for each one currently pending.
func Dispatch(tf *trap.Frame) {
	for s := Source(0); s < maxSources; s++ {
		if IsPending(s) && handlers[s] != nil {
			handlers[s](tf)
		}
	}
}
