// Package sdcard drives the BCM2837 EMMC controller (an SDHCI-class
// host) in PIO mode, just enough to satisfy eos/internal/fat32's
// BlockDevice: CMD17 READ_SINGLE_BLOCK polled a word at a time through
// the buffer data port. Grounded on the teacher's sdhci.go register
// layout and command sequencing (sdhciSendCommand/sdhciWaitReady);
// sdhciReadBlock itself is left as "TODO: Implement block read using
// CMD17" there, so this package is that TODO done, in this kernel's
// own idiom rather than the teacher's platform-switched file layout.
package sdcard

import (
	"errors"

	"eos/internal/asm"
	"eos/internal/config"
)

// Register offsets, trimmed to the PIO single-block read path.
const (
	regArgument      = 0x08
	regTransferMode  = 0x0C
	regCommand       = 0x0E
	regResponse0     = 0x10
	regBuffer        = 0x20
	regPresentState  = 0x24
	regBlockSizeCnt  = 0x04
	regIntStatus     = 0x30

	presentCmdInhibit    = 1 << 0
	presentCmdInhibitDat = 1 << 1

	intCmdComplete  = 1 << 0
	intBufferRead   = 1 << 5
	intError        = 1 << 15

	cmdResponse48 = 2 << 0
	cmdDataPresent = 1 << 5
	cmdIndexShift  = 8

	tmRead = 1 << 4 // transfer mode: card-to-host

	cmd17ReadSingleBlock = 17

	blockSize = 512
)

var errTimeout = errors.New("sdcard: controller timeout")
var errCommand = errors.New("sdcard: command error")

// Card is an SDHCI host at a fixed MMIO base, identity-mapped by the
// kernel page table as device memory the same way config.GPUBase's
// peripheral window is.
type Card struct {
	base uintptr
}

// base address of the BCM2837 EMMC controller within the peripheral
// window (GPUBase+0x300000, the same offset the teacher's
// sdhci_init_rpi4.go comments document for the Pi 4's analogous
// controller, adjusted to the Pi 3/BCM2837 peripheral base already in
// config.GPUBase).
const emmcOffset = 0x300000

// Open returns a Card ready for ReadSector, assuming firmware has
// already powered and clocked the EMMC controller (stage-1 boot ROM
// responsibility, not this kernel's).
func Open() *Card {
	return &Card{base: config.GPUBase + emmcOffset}
}

func (c *Card) read32(off uintptr) uint32   { return asm.MmioRead32(c.base + off) }
func (c *Card) write32(off uintptr, v uint32) { asm.MmioWrite32(c.base+off, v) }
func (c *Card) read16(off uintptr) uint16   { return asm.MmioRead16(c.base + off) }
func (c *Card) write16(off uintptr, v uint16) { asm.MmioWrite16(c.base+off, v) }

func (c *Card) waitReady() bool {
	for timeout := 1000000; timeout > 0; timeout-- {
		if c.read32(regPresentState)&(presentCmdInhibit|presentCmdInhibitDat) == 0 {
			return true
		}
	}
	return false
}

// sendCommand issues a command and blocks for its completion
// interrupt, mirroring sdhciSendCommand's clear-status/set-argument/
// set-command/poll-status sequence.
func (c *Card) sendCommand(index uint8, arg uint32, flags uint16) error {
	if !c.waitReady() {
		return errTimeout
	}
	c.write16(regIntStatus, 0xFFFF)
	c.write32(regArgument, arg)
	c.write16(regCommand, uint16(index)<<cmdIndexShift|flags)

	for timeout := 1000000; timeout > 0; timeout-- {
		status := c.read16(regIntStatus)
		if status&intCmdComplete != 0 {
			c.write16(regIntStatus, intCmdComplete)
			return nil
		}
		if status&intError != 0 {
			c.write16(regIntStatus, intError)
			return errCommand
		}
	}
	return errTimeout
}

// ReadSector reads one 512-byte sector via CMD17, polling the buffer-
// read-ready interrupt and draining the 128-word data port, satisfying
// eos/internal/fat32.BlockDevice.
func (c *Card) ReadSector(lba uint64, buf []byte) error {
	if len(buf) < blockSize {
		return errors.New("sdcard: buffer smaller than one sector")
	}
	c.write32(regBlockSizeCnt, blockSize)
	c.write16(regTransferMode, tmRead)
	if err := c.sendCommand(cmd17ReadSingleBlock, uint32(lba), cmdResponse48|cmdDataPresent); err != nil {
		return err
	}

	for timeout := 1000000; timeout > 0; timeout-- {
		status := c.read16(regIntStatus)
		if status&intBufferRead != 0 {
			c.write16(regIntStatus, intBufferRead)
			for i := 0; i < blockSize; i += 4 {
				word := c.read32(regBuffer)
				buf[i+0] = byte(word)
				buf[i+1] = byte(word >> 8)
				buf[i+2] = byte(word >> 16)
				buf[i+3] = byte(word >> 24)
			}
			return nil
		}
		if status&intError != 0 {
			c.write16(regIntStatus, intError)
			return errCommand
		}
	}
	return errTimeout
}
