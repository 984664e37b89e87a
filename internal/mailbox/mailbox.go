// Package mailbox implements the VideoCore property-channel protocol,
// grounded on original_source/lib/pi/src/mailbox.rs and the teacher's
// mailboxRead/mailboxSend in mailbox.go. The core does not use the
// mailbox directly (framebuffer/GPU setup is an out-of-core external
// collaborator per spec.md §1); its one user is eos/internal/panicscreen's
// framebuffer request. Buffers follow the "scoped acquisition" shape §9
// prescribes for the mailbox: a Buffer owns its allocation and releases
// it when the call using it returns.
package mailbox

import (
	"eos/internal/asm"
	"eos/internal/config"
)

const (
	regBase  = config.GPUBase + 0xB880
	regRead  = regBase + 0x00
	regPeek  = regBase + 0x10
	regStat  = regBase + 0x18
	regWrite = regBase + 0x20

	statFull  = 1 << 31
	statEmpty = 1 << 30
)

// Channel identifies a VideoCore mailbox channel.
type Channel uint32

const (
	ChannelPower     Channel = 0
	ChannelFramebuf  Channel = 1
	ChannelProperty  Channel = 8
)

//go:nosplit
func read(ch Channel) uint32 {
	for {
		if asm.MmioRead32(regStat)&statEmpty == 0 {
			break
		}
	}
	data := asm.MmioRead32(regRead)
	if Channel(data&0xF) != ch {
		return 0
	}
	return data &^ 0xF
}

//go:nosplit
func write(addr uint32, ch Channel) {
	for {
		if asm.MmioRead32(regStat)&statFull == 0 {
			break
		}
	}
	asm.MmioWrite32(regWrite, (addr&^0xF)|uint32(ch))
}

// Buffer is a scoped, 16-byte-aligned property-message buffer. The
// caller constructs one with Acquire, fills in the request, calls Call,
// reads the response, and then Release — the buffer is considered
// borrowed by the mailbox protocol only for that span, per §9.
type Buffer struct {
	addr  uint32
	words []uint32
	owner func([]uint32)
	freed bool
}

// Acquire reserves a property-message buffer of the given word count from
// a 16-byte-aligned backing store supplied by alloc/free (normally the
// bin allocator's Alloc/Dealloc), mirroring the mailbox's own
// borrowed-for-the-call lifetime rather than the caller hanging on to a
// raw pointer indefinitely.
func Acquire(words int, alloc func(size, align uintptr) (uintptr, []uint32), free func(addr uintptr)) *Buffer {
	addr, backing := alloc(uintptr(words)*4, 16)
	return &Buffer{addr: uint32(addr), words: backing, owner: func([]uint32) { free(addr) }}
}

// Words exposes the buffer's backing storage for the caller to fill in
// a request before calling Call.
func (b *Buffer) Words() []uint32 { return b.words }

// Call sends the buffer on the property channel and blocks until the
// matching response arrives, then returns the buffer's own backing
// slice for the caller to decode in place.
func (b *Buffer) Call() []uint32 {
	write(b.addr, ChannelProperty)
	for read(ChannelProperty) == 0 {
	}
	return b.words
}

// Release returns the buffer's backing storage. Callers must not touch
// the slice returned by Call after Release.
func (b *Buffer) Release() {
	if b.freed {
		return
	}
	b.freed = true
	if b.owner != nil {
		b.owner(b.words)
	}
}
