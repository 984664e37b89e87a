package panicscreen

import (
	"unsafe"

	"eos/internal/mailbox"
)

// Property tag IDs for the VideoCore framebuffer, the subset
// framebuffer_rpi.go's sendMessages drives (FB_ALLOCATE_BUFFER,
// FB_SET_PHYSICAL_DIMENSIONS, FB_SET_VIRTUAL_DIMENSIONS,
// FB_SET_BITS_PER_PIXEL, FB_GET_BYTES_PER_ROW).
const (
	tagSetPhysicalDims = 0x00048003
	tagSetVirtualDims  = 0x00048004
	tagSetBitsPerPixel = 0x00048005
	tagAllocateBuffer  = 0x00040001
	tagGetBytesPerRow  = 0x00040008
	tagEnd             = 0x00000000

	bitsPerPixel   = 32
	bufferAlign    = 16
	respRequest    = 0x00000000
	respOK         = 0x80000000
	busAliasMask   = 0x3FFFFFFF // strips the VideoCore L2-cache-alias bits from a bus address
)

// framebuffer is the geometry the property call returns: the buffer's
// ARM-side physical address (the bus alias bits stripped) and the pitch.
type framebuffer struct {
	addr   uintptr
	width  uint32
	height uint32
	pitch  uint32
}

// acquireFramebuffer builds a property-channel message requesting a
// fixed 640x480x32bpp buffer and parses the response, mirroring
// framebufferInit's tag sequence in framebuffer_rpi.go with the
// generic multi-tag bookkeeping dropped in favor of five tags whose
// shapes are known up front.
func acquireFramebuffer() (framebuffer, bool) {
	if alloc == nil {
		return framebuffer{}, false
	}
	// size (1) + code (1) + 5 tags * (id+len+code+2 value words) + end tag (1)
	const words = 2 + 5*5 + 1
	buf := mailbox.Acquire(words, func(size, align uintptr) (uintptr, []uint32) {
		addr := alloc.Alloc(size, align)
		if addr == 0 {
			return 0, nil
		}
		return addr, unsafe.Slice((*uint32)(unsafe.Pointer(addr)), size/4)
	}, func(addr uintptr) {
		alloc.Dealloc(addr, uintptr(words)*4, bufferAlign)
	})
	w := buf.Words()
	if w == nil {
		return framebuffer{}, false
	}
	defer buf.Release()

	i := 2 // reserve size/code header, filled in below

	writeTag := func(id uint32, v0, v1 uint32) {
		w[i] = id
		w[i+1] = 8
		w[i+2] = respRequest
		w[i+3] = v0
		w[i+4] = v1
		i += 5
	}

	writeTag(tagSetPhysicalDims, screenWidth, screenHeight)
	writeTag(tagSetVirtualDims, screenWidth, screenHeight)
	writeTag(tagSetBitsPerPixel, bitsPerPixel, 0)
	allocTagAt := i
	writeTag(tagAllocateBuffer, bufferAlign, 0)
	rowTagAt := i
	writeTag(tagGetBytesPerRow, 0, 0)
	w[i] = tagEnd
	i++

	w[0] = uint32(i) * 4
	w[1] = respRequest

	resp := buf.Call()

	if resp[0] != w[0] {
		return framebuffer{}, false
	}
	fbAddr := resp[allocTagAt+3] & busAliasMask
	pitch := resp[rowTagAt+3]
	if fbAddr == 0 || pitch == 0 {
		return framebuffer{}, false
	}
	return framebuffer{addr: uintptr(fbAddr), width: screenWidth, height: screenHeight, pitch: pitch}, true
}
