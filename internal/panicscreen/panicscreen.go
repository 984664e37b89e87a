// Package panicscreen renders an unrecoverable-fault diagnostic screen
// straight onto the mailbox/framebuffer device: the faulting registers,
// ELR/FAR/ESR, and a dump of the process table. Grounded on the
// teacher's mailbox-based property-tag protocol in
// src/go/mazarin/framebuffer_rpi.go for acquiring the framebuffer, and
// on framebuffer_qemu.go's RGBA/XRGB8888 byte-swap for flushing a
// drawn backbuffer into it.
//
// Unlike the teacher's own boot splash (framebuffer_text.go's 8x8
// bitmap font), this path runs after a fault with very little kernel
// state left trustworthy, so it goes through gg+freetype's outline
// rasterizer instead of a hand-rolled glyph table (§3's DOMAIN STACK:
// these are the only third-party packages the teacher's go.mod
// requires, and the panic screen is their one concrete home in this
// kernel).
package panicscreen

import (
	"image"
	"unsafe"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"eos/internal/allocator"
	"eos/internal/asm"
	"eos/internal/process"
	"eos/internal/trap"
)

const (
	screenWidth  = 640
	screenHeight = 480
	lineHeight   = 18
)

var (
	alloc *allocator.Allocator
	sched *process.GlobalScheduler
	face  font.Face
)

// Init records the allocator Show uses to acquire the mailbox property
// buffer and framebuffer memory, and the scheduler Show dumps the
// process table from. Call once at boot, before wiring trap.OnFault to
// Show.
func Init(a *allocator.Allocator, s *process.GlobalScheduler) {
	alloc = a
	sched = s
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return
	}
	face = truetype.NewFace(f, &truetype.Options{Size: 14})
}

// Show renders the fault screen and returns; the caller
// (trap.KillFaulting) then tears the faulting process down. If no
// framebuffer can be acquired it draws nothing. Wired to trap.OnFault at
// boot so trap itself never imports gg/freetype.
func Show(tf *trap.Frame, esr uint64) {
	fb, ok := acquireFramebuffer()
	if !ok {
		return
	}

	ctx := gg.NewContext(int(fb.width), int(fb.height))
	ctx.SetRGB(0, 0, 0)
	ctx.Clear()
	if face != nil {
		ctx.SetFontFace(face)
	}
	ctx.SetRGB(1, 0.25, 0.25)

	y := float64(lineHeight)
	put := func(s string) {
		ctx.DrawString(s, 8, y)
		y += lineHeight
	}

	put("KERNEL PANIC")
	put("esr=" + hex64(esr) + " far=" + hex64(asm.ReadFarEl1()))
	put("elr=" + hex64(tf.ELRELx) + " spsr=" + hex64(tf.SPSRELx))
	put("pid=" + decimal(tf.TPIDRUser) + " sp=" + hex64(tf.SPUser))
	for i := 0; i+4 <= len(tf.X); i += 4 {
		put("x" + decimal(uint64(i)) + "=" + hex64(tf.X[i]) +
			" x" + decimal(uint64(i+1)) + "=" + hex64(tf.X[i+1]) +
			" x" + decimal(uint64(i+2)) + "=" + hex64(tf.X[i+2]) +
			" x" + decimal(uint64(i+3)) + "=" + hex64(tf.X[i+3]))
	}

	y += lineHeight / 2
	put("PID  STATE    PRI  NAME")
	if sched != nil {
		for _, p := range sched.Snapshot() {
			marker := " "
			if p.Running {
				marker = "*"
			}
			put(marker + decimal(p.PID) + "  " + stateName(p.State) + "  " + priorityName(p.Priority) + "  " + p.Name)
		}
	}

	flush(ctx, fb)
}

func stateName(k process.Kind) string {
	switch k {
	case process.Start:
		return "start  "
	case process.Ready:
		return "ready  "
	case process.Running:
		return "running"
	case process.Waiting:
		return "waiting"
	case process.Dead:
		return "dead   "
	default:
		return "?"
	}
}

func priorityName(p process.Priority) string {
	switch p {
	case process.Low:
		return "low "
	case process.Medium:
		return "med "
	case process.High:
		return "high"
	case process.Realtime:
		return "rt  "
	default:
		return "?"
	}
}

func decimal(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func hex64(n uint64) string {
	const digits = "0123456789abcdef"
	var buf [16]byte
	for i := 15; i >= 0; i-- {
		buf[i] = digits[n&0xF]
		n >>= 4
	}
	return "0x" + string(buf[:])
}

// flush converts the gg context's RGBA backbuffer into the
// framebuffer's XRGB8888 byte order and copies it into the mailbox's
// allocated buffer, mirroring framebuffer_qemu.go's flushGGToFramebuffer
// channel-swap loop.
func flush(ctx *gg.Context, fb framebuffer) {
	im, ok := ctx.Image().(*image.RGBA)
	if !ok {
		return
	}
	width := int(fb.width)
	height := int(fb.height)
	if width > im.Bounds().Dx() {
		width = im.Bounds().Dx()
	}
	if height > im.Bounds().Dy() {
		height = im.Bounds().Dy()
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(fb.addr)), int(fb.pitch)*height)
	for py := 0; py < height; py++ {
		srcRow := im.Pix[py*im.Stride:]
		dstRow := dst[py*int(fb.pitch):]
		for px := 0; px < width; px++ {
			si := px * 4
			di := px * 4
			r, g, b := srcRow[si+0], srcRow[si+1], srcRow[si+2]
			dstRow[di+0] = b
			dstRow[di+1] = g
			dstRow[di+2] = r
			dstRow[di+3] = 0
		}
	}
	asm.Dsb()
}
