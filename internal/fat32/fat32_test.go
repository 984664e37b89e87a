package fat32

import (
	"bytes"
	"testing"
)

// memDevice is an in-memory BlockDevice backing a hand-built FAT32
// image, used to test the reader without real hardware.
type memDevice struct {
	sectors [][sectorSize]byte
}

func (m *memDevice) ReadSector(lba uint64, buf []byte) error {
	copy(buf, m.sectors[lba][:])
	return nil
}

func putLE16(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// buildImage assembles a minimal six-sector FAT32 volume: MBR (sector
// 0), BPB (sector 1), a one-sector FAT (sector 2), a one-sector root
// directory holding a single "SHELL" entry (sector 3), and that file's
// one-sector data cluster (sector 4), containing content.
func buildImage(content []byte) *memDevice {
	dev := &memDevice{sectors: make([][sectorSize]byte, 6)}

	mbr := &dev.sectors[0]
	mbr[446] = 0x80                 // boot indicator
	mbr[446+4] = 0x0C                // FAT32 LBA partition type
	putLE32(mbr[446+8:], 1)          // relative sector: partition starts at sector 1
	putLE32(mbr[446+12:], 5)         // total sectors in partition
	mbr[510], mbr[511] = 0x55, 0xAA

	bpb := &dev.sectors[1]
	putLE16(bpb[11:], 512) // bytes per sector
	bpb[13] = 1            // sectors per cluster
	putLE16(bpb[14:], 1)   // reserved sectors (just the boot sector itself)
	bpb[16] = 1            // number of FATs
	putLE32(bpb[36:], 1)   // sectors per FAT32
	putLE32(bpb[44:], 2)   // root dir cluster
	bpb[510], bpb[511] = 0x55, 0xAA

	fat := &dev.sectors[2]
	putLE32(fat[2*4:], 0x0FFFFFFF) // cluster 2 (root dir): EOC
	putLE32(fat[3*4:], 0x0FFFFFFF) // cluster 3 (file data): EOC

	root := &dev.sectors[3]
	copy(root[0:8], []byte("SHELL   "))
	copy(root[8:11], []byte("   "))
	root[11] = 0x20 // archive, not a directory
	putLE16(root[20:], 0)
	putLE16(root[26:], 3) // data cluster 3
	putLE32(root[28:], uint32(len(content)))

	data := &dev.sectors[4]
	copy(data[:], content)

	return dev
}

func TestMountParsesGeometry(t *testing.T) {
	dev := buildImage([]byte("hello"))
	fs, err := Mount(dev)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if fs.v.rootDirCluster != 2 {
		t.Fatalf("rootDirCluster = %d, want 2", fs.v.rootDirCluster)
	}
	if fs.v.dataStartSector != 3 {
		t.Fatalf("dataStartSector = %d, want 3", fs.v.dataStartSector)
	}
}

func TestMountRejectsMissingSignature(t *testing.T) {
	dev := buildImage([]byte("hello"))
	dev.sectors[0][510] = 0
	if _, err := Mount(dev); err == nil {
		t.Fatal("expected bad-signature error")
	}
}

func TestOpenFileAndReadWholeContent(t *testing.T) {
	want := []byte("hello")
	dev := buildImage(want)
	fs, err := Mount(dev)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	f, err := fs.OpenFile("/shell")
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	buf := make([]byte, 64)
	n, err := f.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(buf[:n], want) {
		t.Fatalf("Read = %q, want %q", buf[:n], want)
	}
	if !f.IsEnd() {
		t.Fatal("expected IsEnd after reading the whole file")
	}
}

func TestOpenFileIsCaseInsensitive(t *testing.T) {
	dev := buildImage([]byte("x"))
	fs, _ := Mount(dev)
	if _, err := fs.OpenFile("/ShElL"); err != nil {
		t.Fatalf("OpenFile case-insensitive lookup: %v", err)
	}
}

func TestOpenFileNotFound(t *testing.T) {
	dev := buildImage([]byte("x"))
	fs, _ := Mount(dev)
	if _, err := fs.OpenFile("/nope"); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestOpenFileRejectsRelativePath(t *testing.T) {
	dev := buildImage([]byte("x"))
	fs, _ := Mount(dev)
	if _, err := fs.OpenFile("shell"); err == nil {
		t.Fatal("expected error for non-absolute path")
	}
}

func TestReadPartialThenEnd(t *testing.T) {
	dev := buildImage([]byte("hello"))
	fs, _ := Mount(dev)
	f, _ := fs.OpenFile("/shell")

	buf := make([]byte, 2)
	n, _ := f.Read(buf)
	if n != 2 || string(buf) != "he" {
		t.Fatalf("first Read = %q, n=%d", buf, n)
	}
	if f.IsEnd() {
		t.Fatal("should not be at end after partial read")
	}
	rest := make([]byte, 10)
	n, _ = f.Read(rest)
	if string(rest[:n]) != "llo" {
		t.Fatalf("second Read = %q", rest[:n])
	}
	if !f.IsEnd() {
		t.Fatal("expected end of file")
	}
}
