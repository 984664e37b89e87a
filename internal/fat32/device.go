// Package fat32 is a minimal, read-only FAT32 volume reader: just
// enough of original_source/lib/fat32/src/{mbr.rs,vfat/vfat.rs,
// vfat/dir.rs,vfat/file.rs} to back the loader's open_file/read
// interface (spec.md places the FAT32 filesystem itself out of core
// scope, but the core still needs a real collaborator behind those two
// calls). No write path, no long-filename entries, and no LRU block
// cache — §9's "cyclic or aliased ownership" note is what the mailbox
// package's scoped Buffer answers, and a cache layer on top of a
// read-only boot-time loader path is the kind of scope the
// distillation meant to drop.
package fat32

const sectorSize = 512

// BlockDevice reads fixed-size 512-byte sectors by logical block
// address. Satisfied by the SD-card driver at boot; fat32 itself knows
// nothing about SDHCI/eMMC, mirroring the original's generic
// `BlockDevice` trait bound.
type BlockDevice interface {
	ReadSector(lba uint64, buf []byte) error
}
