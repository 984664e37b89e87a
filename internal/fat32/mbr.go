package fat32

import "errors"

// partitionEntry is the 16-byte on-disk partition table entry, laid
// out the way mbr.rs's PartitionEntry is (minus the CHS fields, which
// nothing here reads).
type partitionEntry struct {
	bootIndicator byte
	partitionType byte
	relativeLBA   uint32
	totalSectors  uint32
}

var (
	errBadSignature         = errors.New("fat32: bad MBR signature")
	errNoFat32Partition     = errors.New("fat32: no FAT32 partition in MBR")
	errUnknownBootIndicator = errors.New("fat32: invalid boot indicator")
)

// fat32PartitionTypes covers both the CHS (0x0B) and LBA (0x0C) FAT32
// type bytes, matching FAT32_PARTITION_TYPE in vfat.rs.
var fat32PartitionTypes = [2]byte{0x0B, 0x0C}

// readMBR reads sector 0 and extracts its four partition table
// entries, validating the 0x55AA signature and each entry's boot
// indicator the way MasterBootRecord::from does.
func readMBR(dev BlockDevice) ([4]partitionEntry, error) {
	var buf [sectorSize]byte
	var entries [4]partitionEntry
	if err := dev.ReadSector(0, buf[:]); err != nil {
		return entries, err
	}
	if buf[510] != 0x55 || buf[511] != 0xAA {
		return entries, errBadSignature
	}
	for i := 0; i < 4; i++ {
		off := 446 + i*16
		entries[i] = partitionEntry{
			bootIndicator: buf[off],
			partitionType: buf[off+4],
			relativeLBA:   le32(buf[off+8:]),
			totalSectors:  le32(buf[off+12:]),
		}
		if entries[i].bootIndicator != 0x00 && entries[i].bootIndicator != 0x80 {
			return entries, errUnknownBootIndicator
		}
	}
	return entries, nil
}

// firstFat32Partition returns the relative LBA of the first FAT32-typed
// partition table entry.
func firstFat32Partition(entries [4]partitionEntry) (uint64, error) {
	for _, e := range entries {
		if e.partitionType == fat32PartitionTypes[0] || e.partitionType == fat32PartitionTypes[1] {
			return uint64(e.relativeLBA), nil
		}
	}
	return 0, errNoFat32Partition
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
