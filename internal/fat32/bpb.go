package fat32

import "errors"

// biosParameterBlock is the subset of the FAT32 extended BPB
// vfat.rs's VFat::from actually reads, laid out at the on-disk offsets
// ebpb.rs's BiosParameterBlock describes.
type biosParameterBlock struct {
	bytesPerSector    uint16
	sectorsPerCluster uint8
	reservedSectors   uint16
	numFATs           uint8
	sectorsPerFAT32   uint32
	rootDirCluster    uint32
}

var errBadBPBSignature = errors.New("fat32: bad BPB signature")

// readBPB reads the boot sector of the partition starting at sector
// and parses its BPB, validating the 0x55AA trailer.
func readBPB(dev BlockDevice, sector uint64) (biosParameterBlock, error) {
	var buf [sectorSize]byte
	var bpb biosParameterBlock
	if err := dev.ReadSector(sector, buf[:]); err != nil {
		return bpb, err
	}
	if buf[510] != 0x55 || buf[511] != 0xAA {
		return bpb, errBadBPBSignature
	}
	bpb.bytesPerSector = le16(buf[11:])
	bpb.sectorsPerCluster = buf[13]
	bpb.reservedSectors = le16(buf[14:])
	bpb.numFATs = buf[16]
	bpb.sectorsPerFAT32 = le32(buf[36:])
	bpb.rootDirCluster = le32(buf[44:])
	return bpb, nil
}
