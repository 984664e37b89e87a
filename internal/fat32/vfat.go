package fat32

import "errors"

// vfat is the mounted-volume state vfat.rs's VFat<HANDLE> keeps: enough
// geometry to turn a cluster id into a sector range and to walk the FAT
// cluster chain.
type vfat struct {
	dev               BlockDevice
	bytesPerSector    uint32
	sectorsPerCluster uint32
	fatStartSector    uint64
	dataStartSector   uint64
	rootDirCluster    uint32
}

var errNoFat32 = errors.New("fat32: mount found no usable FAT32 geometry")

// mountVFat reads the MBR and BPB and computes the fixed geometry used
// by every subsequent read, mirroring VFat::from.
func mountVFat(dev BlockDevice) (*vfat, error) {
	entries, err := readMBR(dev)
	if err != nil {
		return nil, err
	}
	partStart, err := firstFat32Partition(entries)
	if err != nil {
		return nil, err
	}
	bpb, err := readBPB(dev, partStart)
	if err != nil {
		return nil, err
	}
	if bpb.bytesPerSector == 0 || bpb.sectorsPerCluster == 0 || bpb.numFATs == 0 {
		return nil, errNoFat32
	}
	fatStart := partStart + uint64(bpb.reservedSectors)
	dataStart := fatStart + uint64(bpb.numFATs)*uint64(bpb.sectorsPerFAT32)
	return &vfat{
		dev:               dev,
		bytesPerSector:    uint32(bpb.bytesPerSector),
		sectorsPerCluster: uint32(bpb.sectorsPerCluster),
		fatStartSector:    fatStart,
		dataStartSector:   dataStart,
		rootDirCluster:    bpb.rootDirCluster,
	}, nil
}

func (v *vfat) bytesPerCluster() uint32 {
	return v.bytesPerSector * v.sectorsPerCluster
}

// clusterToSector maps a cluster id to its first data sector, mirroring
// VFat::cluster_to_sector (cluster ids are 2-based: 0 and 1 are
// reserved).
func (v *vfat) clusterToSector(cluster uint32) uint64 {
	return v.dataStartSector + uint64(v.sectorsPerCluster)*uint64(cluster-2)
}

type fatStatus int

const (
	statusData fatStatus = iota
	statusEOC
	statusBad
	statusFree
)

// fatEntry reads the 4-byte FAT32 table entry for cluster and
// classifies it, mirroring FatEntry::status's match on the masked
// 28-bit value.
func (v *vfat) fatEntry(cluster uint32) (fatStatus, uint32, error) {
	entriesPerSector := v.bytesPerSector / 4
	sector := v.fatStartSector + uint64(cluster)/uint64(entriesPerSector)
	index := cluster % entriesPerSector

	buf := make([]byte, v.bytesPerSector)
	if err := v.dev.ReadSector(sector, buf); err != nil {
		return statusBad, 0, err
	}
	raw := le32(buf[index*4:]) & 0x0FFFFFFF
	switch {
	case raw == 0:
		return statusFree, 0, nil
	case raw == 0x0FFFFFF7:
		return statusBad, 0, nil
	case raw >= 0x0FFFFFF8:
		return statusEOC, 0, nil
	default:
		return statusData, raw, nil
	}
}

// clusterByOffset walks the chain from start until the cluster holding
// byte offset off, mirroring VFat::cluster_by_offset.
func (v *vfat) clusterByOffset(start uint32, off uint32) (uint32, bool, error) {
	cluster := start
	steps := off / v.bytesPerCluster()
	for i := uint32(0); i < steps; i++ {
		status, next, err := v.fatEntry(cluster)
		if err != nil {
			return 0, false, err
		}
		switch status {
		case statusData:
			cluster = next
		case statusEOC:
			return 0, false, nil
		default:
			return 0, false, errors.New("fat32: corrupt cluster chain")
		}
	}
	return cluster, true, nil
}

// readCluster reads into buf starting at byte offset off within the
// chain beginning at start, following the FAT chain across cluster
// boundaries until buf is full or the chain ends. Mirrors
// VFat::read_cluster.
func (v *vfat) readCluster(start uint32, off uint32, buf []byte) (int, error) {
	cluster, ok, err := v.clusterByOffset(start, off)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	clusterOff := off % v.bytesPerCluster()
	clusterStartSector := v.clusterToSector(cluster)
	sector := clusterStartSector + uint64(clusterOff)/uint64(v.bytesPerSector)
	sectorOff := clusterOff % v.bytesPerSector

	n := 0
	sbuf := make([]byte, v.bytesPerSector)
	for n < len(buf) {
		if sector >= clusterStartSector+uint64(v.sectorsPerCluster) {
			status, next, ferr := v.fatEntry(cluster)
			if ferr != nil {
				return n, ferr
			}
			if status != statusData {
				// EOC, bad, or free: the chain ends here, short read.
				return n, nil
			}
			cluster = next
			clusterStartSector = v.clusterToSector(cluster)
			sector = clusterStartSector
		}
		if err := v.dev.ReadSector(sector, sbuf); err != nil {
			return n, err
		}
		avail := int(v.bytesPerSector) - int(sectorOff)
		copyLen := len(buf) - n
		if copyLen > avail {
			copyLen = avail
		}
		copy(buf[n:n+copyLen], sbuf[sectorOff:sectorOff+uint32(copyLen)])
		n += copyLen
		sectorOff = 0
		sector++
	}
	return n, nil
}
