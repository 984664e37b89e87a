package fat32

import (
	"bytes"
	"errors"
	"strings"
)

const (
	attrDirectory = 0x10
	attrLongName  = 0x0F

	idUnused = 0xE5
	idLast   = 0x00
)

// dirEntry is a parsed 32-byte short-name directory entry (dir.rs's
// VFatRegularDirEntry). Long-filename entries are skipped rather than
// joined — every path this kernel loads (/shell) fits an 8.3 short
// name, and original_source's LFN-joining DirIter is the part of "just
// enough of vfat.rs" this reader leaves out.
type dirEntry struct {
	name      string
	cluster   uint32
	size      uint32
	directory bool
}

var errNotFound = errors.New("fat32: not found")

// readDir reads the full cluster chain starting at dirCluster and
// parses it into short-name entries, mirroring Dir::entries +
// DirIter::next with LFN accumulation removed.
func (v *vfat) readDir(dirCluster uint32) ([]dirEntry, error) {
	raw, err := v.readChain(dirCluster)
	if err != nil {
		return nil, err
	}
	var entries []dirEntry
	for off := 0; off+32 <= len(raw); off += 32 {
		rec := raw[off : off+32]
		id := rec[0]
		if id == idLast {
			break
		}
		if id == idUnused {
			continue
		}
		attr := rec[11]
		if attr == attrLongName {
			continue
		}
		name := shortName(rec[0:8], rec[8:11])
		clusterHi := uint32(le16(rec[20:]))
		clusterLo := uint32(le16(rec[26:]))
		entries = append(entries, dirEntry{
			name:      name,
			cluster:   clusterHi<<16 | clusterLo,
			size:      le32(rec[28:]),
			directory: attr&attrDirectory != 0,
		})
	}
	return entries, nil
}

// findInDir performs a case-insensitive short-name lookup, mirroring
// Dir::find.
func (v *vfat) findInDir(dirCluster uint32, name string) (dirEntry, error) {
	entries, err := v.readDir(dirCluster)
	if err != nil {
		return dirEntry{}, err
	}
	for _, e := range entries {
		if strings.EqualFold(e.name, name) {
			return e, nil
		}
	}
	return dirEntry{}, errNotFound
}

// readChain reads every cluster in the chain starting at start into a
// single buffer, mirroring VFat::read_chain.
func (v *vfat) readChain(start uint32) ([]byte, error) {
	var out bytes.Buffer
	cluster := start
	sbuf := make([]byte, v.bytesPerSector)
	for {
		sector := v.clusterToSector(cluster)
		for i := uint32(0); i < v.sectorsPerCluster; i++ {
			if err := v.dev.ReadSector(sector+uint64(i), sbuf); err != nil {
				return nil, err
			}
			out.Write(sbuf)
		}
		status, next, err := v.fatEntry(cluster)
		if err != nil {
			return nil, err
		}
		switch status {
		case statusData:
			cluster = next
		case statusEOC:
			return out.Bytes(), nil
		default:
			return nil, errors.New("fat32: corrupt directory chain")
		}
	}
}

// shortName reassembles an 8.3 name from its space-padded base and
// extension fields, terminating early on a 0x00 or 0x20 byte as
// dir.rs's parse_str_from_byte does.
func shortName(base, ext []byte) string {
	b := trimPadded(base)
	e := trimPadded(ext)
	if e == "" {
		return b
	}
	return b + "." + e
}

func trimPadded(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0x00 && b[n] != 0x20 {
		n++
	}
	return string(b[:n])
}
