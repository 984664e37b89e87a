package fat32

// File is an open regular-file handle: a starting cluster, a size, and
// a read cursor, mirroring file.rs's File<HANDLE>. Structurally
// satisfies eos/internal/process's File interface (Read, IsEnd)
// without this package importing process.
type File struct {
	vfat         *vfat
	startCluster uint32
	size         uint32
	pos          uint32
	err          error // set by FS.OpenFile on a failed resolve
}

// Read copies up to len(p) bytes starting at the current cursor,
// advancing it, mirroring io::Read for File — clamped to size-pos the
// way the Rust impl clamps max_read_size.
func (f *File) Read(p []byte) (int, error) {
	if f.size == 0 || f.pos >= f.size {
		return 0, nil
	}
	remaining := f.size - f.pos
	if uint32(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := f.vfat.readCluster(f.startCluster, f.pos, p)
	f.pos += uint32(n)
	return n, err
}

// IsEnd reports whether the cursor has reached the file's recorded
// size, mirroring File::is_end.
func (f *File) IsEnd() bool {
	return f.pos >= f.size
}
