package fat32

import (
	"eos/internal/kmutex"
	"errors"
	"strings"
)

// FS is a mounted FAT32 volume. Every method serializes through a
// single mutex, the Go equivalent of VFatHandle::lock's "a generic
// trait that handles a critical section as a closure" — there is only
// ever one mounted volume and one caller (the process loader) touching
// it, so a coarse lock is all §5's single-CPU concurrency model needs.
type FS struct {
	mu kmutex.Mutex
	v  *vfat
}

// Mount reads the MBR and BPB from dev and returns a ready-to-use FS.
// Mirrors VFat::from.
func Mount(dev BlockDevice) (*FS, error) {
	v, err := mountVFat(dev)
	if err != nil {
		return nil, err
	}
	return &FS{v: v}, nil
}

var errNotAbsolute = errors.New("fat32: path must be absolute")

// OpenFile resolves an absolute path to a regular file, mirroring
// FileSystem::open's component walk minus directory-entry "." and ".."
// handling (this kernel's loader only ever opens one flat path,
// /shell, so a general path-resolution algorithm earns its keep only
// in the sense that it costs nothing extra to support subdirectories
// too). The returned File is fat32's own concrete type — callers that
// need it behind eos/internal/process's File interface (structurally
// satisfied, no import back into this package) convert it at the one
// boot-time call site that already imports both.
func (fs *FS) OpenFile(path string) (File, error) {
	if !strings.HasPrefix(path, "/") {
		return File{}, errNotAbsolute
	}
	var entry dirEntry
	var f File
	kmutex.WithLock(&fs.mu, func() struct{} {
		dirCluster := fs.v.rootDirCluster
		parts := splitPath(path)
		var err error
		for i, part := range parts {
			entry, err = fs.v.findInDir(dirCluster, part)
			if err != nil {
				f = File{err: err}
				return struct{}{}
			}
			last := i == len(parts)-1
			if !last {
				if !entry.directory {
					f = File{err: errors.New("fat32: component of file in path")}
					return struct{}{}
				}
				dirCluster = entry.cluster
				continue
			}
			if entry.directory {
				f = File{err: errors.New("fat32: path names a directory")}
				return struct{}{}
			}
		}
		f = File{vfat: fs.v, startCluster: entry.cluster, size: entry.size}
		return struct{}{}
	})
	if f.err != nil {
		return File{}, f.err
	}
	return f, nil
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
