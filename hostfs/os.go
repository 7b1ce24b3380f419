package hostfs

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// OS is the reference Filesystem and Identity implementation, backed
// by the local operating system. The zero value is ready to use.
type OS struct {
	names nameCache
}

// NewOS returns an OS-backed host, ready to use.
func NewOS() *OS {
	return &OS{}
}

func kindFromMode(mode os.FileMode) Kind {
	switch {
	case mode&os.ModeSymlink != 0:
		return Symlink
	case mode.IsDir():
		return Directory
	case mode&os.ModeCharDevice != 0:
		return CharDevice
	case mode&os.ModeDevice != 0:
		return BlockDevice
	case mode&os.ModeNamedPipe != 0:
		return Fifo
	case mode&os.ModeSocket != 0:
		return Socket
	case mode.IsRegular():
		return Regular
	default:
		return Unsupported
	}
}

// Lstat implements Filesystem.
func (o *OS) Lstat(path string) (Info, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return Info{}, errors.Wrap(err, "hostfs: lstat")
	}
	return Info{
		Name:    fi.Name(),
		Size:    fi.Size(),
		Mode:    uint32(fi.Mode().Perm()),
		ModTime: fi.ModTime(),
		Kind:    kindFromMode(fi.Mode()),
		sys:     fi.Sys(),
	}, nil
}

// ReadSymlink implements Filesystem.
func (o *OS) ReadSymlink(path string) (string, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return "", errors.Wrap(err, "hostfs: readlink")
	}
	return target, nil
}

// Open implements Filesystem.
func (o *OS) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "hostfs: open")
	}
	return f, nil
}

// Realpath implements Filesystem.
func (o *OS) Realpath(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", errors.Wrap(err, "hostfs: realpath")
	}
	return resolved, nil
}

// nameCache memoizes uid/gid -> name lookups, since os/user hits the
// system's NSS configuration on every call.
type nameCache struct {
	mu    sync.Mutex
	users  map[int]string
	groups map[int]string
}
