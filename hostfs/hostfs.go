// Package hostfs abstracts the host operating system facilities the
// archive writer needs: reading file metadata and content, resolving
// symlinks, and mapping numeric uid/gid to names. Callers that need to
// archive something other than the real local filesystem (a virtual
// tree, a chrooted view, a test fixture) can supply their own
// Filesystem and Identity implementations instead of OS.
package hostfs

import (
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Kind is the on-disk type of a filesystem entry, as reported by Lstat.
// It does not distinguish a hard link from the first copy of a file;
// that determination is made by the archive writer from Identity's
// inode identity, not by the filesystem layer.
type Kind int

const (
	Unsupported Kind = iota
	Regular
	Directory
	Symlink
	CharDevice
	BlockDevice
	Fifo
	Socket
)

// Info describes one filesystem entry, without following symlinks.
type Info struct {
	Name    string
	Size    int64
	Mode    uint32
	ModTime time.Time
	Kind    Kind

	// sys is the platform-specific stat result, consumed only by the
	// Identity implementation that produced this Info.
	sys interface{}
}

// Filesystem reads file metadata and content from a host. All paths
// are host-native (native separators, absolute or relative to the
// process's working directory); hostfs performs no path translation.
type Filesystem interface {
	// Lstat describes path without following a trailing symlink.
	Lstat(path string) (Info, error)
	// ReadSymlink returns the raw link target of a symlink entry.
	ReadSymlink(path string) (string, error)
	// Open opens a regular file for reading its content.
	Open(path string) (io.ReadCloser, error)
	// Realpath resolves path to its canonical, symlink-free form. Used
	// by AddFromPath to resolve a symlink when following symlinks.
	Realpath(path string) (string, error)
}

// Identity resolves the host-specific ownership and device fields a
// tar header carries. Implementations that cannot answer (e.g. a
// Windows host has no notion of a device major/minor) return zero
// values rather than an error.
type Identity interface {
	// Owner returns the numeric uid/gid recorded for info.
	Owner(info Info) (uid, gid int)
	// UserName resolves uid to a user name, falling back to the
	// decimal string representation of uid when no name can be
	// resolved. Never fails due to a missing passwd entry.
	UserName(uid int) string
	// GroupName resolves gid to a group name, falling back to the
	// decimal string representation of gid when no name can be
	// resolved. Never fails due to a missing group entry.
	GroupName(gid int) string
	// DeviceNumbers returns the major/minor pair for a character or
	// block device entry.
	DeviceNumbers(info Info) (major, minor int64)
	// InodeIdentity returns a key that uniquely identifies the inode
	// backing info across paths, and its hard link count. Any two
	// entries with equal keys are the same file for the purposes of
	// hard-link coalescing, including the degenerate case of the same
	// path admitted twice with nlink == 1. nlink is reported for
	// callers that want it but is not itself a coalescing precondition.
	// A zero InodeKey means the implementation cannot identify inodes;
	// entries with a zero key are never coalesced.
	InodeIdentity(info Info) (key InodeKey, nlink uint64)
}

// InodeKey identifies an inode on a single host: the device it lives
// on, plus the inode number within that device.
type InodeKey struct {
	Device uint64
	Inode  uint64
}

// CleanArchiveName applies the writer's relative-path admission policy
// to a caller-supplied archive name: leading '/' and leading '..'
// path segments are stripped recursively, a bare "/" is rejected
// outright, a name that is exactly ".." after stripping is mapped
// to ".", and a name that still contains a ".." segment after
// stripping is rejected. The result never escapes the archive root and
// never begins with a separator.
func CleanArchiveName(name string) (string, error) {
	if name == "" {
		return "", errors.New("hostfs: archive name is empty")
	}
	if name == "/" {
		return "", errors.New("hostfs: archive name is the bare root")
	}
	if name == "../" {
		return "./", nil
	}

	trimmed := name
	for {
		switch {
		case strings.HasPrefix(trimmed, "/"):
			trimmed = trimmed[1:]
		case trimmed == "..":
			trimmed = "."
		case strings.HasPrefix(trimmed, "../"):
			trimmed = trimmed[3:]
		default:
			if trimmed == "" {
				return "", errors.New("hostfs: archive name reduces to empty after stripping traversal")
			}
			for _, seg := range strings.Split(trimmed, "/") {
				if seg == ".." {
					return "", errors.Errorf("hostfs: archive name %q contains a '..' segment", name)
				}
			}
			return trimmed, nil
		}
	}
}
