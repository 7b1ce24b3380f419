package tarxx

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/thilo-schmitt/tarxx/hostfs"
	"github.com/thilo-schmitt/tarxx/internal/tarheader"
	"github.com/thilo-schmitt/tarxx/internal/walk"
)

// AddFromPath reads src from the host filesystem and admits it under
// archive name dst. If followSymlinks is true and src is itself a
// symlink, the link is resolved and the target's kind and metadata are
// archived under dst instead of a SYMLINK entry. A regular file whose
// inode was already admitted under a different name is stored as a
// hard link to that name instead of being read again.
func (w *Writer) AddFromPath(src, dst string, followSymlinks bool) error {
	const op = "AddFromPath"
	if err := w.checkOpen(op); err != nil {
		return err
	}

	if w.samePathAsOutput(src) {
		return newError(Invalid, op, errors.Errorf("refusing to archive the archive's own output path %q", src))
	}

	name, err := hostfs.CleanArchiveName(dst)
	if err != nil {
		return newError(Invalid, op, err)
	}

	statPath := src
	info, err := w.settings.fs.Lstat(src)
	if err != nil {
		return newError(NotFound, op, err)
	}
	if followSymlinks && info.Kind == hostfs.Symlink {
		real, rerr := w.settings.fs.Realpath(src)
		if rerr != nil {
			return newError(Io, op, rerr)
		}
		statPath = real
		info, err = w.settings.fs.Lstat(real)
		if err != nil {
			return newError(NotFound, op, err)
		}
	}

	return w.admitHostEntry(op, name, statPath, info)
}

// AddFromPathRecursive behaves like AddFromPath if src is not a
// directory. Otherwise it walks src in pre-order (siblings in lexical
// order unless unsorted walking was enabled with WithUnsortedWalk or
// WithConfig) and admits every descendant, rewriting each visited
// path's src prefix to dst. A descendant whose kind the writer's format
// cannot represent (a device or FIFO under V7) is skipped and logged
// at debug level instead of failing the walk.
func (w *Writer) AddFromPathRecursive(src, dst string, followSymlinks bool) error {
	const op = "AddFromPathRecursive"
	if err := w.checkOpen(op); err != nil {
		return err
	}

	info, err := w.settings.fs.Lstat(src)
	if err != nil {
		return newError(NotFound, op, err)
	}
	if info.Kind != hostfs.Directory {
		return w.AddFromPath(src, dst, followSymlinks)
	}

	err = walk.Walk(src, w.settings.unsortedWalk, func(path string, mode os.FileMode) error {
		kind := tarheader.Regular
		switch {
		case mode&os.ModeCharDevice != 0:
			kind = tarheader.CharDevice
		case mode&os.ModeDevice != 0:
			kind = tarheader.BlockDevice
		case mode&os.ModeNamedPipe != 0:
			kind = tarheader.Fifo
		}
		if !tarheader.Supports(w.settings.format, kind) {
			w.settings.logger.Debug("skipping entry the archive format cannot represent", "path", path)
			return nil
		}
		rel, rerr := filepath.Rel(src, path)
		if rerr != nil {
			return rerr
		}
		target := dst
		if rel != "." {
			target = filepath.ToSlash(filepath.Join(dst, rel))
		}
		return w.AddFromPath(path, target, followSymlinks)
	})
	if err != nil {
		var tarErr *Error
		if errors.As(err, &tarErr) {
			// NotFound is reserved for the initial src argument; a path
			// that vanished mid-walk (a race with concurrent deletion)
			// is an I/O failure, not a bad caller argument.
			if tarErr.Kind == NotFound {
				return newError(Io, op, tarErr)
			}
			return tarErr
		}
		return newError(Io, op, err)
	}
	return nil
}

// AddSymlink admits a SYMLINK entry pointing at target, without
// reading anything from the host filesystem.
func (w *Writer) AddSymlink(dst, target string, mode os.FileMode, modTime time.Time) error {
	const op = "AddSymlink"
	return w.admitSyntheticEntry(op, tarheader.Entry{
		Kind:     tarheader.Symlink,
		Linkname: target,
	}, dst, mode, modTime)
}

// AddHardlink admits a HARDLINK entry pointing at the archive name
// target, without reading anything from the host filesystem.
func (w *Writer) AddHardlink(dst, target string, mode os.FileMode, modTime time.Time) error {
	const op = "AddHardlink"
	return w.admitSyntheticEntry(op, tarheader.Entry{
		Kind:     tarheader.Hardlink,
		Linkname: target,
	}, dst, mode, modTime)
}

// AddDirectory admits a DIRECTORY entry.
func (w *Writer) AddDirectory(dst string, mode os.FileMode, modTime time.Time) error {
	const op = "AddDirectory"
	return w.admitSyntheticEntry(op, tarheader.Entry{Kind: tarheader.Directory}, dst, mode, modTime)
}

// AddCharacterDevice admits a CHAR_DEV entry with the given device
// major/minor numbers. Rejected with Unsupported when the writer's
// format is V7, which cannot represent device entries.
func (w *Writer) AddCharacterDevice(dst string, major, minor int64, mode os.FileMode, modTime time.Time) error {
	const op = "AddCharacterDevice"
	return w.admitSyntheticEntry(op, tarheader.Entry{
		Kind:     tarheader.CharDevice,
		Devmajor: major,
		Devminor: minor,
	}, dst, mode, modTime)
}

// AddBlockDevice admits a BLOCK_DEV entry with the given device
// major/minor numbers. Rejected with Unsupported when the writer's
// format is V7, which cannot represent device entries.
func (w *Writer) AddBlockDevice(dst string, major, minor int64, mode os.FileMode, modTime time.Time) error {
	const op = "AddBlockDevice"
	return w.admitSyntheticEntry(op, tarheader.Entry{
		Kind:     tarheader.BlockDevice,
		Devmajor: major,
		Devminor: minor,
	}, dst, mode, modTime)
}

// AddFifo admits a FIFO entry. Rejected with Unsupported when the
// writer's format is V7, which cannot represent FIFO entries.
func (w *Writer) AddFifo(dst string, mode os.FileMode, modTime time.Time) error {
	const op = "AddFifo"
	return w.admitSyntheticEntry(op, tarheader.Entry{Kind: tarheader.Fifo}, dst, mode, modTime)
}

// admitSyntheticEntry fills in the name/mode/mtime common to every
// caller-constructed (non-filesystem-backed) entry kind and writes its
// header. None of these kinds carry file content.
func (w *Writer) admitSyntheticEntry(op string, entry tarheader.Entry, dst string, mode os.FileMode, modTime time.Time) error {
	if err := w.checkOpen(op); err != nil {
		return err
	}

	name, err := hostfs.CleanArchiveName(dst)
	if err != nil {
		return newError(Invalid, op, err)
	}
	if entry.Kind != tarheader.Directory && strings.HasSuffix(name, "/") {
		return newError(Invalid, op, errors.Errorf("archive name %q has a trailing slash but is not a directory", name))
	}

	entry.Name = name
	entry.Mode = uint32(mode.Perm())
	entry.ModTime = modTime

	_, err = w.writeEntryHeader(op, entry)
	return err
}

// admitHostEntry builds and writes the header (and, for a regular
// file, the content) for one filesystem-sourced entry already resolved
// to statPath/info.
func (w *Writer) admitHostEntry(op, name, statPath string, info hostfs.Info) error {
	kind, ok := hostKindToTarKind(info.Kind)
	if !ok {
		return newError(Unsupported, op, errors.Errorf("%q has an unsupported filesystem entry kind", statPath))
	}

	entry := tarheader.Entry{
		Name:    name,
		Kind:    kind,
		Mode:    info.Mode,
		ModTime: info.ModTime,
	}
	uid, gid := w.settings.id.Owner(info)
	entry.UID, entry.GID = uid, gid
	entry.Uname = w.settings.id.UserName(uid)
	entry.Gname = w.settings.id.GroupName(gid)

	switch info.Kind {
	case hostfs.Symlink:
		target, err := w.settings.fs.ReadSymlink(statPath)
		if err != nil {
			return newError(Io, op, err)
		}
		entry.Linkname = target
		_, err = w.writeEntryHeader(op, entry)
		return err

	case hostfs.CharDevice, hostfs.BlockDevice:
		entry.Devmajor, entry.Devminor = w.settings.id.DeviceNumbers(info)
		_, err := w.writeEntryHeader(op, entry)
		return err

	case hostfs.Directory, hostfs.Fifo:
		_, err := w.writeEntryHeader(op, entry)
		return err

	case hostfs.Regular:
		key, _ := w.settings.id.InodeIdentity(info)
		known := key != (hostfs.InodeKey{})
		if first, seen := w.inodes[key]; known && seen {
			entry.Kind = tarheader.Hardlink
			entry.Linkname = first
			w.settings.logger.Debug("coalescing hard link", "name", name, "target", first)
			_, err := w.writeEntryHeader(op, entry)
			return err
		}
		if known {
			w.inodes[key] = name
		}

		entry.Size = info.Size
		if err := w.reserveRegularName(op, name); err != nil {
			return err
		}
		if _, err := w.writeEntryHeader(op, entry); err != nil {
			return err
		}

		f, err := w.settings.fs.Open(statPath)
		if err != nil {
			return newError(Io, op, err)
		}
		defer f.Close()
		return w.writeContent(f, info.Size)

	default:
		return newError(Unsupported, op, errors.Errorf("%q has an unsupported filesystem entry kind", statPath))
	}
}

// writeEntryHeader builds entry for the writer's configured format and
// writes it. The returned offset is only meaningful for a regular file
// entry's header, which nothing currently needs to backpatch; it is
// returned for symmetry with the streaming path's use of the same
// underlying write.
func (w *Writer) writeEntryHeader(op string, entry tarheader.Entry) (int64, error) {
	if !tarheader.Supports(w.settings.format, entry.Kind) {
		return 0, newError(Unsupported, op, errors.Errorf("format cannot represent entry kind for %q", entry.Name))
	}
	block, err := tarheader.Build(entry, w.settings.format)
	if err != nil {
		return 0, newError(Invalid, op, err)
	}
	offset, err := w.writeHeaderBlock(block)
	if err != nil {
		return 0, err
	}
	return offset, nil
}

// reserveRegularName fails if name was already written as a regular
// file, and records it otherwise.
func (w *Writer) reserveRegularName(op, name string) error {
	if w.names[name] {
		return newError(IllegalState, op, errors.Errorf("archive name %q was already written as a regular file", name))
	}
	w.names[name] = true
	return nil
}

// checkOpen fails with IllegalState unless the writer is in Open
// state.
func (w *Writer) checkOpen(op string) error {
	if w.state != Open {
		return newError(IllegalState, op, errors.Errorf("writer is %s, not open", w.state))
	}
	return nil
}

// samePathAsOutput reports whether src resolves to the writer's own
// output file, best-effort: a resolution failure is not itself an
// error here, since AddFromPath will surface it via Lstat.
func (w *Writer) samePathAsOutput(src string) bool {
	if w.outputPath == "" {
		return false
	}
	abs, err := filepath.Abs(src)
	if err != nil {
		return false
	}
	return abs == w.outputPath
}
