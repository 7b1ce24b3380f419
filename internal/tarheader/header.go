// Package tarheader builds the 512-byte header block for one archive
// entry, in either UNIX v7 or POSIX ustar layout.
//
// It performs no filesystem or host-identity lookups; callers assemble
// an Entry from whatever source they have (a real file, a streamed
// write, a synthetic directory) and Build encodes it.
package tarheader

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/thilo-schmitt/tarxx/internal/tarblock"
)

// Format selects which on-disk tar dialect Build produces.
type Format int

const (
	// V7 is the original Unix V7 tar layout: no ustar magic, no name
	// prefix, no device major/minor, no owner names.
	V7 Format = iota
	// USTAR is the POSIX ustar layout.
	USTAR
)

// Kind identifies what an Entry represents.
type Kind int

const (
	Regular Kind = iota
	Directory
	Symlink
	Hardlink
	CharDevice
	BlockDevice
	Fifo
)

// Entry is everything Build needs to encode one archive header. It
// carries no OS handles; hostfs is responsible for populating it from
// a real file or device.
type Entry struct {
	Name     string
	Kind     Kind
	Size     int64
	Mode     uint32
	UID      int
	GID      int
	Uname    string
	Gname    string
	ModTime  time.Time
	Linkname string
	Devmajor int64
	Devminor int64
}

const (
	nameSize   = 100
	prefixSize = 155
)

// Supports reports whether format can represent kind at all. v7 has no
// typeflags for character/block devices or FIFOs; those require ustar.
func Supports(format Format, kind Kind) bool {
	return supports(format, kind)
}

func supports(format Format, kind Kind) bool {
	switch kind {
	case Regular, Directory, Symlink, Hardlink:
		return true
	case CharDevice, BlockDevice, Fifo:
		return format == USTAR
	default:
		return false
	}
}

func typeflag(kind Kind) byte {
	switch kind {
	case Regular:
		return '0'
	case Hardlink:
		return '1'
	case Symlink:
		return '2'
	case CharDevice:
		return '3'
	case BlockDevice:
		return '4'
	case Directory:
		return '5'
	case Fifo:
		return '6'
	default:
		return '0'
	}
}

// Build encodes entry into a checksummed tar header block. It returns
// an error if format cannot represent entry.Kind, or if entry.Name is
// too long for USTAR's name/prefix split; the error carries no
// classification of its own. A V7 name over 100 bytes is silently
// truncated instead of rejected, a known lossy behavior of that format.
// Under V7 a directory is encoded with the regular-file typeflag, its
// trailing '/' marking it as a directory.
func Build(entry Entry, format Format) (tarblock.Block, error) {
	var block tarblock.Block

	if !supports(format, entry.Kind) {
		return block, errors.Errorf("tarheader: %s format cannot represent entry kind %d", formatName(format), entry.Kind)
	}

	name := entry.Name
	if entry.Kind == Directory && !strings.HasSuffix(name, "/") {
		name += "/"
	}

	if err := writeName(&block, name, format); err != nil {
		return tarblock.Block{}, err
	}

	if err := tarblock.PutOctal(block.Mode(), int64(entry.Mode&07777)); err != nil {
		return tarblock.Block{}, errors.Wrap(err, "tarheader: mode")
	}
	if err := tarblock.PutOctal(block.UID(), int64(entry.UID)); err != nil {
		return tarblock.Block{}, errors.Wrap(err, "tarheader: uid")
	}
	if err := tarblock.PutOctal(block.GID(), int64(entry.GID)); err != nil {
		return tarblock.Block{}, errors.Wrap(err, "tarheader: gid")
	}

	size := entry.Size
	if entry.Kind != Regular {
		size = 0
	}
	if err := tarblock.PutOctal(block.FileSize(), size); err != nil {
		return tarblock.Block{}, errors.Wrap(err, "tarheader: size")
	}

	if err := tarblock.PutOctal(block.ModTime(), entry.ModTime.Truncate(time.Second).Unix()); err != nil {
		return tarblock.Block{}, errors.Wrap(err, "tarheader: mtime")
	}

	kind := entry.Kind
	if format == V7 && kind == Directory {
		// V7 has no directory typeflag.
		kind = Regular
	}
	block.Typeflag()[0] = typeflag(kind)

	if entry.Kind == Symlink || entry.Kind == Hardlink {
		if err := tarblock.PutString(block.Linkname(), entry.Linkname); err != nil {
			return tarblock.Block{}, errors.Wrap(err, "tarheader: linkname")
		}
	}

	if format == USTAR {
		copy(block.Magic(), tarblock.MagicUSTAR)
		copy(block.Version(), tarblock.VersionUSTAR)
		if err := tarblock.PutString(block.Uname(), entry.Uname); err != nil {
			return tarblock.Block{}, errors.Wrap(err, "tarheader: uname")
		}
		if err := tarblock.PutString(block.Gname(), entry.Gname); err != nil {
			return tarblock.Block{}, errors.Wrap(err, "tarheader: gname")
		}
		if entry.Kind == CharDevice || entry.Kind == BlockDevice {
			if err := tarblock.PutOctal(block.Devmajor(), entry.Devmajor); err != nil {
				return tarblock.Block{}, errors.Wrap(err, "tarheader: devmajor")
			}
			if err := tarblock.PutOctal(block.Devminor(), entry.Devminor); err != nil {
				return tarblock.Block{}, errors.Wrap(err, "tarheader: devminor")
			}
		}
	}

	tarblock.SetChecksum(&block)
	return block, nil
}

func writeName(block *tarblock.Block, name string, format Format) error {
	if len(name) <= nameSize {
		return tarblock.PutString(block.Name(), name)
	}
	if format != USTAR {
		// v7 has no prefix field to split into; a name over 100 bytes is
		// silently truncated to the name field's width, a known lossy
		// behavior of the format.
		return tarblock.PutString(block.Name(), name[:nameSize])
	}
	prefix, suffix, ok := splitUSTARPath(name)
	if !ok {
		return errors.Errorf("tarheader: name %q cannot be split into a %d-byte prefix and %d-byte name", name, prefixSize, nameSize)
	}
	if err := tarblock.PutString(block.Name(), suffix); err != nil {
		return errors.Wrap(err, "tarheader: name")
	}
	if err := tarblock.PutString(block.Prefix(), prefix); err != nil {
		return errors.Wrap(err, "tarheader: prefix")
	}
	return nil
}

// splitUSTARPath splits name into a ustar prefix/suffix pair at the
// last '/' at or before the format's length limits, mirroring the
// algorithm used by the standard library's archive/tar writer.
func splitUSTARPath(name string) (prefix, suffix string, ok bool) {
	length := len(name)
	if length <= nameSize || !isASCII(name) {
		return "", "", false
	} else if length > prefixSize+1 {
		length = prefixSize + 1
	} else if name[length-1] == '/' {
		length--
	}

	i := strings.LastIndex(name[:length], "/")
	nlen := len(name) - i - 1
	plen := i
	if i <= 0 || nlen > nameSize || nlen == 0 || plen > prefixSize {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}

func isASCII(s string) bool {
	for _, c := range s {
		if c >= 0x80 {
			return false
		}
	}
	return true
}

func formatName(format Format) string {
	if format == USTAR {
		return "ustar"
	}
	return "v7"
}
