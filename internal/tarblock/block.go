// Package tarblock encodes and decodes the fixed 512-byte header block
// shared by the UNIX v7 and POSIX ustar tar formats.
//
// Field offsets follow the v7 layout for the first 156 bytes and the
// ustar layout (magic/version/uname/gname/devmajor/devminor/prefix) for
// the remainder; a v7-only header simply leaves the ustar region zeroed.
package tarblock

import (
	"strconv"

	"github.com/pkg/errors"
)

// Size is the fixed length of a tar block, and the padding unit for
// file data written into an archive.
const Size = 512

// Block is one 512-byte tar block: either a header or a chunk of file
// data padded with NUL bytes to the block boundary.
type Block [Size]byte

// Field offsets, shared by v7 and ustar.
const (
	offName     = 0
	offMode     = 100
	offUID      = 108
	offGID      = 116
	offSize     = 124
	offModTime  = 136
	offChksum   = 148
	offTypeflag = 156
	offLinkname = 157
	offMagic    = 257
	offVersion  = 263
	offUname    = 265
	offGname    = 297
	offDevmajor = 329
	offDevminor = 337
	offPrefix   = 345
)

const (
	// MagicUSTAR and VersionUSTAR are the ustar magic/version pair
	// written into the header's ustar region. A v7 header leaves this
	// region zeroed instead.
	MagicUSTAR   = "ustar\x00"
	VersionUSTAR = "00"
)

// Name returns the 100-byte name field.
func (b *Block) Name() []byte { return b[offName:][:100] }

// Mode returns the 8-byte mode field.
func (b *Block) Mode() []byte { return b[offMode:][:8] }

// UID returns the 8-byte owner uid field.
func (b *Block) UID() []byte { return b[offUID:][:8] }

// GID returns the 8-byte owner gid field.
func (b *Block) GID() []byte { return b[offGID:][:8] }

// FileSize returns the 12-byte file size field.
func (b *Block) FileSize() []byte { return b[offSize:][:12] }

// ModTime returns the 12-byte modification time field.
func (b *Block) ModTime() []byte { return b[offModTime:][:12] }

// Chksum returns the 8-byte checksum field.
func (b *Block) Chksum() []byte { return b[offChksum:][:8] }

// Typeflag returns the 1-byte type flag field.
func (b *Block) Typeflag() []byte { return b[offTypeflag:][:1] }

// Linkname returns the 100-byte link target field.
func (b *Block) Linkname() []byte { return b[offLinkname:][:100] }

// Magic returns the 6-byte ustar magic field.
func (b *Block) Magic() []byte { return b[offMagic:][:6] }

// Version returns the 2-byte ustar version field.
func (b *Block) Version() []byte { return b[offVersion:][:2] }

// Uname returns the 32-byte owner user name field.
func (b *Block) Uname() []byte { return b[offUname:][:32] }

// Gname returns the 32-byte owner group name field.
func (b *Block) Gname() []byte { return b[offGname:][:32] }

// Devmajor returns the 8-byte device major field.
func (b *Block) Devmajor() []byte { return b[offDevmajor:][:8] }

// Devminor returns the 8-byte device minor field.
func (b *Block) Devminor() []byte { return b[offDevminor:][:8] }

// Prefix returns the 155-byte ustar name prefix field.
func (b *Block) Prefix() []byte { return b[offPrefix:][:155] }

// Reset zeroes the block.
func (b *Block) Reset() { *b = Block{} }

// PutOctal writes value into field as a NUL-terminated, zero-padded
// octal number, right-justified in the field. A rendered value longer
// than len(field)-1 digits is truncated to its low-order digits rather
// than rejected, matching the format's own lossy-on-overflow numeric
// fields.
func PutOctal(field []byte, value int64) error {
	if value < 0 {
		return errors.Errorf("tarblock: negative value %d does not fit in octal field", value)
	}
	digits := len(field) - 1
	s := strconv.FormatInt(value, 8)
	if len(s) > digits {
		s = s[len(s)-digits:]
	}
	for i := range field {
		field[i] = '0'
	}
	copy(field[digits-len(s):digits], s)
	field[len(field)-1] = 0
	return nil
}

// PutString copies value into field, NUL-padding the remainder. Only
// min(len(field), len(value)) bytes of value are copied; a longer
// value is truncated rather than rejected.
func PutString(field []byte, value string) error {
	for i := range field {
		field[i] = 0
	}
	copy(field, value)
	return nil
}

// Checksum computes the block's checksum by summing every byte as an
// unsigned value, treating the checksum field itself as eight ASCII
// spaces, per the POSIX ustar and v7 tar formats.
func Checksum(b *Block) int64 {
	var sum int64
	for i, c := range b {
		if i >= offChksum && i < offChksum+8 {
			c = ' '
		}
		sum += int64(c)
	}
	return sum
}

// SetChecksum computes the block's checksum and writes it into the
// checksum field as six octal digits, a NUL, and a trailing space —
// the layout required for compatibility with both GNU and POSIX
// readers.
func SetChecksum(b *Block) {
	sum := Checksum(b)
	field := b.Chksum()
	// Six-digit octal fits any block sum (max sum is 255*512 = 130560,
	// which is 6 octal digits), followed by NUL and space.
	s := strconv.FormatInt(sum, 8)
	for i := 0; i < 6; i++ {
		field[i] = '0'
	}
	copy(field[6-len(s):6], s)
	field[6] = 0
	field[7] = ' '
}

// VerifyChecksum reports whether the block's stored checksum matches
// its computed checksum.
func VerifyChecksum(b *Block) bool {
	field := b.Chksum()
	stored, err := strconv.ParseInt(trimField(field), 8, 64)
	if err != nil {
		return false
	}
	return stored == Checksum(b)
}

func trimField(field []byte) string {
	end := len(field)
	for end > 0 && (field[end-1] == 0 || field[end-1] == ' ') {
		end--
	}
	start := 0
	for start < end && field[start] == ' ' {
		start++
	}
	return string(field[start:end])
}
