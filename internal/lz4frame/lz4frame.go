// Package lz4frame hand-assembles an LZ4 frame: magic number, frame
// descriptor, a sequence of block-size-prefixed blocks, and an end
// mark. It exists because the archive writer needs one property the
// high-level lz4.Writer does not expose: a way to force a specific
// block to be stored literally (uncompressed) so its length in the
// frame is fixed regardless of its content, letting a header block be
// rewritten in place later by the output sink's PatchAt.
//
// The frame uses block-independent, no-block-checksum, no-content-
// checksum settings throughout — the same LZ4F_preferences_t the
// library this package's design is ported from configures.
package lz4frame

import (
	"encoding/binary"

	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"

	"github.com/thilo-schmitt/tarxx/internal/sink"
)

const (
	magicNumber = 0x184D2204

	// flgVersion01 | flgBlockIndependence.
	flagByte = 0x60
	// blockMax256KB in bits 6-5-4.
	blockDescriptorByte = 0x50

	// literalFlag marks a block size as stored rather than compressed,
	// per the LZ4 frame format's high bit convention.
	literalFlag = uint32(1) << 31
)

// Writer emits one LZ4 frame into a sink.Sink, one block at a time.
type Writer struct {
	out        sink.Sink
	blockSize  int
	compressor lz4.Compressor
	compressed []byte
}

// NewWriter returns a Writer that emits blocks no larger than
// blockSize bytes of uncompressed content each.
func NewWriter(out sink.Sink, blockSize int) *Writer {
	return &Writer{
		out:        out,
		blockSize:  blockSize,
		compressed: make([]byte, lz4.CompressBlockBound(blockSize)),
	}
}

// BlockSize returns the writer's configured maximum block content
// size.
func (w *Writer) BlockSize() int { return w.blockSize }

// WriteFrameHeader writes the magic number and frame descriptor. It
// must be called exactly once, before any block.
func (w *Writer) WriteFrameHeader() error {
	var buf [7]byte
	binary.LittleEndian.PutUint32(buf[0:4], magicNumber)
	buf[4] = flagByte
	buf[5] = blockDescriptorByte
	buf[6] = byte(xxh32(buf[4:6], 0) >> 8)
	if _, err := w.out.Write(buf[:]); err != nil {
		return errors.Wrap(err, "lz4frame: write frame header")
	}
	return nil
}

// WriteLiteralBlock stores p as an uncompressed block and returns the
// sink offset at which its raw bytes begin, so a caller can later
// overwrite them in place via sink.Sink.PatchAt without changing the
// frame's byte layout. Used for archive header blocks, whose final
// content (size, checksum) is sometimes only known after the entry's
// data has been streamed.
func (w *Writer) WriteLiteralBlock(p []byte) (offset int64, err error) {
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], literalFlag|uint32(len(p)))
	if _, err := w.out.Write(size[:]); err != nil {
		return 0, errors.Wrap(err, "lz4frame: write literal block size")
	}
	offset = w.out.Tell()
	if _, err := w.out.Write(p); err != nil {
		return 0, errors.Wrap(err, "lz4frame: write literal block")
	}
	return offset, nil
}

// WriteBlock compresses p and writes it as a data block, falling back
// to a literal block if compression does not shrink it (the standard
// LZ4 frame encoder behavior for incompressible input). len(p) must
// not exceed BlockSize().
func (w *Writer) WriteBlock(p []byte) error {
	if len(p) > w.blockSize {
		return errors.Errorf("lz4frame: block of %d bytes exceeds configured block size %d", len(p), w.blockSize)
	}
	if len(p) == 0 {
		return nil
	}

	n, err := w.compressor.CompressBlock(p, w.compressed)
	if err != nil {
		return errors.Wrap(err, "lz4frame: compress block")
	}
	if n <= 0 || n >= len(p) {
		_, err := w.WriteLiteralBlock(p)
		return err
	}

	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(n))
	if _, err := w.out.Write(size[:]); err != nil {
		return errors.Wrap(err, "lz4frame: write block size")
	}
	if _, err := w.out.Write(w.compressed[:n]); err != nil {
		return errors.Wrap(err, "lz4frame: write compressed block")
	}
	return nil
}

// End writes the frame's end mark. No content checksum follows, since
// the frame descriptor disables it.
func (w *Writer) End() error {
	var end [4]byte
	if _, err := w.out.Write(end[:]); err != nil {
		return errors.Wrap(err, "lz4frame: write end mark")
	}
	return nil
}
