package tarxx

import (
	"io"

	"github.com/thilo-schmitt/tarxx/hostfs"
	"github.com/thilo-schmitt/tarxx/internal/tarblock"
	"github.com/thilo-schmitt/tarxx/internal/tarheader"
)

// writeHeaderBlock writes block through the literal-block path when
// compression is enabled, so its length within the LZ4 frame is
// content-independent, and returns the sink offset its raw bytes begin
// at. That offset is valid input to patchHeaderBlock regardless of
// whether compression is enabled, since both paths route the header's
// 512 raw bytes through the same sink.Sink.
func (w *Writer) writeHeaderBlock(block tarblock.Block) (int64, error) {
	if w.lz4w != nil {
		offset, err := w.lz4w.WriteLiteralBlock(block[:])
		if err != nil {
			return 0, newError(Io, "writeHeaderBlock", err)
		}
		return offset, nil
	}

	offset := w.out.Tell()
	if _, err := w.out.Write(block[:]); err != nil {
		return 0, newError(Io, "writeHeaderBlock", err)
	}
	return offset, nil
}

// patchHeaderBlock overwrites the 512 bytes at offset (previously
// returned by writeHeaderBlock) with block's new content. It fails
// with Unsupported if the sink cannot backpatch (Callback mode).
func (w *Writer) patchHeaderBlock(offset int64, block tarblock.Block) error {
	if err := w.out.PatchAt(offset, block[:]); err != nil {
		return newError(Unsupported, "patchHeaderBlock", err)
	}
	return nil
}

// dataChunkSize is the buffer size used to read regular-file content,
// sized to the configured LZ4 block size so a compressed entry's
// blocks align with the read granularity.
func (w *Writer) dataChunkSize() int {
	if w.settings.cfg.LZ4BlockBytes > 0 {
		return w.settings.cfg.LZ4BlockBytes
	}
	return tarblock.Size
}

// dataWriter adapts writeDataBytes to io.Writer for io.CopyBuffer.
type dataWriter struct{ w *Writer }

func (d dataWriter) Write(p []byte) (int, error) {
	if err := d.w.writeDataBytes(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// writeContent copies exactly size bytes of r into the archive,
// zero-padding the final partial 512-byte block. If r yields fewer
// than size bytes (the source shrank since it was stat'd), the
// shortfall is padded with zeroes so the header's declared size still
// matches the bytes written.
func (w *Writer) writeContent(r io.Reader, size int64) error {
	buf := make([]byte, w.dataChunkSize())
	n, err := io.CopyBuffer(dataWriter{w}, io.LimitReader(r, size), buf)
	if err != nil {
		return newError(Io, "writeContent", err)
	}
	if n < size {
		if err := w.writeZeroes(size - n); err != nil {
			return err
		}
	}
	return w.padToBlock(size)
}

// writeZeroes writes n zero bytes through the data path, in chunks
// bounded by dataChunkSize.
func (w *Writer) writeZeroes(n int64) error {
	chunk := make([]byte, w.dataChunkSize())
	for n > 0 {
		c := int64(len(chunk))
		if c > n {
			c = n
		}
		if err := w.writeDataBytes(chunk[:c]); err != nil {
			return err
		}
		n -= c
	}
	return nil
}

// padToBlock writes enough zero bytes to bring size up to the next
// 512-byte boundary.
func (w *Writer) padToBlock(size int64) error {
	pad := (tarblock.Size - size%tarblock.Size) % tarblock.Size
	if pad == 0 {
		return nil
	}
	var zero [tarblock.Size]byte
	return w.writeDataBytes(zero[:pad])
}

// writeDataBytes writes p as archive content: through the LZ4 writer's
// compressed-block path in chunks no larger than its configured block
// size when compression is enabled, or through writeUncompressedBlocks
// otherwise.
func (w *Writer) writeDataBytes(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if w.lz4w == nil {
		return w.writeUncompressedBlocks(p)
	}

	blockSize := w.lz4w.BlockSize()
	for len(p) > 0 {
		n := len(p)
		if n > blockSize {
			n = blockSize
		}
		if err := w.lz4w.WriteBlock(p[:n]); err != nil {
			return newError(Codec, "writeDataBytes", err)
		}
		p = p[n:]
	}
	return nil
}

// writeUncompressedBlocks buffers p across calls and flushes it to the
// output sink in exactly 512-byte pieces, so a callback-mode sink's
// callback always observes one invocation per tar block with the full
// block's worth of bytes, never a short or oversized write. Callers
// keep every entry's total content plus padding a multiple of 512, so
// w.pending is always empty again once an entry's write sequence ends.
func (w *Writer) writeUncompressedBlocks(p []byte) error {
	if w.pendingLen > 0 {
		n := copy(w.pending[w.pendingLen:], p)
		w.pendingLen += n
		p = p[n:]
		if w.pendingLen < tarblock.Size {
			return nil
		}
		if _, err := w.out.Write(w.pending[:]); err != nil {
			return newError(Io, "writeDataBytes", err)
		}
		w.pendingLen = 0
	}

	for len(p) >= tarblock.Size {
		if _, err := w.out.Write(p[:tarblock.Size]); err != nil {
			return newError(Io, "writeDataBytes", err)
		}
		p = p[tarblock.Size:]
	}

	if len(p) > 0 {
		w.pendingLen = copy(w.pending[:], p)
	}
	return nil
}

// hostKindToTarKind maps a filesystem entry's observed kind to the tar
// entry kind it is encoded as. Sockets and other kinds the filesystem
// layer cannot classify have no tar representation.
func hostKindToTarKind(kind hostfs.Kind) (tarheader.Kind, bool) {
	switch kind {
	case hostfs.Regular:
		return tarheader.Regular, true
	case hostfs.Directory:
		return tarheader.Directory, true
	case hostfs.Symlink:
		return tarheader.Symlink, true
	case hostfs.CharDevice:
		return tarheader.CharDevice, true
	case hostfs.BlockDevice:
		return tarheader.BlockDevice, true
	case hostfs.Fifo:
		return tarheader.Fifo, true
	default:
		return 0, false
	}
}
