// Package tarxx writes UNIX v7 and POSIX ustar tar archives, optionally
// wrapped in an LZ4 frame, to either a seekable file or an unseekable
// block callback.
package tarxx

import (
	"path/filepath"

	"github.com/thilo-schmitt/tarxx/hostfs"
	"github.com/thilo-schmitt/tarxx/internal/lz4frame"
	"github.com/thilo-schmitt/tarxx/internal/sink"
	"github.com/thilo-schmitt/tarxx/internal/tarblock"
)

// State is where a Writer sits in its entry-admission lifecycle.
type State int

const (
	// Open accepts any admission method.
	Open State = iota
	// Streaming accepts only StreamData and StreamComplete.
	Streaming
	// Closed accepts nothing; Close is idempotent in this state.
	Closed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Streaming:
		return "streaming"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Writer is one archive in progress. A Writer is not safe for
// concurrent use; all admission calls on a single instance must be
// serialized by the caller.
type Writer struct {
	settings *settings
	out      sink.Sink
	lz4w     *lz4frame.Writer
	state    State

	// outputPath, when non-empty, is the resolved path of the archive's
	// own destination file, so AddFromPath can reject archiving the
	// archive into itself.
	outputPath string

	// names records the archive names already written as regular
	// files, so a second regular-file admission under the same name
	// fails rather than silently duplicating an entry.
	names map[string]bool

	// inodes maps a host inode identity to the archive name under
	// which it was first stored, so a later path sharing that inode is
	// demoted to a hard link instead of being stored twice.
	inodes map[hostfs.InodeKey]string

	// pending buffers uncompressed content bytes between writeDataBytes
	// calls so every write that reaches out is exactly one 512-byte tar
	// block, regardless of the arbitrary chunk sizes content is read in.
	// Unused when compression is enabled, since the LZ4 block stream
	// has its own, different segmentation.
	pending    [tarblock.Size]byte
	pendingLen int

	stream *streamState
}

// NewFileWriter creates (or truncates) path and returns a Writer that
// writes the archive there. The Writer owns the resulting file handle.
func NewFileWriter(path string, opts ...Option) (*Writer, error) {
	s := newSettings()
	for _, opt := range opts {
		opt.applyOption(s)
	}

	out, err := sink.CreateFileSink(path, s.cfg.SinkBufferBytes)
	if err != nil {
		return nil, newError(Io, "NewFileWriter", err)
	}

	w, werr := newWriter(s, out)
	if werr != nil {
		return nil, werr
	}
	if abs, aerr := filepath.Abs(path); aerr == nil {
		w.outputPath = abs
	}
	return w, nil
}

// NewCallbackWriter returns a Writer that hands each emitted 512-byte
// block to emit synchronously, for unseekable destinations (a socket,
// stdout). When compression is enabled, emit instead receives the LZ4
// frame's bytes in the pieces the frame encoder writes them (frame
// header, block size prefixes, block payloads, end mark), which are
// not 512 bytes long. Streaming admission is unavailable in this mode
// because StreamComplete requires backpatching an earlier header.
func NewCallbackWriter(emit func([]byte) error, opts ...Option) (*Writer, error) {
	s := newSettings()
	for _, opt := range opts {
		opt.applyOption(s)
	}
	return newWriter(s, sink.NewCallbackSink(emit))
}

func newWriter(s *settings, out sink.Sink) (*Writer, error) {
	w := &Writer{
		settings: s,
		out:      out,
		state:    Open,
		names:    make(map[string]bool),
		inodes:   make(map[hostfs.InodeKey]string),
	}

	if s.compressed {
		w.lz4w = lz4frame.NewWriter(out, s.cfg.LZ4BlockBytes)
		if err := w.lz4w.WriteFrameHeader(); err != nil {
			return nil, newError(Io, "NewWriter", err)
		}
	}

	s.logger.Debug("opened archive writer", "format", int(s.format), "compressed", s.compressed)
	return w, nil
}

// State reports the writer's current position in its lifecycle.
func (w *Writer) State() State { return w.state }

// Close finalizes the archive: two trailing zero blocks, the LZ4 end
// mark if compression is enabled, then flush and close of the output
// sink. Finalization happens unconditionally, even if a stream begun
// with StreamBegin was never completed with StreamComplete: the
// streamed content is padded to a block boundary and the stream's
// placeholder header is left as written, matching the
// original library's destructor/close behavior of writing the trailer
// regardless of an in-progress stream. Calling Close on an
// already-closed Writer is a no-op.
func (w *Writer) Close() error {
	if w.state == Closed {
		return nil
	}
	if w.state == Streaming {
		if err := w.padToBlock(w.stream.written); err != nil {
			return err
		}
		w.stream = nil
	}

	var zero tarblock.Block
	if err := w.writeDataBytes(zero[:]); err != nil {
		return err
	}
	if err := w.writeDataBytes(zero[:]); err != nil {
		return err
	}

	if w.lz4w != nil {
		if err := w.lz4w.End(); err != nil {
			return newError(Io, "Close", err)
		}
	}
	if err := w.out.Close(); err != nil {
		return newError(Io, "Close", err)
	}

	w.state = Closed
	w.settings.logger.Debug("closed archive writer")
	return nil
}

// MustClose calls Close and discards any error, for callers that want
// the swallow-errors-on-destruction behavior of the original library's
// C++ destructor at a defer site. Prefer Close when the caller can
// act on a finalization failure.
func (w *Writer) MustClose() {
	_ = w.Close()
}
