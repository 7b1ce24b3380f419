// Package sink is the archive writer's low-level byte destination: a
// seekable file that supports backpatching an earlier header once its
// final size is known, or an unseekable callback that cannot.
package sink

import (
	"bufio"
	"os"

	"github.com/pkg/errors"
)

// ErrUnsupported is returned by PatchAt on a sink that cannot rewrite
// bytes it has already emitted.
var ErrUnsupported = errors.New("sink: backpatch is not supported by this sink")

// Sink is the destination an archive writer streams tar blocks into.
type Sink interface {
	// Write appends p at the current position and advances Tell by
	// len(p).
	Write(p []byte) (int, error)
	// Tell returns the number of bytes written so far.
	Tell() int64
	// Flush pushes any buffered bytes to the underlying destination.
	Flush() error
	// Seekable reports whether PatchAt can succeed. A caller that
	// needs to know before it has written anything (for example, to
	// reject streaming mode up front) should check this instead of
	// waiting for a PatchAt failure.
	Seekable() bool
	// PatchAt overwrites len(p) bytes at offset, which must already
	// have been written. It does not affect Tell. Returns
	// ErrUnsupported if the sink cannot rewrite past bytes.
	PatchAt(offset int64, p []byte) error
	// Close flushes and releases any resources the sink owns.
	Close() error
}

// FileSink is a Sink backed by a seekable *os.File, buffered the way
// cacheitem buffers its tar writer's underlying file handle.
type FileSink struct {
	file *os.File
	buf  *bufio.Writer
	tell int64
	own  bool
}

// NewFileSink wraps file in a buffered, backpatchable sink. bufSize is
// the bufio.Writer buffer size.
func NewFileSink(file *os.File, bufSize int) *FileSink {
	return &FileSink{file: file, buf: bufio.NewWriterSize(file, bufSize)}
}

// CreateFileSink creates (or truncates) path and wraps it in a
// FileSink that owns the resulting handle, closing it on Close.
func CreateFileSink(path string, bufSize int) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "sink: create")
	}
	s := NewFileSink(f, bufSize)
	s.own = true
	return s, nil
}

// Write implements Sink.
func (s *FileSink) Write(p []byte) (int, error) {
	n, err := s.buf.Write(p)
	s.tell += int64(n)
	if err != nil {
		return n, errors.Wrap(err, "sink: write")
	}
	return n, nil
}

// Tell implements Sink.
func (s *FileSink) Tell() int64 { return s.tell }

// Flush implements Sink.
func (s *FileSink) Flush() error {
	if err := s.buf.Flush(); err != nil {
		return errors.Wrap(err, "sink: flush")
	}
	return nil
}

// Seekable implements Sink.
func (s *FileSink) Seekable() bool { return true }

// PatchAt implements Sink. It flushes first so the buffered writer's
// notion of the file's tail is not stale, then writes directly to the
// file descriptor at offset without disturbing the current append
// position.
func (s *FileSink) PatchAt(offset int64, p []byte) error {
	if err := s.Flush(); err != nil {
		return err
	}
	if _, err := s.file.WriteAt(p, offset); err != nil {
		return errors.Wrap(err, "sink: patch")
	}
	return nil
}

// Close implements Sink.
func (s *FileSink) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	if s.own {
		if err := s.file.Close(); err != nil {
			return errors.Wrap(err, "sink: close")
		}
	}
	return nil
}

// CallbackSink is a Sink that hands each write off to a caller
// callback instead of a seekable file. It never supports PatchAt,
// matching spec's unseekable output mode.
type CallbackSink struct {
	emit func([]byte) error
	tell int64
}

// NewCallbackSink wraps emit, called once per Write with exactly the
// bytes passed to Write (no internal buffering, since the caller owns
// the buffering strategy for its transport).
func NewCallbackSink(emit func([]byte) error) *CallbackSink {
	return &CallbackSink{emit: emit}
}

// Write implements Sink.
func (s *CallbackSink) Write(p []byte) (int, error) {
	if err := s.emit(p); err != nil {
		return 0, errors.Wrap(err, "sink: callback")
	}
	s.tell += int64(len(p))
	return len(p), nil
}

// Tell implements Sink.
func (s *CallbackSink) Tell() int64 { return s.tell }

// Flush implements Sink. CallbackSink has no internal buffer, so this
// is a no-op.
func (s *CallbackSink) Flush() error { return nil }

// Seekable implements Sink.
func (s *CallbackSink) Seekable() bool { return false }

// PatchAt implements Sink. Always fails: a callback sink has already
// handed prior bytes to the caller and cannot take them back.
func (s *CallbackSink) PatchAt(offset int64, p []byte) error { return ErrUnsupported }

// Close implements Sink. CallbackSink owns no resources.
func (s *CallbackSink) Close() error { return nil }
