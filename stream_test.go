package tarxx

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func TestStreamRoundTrip(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "out.tar")

	w, err := NewFileWriter(archivePath)
	assert.NilError(t, err)

	assert.NilError(t, w.StreamBegin("streamed.bin"))
	assert.Equal(t, w.State(), Streaming)

	first := bytes.Repeat([]byte("a"), 300)
	second := bytes.Repeat([]byte("b"), 800)
	n, err := w.StreamData(first)
	assert.NilError(t, err)
	assert.Equal(t, n, len(first))
	n, err = w.StreamData(second)
	assert.NilError(t, err)
	assert.Equal(t, n, len(second))

	assert.NilError(t, w.StreamComplete(StreamEntry{Mode: 0o640, ModTime: fixedModTime}))
	assert.Equal(t, w.State(), Open)
	assert.NilError(t, w.Close())

	f, err := os.Open(archivePath)
	assert.NilError(t, err)
	defer f.Close()

	tr := tar.NewReader(f)
	hdr, err := tr.Next()
	assert.NilError(t, err)
	assert.Equal(t, hdr.Name, "streamed.bin")
	assert.Equal(t, hdr.Size, int64(len(first)+len(second)))

	var buf bytes.Buffer
	_, err = io.Copy(&buf, tr)
	assert.NilError(t, err)
	assert.Equal(t, buf.Len(), len(first)+len(second))
	assert.Assert(t, bytes.Equal(buf.Bytes()[:len(first)], first))
	assert.Assert(t, bytes.Equal(buf.Bytes()[len(first):], second))
}

func TestStreamRejectedOnCallbackSink(t *testing.T) {
	w, err := NewCallbackWriter(func([]byte) error { return nil })
	assert.NilError(t, err)

	err = w.StreamBegin("anything")
	var tarErr *Error
	assert.Assert(t, errors.As(err, &tarErr))
	assert.Equal(t, tarErr.Kind, Unsupported)
	assert.Equal(t, w.State(), Open)
}

func TestStreamDataRejectedWithoutBegin(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWriter(filepath.Join(dir, "out.tar"))
	assert.NilError(t, err)
	defer w.MustClose()

	_, err = w.StreamData([]byte("x"))
	var tarErr *Error
	assert.Assert(t, errors.As(err, &tarErr))
	assert.Equal(t, tarErr.Kind, IllegalState)
}

func TestStreamCompleteRejectedWithoutBegin(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWriter(filepath.Join(dir, "out.tar"))
	assert.NilError(t, err)
	defer w.MustClose()

	err = w.StreamComplete(StreamEntry{})
	var tarErr *Error
	assert.Assert(t, errors.As(err, &tarErr))
	assert.Equal(t, tarErr.Kind, IllegalState)
}

func TestAdmissionRejectedWhileStreaming(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWriter(filepath.Join(dir, "out.tar"))
	assert.NilError(t, err)
	defer w.MustClose()

	assert.NilError(t, w.StreamBegin("busy.bin"))
	err = w.AddDirectory("dir", 0o755, fixedModTime)
	var tarErr *Error
	assert.Assert(t, errors.As(err, &tarErr))
	assert.Equal(t, tarErr.Kind, IllegalState)
}
