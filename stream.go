package tarxx

import (
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/thilo-schmitt/tarxx/hostfs"
	"github.com/thilo-schmitt/tarxx/internal/tarblock"
	"github.com/thilo-schmitt/tarxx/internal/tarheader"
)

// streamState tracks the in-progress streaming regular-file entry
// between StreamBegin and StreamComplete.
type streamState struct {
	name      string
	headerOff int64
	written   int64
}

// StreamEntry carries the metadata StreamComplete needs to build the
// final header, once the entry's size is known from what StreamData
// wrote. The archive name was already fixed by StreamBegin.
type StreamEntry struct {
	Mode    os.FileMode
	UID     int
	GID     int
	Uname   string
	Gname   string
	ModTime time.Time
}

// StreamBegin opens a streaming regular-file entry under archive name
// dst: it reserves the current sink position and writes a zero
// placeholder header there, to be overwritten by StreamComplete once
// the entry's size is known. Only available when the output sink is
// seekable (File mode); Callback mode has no way to backpatch the
// placeholder and fails with Unsupported.
func (w *Writer) StreamBegin(dst string) error {
	const op = "StreamBegin"
	if err := w.checkOpen(op); err != nil {
		return err
	}
	if !w.out.Seekable() {
		return newError(Unsupported, op, errors.New("streaming requires a seekable output sink"))
	}

	name, err := hostfs.CleanArchiveName(dst)
	if err != nil {
		return newError(Invalid, op, err)
	}

	var placeholder tarblock.Block
	offset, err := w.writeHeaderBlock(placeholder)
	if err != nil {
		return err
	}

	w.stream = &streamState{name: name, headerOff: offset}
	w.state = Streaming
	return nil
}

// StreamData appends p to the entry opened by StreamBegin. It may be
// called any number of times; StreamComplete pads the accumulated
// content to the next 512-byte boundary.
func (w *Writer) StreamData(p []byte) (int, error) {
	const op = "StreamData"
	if w.state != Streaming {
		return 0, newError(IllegalState, op, errors.New("no stream is in progress"))
	}
	if err := w.writeDataBytes(p); err != nil {
		return 0, err
	}
	w.stream.written += int64(len(p))
	return len(p), nil
}

// StreamComplete pads the streamed content to a 512-byte boundary,
// builds the entry's real header now that its size is known, and
// backpatches it over the placeholder StreamBegin wrote. It returns
// the writer to the Open state.
func (w *Writer) StreamComplete(entry StreamEntry) error {
	const op = "StreamComplete"
	if w.state != Streaming {
		return newError(IllegalState, op, errors.New("no stream is in progress"))
	}
	st := w.stream

	if err := w.padToBlock(st.written); err != nil {
		return err
	}

	if err := w.reserveRegularName(op, st.name); err != nil {
		return err
	}

	block, err := tarheader.Build(tarheader.Entry{
		Name:    st.name,
		Kind:    tarheader.Regular,
		Size:    st.written,
		Mode:    uint32(entry.Mode.Perm()),
		UID:     entry.UID,
		GID:     entry.GID,
		Uname:   entry.Uname,
		Gname:   entry.Gname,
		ModTime: entry.ModTime,
	}, w.settings.format)
	if err != nil {
		return newError(Invalid, op, err)
	}

	if err := w.patchHeaderBlock(st.headerOff, block); err != nil {
		return err
	}

	w.stream = nil
	w.state = Open
	return nil
}
