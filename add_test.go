package tarxx

import (
	"archive/tar"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/thilo-schmitt/tarxx/internal/tarheader"
)

func readArchive(t *testing.T, path string) []*tar.Header {
	t.Helper()
	f, err := os.Open(path)
	assert.NilError(t, err)
	defer f.Close()

	var headers []*tar.Header
	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err != nil {
			break
		}
		headers = append(headers, hdr)
	}
	return headers
}

func TestAddFromPathCoalescesHardlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("hard links exercised on POSIX filesystems only")
	}

	dir := t.TempDir()
	original := writeSourceFile(t, dir, "original.txt", "shared content")
	linked := filepath.Join(dir, "linked.txt")
	assert.NilError(t, os.Link(original, linked))

	archivePath := filepath.Join(dir, "out.tar")
	w, err := NewFileWriter(archivePath)
	assert.NilError(t, err)
	assert.NilError(t, w.AddFromPath(original, "original.txt", false))
	assert.NilError(t, w.AddFromPath(linked, "linked.txt", false))
	assert.NilError(t, w.Close())

	headers := readArchive(t, archivePath)
	assert.Equal(t, len(headers), 2)
	assert.Equal(t, headers[0].Typeflag, uint8(tar.TypeReg))
	assert.Equal(t, headers[1].Typeflag, uint8(tar.TypeLink))
	assert.Equal(t, headers[1].Linkname, "original.txt")
}

func TestAddFromPathSamePathTwiceCoalescesToHardlink(t *testing.T) {
	dir := t.TempDir()
	src := writeSourceFile(t, dir, "a.txt", "content")

	archivePath := filepath.Join(dir, "out.tar")
	w, err := NewFileWriter(archivePath)
	assert.NilError(t, err)
	assert.NilError(t, w.AddFromPath(src, "a", false))
	assert.NilError(t, w.AddFromPath(src, "a", false))
	assert.NilError(t, w.Close())

	headers := readArchive(t, archivePath)
	assert.Equal(t, len(headers), 2)
	assert.Equal(t, headers[0].Typeflag, uint8(tar.TypeReg))
	assert.Equal(t, headers[1].Typeflag, uint8(tar.TypeLink))
	assert.Equal(t, headers[1].Linkname, "a")
}

func TestAddFromPathRejectsMissingSource(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWriter(filepath.Join(dir, "out.tar"))
	assert.NilError(t, err)
	defer w.MustClose()

	err = w.AddFromPath(filepath.Join(dir, "missing"), "missing", false)
	var tarErr *Error
	assert.Assert(t, errors.As(err, &tarErr))
	assert.Equal(t, tarErr.Kind, NotFound)
}

func TestAddFromPathRejectsItsOwnOutputPath(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "out.tar")
	w, err := NewFileWriter(archivePath)
	assert.NilError(t, err)
	defer w.MustClose()

	err = w.AddFromPath(archivePath, "out.tar", false)
	var tarErr *Error
	assert.Assert(t, errors.As(err, &tarErr))
	assert.Equal(t, tarErr.Kind, Invalid)
}

func TestAddDirectoryAppendsTrailingSlash(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "out.tar")
	w, err := NewFileWriter(archivePath)
	assert.NilError(t, err)
	assert.NilError(t, w.AddDirectory("sub", 0o755, fixedModTime))
	assert.NilError(t, w.Close())

	headers := readArchive(t, archivePath)
	assert.Equal(t, len(headers), 1)
	assert.Assert(t, strings.HasSuffix(headers[0].Name, "/"))
}

func TestAddSymlinkAndHardlinkSynthetic(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "out.tar")
	w, err := NewFileWriter(archivePath)
	assert.NilError(t, err)
	assert.NilError(t, w.AddSymlink("link", "target.txt", 0o777, fixedModTime))
	assert.NilError(t, w.AddHardlink("alias.txt", "target.txt", 0o644, fixedModTime))
	assert.NilError(t, w.Close())

	headers := readArchive(t, archivePath)
	assert.Equal(t, len(headers), 2)
	assert.Equal(t, headers[0].Typeflag, uint8(tar.TypeSymlink))
	assert.Equal(t, headers[0].Linkname, "target.txt")
	assert.Equal(t, headers[1].Typeflag, uint8(tar.TypeLink))
}

func TestAddCharacterDeviceRejectedUnderV7(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWriter(filepath.Join(dir, "out.tar"), WithFormat(tarheader.V7))
	assert.NilError(t, err)
	defer w.MustClose()

	err = w.AddCharacterDevice("dev", 1, 2, 0o644, fixedModTime)
	var tarErr *Error
	assert.Assert(t, errors.As(err, &tarErr))
	assert.Equal(t, tarErr.Kind, Unsupported)
}

func TestAddFromPathRecursiveVisitsParentBeforeChildren(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "tree")
	assert.NilError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	writeSourceFile(t, filepath.Join(root, "sub"), "leaf.txt", "leaf")

	archivePath := filepath.Join(dir, "out.tar")
	w, err := NewFileWriter(archivePath)
	assert.NilError(t, err)
	assert.NilError(t, w.AddFromPathRecursive(root, "tree", false))
	assert.NilError(t, w.Close())

	headers := readArchive(t, archivePath)
	var names []string
	for _, h := range headers {
		names = append(names, strings.TrimSuffix(h.Name, "/"))
	}
	assert.Equal(t, names[0], "tree")
	assert.Assert(t, indexOfName(names, "tree/sub") < indexOfName(names, "tree/sub/leaf.txt"))
}

func TestAddFromPathRejectsDuplicateRegularName(t *testing.T) {
	dir := t.TempDir()
	src := writeSourceFile(t, dir, "one.txt", "a")
	other := writeSourceFile(t, dir, "two.txt", "b")

	w, err := NewFileWriter(filepath.Join(dir, "out.tar"))
	assert.NilError(t, err)
	defer w.MustClose()

	assert.NilError(t, w.AddFromPath(src, "same.txt", false))
	err = w.AddFromPath(other, "same.txt", false)
	var tarErr *Error
	assert.Assert(t, errors.As(err, &tarErr))
	assert.Equal(t, tarErr.Kind, IllegalState)
}

func indexOfName(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
