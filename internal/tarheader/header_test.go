package tarheader

import (
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/thilo-schmitt/tarxx/internal/tarblock"
)

func TestBuildRegularV7(t *testing.T) {
	entry := Entry{
		Name:    "hello.txt",
		Kind:    Regular,
		Size:    5,
		Mode:    0644,
		ModTime: time.Unix(1000, 0),
	}
	block, err := Build(entry, V7)
	assert.NilError(t, err)
	assert.Assert(t, tarblock.VerifyChecksum(&block))
	assert.Equal(t, string(bytesUntilNUL(block.Name())), "hello.txt")
	assert.Equal(t, block.Typeflag()[0], byte('0'))
}

func TestBuildDirectoryAppendsSlash(t *testing.T) {
	entry := Entry{Name: "dir", Kind: Directory, ModTime: time.Unix(0, 0)}
	block, err := Build(entry, USTAR)
	assert.NilError(t, err)
	assert.Equal(t, string(bytesUntilNUL(block.Name())), "dir/")
	assert.Equal(t, block.Typeflag()[0], byte('5'))
}

func TestBuildV7RejectsDevice(t *testing.T) {
	entry := Entry{Name: "dev0", Kind: CharDevice, ModTime: time.Unix(0, 0)}
	_, err := Build(entry, V7)
	assert.Assert(t, err != nil)
}

func TestBuildUSTARDevice(t *testing.T) {
	entry := Entry{
		Name:     "dev0",
		Kind:     CharDevice,
		Devmajor: 1,
		Devminor: 3,
		ModTime:  time.Unix(0, 0),
	}
	block, err := Build(entry, USTAR)
	assert.NilError(t, err)
	assert.Equal(t, string(bytesUntilNUL(block.Magic())), "ustar")
}

func TestBuildUSTARLongNameSplitsIntoPrefix(t *testing.T) {
	name := strings.Repeat("a", 90) + "/" + strings.Repeat("b", 90)
	entry := Entry{Name: name, Kind: Regular, ModTime: time.Unix(0, 0)}
	block, err := Build(entry, USTAR)
	assert.NilError(t, err)
	assert.Equal(t, string(bytesUntilNUL(block.Name())), strings.Repeat("b", 90))
	assert.Equal(t, string(bytesUntilNUL(block.Prefix())), strings.Repeat("a", 90))
}

func TestBuildV7TruncatesLongName(t *testing.T) {
	name := strings.Repeat("a", 200)
	entry := Entry{Name: name, Kind: Regular, ModTime: time.Unix(0, 0)}
	block, err := Build(entry, V7)
	assert.NilError(t, err)
	assert.Equal(t, string(block.Name()), name[:100])
}

func TestBuildUSTARRejectsUnsplittableName(t *testing.T) {
	entry := Entry{Name: strings.Repeat("a", 200), Kind: Regular, ModTime: time.Unix(0, 0)}
	_, err := Build(entry, USTAR)
	assert.Assert(t, err != nil)
}

func bytesUntilNUL(field []byte) []byte {
	for i, c := range field {
		if c == 0 {
			return field[:i]
		}
	}
	return field
}
