package walk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkVisitsParentBeforeChildren(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b", "file.txt"), []byte("x"), 0644))

	var order []string
	seen := map[string]bool{}
	err := Walk(root, false, func(path string, mode os.FileMode) error {
		order = append(order, path)
		seen[path] = true
		return nil
	})
	require.NoError(t, err)

	dir := filepath.Join(root, "a")
	subdir := filepath.Join(root, "a", "b")
	file := filepath.Join(root, "a", "b", "file.txt")
	assert.True(t, seen[dir])
	assert.True(t, seen[subdir])
	assert.True(t, seen[file])

	dirIdx, subdirIdx, fileIdx := indexOf(order, dir), indexOf(order, subdir), indexOf(order, file)
	assert.Less(t, dirIdx, subdirIdx)
	assert.Less(t, subdirIdx, fileIdx)
}

func TestWalkDoesNotFollowSymlinkedDirectory(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "target")
	require.NoError(t, os.MkdirAll(target, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "inside.txt"), []byte("x"), 0644))
	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(target, link))

	var sawInsideViaLink bool
	err := Walk(root, false, func(path string, mode os.FileMode) error {
		if path == filepath.Join(link, "inside.txt") {
			sawInsideViaLink = true
		}
		return nil
	})
	require.NoError(t, err)
	assert.False(t, sawInsideViaLink)
}

func TestWalkPropagatesVisitError(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "file.txt"), []byte("x"), 0644))

	boom := os.ErrInvalid
	err := Walk(root, false, func(path string, mode os.FileMode) error {
		return boom
	})
	assert.Error(t, err)
}

func indexOf(ss []string, target string) int {
	for i, s := range ss {
		if s == target {
			return i
		}
	}
	return -1
}
