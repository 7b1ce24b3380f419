// Package walk provides the pre-order filesystem traversal
// AddFromPathRecursive is built on: parents are visited before their
// children, symlinked directories are reported as symlinks rather
// than followed, and every entry kind the host filesystem can report
// (regular, directory, symlink, device, fifo, socket) reaches the
// visit callback.
package walk

import (
	"os"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
)

// VisitFunc is called once per entry, including the root itself. mode
// carries only the type bits (os.ModeDir, os.ModeSymlink, ...), not
// the permission bits.
type VisitFunc func(path string, mode os.FileMode) error

// Walk traverses root depth-first, parent before children. When
// unsorted is false, siblings are visited in lexical order, so two
// walks of an unchanged tree produce archives with identical entry
// order. Walk does not follow symlinks, including symlinks to
// directories: they are reported to visit and not descended into.
//
// Any error returned by visit, or encountered reading a directory,
// aborts the walk. It is wrapped with context via
// github.com/pkg/errors before being returned, but errors.As still
// reaches the original cause through the wrapper's Unwrap, so a caller
// can classify the failure (a vanished path partway through a walk is
// not the same failure as a permission error).
func Walk(root string, unsorted bool, visit VisitFunc) error {
	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(name string, info *godirwalk.Dirent) error {
			return visit(name, info.ModeType())
		},
		ErrorCallback: func(pathname string, err error) godirwalk.ErrorAction {
			return godirwalk.Halt
		},
		Unsorted:            unsorted,
		AllowNonDirectory:   true,
		FollowSymbolicLinks: false,
	})
	if err != nil {
		return errors.Wrap(err, "walk")
	}
	return nil
}
