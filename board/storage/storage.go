// Package storage holds the filesystem contract the board consumes and the
// helpers built on it (io/fs adaptor, BMP image reader).
//
// File's method set is a subset of tinygo.org/x/tinyfs.File, but littlefs
// directories only list in one call (Readdir(0)); wrap them with Paged.
package storage

import (
	"io"
	"io/fs"

	"epdboard/types"
)

// Filesystem is a mountable flash filesystem.
type Filesystem interface {
	Mount(cfg types.MountConfig) error
	Open(path string) (File, error)
}

// File is an open file or directory.
type File interface {
	io.Reader
	io.Closer
	IsDir() bool
	// Readdir returns up to n entries (all when n <= 0). At the end of the
	// directory it returns no entries and either io.EOF or nil.
	Readdir(n int) ([]fs.FileInfo, error)
}
