package storage

import (
	"io"
	"io/fs"

	"epdboard/types"
)

// Paged adapts a directory whose Readdir only accepts n <= 0 (tinyfs
// littlefs) to the incremental Readdir contract. The first Readdir loads the
// whole listing; later calls hand out n entries at a time and io.EOF at the
// end. Non-directories are returned unchanged.
func Paged(f File) File {
	if f == nil || !f.IsDir() {
		return f
	}
	return &pagedDir{File: f}
}

type pagedDir struct {
	File
	loaded bool
	ents   []fs.FileInfo
}

func (d *pagedDir) Readdir(n int) ([]fs.FileInfo, error) {
	if !d.loaded {
		ents, err := d.File.Readdir(0)
		if err != nil {
			return nil, err
		}
		d.ents, d.loaded = ents, true
	}
	if n <= 0 {
		out := d.ents
		d.ents = nil
		return out, nil
	}
	if len(d.ents) == 0 {
		return nil, io.EOF
	}
	k := min(n, len(d.ents))
	out := d.ents[:k:k]
	d.ents = d.ents[k:]
	return out, nil
}

// PagedFS wraps every directory fsys opens with Paged.
func PagedFS(fsys Filesystem) Filesystem { return pagedFS{fsys} }

type pagedFS struct{ fsys Filesystem }

func (p pagedFS) Mount(cfg types.MountConfig) error { return p.fsys.Mount(cfg) }

func (p pagedFS) Open(path string) (File, error) {
	f, err := p.fsys.Open(path)
	if err != nil {
		return nil, err
	}
	return Paged(f), nil
}
