package storage

import (
	"errors"
	"io/fs"
	"path"
	"strings"

	"epdboard/errcode"
	"epdboard/types"
)

var (
	ErrTooManyOpen = errors.New("storage: too many open files")
	ErrNotDir      = errors.New("storage: not a directory")
	ErrPartialRead = errors.New("n > 0 is not supported yet")
)

// FS adapts an fs.FS (os.DirFS, fstest.MapFS, embed.FS) to Filesystem.
// It enforces the mount's MaxOpenFiles like the on-device VFS does.
type FS struct {
	fsys fs.FS

	// MountErr, when set, is returned by Mount to simulate a missing or
	// unformatted partition.
	MountErr error

	// WholeListing makes directories behave like tinyfs littlefs: Readdir
	// rejects n > 0 and a full read returns everything in one call.
	WholeListing bool

	mounted bool
	max     int
	open    int
}

func NewFS(fsys fs.FS) *FS { return &FS{fsys: fsys} }

func (f *FS) Mount(cfg types.MountConfig) error {
	if f.MountErr != nil {
		return f.MountErr
	}
	f.mounted = true
	f.max = cfg.MaxOpenFiles
	return nil
}

// OpenCount reports handles not yet closed.
func (f *FS) OpenCount() int { return f.open }

func (f *FS) Open(p string) (File, error) {
	if !f.mounted {
		return nil, errcode.NotMounted
	}
	if f.max > 0 && f.open >= f.max {
		return nil, ErrTooManyOpen
	}
	h, err := f.fsys.Open(toFSPath(p))
	if err != nil {
		return nil, err
	}
	st, err := h.Stat()
	if err != nil {
		_ = h.Close()
		return nil, err
	}
	f.open++
	return &file{h: h, info: st, owner: f, whole: f.WholeListing}, nil
}

// toFSPath maps an absolute device path ("/img/a.bmp") to fs.FS form.
func toFSPath(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "" {
		return "."
	}
	return p
}

type file struct {
	h      fs.File
	info   fs.FileInfo
	owner  *FS
	closed bool
	whole  bool
}

func (f *file) Read(b []byte) (int, error) { return f.h.Read(b) }
func (f *file) IsDir() bool                { return f.info.IsDir() }

func (f *file) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.owner.open--
	return f.h.Close()
}

func (f *file) Readdir(n int) ([]fs.FileInfo, error) {
	rd, ok := f.h.(fs.ReadDirFile)
	if f.whole && n > 0 {
		return nil, ErrPartialRead
	}
	if !ok || !f.info.IsDir() {
		return nil, ErrNotDir
	}
	ents, err := rd.ReadDir(n)
	infos := make([]fs.FileInfo, 0, len(ents))
	for _, e := range ents {
		fi, ierr := e.Info()
		if ierr != nil {
			return infos, ierr
		}
		infos = append(infos, fi)
	}
	return infos, err
}
