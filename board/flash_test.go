package board_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/bmp"

	"epdboard/board"
	"epdboard/board/storage"
	"epdboard/errcode"
	"epdboard/types"
)

func sampleTree() fstest.MapFS {
	return fstest.MapFS{
		"a.txt":            {Data: []byte("hello")},
		"sub/b.txt":        {Data: []byte("0123456789")},
		"sub/deeper/c.txt": {Data: []byte("c")},
	}
}

func TestMountFlashFailure(t *testing.T) {
	b, h := newBoard(t, sampleTree())
	h.FS.MountErr = errors.New("corrupt superblock")

	err := b.MountFlash()
	if errcode.Of(err) != errcode.MountFailed {
		t.Fatalf("want mount_failed, got %v", err)
	}
	if b.Mounted() {
		t.Fatal("board reports mounted after failure")
	}
	if !strings.Contains(h.Console.String(), "Failed to mount LittleFS partition!\n") {
		t.Fatalf("missing diagnostic: %q", h.Console.String())
	}

	if err := b.ListDir("/", 0); errcode.Of(err) != errcode.OpenFailed {
		t.Fatalf("list on unmounted fs: got %v", err)
	}
}

func TestMountFlashSuccess(t *testing.T) {
	b, _ := newBoard(t, sampleTree())
	if err := b.MountFlash(); err != nil {
		t.Fatalf("MountFlash: %v", err)
	}
	if !b.Mounted() {
		t.Fatal("not mounted")
	}
}

// mounted builds and mounts a board over tree. list runs ListDir and leaves
// only that call's trace in out.
func mounted(t *testing.T, tree fstest.MapFS, edit func(*types.BoardConfig)) (out *bytes.Buffer, list func(string, uint8) error, open func() int) {
	t.Helper()
	return mountedOn(t, tree, edit, false, false)
}

// mountedOn is mounted with directories that only list whole (as tinyfs
// littlefs does), optionally wrapped with storage.PagedFS like the device.
func mountedOn(t *testing.T, tree fstest.MapFS, edit func(*types.BoardConfig), whole, paged bool) (out *bytes.Buffer, list func(string, uint8) error, open func() int) {
	t.Helper()
	cfg, h := newHost(t, tree, edit)
	h.FS.WholeListing = whole
	p := h.Peripherals()
	if paged {
		p.FS = storage.PagedFS(h.FS)
	}
	b, err := board.New(context.Background(), cfg, p)
	if err != nil {
		t.Fatalf("board.New: %v", err)
	}
	if err := b.MountFlash(); err != nil {
		t.Fatalf("MountFlash: %v", err)
	}
	out = &bytes.Buffer{}
	list = func(p string, depth uint8) error {
		start := len(h.Console.String())
		err := b.ListDir(p, depth)
		out.Reset()
		out.WriteString(h.Console.String()[start:])
		return err
	}
	return out, list, h.FS.OpenCount
}

func TestListDirDepthZeroDoesNotRecurse(t *testing.T) {
	out, list, open := mounted(t, sampleTree(), nil)
	if err := list("/", 0); err != nil {
		t.Fatalf("ListDir: %v", err)
	}
	want := "Listing directory: /\n" +
		"  FILE: a.txt (5B)\n" +
		"  DIR: sub\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
	if open() != 0 {
		t.Fatalf("%d handles left open", open())
	}
}

func TestListDirRecursion(t *testing.T) {
	out, list, open := mounted(t, sampleTree(), nil)
	if err := list("/", 1); err != nil {
		t.Fatalf("ListDir: %v", err)
	}
	want := "Listing directory: /\n" +
		"  FILE: a.txt (5B)\n" +
		"  DIR: sub\n" +
		"Listing directory: /sub\n" +
		"  FILE: b.txt (10B)\n" +
		"  DIR: deeper\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
	if open() != 0 {
		t.Fatalf("%d handles left open", open())
	}
}

func TestListDirRecursesExactlyNLevels(t *testing.T) {
	tree := fstest.MapFS{"d1/d2/d3/d4/d5/f.bin": {Data: []byte{1, 2}}}
	for depth := uint8(0); depth <= 4; depth++ {
		out, list, _ := mounted(t, tree, nil)
		if err := list("/", depth); err != nil {
			t.Fatalf("depth %d: %v", depth, err)
		}
		got := strings.Count(out.String(), "Listing directory:")
		if got != int(depth)+1 {
			t.Fatalf("depth %d: listed %d directories, want %d\n%s", depth, got, depth+1, out.String())
		}
	}
}

func TestListDirOverWholeListingDirectories(t *testing.T) {
	out, list, open := mountedOn(t, sampleTree(), nil, true, true)
	if err := list("/", 1); err != nil {
		t.Fatalf("ListDir: %v", err)
	}
	want := "Listing directory: /\n" +
		"  FILE: a.txt (5B)\n" +
		"  DIR: sub\n" +
		"Listing directory: /sub\n" +
		"  FILE: b.txt (10B)\n" +
		"  DIR: deeper\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
	if open() != 0 {
		t.Fatalf("%d handles left open", open())
	}

	tree := fstest.MapFS{"d1/d2/d3/d4/d5/f.bin": {Data: []byte{1, 2}}}
	for depth := uint8(0); depth <= 4; depth++ {
		out, list, _ := mountedOn(t, tree, nil, true, true)
		if err := list("/", depth); err != nil {
			t.Fatalf("depth %d: %v", depth, err)
		}
		if got := strings.Count(out.String(), "Listing directory:"); got != int(depth)+1 {
			t.Fatalf("depth %d: listed %d directories, want %d\n%s", depth, got, depth+1, out.String())
		}
	}
}

func TestListDirUnpagedWholeListingFails(t *testing.T) {
	out, list, _ := mountedOn(t, sampleTree(), nil, true, false)
	err := list("/", 0)
	if errcode.Of(err) != errcode.Error || !errors.Is(err, storage.ErrPartialRead) {
		t.Fatalf("want read error, got %v", err)
	}
	want := "Listing directory: /\n" +
		" - read failed: n > 0 is not supported yet\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestListDirMissingPath(t *testing.T) {
	out, list, _ := mounted(t, sampleTree(), nil)
	err := list("/nope", 3)
	if errcode.Of(err) != errcode.OpenFailed {
		t.Fatalf("want open_failed, got %v", err)
	}
	s := out.String()
	if n := strings.Count(s, "failed to open"); n != 1 {
		t.Fatalf("%d open diagnostics, want 1: %q", n, s)
	}
	if strings.Contains(s, "DIR:") || strings.Contains(s, "FILE:") {
		t.Fatalf("entries visited for a missing path: %q", s)
	}
}

func TestListDirNotADirectory(t *testing.T) {
	out, list, open := mounted(t, sampleTree(), nil)
	if err := list("/a.txt", 0); errcode.Of(err) != errcode.NotDir {
		t.Fatalf("want not_dir, got %v", err)
	}
	if !strings.HasSuffix(out.String(), " - not a directory\n") {
		t.Fatalf("trace: %q", out.String())
	}
	if open() != 0 {
		t.Fatal("file handle left open")
	}
}

func TestListDirOpenLimitInsideWalk(t *testing.T) {
	tree := fstest.MapFS{"d1/d2/d3/f": {Data: []byte{0}}}
	out, list, _ := mounted(t, tree, func(c *types.BoardConfig) { c.Mount.MaxOpenFiles = 2 })
	if err := list("/", 5); err != nil {
		t.Fatalf("top-level walk should survive a nested failure: %v", err)
	}
	want := "Listing directory: /\n" +
		"  DIR: d1\n" +
		"Listing directory: /d1\n" +
		"  DIR: d2\n" +
		"Listing directory: /d1/d2\n" +
		" - failed to open directory\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadImage(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 4, 2))
	src.SetGray(1, 1, color.Gray{Y: 0x80})
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, src); err != nil {
		t.Fatalf("encode: %v", err)
	}
	tree := fstest.MapFS{"img/logo.bmp": {Data: buf.Bytes()}}

	b, _ := newBoard(t, tree)
	if _, err := b.LoadImage("/img/logo.bmp"); errcode.Of(err) != errcode.NotMounted {
		t.Fatalf("unmounted load: got %v", err)
	}
	if err := b.MountFlash(); err != nil {
		t.Fatalf("MountFlash: %v", err)
	}
	img, err := b.LoadImage("/img/logo.bmp")
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if img.Bounds() != src.Bounds() {
		t.Fatalf("bounds=%v", img.Bounds())
	}
	r, _, _, _ := img.At(1, 1).RGBA()
	if r>>8 != 0x80 {
		t.Fatalf("pixel (1,1) = %v", img.At(1, 1))
	}
	if _, err := b.LoadImage("/img"); err == nil {
		t.Fatal("loading a directory should fail")
	}
}

func TestLoadImageLargerThanPanel(t *testing.T) {
	var wide, fits bytes.Buffer
	if err := bmp.Encode(&wide, image.NewGray(image.Rect(0, 0, 297, 8))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := bmp.Encode(&fits, image.NewGray(image.Rect(0, 0, 296, 128))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	tree := fstest.MapFS{
		"wide.bmp": {Data: wide.Bytes()},
		"full.bmp": {Data: fits.Bytes()},
		"junk.bmp": {Data: []byte("not a bitmap")},
	}

	b, _ := newBoard(t, tree)
	if err := b.MountFlash(); err != nil {
		t.Fatalf("MountFlash: %v", err)
	}
	_, err := b.LoadImage("/wide.bmp")
	if errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("oversized image: got %v", err)
	}
	if !strings.Contains(err.Error(), "297x8, panel is 296x128") {
		t.Fatalf("message: %v", err)
	}
	if _, err := b.LoadImage("/full.bmp"); err != nil {
		t.Fatalf("panel-sized image: %v", err)
	}
	if _, err := b.LoadImage("/junk.bmp"); errcode.Of(err) != errcode.Error {
		t.Fatalf("bad header: got %v", err)
	}
}
