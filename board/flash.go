package board

import (
	"fmt"
	"image"
	"io"
	"path"

	"epdboard/errcode"
)

// MountFlash mounts the flash filesystem using cfg.Mount (no format unless
// FormatOnFail). On failure the board stays unmounted and the error carries
// errcode.MountFailed.
func (b *Board) MountFlash() error {
	if err := b.live("mount"); err != nil {
		return err
	}
	if err := b.fs.Mount(b.cfg.Mount); err != nil {
		b.mounted = false
		b.println("Failed to mount LittleFS partition!")
		return &errcode.E{C: errcode.MountFailed, Op: "mount", Msg: b.cfg.Mount.Label, Err: err}
	}
	b.mounted = true
	return nil
}

// Mounted reports whether the last MountFlash succeeded.
func (b *Board) Mounted() bool { return b.mounted }

// ListDir prints the entries under dir, descending depth more levels into
// subdirectories (0 lists only dir itself). Entries are read one at a time.
// Open failures inside subdirectories are printed and the walk continues.
func (b *Board) ListDir(dir string, depth uint8) error {
	if err := b.live("list_dir"); err != nil {
		return err
	}
	b.print("Listing directory: ")
	b.println(dir)

	if !b.mounted {
		b.println(" - failed to open directory")
		return &errcode.E{C: errcode.OpenFailed, Op: "list_dir", Msg: dir, Err: errcode.NotMounted}
	}
	root, err := b.fs.Open(dir)
	if err != nil {
		b.println(" - failed to open directory")
		return &errcode.E{C: errcode.OpenFailed, Op: "list_dir", Msg: dir, Err: err}
	}
	defer root.Close()
	if !root.IsDir() {
		b.println(" - not a directory")
		return &errcode.E{C: errcode.NotDir, Op: "list_dir", Msg: dir}
	}

	for {
		infos, err := root.Readdir(1)
		for _, fi := range infos {
			if fi.IsDir() {
				b.print("  DIR: ")
				b.println(fi.Name())
				if depth > 0 {
					_ = b.ListDir(path.Join(dir, fi.Name()), depth-1)
				}
				continue
			}
			b.printf("  FILE: %s (%dB)\n", fi.Name(), fi.Size())
		}
		if err == io.EOF || (err == nil && len(infos) == 0) {
			return nil
		}
		if err != nil {
			b.println(" - read failed: " + err.Error())
			return &errcode.E{C: errcode.Error, Op: "list_dir", Msg: dir, Err: err}
		}
	}
}

// LoadImage decodes a BMP from the mounted filesystem for the caller's
// renderer. Images larger than the configured panel are rejected from the
// header alone.
func (b *Board) LoadImage(p string) (image.Image, error) {
	if err := b.live("load_image"); err != nil {
		return nil, err
	}
	if !b.mounted {
		return nil, &errcode.E{C: errcode.NotMounted, Op: "load_image", Msg: p}
	}
	if w, h := b.cfg.PanelWidth, b.cfg.PanelHeight; w > 0 && h > 0 {
		hdr, err := b.images.Config(p)
		if err != nil {
			return nil, err
		}
		if hdr.Width > w || hdr.Height > h {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "load_image",
				Msg: fmt.Sprintf("%s is %dx%d, panel is %dx%d", p, hdr.Width, hdr.Height, w, h)}
		}
	}
	return b.images.Load(p)
}
