package storage

import (
	"image"

	"golang.org/x/image/bmp"

	"epdboard/errcode"
)

// ImageReader decodes BMP images stored on a Filesystem. Pixel conversion
// to the panel's gray levels is left to the caller's renderer.
type ImageReader struct {
	fs Filesystem
}

func NewImageReader(fsys Filesystem) *ImageReader { return &ImageReader{fs: fsys} }

// Load decodes the BMP at path.
func (r *ImageReader) Load(path string) (image.Image, error) {
	f, err := r.open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := bmp.Decode(f)
	if err != nil {
		return nil, &errcode.E{C: errcode.Error, Op: "bmp_decode", Msg: path, Err: err}
	}
	return img, nil
}

// Config reads only the BMP header (dimensions and color model).
func (r *ImageReader) Config(path string) (image.Config, error) {
	f, err := r.open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()
	cfg, err := bmp.DecodeConfig(f)
	if err != nil {
		return image.Config{}, &errcode.E{C: errcode.Error, Op: "bmp_header", Msg: path, Err: err}
	}
	return cfg, nil
}

func (r *ImageReader) open(path string) (File, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return nil, &errcode.E{C: errcode.OpenFailed, Op: "image_open", Msg: path, Err: err}
	}
	if f.IsDir() {
		_ = f.Close()
		return nil, &errcode.E{C: errcode.Error, Op: "image_open", Msg: path + " is a directory"}
	}
	return f, nil
}
