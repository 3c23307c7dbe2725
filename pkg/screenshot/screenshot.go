// Package screenshot encodes rendered frames to image files.
package screenshot

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// ErrUnknownFormat is returned for formats other than png, bmp and tiff.
var ErrUnknownFormat = errors.New("unknown image format")

// Format is an output encoding.
type Format string

const (
	PNG  Format = "png"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
)

// DefaultPath is where Save writes when Options.Path is empty.
const DefaultPath = "screenshot.png"

// ParseFormat accepts a format name or file extension, with or without
// the leading dot.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "png":
		return PNG, nil
	case "bmp":
		return BMP, nil
	case "tif", "tiff":
		return TIFF, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownFormat)
}

// Options controls Save.
type Options struct {
	// Path of the output file. Defaults to DefaultPath.
	Path string
	// Format overrides the format implied by the file extension.
	Format Format
	// Scale resizes the image before encoding. Zero means 1.
	Scale float64
}

// resolve fills in defaults and picks the format.
func (o Options) resolve() (Options, error) {
	if o.Path == "" {
		o.Path = DefaultPath
	}
	if o.Scale == 0 {
		o.Scale = 1
	}
	if o.Scale < 0 {
		return o, fmt.Errorf("negative scale %v", o.Scale)
	}
	if o.Format == "" {
		f, err := ParseFormat(filepath.Ext(o.Path))
		if err != nil {
			// No usable extension, keep the path and write PNG
			f = PNG
		}
		o.Format = f
	}
	return o, nil
}

// Save scales img and writes it to opts.Path. It returns the path written.
func Save(img image.Image, opts Options) (string, error) {
	opts, err := opts.resolve()
	if err != nil {
		return "", err
	}
	if _, err := ParseFormat(string(opts.Format)); err != nil {
		return "", err
	}

	f, err := os.Create(opts.Path)
	if err != nil {
		return "", fmt.Errorf("create screenshot: %w", err)
	}
	if err := Encode(f, Scale(img, opts.Scale), opts.Format); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close screenshot: %w", err)
	}
	return opts.Path, nil
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format Format) error {
	var err error
	switch format {
	case PNG:
		err = png.Encode(w, img)
	case BMP:
		err = bmp.Encode(w, img)
	case TIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	return nil
}

// Scale resizes img by factor with nearest-neighbour sampling, so the
// blocky look of small framebuffers survives enlargement. A factor of 1
// returns img unchanged; the result is at least 1x1.
func Scale(img image.Image, factor float64) image.Image {
	if factor == 1 || factor <= 0 {
		return img
	}
	b := img.Bounds()
	w := max(int(float64(b.Dx())*factor+0.5), 1)
	h := max(int(float64(b.Dy())*factor+0.5), 1)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
