package render

import (
	"image"
	"image/color"
)

// Framebuffer is a 2D array of pixels. Terminal drivers show it with
// half-block characters (▀), so its height is twice the row count there.
type Framebuffer struct {
	Width  int          // Width in pixels
	Height int          // Height in pixels
	Pixels []color.RGBA // Row-major pixel data
}

// NewFramebuffer creates a new framebuffer with the given dimensions.
func NewFramebuffer(width, height int) *Framebuffer {
	width, height = max(width, 0), max(height, 0)
	return &Framebuffer{
		Width:  width,
		Height: height,
		Pixels: make([]color.RGBA, width*height),
	}
}

// Resize reallocates the pixel storage when the dimensions change. It
// reports whether anything changed.
func (fb *Framebuffer) Resize(width, height int) bool {
	width, height = max(width, 0), max(height, 0)
	if width == fb.Width && height == fb.Height {
		return false
	}
	fb.Width, fb.Height = width, height
	fb.Pixels = make([]color.RGBA, width*height)
	return true
}

// Clear fills the framebuffer with a solid color.
func (fb *Framebuffer) Clear(c color.RGBA) {
	n := len(fb.Pixels)
	if n == 0 {
		return
	}
	fb.Pixels[0] = c
	for i := 1; i < n; i *= 2 {
		copy(fb.Pixels[i:], fb.Pixels[:i])
	}
}

// SetPixel sets a pixel at (x, y) to the given color.
// Bounds checking is performed.
func (fb *Framebuffer) SetPixel(x, y int, c color.RGBA) {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return
	}
	fb.Pixels[y*fb.Width+x] = c
}

// GetPixel returns the color at (x, y).
// Returns transparent black if out of bounds.
func (fb *Framebuffer) GetPixel(x, y int) color.RGBA {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return color.RGBA{}
	}
	return fb.Pixels[y*fb.Width+x]
}

// BlendPixel composites c over the stored pixel using c's alpha as a
// straight (non-premultiplied) coverage: dst = src*a + dst*(1-a).
func (fb *Framebuffer) BlendPixel(x, y int, c color.RGBA) {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return
	}
	i := y*fb.Width + x
	fb.Pixels[i] = BlendOver(c, fb.Pixels[i])
}

// BlendOver returns src composited over dst.
func BlendOver(src, dst color.RGBA) color.RGBA {
	switch src.A {
	case 255:
		return src
	case 0:
		return dst
	}
	a := int(src.A)
	ch := func(s, d uint8) uint8 {
		return uint8((int(s)*a + int(d)*(255-a) + 127) / 255)
	}
	return color.RGBA{
		R: ch(src.R, dst.R),
		G: ch(src.G, dst.G),
		B: ch(src.B, dst.B),
		A: ch(255, dst.A),
	}
}

// ToImage converts the framebuffer to a standard Go image.RGBA.
func (fb *Framebuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for y := range fb.Height {
		for x := range fb.Width {
			img.SetRGBA(x, y, fb.Pixels[y*fb.Width+x])
		}
	}
	return img
}
