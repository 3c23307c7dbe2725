// Package text renders strings into textures and draws them as billboards
// through the software rasterizer.
package text

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/taigrr/mandelwow/pkg/math3d"
	"github.com/taigrr/mandelwow/pkg/render"
)

// DefaultSize is the point size used for TrueType and OpenType fonts.
const DefaultSize = 16

// DefaultFace is the embedded fallback face.
func DefaultFace() font.Face {
	return basicfont.Face7x13
}

// OpenFace parses a TrueType or OpenType file at the given point size.
func OpenFace(path string, size float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	return ParseFace(data, size)
}

// ParseFace parses TrueType or OpenType data at the given point size.
func ParseFace(data []byte, size float64) (font.Face, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	if size <= 0 {
		size = DefaultSize
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}
	return face, nil
}

// LoadFace returns the face at path, or the embedded face when path is
// empty or cannot be used.
func LoadFace(path string, size float64, logger *slog.Logger) font.Face {
	if path == "" {
		return DefaultFace()
	}
	face, err := OpenFace(path, size)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("font unavailable, using embedded face", "path", path, "err", err)
		return DefaultFace()
	}
	return face
}

// Rasterize draws s in fg over bg. The image is one line tall and exactly
// as wide as the advance of s.
func Rasterize(s string, face font.Face, fg, bg color.RGBA) *image.RGBA {
	m := face.Metrics()
	width := max(font.MeasureString(face, s).Ceil(), 1)
	height := max((m.Ascent + m.Descent).Ceil(), 1)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.Point26_6{X: 0, Y: m.Ascent},
	}
	d.DrawString(s)
	return img
}

// Billboard is a textured quad showing one line of text. In model space
// it is one unit tall, centered on the origin in the XY plane and facing
// +Z.
type Billboard struct {
	face   font.Face
	fg, bg color.RGBA
	text   string

	tex    *render.Texture
	filter render.FilterMode
	bounds render.AABB
	tris   []render.Triangle
	params render.DrawParams
}

// NewBillboard creates a billboard. A background with zero alpha leaves
// the space between glyphs transparent.
func NewBillboard(s string, face font.Face, fg, bg color.RGBA) *Billboard {
	if face == nil {
		face = DefaultFace()
	}
	b := &Billboard{
		face:   face,
		fg:     fg,
		bg:     bg,
		params: render.DrawParams{Depth: render.DepthLess, DepthWrite: true, Blend: true},
	}
	b.SetText(s)
	return b
}

// Text returns the current string.
func (b *Billboard) Text() string {
	return b.text
}

// Aspect returns width / height of the quad.
func (b *Billboard) Aspect() float64 {
	return float64(b.tex.Width) / float64(b.tex.Height)
}

// SetText re-renders the texture when s differs from the current text.
func (b *Billboard) SetText(s string) {
	if s == b.text && b.tex != nil {
		return
	}
	b.text = s
	b.tex = render.TextureFromImage(Rasterize(s, b.face, b.fg, b.bg))
	b.tex.FilterMode = b.filter

	hw, hh := b.Aspect()/2, 0.5
	b.bounds = render.AABB{Min: math3d.V3(-hw, -hh, 0), Max: math3d.V3(hw, hh, 0)}
	white := render.ColorWhite
	v := func(x, y, u, vv float64) render.Vertex {
		return render.Vertex{
			Position: math3d.V3(x, y, 0),
			Normal:   math3d.V3(0, 0, 1),
			UV:       math3d.V2(u, vv),
			Color:    white,
		}
	}
	bl, br := v(-hw, -hh, 0, 0), v(hw, -hh, 1, 0)
	tr, tl := v(hw, hh, 1, 1), v(-hw, hh, 0, 1)
	b.tris = []render.Triangle{
		{V: [3]render.Vertex{bl, br, tr}},
		{V: [3]render.Vertex{bl, tr, tl}},
	}
}

// SetFilter selects how the glyph texture is sampled. Bilinear smooths
// scaled text at the cost of sharp pixel edges.
func (b *Billboard) SetFilter(f render.FilterMode) {
	b.filter = f
	b.tex.FilterMode = f
}

// Draw renders the billboard with the given transforms. It returns false
// when the quad lies outside the view.
func (b *Billboard) Draw(r *render.Rasterizer, u render.Uniforms) bool {
	frustum := render.NewFrustumFromMatrix(u.MVP())
	if !frustum.IntersectsSphere(b.bounds.Center(), b.bounds.HalfSize().Len()) {
		return false
	}
	r.DrawTriangles(b.tris, u, b.params, render.TextureShader(b.tex))
	return true
}
