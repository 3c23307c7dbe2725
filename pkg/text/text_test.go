package text

import (
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/taigrr/mandelwow/pkg/math3d"
	"github.com/taigrr/mandelwow/pkg/render"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRasterizeBasicFont(t *testing.T) {
	fg := render.ColorC64LightBlue
	bg := render.ColorC64Blue
	img := Rasterize("WOW", basicfont.Face7x13, fg, bg)

	assert.Equal(t, 3*7, img.Bounds().Dx())
	assert.Equal(t, 13, img.Bounds().Dy())

	var ink, paper int
	for y := range img.Bounds().Dy() {
		for x := range img.Bounds().Dx() {
			switch img.RGBAAt(x, y) {
			case fg:
				ink++
			case bg:
				paper++
			}
		}
	}
	assert.Positive(t, ink)
	assert.Positive(t, paper)
}

func TestRasterizeEmptyString(t *testing.T) {
	img := Rasterize("", DefaultFace(), render.ColorWhite, color.RGBA{})
	assert.Equal(t, 1, img.Bounds().Dx())
}

func TestLoadFaceFallsBack(t *testing.T) {
	assert.Same(t, basicfont.Face7x13, LoadFace("", 16, nil))
	assert.Same(t, basicfont.Face7x13, LoadFace("/nonexistent/font.ttf", 16, quietLogger()))

	bad := filepath.Join(t.TempDir(), "bad.ttf")
	require.NoError(t, os.WriteFile(bad, []byte("not a font"), 0o644))
	assert.Same(t, basicfont.Face7x13, LoadFace(bad, 16, quietLogger()))

	_, err := OpenFace(bad, 16)
	assert.Error(t, err)
}

func TestOpenFaceTrueType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goregular.ttf")
	require.NoError(t, os.WriteFile(path, goregular.TTF, 0o644))

	face, err := OpenFace(path, 24)
	require.NoError(t, err)
	defer face.Close()

	img := Rasterize("Mandelwow", face, render.ColorWhite, color.RGBA{})
	assert.Greater(t, img.Bounds().Dy(), 20)
	assert.Greater(t, img.Bounds().Dx(), img.Bounds().Dy())

	loaded := LoadFace(path, 24, quietLogger())
	assert.NotSame(t, basicfont.Face7x13, loaded)
}

func TestBillboard(t *testing.T) {
	b := NewBillboard("HI", nil, render.ColorC64LightBlue, render.ColorC64Blue)
	assert.Equal(t, "HI", b.Text())
	assert.InDelta(t, 14.0/13.0, b.Aspect(), 1e-12)

	tex := b.tex
	b.SetText("HI")
	assert.Same(t, tex, b.tex, "unchanged text keeps the texture")
	b.SetText("HELLO")
	assert.InDelta(t, 35.0/13.0, b.Aspect(), 1e-12)

	fb := render.NewFramebuffer(64, 64)
	fb.Clear(render.ColorBlack)
	r := render.NewRasterizer(fb)
	cam := render.NewCamera()
	cam.SetAspectRatio(1)

	// Pushed back far enough to fit the whole quad
	model := math3d.Translate(math3d.V3(0, 0, -3))
	assert.True(t, b.Draw(r, cam.Uniforms(model)))

	var ink, paper int
	for _, p := range fb.Pixels {
		switch p {
		case render.ColorC64LightBlue:
			ink++
		case render.ColorC64Blue:
			paper++
		}
	}
	assert.Positive(t, ink)
	assert.Positive(t, paper)
	assert.Equal(t, render.ColorBlack, fb.GetPixel(0, 0))
}

func TestBillboardTransparentBackground(t *testing.T) {
	b := NewBillboard("X", DefaultFace(), render.ColorWhite, color.RGBA{})

	fb := render.NewFramebuffer(32, 32)
	fb.Clear(render.ColorBlack)
	r := render.NewRasterizer(fb)
	cam := render.NewCamera()
	cam.SetAspectRatio(1)
	b.Draw(r, cam.Uniforms(math3d.Translate(math3d.V3(0, 0, -1))))

	for i, p := range fb.Pixels {
		if p != render.ColorBlack && p != render.ColorWhite {
			t.Fatalf("pixel %d = %v, want only ink or untouched black", i, p)
		}
	}
	// Discarded texels leave depth untouched
	assert.Greater(t, r.Depth(0, 0), 1.0)
}

func TestBillboardBehindCameraIsCulled(t *testing.T) {
	b := NewBillboard("MANDELWOW", nil, render.ColorWhite, render.ColorC64Blue)
	fb := render.NewFramebuffer(32, 32)
	fb.Clear(render.ColorBlack)
	r := render.NewRasterizer(fb)
	cam := render.NewCamera()

	assert.False(t, b.Draw(r, cam.Uniforms(math3d.Translate(math3d.V3(0, 0, 5)))))
	for _, p := range fb.Pixels {
		require.Equal(t, render.ColorBlack, p)
	}

	// Off to the side but wide enough to reach into view
	wide := math3d.Translate(math3d.V3(-4, 0, -3))
	assert.True(t, b.Draw(r, cam.Uniforms(wide)))
}

func TestBillboardBilinearFilter(t *testing.T) {
	ink, paper := render.ColorC64LightBlue, render.ColorC64Blue
	draw := func(f render.FilterMode) int {
		b := NewBillboard("HELLO", nil, ink, paper)
		b.SetFilter(f)
		fb := render.NewFramebuffer(96, 96)
		fb.Clear(render.ColorBlack)
		r := render.NewRasterizer(fb)
		cam := render.NewCamera()
		cam.SetAspectRatio(1)
		b.Draw(r, cam.Uniforms(math3d.Translate(math3d.V3(0, 0, -1.5))))

		between := 0
		for _, p := range fb.Pixels {
			if p != ink && p != paper && p != render.ColorBlack {
				between++
			}
		}
		return between
	}

	assert.Zero(t, draw(render.FilterNearest), "nearest sampling only shows texels")
	assert.Positive(t, draw(render.FilterBilinear), "bilinear sampling mixes ink and paper")

	b := NewBillboard("A", nil, ink, paper)
	b.SetFilter(render.FilterBilinear)
	b.SetText("B")
	assert.Equal(t, render.FilterBilinear, b.tex.FilterMode, "filter survives a text change")
}
