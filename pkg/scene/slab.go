package scene

import (
	"math"

	"github.com/taigrr/mandelwow/pkg/fractal"
	"github.com/taigrr/mandelwow/pkg/math3d"
	"github.com/taigrr/mandelwow/pkg/render"
)

// SliceShader evaluates the escape-time coloring per pixel. Fragments
// carry c in Attr.XY and the slice seed z0 in Attr.ZW.
func SliceShader(ev fractal.Evaluator) render.FragmentShader {
	return func(f *render.Fragment) (render.Color, bool) {
		c := fractal.Point{X: float32(f.Attr.X), Y: float32(f.Attr.Y)}
		z0 := fractal.Point{X: float32(f.Attr.Z), Y: float32(f.Attr.W)}
		return toRGBA(ev.Shade(c, z0)), true
	}
}

// toRGBA converts a [0,1] color to 8 bits. NaN channels become 0.
func toRGBA(c fractal.Color) render.Color {
	ch := func(v float32) uint8 {
		f := float64(v)
		if math.IsNaN(f) || f <= 0 {
			return 0
		}
		if f >= 1 {
			return 255
		}
		return uint8(f*255 + 0.5)
	}
	return render.Color{R: ch(c[0]), G: ch(c[1]), B: ch(c[2]), A: ch(c[3])}
}

// Slab is the stack of translucent slices that shows the fractal.
type Slab struct {
	Slicer fractal.Slicer
	shade  render.FragmentShader
	tris   []render.Triangle
}

// NewSlab creates a slab drawing slicer's quads through ev.
func NewSlab(slicer fractal.Slicer, ev fractal.Evaluator) *Slab {
	return &Slab{
		Slicer: slicer,
		shade:  SliceShader(ev),
		tris:   make([]render.Triangle, 0, 2*slicer.Len()),
	}
}

// Triangles returns the slice triangles for wow, zmin first. The slice is
// reused by the next call.
func (s *Slab) Triangles(wow float64) []render.Triangle {
	s.tris = s.tris[:0]
	for sl := range s.Slicer.Slices(wow) {
		for _, tri := range sl.Triangles() {
			var t render.Triangle
			for k, v := range tri {
				t.V[k] = render.Vertex{
					Position: v.Position,
					Color:    render.ColorWhite,
					Attr:     math3d.V4(v.Plane.X, v.Plane.Y, sl.Seed.X, sl.Seed.Y),
				}
			}
			s.tris = append(s.tris, t)
		}
	}
	return s.tris
}

// Draw renders every slice in order with depth test, depth write and
// blending on. It returns false when the sphere around the bounds lies
// outside the view and nothing was drawn.
func (s *Slab) Draw(r *render.Rasterizer, u render.Uniforms, wow float64) bool {
	b := s.Slicer.Bounds
	if !render.NewFrustumFromMatrix(u.MVP()).IntersectsSphere(b.Center(), b.Size().Len()/2) {
		return false
	}
	r.DrawTriangles(s.Triangles(wow), u, render.Translucent, s.shade)
	return true
}
