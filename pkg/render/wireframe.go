package render

import (
	"github.com/taigrr/mandelwow/pkg/math3d"
)

// Wireframe draws line primitives through a rasterizer.
type Wireframe struct {
	r      *Rasterizer
	Params DrawParams

	segments [][2]math3d.Vec3
}

// NewWireframe creates a wireframe renderer with depth-tested lines.
func NewWireframe(r *Rasterizer) *Wireframe {
	return &Wireframe{r: r, Params: Lines}
}

// DrawEdges draws one segment per edge, each edge holding two indices
// into points. Points are in model space.
func (w *Wireframe) DrawEdges(points []math3d.Vec3, edges [][2]int, u Uniforms, color Color) {
	w.segments = w.segments[:0]
	for _, e := range edges {
		w.segments = append(w.segments, [2]math3d.Vec3{points[e[0]], points[e[1]]})
	}
	w.r.DrawLines(w.segments, u, w.Params, color)
}
