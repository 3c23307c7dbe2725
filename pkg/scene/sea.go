package scene

import (
	"math"

	"github.com/taigrr/mandelwow/pkg/math3d"
	"github.com/taigrr/mandelwow/pkg/models"
	"github.com/taigrr/mandelwow/pkg/render"
)

// Sea is a grid of shaded cubes bobbing below the fractal.
type Sea struct {
	Mesh    *models.Mesh
	Color   render.Color
	Light   math3d.Vec3
	Cols    int
	Rows    int
	Spacing float64
	Level   float64
	Depth   float64 // z of the nearest row
	Size    float64 // scale applied to the mesh
	// Wireframe draws mesh edges in Color instead of shaded faces.
	Wireframe bool
}

// NewSea creates the default grid around mesh, or around a plain cube
// when mesh is nil.
func NewSea(mesh *models.Mesh) *Sea {
	if mesh == nil {
		mesh = models.NewCube(1)
	}
	bc := mesh.BaseColor()
	return &Sea{
		Mesh:    mesh,
		Color:   render.RGB(uint8(bc[0]*96), uint8(bc[1]*128), uint8(bc[2]*224)),
		Light:   math3d.V3(0.4, 1, 0.6),
		Cols:    9,
		Rows:    6,
		Spacing: 0.6,
		Level:   -1.6,
		Depth:   -1.2,
		Size:    0.25,
	}
}

// Transform returns the model matrix of cube (col, row) at time t.
func (s *Sea) Transform(col, row int, t float64) math3d.Mat4 {
	x := (float64(col) - float64(s.Cols-1)/2) * s.Spacing
	z := s.Depth - float64(row)*s.Spacing
	y := s.Level + 0.1*math.Sin(2*t+x+z)
	return math3d.Translate(math3d.V3(x, y, z)).
		Mul(math3d.RotateY(0.5*t + x)).
		Mul(math3d.ScaleUniform(s.Size))
}

// Draw renders the grid and returns how many cubes survived frustum
// culling.
func (s *Sea) Draw(r *render.Rasterizer, cam *render.Camera, t float64) int {
	drawn := 0
	for row := range s.Rows {
		for col := range s.Cols {
			u := cam.Uniforms(s.Transform(col, row, t))
			var ok bool
			if s.Wireframe {
				ok = r.DrawMeshWireframe(s.Mesh, u, s.Color)
			} else {
				ok = r.DrawMeshGouraud(s.Mesh, u, s.Color, s.Light, render.Opaque)
			}
			if ok {
				drawn++
			}
		}
	}
	return drawn
}
