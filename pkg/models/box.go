package models

import (
	"github.com/taigrr/mandelwow/pkg/math3d"
)

// NewBox builds an axis-aligned box with 24 vertices, so every face has
// its own flat normal, and 12 outward-facing triangles.
func NewBox(lo, hi math3d.Vec3) *Mesh {
	x0, y0, z0 := lo.X, lo.Y, lo.Z
	x1, y1, z1 := hi.X, hi.Y, hi.Z

	// Corners of each face, counter-clockwise seen from outside
	faces := []struct {
		normal  math3d.Vec3
		corners [4]math3d.Vec3
	}{
		{math3d.V3(0, 0, 1), [4]math3d.Vec3{{X: x0, Y: y0, Z: z1}, {X: x1, Y: y0, Z: z1}, {X: x1, Y: y1, Z: z1}, {X: x0, Y: y1, Z: z1}}},
		{math3d.V3(0, 0, -1), [4]math3d.Vec3{{X: x1, Y: y0, Z: z0}, {X: x0, Y: y0, Z: z0}, {X: x0, Y: y1, Z: z0}, {X: x1, Y: y1, Z: z0}}},
		{math3d.V3(1, 0, 0), [4]math3d.Vec3{{X: x1, Y: y0, Z: z1}, {X: x1, Y: y0, Z: z0}, {X: x1, Y: y1, Z: z0}, {X: x1, Y: y1, Z: z1}}},
		{math3d.V3(-1, 0, 0), [4]math3d.Vec3{{X: x0, Y: y0, Z: z0}, {X: x0, Y: y0, Z: z1}, {X: x0, Y: y1, Z: z1}, {X: x0, Y: y1, Z: z0}}},
		{math3d.V3(0, 1, 0), [4]math3d.Vec3{{X: x0, Y: y1, Z: z1}, {X: x1, Y: y1, Z: z1}, {X: x1, Y: y1, Z: z0}, {X: x0, Y: y1, Z: z0}}},
		{math3d.V3(0, -1, 0), [4]math3d.Vec3{{X: x0, Y: y0, Z: z0}, {X: x1, Y: y0, Z: z0}, {X: x1, Y: y0, Z: z1}, {X: x0, Y: y0, Z: z1}}},
	}
	uvs := [4]math3d.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}

	mesh := NewMesh("box")
	for _, f := range faces {
		base := len(mesh.Vertices)
		for i, p := range f.corners {
			mesh.Vertices = append(mesh.Vertices, MeshVertex{Position: p, Normal: f.normal, UV: uvs[i]})
		}
		mesh.Faces = append(mesh.Faces,
			Face{V: [3]int{base, base + 1, base + 2}, Material: -1},
			Face{V: [3]int{base, base + 2, base + 3}, Material: -1},
		)
	}
	mesh.CalculateBounds()
	return mesh
}

// NewCube builds a box of the given edge length centered on the origin.
func NewCube(size float64) *Mesh {
	h := size / 2
	return NewBox(math3d.V3(-h, -h, -h), math3d.V3(h, h, h))
}
