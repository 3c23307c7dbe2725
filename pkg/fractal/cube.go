// Package fractal holds the Mandelwow core: the region the 4-D set is
// evaluated over, the slicer that turns that region into a stack of quads,
// the escape-time evaluator that colors each covered pixel, and the wow
// oscillation that sweeps the fourth coordinate.
package fractal

import "github.com/taigrr/mandelwow/pkg/math3d"

// Cube is an axis-aligned box. Each Min must not exceed its Max; a cube
// that breaks this draws as empty or inverted geometry, which is undefined
// visually but never a crash.
type Cube struct {
	XMin, XMax float64
	YMin, YMax float64
	ZMin, ZMax float64
}

// DefaultCube returns the unit cube centered at the origin.
func DefaultCube() Cube {
	return Cube{
		XMin: -0.5, XMax: 0.5,
		YMin: -0.5, YMax: 0.5,
		ZMin: -0.5, ZMax: 0.5,
	}
}

// MandelwowBounds returns the section of the set the demo renders.
func MandelwowBounds() Cube {
	return Cube{
		XMin: -2.0, XMax: 0.7,
		YMin: -1.0, YMax: 1.0,
		ZMin: -1.1, ZMax: 1.1,
	}
}

// Valid reports whether min <= max holds on every axis.
func (c Cube) Valid() bool {
	return c.XMin <= c.XMax && c.YMin <= c.YMax && c.ZMin <= c.ZMax
}

// Min returns the minimum corner.
func (c Cube) Min() math3d.Vec3 {
	return math3d.V3(c.XMin, c.YMin, c.ZMin)
}

// Max returns the maximum corner.
func (c Cube) Max() math3d.Vec3 {
	return math3d.V3(c.XMax, c.YMax, c.ZMax)
}

// Size returns the extent along each axis.
func (c Cube) Size() math3d.Vec3 {
	return c.Max().Sub(c.Min())
}

// Center returns the midpoint of the box.
func (c Cube) Center() math3d.Vec3 {
	return c.Min().Add(c.Max()).Scale(0.5)
}

// Corners returns the eight corners. The first four lie on the zmin face
// and the last four on the zmax face, both in the same winding, so corner
// i and corner i+4 share an edge.
func (c Cube) Corners() [8]math3d.Vec3 {
	return [8]math3d.Vec3{
		{X: c.XMin, Y: c.YMin, Z: c.ZMin},
		{X: c.XMax, Y: c.YMin, Z: c.ZMin},
		{X: c.XMax, Y: c.YMax, Z: c.ZMin},
		{X: c.XMin, Y: c.YMax, Z: c.ZMin},
		{X: c.XMin, Y: c.YMin, Z: c.ZMax},
		{X: c.XMax, Y: c.YMin, Z: c.ZMax},
		{X: c.XMax, Y: c.YMax, Z: c.ZMax},
		{X: c.XMin, Y: c.YMax, Z: c.ZMax},
	}
}

// Edges lists the twelve edges of the box as pairs of Corners indices.
var Edges = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0}, // zmin face
	{4, 5}, {5, 6}, {6, 7}, {7, 4}, // zmax face
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // connecting edges
}
