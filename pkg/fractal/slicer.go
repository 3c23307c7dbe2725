package fractal

import (
	"iter"

	"github.com/taigrr/mandelwow/pkg/math3d"
)

// DefaultSliceCount is the number of depth steps between zmin and zmax.
const DefaultSliceCount = 30

// SliceVertex is one corner of a slice quad.
type SliceVertex struct {
	// Position in model space.
	Position math3d.Vec3
	// Plane is the c coordinate of the recurrence at this corner. It equals
	// the x/y of Position and is interpolated across the quad.
	Plane math3d.Vec2
}

// Slice is one depth layer of the fractal slab: a single quad spanning the
// full x/y extent of the bounds at depth Z.
type Slice struct {
	Index int
	Z     float64
	// Seed is the starting value z0 = (wow, Z) shared by every pixel of the
	// slice. It is the 4-D coordinate this slice represents.
	Seed math3d.Vec2
	// Quad holds the corners in triangle-strip order.
	Quad [4]SliceVertex
}

// Triangles returns the two triangles of the strip, both wound the same
// way.
func (s Slice) Triangles() [2][3]SliceVertex {
	q := s.Quad
	return [2][3]SliceVertex{
		{q[0], q[1], q[2]},
		{q[2], q[1], q[3]},
	}
}

// Slicer cuts the bounds into Count+1 quads along z. The evaluation detail
// comes from the per-pixel evaluator, so one quad per slice is enough to
// bound the region.
type Slicer struct {
	Bounds Cube
	Count  int
}

// NewSlicer returns a slicer over bounds with count depth steps. A count
// below one is raised to one.
func NewSlicer(bounds Cube, count int) Slicer {
	return Slicer{Bounds: bounds, Count: max(count, 1)}
}

// Len returns the number of slices Slices yields.
func (s Slicer) Len() int {
	return max(s.Count, 1) + 1
}

// Step returns the depth distance between neighbouring slices.
func (s Slicer) Step() float64 {
	return s.Bounds.Size().Z / float64(max(s.Count, 1))
}

// Slices yields the slices for the given wow value from zmin to zmax, both
// ends included. The sequence is computed lazily and may be ranged over any
// number of times; nothing is kept between calls.
func (s Slicer) Slices(wow float64) iter.Seq[Slice] {
	return func(yield func(Slice) bool) {
		n := max(s.Count, 1)
		step := s.Step()
		for i := 0; i <= n; i++ {
			z := s.Bounds.ZMin + float64(i)*step
			if i == n {
				z = s.Bounds.ZMax
			}
			if !yield(s.slice(i, z, wow)) {
				return
			}
		}
	}
}

func (s Slicer) slice(i int, z, wow float64) Slice {
	b := s.Bounds
	corner := func(x, y float64) SliceVertex {
		return SliceVertex{
			Position: math3d.V3(x, y, z),
			Plane:    math3d.V2(x, y),
		}
	}
	return Slice{
		Index: i,
		Z:     z,
		Seed:  math3d.V2(wow, z),
		Quad: [4]SliceVertex{
			corner(b.XMin, b.YMax),
			corner(b.XMin, b.YMin),
			corner(b.XMax, b.YMax),
			corner(b.XMax, b.YMin),
		},
	}
}
