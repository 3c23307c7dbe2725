package fractal

import "github.com/chewxy/math32"

// DefaultMaxIter is the iteration budget per pixel.
const DefaultMaxIter = 64

// Bailout selects the escape test applied before each iteration.
type Bailout int

const (
	// BailoutSum escapes once zx²+zy² > 4, the textbook radius-2 test.
	BailoutSum Bailout = iota
	// BailoutProduct escapes once zx²·zy² > 4. Older renditions of the
	// demo shipped this test; it is kept only to reproduce their look and
	// is not a correct escape criterion.
	BailoutProduct
)

func (b Bailout) String() string {
	switch b {
	case BailoutSum:
		return "sum"
	case BailoutProduct:
		return "product"
	default:
		return "unknown"
	}
}

// ParseBailout maps "sum" or "product" to a Bailout.
func ParseBailout(s string) (Bailout, bool) {
	switch s {
	case "sum", "":
		return BailoutSum, true
	case "product":
		return BailoutProduct, true
	default:
		return BailoutSum, false
	}
}

// Point is a complex number split into real and imaginary parts.
type Point struct {
	X, Y float32
}

// Color is a straight-alpha RGBA color with channels in [0, 1]. Channels
// may be NaN when the inputs were.
type Color [4]float32

// Evaluator runs the escape-time recurrence z ← z² + c. It is a pure
// function of its inputs and safe for concurrent use.
type Evaluator struct {
	MaxIter int
	Bailout Bailout
}

// NewEvaluator returns an evaluator with the default budget and the
// additive bailout.
func NewEvaluator() Evaluator {
	return Evaluator{MaxIter: DefaultMaxIter, Bailout: BailoutSum}
}

// Escape iterates from z0 and reports how many updates were applied before
// the bailout test first held. When the test never holds within MaxIter
// updates, escaped is false and n equals MaxIter. NaN never escapes.
func (e Evaluator) Escape(c, z0 Point) (n int, escaped bool) {
	zx, zy := z0.X, z0.Y
	for i := range e.MaxIter {
		zx2, zy2 := zx*zx, zy*zy
		if e.outside(zx2, zy2) {
			return i, true
		}
		zy = 2*zx*zy + c.Y
		zx = zx2 - zy2 + c.X
	}
	return e.MaxIter, false
}

func (e Evaluator) outside(zx2, zy2 float32) bool {
	if e.Bailout == BailoutProduct {
		return zx2*zy2 > 4
	}
	return zx2+zy2 > 4
}

// Shade returns the color of one pixel. Escaped points fade in with their
// normalized escape index, so points near the set boundary are brighter
// and more opaque. Points that never escape get an opaque decorative color
// built from the inputs.
func (e Evaluator) Shade(c, z0 Point) Color {
	n, escaped := e.Escape(c, z0)
	if escaped {
		idx := float32(n) / float32(max(e.MaxIter, 1))
		return Color{idx, idx * 0.5, idx, idx * 0.5}
	}
	return Color{
		(math32.Sin(z0.Y) + 1) / 2,
		(math32.Sin(c.Y) + 1) / 2,
		(math32.Sin(c.X) + 1) / 2,
		1,
	}
}
