// Package render provides software rasterization for mandelwow.
package render

import (
	"math"

	"github.com/taigrr/mandelwow/pkg/math3d"
)

// Vertex represents a vertex with all attributes needed for rasterization.
type Vertex struct {
	Position math3d.Vec3 // Model-space position
	Normal   math3d.Vec3 // Normal vector (for lighting)
	UV       math3d.Vec2 // Texture coordinates
	Color    Color       // Vertex color
	Attr     math3d.Vec4 // Free attributes handed to fragment shaders
}

// Triangle represents a triangle to be rasterized.
type Triangle struct {
	V [3]Vertex
}

// Uniforms are the per-draw-call transforms.
type Uniforms struct {
	Model      math3d.Mat4
	View       math3d.Mat4
	Projection math3d.Mat4
}

// MVP returns projection * view * model.
func (u Uniforms) MVP() math3d.Mat4 {
	return u.Projection.Mul(u.View).Mul(u.Model)
}

// ViewProjection returns projection * view.
func (u Uniforms) ViewProjection() math3d.Mat4 {
	return u.Projection.Mul(u.View)
}

// DepthTest selects the depth comparison.
type DepthTest int

const (
	DepthAlways DepthTest = iota // Every fragment passes
	DepthLess                    // Pass when nearer than the stored depth
)

// DrawParams is the fixed-function state of one draw call.
type DrawParams struct {
	Depth      DepthTest
	DepthWrite bool
	Blend      bool // Straight-alpha "over" blending against the framebuffer
	CullBack   bool // Drop triangles wound clockwise on screen
}

// Common draw states.
var (
	// Opaque is for solid geometry.
	Opaque = DrawParams{Depth: DepthLess, DepthWrite: true, CullBack: true}
	// Translucent is for the fractal slices: both sides drawn, blended, and
	// still writing depth so later slices behind them are discarded.
	Translucent = DrawParams{Depth: DepthLess, DepthWrite: true, Blend: true}
	// Lines is for wireframes.
	Lines = DrawParams{Depth: DepthLess, DepthWrite: true}
)

// Fragment is the interpolated input of a fragment shader.
type Fragment struct {
	X, Y  int
	Depth float64
	Color Color
	UV    math3d.Vec2
	Attr  math3d.Vec4
}

// FragmentShader returns the color of a covered pixel, or false to discard
// it. It runs after the depth test.
type FragmentShader func(f *Fragment) (Color, bool)

// VertexColorShader outputs the interpolated vertex color.
func VertexColorShader(f *Fragment) (Color, bool) {
	return f.Color, true
}

// TextureShader samples tex, modulates it with the vertex color and
// discards fully transparent texels.
func TextureShader(tex *Texture) FragmentShader {
	return func(f *Fragment) (Color, bool) {
		c := ModulateColor(tex.Sample(f.UV.X, f.UV.Y), f.Color)
		return c, c.A > 0
	}
}

// Rasterizer handles software triangle rasterization.
type Rasterizer struct {
	fb           *Framebuffer
	zbuffer      []float64    // Depth buffer (1D array, row-major)
	CullingStats CullingStats // Statistics for debugging/benchmarking
}

// CullingStats tracks frustum culling performance.
type CullingStats struct {
	MeshesTested int // Total meshes tested for culling
	MeshesCulled int // Meshes culled (not rendered)
	MeshesDrawn  int // Meshes that passed culling
}

// NewRasterizer creates a new rasterizer drawing into fb.
func NewRasterizer(fb *Framebuffer) *Rasterizer {
	r := &Rasterizer{fb: fb}
	r.Resize()
	return r
}

// Framebuffer returns the target framebuffer.
func (r *Rasterizer) Framebuffer() *Framebuffer {
	return r.fb
}

// SetFramebuffer retargets the rasterizer and resizes the depth buffer.
func (r *Rasterizer) SetFramebuffer(fb *Framebuffer) {
	r.fb = fb
	r.Resize()
}

// Resize resizes the rasterizer's buffer to match the framebuffer.
func (r *Rasterizer) Resize() {
	if r.fb == nil {
		r.zbuffer = nil
		return
	}
	r.zbuffer = make([]float64, r.fb.Width*r.fb.Height)
	r.ClearDepth()
}

// Width returns the framebuffer width.
func (r *Rasterizer) Width() int {
	if r.fb == nil {
		return 0
	}
	return r.fb.Width
}

// Height returns the framebuffer height.
func (r *Rasterizer) Height() int {
	if r.fb == nil {
		return 0
	}
	return r.fb.Height
}

// ClearDepth clears the Z-buffer (call before each frame).
func (r *Rasterizer) ClearDepth() {
	// Use copy-doubling for faster clearing
	n := len(r.zbuffer)
	if n == 0 {
		return
	}
	r.zbuffer[0] = math.MaxFloat64
	for i := 1; i < n; i *= 2 {
		copy(r.zbuffer[i:], r.zbuffer[:i])
	}
}

// Depth returns the stored depth at (x, y).
func (r *Rasterizer) Depth(x, y int) float64 {
	if x < 0 || x >= r.Width() || y < 0 || y >= r.Height() {
		return math.MaxFloat64
	}
	return r.zbuffer[y*r.Width()+x]
}

// ResetCullingStats resets the culling statistics (call once per frame).
func (r *Rasterizer) ResetCullingStats() {
	r.CullingStats = CullingStats{}
}

// varying holds the attributes interpolated across a primitive.
type varying struct {
	color [4]float64
	uv    math3d.Vec2
	attr  math3d.Vec4
}

func (a varying) lerp(b varying, t float64) varying {
	var out varying
	for i := range 4 {
		out.color[i] = a.color[i] + (b.color[i]-a.color[i])*t
	}
	out.uv = a.uv.Lerp(b.uv, t)
	out.attr = a.attr.Lerp(b.attr, t)
	return out
}

// clipVertex is a vertex after the MVP transform.
type clipVertex struct {
	pos math3d.Vec4
	v   varying
}

// screenVertex holds a vertex transformed to screen space.
type screenVertex struct {
	X, Y float64 // Screen coordinates
	Z    float64 // NDC depth (for Z-buffer)
	InvW float64 // 1/w (for perspective-correct interpolation)
	v    varying
}

func toVarying(v Vertex) varying {
	return varying{
		color: [4]float64{float64(v.Color.R), float64(v.Color.G), float64(v.Color.B), float64(v.Color.A)},
		uv:    v.UV,
		attr:  v.Attr,
	}
}

// DrawTriangle rasterizes a single triangle.
func (r *Rasterizer) DrawTriangle(tri Triangle, u Uniforms, p DrawParams, shade FragmentShader) {
	r.drawTriangle(tri, u.MVP(), p, shade)
}

// DrawTriangles rasterizes a batch of triangles sharing one set of
// uniforms.
func (r *Rasterizer) DrawTriangles(tris []Triangle, u Uniforms, p DrawParams, shade FragmentShader) {
	mvp := u.MVP()
	for _, tri := range tris {
		r.drawTriangle(tri, mvp, p, shade)
	}
}

func (r *Rasterizer) drawTriangle(tri Triangle, mvp math3d.Mat4, p DrawParams, shade FragmentShader) {
	if r.fb == nil {
		return
	}
	var in [3]clipVertex
	for i := range 3 {
		in[i] = clipVertex{
			pos: mvp.MulVec4(math3d.V4FromV3(tri.V[i].Position, 1)),
			v:   toVarying(tri.V[i]),
		}
	}

	poly := clipNear(in[:])
	if len(poly) < 3 {
		return
	}

	sv := make([]screenVertex, len(poly))
	for i, cv := range poly {
		sv[i] = r.toScreen(cv)
	}
	// Fan out the clipped polygon
	for i := 1; i+1 < len(sv); i++ {
		r.rasterize([3]screenVertex{sv[0], sv[i], sv[i+1]}, p, shade)
	}
}

// nearW keeps clipped vertices strictly in front of the eye.
const nearW = 1e-6

// clipNear clips a polygon against the near plane z >= -w
// (Sutherland-Hodgman). A triangle yields at most four vertices.
func clipNear(in []clipVertex) []clipVertex {
	dist := func(c clipVertex) float64 { return c.pos.Z + c.pos.W - nearW }

	inside := 0
	for _, c := range in {
		if dist(c) >= 0 {
			inside++
		}
	}
	if inside == len(in) {
		return in
	}
	if inside == 0 {
		return nil
	}

	out := make([]clipVertex, 0, len(in)+1)
	for i := range in {
		a, b := in[i], in[(i+1)%len(in)]
		da, db := dist(a), dist(b)
		if da >= 0 {
			out = append(out, a)
		}
		if (da >= 0) != (db >= 0) {
			t := da / (da - db)
			out = append(out, clipVertex{
				pos: a.pos.Lerp(b.pos, t),
				v:   a.v.lerp(b.v, t),
			})
		}
	}
	return out
}

func (r *Rasterizer) toScreen(c clipVertex) screenVertex {
	ndc := c.pos.PerspectiveDivide()
	return screenVertex{
		X:    (ndc.X + 1) * 0.5 * float64(r.Width()),
		Y:    (1 - ndc.Y) * 0.5 * float64(r.Height()), // Y flipped
		Z:    ndc.Z,
		InvW: 1 / c.pos.W,
		v:    c.v,
	}
}

func (r *Rasterizer) rasterize(sv [3]screenVertex, p DrawParams, shade FragmentShader) {
	// Screen-space winding; y points down, so counter-clockwise on screen
	// gives a negative area.
	edge1 := math3d.V2(sv[1].X-sv[0].X, sv[1].Y-sv[0].Y)
	edge2 := math3d.V2(sv[2].X-sv[0].X, sv[2].Y-sv[0].Y)
	area := edge1.Cross(edge2)
	if area == 0 || math.IsNaN(area) {
		return
	}
	if p.CullBack && area > 0 {
		return // Back-facing
	}

	// Find bounding box
	minX := int(math.Max(0, math.Floor(min3(sv[0].X, sv[1].X, sv[2].X))))
	maxX := int(math.Min(float64(r.Width()-1), math.Ceil(max3(sv[0].X, sv[1].X, sv[2].X))))
	minY := int(math.Max(0, math.Floor(min3(sv[0].Y, sv[1].Y, sv[2].Y))))
	maxY := int(math.Min(float64(r.Height()-1), math.Ceil(max3(sv[0].Y, sv[1].Y, sv[2].Y))))

	frag := Fragment{}
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5

			bc := barycentric(
				sv[0].X, sv[0].Y,
				sv[1].X, sv[1].Y,
				sv[2].X, sv[2].Y,
				px, py,
			)
			if bc.X < 0 || bc.Y < 0 || bc.Z < 0 {
				continue
			}

			// Screen-space depth interpolates linearly
			z := bc.X*sv[0].Z + bc.Y*sv[1].Z + bc.Z*sv[2].Z
			if z < -1 || z > 1 {
				continue // Outside the depth range
			}
			idx := y*r.Width() + x
			if p.Depth == DepthLess && z >= r.zbuffer[idx] {
				continue
			}

			// Perspective-correct attribute weights
			w0, w1, w2 := bc.X*sv[0].InvW, bc.Y*sv[1].InvW, bc.Z*sv[2].InvW
			sum := w0 + w1 + w2
			if sum == 0 {
				continue
			}
			w0, w1, w2 = w0/sum, w1/sum, w2/sum

			frag.X, frag.Y, frag.Depth = x, y, z
			frag.Color = weightColor(sv[0].v.color, sv[1].v.color, sv[2].v.color, w0, w1, w2)
			frag.UV = math3d.V2(
				w0*sv[0].v.uv.X+w1*sv[1].v.uv.X+w2*sv[2].v.uv.X,
				w0*sv[0].v.uv.Y+w1*sv[1].v.uv.Y+w2*sv[2].v.uv.Y,
			)
			frag.Attr = sv[0].v.attr.Scale(w0).Add(sv[1].v.attr.Scale(w1)).Add(sv[2].v.attr.Scale(w2))

			color, keep := shade(&frag)
			if !keep {
				continue
			}

			if p.DepthWrite {
				r.zbuffer[idx] = z
			}
			if p.Blend {
				r.fb.BlendPixel(x, y, color)
			} else {
				r.fb.SetPixel(x, y, color)
			}
		}
	}
}

// barycentric calculates barycentric coordinates for point (px, py) in triangle.
func barycentric(x0, y0, x1, y1, x2, y2, px, py float64) math3d.Vec3 {
	v0x, v0y := x2-x0, y2-y0
	v1x, v1y := x1-x0, y1-y0
	v2x, v2y := px-x0, py-y0

	dot00 := v0x*v0x + v0y*v0y
	dot01 := v0x*v1x + v0y*v1y
	dot02 := v0x*v2x + v0y*v2y
	dot11 := v1x*v1x + v1y*v1y
	dot12 := v1x*v2x + v1y*v2y

	invDenom := 1.0 / (dot00*dot11 - dot01*dot01)
	u := (dot11*dot02 - dot01*dot12) * invDenom
	v := (dot00*dot12 - dot01*dot02) * invDenom

	return math3d.V3(1-u-v, v, u)
}

// weightColor blends three float colors with normalized weights.
func weightColor(c0, c1, c2 [4]float64, w0, w1, w2 float64) Color {
	ch := func(i int) uint8 {
		return clamp8(c0[i]*w0 + c1[i]*w1 + c2[i]*w2)
	}
	return Color{R: ch(0), G: ch(1), B: ch(2), A: ch(3)}
}

func clamp8(v float64) uint8 {
	switch {
	case v >= 255:
		return 255
	case v > 0:
		return uint8(v + 0.5)
	default:
		// Negative and NaN
		return 0
	}
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}

func max3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}

// DrawLine3D draws a depth-tested line between two model-space points.
func (r *Rasterizer) DrawLine3D(a, b math3d.Vec3, u Uniforms, p DrawParams, color Color) {
	r.drawLine(a, b, u.MVP(), p, color)
}

// DrawLines draws a batch of segments sharing one set of uniforms.
func (r *Rasterizer) DrawLines(segments [][2]math3d.Vec3, u Uniforms, p DrawParams, color Color) {
	mvp := u.MVP()
	for _, s := range segments {
		r.drawLine(s[0], s[1], mvp, p, color)
	}
}

func (r *Rasterizer) drawLine(a, b math3d.Vec3, mvp math3d.Mat4, p DrawParams, color Color) {
	if r.fb == nil {
		return
	}
	clipA := mvp.MulVec4(math3d.V4FromV3(a, 1))
	clipB := mvp.MulVec4(math3d.V4FromV3(b, 1))

	// Clip against the near plane
	da := clipA.Z + clipA.W - nearW
	db := clipB.Z + clipB.W - nearW
	if da < 0 && db < 0 {
		return
	}
	if da < 0 {
		clipA = clipA.Lerp(clipB, da/(da-db))
	} else if db < 0 {
		clipB = clipB.Lerp(clipA, db/(db-da))
	}

	sa := r.toScreen(clipVertex{pos: clipA})
	sb := r.toScreen(clipVertex{pos: clipB})

	x0, y0 := int(math.Floor(sa.X)), int(math.Floor(sa.Y))
	x1, y1 := int(math.Floor(sb.X)), int(math.Floor(sb.Y))

	// Bresenham with depth interpolated along the major axis
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	steps := max(dx, -dy)
	if steps > 4*(r.Width()+r.Height()) {
		return // Degenerate projection, nothing sensible to draw
	}
	err := dx + dy

	for i := 0; ; i++ {
		t := 0.0
		if steps > 0 {
			t = float64(i) / float64(steps)
		}
		r.plot(x0, y0, sa.Z+(sb.Z-sa.Z)*t, p, color)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func (r *Rasterizer) plot(x, y int, z float64, p DrawParams, color Color) {
	if x < 0 || x >= r.Width() || y < 0 || y >= r.Height() || z < -1 || z > 1 {
		return
	}
	idx := y*r.Width() + x
	if p.Depth == DepthLess && z >= r.zbuffer[idx] {
		return
	}
	if p.DepthWrite {
		r.zbuffer[idx] = z
	}
	if p.Blend {
		r.fb.BlendPixel(x, y, color)
	} else {
		r.fb.SetPixel(x, y, color)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// MeshRenderer is imported from models to avoid circular deps.
// This interface allows drawing meshes without importing the models package.
type MeshRenderer interface {
	VertexCount() int
	TriangleCount() int
	GetVertex(i int) (pos, normal math3d.Vec3, uv math3d.Vec2)
	GetFace(i int) [3]int
}

// BoundedMeshRenderer extends MeshRenderer with bounding box support for frustum culling.
type BoundedMeshRenderer interface {
	MeshRenderer
	GetBounds() (min, max math3d.Vec3)
}

// tryFrustumCull attempts to cull a mesh using its bounds if available.
// Returns true if the mesh should be culled (not visible).
func (r *Rasterizer) tryFrustumCull(mesh MeshRenderer, u Uniforms) bool {
	bounded, ok := mesh.(BoundedMeshRenderer)
	if !ok {
		return false
	}

	r.CullingStats.MeshesTested++

	minBounds, maxBounds := bounded.GetBounds()
	world := AABB{Min: minBounds, Max: maxBounds}.Transform(u.Model)
	if !NewFrustumFromMatrix(u.ViewProjection()).IntersectAABB(world) {
		r.CullingStats.MeshesCulled++
		return true
	}

	r.CullingStats.MeshesDrawn++
	return false
}

// DrawMeshGouraud renders a mesh with Gouraud shading (per-vertex lighting).
// lightDir is in world space. Automatically performs frustum culling if the
// mesh provides bounds. Returns false if the mesh was culled.
func (r *Rasterizer) DrawMeshGouraud(mesh MeshRenderer, u Uniforms, color Color, lightDir math3d.Vec3, p DrawParams) bool {
	if r.tryFrustumCull(mesh, u) {
		return false
	}

	normalMat := u.Model.NormalMatrix()
	normLight := lightDir.Normalize()

	lit := func(n math3d.Vec3) Color {
		wn := normalMat.MulVec3Dir(n).Normalize()
		intensity := math.Max(0, wn.Dot(normLight))
		intensity = 0.3 + 0.7*intensity // Ambient + diffuse
		return MultiplyColor(color, intensity)
	}

	tris := make([]Triangle, 0, mesh.TriangleCount())
	for i := range mesh.TriangleCount() {
		face := mesh.GetFace(i)
		var tri Triangle
		for k := range 3 {
			pos, n, uv := mesh.GetVertex(face[k])
			tri.V[k] = Vertex{Position: pos, Normal: n, UV: uv, Color: lit(n)}
		}
		tris = append(tris, tri)
	}
	r.DrawTriangles(tris, u, p, VertexColorShader)
	return true
}

// DrawMeshWireframe renders the edges of every mesh triangle. It returns
// false when the mesh was frustum culled.
func (r *Rasterizer) DrawMeshWireframe(mesh MeshRenderer, u Uniforms, color Color) bool {
	if r.tryFrustumCull(mesh, u) {
		return false
	}

	mvp := u.MVP()
	for i := range mesh.TriangleCount() {
		face := mesh.GetFace(i)
		p0, _, _ := mesh.GetVertex(face[0])
		p1, _, _ := mesh.GetVertex(face[1])
		p2, _, _ := mesh.GetVertex(face[2])

		r.drawLine(p0, p1, mvp, Lines, color)
		r.drawLine(p1, p2, mvp, Lines, color)
		r.drawLine(p2, p0, mvp, Lines, color)
	}
	return true
}
