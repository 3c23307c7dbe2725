package render

import (
	"math"
	"testing"

	"github.com/taigrr/mandelwow/pkg/math3d"
)

// mockMesh implements BoundedMeshRenderer for testing.
type mockMesh struct {
	vertices []struct {
		pos    math3d.Vec3
		normal math3d.Vec3
		uv     math3d.Vec2
	}
	faces [][3]int
}

func (m *mockMesh) VertexCount() int     { return len(m.vertices) }
func (m *mockMesh) TriangleCount() int   { return len(m.faces) }
func (m *mockMesh) GetFace(i int) [3]int { return m.faces[i] }
func (m *mockMesh) GetVertex(i int) (pos, normal math3d.Vec3, uv math3d.Vec2) {
	v := m.vertices[i]
	return v.pos, v.normal, v.uv
}

func (m *mockMesh) GetBounds() (lo, hi math3d.Vec3) {
	lo, hi = m.vertices[0].pos, m.vertices[0].pos
	for _, v := range m.vertices[1:] {
		lo, hi = lo.Min(v.pos), hi.Max(v.pos)
	}
	return lo, hi
}

// facingTriangle is a triangle at depth z facing +Z (towards the default
// camera), wound counter-clockwise.
func facingTriangle(z float64) *mockMesh {
	m := &mockMesh{faces: [][3]int{{0, 1, 2}}}
	for _, p := range []math3d.Vec3{math3d.V3(-1, -1, z), math3d.V3(1, -1, z), math3d.V3(0, 1, z)} {
		m.vertices = append(m.vertices, struct {
			pos    math3d.Vec3
			normal math3d.Vec3
			uv     math3d.Vec2
		}{pos: p, normal: math3d.V3(0, 0, 1)})
	}
	return m
}

// createTestRasterizer creates a square rasterizer and a camera at the
// origin looking down -Z.
func createTestRasterizer(size int) (*Rasterizer, *Framebuffer, *Camera) {
	fb := NewFramebuffer(size, size)
	fb.Clear(ColorBlack)
	camera := NewCamera()
	camera.SetAspectRatio(1)
	return NewRasterizer(fb), fb, camera
}

// quad returns two counter-clockwise triangles spanning [-h, h] in x/y at
// depth z, all vertices colored c.
func quad(z, h float64, c Color) []Triangle {
	v := func(x, y float64) Vertex {
		return Vertex{Position: math3d.V3(x, y, z), Color: c, UV: math3d.V2((x/h+1)/2, (y/h+1)/2)}
	}
	return []Triangle{
		{V: [3]Vertex{v(-h, -h), v(h, -h), v(h, h)}},
		{V: [3]Vertex{v(-h, -h), v(h, h), v(-h, h)}},
	}
}

func countNonBlack(fb *Framebuffer) int {
	n := 0
	for _, p := range fb.Pixels {
		if p.R != 0 || p.G != 0 || p.B != 0 {
			n++
		}
	}
	return n
}

func TestBarycentric(t *testing.T) {
	tests := []struct {
		name     string
		px, py   float64
		expected math3d.Vec3
	}{
		{"vertex 0", 0, 0, math3d.V3(1, 0, 0)},
		{"vertex 1", 1, 0, math3d.V3(0, 1, 0)},
		{"vertex 2", 0, 1, math3d.V3(0, 0, 1)},
		{"centroid", 1.0 / 3, 1.0 / 3, math3d.V3(1.0/3, 1.0/3, 1.0/3)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Triangle: (0,0), (1,0), (0,1)
			bc := barycentric(0, 0, 1, 0, 0, 1, tc.px, tc.py)

			if math.Abs(bc.X-tc.expected.X) > 0.001 ||
				math.Abs(bc.Y-tc.expected.Y) > 0.001 ||
				math.Abs(bc.Z-tc.expected.Z) > 0.001 {
				t.Errorf("barycentric(%v, %v) = %v, want %v", tc.px, tc.py, bc, tc.expected)
			}
		})
	}

	t.Run("outside triangle", func(t *testing.T) {
		bc := barycentric(0, 0, 1, 0, 0, 1, -1, -1)
		if bc.X >= 0 && bc.Y >= 0 && bc.Z >= 0 {
			t.Error("point outside triangle should have negative barycentric coordinate")
		}
	})
}

func TestWeightColor(t *testing.T) {
	red := [4]float64{255, 0, 0, 255}
	green := [4]float64{0, 255, 0, 255}
	blue := [4]float64{0, 0, 255, 255}

	tests := []struct {
		name       string
		w0, w1, w2 float64
		expected   Color
	}{
		{"full red", 1, 0, 0, RGB(255, 0, 0)},
		{"full blue", 0, 0, 1, RGB(0, 0, 255)},
		{"equal mix", 1.0 / 3, 1.0 / 3, 1.0 / 3, RGB(85, 85, 85)},
		{"half red half green", 0.5, 0.5, 0, RGB(128, 128, 0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := weightColor(red, green, blue, tc.w0, tc.w1, tc.w2)
			if got != tc.expected {
				t.Errorf("weightColor(%v, %v, %v) = %v, want %v", tc.w0, tc.w1, tc.w2, got, tc.expected)
			}
		})
	}

	if got := clamp8(math.NaN()); got != 0 {
		t.Errorf("clamp8(NaN) = %d, want 0", got)
	}
}

func TestDrawTrianglesCoversQuad(t *testing.T) {
	r, fb, cam := createTestRasterizer(64)
	u := cam.Uniforms(math3d.Identity())

	// At z=-2 a 90 degree frustum spans [-2, 2], so [-1, 1] is the middle half
	r.DrawTriangles(quad(-2, 1, ColorWhite), u, Opaque, VertexColorShader)

	if got := fb.GetPixel(32, 32); got != ColorWhite {
		t.Errorf("center pixel = %v, want white", got)
	}
	if got := fb.GetPixel(4, 4); got != ColorBlack {
		t.Errorf("corner pixel = %v, want black", got)
	}
	// 32x32 pixels, give or take the edges
	if n := countNonBlack(fb); n < 30*30 || n > 34*34 {
		t.Errorf("covered %d pixels, want about %d", n, 32*32)
	}
}

func TestDepthLessRejectsFartherFragments(t *testing.T) {
	red, blue := RGB(255, 0, 0), RGB(0, 0, 255)

	tests := []struct {
		name   string
		first  []Triangle
		second []Triangle
	}{
		{"near then far", quad(-2, 1, red), quad(-3, 2, blue)},
		{"far then near", quad(-3, 2, blue), quad(-2, 1, red)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, fb, cam := createTestRasterizer(64)
			u := cam.Uniforms(math3d.Identity())
			r.DrawTriangles(tc.first, u, Opaque, VertexColorShader)
			r.DrawTriangles(tc.second, u, Opaque, VertexColorShader)

			if got := fb.GetPixel(32, 32); got != red {
				t.Errorf("center pixel = %v, want the nearer red", got)
			}
			// Outside the near quad the far one shows
			if got := fb.GetPixel(12, 32); got != blue {
				t.Errorf("side pixel = %v, want blue", got)
			}
		})
	}
}

func TestBlendMixesWithDestination(t *testing.T) {
	r, fb, cam := createTestRasterizer(64)
	fb.Clear(RGB(200, 200, 200))
	u := cam.Uniforms(math3d.Identity())

	r.DrawTriangles(quad(-2, 1, RGBA(0, 0, 0, 128)), u, Translucent, VertexColorShader)

	got := fb.GetPixel(32, 32)
	if got.R < 95 || got.R > 105 {
		t.Errorf("blended pixel = %v, want about half of 200", got)
	}
	if got.A != 255 {
		t.Errorf("blended alpha = %d, want 255", got.A)
	}
}

func TestBackfaceCulling(t *testing.T) {
	flipped := quad(-2, 1, ColorWhite)
	for i := range flipped {
		flipped[i].V[1], flipped[i].V[2] = flipped[i].V[2], flipped[i].V[1]
	}

	r, fb, cam := createTestRasterizer(64)
	u := cam.Uniforms(math3d.Identity())

	r.DrawTriangles(flipped, u, Opaque, VertexColorShader)
	if n := countNonBlack(fb); n != 0 {
		t.Errorf("culled quad drew %d pixels", n)
	}

	// Slices are drawn from both sides
	r.DrawTriangles(flipped, u, Translucent, VertexColorShader)
	if got := fb.GetPixel(32, 32); got != ColorWhite {
		t.Errorf("two-sided draw center = %v, want white", got)
	}
}

func TestNearPlaneClipping(t *testing.T) {
	r, fb, cam := createTestRasterizer(64)
	u := cam.Uniforms(math3d.Identity())

	// One vertex behind the camera
	tri := Triangle{V: [3]Vertex{
		{Position: math3d.V3(-1, -1, -2), Color: ColorWhite},
		{Position: math3d.V3(1, -1, -2), Color: ColorWhite},
		{Position: math3d.V3(0, 1, 1), Color: ColorWhite},
	}}
	r.DrawTriangle(tri, u, Translucent, VertexColorShader)

	if n := countNonBlack(fb); n == 0 {
		t.Error("clipped triangle drew nothing")
	}
	for y := range fb.Height {
		for x := range fb.Width {
			if d := r.Depth(x, y); d != math.MaxFloat64 && (d < -1 || d > 1 || math.IsNaN(d)) {
				t.Fatalf("depth at (%d, %d) = %v outside [-1, 1]", x, y, d)
			}
		}
	}

	// Entirely behind the camera
	r.ClearDepth()
	fb.Clear(ColorBlack)
	r.DrawTriangles(quad(3, 1, ColorWhite), u, Translucent, VertexColorShader)
	if n := countNonBlack(fb); n != 0 {
		t.Errorf("triangle behind camera drew %d pixels", n)
	}
}

func TestFragmentShaderDiscard(t *testing.T) {
	r, fb, cam := createTestRasterizer(32)
	u := cam.Uniforms(math3d.Identity())

	discard := func(*Fragment) (Color, bool) { return ColorWhite, false }
	r.DrawTriangles(quad(-2, 1, ColorWhite), u, Opaque, discard)

	if n := countNonBlack(fb); n != 0 {
		t.Errorf("discarding shader drew %d pixels", n)
	}
	if d := r.Depth(16, 16); d != math.MaxFloat64 {
		t.Errorf("discarded fragment wrote depth %v", d)
	}
}

func TestFragmentAttributesArePerspectiveCorrect(t *testing.T) {
	r, _, cam := createTestRasterizer(64)
	u := cam.Uniforms(math3d.Identity())

	// A floor strip receding from z=-1 to z=-9, attribute X = world z
	v := func(x, z float64) Vertex {
		return Vertex{Position: math3d.V3(x, -1, z), Attr: math3d.V4(z, 0, 0, 0)}
	}
	tris := []Triangle{
		{V: [3]Vertex{v(-1, -1), v(1, -1), v(1, -9)}},
		{V: [3]Vertex{v(-1, -1), v(1, -9), v(-1, -9)}},
	}

	var got []Fragment
	record := func(f *Fragment) (Color, bool) {
		got = append(got, *f)
		return ColorWhite, true
	}
	r.DrawTriangles(tris, u, Translucent, record)

	if len(got) == 0 {
		t.Fatal("no fragments")
	}
	// y = -1 projects to screen row 32 + 32/|z|, so the attribute must
	// satisfy z = -32 / (row + 0.5 - 32)
	for _, f := range got {
		want := -32 / (float64(f.Y) + 0.5 - 32)
		if math.Abs(f.Attr.X-want) > 0.05*math.Abs(want) {
			t.Fatalf("fragment row %d: attr %v, want about %v", f.Y, f.Attr.X, want)
		}
	}
}

func TestDrawLine3DDepthTested(t *testing.T) {
	r, fb, cam := createTestRasterizer(64)
	u := cam.Uniforms(math3d.Identity())
	red := RGB(255, 0, 0)

	r.DrawTriangles(quad(-2, 1, red), u, Opaque, VertexColorShader)
	r.DrawLine3D(math3d.V3(-2.7, 0, -3), math3d.V3(2.7, 0, -3), u, Lines, ColorWhite)

	if got := fb.GetPixel(32, 32); got != red {
		t.Errorf("line behind quad overwrote center: %v", got)
	}
	if got := fb.GetPixel(8, 32); got != ColorWhite {
		t.Errorf("visible line pixel = %v, want white", got)
	}

	// A line straddling the camera is clipped, not dropped
	fb.Clear(ColorBlack)
	r.ClearDepth()
	r.DrawLine3D(math3d.V3(0.5, 0, 5), math3d.V3(0.5, 0, -5), u, Lines, ColorWhite)
	if n := countNonBlack(fb); n == 0 {
		t.Error("clipped line drew nothing")
	}
}

func TestWireframeDrawEdges(t *testing.T) {
	r, fb, cam := createTestRasterizer(64)
	w := NewWireframe(r)
	box := AABB{Min: math3d.V3(-1, -1, -3), Max: math3d.V3(1, 1, -2)}
	corners := box.Corners()
	edges := [][2]int{
		{0, 1}, {1, 2}, {2, 3}, {3, 0},
		{4, 5}, {5, 6}, {6, 7}, {7, 4},
		{0, 4}, {1, 5}, {2, 6}, {3, 7},
	}

	w.DrawEdges(corners[:], edges, cam.Uniforms(math3d.Identity()), ColorWhite)

	if n := countNonBlack(fb); n == 0 {
		t.Fatal("box drew nothing")
	}
	if got := fb.GetPixel(32, 32); got != ColorBlack {
		t.Errorf("box interior = %v, want black", got)
	}
	// The near face spans rows and columns 16..48
	if got := fb.GetPixel(32, 16); got != ColorWhite {
		t.Errorf("top edge pixel = %v, want white", got)
	}
}

func TestDrawMeshGouraud(t *testing.T) {
	tests := []struct {
		name     string
		lightDir math3d.Vec3
		want     uint8
	}{
		{"lit", math3d.V3(0, 0, 1), 255},
		{"ambient only", math3d.V3(0, 0, -1), 76},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, fb, cam := createTestRasterizer(64)
			drawn := r.DrawMeshGouraud(facingTriangle(-2), cam.Uniforms(math3d.Identity()), ColorWhite, tc.lightDir, Opaque)
			if !drawn {
				t.Fatal("visible mesh was culled")
			}
			if got := fb.GetPixel(32, 32).R; got != tc.want {
				t.Errorf("center red = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestDrawMeshGouraudFrustumCulled(t *testing.T) {
	r, fb, cam := createTestRasterizer(32)
	r.ResetCullingStats()

	drawn := r.DrawMeshGouraud(facingTriangle(5), cam.Uniforms(math3d.Identity()), ColorWhite, math3d.V3(0, 0, 1), Opaque)
	if drawn {
		t.Error("mesh behind the camera was drawn")
	}
	if r.CullingStats.MeshesCulled != 1 || r.CullingStats.MeshesTested != 1 {
		t.Errorf("stats = %+v, want one tested and culled", r.CullingStats)
	}
	if n := countNonBlack(fb); n != 0 {
		t.Errorf("culled mesh drew %d pixels", n)
	}
}

func TestTextureShader(t *testing.T) {
	tex := NewTexture(2, 1)
	tex.SetPixel(0, 0, RGBA(0, 0, 0, 0))
	tex.SetPixel(1, 0, ColorWhite)
	shade := TextureShader(tex)

	if _, keep := shade(&Fragment{UV: math3d.V2(0.25, 0.5), Color: ColorWhite}); keep {
		t.Error("transparent texel was kept")
	}
	got, keep := shade(&Fragment{UV: math3d.V2(0.75, 0.5), Color: ColorC64LightBlue})
	if !keep || got != ColorC64LightBlue {
		t.Errorf("opaque texel = %v %v, want %v", got, keep, ColorC64LightBlue)
	}
}

func TestTextureBilinear(t *testing.T) {
	tex := NewTexture(2, 1)
	tex.WrapU, tex.WrapV = WrapClamp, WrapClamp
	tex.SetPixel(0, 0, ColorBlack)
	tex.SetPixel(1, 0, ColorWhite)

	if got := tex.Sample(0.5, 0.5); got != ColorWhite {
		t.Errorf("nearest sample = %v, want white", got)
	}
	tex.FilterMode = FilterBilinear
	if got := tex.Sample(0.5, 0.5); got.R != 127 || got.A != 255 {
		t.Errorf("bilinear midpoint = %v, want half grey", got)
	}
	if got := tex.Sample(0, 0.5); got != ColorBlack {
		t.Errorf("bilinear clamped edge = %v, want black", got)
	}
}

func TestDrawMeshWireframe(t *testing.T) {
	r, fb, cam := createTestRasterizer(64)
	if !r.DrawMeshWireframe(facingTriangle(-2), cam.Uniforms(math3d.Identity()), ColorWhite) {
		t.Fatal("visible mesh was culled")
	}
	if n := countNonBlack(fb); n == 0 {
		t.Fatal("wireframe drew nothing")
	}
	if got := fb.GetPixel(32, 32); got != ColorBlack {
		t.Errorf("triangle interior = %v, want black", got)
	}

	r, fb, cam = createTestRasterizer(32)
	if r.DrawMeshWireframe(facingTriangle(5), cam.Uniforms(math3d.Identity()), ColorWhite) {
		t.Error("mesh behind the camera was drawn")
	}
	if n := countNonBlack(fb); n != 0 {
		t.Errorf("culled mesh drew %d pixels", n)
	}
}

func TestRasterizerClearDepth(t *testing.T) {
	r, _, _ := createTestRasterizer(10)
	for i := range r.zbuffer {
		r.zbuffer[i] = 0.5
	}
	r.ClearDepth()
	for i, d := range r.zbuffer {
		if d != math.MaxFloat64 {
			t.Fatalf("zbuffer[%d] = %v after clear", i, d)
		}
	}
	if d := r.Depth(-1, 3); d != math.MaxFloat64 {
		t.Errorf("out of bounds depth = %v", d)
	}
}

func TestRasterizerFollowsFramebufferResize(t *testing.T) {
	r, fb, cam := createTestRasterizer(16)
	fb.Resize(40, 20)
	r.Resize()
	if len(r.zbuffer) != 40*20 {
		t.Fatalf("zbuffer len = %d, want %d", len(r.zbuffer), 40*20)
	}
	cam.SetAspectRatio(2)
	r.DrawTriangles(quad(-2, 1, ColorWhite), cam.Uniforms(math3d.Identity()), Opaque, VertexColorShader)
	if got := fb.GetPixel(20, 10); got != ColorWhite {
		t.Errorf("center pixel after resize = %v, want white", got)
	}
}

func BenchmarkDrawTranslucentQuad(b *testing.B) {
	r, fb, cam := createTestRasterizer(160)
	u := cam.Uniforms(math3d.Identity())
	tris := quad(-2, 1.5, RGBA(200, 100, 200, 100))
	for b.Loop() {
		fb.Clear(ColorBlack)
		r.ClearDepth()
		r.DrawTriangles(tris, u, Translucent, VertexColorShader)
	}
}
