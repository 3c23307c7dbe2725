package render

import (
	"math"
	"testing"

	"github.com/taigrr/mandelwow/pkg/input"
	"github.com/taigrr/mandelwow/pkg/math3d"
)

func hasNaN(m math3d.Mat4) bool {
	for _, v := range m {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func TestCameraMatricesAreStable(t *testing.T) {
	cam := NewCamera()
	cam.SetPosition(math3d.V3(0.3, -0.2, 1))
	cam.SetDirection(math3d.V3(0.1, 0.2, -1))

	v1, p1, vp1 := cam.ViewMatrix(), cam.ProjectionMatrix(), cam.ViewProjectionMatrix()
	v2, p2, vp2 := cam.ViewMatrix(), cam.ProjectionMatrix(), cam.ViewProjectionMatrix()
	if v1 != v2 || p1 != p2 || vp1 != vp2 {
		t.Fatal("matrices changed between reads without an update")
	}

	// Input only records intents
	cam.ProcessInput(input.KeyEvent{Action: input.ActionMoveForward, Pressed: true})
	cam.ProcessInput(input.MouseMoveEvent{X: 10, Y: 10})
	cam.ProcessInput(input.MouseMoveEvent{X: 50, Y: 20})
	if cam.ViewMatrix() != v1 {
		t.Error("ProcessInput changed the view matrix")
	}

	cam.Update()
	if cam.ViewMatrix() == v1 {
		t.Error("Update with held intents left the view unchanged")
	}
	if cam.ViewProjectionMatrix() != cam.ProjectionMatrix().Mul(cam.ViewMatrix()) {
		t.Error("view-projection is not projection * view")
	}
}

func TestCameraMovement(t *testing.T) {
	tests := []struct {
		name    string
		actions []input.Action
		want    math3d.Vec3
	}{
		{"walk forward", []input.Action{input.ActionMoveForward}, math3d.V3(0, 0, -0.01)},
		{"walk backward", []input.Action{input.ActionMoveBackward}, math3d.V3(0, 0, 0.01)},
		{"strafe right", []input.Action{input.ActionMoveRight}, math3d.V3(0.02, 0, 0)},
		{"strafe left", []input.Action{input.ActionMoveLeft}, math3d.V3(-0.02, 0, 0)},
		{"strafe up", []input.Action{input.ActionMoveUp}, math3d.V3(0, 0.02, 0)},
		{"forward and backward cancel", []input.Action{input.ActionMoveForward, input.ActionMoveBackward}, math3d.Zero3()},
		{"left and right cancel", []input.Action{input.ActionMoveLeft, input.ActionMoveRight}, math3d.Zero3()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cam := NewCamera()
			for _, a := range tc.actions {
				cam.ProcessInput(input.KeyEvent{Action: a, Pressed: true})
			}
			cam.Update()
			if !cam.Position().ApproxEqual(tc.want, 1e-12) {
				t.Errorf("position = %v, want %v", cam.Position(), tc.want)
			}
			if cam.Direction() != math3d.Forward() {
				t.Errorf("direction changed to %v", cam.Direction())
			}
		})
	}
}

func TestCameraReleaseClearsIntent(t *testing.T) {
	cam := NewCamera()
	cam.ProcessInput(input.KeyEvent{Action: input.ActionMoveForward, Pressed: true})
	cam.Update()
	cam.ProcessInput(input.KeyEvent{Action: input.ActionMoveForward, Pressed: false})
	cam.Update()
	cam.Update()
	if math.Abs(cam.Position().Z+0.01) > 1e-12 {
		t.Errorf("position = %v, want one step forward", cam.Position())
	}
	if cam.ProcessInput(input.KeyEvent{Action: input.ActionPause, Pressed: true}) {
		t.Error("pause is not a camera event")
	}
}

func TestCameraMouseTurns(t *testing.T) {
	cam := NewCamera()

	// The first position only seeds the reference
	cam.ProcessInput(input.MouseMoveEvent{X: 100, Y: 100})
	cam.Update()
	if cam.Direction() != math3d.Forward() {
		t.Fatalf("first mouse event turned the camera to %v", cam.Direction())
	}

	cam.ProcessInput(input.MouseMoveEvent{X: 110, Y: 100})
	cam.Update()
	d := cam.Direction()
	want := math3d.V3(math.Sin(0.01), 0, -math.Cos(0.01))
	if !d.ApproxEqual(want, 1e-12) {
		t.Errorf("direction after moving right = %v, want %v", d, want)
	}

	// Deltas are consumed by Update
	cam.Update()
	if cam.Direction() != d {
		t.Error("pending deltas were applied twice")
	}

	// Moving the mouse down pitches down
	cam.ProcessInput(input.MouseMoveEvent{X: 110, Y: 130})
	cam.Update()
	if cam.Forward().Y >= 0 {
		t.Errorf("forward after moving down = %v, want negative Y", cam.Forward())
	}
}

func TestCameraTurnKeys(t *testing.T) {
	tests := []struct {
		name   string
		action input.Action
		check  func(f math3d.Vec3) bool
	}{
		{"turn left", input.ActionTurnLeft, func(f math3d.Vec3) bool { return f.X < 0 && f.Y == 0 }},
		{"turn right", input.ActionTurnRight, func(f math3d.Vec3) bool { return f.X > 0 && f.Y == 0 }},
		{"turn up", input.ActionTurnUp, func(f math3d.Vec3) bool { return f.Y > 0 && f.X == 0 }},
		{"turn down", input.ActionTurnDown, func(f math3d.Vec3) bool { return f.Y < 0 && f.X == 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cam := NewCamera()
			cam.SetIntent(tc.action, true)
			cam.Update()
			if !tc.check(cam.Forward()) {
				t.Errorf("forward = %v", cam.Forward())
			}
			if cam.Position() != math3d.Zero3() {
				t.Errorf("turning moved the camera to %v", cam.Position())
			}
		})
	}

	cam := NewCamera()
	cam.SetIntent(input.ActionTurnLeft, true)
	cam.SetIntent(input.ActionTurnRight, true)
	cam.Update()
	if cam.Direction() != math3d.Forward() {
		t.Errorf("opposing turns moved direction to %v", cam.Direction())
	}
}

func TestCameraBasis(t *testing.T) {
	cam := NewCamera()
	cam.SetDirection(math3d.V3(0, 0, -5))
	f, s, u := cam.Basis()
	if f != math3d.V3(0, 0, -1) {
		t.Errorf("forward = %v, want normalized -Z", f)
	}
	if !s.ApproxEqual(math3d.V3(1, 0, 0), 1e-12) || !u.ApproxEqual(math3d.V3(0, 1, 0), 1e-12) {
		t.Errorf("right = %v, up = %v", s, u)
	}
}

func TestCameraStepIgnoresDirectionLength(t *testing.T) {
	tests := []struct {
		name   string
		action input.Action
		want   math3d.Vec3
	}{
		{"walk", input.ActionMoveForward, math3d.V3(0.6, 0, -0.8).Scale(DefaultWalkSpeed)},
		{"strafe", input.ActionMoveRight, math3d.V3(0.8, 0, 0.6).Scale(DefaultStrafeSpeed)},
		{"rise", input.ActionMoveUp, math3d.V3(0, DefaultStrafeSpeed, 0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cam := NewCamera()
			cam.SetDirection(math3d.V3(3, 0, -4))
			cam.SetIntent(tc.action, true)
			cam.Update()
			if !cam.Position().ApproxEqual(tc.want, 1e-12) {
				t.Errorf("position = %v, want %v", cam.Position(), tc.want)
			}
		})
	}

	cam := NewCamera()
	cam.SetDirection(math3d.V3(0, 0, -40))
	cam.SetIntent(input.ActionTurnLeft, true)
	cam.Update()
	if l := cam.Direction().Len(); math.Abs(l-1) > 1e-12 {
		t.Errorf("turned direction length = %v, want 1", l)
	}
}

func TestCameraDegenerateDirection(t *testing.T) {
	cam := NewCamera()
	cam.SetDirection(math3d.Up())
	cam.SetIntent(input.ActionMoveRight, true)
	cam.Update()

	p := cam.Position()
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) {
		t.Errorf("position became NaN: %v", p)
	}
	if hasNaN(cam.ViewMatrix()) {
		t.Error("view matrix has NaN when looking straight up")
	}
}

func TestCameraAspectRatio(t *testing.T) {
	cam := NewCamera()
	p := cam.ProjectionMatrix()
	if p[0] != p[5]/(1280.0/720.0) {
		t.Errorf("default aspect not 16:9: %v vs %v", p[0], p[5])
	}

	cam.SetAspectRatio(0)
	cam.SetAspectRatio(math.NaN())
	if cam.AspectRatio() != 1280.0/720.0 {
		t.Errorf("invalid aspect accepted: %v", cam.AspectRatio())
	}

	cam.SetAspectRatio(2)
	if got := cam.ProjectionMatrix(); got[0] != got[5]/2 {
		t.Errorf("projection not rebuilt for aspect 2")
	}
}

func BenchmarkCameraUpdate(b *testing.B) {
	cam := NewCamera()
	cam.SetIntent(input.ActionMoveForward, true)
	cam.SetIntent(input.ActionTurnLeft, true)
	for b.Loop() {
		cam.Update()
		_ = cam.ViewProjectionMatrix()
	}
}
