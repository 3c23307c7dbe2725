package render

import (
	"math"

	"github.com/taigrr/mandelwow/pkg/input"
	"github.com/taigrr/mandelwow/pkg/math3d"
)

// Camera defaults.
const (
	DefaultFOV         = math.Pi / 2
	DefaultNear        = 0.1
	DefaultFar         = 1024
	DefaultWalkSpeed   = 0.01
	DefaultStrafeSpeed = 0.02
	DefaultPanSpeed    = 0.001 // radians per pixel of pending turn

	keyYawStep   = 8 // pixels of turn per frame while a yaw key is held
	keyPitchStep = 2
)

// Camera is a free-fly camera. Input only sets intents and accumulates
// pointer deltas; Update integrates them once per frame. The matrices are
// derived from position, direction and aspect and cached until one of
// those changes, so repeated reads between updates are bit-identical.
type Camera struct {
	position  math3d.Vec3
	direction math3d.Vec3 // renormalized on use, may drift in length

	// Projection parameters
	fov         float64
	aspectRatio float64
	near        float64
	far         float64

	// Per-frame speeds
	WalkSpeed   float64
	StrafeSpeed float64
	PanSpeed    float64

	intents [input.ActionTurnDown + 1]bool

	// Pending rotation in pixels, consumed by Update
	relX, relY float64
	mouseX     int
	mouseY     int
	mouseSeen  bool

	// Cached matrices (computed on demand)
	viewMatrix     math3d.Mat4
	projMatrix     math3d.Mat4
	viewProjMatrix math3d.Mat4
	viewDirty      bool
	projDirty      bool
	viewProjDirty  bool
}

// NewCamera creates a camera at the origin looking down -Z.
func NewCamera() *Camera {
	return &Camera{
		position:    math3d.Zero3(),
		direction:   math3d.Forward(),
		fov:         DefaultFOV,
		aspectRatio: 1280.0 / 720.0,
		near:        DefaultNear,
		far:         DefaultFar,
		WalkSpeed:   DefaultWalkSpeed,
		StrafeSpeed: DefaultStrafeSpeed,
		PanSpeed:    DefaultPanSpeed,
		viewDirty:   true,
		projDirty:   true,
	}
}

// Position returns the camera position.
func (c *Camera) Position() math3d.Vec3 {
	return c.position
}

// Direction returns the stored look direction, which is not necessarily
// unit length.
func (c *Camera) Direction() math3d.Vec3 {
	return c.direction
}

// AspectRatio returns width / height.
func (c *Camera) AspectRatio() float64 {
	return c.aspectRatio
}

// SetPosition sets the camera position.
func (c *Camera) SetPosition(pos math3d.Vec3) {
	c.position = pos
	c.viewDirty = true
}

// SetDirection sets the look direction. It must not be parallel to world
// up; the basis degenerates there.
func (c *Camera) SetDirection(dir math3d.Vec3) {
	c.direction = dir
	c.viewDirty = true
}

// SetAspectRatio sets the aspect ratio.
func (c *Camera) SetAspectRatio(aspect float64) {
	if aspect <= 0 || math.IsNaN(aspect) {
		return
	}
	c.aspectRatio = aspect
	c.projDirty = true
}

// Basis returns the unit forward, right and up vectors of the current
// direction against world up.
func (c *Camera) Basis() (f, s, u math3d.Vec3) {
	f = c.direction.Normalize()
	s = f.Cross(math3d.Up()).Normalize()
	u = s.Cross(f)
	return f, s, u
}

// Forward returns the unit look direction.
func (c *Camera) Forward() math3d.Vec3 {
	f, _, _ := c.Basis()
	return f
}

// Right returns the unit strafe direction.
func (c *Camera) Right() math3d.Vec3 {
	_, s, _ := c.Basis()
	return s
}

// Up returns the camera's unit up vector.
func (c *Camera) Up() math3d.Vec3 {
	_, _, u := c.Basis()
	return u
}

// Intent reports whether the camera intent a is set.
func (c *Camera) Intent(a input.Action) bool {
	if !a.IsCamera() {
		return false
	}
	return c.intents[a]
}

// SetIntent sets or clears a camera intent. Non-camera actions are
// ignored.
func (c *Camera) SetIntent(a input.Action, on bool) {
	if a.IsCamera() {
		c.intents[a] = on
	}
}

// ProcessInput applies one input event to the intents and pending mouse
// deltas. It reports whether the event was a camera event. No matrix is
// touched.
func (c *Camera) ProcessInput(ev input.Event) bool {
	switch ev := ev.(type) {
	case input.KeyEvent:
		if !ev.Action.IsCamera() {
			return false
		}
		c.intents[ev.Action] = ev.Pressed
		return true
	case input.MouseMoveEvent:
		// The first position only seeds the reference point.
		if c.mouseSeen {
			c.relX += float64(ev.X - c.mouseX)
			c.relY += float64(ev.Y - c.mouseY)
		}
		c.mouseX, c.mouseY = ev.X, ev.Y
		c.mouseSeen = true
		return true
	}
	return false
}

// Update integrates the held intents and pending pointer deltas into the
// position and direction. Opposing intents cancel out.
func (c *Camera) Update() {
	f, s, u := c.Basis()

	move := func(a input.Action, v math3d.Vec3, speed float64) {
		if c.intents[a] {
			c.position = c.position.Add(v.Scale(speed))
		}
	}
	move(input.ActionMoveUp, u, c.StrafeSpeed)
	move(input.ActionMoveDown, u, -c.StrafeSpeed)
	move(input.ActionMoveLeft, s, -c.StrafeSpeed)
	move(input.ActionMoveRight, s, c.StrafeSpeed)
	move(input.ActionMoveForward, f, c.WalkSpeed)
	move(input.ActionMoveBackward, f, -c.WalkSpeed)

	if c.intents[input.ActionTurnLeft] {
		c.relX -= keyYawStep
	}
	if c.intents[input.ActionTurnRight] {
		c.relX += keyYawStep
	}
	if c.intents[input.ActionTurnUp] {
		c.relY -= keyPitchStep
	}
	if c.intents[input.ActionTurnDown] {
		c.relY += keyPitchStep
	}

	if c.relX != 0 || c.relY != 0 {
		vx := -c.PanSpeed * c.relX
		vy := -c.PanSpeed * c.relY
		sx, cx := math.Sincos(vx)
		sy, cy := math.Sincos(vy)
		c.direction = math3d.V3(
			f.X*cx+f.Z*sx,
			f.Y*cy-f.Z*sy,
			f.Y*sy-f.X*sx+f.Z*cx*cy,
		)
		c.relX, c.relY = 0, 0
	}

	c.viewDirty = true
}

// ViewMatrix returns the view matrix.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	if c.viewDirty {
		c.viewMatrix = math3d.LookDir(c.position, c.direction, math3d.Up())
		c.viewDirty = false
		c.viewProjDirty = true
	}
	return c.viewMatrix
}

// ProjectionMatrix returns the perspective projection matrix.
func (c *Camera) ProjectionMatrix() math3d.Mat4 {
	if c.projDirty {
		c.projMatrix = math3d.Perspective(c.fov, c.aspectRatio, c.near, c.far)
		c.projDirty = false
		c.viewProjDirty = true
	}
	return c.projMatrix
}

// ViewProjectionMatrix returns projection * view.
func (c *Camera) ViewProjectionMatrix() math3d.Mat4 {
	view := c.ViewMatrix()
	proj := c.ProjectionMatrix()
	if c.viewProjDirty {
		c.viewProjMatrix = proj.Mul(view)
		c.viewProjDirty = false
	}
	return c.viewProjMatrix
}

// Uniforms returns the camera's view and projection with the given model
// transform.
func (c *Camera) Uniforms(model math3d.Mat4) Uniforms {
	return Uniforms{
		Model:      model,
		View:       c.ViewMatrix(),
		Projection: c.ProjectionMatrix(),
	}
}
