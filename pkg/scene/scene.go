// Package scene draws one Mandelwow frame: the wobbling slab of fractal
// slices with its optional bounding box, the bobbing sea of cubes and the
// title billboard, all scaled to the beat.
package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/image/font"

	"github.com/taigrr/mandelwow/pkg/driver"
	"github.com/taigrr/mandelwow/pkg/fractal"
	"github.com/taigrr/mandelwow/pkg/input"
	"github.com/taigrr/mandelwow/pkg/math3d"
	"github.com/taigrr/mandelwow/pkg/models"
	"github.com/taigrr/mandelwow/pkg/render"
	"github.com/taigrr/mandelwow/pkg/screenshot"
	"github.com/taigrr/mandelwow/pkg/text"
	"github.com/taigrr/mandelwow/pkg/timer"
)

// DefaultTitle is the billboard text.
const DefaultTitle = "MANDELWOW"

// ErrNoFrame is returned by Screenshot before the first frame is drawn.
var ErrNoFrame = errors.New("no frame drawn yet")

// TriggerSource reports beat onsets against its own clock, in seconds.
// *audio.Player implements it.
type TriggerSource interface {
	LatestTrigger() (float64, bool)
	Now() float64
}

// Pauser is an audio output that follows the pause toggle.
type Pauser interface {
	SetPaused(paused bool)
}

// Options configure a Scene. Zero fields take defaults.
type Options struct {
	Bounds    fractal.Cube
	Slices    int
	Evaluator fractal.Evaluator
	Wow       fractal.WowRange

	Timer  *timer.Timer
	Camera *render.Camera
	Pulse  Pulse
	// Trigger supplies beat onsets; nil pins the scale at 1.
	Trigger TriggerSource
	Pauser  Pauser

	BoundingBox bool
	Sea         bool
	SeaMesh     *models.Mesh
	// SeaWireframe draws the sea as edges only.
	SeaWireframe bool
	Title        string
	Face         font.Face
	// SmoothTitle samples the billboard texture bilinearly.
	SmoothTitle bool

	Screenshot screenshot.Options
	Logger     *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Bounds == (fractal.Cube{}) {
		o.Bounds = fractal.MandelwowBounds()
	}
	if o.Slices <= 0 {
		o.Slices = fractal.DefaultSliceCount
	}
	if o.Evaluator.MaxIter <= 0 {
		o.Evaluator.MaxIter = fractal.DefaultMaxIter
	}
	if o.Wow == (fractal.WowRange{}) {
		o.Wow = fractal.DefaultWowRange()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Timer == nil {
		o.Timer = timer.New(timer.WithLogger(o.Logger))
	}
	if o.Camera == nil {
		o.Camera = render.NewCamera()
	}
	if o.Pulse == nil {
		o.Pulse = LorentzPulse{K: DefaultSharpness}
	}
	if o.Title == "" {
		o.Title = DefaultTitle
	}
	return o
}

// Scene is the demo state. It is owned by the frame loop and implements
// driver.App.
type Scene struct {
	opts   Options
	bounds fractal.Cube
	timer  *timer.Timer
	camera *render.Camera
	pulse  Pulse
	logger *slog.Logger

	slab      *Slab
	sea       *Sea
	billboard *text.Billboard

	r     *render.Rasterizer
	wire  *render.Wireframe
	fbW   int
	fbH   int
	frame *render.Framebuffer

	showBox bool
	showSea bool
	hit     float64
}

// New creates a scene. Bounds that break min <= max are drawn as given,
// inverted, with a warning.
func New(opts Options) *Scene {
	opts = opts.withDefaults()
	if !opts.Bounds.Valid() {
		opts.Logger.Warn("bounds minimum exceeds maximum, drawing inverted", "bounds", fmt.Sprintf("%+v", opts.Bounds))
	}
	r := render.NewRasterizer(nil)
	s := &Scene{
		opts:      opts,
		bounds:    opts.Bounds,
		timer:     opts.Timer,
		camera:    opts.Camera,
		pulse:     opts.Pulse,
		logger:    opts.Logger,
		slab:      NewSlab(fractal.NewSlicer(opts.Bounds, opts.Slices), opts.Evaluator),
		sea:       NewSea(opts.SeaMesh),
		billboard: text.NewBillboard(opts.Title, opts.Face, render.ColorC64LightBlue, render.ColorC64Blue),
		r:         r,
		wire:      render.NewWireframe(r),
		showBox:   opts.BoundingBox,
		showSea:   opts.Sea,
		hit:       1,
	}
	s.sea.Wireframe = opts.SeaWireframe
	if opts.SmoothTitle {
		s.billboard.SetFilter(render.FilterBilinear)
	}
	return s
}

// Timer returns the scene clock.
func (s *Scene) Timer() *timer.Timer { return s.timer }

// Camera returns the scene camera.
func (s *Scene) Camera() *render.Camera { return s.camera }

// BoundingBox reports whether the bounding box is drawn.
func (s *Scene) BoundingBox() bool { return s.showBox }

// Hit returns the scale applied in the last frame.
func (s *Scene) Hit() float64 { return s.hit }

// ModelTransform returns the fractal's model matrix at time t with the
// beat scale hit.
func ModelTransform(t, hit float64) math3d.Mat4 {
	return math3d.Translate(math3d.V3(0, 0, -2)).
		Mul(math3d.RotateX(0.3 * math.Sin(0.5*t))).
		Mul(math3d.RotateY(0.4 * math.Sin(0.3*t))).
		Mul(math3d.RotateZ(math.Sin(0.7 * t))).
		Mul(math3d.ScaleUniform(hit))
}

var titleTransform = math3d.Translate(math3d.V3(0, 1.25, -3)).Mul(math3d.ScaleUniform(0.4))

// Draw renders the current frame into fb.
func (s *Scene) Draw(fb *render.Framebuffer) {
	start := time.Now()
	s.target(fb)

	t := s.timer.T
	s.hit = 1
	if s.opts.Trigger != nil {
		trig, ok := s.opts.Trigger.LatestTrigger()
		s.hit = s.pulse.Hit(trig, ok, s.opts.Trigger.Now())
	}
	s.camera.Update()
	wow := float64(s.opts.Wow.At(t))
	model := ModelTransform(float64(t), s.hit)

	fb.Clear(render.ColorBlack)
	s.r.ClearDepth()
	s.r.ResetCullingStats()

	// The box goes first so the translucent slices blend over the edges
	// behind them.
	u := s.camera.Uniforms(model)
	if s.showBox {
		corners := s.bounds.Corners()
		s.wire.DrawEdges(corners[:], fractal.Edges[:], u, render.ColorWhite)
	}
	if s.showSea {
		s.sea.Draw(s.r, s.camera, float64(t))
	}
	s.billboard.Draw(s.r, s.camera.Uniforms(titleTransform))
	s.slab.Draw(s.r, u, wow)

	s.frame = fb
	s.timer.AddDrawTime(time.Since(start))
}

// target points the rasterizer at fb and follows size changes.
func (s *Scene) target(fb *render.Framebuffer) {
	if s.r.Framebuffer() == fb && s.fbW == fb.Width && s.fbH == fb.Height {
		return
	}
	s.r.SetFramebuffer(fb)
	s.fbW, s.fbH = fb.Width, fb.Height
	if fb.Height > 0 {
		s.camera.SetAspectRatio(float64(fb.Width) / float64(fb.Height))
	}
}

// Advance steps the clock after a frame has been shown.
func (s *Scene) Advance() {
	s.timer.Update()
}

// AddIdleTime feeds the throughput report.
func (s *Scene) AddIdleTime(d time.Duration) {
	s.timer.AddIdleTime(d)
}

// HandleEvent applies one input event. It returns false on quit.
func (s *Scene) HandleEvent(ev input.Event, surface driver.Surface) bool {
	switch ev := ev.(type) {
	case input.ResizeEvent:
		if ev.Height > 0 {
			s.camera.SetAspectRatio(float64(ev.Width) / float64(ev.Height))
		}
		return true
	case input.MouseMoveEvent:
		s.camera.ProcessInput(ev)
		return true
	case input.KeyEvent:
		if s.camera.ProcessInput(ev) || !ev.Pressed {
			return true
		}
		return s.press(ev.Action, surface)
	}
	return true
}

func (s *Scene) press(a input.Action, surface driver.Surface) bool {
	switch a {
	case input.ActionQuit:
		s.logger.Debug("quit requested")
		return false
	case input.ActionPause:
		paused := s.timer.TogglePause()
		if s.opts.Pauser != nil {
			s.opts.Pauser.SetPaused(paused)
		}
		s.logger.Debug("pause", "paused", paused, "t", s.timer.T)
	case input.ActionToggleBoundingBox:
		s.showBox = !s.showBox
	case input.ActionToggleFullscreen:
		if surface != nil {
			surface.ToggleFullscreen()
		}
	case input.ActionScreenshot:
		path, err := s.Screenshot()
		if err != nil {
			s.logger.Warn("screenshot failed", "err", err)
			break
		}
		s.logger.Info("screenshot saved", "path", path)
	case input.ActionNudgeForward:
		s.timer.Nudge(timer.DefaultStep)
	case input.ActionNudgeBackward:
		s.timer.Nudge(-timer.DefaultStep)
	}
	return true
}

// Screenshot saves the last drawn frame and returns the path written.
func (s *Scene) Screenshot() (string, error) {
	if s.frame == nil {
		return "", ErrNoFrame
	}
	return screenshot.Save(s.frame.ToImage(), s.opts.Screenshot)
}
