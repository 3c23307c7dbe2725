// Package window provides the desktop driver. It lives apart from the
// terminal drivers because ebiten needs a graphics stack to build.
package window

import (
	"context"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/taigrr/mandelwow/pkg/driver"
	"github.com/taigrr/mandelwow/pkg/input"
	"github.com/taigrr/mandelwow/pkg/render"
)

// pixelScale is the initial window size in screen pixels per
// framebuffer pixel.
const pixelScale = 3

func init() {
	driver.Register("window", func(opts driver.Options) driver.Driver { return New(opts) })
}

// Window shows the framebuffer in an ebiten window. Frames are paced by
// ebiten's tick rate and vsync.
type Window struct {
	opts driver.Options
}

// New creates a window driver.
func New(opts driver.Options) *Window {
	return &Window{opts: opts}
}

// Run opens the window and blocks until it closes. It must be called
// from the main goroutine.
func (w *Window) Run(ctx context.Context, app driver.App) error {
	fb := render.NewFramebuffer(w.opts.Width, w.opts.Height)
	g := &game{
		ctx:    ctx,
		keymap: w.opts.Keymap,
		fb:     fb,
	}
	g.d = &driver.Dispatcher{App: app, Surface: g, FB: fb}
	if !g.d.Dispatch(input.ResizeEvent{Width: fb.Width, Height: fb.Height}) {
		return nil
	}

	ebiten.SetWindowTitle(w.opts.Title)
	ebiten.SetWindowSize(fb.Width*pixelScale, fb.Height*pixelScale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetFullscreen(w.opts.Fullscreen)
	ebiten.SetVsyncEnabled(w.opts.VSync)
	ebiten.SetTPS(w.opts.FPS)

	return ebiten.RunGame(g)
}

type game struct {
	ctx    context.Context
	keymap input.Keymap
	d      *driver.Dispatcher
	fb     *render.Framebuffer
	tex    *ebiten.Image

	keys           []ebiten.Key
	mouseX, mouseY int
	mouseSeen      bool
}

func (g *game) ToggleFullscreen() { ebiten.SetFullscreen(!ebiten.IsFullscreen()) }
func (g *game) Fullscreen() bool  { return ebiten.IsFullscreen() }

// Update handles input from the last tick and renders the next frame.
func (g *game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}

	g.keys = inpututil.AppendJustPressedKeys(g.keys[:0])
	for _, k := range g.keys {
		if !g.key(k, true) {
			return ebiten.Termination
		}
	}
	g.keys = inpututil.AppendJustReleasedKeys(g.keys[:0])
	for _, k := range g.keys {
		if !g.key(k, false) {
			return ebiten.Termination
		}
	}

	x, y := ebiten.CursorPosition()
	if !g.mouseSeen || x != g.mouseX || y != g.mouseY {
		g.mouseX, g.mouseY, g.mouseSeen = x, y, true
		if !g.d.Dispatch(input.MouseMoveEvent{X: x, Y: y}) {
			return ebiten.Termination
		}
	}

	g.d.App.Draw(g.fb)
	g.d.App.Advance()
	return nil
}

func (g *game) key(k ebiten.Key, pressed bool) bool {
	a, ok := g.keymap.Lookup(keyName(k))
	if !ok {
		return true
	}
	return g.d.Dispatch(input.KeyEvent{Action: a, Pressed: pressed})
}

// Draw uploads the framebuffer; ebiten scales it to the window.
func (g *game) Draw(screen *ebiten.Image) {
	if g.tex == nil || g.tex.Bounds().Dx() != g.fb.Width || g.tex.Bounds().Dy() != g.fb.Height {
		if g.tex != nil {
			g.tex.Deallocate()
		}
		g.tex = ebiten.NewImage(g.fb.Width, g.fb.Height)
	}
	g.tex.WritePixels(g.fb.ToImage().Pix)
	screen.DrawImage(g.tex, nil)
}

// Layout keeps the logical screen at the framebuffer size.
func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.fb.Width, g.fb.Height
}

// keyName maps an ebiten key to the names used by input.Keymap.
func keyName(k ebiten.Key) string {
	switch k {
	case ebiten.KeyArrowUp:
		return "up"
	case ebiten.KeyArrowDown:
		return "down"
	case ebiten.KeyArrowLeft:
		return "left"
	case ebiten.KeyArrowRight:
		return "right"
	case ebiten.KeyPageUp:
		return "pgup"
	case ebiten.KeyPageDown:
		return "pgdown"
	case ebiten.KeyEscape:
		return "esc"
	}
	return strings.ToLower(k.String())
}
