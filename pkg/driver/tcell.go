package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/taigrr/mandelwow/pkg/input"
	"github.com/taigrr/mandelwow/pkg/render"
)

func init() {
	Register("tcell", func(opts Options) Driver { return NewTcell(opts) })
}

// Tcell draws half-block cells through tcell. tcell never reports key
// releases, so camera keys are released after the hold window.
type Tcell struct {
	opts Options
	fullscreenFlag

	// Screen is the screen to draw on. When nil, Run opens the terminal.
	Screen tcell.Screen
}

// NewTcell creates a tcell driver.
func NewTcell(opts Options) *Tcell {
	return &Tcell{opts: opts.withDefaults()}
}

// Run takes over the terminal until ctx is done or the app stops.
func (t *Tcell) Run(ctx context.Context, app App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := t.Screen
	if s == nil {
		var err error
		if s, err = tcell.NewScreen(); err != nil {
			return fmt.Errorf("create screen: %w", err)
		}
	}
	if err := s.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer s.Fini()
	s.EnableMouse(tcell.MouseMotionEvents)
	s.HideCursor()
	s.Clear()

	width, height := s.Size()
	fb := render.NewFramebuffer(width, height*2)
	d := &Dispatcher{
		App:     app,
		Surface: t,
		FB:      fb,
		Holder:  input.NewHolder(t.opts.HoldWindow),
	}
	if !d.Dispatch(input.ResizeEvent{Width: fb.Width, Height: fb.Height}) {
		return nil
	}

	events := make(chan input.Event, 64)
	go t.poll(ctx, s, events)

	present := func(fb *render.Framebuffer) error {
		drawCells(s, fb)
		s.Show()
		return nil
	}
	return tickerLoop(ctx, d, t.opts.FPS, events, present)
}

// poll reads tcell events until the screen is finalized.
func (t *Tcell) poll(ctx context.Context, s tcell.Screen, out chan<- input.Event) {
	defer close(out)
	for {
		raw := s.PollEvent()
		if raw == nil {
			return
		}
		var ev input.Event
		switch e := raw.(type) {
		case *tcell.EventResize:
			w, h := e.Size()
			s.Sync()
			ev = input.ResizeEvent{Width: w, Height: h * 2}
		case *tcell.EventKey:
			if a, ok := t.opts.Keymap.Lookup(tcellKeyName(e)); ok {
				ev = input.KeyEvent{Action: a, Pressed: true}
			}
		case *tcell.EventMouse:
			x, y := e.Position()
			ev = input.MouseMoveEvent{X: x, Y: y * 2}
		}
		if ev == nil {
			continue
		}
		if !send(ctx, out, ev) {
			return
		}
	}
}

// tcellKeyName normalizes a tcell key to the names used by input.Keymap.
func tcellKeyName(e *tcell.EventKey) string {
	switch e.Key() {
	case tcell.KeyRune:
		return strings.ToLower(string(e.Rune()))
	case tcell.KeyEscape:
		return "esc"
	case tcell.KeyCtrlC:
		return "ctrl+c"
	case tcell.KeyPgUp:
		return "pgup"
	case tcell.KeyPgDn:
		return "pgdown"
	}
	return strings.ToLower(tcell.KeyNames[e.Key()])
}

// drawCells writes the framebuffer as upper half blocks: foreground is
// the top pixel, background the bottom one.
func drawCells(s tcell.Screen, fb *render.Framebuffer) {
	width, height := s.Size()
	for row := 0; row < height && row*2 < fb.Height; row++ {
		for col := 0; col < width && col < fb.Width; col++ {
			style := tcell.StyleDefault.
				Foreground(tcellColor(fb.GetPixel(col, row*2))).
				Background(tcellColor(fb.GetPixel(col, row*2+1)))
			s.SetContent(col, row, '▀', nil, style)
		}
	}
}

func tcellColor(c render.Color) tcell.Color {
	if c.A != 255 {
		c = render.BlendOver(c, render.ColorBlack)
	}
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}
