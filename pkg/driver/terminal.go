package driver

import (
	"context"
	"fmt"
	"os"
	"time"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/mandelwow/pkg/input"
	"github.com/taigrr/mandelwow/pkg/render"
)

func init() {
	Register("terminal", func(opts Options) Driver { return &Terminal{opts: opts} })
}

// Terminal draws half-block cells through ultraviolet. Each cell shows
// two framebuffer pixels stacked vertically.
type Terminal struct {
	opts Options
	fullscreenFlag
}

// Run takes over the terminal until ctx is done or the app stops.
func (t *Terminal) Run(ctx context.Context, app App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	term := uv.DefaultTerminal()
	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	// Any-event mouse tracking, SGR encoding
	fmt.Fprint(os.Stdout, "\x1b[?1003h")
	fmt.Fprint(os.Stdout, "\x1b[?1006h")

	defer func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
		defer done()
		if err := term.Shutdown(shutdownCtx); err != nil {
			t.opts.Logger.Debug("terminal shutdown", "err", err)
		}
	}()

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
	go t.translate(ctx, term.Events(), events)

	present := func(fb *render.Framebuffer) error {
		cols, rows := fb.Width, (fb.Height+1)/2
		if cols != width || rows != height {
			width, height = cols, rows
			term.Erase()
			term.Resize(width, height)
		}
		fb.Draw(term, uv.Rect(0, 0, width, height))
		return term.Display()
	}
	return tickerLoop(ctx, d, t.opts.FPS, events, present)
}

// translate turns terminal events into input events. Sizes and mouse
// rows are converted to framebuffer pixels.
func (t *Terminal) translate(ctx context.Context, in <-chan uv.Event, out chan<- input.Event) {
	defer close(out)
	for {
		var raw uv.Event
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			raw = ev
		}

		var ev input.Event
		switch e := raw.(type) {
		case uv.WindowSizeEvent:
			ev = input.ResizeEvent{Width: e.Width, Height: e.Height * 2}
		case uv.KeyPressEvent:
			if a, ok := t.opts.Keymap.Lookup(uv.Key(e).Keystroke()); ok {
				ev = input.KeyEvent{Action: a, Pressed: true}
			}
		case uv.KeyReleaseEvent:
			if a, ok := t.opts.Keymap.Lookup(uv.Key(e).Keystroke()); ok {
				ev = input.KeyEvent{Action: a, Pressed: false}
			}
		case uv.MouseMotionEvent:
			ev = input.MouseMoveEvent{X: e.X, Y: e.Y * 2}
		}
		if ev == nil {
			continue
		}
		if !send(ctx, out, ev) {
			return
		}
	}
}
