package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/taigrr/mandelwow/pkg/input"
	"github.com/taigrr/mandelwow/pkg/render"
)

// Dispatcher forwards events to an app, resizing the framebuffer and
// synthesizing key releases on the way.
type Dispatcher struct {
	App     App
	Surface Surface
	FB      *render.Framebuffer
	// Holder, when set, filters auto-repeats and releases camera keys the
	// source never reports as released.
	Holder *input.Holder
	Now    func() time.Time
}

// Dispatch delivers one event and reports whether the app wants to go on.
func (d *Dispatcher) Dispatch(ev input.Event) bool {
	switch e := ev.(type) {
	case input.ResizeEvent:
		d.FB.Resize(e.Width, e.Height)
	case input.KeyEvent:
		if d.Holder != nil && e.Action.IsCamera() {
			if e.Pressed {
				if !d.Holder.Press(e.Action, d.now()) {
					// auto-repeat of a held key
					return true
				}
			} else {
				d.Holder.Release(e.Action)
			}
		}
	}
	return d.App.HandleEvent(ev, d.Surface)
}

// Expire releases held keys whose window has passed.
func (d *Dispatcher) Expire() bool {
	if d.Holder == nil {
		return true
	}
	for _, ev := range d.Holder.Expire(d.now()) {
		if !d.App.HandleEvent(ev, d.Surface) {
			return false
		}
	}
	return true
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// tickerLoop is the frame cycle of the terminal drivers: draw, present,
// advance, handle whatever arrived, then sleep out the rest of the frame.
func tickerLoop(ctx context.Context, d *Dispatcher, fps int, events <-chan input.Event, present func(*render.Framebuffer) error) error {
	interval := time.Second / time.Duration(max(fps, 1))
	idle, _ := d.App.(IdleRecorder)

	for {
		if ctx.Err() != nil {
			return nil
		}
		start := time.Now()

		d.App.Draw(d.FB)
		if err := present(d.FB); err != nil {
			return fmt.Errorf("present: %w", err)
		}
		d.App.Advance()

		if !drain(d, events) {
			return nil
		}

		wait := interval - time.Since(start)
		if wait <= 0 {
			continue
		}
		slept := time.Now()
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		if idle != nil {
			idle.AddIdleTime(time.Since(slept))
		}
	}
}

// drain dispatches every pending event without blocking. A closed event
// channel means the input source is gone.
func drain(d *Dispatcher, events <-chan input.Event) bool {
	for {
		select {
		case ev, ok := <-events:
			if !ok || !d.Dispatch(ev) {
				return false
			}
		default:
			return d.Expire()
		}
	}
}

// send delivers ev unless ctx ends first.
func send(ctx context.Context, out chan<- input.Event, ev input.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// fullscreenFlag is a Surface for drivers that cannot change their size.
type fullscreenFlag struct {
	on bool
}

func (f *fullscreenFlag) ToggleFullscreen() { f.on = !f.on }
func (f *fullscreenFlag) Fullscreen() bool  { return f.on }
