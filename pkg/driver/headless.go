package driver

import (
	"context"
	"fmt"

	"github.com/taigrr/mandelwow/pkg/input"
	"github.com/taigrr/mandelwow/pkg/render"
	"github.com/taigrr/mandelwow/pkg/screenshot"
)

func init() {
	Register("headless", func(opts Options) Driver { return NewHeadless(opts) })
}

// Headless renders into memory as fast as it can. It is used for tests
// and batch rendering.
type Headless struct {
	opts Options
	fb   *render.Framebuffer
	fullscreenFlag

	// Script holds events delivered after the given frame index.
	Script map[int][]input.Event
}

// NewHeadless creates a headless driver.
func NewHeadless(opts Options) *Headless {
	opts = opts.withDefaults()
	return &Headless{
		opts:           opts,
		fb:             render.NewFramebuffer(opts.Width, opts.Height),
		fullscreenFlag: fullscreenFlag{on: opts.Fullscreen},
	}
}

// Framebuffer returns the frame drawn last.
func (h *Headless) Framebuffer() *render.Framebuffer {
	return h.fb
}

// Run draws Options.Frames frames, or until ctx is done when Frames is
// zero, then saves the last frame to Options.Output if set.
func (h *Headless) Run(ctx context.Context, app App) error {
	d := &Dispatcher{App: app, Surface: h, FB: h.fb}
	if !d.Dispatch(input.ResizeEvent{Width: h.fb.Width, Height: h.fb.Height}) {
		return nil
	}

	for frame := 0; h.opts.Frames == 0 || frame < h.opts.Frames; frame++ {
		if ctx.Err() != nil {
			break
		}
		app.Draw(h.fb)
		app.Advance()

		stop := false
		for _, ev := range h.Script[frame] {
			if !d.Dispatch(ev) {
				stop = true
				break
			}
		}
		if stop {
			break
		}
	}
	return h.save()
}

func (h *Headless) save() error {
	if h.opts.Output == "" {
		return nil
	}
	path, err := screenshot.Save(h.fb.ToImage(), screenshot.Options{Path: h.opts.Output})
	if err != nil {
		return fmt.Errorf("save frame: %w", err)
	}
	h.opts.Logger.Info("frame saved", "path", path)
	return nil
}
