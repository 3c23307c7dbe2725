// Package driver presents frames and delivers input. Every driver runs
// the same frame cycle against an App: draw, present, advance, then
// handle the events that arrived during the frame.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/taigrr/mandelwow/pkg/input"
	"github.com/taigrr/mandelwow/pkg/render"
)

// ErrUnknownDriver is returned by New for names nothing registered.
var ErrUnknownDriver = errors.New("unknown driver")

// App is the frame callback the drivers run.
type App interface {
	// Draw renders one frame into fb.
	Draw(fb *render.Framebuffer)
	// Advance moves to the next frame after the current one is shown.
	Advance()
	// HandleEvent applies one input event. Returning false stops the
	// driver.
	HandleEvent(ev input.Event, s Surface) bool
}

// IdleRecorder is implemented by apps that account time spent waiting
// for the next frame.
type IdleRecorder interface {
	AddIdleTime(d time.Duration)
}

// Surface is what an app may ask of the presenting driver.
type Surface interface {
	ToggleFullscreen()
	Fullscreen() bool
}

// Driver runs an App until ctx is cancelled or the app asks to stop.
type Driver interface {
	Run(ctx context.Context, app App) error
}

// Options configure every driver; each uses the fields that apply to it.
type Options struct {
	// Framebuffer size in pixels for window and headless drivers.
	// Terminal drivers size the framebuffer from the terminal.
	Width, Height int
	// FPS paces the ticker drivers and sets the window tick rate.
	FPS        int
	Fullscreen bool
	VSync      bool
	Title      string
	// Keymap maps key names to actions. Defaults to input.DefaultKeymap.
	Keymap input.Keymap
	// HoldWindow is the synthetic release delay for terminals.
	HoldWindow time.Duration
	// Frames stops the headless driver after this many frames.
	Frames int
	// Output is where the headless driver saves its last frame.
	Output string
	Logger *slog.Logger
}

// Defaults for zero Options fields.
const (
	DefaultWidth  = 320
	DefaultHeight = 180
	DefaultFPS    = 60
	DefaultTitle  = "Mandelwow"
)

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	if o.Title == "" {
		o.Title = DefaultTitle
	}
	if o.Keymap == nil {
		o.Keymap = input.DefaultKeymap()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Factory creates a driver.
type Factory func(opts Options) Driver

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a driver available to New under name.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// New creates the driver registered under name.
func New(name string, opts Options) (Driver, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownDriver)
	}
	return f(opts.withDefaults()), nil
}

// Names lists the registered drivers in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
