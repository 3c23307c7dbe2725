// Package config holds every startup setting of the demo. Values come
// from built-in defaults, then an optional TOML preset, then the command
// line; settings are read once and never reloaded.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/taigrr/mandelwow/pkg/fractal"
	"github.com/taigrr/mandelwow/pkg/screenshot"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Drivers lists the driver names a configuration may select.
var Drivers = []string{"terminal", "tcell", "window", "headless"}

// Config is the full startup configuration.
type Config struct {
	Driver     string   `toml:"driver"`
	Width      int      `toml:"width"`
	Height     int      `toml:"height"`
	FPS        int      `toml:"fps"`
	Fullscreen bool     `toml:"fullscreen"`
	VSync      bool     `toml:"vsync"`
	HoldWindow Duration `toml:"hold_window"`

	Fractal    Fractal    `toml:"fractal"`
	Scene      Scene      `toml:"scene"`
	Audio      Audio      `toml:"audio"`
	Sync       Sync       `toml:"sync"`
	Screenshot Screenshot `toml:"screenshot"`
	Headless   Headless   `toml:"headless"`
	Log        Log        `toml:"log"`
}

// Duration is a time.Duration written like "150ms".
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

// Duration returns d as a time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Set implements flag.Value.
func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalText(b []byte) error { return d.Set(string(b)) }

// Fractal configures the slab.
type Fractal struct {
	XMin    float64 `toml:"xmin"`
	XMax    float64 `toml:"xmax"`
	YMin    float64 `toml:"ymin"`
	YMax    float64 `toml:"ymax"`
	ZMin    float64 `toml:"zmin"`
	ZMax    float64 `toml:"zmax"`
	Slices  int     `toml:"slices"`
	MaxIter int     `toml:"max_iter"`
	Bailout string  `toml:"bailout"`
	WowMin  float32 `toml:"wow_min"`
	WowMax  float32 `toml:"wow_max"`
	// StrictBounds rejects a region whose minimum exceeds its maximum on
	// any axis. Otherwise such a region draws inverted geometry.
	StrictBounds bool `toml:"strict_bounds"`
}

// Bounds returns the configured region.
func (f Fractal) Bounds() fractal.Cube {
	return fractal.Cube{
		XMin: f.XMin, XMax: f.XMax,
		YMin: f.YMin, YMax: f.YMax,
		ZMin: f.ZMin, ZMax: f.ZMax,
	}
}

// Scene configures the decorations.
type Scene struct {
	BoundingBox bool    `toml:"bounding_box"`
	Sea         bool    `toml:"sea"`
	SeaModel    string  `toml:"sea_model"`
	SeaWire     bool    `toml:"sea_wireframe"`
	Title       string  `toml:"title"`
	Font        string  `toml:"font"`
	FontSize    float64 `toml:"font_size"`
	SmoothTitle bool    `toml:"smooth_title"`
	Pulse       string  `toml:"pulse"`
}

// Audio configures the soundtrack.
type Audio struct {
	Path string `toml:"path"`
}

// Sync configures the external timeline.
type Sync struct {
	Addr string `toml:"addr"`
}

// Screenshot configures the screenshot key.
type Screenshot struct {
	Path   string  `toml:"path"`
	Format string  `toml:"format"`
	Scale  float64 `toml:"scale"`
}

// Headless configures batch rendering.
type Headless struct {
	Frames int    `toml:"frames"`
	Output string `toml:"output"`
}

// Log configures logging.
type Log struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	b := fractal.MandelwowBounds()
	wow := fractal.DefaultWowRange()
	return Config{
		Driver:     "terminal",
		Width:      320,
		Height:     180,
		FPS:        60,
		VSync:      true,
		HoldWindow: Duration(150 * time.Millisecond),
		Fractal: Fractal{
			XMin: b.XMin, XMax: b.XMax,
			YMin: b.YMin, YMax: b.YMax,
			ZMin: b.ZMin, ZMax: b.ZMax,
			Slices:  fractal.DefaultSliceCount,
			MaxIter: fractal.DefaultMaxIter,
			Bailout: fractal.BailoutSum.String(),
			WowMin:  wow.Min,
			WowMax:  wow.Max,
		},
		Scene: Scene{
			Sea:      true,
			Title:    "MANDELWOW",
			FontSize: 16,
			Pulse:    "lorentz",
		},
		Screenshot: Screenshot{
			Path:  screenshot.DefaultPath,
			Scale: 1,
		},
		Headless: Headless{Frames: 1},
		Log:      Log{Level: "info"},
	}
}

// LoadFile applies the TOML file at path on top of c. Keys the file does
// not set keep their current value; unknown keys are an error.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("%s: %w: %s", path, ErrInvalid, strict.String())
		}
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Validate checks the values that would otherwise fail later or draw
// garbage.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if !slices.Contains(Drivers, c.Driver) {
		bad("driver %q (want one of %s)", c.Driver, strings.Join(Drivers, ", "))
	}
	if c.Width <= 0 || c.Height <= 0 {
		bad("size %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		bad("fps %d", c.FPS)
	}
	if c.HoldWindow < 0 {
		bad("hold window %v", c.HoldWindow)
	}
	if c.Fractal.StrictBounds && !c.Fractal.Bounds().Valid() {
		bad("bounds: a minimum exceeds its maximum")
	}
	if c.Fractal.Slices < 1 {
		bad("slices %d", c.Fractal.Slices)
	}
	if c.Fractal.MaxIter < 1 {
		bad("max iter %d", c.Fractal.MaxIter)
	}
	if _, ok := fractal.ParseBailout(c.Fractal.Bailout); !ok {
		bad("bailout %q", c.Fractal.Bailout)
	}
	if c.Fractal.WowMin > c.Fractal.WowMax {
		bad("wow range [%v, %v]", c.Fractal.WowMin, c.Fractal.WowMax)
	}
	switch c.Scene.Pulse {
	case "", "lorentz", "spring":
	default:
		bad("pulse %q", c.Scene.Pulse)
	}
	if c.Screenshot.Format != "" {
		if _, err := screenshot.ParseFormat(c.Screenshot.Format); err != nil {
			bad("screenshot format %q", c.Screenshot.Format)
		}
	}
	if c.Screenshot.Scale < 0 {
		bad("screenshot scale %v", c.Screenshot.Scale)
	}
	if c.Headless.Frames < 0 {
		bad("frames %d", c.Headless.Frames)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		bad("%v", err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps debug, info, warn or error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level %q", s)
	}
	return l, nil
}

// Bind registers a flag for every command-line setting on fs, reading
// into and writing to c. It returns the -config flag value.
func (c *Config) Bind(fs *flag.FlagSet) *string {
	path := fs.String("config", "", "TOML preset applied before the other flags")

	fs.StringVar(&c.Driver, "driver", c.Driver, "Output driver: "+strings.Join(Drivers, ", "))
	fs.IntVar(&c.Width, "width", c.Width, "Framebuffer width (window, headless)")
	fs.IntVar(&c.Height, "height", c.Height, "Framebuffer height (window, headless)")
	fs.IntVar(&c.FPS, "fps", c.FPS, "Target FPS")
	fs.BoolVar(&c.Fullscreen, "fullscreen", c.Fullscreen, "Start fullscreen")
	fs.BoolVar(&c.VSync, "vsync", c.VSync, "Wait for vertical sync (window)")
	fs.Var(&c.HoldWindow, "hold", "Synthetic key release delay (terminals)")

	fs.IntVar(&c.Fractal.Slices, "slices", c.Fractal.Slices, "Depth steps through the slab")
	fs.IntVar(&c.Fractal.MaxIter, "maxiter", c.Fractal.MaxIter, "Escape-time iteration budget")
	fs.StringVar(&c.Fractal.Bailout, "bailout", c.Fractal.Bailout, "Escape test: sum or product")
	fs.BoolVar(&c.Fractal.StrictBounds, "strict-bounds", c.Fractal.StrictBounds, "Reject bounds whose minimum exceeds the maximum")

	fs.BoolVar(&c.Scene.BoundingBox, "bbox", c.Scene.BoundingBox, "Draw the bounding box")
	fs.BoolVar(&c.Scene.Sea, "sea", c.Scene.Sea, "Draw the cube sea")
	fs.StringVar(&c.Scene.SeaModel, "sea-model", c.Scene.SeaModel, "glTF/GLB mesh for the sea")
	fs.BoolVar(&c.Scene.SeaWire, "sea-wireframe", c.Scene.SeaWire, "Draw the sea as wireframe")
	fs.StringVar(&c.Scene.Title, "title", c.Scene.Title, "Billboard text")
	fs.StringVar(&c.Scene.Font, "font", c.Scene.Font, "TrueType/OpenType font for the billboard")
	fs.BoolVar(&c.Scene.SmoothTitle, "smooth-title", c.Scene.SmoothTitle, "Filter the billboard texture bilinearly")
	fs.StringVar(&c.Scene.Pulse, "pulse", c.Scene.Pulse, "Beat pulse: lorentz or spring")

	fs.StringVar(&c.Audio.Path, "audio", c.Audio.Path, "WAV or MP3 soundtrack")
	fs.StringVar(&c.Sync.Addr, "sync", c.Sync.Addr, "Listen address for websocket timeline sync")

	fs.StringVar(&c.Screenshot.Path, "screenshot", c.Screenshot.Path, "Screenshot file")
	fs.StringVar(&c.Screenshot.Format, "screenshot-format", c.Screenshot.Format, "Screenshot format: png, bmp or tiff")
	fs.Float64Var(&c.Screenshot.Scale, "screenshot-scale", c.Screenshot.Scale, "Screenshot upscale factor")

	fs.IntVar(&c.Headless.Frames, "frames", c.Headless.Frames, "Frames to render (headless, 0 = until interrupted)")
	fs.StringVar(&c.Headless.Output, "o", c.Headless.Output, "Save the last frame here (headless)")

	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "Log level: debug, info, warn, error")
	fs.StringVar(&c.Log.Path, "log", c.Log.Path, "Log file (terminal drivers log nowhere otherwise)")
	return path
}

// Parse builds the configuration from defaults, the -config preset and
// args. Only flags given explicitly override the preset. The result is
// validated.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	c := Default()
	path := c.Bind(fs)
	if err := fs.Parse(args); err != nil {
		return c, err
	}

	if *path != "" {
		set := make(map[string]string)
		fs.Visit(func(f *flag.Flag) { set[f.Name] = f.Value.String() })
		if err := c.LoadFile(*path); err != nil {
			return c, err
		}
		for name, v := range set {
			if err := fs.Set(name, v); err != nil {
				return c, fmt.Errorf("reapply -%s: %w", name, err)
			}
		}
	}
	return c, c.Validate()
}
