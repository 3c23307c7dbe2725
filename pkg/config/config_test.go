package config

import (
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/mandelwow/pkg/fractal"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preset.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("mandelwow", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, fractal.MandelwowBounds(), c.Fractal.Bounds())
	assert.Equal(t, fractal.DefaultSliceCount, c.Fractal.Slices)
	assert.Equal(t, fractal.DefaultMaxIter, c.Fractal.MaxIter)
	assert.Equal(t, "sum", c.Fractal.Bailout)
	assert.Equal(t, Duration(150*time.Millisecond), c.HoldWindow)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
driver = "headless"
hold_window = "200ms"

[fractal]
slices = 10
bailout = "product"

[scene]
bounding_box = true
pulse = "spring"
sea_wireframe = true
smooth_title = true

[screenshot]
format = "tiff"
`)
	c := Default()
	require.NoError(t, c.LoadFile(path))
	require.NoError(t, c.Validate())

	assert.Equal(t, "headless", c.Driver)
	assert.Equal(t, Duration(200*time.Millisecond), c.HoldWindow)
	assert.Equal(t, 10, c.Fractal.Slices)
	assert.Equal(t, "product", c.Fractal.Bailout)
	assert.True(t, c.Scene.BoundingBox)
	assert.Equal(t, "spring", c.Scene.Pulse)
	assert.True(t, c.Scene.SeaWire)
	assert.True(t, c.Scene.SmoothTitle)
	assert.Equal(t, "tiff", c.Screenshot.Format)

	// untouched keys keep their defaults
	assert.Equal(t, fractal.DefaultMaxIter, c.Fractal.MaxIter)
	assert.Equal(t, 60, c.FPS)
	assert.True(t, c.Scene.Sea)
}

func TestLoadFileErrors(t *testing.T) {
	c := Default()

	err := c.LoadFile(writeFile(t, "[fractal]\nslicez = 3\n"))
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "slicez")

	assert.Error(t, c.LoadFile(writeFile(t, "fps = \"fast\"\n")))
	assert.Error(t, c.LoadFile(writeFile(t, "hold_window = \"soon\"\n")))
	assert.Error(t, c.LoadFile(filepath.Join(t.TempDir(), "missing.toml")))
}

func TestParseFlags(t *testing.T) {
	c, err := Parse(newFlagSet(), []string{"-driver", "headless", "-frames", "3", "-hold", "80ms", "-bbox", "-o", "out.png"})
	require.NoError(t, err)
	assert.Equal(t, "headless", c.Driver)
	assert.Equal(t, 3, c.Headless.Frames)
	assert.Equal(t, Duration(80*time.Millisecond), c.HoldWindow)
	assert.True(t, c.Scene.BoundingBox)
	assert.Equal(t, "out.png", c.Headless.Output)
}

func TestParseFlagsOverridePreset(t *testing.T) {
	path := writeFile(t, `
fps = 30
driver = "tcell"

[fractal]
slices = 10
max_iter = 128
`)
	c, err := Parse(newFlagSet(), []string{"-slices", "5", "-config", path, "-driver", "headless"})
	require.NoError(t, err)

	assert.Equal(t, 5, c.Fractal.Slices, "explicit flag wins")
	assert.Equal(t, "headless", c.Driver, "explicit flag wins")
	assert.Equal(t, 30, c.FPS, "preset beats flag default")
	assert.Equal(t, 128, c.Fractal.MaxIter)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(newFlagSet(), []string{"-nope"})
	assert.Error(t, err)

	_, err = Parse(newFlagSet(), []string{"-driver", "vga"})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Parse(newFlagSet(), []string{"-strict-bounds", "-config", writeFile(t, "[fractal]\nzmin = 2.0\n")})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestInvertedBoundsAllowedByDefault(t *testing.T) {
	c, err := Parse(newFlagSet(), []string{"-config", writeFile(t, "[fractal]\nxmin = 0.7\nxmax = -2.0\nzmin = 1.1\nzmax = -1.1\n")})
	require.NoError(t, err)
	assert.False(t, c.Fractal.Bounds().Valid())

	c.Fractal.StrictBounds = true
	assert.ErrorContains(t, c.Validate(), "bounds")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"driver", func(c *Config) { c.Driver = "vga" }, "driver"},
		{"size", func(c *Config) { c.Width = 0 }, "size"},
		{"fps", func(c *Config) { c.FPS = 0 }, "fps"},
		{"hold", func(c *Config) { c.HoldWindow = -1 }, "hold"},
		{"strict bounds", func(c *Config) {
			c.Fractal.StrictBounds = true
			c.Fractal.XMin, c.Fractal.XMax = 1, -1
		}, "bounds"},
		{"slices", func(c *Config) { c.Fractal.Slices = 0 }, "slices"},
		{"max iter", func(c *Config) { c.Fractal.MaxIter = 0 }, "max iter"},
		{"bailout", func(c *Config) { c.Fractal.Bailout = "max" }, "bailout"},
		{"wow", func(c *Config) { c.Fractal.WowMin = 1 }, "wow"},
		{"pulse", func(c *Config) { c.Scene.Pulse = "square" }, "pulse"},
		{"screenshot format", func(c *Config) { c.Screenshot.Format = "gif" }, "screenshot format"},
		{"screenshot scale", func(c *Config) { c.Screenshot.Scale = -2 }, "screenshot scale"},
		{"frames", func(c *Config) { c.Headless.Frames = -1 }, "frames"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			assert.ErrorIs(t, err, ErrInvalid)
			assert.ErrorContains(t, err, tt.want)
		})
	}

	t.Run("all at once", func(t *testing.T) {
		c := Default()
		c.FPS, c.Fractal.Slices = -1, -1
		err := c.Validate()
		assert.ErrorContains(t, err, "fps")
		assert.ErrorContains(t, err, "slices")
	})
}

func TestParseLevel(t *testing.T) {
	for s, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		l, err := ParseLevel(s)
		require.NoError(t, err)
		assert.Equal(t, want, l)
	}
	_, err := ParseLevel("")
	assert.Error(t, err)
}
