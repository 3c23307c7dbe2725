// mandelwow - 4-D fractal slicer
// Flies a camera around a stack of translucent slices through the
// four-dimensional Mandelbrot set, pulsing to the beat of a soundtrack.
//
// Controls:
//
//	W/S         - Move forward/backward
//	A/D         - Turn left/right
//	R/F         - Look up/down
//	Arrows      - Strafe up/down/left/right
//	Mouse       - Look around
//	P           - Pause
//	B           - Toggle bounding box
//	PgUp/PgDn   - Nudge time forward/backward
//	F10         - Screenshot
//	F11         - Toggle fullscreen
//	Esc/Q       - Quit
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/taigrr/mandelwow/pkg/audio"
	"github.com/taigrr/mandelwow/pkg/config"
	"github.com/taigrr/mandelwow/pkg/driver"
	_ "github.com/taigrr/mandelwow/pkg/driver/window"
	"github.com/taigrr/mandelwow/pkg/fractal"
	"github.com/taigrr/mandelwow/pkg/models"
	"github.com/taigrr/mandelwow/pkg/scene"
	"github.com/taigrr/mandelwow/pkg/screenshot"
	"github.com/taigrr/mandelwow/pkg/text"
	"github.com/taigrr/mandelwow/pkg/timer"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "mandelwow - 4-D fractal slicer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: mandelwow [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  W/S         - Move forward/backward\n")
		fmt.Fprintf(os.Stderr, "  A/D         - Turn left/right\n")
		fmt.Fprintf(os.Stderr, "  R/F         - Look up/down\n")
		fmt.Fprintf(os.Stderr, "  Arrows      - Strafe\n")
		fmt.Fprintf(os.Stderr, "  Mouse       - Look around\n")
		fmt.Fprintf(os.Stderr, "  P           - Pause\n")
		fmt.Fprintf(os.Stderr, "  B           - Toggle bounding box\n")
		fmt.Fprintf(os.Stderr, "  PgUp/PgDn   - Nudge time\n")
		fmt.Fprintf(os.Stderr, "  F10         - Screenshot\n")
		fmt.Fprintf(os.Stderr, "  F11         - Toggle fullscreen\n")
		fmt.Fprintf(os.Stderr, "  Esc/Q       - Quit\n")
	}

	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	err = run(cfg, logger)
	closeLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger. Terminal drivers own stdout and
// stderr, so they log to -log or nowhere.
func newLogger(cfg config.Config) (*slog.Logger, func(), error) {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = os.Stderr
	closeLog := func() {}
	switch {
	case cfg.Log.Path != "":
		f, err := os.OpenFile(cfg.Log.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log: %w", err)
		}
		w = f
		closeLog = func() { f.Close() }
	case cfg.Driver == "terminal" || cfg.Driver == "tcell":
		w = io.Discard
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, closeLog, nil
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timerOpts := []timer.Option{timer.WithLogger(logger)}
	if cfg.Sync.Addr != "" {
		syncer, err := timer.ListenWebSocket(cfg.Sync.Addr, logger)
		if err != nil {
			logger.Warn("timeline sync disabled", "err", err)
		} else {
			defer syncer.Close()
			timerOpts = append(timerOpts, timer.WithSyncer(syncer))
		}
	}

	bailout, ok := fractal.ParseBailout(cfg.Fractal.Bailout)
	if !ok {
		return fmt.Errorf("%w: bailout %q", config.ErrInvalid, cfg.Fractal.Bailout)
	}
	pulse, err := scene.ParsePulse(cfg.Scene.Pulse, cfg.FPS)
	if err != nil {
		return err
	}

	shot := screenshot.Options{Path: cfg.Screenshot.Path, Scale: cfg.Screenshot.Scale}
	if cfg.Screenshot.Format != "" {
		if shot.Format, err = screenshot.ParseFormat(cfg.Screenshot.Format); err != nil {
			return err
		}
	}

	opts := scene.Options{
		Bounds:       cfg.Fractal.Bounds(),
		Slices:       cfg.Fractal.Slices,
		Evaluator:    fractal.Evaluator{MaxIter: cfg.Fractal.MaxIter, Bailout: bailout},
		Wow:          fractal.WowRange{Min: cfg.Fractal.WowMin, Max: cfg.Fractal.WowMax},
		Timer:        timer.New(timerOpts...),
		Pulse:        pulse,
		BoundingBox:  cfg.Scene.BoundingBox,
		Sea:          cfg.Scene.Sea,
		SeaWireframe: cfg.Scene.SeaWire,
		Title:        cfg.Scene.Title,
		Face:         text.LoadFace(cfg.Scene.Font, cfg.Scene.FontSize, logger),
		SmoothTitle:  cfg.Scene.SmoothTitle,
		Screenshot:   shot,
		Logger:       logger,
	}

	if cfg.Scene.SeaModel != "" {
		mesh, err := models.LoadGLTF(cfg.Scene.SeaModel)
		if err != nil {
			logger.Warn("sea model unavailable, using cubes", "path", cfg.Scene.SeaModel, "err", err)
		} else {
			opts.SeaMesh = mesh
		}
	}

	if cfg.Audio.Path != "" {
		player, err := audio.Start(cfg.Audio.Path, logger)
		if err != nil {
			logger.Warn("audio disabled", "path", cfg.Audio.Path, "err", err)
		} else {
			defer player.Close()
			opts.Trigger = player
			opts.Pauser = player
		}
	}

	sc := scene.New(opts)

	drv, err := driver.New(cfg.Driver, driver.Options{
		Width:      cfg.Width,
		Height:     cfg.Height,
		FPS:        cfg.FPS,
		Fullscreen: cfg.Fullscreen,
		VSync:      cfg.VSync,
		HoldWindow: cfg.HoldWindow.Duration(),
		Frames:     cfg.Headless.Frames,
		Output:     cfg.Headless.Output,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	logger.Info("starting",
		"driver", cfg.Driver,
		"slices", cfg.Fractal.Slices+1,
		"max_iter", cfg.Fractal.MaxIter,
		"bailout", bailout,
	)
	if err := drv.Run(ctx, sc); err != nil {
		return fmt.Errorf("%s driver: %w", cfg.Driver, err)
	}
	return nil
}
