// Package timer advances the demo clock one fixed step per frame and
// reports frame throughput.
package timer

import (
	"log/slog"
	"time"

	"github.com/chewxy/math32"
)

const (
	// DefaultStep is the simulation time added per unpaused frame.
	DefaultStep float32 = 0.01
	// ReportInterval is how often throughput is logged.
	ReportInterval = 5 * time.Second
	// RowsPerSecond converts timeline rows to simulation time.
	RowsPerSecond = 10
)

// SyncEvent is a command from an external timeline.
type SyncEvent interface {
	isSyncEvent()
}

// Seek moves the clock to T.
type Seek struct {
	T float32
}

// Pause sets the pause flag.
type Pause struct {
	Paused bool
}

func (Seek) isSyncEvent()  {}
func (Pause) isSyncEvent() {}

// Syncer is an external timeline. Poll must not block; it returns false
// when nothing is pending.
type Syncer interface {
	Poll() (SyncEvent, bool)
}

// Timer is the frame clock. It is owned by the frame loop and is not safe
// for concurrent use.
type Timer struct {
	T      float32
	Frame  uint64
	Paused bool
	Step   float32

	syncer         Syncer
	logger         *slog.Logger
	now            func() time.Time
	reportInterval time.Duration

	lastReport      time.Time
	lastReportFrame uint64
	drawTime        time.Duration
	idleTime        time.Duration
}

// Option configures a Timer.
type Option func(*Timer)

// WithStep sets the per-frame step.
func WithStep(step float32) Option {
	return func(t *Timer) { t.Step = step }
}

// WithSyncer attaches an external timeline.
func WithSyncer(s Syncer) Option {
	return func(t *Timer) { t.syncer = s }
}

// WithLogger sets the report logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Timer) { t.logger = l }
}

// WithClock replaces time.Now for reporting.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// WithReportInterval sets the report period. Zero or less disables
// reporting.
func WithReportInterval(d time.Duration) Option {
	return func(t *Timer) { t.reportInterval = d }
}

// New creates a timer at t=0, frame 0, running.
func New(opts ...Option) *Timer {
	t := &Timer{
		Step:           DefaultStep,
		logger:         slog.Default(),
		now:            time.Now,
		reportInterval: ReportInterval,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.lastReport = t.now()
	return t
}

// Update advances the clock by one frame. Pending sync events are applied
// first, so a seek replaces T and the step still applies on top of it
// unless the timer is paused.
func (t *Timer) Update() {
	t.poll()
	if !t.Paused {
		t.T += t.Step
		t.Frame++
	}
	t.maybeReport()
}

func (t *Timer) poll() {
	if t.syncer == nil {
		return
	}
	for {
		ev, ok := t.syncer.Poll()
		if !ok {
			return
		}
		switch ev := ev.(type) {
		case Seek:
			t.logger.Debug("sync seek", "t", ev.T, "row", RowAt(ev.T))
			t.T = ev.T
		case Pause:
			t.logger.Debug("sync pause", "paused", ev.Paused)
			t.Paused = ev.Paused
		}
	}
}

// TogglePause flips the pause flag and returns the new value.
func (t *Timer) TogglePause() bool {
	t.Paused = !t.Paused
	return t.Paused
}

// Nudge shifts the clock by delta, paused or not.
func (t *Timer) Nudge(delta float32) {
	t.T += delta
}

// Seek sets the clock.
func (t *Timer) Seek(v float32) {
	t.T = v
}

// Row returns the timeline row at the current time.
func (t *Timer) Row() int {
	return RowAt(t.T)
}

// RowAt converts simulation time to a timeline row.
func RowAt(v float32) int {
	return int(math32.Floor(v * RowsPerSecond))
}

// TimeAt converts a timeline row to simulation time.
func TimeAt(row float64) float32 {
	return float32(row) / RowsPerSecond
}

// AddDrawTime accounts time spent rendering a frame.
func (t *Timer) AddDrawTime(d time.Duration) {
	t.drawTime += d
}

// AddIdleTime accounts time spent waiting for the next frame.
func (t *Timer) AddIdleTime(d time.Duration) {
	t.idleTime += d
}

// Stats is one throughput report.
type Stats struct {
	FPS      float64
	AvgDraw  time.Duration
	AvgIdle  time.Duration
	Frames   uint64
	Interval time.Duration
}

func (t *Timer) maybeReport() {
	if t.reportInterval <= 0 {
		return
	}
	now := t.now()
	if now.Sub(t.lastReport) <= t.reportInterval {
		return
	}
	s := t.stats(now)
	t.logger.Debug("frame stats",
		"fps", s.FPS,
		"draw_ms", float64(s.AvgDraw.Microseconds())/1000,
		"idle_ms", float64(s.AvgIdle.Microseconds())/1000,
		"frames", s.Frames,
	)
	t.lastReport = now
	t.lastReportFrame = t.Frame
	t.drawTime, t.idleTime = 0, 0
}

// stats computes the report for the frames since the last one.
func (t *Timer) stats(now time.Time) Stats {
	s := Stats{
		Frames:   t.Frame - t.lastReportFrame,
		Interval: now.Sub(t.lastReport),
	}
	if s.Interval > 0 {
		s.FPS = float64(s.Frames) / s.Interval.Seconds()
	}
	if s.Frames > 0 {
		s.AvgDraw = t.drawTime / time.Duration(s.Frames)
		s.AvgIdle = t.idleTime / time.Duration(s.Frames)
	}
	return s
}
