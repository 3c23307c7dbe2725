// Package audio plays the soundtrack and turns its beats into trigger
// times for the visuals.
package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"
)

// ErrUnsupportedFormat is returned for files that are neither WAV nor MP3.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Player loops one track on the default output device.
type Player struct {
	mu       sync.Mutex
	stream   beep.StreamSeekCloser
	ctrl     *beep.Ctrl
	detector *OnsetDetector
	logger   *slog.Logger
	closed   bool
}

// Decode opens path and picks the decoder from its extension.
func Decode(path string) (beep.StreamSeekCloser, beep.Format, error) {
	var decode func(f *os.File) (beep.StreamSeekCloser, beep.Format, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		decode = func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(f) }
	case ".mp3":
		decode = func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return mp3.Decode(f) }
	default:
		return nil, beep.Format{}, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("open audio: %w", err)
	}
	s, format, err := decode(f)
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return s, format, nil
}

// Start decodes path, opens the speaker and begins looping the track.
func Start(path string, logger *slog.Logger) (*Player, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, format, err := Decode(path)
	if err != nil {
		return nil, err
	}

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(100*time.Millisecond)); err != nil {
		s.Close()
		return nil, fmt.Errorf("init speaker: %w", err)
	}

	p := &Player{stream: s, logger: logger}
	p.detector = NewOnsetDetector(beep.Loop(-1, s), format.SampleRate)
	p.ctrl = &beep.Ctrl{Streamer: p.detector}
	speaker.Play(p.ctrl)

	logger.Info("audio started",
		"path", path,
		"rate", int(format.SampleRate),
		"length", format.SampleRate.D(s.Len()).Round(time.Millisecond),
	)
	return p, nil
}

// LatestTrigger returns the most recent beat onset in track seconds.
func (p *Player) LatestTrigger() (float64, bool) {
	return p.detector.LatestTrigger()
}

// Now returns the playback clock in track seconds.
func (p *Player) Now() float64 {
	return p.detector.Now()
}

// SetPaused pauses or resumes playback.
func (p *Player) SetPaused(paused bool) {
	speaker.Lock()
	p.ctrl.Paused = paused
	speaker.Unlock()
}

// Close stops playback and releases the device.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	speaker.Clear()
	speaker.Close()
	if err := p.stream.Close(); err != nil {
		return fmt.Errorf("close audio: %w", err)
	}
	return nil
}
