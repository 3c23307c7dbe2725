package audio

import (
	"sync"

	"github.com/gopxl/beep"
)

const (
	// onsetWindow is the analysis window in frames.
	onsetWindow = 1024
	// onsetHistory is how many past windows form the local average.
	onsetHistory = 43
	// onsetWarmup windows are collected before anything can fire.
	onsetWarmup = 4
	// onsetRatio is how far above the local average a window must be.
	onsetRatio = 1.5
	// onsetFloor is the minimum mean-square energy of a trigger window.
	onsetFloor = 1e-4
	// onsetRefractory suppresses triggers closer than this, in seconds.
	onsetRefractory = 0.1
)

// OnsetDetector passes a stream through unchanged and watches its energy.
// A window whose energy jumps above the recent average becomes the latest
// trigger. Stream runs on the speaker goroutine; LatestTrigger and Now may
// be called from any goroutine.
type OnsetDetector struct {
	s  beep.Streamer
	sr beep.SampleRate

	// speaker goroutine only
	acc     float64
	n       int
	history []float64
	next    int

	mu      sync.Mutex
	pos     int
	trigger float64
	fired   bool
}

// NewOnsetDetector wraps s, which produces samples at sr.
func NewOnsetDetector(s beep.Streamer, sr beep.SampleRate) *OnsetDetector {
	return &OnsetDetector{
		s:       s,
		sr:      sr,
		history: make([]float64, 0, onsetHistory),
	}
}

// Stream implements beep.Streamer.
func (d *OnsetDetector) Stream(samples [][2]float64) (int, bool) {
	n, ok := d.s.Stream(samples)
	for i := range n {
		l, r := samples[i][0], samples[i][1]
		d.acc += (l*l + r*r) / 2
		d.n++
		if d.n == onsetWindow {
			d.window(i + 1)
		}
	}

	d.mu.Lock()
	d.pos += n
	d.mu.Unlock()
	return n, ok
}

// Err implements beep.Streamer.
func (d *OnsetDetector) Err() error {
	return d.s.Err()
}

// window closes the current analysis window, which ended offset frames
// into the buffer being streamed.
func (d *OnsetDetector) window(offset int) {
	energy := d.acc / onsetWindow
	d.acc, d.n = 0, 0

	if len(d.history) >= onsetWarmup {
		var avg float64
		for _, e := range d.history {
			avg += e
		}
		avg /= float64(len(d.history))

		if energy > onsetFloor && energy > onsetRatio*avg {
			d.mu.Lock()
			at := float64(d.pos+offset) / float64(d.sr)
			if !d.fired || at-d.trigger >= onsetRefractory {
				d.trigger, d.fired = at, true
			}
			d.mu.Unlock()
		}
	}

	if len(d.history) < onsetHistory {
		d.history = append(d.history, energy)
		return
	}
	d.history[d.next] = energy
	d.next = (d.next + 1) % onsetHistory
}

// LatestTrigger returns the stream time of the most recent onset, in
// seconds. ok is false until the first one.
func (d *OnsetDetector) LatestTrigger() (t float64, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.trigger, d.fired
}

// Now returns the stream time in seconds: frames consumed so far divided
// by the sample rate.
func (d *OnsetDetector) Now() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return float64(d.pos) / float64(d.sr)
}
