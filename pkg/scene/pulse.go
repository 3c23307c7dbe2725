package scene

import (
	"fmt"

	"github.com/charmbracelet/harmonica"
)

// Pulse turns beat triggers into the scale multiplier of the fractal.
// Every pulse peaks at 2 on a trigger and settles back to 1.
type Pulse interface {
	// Hit returns the scale for this frame given the latest trigger time
	// (ok is false when nothing has fired yet) and the audio clock.
	Hit(trigger float64, ok bool, now float64) float64
}

// DefaultSharpness is the k of the default pulse.
const DefaultSharpness = 20

// LorentzPulse is 1/(1+Δt²·K)+1, where Δt is the time since the trigger.
type LorentzPulse struct {
	K float64
}

// Scale evaluates the curve at dt seconds after a trigger. Negative dt
// counts as zero.
func (p LorentzPulse) Scale(dt float64) float64 {
	dt = max(dt, 0)
	return 1/(1+dt*dt*p.K) + 1
}

func (p LorentzPulse) Hit(trigger float64, ok bool, now float64) float64 {
	if !ok {
		return 1
	}
	return p.Scale(now - trigger)
}

// SpringPulse snaps to 2 on every new trigger and relaxes toward 1 on a
// critically damped spring, one step per frame.
type SpringPulse struct {
	spring harmonica.Spring
	pos    float64
	vel    float64
	last   float64
	seen   bool
}

// NewSpringPulse creates a spring pulse stepping at fps.
func NewSpringPulse(fps int) *SpringPulse {
	return &SpringPulse{
		// Critically damped, so it never dips below 1
		spring: harmonica.NewSpring(harmonica.FPS(max(fps, 1)), 8.0, 1.0),
		pos:    1,
	}
}

func (p *SpringPulse) Hit(trigger float64, ok bool, _ float64) float64 {
	if ok && (!p.seen || trigger != p.last) {
		p.seen, p.last = true, trigger
		p.pos, p.vel = 2, 0
	}
	v := p.pos
	p.pos, p.vel = p.spring.Update(p.pos, p.vel, 1)
	return v
}

// ParsePulse returns the pulse named "lorentz" or "spring".
func ParsePulse(name string, fps int) (Pulse, error) {
	switch name {
	case "", "lorentz":
		return LorentzPulse{K: DefaultSharpness}, nil
	case "spring":
		return NewSpringPulse(fps), nil
	}
	return nil, fmt.Errorf("unknown pulse %q", name)
}
