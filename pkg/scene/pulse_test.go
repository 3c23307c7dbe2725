package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLorentzPulse(t *testing.T) {
	p := LorentzPulse{K: DefaultSharpness}

	assert.Equal(t, 1.0, p.Hit(0, false, 3), "no trigger yet")
	assert.Equal(t, 2.0, p.Scale(0))
	assert.Equal(t, 2.0, p.Hit(5, true, 4), "trigger ahead of the clock")
	assert.InDelta(t, 1.0, p.Scale(100), 1e-3)
	// Δt² k = 1 halves the bump
	dt := math.Sqrt(1.0 / DefaultSharpness)
	assert.InDelta(t, 1.5, p.Hit(1, true, 1+dt), 1e-9)

	prev := p.Scale(0)
	for i := range 500 {
		v := p.Scale(float64(i) * 0.01)
		assert.LessOrEqual(t, v, prev)
		assert.GreaterOrEqual(t, v, 1.0)
		prev = v
	}
}

func TestSpringPulse(t *testing.T) {
	p := NewSpringPulse(60)
	assert.Equal(t, 1.0, p.Hit(0, false, 0))
	assert.Equal(t, 1.0, p.Hit(0, false, 0.1), "rests at 1")

	assert.Equal(t, 2.0, p.Hit(1, true, 1))
	prev := 2.0
	for range 120 {
		v := p.Hit(1, true, 1)
		assert.LessOrEqual(t, v, prev)
		assert.GreaterOrEqual(t, v, 1.0-1e-9, "critically damped, no undershoot")
		prev = v
	}
	assert.InDelta(t, 1.0, prev, 1e-3)

	assert.Equal(t, 2.0, p.Hit(2, true, 2), "a new trigger restarts the bump")
}

func TestParsePulse(t *testing.T) {
	for _, name := range []string{"", "lorentz"} {
		p, err := ParsePulse(name, 60)
		require.NoError(t, err)
		assert.IsType(t, LorentzPulse{}, p)
	}

	p, err := ParsePulse("spring", 60)
	require.NoError(t, err)
	assert.IsType(t, &SpringPulse{}, p)

	_, err = ParsePulse("square", 60)
	assert.Error(t, err)
}
