package audio

import (
	"math"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = beep.SampleRate(44100)

// generator returns a stream of length frames whose value at frame i is f(i).
func generator(length int, f func(i int) float64) beep.Streamer {
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= length {
			return 0, false
		}
		n := min(len(samples), length-pos)
		for i := range n {
			v := f(pos + i)
			samples[i] = [2]float64{v, v}
		}
		pos += n
		return n, true
	})
}

// drain streams d to the end in speaker-sized chunks, collecting every
// distinct trigger time.
func drain(d *OnsetDetector) []float64 {
	var triggers []float64
	buf := make([][2]float64, 512)
	for {
		_, ok := d.Stream(buf)
		if t, fired := d.LatestTrigger(); fired && (len(triggers) == 0 || triggers[len(triggers)-1] != t) {
			triggers = append(triggers, t)
		}
		if !ok {
			return triggers
		}
	}
}

func TestOnsetClickTrain(t *testing.T) {
	period := testRate.N(500 * time.Millisecond)
	offset := testRate.N(250 * time.Millisecond)
	length := testRate.N(10 * time.Second)
	click := func(i int) float64 {
		if i >= offset && (i-offset)%period < 64 {
			return 0.9
		}
		return 0
	}

	d := NewOnsetDetector(generator(length, click), testRate)
	triggers := drain(d)

	require.Len(t, triggers, 20)
	for k, got := range triggers {
		want := 0.25 + 0.5*float64(k)
		assert.InDelta(t, want, got, 0.03, "click %d", k)
	}
	assert.InDelta(t, 10.0, d.Now(), 1e-9)
}

func TestOnsetSteadyTone(t *testing.T) {
	tone := func(i int) float64 {
		return 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(testRate))
	}
	d := NewOnsetDetector(generator(testRate.N(5*time.Second), tone), testRate)

	assert.Empty(t, drain(d))
	_, fired := d.LatestTrigger()
	assert.False(t, fired)
}

func TestOnsetSilence(t *testing.T) {
	d := NewOnsetDetector(beep.Silence(testRate.N(2*time.Second)), testRate)
	assert.Empty(t, drain(d))
	assert.InDelta(t, 2.0, d.Now(), 1e-9)
	assert.NoError(t, d.Err())
}

func TestOnsetPassesSamplesThrough(t *testing.T) {
	d := NewOnsetDetector(generator(100, func(i int) float64 { return float64(i) / 100 }), testRate)
	buf := make([][2]float64, 100)
	n, ok := d.Stream(buf)
	require.True(t, ok)
	require.Equal(t, 100, n)
	assert.Equal(t, [2]float64{0.42, 0.42}, buf[42])
}
