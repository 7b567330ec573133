package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSilence(t *testing.T) {
	t.Parallel()

	b := NewSilence(44100, 250*time.Millisecond)
	assert.Len(t, b.Samples, 11025, "exactly rate/4 samples for a quarter second")
	for _, s := range b.Samples {
		require.Zero(t, s)
	}
	assert.Equal(t, 250*time.Millisecond, b.Duration())
}

func TestIndexAt_MatchesFrameRounding(t *testing.T) {
	t.Parallel()

	b := &Buffer{SampleRate: 44100}
	assert.Equal(t, 0, b.IndexAt(0))
	assert.Equal(t, 44100, b.IndexAt(time.Second))
	// 120ms at 44100 is 5292 exactly.
	assert.Equal(t, 5292, b.IndexAt(120*time.Millisecond))
}

func TestFitTo(t *testing.T) {
	t.Parallel()

	src := &Buffer{SampleRate: 4, Samples: []float64{0.1, 0.2, 0.3}}

	t.Run("truncates", func(t *testing.T) {
		t.Parallel()
		got := src.FitTo(2)
		assert.Equal(t, []float64{0.1, 0.2}, got.Samples)
	})

	t.Run("loops with partial repeat", func(t *testing.T) {
		t.Parallel()
		got := src.FitTo(7)
		assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.1, 0.2, 0.3, 0.1}, got.Samples)
	})

	t.Run("empty source yields silence", func(t *testing.T) {
		t.Parallel()
		empty := &Buffer{SampleRate: 4}
		got := empty.FitTo(3)
		assert.Equal(t, []float64{0, 0, 0}, got.Samples)
	})
}

func TestMixAt(t *testing.T) {
	t.Parallel()

	dst := NewSilence(4, time.Second) // 4 samples
	src := &Buffer{SampleRate: 4, Samples: []float64{0.5, 0.5, 0.5}}

	dst.MixAt(2, src)
	assert.Equal(t, []float64{0, 0, 0.5, 0.5}, dst.Samples, "overrun past the end is dropped")

	dst.MixAt(2, src)
	assert.Equal(t, []float64{0, 0, 1.0, 1.0}, dst.Samples, "mixing adds")
}

func TestCloneAndEqual(t *testing.T) {
	t.Parallel()

	a := &Buffer{SampleRate: 8, Samples: []float64{0.1, -0.2}}
	b := a.Clone()
	require.True(t, a.Equal(b))

	b.Samples[0] = 0.9
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(&Buffer{SampleRate: 4, Samples: a.Samples}))
}
