// Package audio provides the sample buffer the composer assembles and the
// WAV codec used to load sample assets and write the finished track.
package audio

import (
	"math"
	"time"
)

// DefaultSampleRate is used when a job does not override it.
const DefaultSampleRate = 44100

// Buffer is a mono float64 sample buffer. Values are nominally in [-1, 1];
// mixing may exceed that transiently and is clamped on write-out.
type Buffer struct {
	SampleRate int
	Samples    []float64
}

// NewSilence returns a zeroed buffer spanning exactly d.
func NewSilence(rate int, d time.Duration) *Buffer {
	b := &Buffer{SampleRate: rate}
	b.Samples = make([]float64, b.IndexAt(d))
	return b
}

// IndexAt maps an absolute time to a sample index by rounding, mirroring how
// frame indices are derived, so audio and video agree on entry boundaries.
func (b *Buffer) IndexAt(t time.Duration) int {
	return int(math.Round(t.Seconds() * float64(b.SampleRate)))
}

// Duration returns the buffer's exact play time.
func (b *Buffer) Duration() time.Duration {
	return time.Duration(float64(len(b.Samples)) / float64(b.SampleRate) * float64(time.Second))
}

// Clone returns an independent copy.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{SampleRate: b.SampleRate, Samples: make([]float64, len(b.Samples))}
	copy(out.Samples, b.Samples)
	return out
}

// Equal reports whether two buffers have identical rate and samples.
func (b *Buffer) Equal(other *Buffer) bool {
	if b.SampleRate != other.SampleRate || len(b.Samples) != len(other.Samples) {
		return false
	}
	for i := range b.Samples {
		if b.Samples[i] != other.Samples[i] {
			return false
		}
	}
	return true
}

// FitTo returns a copy adjusted to exactly n samples: longer input is
// truncated, shorter input loops with a partial final repeat.
func (b *Buffer) FitTo(n int) *Buffer {
	out := &Buffer{SampleRate: b.SampleRate, Samples: make([]float64, n)}
	if len(b.Samples) == 0 {
		return out
	}
	for i := 0; i < n; i++ {
		out.Samples[i] = b.Samples[i%len(b.Samples)]
	}
	return out
}

// MixAt adds src into the buffer starting at the given sample offset,
// truncating whatever runs past the end.
func (b *Buffer) MixAt(offset int, src *Buffer) {
	for i, s := range src.Samples {
		j := offset + i
		if j < 0 || j >= len(b.Samples) {
			break
		}
		b.Samples[j] += s
	}
}
