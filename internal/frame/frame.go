// Package frame defines the lazy, restartable frame-producer abstraction the
// video pipeline is built on, plus layer compositing. A Producer is indexed
// by frame number, so every render backend can traverse it under its own
// consumption pattern (once, per-segment, or re-materialized) and always
// observe the same finite, deterministic sequence.
package frame

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"time"
)

// Spec fixes the geometry and rate of a frame stream.
type Spec struct {
	Width  int
	Height int
	FPS    int
}

// Bounds returns the pixel rectangle of one frame.
func (s Spec) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.Width, s.Height)
}

// FrameIndexAt maps an absolute time to a frame index by rounding, so entry
// boundaries land on identical frames regardless of which backend computes
// them.
func (s Spec) FrameIndexAt(t time.Duration) int {
	return int(math.Round(t.Seconds() * float64(s.FPS)))
}

// FramesBetween returns the frame count of the window [start, end), computed
// on absolute times to avoid per-entry rounding drift.
func (s Spec) FramesBetween(start, end time.Duration) int {
	return s.FrameIndexAt(end) - s.FrameIndexAt(start)
}

// Producer yields a finite, deterministic sequence of frames indexed by
// time. Frame may be called for any index in [0, FrameCount) in any order,
// any number of times.
type Producer interface {
	Spec() Spec
	FrameCount() int
	Frame(i int) (*image.RGBA, error)
}

// Generate builds a Producer from a frame-drawing function. The function
// must be deterministic in i.
func Generate(spec Spec, count int, fn func(i int, dst *image.RGBA) error) Producer {
	return &funcProducer{spec: spec, count: count, fn: fn}
}

type funcProducer struct {
	spec  Spec
	count int
	fn    func(i int, dst *image.RGBA) error
}

func (p *funcProducer) Spec() Spec      { return p.spec }
func (p *funcProducer) FrameCount() int { return p.count }

func (p *funcProducer) Frame(i int) (*image.RGBA, error) {
	if i < 0 || i >= p.count {
		return nil, fmt.Errorf("frame index %d out of range [0,%d)", i, p.count)
	}
	dst := image.NewRGBA(p.spec.Bounds())
	if err := p.fn(i, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// Solid produces count identical frames of one color.
func Solid(spec Spec, count int, c color.RGBA) Producer {
	return Generate(spec, count, func(_ int, dst *image.RGBA) error {
		Fill(dst, c)
		return nil
	})
}

// Fill paints the whole frame with one color.
func Fill(dst *image.RGBA, c color.RGBA) {
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.SetRGBA(x, y, c)
		}
	}
}

// FromImage produces count frames of one still image scaled to the spec.
func FromImage(spec Spec, count int, img image.Image) Producer {
	scaled := Scale(img, spec.Bounds())
	return Generate(spec, count, func(_ int, dst *image.RGBA) error {
		copy(dst.Pix, scaled.Pix)
		return nil
	})
}

// Scale resizes src to the target rectangle with nearest-neighbor sampling.
func Scale(src image.Image, to image.Rectangle) *image.RGBA {
	dst := image.NewRGBA(to)
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return dst
	}
	for y := 0; y < to.Dy(); y++ {
		sy := sb.Min.Y + y*sb.Dy()/to.Dy()
		for x := 0; x < to.Dx(); x++ {
			sx := sb.Min.X + x*sb.Dx()/to.Dx()
			dst.Set(to.Min.X+x, to.Min.Y+y, src.At(sx, sy))
		}
	}
	return dst
}
