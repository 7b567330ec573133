package frame

import (
	"fmt"
	"image"
)

// Concat chains producers end to end. All producers must share the spec of
// the first; the result's frame count is the sum of the parts.
func Concat(parts ...Producer) Producer {
	if len(parts) == 1 {
		return parts[0]
	}
	c := &concatProducer{parts: parts}
	for _, p := range parts {
		c.count += p.FrameCount()
	}
	if len(parts) > 0 {
		c.spec = parts[0].Spec()
	}
	return c
}

type concatProducer struct {
	spec  Spec
	parts []Producer
	count int
}

func (c *concatProducer) Spec() Spec      { return c.spec }
func (c *concatProducer) FrameCount() int { return c.count }

func (c *concatProducer) Frame(i int) (*image.RGBA, error) {
	if i < 0 || i >= c.count {
		return nil, fmt.Errorf("frame index %d out of range [0,%d)", i, c.count)
	}
	for _, p := range c.parts {
		if i < p.FrameCount() {
			return p.Frame(i)
		}
		i -= p.FrameCount()
	}
	return nil, fmt.Errorf("frame index %d unreachable", i)
}

// Slice is a window [from, from+count) over a producer. Backends use it to
// re-materialize sub-segments without re-traversing the whole stream.
func Slice(p Producer, from, count int) (Producer, error) {
	if from < 0 || count < 0 || from+count > p.FrameCount() {
		return nil, fmt.Errorf("slice [%d,%d) out of range [0,%d)", from, from+count, p.FrameCount())
	}
	return &sliceProducer{inner: p, from: from, count: count}, nil
}

type sliceProducer struct {
	inner Producer
	from  int
	count int
}

func (s *sliceProducer) Spec() Spec      { return s.inner.Spec() }
func (s *sliceProducer) FrameCount() int { return s.count }

func (s *sliceProducer) Frame(i int) (*image.RGBA, error) {
	if i < 0 || i >= s.count {
		return nil, fmt.Errorf("frame index %d out of range [0,%d)", i, s.count)
	}
	return s.inner.Frame(s.from + i)
}

// Fit adapts a producer to exactly count frames: a longer source is
// truncated, a shorter one loops with a partial final repeat. Mirrors how
// audio samples are fitted to a row window.
func Fit(p Producer, count int) Producer {
	if p.FrameCount() == count {
		return p
	}
	return &fitProducer{inner: p, count: count}
}

type fitProducer struct {
	inner Producer
	count int
}

func (f *fitProducer) Spec() Spec      { return f.inner.Spec() }
func (f *fitProducer) FrameCount() int { return f.count }

func (f *fitProducer) Frame(i int) (*image.RGBA, error) {
	if i < 0 || i >= f.count {
		return nil, fmt.Errorf("frame index %d out of range [0,%d)", i, f.count)
	}
	n := f.inner.FrameCount()
	if n == 0 {
		dst := image.NewRGBA(f.inner.Spec().Bounds())
		return dst, nil
	}
	return f.inner.Frame(i % n)
}
