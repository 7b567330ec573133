package plugin

import (
	"context"
	"hash/fnv"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/vk/modmotion/internal/audio"
	"github.com/vk/modmotion/internal/frame"
)

// RegisterBuiltins installs the built-in plugin set. Job files reference
// these by name; external plugin instances can be injected alongside them.
func RegisterBuiltins(r *Registry) {
	r.Register("gain", func(cfg Config) (Spec, error) {
		return Spec{
			Capability: CapabilityAudioEffect,
			Name:       "gain",
			Config:     cfg,
			Instance:   &gainPlugin{factor: cfg.Float("gain", 1.0)},
		}, nil
	})
	r.Register("normalize", func(cfg Config) (Spec, error) {
		return Spec{
			Capability: CapabilityAudioEffect,
			Name:       "normalize",
			Config:     cfg,
			Instance:   &normalizePlugin{peak: cfg.Float("peak", 0)},
		}, nil
	})
	r.Register("colorwash", func(cfg Config) (Spec, error) {
		return Spec{
			Capability: CapabilityVisual,
			Name:       "colorwash",
			Config:     cfg,
			Instance:   &colorwashPlugin{cycle: cfg.Int("cycle_frames", 0)},
		}, nil
	})
	r.Register("pulse", func(cfg Config) (Spec, error) {
		return Spec{
			Capability: CapabilityVisualEffect,
			Name:       "pulse",
			Config:     cfg,
			Instance: &pulsePlugin{
				depth:  cfg.Float("depth", 0.25),
				period: cfg.Int("period_frames", 12),
			},
		}, nil
	})
	r.Register("channelbars", func(cfg Config) (Spec, error) {
		return Spec{
			Capability: CapabilityLayeredVisual,
			Name:       "channelbars",
			Config:     cfg,
			Instance:   &channelBarsPlugin{bars: cfg.Int("bars", 8)},
		}, nil
	})
}

// gainPlugin scales samples by a constant factor. The default factor of 1.0
// keeps the buffer unchanged.
type gainPlugin struct {
	factor float64
}

func (p *gainPlugin) Transform(_ context.Context, buf *audio.Buffer) (*audio.Buffer, error) {
	if p.factor == 1.0 {
		return buf, nil
	}
	out := buf.Clone()
	for i := range out.Samples {
		out.Samples[i] *= p.factor
	}
	return out, nil
}

// normalizePlugin scales the buffer so its absolute peak hits the configured
// target. A zero target (the default) disables the effect, so an empty
// config passes audio through unchanged.
type normalizePlugin struct {
	peak float64
}

func (p *normalizePlugin) Transform(_ context.Context, buf *audio.Buffer) (*audio.Buffer, error) {
	if p.peak <= 0 {
		return buf, nil
	}
	var max float64
	for _, s := range buf.Samples {
		if a := math.Abs(s); a > max {
			max = a
		}
	}
	if max == 0 {
		return buf, nil
	}
	out := buf.Clone()
	scale := p.peak / max
	for i := range out.Samples {
		out.Samples[i] *= scale
	}
	return out, nil
}

// colorwashPlugin renders solid frames whose color is derived from the asset
// reference, optionally cycling hue over time. Same inputs, same frames.
type colorwashPlugin struct {
	cycle int
}

func (p *colorwashPlugin) Render(_ context.Context, assetRef string, duration time.Duration, spec frame.Spec) (frame.Producer, error) {
	count := spec.FrameIndexAt(duration)
	base := colorForRef(assetRef)
	return frame.Generate(spec, count, func(i int, dst *image.RGBA) error {
		c := base
		if p.cycle > 0 {
			shift := uint8(255 * (i % p.cycle) / p.cycle)
			c = color.RGBA{R: base.R + shift, G: base.G, B: base.B - shift, A: 0xff}
		}
		frame.Fill(dst, c)
		return nil
	}), nil
}

// pulsePlugin modulates frame brightness with a sine of the frame index.
// Frame count is preserved.
type pulsePlugin struct {
	depth  float64
	period int
}

func (p *pulsePlugin) Apply(_ context.Context, src frame.Producer) (frame.Producer, error) {
	period := p.period
	if period < 1 {
		period = 1
	}
	return frame.Generate(src.Spec(), src.FrameCount(), func(i int, dst *image.RGBA) error {
		fr, err := src.Frame(i)
		if err != nil {
			return err
		}
		gain := 1 - p.depth*(0.5+0.5*math.Sin(2*math.Pi*float64(i)/float64(period)))
		for j := 0; j < len(fr.Pix); j += 4 {
			dst.Pix[j] = uint8(float64(fr.Pix[j]) * gain)
			dst.Pix[j+1] = uint8(float64(fr.Pix[j+1]) * gain)
			dst.Pix[j+2] = uint8(float64(fr.Pix[j+2]) * gain)
			dst.Pix[j+3] = fr.Pix[j+3]
		}
		return nil
	}), nil
}

// channelBarsPlugin contributes a dark backdrop plus a bar strip whose lit
// bar tracks the asset reference, composited above the entry's own source.
type channelBarsPlugin struct {
	bars int
}

func (p *channelBarsPlugin) CreateLayers(_ context.Context, assetRef string, duration time.Duration, spec frame.Spec) ([]frame.Layer, error) {
	count := spec.FrameIndexAt(duration)
	bars := p.bars
	if bars < 1 {
		bars = 1
	}
	lit := int(refHash(assetRef) % uint32(bars))

	backdrop := frame.Solid(spec, count, color.RGBA{R: 12, G: 12, B: 60, A: 0xff})
	strip := frame.Generate(spec, count, func(_ int, dst *image.RGBA) error {
		barW := spec.Width / bars
		barH := spec.Height / 8
		for x := lit * barW; x < (lit+1)*barW && x < spec.Width; x++ {
			for y := spec.Height - barH; y < spec.Height; y++ {
				dst.SetRGBA(x, y, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
			}
		}
		return nil
	})

	return []frame.Layer{
		{Producer: backdrop, Z: 0, Opacity: 0.35, Blend: frame.BlendNormal},
		{Producer: strip, Z: 10, Opacity: 0.9, Blend: frame.BlendAdditive},
	}, nil
}

func refHash(ref string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(ref))
	return h.Sum32()
}

func colorForRef(ref string) color.RGBA {
	h := refHash(ref)
	return color.RGBA{
		R: uint8(h),
		G: uint8(h >> 8),
		B: uint8(h >> 16),
		A: 0xff,
	}
}
