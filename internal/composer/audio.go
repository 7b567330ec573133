package composer

import (
	"context"
	"strconv"

	"github.com/vk/modmotion/internal/assets"
	"github.com/vk/modmotion/internal/audio"
	"github.com/vk/modmotion/internal/ctxlog"
	"github.com/vk/modmotion/internal/plugin"
	"github.com/vk/modmotion/internal/timeline"
)

// AudioComposer assembles one continuous audio buffer from timeline entries.
type AudioComposer struct {
	Resolver   assets.Resolver
	SampleRate int

	// DeclaredPath returns a module-declared file path for a sample name,
	// or "". Declared paths win over resolver lookups.
	DeclaredPath func(sample string) string

	// SilenceFallback substitutes silence for unresolved samples. When
	// false an unresolved sample fails the compose with MissingAssetError.
	SilenceFallback bool

	cache map[string]*audio.Buffer
}

// Compose mixes every entry's sample into a buffer spanning the exact total
// timeline duration. Entries are processed in timeline order and never
// reordered or dropped, rests included; each sample is fitted to its entry
// window (truncated, or looped with a partial final repeat). The audio
// plugin chain runs once over the finished buffer.
func (c *AudioComposer) Compose(ctx context.Context, entries []timeline.Entry, chain *plugin.AudioChain) (*audio.Buffer, []Usage, error) {
	logger := ctxlog.FromContext(ctx)
	rate := c.SampleRate
	if rate <= 0 {
		rate = audio.DefaultSampleRate
	}
	out := audio.NewSilence(rate, timeline.Total(entries))
	usages := make([]Usage, 0, len(entries))

	for _, e := range entries {
		u := Usage{Entry: e}
		if e.Sample == "" {
			usages = append(usages, u)
			continue
		}

		path, err := c.resolvePath(e.Sample)
		if err != nil {
			return nil, nil, err
		}
		if path == "" {
			if !c.SilenceFallback {
				return nil, nil, &assets.MissingAssetError{Sample: e.Sample, Kind: assets.KindAudio}
			}
			logger.Warn("audio sample unresolved, substituting silence",
				"sample", e.Sample, "pattern", e.Pattern, "row", e.Row, "channel", e.Channel)
			u.Substituted = true
			usages = append(usages, u)
			continue
		}

		src, err := c.load(path, rate)
		if err != nil {
			if !c.SilenceFallback {
				return nil, nil, err
			}
			logger.Warn("audio sample unreadable, substituting silence",
				"sample", e.Sample, "path", path, "error", err)
			u.Substituted = true
			usages = append(usages, u)
			continue
		}

		from := out.IndexAt(e.Start)
		n := out.IndexAt(e.End()) - from
		seg := src.FitTo(n)
		if v := volumeParam(e); v != 1.0 {
			for i := range seg.Samples {
				seg.Samples[i] *= v
			}
		}
		out.MixAt(from, seg)
		u.Asset = path
		usages = append(usages, u)
	}

	return chain.Apply(ctx, out), usages, nil
}

func (c *AudioComposer) resolvePath(sample string) (string, error) {
	if c.DeclaredPath != nil {
		if p := c.DeclaredPath(sample); p != "" {
			return p, nil
		}
	}
	if c.Resolver == nil {
		return "", nil
	}
	return c.Resolver.Resolve(sample, assets.KindAudio)
}

func (c *AudioComposer) load(path string, rate int) (*audio.Buffer, error) {
	if c.cache == nil {
		c.cache = map[string]*audio.Buffer{}
	}
	if b, ok := c.cache[path]; ok {
		return b, nil
	}
	b, err := audio.ReadWAVFile(path)
	if err != nil {
		return nil, err
	}
	if b.SampleRate != rate {
		b = resample(b, rate)
	}
	c.cache[path] = b
	return b, nil
}

// resample converts between rates with linear interpolation. Good enough for
// fitting short tracker samples; anything fancier belongs in a plugin.
func resample(src *audio.Buffer, rate int) *audio.Buffer {
	if src.SampleRate == rate || len(src.Samples) == 0 {
		return &audio.Buffer{SampleRate: rate, Samples: src.Samples}
	}
	ratio := float64(src.SampleRate) / float64(rate)
	n := int(float64(len(src.Samples)) / ratio)
	out := &audio.Buffer{SampleRate: rate, Samples: make([]float64, n)}
	for i := 0; i < n; i++ {
		pos := float64(i) * ratio
		j := int(pos)
		if j+1 >= len(src.Samples) {
			out.Samples[i] = src.Samples[len(src.Samples)-1]
			continue
		}
		frac := pos - float64(j)
		out.Samples[i] = src.Samples[j]*(1-frac) + src.Samples[j+1]*frac
	}
	return out
}

func volumeParam(e timeline.Entry) float64 {
	if e.Params == nil {
		return 1.0
	}
	if raw, ok := e.Params["volume"]; ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 {
			return v
		}
	}
	return 1.0
}
