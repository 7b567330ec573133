package composer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/vk/modmotion/internal/assets"
	"github.com/vk/modmotion/internal/ctxlog"
	"github.com/vk/modmotion/internal/frame"
	"github.com/vk/modmotion/internal/plugin"
	"github.com/vk/modmotion/internal/timeline"
)

// ClipSource decodes a video clip asset into frames. The ffmpeg encoder
// implements it; tests substitute a fake.
type ClipSource interface {
	ExtractFrames(ctx context.Context, path string, spec frame.Spec) (frame.Producer, error)
}

// VideoComposer builds the lazy frame stream for a timeline. Per entry it
// resolves a visual source with the priority: explicit clip asset, then
// image fallback, then plugin-generated visual. Channels map to layers via
// the ChannelMapper and are composited in ascending layer order.
type VideoComposer struct {
	Resolver assets.Resolver
	Clips    ClipSource
	Mapper   ChannelMapper
	Spec     frame.Spec

	// DeclaredPath mirrors the audio composer: module-declared sample paths
	// win over resolver lookups when their extension matches the kind.
	DeclaredPath func(sample string) string
}

// Background is the canvas color under all layers.
var Background = color.RGBA{R: 10, G: 10, B: 10, A: 0xff}

// Compose returns the frame producer for the whole timeline plus per-entry
// usage records. The producer is restartable: backends may traverse it once,
// per-segment, or re-materialize sub-ranges.
func (c *VideoComposer) Compose(ctx context.Context, entries []timeline.Entry, chain *plugin.VisualChain) (frame.Producer, []Usage, error) {
	var (
		rowProducers []frame.Producer
		usages       []Usage
	)

	for _, row := range groupRows(entries) {
		p, rowUsages, err := c.composeRow(ctx, row, chain)
		if err != nil {
			return nil, nil, err
		}
		rowProducers = append(rowProducers, p)
		usages = append(usages, rowUsages...)
	}

	if len(rowProducers) == 0 {
		return frame.Solid(c.Spec, 0, Background), usages, nil
	}

	out := frame.Concat(rowProducers...)
	// Global effect pass over the stitched stream; per-entry passes already
	// ran inside composeRow and never interleave across entries.
	out = chain.ApplyEffects(ctx, out)
	return out, usages, nil
}

// composeRow builds one row window: per-channel sources become layers,
// LayeredVisual plugins contribute theirs, and the per-entry effect chain
// runs over the composite.
func (c *VideoComposer) composeRow(ctx context.Context, row []timeline.Entry, chain *plugin.VisualChain) (frame.Producer, []Usage, error) {
	logger := ctxlog.FromContext(ctx)
	start, end := row[0].Start, row[0].End()
	count := c.Spec.FramesBetween(start, end)

	layers := []frame.Layer{{
		Producer: frame.Solid(c.Spec, count, Background),
		Z:        -1,
		Opacity:  1,
		Blend:    frame.BlendNormal,
	}}
	usages := make([]Usage, 0, len(row))

	for _, e := range row {
		u := Usage{Entry: e}
		if e.Sample == "" {
			usages = append(usages, u)
			continue
		}

		src, asset, err := c.sourceFor(ctx, e, count, chain)
		if err != nil {
			return nil, nil, err
		}
		if src == nil {
			// No clip, no image, no visual plugin: deterministic tinted
			// placeholder keyed by channel, recorded as a substitution.
			logger.Warn("no visual source for entry, substituting placeholder",
				"sample", e.Sample, "pattern", e.Pattern, "row", e.Row, "channel", e.Channel)
			src = frame.Solid(c.Spec, count, channelTint(e.Channel))
			u.Substituted = true
		}
		u.Asset = asset

		z := c.Mapper.Layer(e.Channel)
		opacity := 0.9 - float64(z)*0.01
		layers = append(layers, frame.Layer{
			Producer: frame.Fit(src, count),
			Z:        z,
			Opacity:  opacity,
			Blend:    frame.BlendNormal,
		})
		usages = append(usages, u)
	}

	if extra := chain.Layers(ctx, row[0].Sample, end-start, c.Spec); len(extra) > 0 {
		layers = append(layers, extra...)
	}

	comp := frame.CompositeLayers(c.Spec, count, layers)
	comp = chain.ApplyEffects(ctx, comp)
	return comp, usages, nil
}

// sourceFor resolves one entry's frame source in priority order. A nil
// producer with nil error means no source exists; the caller substitutes a
// placeholder. The error is fatal only when a Visual plugin was the entry's
// sole possible source and it failed to produce anything.
func (c *VideoComposer) sourceFor(ctx context.Context, e timeline.Entry, count int, chain *plugin.VisualChain) (frame.Producer, string, error) {
	if path := c.lookup(e.Sample, assets.KindVideo); path != "" && c.Clips != nil {
		p, err := c.Clips.ExtractFrames(ctx, path, c.Spec)
		if err == nil && p != nil {
			return frame.Fit(p, count), path, nil
		}
		ctxlog.FromContext(ctx).Warn("clip asset unreadable, trying fallbacks",
			"path", path, "error", err)
	}

	if path := c.lookup(e.Sample, assets.KindImage); path != "" {
		img, err := decodeImage(path)
		if err == nil {
			return frame.FromImage(c.Spec, count, img), path, nil
		}
		ctxlog.FromContext(ctx).Warn("image asset unreadable, trying fallbacks",
			"path", path, "error", err)
	}

	if chain.HasVisualSource() {
		p, err := chain.RenderSource(ctx, e.Sample, e.Duration, c.Spec)
		if p != nil {
			return frame.Fit(p, count), "", nil
		}
		if err != nil {
			return nil, "", fmt.Errorf("entry pattern=%d row=%d channel=%d has no visual source: %w",
				e.Pattern, e.Row, e.Channel, err)
		}
	}
	return nil, "", nil
}

func (c *VideoComposer) lookup(sample string, kind assets.Kind) string {
	if c.DeclaredPath != nil {
		if p := c.DeclaredPath(sample); p != "" && kindOfPath(p) == kind {
			return p
		}
	}
	if c.Resolver == nil {
		return ""
	}
	p, err := c.Resolver.Resolve(sample, kind)
	if err != nil {
		return ""
	}
	return p
}

func kindOfPath(path string) assets.Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return assets.KindAudio
	case ".mp4", ".mov", ".webm", ".mkv", ".avi":
		return assets.KindVideo
	case ".png", ".jpg", ".jpeg", ".bmp", ".gif":
		return assets.KindImage
	}
	return ""
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

// channelTint is the deterministic per-channel placeholder color.
func channelTint(ch int) color.RGBA {
	return color.RGBA{
		R: uint8(ch * 37 % 255),
		G: uint8(ch * 59 % 255),
		B: uint8(ch * 83 % 255),
		A: 0xff,
	}
}

// groupRows splits the entry sequence into per-row groups. Entries within a
// row share the same start; the builder emits them consecutively.
func groupRows(entries []timeline.Entry) [][]timeline.Entry {
	var rows [][]timeline.Entry
	for i := 0; i < len(entries); {
		j := i + 1
		for j < len(entries) && entries[j].Start == entries[i].Start {
			j++
		}
		rows = append(rows, entries[i:j])
		i = j
	}
	return rows
}
