package plugin

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/modmotion/internal/audio"
	"github.com/vk/modmotion/internal/ctxlog"
	"github.com/vk/modmotion/internal/frame"
)

// AudioChain is an ordered list of Audio/AudioEffect plugins. Execution is
// strictly sequential: each plugin consumes the previous output.
type AudioChain struct {
	specs []Spec
}

// NewAudioChain validates that every spec carries an audio capability.
func NewAudioChain(specs ...Spec) (*AudioChain, error) {
	for _, s := range specs {
		if s.Capability != CapabilityAudio && s.Capability != CapabilityAudioEffect {
			return nil, fmt.Errorf("plugin %q: capability %q not allowed in an audio chain", s.Name, s.Capability)
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return &AudioChain{specs: specs}, nil
}

// Len returns the number of plugins in the chain.
func (c *AudioChain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.specs)
}

// Apply threads the buffer through the chain in declaration order. A plugin
// that fails is logged with job context and skipped; the buffer passes
// through unchanged for that single plugin only.
func (c *AudioChain) Apply(ctx context.Context, buf *audio.Buffer) *audio.Buffer {
	if c == nil {
		return buf
	}
	logger := ctxlog.FromContext(ctx)
	for _, s := range c.specs {
		out, err := s.Instance.(Audio).Transform(ctx, buf)
		if err != nil || out == nil {
			logger.Warn("audio plugin failed, passing through unchanged",
				"plugin", s.Name, "capability", s.Capability, "error", err)
			continue
		}
		buf = out
	}
	return buf
}

// VisualChain is an ordered list of Visual, VisualEffect, and LayeredVisual
// plugins. Per-entry application never interleaves across entries.
type VisualChain struct {
	specs []Spec
}

// NewVisualChain validates that every spec carries a visual capability.
func NewVisualChain(specs ...Spec) (*VisualChain, error) {
	for _, s := range specs {
		switch s.Capability {
		case CapabilityVisual, CapabilityVisualEffect, CapabilityLayeredVisual:
		default:
			return nil, fmt.Errorf("plugin %q: capability %q not allowed in a visual chain", s.Name, s.Capability)
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return &VisualChain{specs: specs}, nil
}

// Len returns the number of plugins in the chain.
func (c *VisualChain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.specs)
}

// RenderSource asks Visual plugins, in declaration order, to produce a frame
// source for an entry. The first producer wins. If the chain's first Visual
// plugin fails and no later one produces anything, the returned Failure is
// the fatal "no visual source" case; the caller decides whether a fallback
// source exists.
func (c *VisualChain) RenderSource(ctx context.Context, assetRef string, duration time.Duration, spec frame.Spec) (frame.Producer, error) {
	if c == nil {
		return nil, nil
	}
	logger := ctxlog.FromContext(ctx)
	var firstErr error
	for _, s := range c.specs {
		if s.Capability != CapabilityVisual {
			continue
		}
		p, err := s.Instance.(Visual).Render(ctx, assetRef, duration, spec)
		if err != nil {
			logger.Warn("visual plugin failed to render source",
				"plugin", s.Name, "error", err)
			if firstErr == nil {
				firstErr = &Failure{Plugin: s.Name, Capability: s.Capability, Err: err}
			}
			continue
		}
		if p != nil {
			return p, nil
		}
	}
	return nil, firstErr
}

// ApplyEffects runs VisualEffect plugins over the producer in declaration
// order. A failing effect is logged and skipped. Effects must preserve the
// declared duration; a producer that changes frame count is refitted.
func (c *VisualChain) ApplyEffects(ctx context.Context, p frame.Producer) frame.Producer {
	if c == nil {
		return p
	}
	logger := ctxlog.FromContext(ctx)
	want := p.FrameCount()
	for _, s := range c.specs {
		if s.Capability != CapabilityVisualEffect {
			continue
		}
		out, err := s.Instance.(VisualEffect).Apply(ctx, p)
		if err != nil || out == nil {
			logger.Warn("visual effect failed, passing through unchanged",
				"plugin", s.Name, "error", err)
			continue
		}
		if out.FrameCount() != want {
			out = frame.Fit(out, want)
		}
		p = out
	}
	return p
}

// Layers collects layers from every LayeredVisual plugin in declaration
// order. A failing plugin contributes nothing.
func (c *VisualChain) Layers(ctx context.Context, assetRef string, duration time.Duration, spec frame.Spec) []frame.Layer {
	if c == nil {
		return nil
	}
	logger := ctxlog.FromContext(ctx)
	var layers []frame.Layer
	for _, s := range c.specs {
		if s.Capability != CapabilityLayeredVisual {
			continue
		}
		ls, err := s.Instance.(LayeredVisual).CreateLayers(ctx, assetRef, duration, spec)
		if err != nil {
			logger.Warn("layered visual plugin failed, skipping its layers",
				"plugin", s.Name, "error", err)
			continue
		}
		layers = append(layers, ls...)
	}
	return layers
}

// HasVisualSource reports whether any Visual plugin is declared, i.e. the
// chain can be the sole frame source for entries without clip or image
// assets.
func (c *VisualChain) HasVisualSource() bool {
	if c == nil {
		return false
	}
	for _, s := range c.specs {
		if s.Capability == CapabilityVisual {
			return true
		}
	}
	return false
}
