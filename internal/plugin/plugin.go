// Package plugin defines the capability-typed plugin model and the ordered
// chains the render pipeline threads media through. A plugin is a closed
// capability-tagged variant: the tag fixes which single operation the
// instance must provide, and dispatch happens by tag rather than through an
// open class hierarchy.
package plugin

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/modmotion/internal/audio"
	"github.com/vk/modmotion/internal/frame"
)

// Capability tags the one operation a plugin instance provides.
type Capability string

const (
	// CapabilityAudio and CapabilityAudioEffect both transform an audio
	// buffer; they are distinct tags because generators and effects are
	// declared separately in job files.
	CapabilityAudio       Capability = "audio"
	CapabilityAudioEffect Capability = "audio_effect"
	// CapabilityVisual renders a frame producer for a timeline entry.
	CapabilityVisual Capability = "visual"
	// CapabilityVisualEffect rewrites a frame producer, preserving duration.
	CapabilityVisualEffect Capability = "visual_effect"
	// CapabilityLayeredVisual emits z-ordered layers for compositing.
	CapabilityLayeredVisual Capability = "layered_visual"
)

// Config is a plugin's string→primitive configuration mapping.
type Config map[string]any

// Float reads a numeric config value, falling back to def.
func (c Config) Float(key string, def float64) float64 {
	switch v := c[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

// Int reads an integer config value, falling back to def.
func (c Config) Int(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// String reads a string config value, falling back to def.
func (c Config) String(key string, def string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return def
}

// Audio is the operation contract for Audio and AudioEffect plugins. With an
// empty config the transform must return its input unchanged.
type Audio interface {
	Transform(ctx context.Context, buf *audio.Buffer) (*audio.Buffer, error)
}

// Visual renders a frame producer for one timeline entry. It must produce
// exactly `duration` worth of frames at the composer's frame rate.
type Visual interface {
	Render(ctx context.Context, assetRef string, duration time.Duration, spec frame.Spec) (frame.Producer, error)
}

// VisualEffect rewrites a frame producer. Chainable; the declared frame
// count must be preserved.
type VisualEffect interface {
	Apply(ctx context.Context, p frame.Producer) (frame.Producer, error)
}

// LayeredVisual emits an ordered set of layers that are composited by
// ascending z-index with per-layer opacity and blend mode.
type LayeredVisual interface {
	CreateLayers(ctx context.Context, assetRef string, duration time.Duration, spec frame.Spec) ([]frame.Layer, error)
}

// Spec is one declared plugin: capability tag, name, configuration, and the
// already-instantiated operation implementation. The owning chain holds the
// instance exclusively for the lifetime of one render job.
type Spec struct {
	Capability Capability
	Name       string
	Config     Config
	Instance   any
}

// Validate checks that the instance satisfies the capability's contract.
func (s Spec) Validate() error {
	var ok bool
	switch s.Capability {
	case CapabilityAudio, CapabilityAudioEffect:
		_, ok = s.Instance.(Audio)
	case CapabilityVisual:
		_, ok = s.Instance.(Visual)
	case CapabilityVisualEffect:
		_, ok = s.Instance.(VisualEffect)
	case CapabilityLayeredVisual:
		_, ok = s.Instance.(LayeredVisual)
	default:
		return fmt.Errorf("plugin %q: unknown capability %q", s.Name, s.Capability)
	}
	if !ok {
		return fmt.Errorf("plugin %q: instance does not implement capability %q", s.Name, s.Capability)
	}
	return nil
}

// Failure wraps a plugin error with identity context. Non-fatal failures are
// logged and recovered by passthrough; only a missing visual source is fatal.
type Failure struct {
	Plugin     string
	Capability Capability
	Err        error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("plugin %q (%s) failed: %v", f.Plugin, f.Capability, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }
