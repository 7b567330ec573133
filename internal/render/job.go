// Package render owns the single engine entry point: it builds the
// timeline, threads it through the plugin chains and composers, drives the
// selected backend, and accounts every consumed asset into the manifest.
package render

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vk/modmotion/internal/assets"
	"github.com/vk/modmotion/internal/backend"
	"github.com/vk/modmotion/internal/cache"
	"github.com/vk/modmotion/internal/encoder"
	"github.com/vk/modmotion/internal/frame"
	"github.com/vk/modmotion/internal/manifest"
	"github.com/vk/modmotion/internal/model"
	"github.com/vk/modmotion/internal/plugin"
)

// Job is one immutable render request. Construct it, pass it to Render,
// and discard it when the job completes or fails.
type Job struct {
	// ID labels logs and temp artifacts. NewJobID provides one.
	ID string

	Module   *model.Module
	Resolver assets.Resolver
	Encoder  encoder.Encoder

	AudioPlugins  []plugin.Spec
	VisualPlugins []plugin.Spec

	Backend backend.Selection
	// Seed keys deterministic choices so repeated runs are identical. It
	// participates in the cache key.
	Seed int64

	OutputDir  string
	FrameSpec  frame.Spec
	SampleRate int
	MaxLayers  int

	// Workers bounds backend concurrency; LookAhead bounds the streaming
	// reorder buffer.
	Workers   int
	LookAhead int

	// Preview truncates the timeline to its first span; zero renders all.
	Preview time.Duration

	// DisableSilenceFallback turns unresolved audio samples into a
	// MissingAssetError instead of substituted silence.
	DisableSilenceFallback bool

	// Cache short-circuits repeated identical jobs when non-nil.
	Cache *cache.Dir
	// Observer receives backend state and progress; nil discards them.
	Observer backend.Observer
}

// NewJobID returns a fresh job identifier.
func NewJobID() string {
	return uuid.New().String()
}

func (j *Job) validate() error {
	if j.Module == nil {
		return fmt.Errorf("render job: module is required")
	}
	if j.Encoder == nil {
		return fmt.Errorf("render job: encoder is required")
	}
	if j.OutputDir == "" {
		return fmt.Errorf("render job: output directory is required")
	}
	if _, err := backend.ParseSelection(string(j.Backend)); err != nil {
		return fmt.Errorf("render job: %w", err)
	}
	return nil
}

// cacheParams is the canonical, JSON-stable parameter set hashed into the
// cache key. Physical paths stay out; content and configuration go in.
type cacheParams struct {
	Module        *model.Module
	AudioPlugins  []pluginParams
	VisualPlugins []pluginParams
	Backend       backend.Selection
	Seed          int64
	FrameSpec     frame.Spec
	SampleRate    int
	MaxLayers     int
	PreviewMS     int64
	NoFallback    bool
}

type pluginParams struct {
	Name       string
	Capability plugin.Capability
	Config     plugin.Config
}

func (j *Job) cacheKey() (cache.Key, error) {
	p := cacheParams{
		Module:     j.Module,
		Backend:    j.Backend,
		Seed:       j.Seed,
		FrameSpec:  j.FrameSpec,
		SampleRate: j.SampleRate,
		MaxLayers:  j.MaxLayers,
		PreviewMS:  j.Preview.Milliseconds(),
		NoFallback: j.DisableSilenceFallback,
	}
	for _, s := range j.AudioPlugins {
		p.AudioPlugins = append(p.AudioPlugins, pluginParams{Name: s.Name, Capability: s.Capability, Config: s.Config})
	}
	for _, s := range j.VisualPlugins {
		p.VisualPlugins = append(p.VisualPlugins, pluginParams{Name: s.Name, Capability: s.Capability, Config: s.Config})
	}
	return cache.KeyFor(p)
}

// Result is what a completed render hands back.
type Result struct {
	AudioPath    string
	VideoPath    string
	PackageDir   string
	ManifestPath string
	Manifest     *manifest.Manifest
}
