package plugin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/modmotion/internal/audio"
	"github.com/vk/modmotion/internal/frame"
)

type stubAudio struct {
	fn func(*audio.Buffer) (*audio.Buffer, error)
}

func (s *stubAudio) Transform(_ context.Context, buf *audio.Buffer) (*audio.Buffer, error) {
	return s.fn(buf)
}

type stubVisual struct {
	producer frame.Producer
	err      error
}

func (s *stubVisual) Render(context.Context, string, time.Duration, frame.Spec) (frame.Producer, error) {
	return s.producer, s.err
}

type stubEffect struct {
	fn func(frame.Producer) (frame.Producer, error)
}

func (s *stubEffect) Apply(_ context.Context, p frame.Producer) (frame.Producer, error) {
	return s.fn(p)
}

func audioSpec(name string, fn func(*audio.Buffer) (*audio.Buffer, error)) Spec {
	return Spec{Capability: CapabilityAudioEffect, Name: name, Instance: &stubAudio{fn: fn}}
}

func TestNewAudioChain_RejectsVisualCapability(t *testing.T) {
	t.Parallel()

	_, err := NewAudioChain(Spec{Capability: CapabilityVisual, Name: "x", Instance: &stubVisual{}})
	assert.ErrorContains(t, err, "not allowed in an audio chain")
}

func TestNewAudioChain_ValidatesInstance(t *testing.T) {
	t.Parallel()

	_, err := NewAudioChain(Spec{Capability: CapabilityAudio, Name: "x", Instance: struct{}{}})
	assert.ErrorContains(t, err, "does not implement")
}

func TestAudioChain_AppliesInOrder(t *testing.T) {
	t.Parallel()

	double := audioSpec("double", func(b *audio.Buffer) (*audio.Buffer, error) {
		out := b.Clone()
		for i := range out.Samples {
			out.Samples[i] *= 2
		}
		return out, nil
	})
	addOne := audioSpec("add-one", func(b *audio.Buffer) (*audio.Buffer, error) {
		out := b.Clone()
		for i := range out.Samples {
			out.Samples[i]++
		}
		return out, nil
	})

	chain, err := NewAudioChain(double, addOne)
	require.NoError(t, err)

	in := &audio.Buffer{SampleRate: 4, Samples: []float64{0.1, 0.2}}
	out := chain.Apply(context.Background(), in)
	assert.Equal(t, []float64{1.2, 1.4}, out.Samples, "(x*2)+1, not (x+1)*2")
}

func TestAudioChain_FailedPluginPassesThrough(t *testing.T) {
	t.Parallel()

	boom := audioSpec("boom", func(*audio.Buffer) (*audio.Buffer, error) {
		return nil, errors.New("kaput")
	})
	double := audioSpec("double", func(b *audio.Buffer) (*audio.Buffer, error) {
		out := b.Clone()
		for i := range out.Samples {
			out.Samples[i] *= 2
		}
		return out, nil
	})

	chain, err := NewAudioChain(boom, double)
	require.NoError(t, err)

	in := &audio.Buffer{SampleRate: 4, Samples: []float64{0.5}}
	out := chain.Apply(context.Background(), in)
	assert.Equal(t, []float64{1.0}, out.Samples, "failure skips one plugin only")
}

func TestAudioChain_NilAndEmpty(t *testing.T) {
	t.Parallel()

	in := &audio.Buffer{SampleRate: 4, Samples: []float64{0.3}}

	var nilChain *AudioChain
	assert.Equal(t, in, nilChain.Apply(context.Background(), in))
	assert.Equal(t, 0, nilChain.Len())

	empty, err := NewAudioChain()
	require.NoError(t, err)
	assert.Equal(t, in, empty.Apply(context.Background(), in), "empty chain is identity")
}

func TestVisualChain_RenderSourceFirstProducerWins(t *testing.T) {
	t.Parallel()

	spec := frame.Spec{Width: 4, Height: 4, FPS: 10}
	first := frame.Solid(spec, 1, colorRed)
	second := frame.Solid(spec, 1, colorBlue)

	chain, err := NewVisualChain(
		Spec{Capability: CapabilityVisual, Name: "a", Instance: &stubVisual{producer: first}},
		Spec{Capability: CapabilityVisual, Name: "b", Instance: &stubVisual{producer: second}},
	)
	require.NoError(t, err)

	p, err := chain.RenderSource(context.Background(), "kick", time.Second, spec)
	require.NoError(t, err)
	assert.Equal(t, first, p)
}

func TestVisualChain_RenderSourceFailureIsTyped(t *testing.T) {
	t.Parallel()

	chain, err := NewVisualChain(
		Spec{Capability: CapabilityVisual, Name: "broken", Instance: &stubVisual{err: errors.New("no frames")}},
	)
	require.NoError(t, err)
	assert.True(t, chain.HasVisualSource())

	p, err := chain.RenderSource(context.Background(), "kick", time.Second, frame.Spec{Width: 4, Height: 4, FPS: 10})
	assert.Nil(t, p)
	require.Error(t, err)
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "broken", failure.Plugin)
}

func TestVisualChain_ApplyEffectsRefitsChangedCount(t *testing.T) {
	t.Parallel()

	spec := frame.Spec{Width: 4, Height: 4, FPS: 10}
	shrink := Spec{Capability: CapabilityVisualEffect, Name: "shrink", Instance: &stubEffect{
		fn: func(p frame.Producer) (frame.Producer, error) {
			s, err := frame.Slice(p, 0, 1)
			return s, err
		},
	}}
	chain, err := NewVisualChain(shrink)
	require.NoError(t, err)

	in := frame.Solid(spec, 5, colorRed)
	out := chain.ApplyEffects(context.Background(), in)
	assert.Equal(t, 5, out.FrameCount(), "effect output is refit to the declared count")
}

func TestVisualChain_LayersSkipsFailures(t *testing.T) {
	t.Parallel()

	spec := frame.Spec{Width: 8, Height: 8, FPS: 10}
	chain, err := NewVisualChain(
		Spec{Capability: CapabilityLayeredVisual, Name: "bars", Instance: &channelBarsPlugin{bars: 4}},
	)
	require.NoError(t, err)

	layers := chain.Layers(context.Background(), "kick", time.Second, spec)
	assert.Len(t, layers, 2)
	assert.False(t, chain.HasVisualSource(), "layered visuals are not standalone sources")
}
