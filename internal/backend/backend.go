// Package backend drives one of three interchangeable render strategies over
// a finished audio buffer and a lazy frame stream. All backends honor the
// same contract and, for identical inputs, produce timing-identical output:
// entry boundaries land on the same frames regardless of strategy.
package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/modmotion/internal/audio"
	"github.com/vk/modmotion/internal/frame"
)

// Selection names a render strategy. Supplied by the caller; the engine
// treats all three symmetrically.
type Selection string

const (
	SelectInMemory      Selection = "compose-in-memory"
	SelectSegmentConcat Selection = "segment-concat"
	SelectStreamingPipe Selection = "streaming-pipe"
)

// ParseSelection validates a backend name from configuration.
func ParseSelection(s string) (Selection, error) {
	switch Selection(s) {
	case SelectInMemory, SelectSegmentConcat, SelectStreamingPipe:
		return Selection(s), nil
	}
	return "", fmt.Errorf("unknown render backend %q (want %s, %s, or %s)",
		s, SelectInMemory, SelectSegmentConcat, SelectStreamingPipe)
}

// State is a backend's lifecycle position, reported to the observer on
// every transition.
type State string

const (
	StatePending            State = "pending"
	StatePerSegmentEncoding State = "per-segment-encoding"
	StateConcatenating      State = "concatenating"
	StateStreaming          State = "streaming"
	StateFinalizing         State = "finalizing"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// Job is the input every backend consumes: the finished audio buffer, the
// restartable frame stream, and the frame offsets of timeline-entry
// boundaries (ascending, starting at 0, ending at the total frame count).
type Job struct {
	Audio         *audio.Buffer
	Frames        frame.Producer
	SegmentBounds []int
	OutputPath    string
}

// Result reports where the finished media landed.
type Result struct {
	VideoPath string
}

// RenderBackend is the shared contract over the three strategies.
type RenderBackend interface {
	Render(ctx context.Context, job Job) (*Result, error)
}

// Observer receives backend progress. Callbacks run on render goroutines
// and must not block.
type Observer interface {
	StateChanged(s State)
	Progress(framesDone, framesTotal int)
}

// NoopObserver discards all notifications.
type NoopObserver struct{}

func (NoopObserver) StateChanged(State) {}
func (NoopObserver) Progress(int, int)  {}

func observerOrNoop(o Observer) Observer {
	if o == nil {
		return NoopObserver{}
	}
	return o
}

// writeAudioTemp writes the buffer as a WAV next to the output so the
// encoder can mux it; the caller removes it when done.
func writeAudioTemp(job Job) (string, func(), error) {
	dir := filepath.Dir(job.OutputPath)
	f, err := os.CreateTemp(dir, "modmotion_audio_*.wav")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	f.Close()
	if err := audio.WriteWAVFile(path, job.Audio); err != nil {
		os.Remove(path)
		return "", nil, err
	}
	return path, func() { os.Remove(path) }, nil
}

// discardPartial removes whatever landed at the output path. Failed or
// cancelled jobs never leave a half-written file behind.
func discardPartial(path string) {
	if path != "" {
		os.Remove(path)
	}
}
