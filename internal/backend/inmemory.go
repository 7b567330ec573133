package backend

import (
	"bytes"
	"context"

	"github.com/vk/modmotion/internal/ctxlog"
	"github.com/vk/modmotion/internal/encoder"
)

// InMemoryCompose materializes the entire frame stream and audio buffer in
// memory, then hands both to a single encoding call. Fully sequential; the
// only blocking point is the external encoder itself. Suited to short and
// preview jobs, bounded by available memory.
type InMemoryCompose struct {
	Encoder  encoder.Encoder
	Observer Observer
}

func (b *InMemoryCompose) Render(ctx context.Context, job Job) (*Result, error) {
	obs := observerOrNoop(b.Observer)
	logger := ctxlog.FromContext(ctx)
	obs.StateChanged(StatePending)

	total := job.Frames.FrameCount()
	spec := job.Frames.Spec()

	var buf bytes.Buffer
	buf.Grow(total * spec.Width * spec.Height * 4)
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			obs.StateChanged(StateFailed)
			return nil, err
		}
		fr, err := job.Frames.Frame(i)
		if err != nil {
			obs.StateChanged(StateFailed)
			return nil, err
		}
		buf.Write(fr.Pix)
		obs.Progress(i+1, total)
	}
	logger.Debug("Materialized frame stream in memory.", "frames", total, "bytes", buf.Len())

	audioPath, cleanup, err := writeAudioTemp(job)
	if err != nil {
		obs.StateChanged(StateFailed)
		return nil, err
	}
	defer cleanup()

	obs.StateChanged(StateFinalizing)
	if err := b.Encoder.EncodeStream(ctx, spec, &buf, total, audioPath, job.OutputPath); err != nil {
		discardPartial(job.OutputPath)
		obs.StateChanged(StateFailed)
		return nil, err
	}

	obs.StateChanged(StateDone)
	return &Result{VideoPath: job.OutputPath}, nil
}
