package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vk/modmotion/internal/ctxlog"
	"github.com/vk/modmotion/internal/encoder"
	"github.com/vk/modmotion/internal/frame"
)

// SegmentConcat encodes one segment file per timeline entry, optionally in
// parallel on a bounded worker pool, then concatenates them in timeline
// order. When the lossless concat is refused for mismatched codecs, the
// backend transitions back to per-segment encoding for a normalization pass
// and concatenates again.
//
// State machine:
//
//	Pending → PerSegmentEncoding → Concatenating → Done
//	                      ↑               │
//	                      └── re-encode ──┘
//	any segment failure → Failed (job fails entirely, no partial output)
type SegmentConcat struct {
	Encoder  encoder.Encoder
	Observer Observer
	// Workers bounds the per-segment encode pool; values < 1 mean serial.
	Workers int
}

func (b *SegmentConcat) Render(ctx context.Context, job Job) (*Result, error) {
	obs := observerOrNoop(b.Observer)
	logger := ctxlog.FromContext(ctx)
	obs.StateChanged(StatePending)

	segments, err := segmentsOf(job)
	if err != nil {
		obs.StateChanged(StateFailed)
		return nil, err
	}

	workDir, err := os.MkdirTemp(filepath.Dir(job.OutputPath), "modmotion_segments_")
	if err != nil {
		obs.StateChanged(StateFailed)
		return nil, err
	}
	defer os.RemoveAll(workDir)

	obs.StateChanged(StatePerSegmentEncoding)
	segFiles := make([]string, len(segments))
	for i := range segFiles {
		segFiles[i] = filepath.Join(workDir, fmt.Sprintf("seg_%05d.mp4", i))
	}
	if err := b.encodeAll(ctx, segments, segFiles, obs); err != nil {
		obs.StateChanged(StateFailed)
		discardPartial(job.OutputPath)
		return nil, err
	}

	audioPath, cleanup, err := writeAudioTemp(job)
	if err != nil {
		obs.StateChanged(StateFailed)
		return nil, err
	}
	defer cleanup()

	obs.StateChanged(StateConcatenating)
	err = b.Encoder.Concat(ctx, segFiles, audioPath, job.OutputPath)
	if errors.Is(err, encoder.ErrCodecMismatch) {
		// Re-encode fallback: normalize every segment, then concatenate
		// again. Modeled as explicit state transitions so it is testable
		// as such.
		logger.Warn("lossless concat refused, re-encoding segments", "error", err)
		obs.StateChanged(StatePerSegmentEncoding)
		normFiles := make([]string, len(segFiles))
		for i, seg := range segFiles {
			normFiles[i] = filepath.Join(workDir, fmt.Sprintf("seg_%05d_norm.mp4", i))
			if err := b.Encoder.Reencode(ctx, seg, normFiles[i]); err != nil {
				obs.StateChanged(StateFailed)
				discardPartial(job.OutputPath)
				return nil, err
			}
		}
		obs.StateChanged(StateConcatenating)
		err = b.Encoder.Concat(ctx, normFiles, audioPath, job.OutputPath)
	}
	if err != nil {
		obs.StateChanged(StateFailed)
		discardPartial(job.OutputPath)
		return nil, err
	}

	obs.StateChanged(StateDone)
	return &Result{VideoPath: job.OutputPath}, nil
}

// encodeAll runs per-segment encodes on a bounded worker pool. Each worker
// owns its segment exclusively; the first failure cancels the remaining
// in-flight workers. Returning nil is the single-threaded barrier the
// concatenation step waits behind.
func (b *SegmentConcat) encodeAll(ctx context.Context, segments []frame.Producer, segFiles []string, obs Observer) error {
	workers := b.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(segments) {
		workers = len(segments)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type task struct{ idx int }
	taskChan := make(chan task)
	errOnce := sync.Once{}
	var firstErr error
	var wg sync.WaitGroup
	var done sync.WaitGroup
	var completed sync.Map

	done.Add(workers)
	for w := 0; w < workers; w++ {
		go func(workerID int) {
			defer done.Done()
			logger := ctxlog.FromContext(ctx)
			for t := range taskChan {
				if ctx.Err() != nil {
					wg.Done()
					continue
				}
				logger.Debug("Worker encoding segment.", "workerID", workerID, "segment", t.idx)
				if err := b.Encoder.EncodeSegment(ctx, segments[t.idx], segFiles[t.idx]); err != nil {
					errOnce.Do(func() {
						firstErr = fmt.Errorf("segment %d: %w", t.idx, err)
						cancel()
					})
					wg.Done()
					continue
				}
				completed.Store(t.idx, struct{}{})
				obs.Progress(lenOf(&completed), len(segments))
				wg.Done()
			}
		}(w)
	}

	wg.Add(len(segments))
	for i := range segments {
		taskChan <- task{idx: i}
	}
	close(taskChan)
	wg.Wait()
	done.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// segmentsOf slices the frame stream at entry boundaries, in timeline
// order. Entries shorter than one frame round to zero-length windows and
// are skipped; their time is carried by the rounding of their neighbors.
func segmentsOf(job Job) ([]frame.Producer, error) {
	bounds := job.SegmentBounds
	if len(bounds) < 2 {
		return []frame.Producer{job.Frames}, nil
	}
	var out []frame.Producer
	for i := 0; i+1 < len(bounds); i++ {
		if bounds[i+1] == bounds[i] {
			continue
		}
		seg, err := frame.Slice(job.Frames, bounds[i], bounds[i+1]-bounds[i])
		if err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	return out, nil
}

func lenOf(m *sync.Map) int {
	n := 0
	m.Range(func(_, _ any) bool { n++; return true })
	return n
}
