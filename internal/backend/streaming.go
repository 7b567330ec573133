package backend

import (
	"context"
	"io"
	"sync"

	"github.com/vk/modmotion/internal/ctxlog"
	"github.com/vk/modmotion/internal/encoder"
)

// StreamingPipe pushes raw frames into a long-lived external encoder
// process in strict timeline order. Frame production runs on parallel
// workers over disjoint time ranges; a single consumer reorders finished
// frames through a bounded look-ahead buffer keyed by frame index and feeds
// the encoder's input stream. Producers block once the buffer is full —
// that is the backpressure mechanism.
//
// State machine: Pending → Streaming → Finalizing → Done | Failed.
// Cancellation closes the input stream, terminates the encoder process, and
// removes the partial output file.
type StreamingPipe struct {
	Encoder  encoder.Encoder
	Observer Observer
	// Workers bounds the frame-production pool; values < 1 mean one worker.
	Workers int
	// LookAhead bounds the reorder buffer in frames; values < 1 use 64.
	LookAhead int
}

const defaultLookAhead = 64

func (b *StreamingPipe) Render(ctx context.Context, job Job) (*Result, error) {
	obs := observerOrNoop(b.Observer)
	logger := ctxlog.FromContext(ctx)
	obs.StateChanged(StatePending)

	audioPath, cleanup, err := writeAudioTemp(job)
	if err != nil {
		obs.StateChanged(StateFailed)
		return nil, err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	total := job.Frames.FrameCount()
	lookAhead := b.LookAhead
	if lookAhead < 1 {
		lookAhead = defaultLookAhead
	}
	rb := newReorderBuffer(lookAhead)
	go func() {
		<-ctx.Done()
		rb.fail(ctx.Err())
	}()

	obs.StateChanged(StateStreaming)
	b.startProducers(ctx, job, rb)

	pr, pw := io.Pipe()
	// The encoder may stop reading before the consumer has written every
	// frame; closing the read end releases any pending write so the
	// consumer always exits with Render.
	defer pr.Close()
	go func() {
		pw.CloseWithError(b.consume(ctx, rb, pw, total, obs))
	}()

	err = b.Encoder.EncodeStream(ctx, job.Frames.Spec(), pr, total, audioPath, job.OutputPath)
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	if err != nil {
		logger.Warn("streaming encode did not complete, discarding partial output", "error", err)
		discardPartial(job.OutputPath)
		obs.StateChanged(StateFailed)
		return nil, err
	}

	obs.StateChanged(StateDone)
	return &Result{VideoPath: job.OutputPath}, nil
}

// startProducers fans frame production out over disjoint index ranges.
// Entry boundaries are the natural work units; when none are provided the
// whole stream is one range.
func (b *StreamingPipe) startProducers(ctx context.Context, job Job, rb *reorderBuffer) {
	bounds := job.SegmentBounds
	if len(bounds) < 2 {
		bounds = []int{0, job.Frames.FrameCount()}
	}
	type span struct{ from, to int }
	tasks := make(chan span)

	workers := b.Workers
	if workers < 1 {
		workers = 1
	}
	for w := 0; w < workers; w++ {
		go func() {
			for t := range tasks {
				for i := t.from; i < t.to; i++ {
					if ctx.Err() != nil {
						return
					}
					fr, err := job.Frames.Frame(i)
					if err != nil {
						rb.fail(err)
						return
					}
					if !rb.put(i, fr.Pix) {
						return
					}
				}
			}
		}()
	}

	go func() {
		defer close(tasks)
		for i := 0; i+1 < len(bounds); i++ {
			select {
			case tasks <- span{from: bounds[i], to: bounds[i+1]}:
			case <-ctx.Done():
				return
			}
		}
	}()
}

// consume drains the reorder buffer in frame order into the encoder's input
// stream. It owns the Finalizing transition once the last frame is written.
func (b *StreamingPipe) consume(ctx context.Context, rb *reorderBuffer, w io.Writer, total int, obs Observer) error {
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := rb.take()
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			rb.fail(err)
			return err
		}
		obs.Progress(i+1, total)
	}
	obs.StateChanged(StateFinalizing)
	return nil
}

// reorderBuffer hands frames to the consumer in index order while letting
// producers finish out of order. put blocks while the window [next,
// next+capacity) is full; take blocks until the next frame in order exists.
type reorderBuffer struct {
	mu       sync.Mutex
	cond     *sync.Cond
	pending  map[int][]byte
	next     int
	capacity int
	failed   error
}

func newReorderBuffer(capacity int) *reorderBuffer {
	rb := &reorderBuffer{
		pending:  make(map[int][]byte),
		capacity: capacity,
	}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// put stores frame i, blocking while it is beyond the look-ahead window.
// Returns false once the buffer has failed.
func (rb *reorderBuffer) put(i int, data []byte) bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	for rb.failed == nil && i >= rb.next+rb.capacity {
		rb.cond.Wait()
	}
	if rb.failed != nil {
		return false
	}
	rb.pending[i] = data
	rb.cond.Broadcast()
	return true
}

// take returns the next frame in order, blocking until it arrives.
func (rb *reorderBuffer) take() ([]byte, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	for rb.failed == nil {
		if data, ok := rb.pending[rb.next]; ok {
			delete(rb.pending, rb.next)
			rb.next++
			rb.cond.Broadcast()
			return data, nil
		}
		rb.cond.Wait()
	}
	return nil, rb.failed
}

// fail poisons the buffer, waking all waiters. The first error wins.
func (rb *reorderBuffer) fail(err error) {
	if err == nil {
		return
	}
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.failed == nil {
		rb.failed = err
	}
	rb.cond.Broadcast()
}
