// Package encoder defines the contract the engine requires of an external
// media encoder and provides the ffmpeg subprocess implementation. The
// engine depends only on the interface: raw frames in via a stream,
// same-codec segment concat, nonzero exit means failure.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/vk/modmotion/internal/frame"
)

// ErrCodecMismatch signals that a lossless concat was refused because the
// segments do not share a codec. Backends react with the re-encode fallback
// transition rather than failing the job.
var ErrCodecMismatch = errors.New("segment codecs do not match, lossless concat refused")

// EncodeError is a fatal, unrecoverable encoder failure for the current job.
type EncodeError struct {
	Op     string
	Detail string
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("encode failed during %s: %v: %s", e.Op, e.Err, e.Detail)
	}
	return fmt.Sprintf("encode failed during %s: %v", e.Op, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Encoder is the external media encoder contract.
type Encoder interface {
	// EncodeStream consumes frameCount raw RGBA frames from r, muxes the
	// audio file when audioPath is non-empty, and writes one finished
	// media file.
	EncodeStream(ctx context.Context, spec frame.Spec, r io.Reader, frameCount int, audioPath, outPath string) error

	// EncodeSegment encodes one producer into a standalone segment file.
	EncodeSegment(ctx context.Context, p frame.Producer, outPath string) error

	// Concat joins same-codec segments losslessly in order, muxing audio
	// when audioPath is non-empty. Returns ErrCodecMismatch (possibly
	// wrapped) when a lossless join is impossible.
	Concat(ctx context.Context, segments []string, audioPath, outPath string) error

	// Reencode rewrites one segment with the normalized codec settings.
	Reencode(ctx context.Context, segment, outPath string) error

	// ExtractFrames decodes a clip asset into a restartable producer.
	ExtractFrames(ctx context.Context, path string, spec frame.Spec) (frame.Producer, error)
}

// WriteFrames streams a producer's raw RGBA bytes to w in index order.
// Shared by backends that feed an encoder stdin pipe.
func WriteFrames(ctx context.Context, p frame.Producer, w io.Writer) error {
	for i := 0; i < p.FrameCount(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		fr, err := p.Frame(i)
		if err != nil {
			return err
		}
		if _, err := w.Write(fr.Pix); err != nil {
			return err
		}
	}
	return nil
}
