package encoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/vk/modmotion/internal/ctxlog"
	"github.com/vk/modmotion/internal/frame"
)

// DefaultTimeout bounds any single encoder invocation. No encoder call may
// block indefinitely; on expiry the process is killed and the call reports
// an EncodeError.
const DefaultTimeout = 10 * time.Minute

// FFmpeg drives the ffmpeg binary as a subprocess.
type FFmpeg struct {
	// Binary is the executable name or path; "ffmpeg" when empty.
	Binary string
	// Timeout replaces DefaultTimeout when positive.
	Timeout time.Duration
}

func (f *FFmpeg) binary() string {
	if f.Binary != "" {
		return f.Binary
	}
	return "ffmpeg"
}

func (f *FFmpeg) timeout() time.Duration {
	if f.Timeout > 0 {
		return f.Timeout
	}
	return DefaultTimeout
}

// run executes one ffmpeg invocation under the timeout, feeding stdin when
// non-nil. Nonzero exit becomes an error carrying trailing stderr.
func (f *FFmpeg) run(ctx context.Context, stdin io.Reader, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout())
	defer cancel()

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Invoking encoder.", "binary", f.binary(), "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, f.binary(), args...)
	cmd.Stdin = stdin
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", f.binary(), err, tail(stderr.String(), 400))
	}
	return nil
}

func (f *FFmpeg) EncodeStream(ctx context.Context, spec frame.Spec, r io.Reader, frameCount int, audioPath, outPath string) error {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", spec.Width, spec.Height),
		"-r", fmt.Sprintf("%d", spec.FPS),
		"-i", "-",
	}
	if audioPath != "" {
		args = append(args, "-i", audioPath, "-c:a", "aac", "-map", "0:v:0", "-map", "1:a:0", "-shortest")
	}
	args = append(args, "-c:v", "libx264", "-preset", "fast", "-pix_fmt", "yuv420p", outPath)

	if err := f.run(ctx, r, args...); err != nil {
		return &EncodeError{Op: "stream encode", Err: err}
	}
	return nil
}

func (f *FFmpeg) EncodeSegment(ctx context.Context, p frame.Producer, outPath string) error {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(WriteFrames(ctx, p, pw))
	}()

	spec := p.Spec()
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", spec.Width, spec.Height),
		"-r", fmt.Sprintf("%d", spec.FPS),
		"-i", "-",
		"-c:v", "libx264", "-preset", "fast", "-pix_fmt", "yuv420p",
		outPath,
	}
	if err := f.run(ctx, pr, args...); err != nil {
		pr.CloseWithError(err)
		return &EncodeError{Op: "segment encode", Detail: outPath, Err: err}
	}
	return nil
}

func (f *FFmpeg) Concat(ctx context.Context, segments []string, audioPath, outPath string) error {
	listFile, cleanup, err := writeConcatList(segments)
	if err != nil {
		return &EncodeError{Op: "concat", Err: err}
	}
	defer cleanup()

	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", listFile}
	if audioPath != "" {
		args = append(args, "-i", audioPath, "-c:a", "aac", "-map", "0:v:0", "-map", "1:a:0", "-shortest")
	}
	args = append(args, "-c:v", "copy", outPath)

	if err := f.run(ctx, nil, args...); err != nil {
		// A refused stream copy is the codec-mismatch case; the backend
		// owns the re-encode transition.
		return fmt.Errorf("%w: %v", ErrCodecMismatch, err)
	}
	return nil
}

func (f *FFmpeg) Reencode(ctx context.Context, segment, outPath string) error {
	args := []string{
		"-y", "-i", segment,
		"-c:v", "libx264", "-preset", "fast", "-crf", "18", "-pix_fmt", "yuv420p",
		outPath,
	}
	if err := f.run(ctx, nil, args...); err != nil {
		return &EncodeError{Op: "re-encode", Detail: segment, Err: err}
	}
	return nil
}

// ExtractFrames decodes a clip into memory as raw RGBA frames. Clip assets
// in tracker modules are row-length snippets, so full materialization stays
// small; the returned producer is restartable by construction.
func (f *FFmpeg) ExtractFrames(ctx context.Context, path string, spec frame.Spec) (frame.Producer, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout())
	defer cancel()

	args := []string{
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", spec.Width, spec.Height),
		"-r", fmt.Sprintf("%d", spec.FPS),
		"-",
	}
	cmd := exec.CommandContext(ctx, f.binary(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &EncodeError{Op: "frame extract", Detail: tail(stderr.String(), 400), Err: err}
	}

	frameSize := spec.Width * spec.Height * 4
	raw := stdout.Bytes()
	count := len(raw) / frameSize
	frames := make([][]byte, count)
	for i := range frames {
		frames[i] = raw[i*frameSize : (i+1)*frameSize]
	}
	return frame.Generate(spec, count, func(i int, dst *image.RGBA) error {
		copy(dst.Pix, frames[i])
		return nil
	}), nil
}

func writeConcatList(segments []string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "modmotion_concat_")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.RemoveAll(dir) }

	var b strings.Builder
	for _, seg := range segments {
		abs, err := filepath.Abs(seg)
		if err != nil {
			cleanup()
			return "", nil, err
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	listFile := filepath.Join(dir, "inputs.txt")
	if err := os.WriteFile(listFile, []byte(b.String()), 0o644); err != nil {
		cleanup()
		return "", nil, err
	}
	return listFile, cleanup, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
