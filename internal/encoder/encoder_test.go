package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/modmotion/internal/frame"
)

func TestWriteFrames(t *testing.T) {
	t.Parallel()

	spec := frame.Spec{Width: 2, Height: 1, FPS: 4}
	p := frame.Generate(spec, 3, func(i int, dst *image.RGBA) error {
		dst.Pix[0] = uint8(i + 1)
		return nil
	})

	var buf bytes.Buffer
	require.NoError(t, WriteFrames(context.Background(), p, &buf))
	require.Len(t, buf.Bytes(), 3*2*1*4)
	assert.EqualValues(t, 1, buf.Bytes()[0])
	assert.EqualValues(t, 2, buf.Bytes()[8])
	assert.EqualValues(t, 3, buf.Bytes()[16])
}

func TestWriteFrames_Cancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	spec := frame.Spec{Width: 2, Height: 1, FPS: 4}
	p := frame.Solid(spec, 3, image.NewRGBA(spec.Bounds()).RGBAAt(0, 0))
	var buf bytes.Buffer
	err := WriteFrames(ctx, p, &buf)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())
}

func TestEncodeError(t *testing.T) {
	t.Parallel()

	inner := errors.New("exit status 1")
	err := &EncodeError{Op: "concat", Detail: "seg_00001.mp4", Err: inner}
	assert.Contains(t, err.Error(), "concat")
	assert.Contains(t, err.Error(), "seg_00001.mp4")
	assert.ErrorIs(t, err, inner)

	bare := &EncodeError{Op: "stream encode", Err: inner}
	assert.Equal(t, "encode failed during stream encode: exit status 1", bare.Error())
}

func TestErrCodecMismatch_SurvivesWrapping(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("%w: exit status 1", ErrCodecMismatch)
	assert.ErrorIs(t, wrapped, ErrCodecMismatch)
}

func TestWriteConcatList(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	segA := dir + "/seg_a.mp4"
	segB := dir + "/seg's.mp4"

	listFile, cleanup, err := writeConcatList([]string{segA, segB})
	require.NoError(t, err)
	defer cleanup()

	data, err := os.ReadFile(listFile)
	require.NoError(t, err)
	content := string(data)

	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "file '"), "concat demuxer entry format")
	assert.Contains(t, lines[0], "seg_a.mp4")
	assert.Contains(t, lines[1], `'\''`, "single quotes are escaped for the demuxer")

	cleanup()
	_, err = os.Stat(listFile)
	assert.True(t, os.IsNotExist(err), "cleanup removes the list")
}

func TestTail(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", tail("  short  ", 400))
	assert.Equal(t, "cdef", tail("abcdef", 4))
}

func TestFFmpegDefaults(t *testing.T) {
	t.Parallel()

	f := &FFmpeg{}
	assert.Equal(t, "ffmpeg", f.binary())
	assert.Equal(t, DefaultTimeout, f.timeout())

	f = &FFmpeg{Binary: "/opt/ffmpeg/bin/ffmpeg", Timeout: DefaultTimeout / 2}
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", f.binary())
	assert.Equal(t, DefaultTimeout/2, f.timeout())
}
