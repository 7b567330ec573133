package audio

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWAVRoundTrip(t *testing.T) {
	t.Parallel()

	src := &Buffer{SampleRate: 8000, Samples: []float64{0, 0.5, -0.5, 1.0, -1.0, 1.5}}
	path := filepath.Join(t.TempDir(), "roundtrip.wav")
	require.NoError(t, WriteWAVFile(path, src))

	got, err := ReadWAVFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8000, got.SampleRate)
	require.Len(t, got.Samples, len(src.Samples))

	// PCM16 quantization costs at most 1/32767 per sample; the 1.5 input
	// clamps to full scale.
	want := []float64{0, 0.5, -0.5, 1.0, -1.0, 1.0}
	for i := range want {
		assert.InDelta(t, want[i], got.Samples[i], 1.0/32000, "sample %d", i)
	}
}

func TestReadWAV_DownmixesStereo(t *testing.T) {
	t.Parallel()

	// Hand-built stereo stream: two frames, L/R pairs (16000, 0) and (0, -16000).
	var buf bytes.Buffer
	writeStereoWAV(&buf, 4000, [][2]int16{{16000, 0}, {0, -16000}})

	got, err := ReadWAV(&buf)
	require.NoError(t, err)
	require.Len(t, got.Samples, 2)
	assert.InDelta(t, 16000.0/32768/2, got.Samples[0], 1e-9)
	assert.InDelta(t, -16000.0/32768/2, got.Samples[1], 1e-9)
}

func TestReadWAV_Errors(t *testing.T) {
	t.Parallel()

	t.Run("not a wav", func(t *testing.T) {
		t.Parallel()
		_, err := ReadWAV(bytes.NewReader([]byte("OGGSxxxxxxxxxxxxxxxx")))
		assert.Error(t, err)
	})

	t.Run("missing data chunk", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		buf.WriteString("RIFF")
		binary.Write(&buf, binary.LittleEndian, uint32(4))
		buf.WriteString("WAVE")
		_, err := ReadWAV(&buf)
		assert.ErrorContains(t, err, "no data chunk")
	})
}

func writeStereoWAV(buf *bytes.Buffer, rate int, frames [][2]int16) {
	dataSize := uint32(len(frames) * 4)
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(2))
	binary.Write(buf, binary.LittleEndian, uint32(rate))
	binary.Write(buf, binary.LittleEndian, uint32(rate*4))
	binary.Write(buf, binary.LittleEndian, uint16(4))
	binary.Write(buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, dataSize)
	for _, f := range frames {
		binary.Write(buf, binary.LittleEndian, f[0])
		binary.Write(buf, binary.LittleEndian, f[1])
	}
}
