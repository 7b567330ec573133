package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// ReadWAVFile decodes a PCM16 WAV file into a mono buffer. Multi-channel
// input is downmixed by averaging.
func ReadWAVFile(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadWAV(f)
}

// ReadWAV decodes PCM16 WAV data from r.
func ReadWAV(r io.Reader) (*Buffer, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE stream")
	}

	var (
		channels   int
		sampleRate int
		bits       int
	)

	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("wav stream has no data chunk")
			}
			return nil, err
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			fmtBody := make([]byte, size)
			if _, err := io.ReadFull(r, fmtBody); err != nil {
				return nil, err
			}
			format := binary.LittleEndian.Uint16(fmtBody[0:2])
			if format != 1 {
				return nil, fmt.Errorf("unsupported wav format tag %d (PCM only)", format)
			}
			channels = int(binary.LittleEndian.Uint16(fmtBody[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(fmtBody[4:8]))
			bits = int(binary.LittleEndian.Uint16(fmtBody[14:16]))
			if bits != 16 {
				return nil, fmt.Errorf("unsupported wav bit depth %d (16 only)", bits)
			}
		case "data":
			if channels == 0 || sampleRate == 0 {
				return nil, fmt.Errorf("wav data chunk precedes fmt chunk")
			}
			raw := make([]byte, size)
			if _, err := io.ReadFull(r, raw); err != nil {
				return nil, err
			}
			frames := len(raw) / (2 * channels)
			buf := &Buffer{SampleRate: sampleRate, Samples: make([]float64, frames)}
			for i := 0; i < frames; i++ {
				var acc float64
				for c := 0; c < channels; c++ {
					off := (i*channels + c) * 2
					v := int16(binary.LittleEndian.Uint16(raw[off : off+2]))
					acc += float64(v) / 32768.0
				}
				buf.Samples[i] = acc / float64(channels)
			}
			return buf, nil
		default:
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				return nil, err
			}
		}
	}
}

// WriteWAVFile encodes the buffer as a mono PCM16 WAV file, clamping samples
// to [-1, 1].
func WriteWAVFile(path string, b *Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV(f, b); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteWAV encodes the buffer as mono PCM16 WAV data to w.
func WriteWAV(w io.Writer, b *Buffer) error {
	dataSize := uint32(len(b.Samples) * 2)
	var header [44]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataSize)
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], 1)
	binary.LittleEndian.PutUint32(header[24:28], uint32(b.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(b.SampleRate)*2)
	binary.LittleEndian.PutUint16(header[32:34], 2)
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)
	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	pcm := make([]byte, len(b.Samples)*2)
	for i, s := range b.Samples {
		v := int16(math.Round(math.Max(-1, math.Min(1, s)) * 32767))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	_, err := w.Write(pcm)
	return err
}
