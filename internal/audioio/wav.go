package audioio

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

func decodeWAV(r io.ReadSeeker) (pcm, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return pcm{}, fmt.Errorf("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return pcm{}, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return pcm{}, fmt.Errorf("invalid wav buffer")
	}

	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = int(dec.BitDepth)
	}
	if depth <= 0 {
		depth = 16
	}
	scale := 1.0 / float64(int64(1)<<(depth-1))
	offset := 0
	if depth == 8 {
		// 8-bit PCM is unsigned.
		offset = 128
	}

	out := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float64(v-offset) * scale
	}
	return pcm{
		samples:    out,
		channels:   buf.Format.NumChannels,
		sampleRate: buf.Format.SampleRate,
	}, nil
}

// WriteMonoWAV writes samples in [-1, 1] as 16-bit mono PCM, clipping values
// outside that range.
func WriteMonoWAV(path string, data []float64, sampleRate int) error {
	return writeWAV(path, data, 1, sampleRate)
}

// WriteInterleavedWAV writes interleaved samples in [-1, 1] as 16-bit PCM.
func WriteInterleavedWAV(path string, data []float64, channels int, sampleRate int) error {
	if channels < 1 {
		return fmt.Errorf("invalid channel count %d", channels)
	}
	if len(data)%channels != 0 {
		return fmt.Errorf("sample count %d is not a multiple of %d channels", len(data), channels)
	}
	return writeWAV(path, data, channels, sampleRate)
}

func writeWAV(path string, data []float64, channels int, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ints := make([]int, len(data))
	for i, v := range data {
		v = math.Max(-1, math.Min(1, v))
		ints[i] = int(math.Round(v * 32767))
	}

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: channels,
		},
		Data:           ints,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}
