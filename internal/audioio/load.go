// Package audioio decodes recordings into mono float64 signals and writes
// WAV files.
package audioio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// ErrUnsupportedFormat is returned for file extensions no decoder handles.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Signal is a mono recording at a fixed sample rate.
type Signal struct {
	Samples    []float64
	SampleRate int
}

// Seconds returns the signal duration.
func (s Signal) Seconds() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// pcm is decoded interleaved audio normalised to [-1, 1].
type pcm struct {
	samples    []float64
	channels   int
	sampleRate int
}

type decodeFunc func(f *os.File) (pcm, error)

var decoders = map[string]decodeFunc{
	".wav":  func(f *os.File) (pcm, error) { return decodeWAV(f) },
	".mp3":  decodeMP3,
	".ogg":  decodeOgg,
	".flac": decodeFLAC,
}

var mimeTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

// IsSupportedExt reports whether ext (with leading dot, any case) can be decoded.
func IsSupportedExt(ext string) bool {
	_, ok := decoders[strings.ToLower(ext)]
	return ok
}

// MIMEType returns the MIME type used for an HTML audio source.
func MIMEType(ext string) string {
	if m, ok := mimeTypes[strings.ToLower(ext)]; ok {
		return m
	}
	return "audio/wav"
}

// Load decodes path, averages its channels to mono and resamples to
// targetSampleRate. A non-positive target keeps the native rate.
func Load(path string, targetSampleRate int) (Signal, error) {
	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return Signal{}, fmt.Errorf("%s: %w %q", path, ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return Signal{}, err
	}
	defer f.Close()

	p, err := decode(f)
	if err != nil {
		return Signal{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if p.sampleRate <= 0 {
		return Signal{}, fmt.Errorf("decode %s: invalid sample rate %d", path, p.sampleRate)
	}

	mono := Downmix(p.samples, p.channels)
	rate := p.sampleRate
	if targetSampleRate > 0 && targetSampleRate != rate {
		mono, err = Resample(mono, rate, targetSampleRate)
		if err != nil {
			return Signal{}, fmt.Errorf("resample %s: %w", path, err)
		}
		rate = targetSampleRate
	}
	return Signal{Samples: mono, SampleRate: rate}, nil
}

// Downmix averages interleaved frames into a mono signal. A trailing partial
// frame is dropped.
func Downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		out := make([]float64, len(interleaved))
		copy(out, interleaved)
		return out
	}
	frames := len(interleaved) / channels
	out := make([]float64, frames)
	inv := 1.0 / float64(channels)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += interleaved[i*channels+ch]
		}
		out[i] = sum * inv
	}
	return out
}

// Resample converts in from fromRate to toRate. Equal rates return in as is.
func Resample(in []float64, fromRate int, toRate int) ([]float64, error) {
	if fromRate == toRate {
		return in, nil
	}
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("invalid rates %d -> %d", fromRate, toRate)
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	return r.Process(in), nil
}

// go-mp3 always produces 16-bit little-endian stereo.
func decodeMP3(f *os.File) (pcm, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return pcm{}, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return pcm{}, err
	}
	n := len(raw) / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		out[i] = float64(v) / 32768
	}
	return pcm{samples: out, channels: 2, sampleRate: dec.SampleRate()}, nil
}

func decodeOgg(f *os.File) (pcm, error) {
	r, err := oggvorbis.NewReader(f)
	if err != nil {
		return pcm{}, err
	}
	channels := r.Channels()
	if channels < 1 {
		return pcm{}, fmt.Errorf("invalid channel count %d", channels)
	}

	var out []float64
	buf := make([]float32, 4096*channels)
	for {
		n, err := r.Read(buf)
		for _, v := range buf[:n] {
			out = append(out, float64(v))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return pcm{}, err
		}
		if n == 0 {
			break
		}
	}
	return pcm{samples: out, channels: channels, sampleRate: r.SampleRate()}, nil
}

func decodeFLAC(f *os.File) (pcm, error) {
	stream, err := flac.New(f)
	if err != nil {
		return pcm{}, err
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	bps := int(stream.Info.BitsPerSample)
	if channels < 1 || bps < 1 {
		return pcm{}, fmt.Errorf("invalid stream info: %d channels, %d bits", channels, bps)
	}
	scale := 1.0 / float64(int64(1)<<(bps-1))

	out := make([]float64, 0, int(stream.Info.NSamples)*channels)
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return pcm{}, err
		}
		n := int(frame.Subframes[0].NSamples)
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels; ch++ {
				out = append(out, float64(frame.Subframes[ch].Samples[i])*scale)
			}
		}
	}
	return pcm{samples: out, channels: channels, sampleRate: int(stream.Info.SampleRate)}, nil
}
