package audioio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(n int, sr int, freq float64, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sr))
	}
	return out
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	in := sine(1600, 16000, 440, 0.5)
	require.NoError(t, WriteMonoWAV(path, in, 16000))

	sig, err := Load(path, 0)
	require.NoError(t, err)
	assert.Equal(t, 16000, sig.SampleRate)
	require.Len(t, sig.Samples, len(in))
	for i := range in {
		require.InDelta(t, in[i], sig.Samples[i], 1.0/16384, "sample %d", i)
	}
	assert.InDelta(t, 0.1, sig.Seconds(), 1e-12)
}

func TestWAVClipsOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, WriteMonoWAV(path, []float64{2, -2, 0}, 8000))

	sig, err := Load(path, 0)
	require.NoError(t, err)
	require.Len(t, sig.Samples, 3)
	assert.InDelta(t, 32767.0/32768, sig.Samples[0], 1e-9)
	assert.InDelta(t, -32767.0/32768, sig.Samples[1], 1e-9)
	assert.Equal(t, 0.0, sig.Samples[2])
}

func TestLoadDownmixesStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	interleaved := []float64{0.5, -0.5, 0.25, 0.25, 1, 0}
	require.NoError(t, WriteInterleavedWAV(path, interleaved, 2, 8000))

	sig, err := Load(path, 0)
	require.NoError(t, err)
	require.Len(t, sig.Samples, 3)
	assert.InDelta(t, 0, sig.Samples[0], 1e-4)
	assert.InDelta(t, 0.25, sig.Samples[1], 1e-4)
	assert.InDelta(t, 0.5, sig.Samples[2], 1e-4)
}

func TestLoadResamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone48k.wav")
	require.NoError(t, WriteMonoWAV(path, sine(48000, 48000, 220, 0.5), 48000))

	sig, err := Load(path, 16000)
	require.NoError(t, err)
	assert.Equal(t, 16000, sig.SampleRate)
	assert.InDelta(t, 16000, len(sig.Samples), 1000)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	_, err := Load(path, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.wav"), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"bad.wav", "bad.ogg", "bad.flac"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("definitely not audio"), 0o644))
		_, err := Load(path, 0)
		assert.Error(t, err, name)
	}
}

func TestDownmix(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3}, Downmix([]float64{1, 2, 3}, 1))
	assert.Equal(t, []float64{1.5, 3.5}, Downmix([]float64{1, 2, 3, 4, 5}, 2))
	assert.Equal(t, []float64{2}, Downmix([]float64{1, 2, 3}, 3))
}

func TestResampleSameRateIsIdentity(t *testing.T) {
	in := []float64{1, 2, 3}
	out, err := Resample(in, 16000, 16000)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = Resample(in, 0, 16000)
	assert.Error(t, err)
}

func TestFormatHelpers(t *testing.T) {
	for _, ext := range []string{".wav", ".WAV", ".mp3", ".ogg", ".flac"} {
		assert.True(t, IsSupportedExt(ext), ext)
	}
	assert.False(t, IsSupportedExt(".txt"))
	assert.False(t, IsSupportedExt(""))

	assert.Equal(t, "audio/wav", MIMEType(".wav"))
	assert.Equal(t, "audio/mpeg", MIMEType(".MP3"))
	assert.Equal(t, "audio/ogg", MIMEType(".ogg"))
	assert.Equal(t, "audio/flac", MIMEType(".flac"))
	assert.Equal(t, "audio/wav", MIMEType(".xyz"))
}

func TestWriteInterleavedWAVRejectsPartialFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.wav")
	assert.Error(t, WriteInterleavedWAV(path, []float64{1, 2, 3}, 2, 8000))
	assert.Error(t, WriteInterleavedWAV(path, []float64{1, 2}, 0, 8000))
	assert.Error(t, WriteMonoWAV(path, []float64{1, 2}, 0))
}
