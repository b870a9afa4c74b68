package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/enhance-eval/analysis"
	"github.com/cwbudde/enhance-eval/internal/audioio"
	"github.com/cwbudde/enhance-eval/internal/corpus"
	"github.com/cwbudde/enhance-eval/internal/evaluate"
)

func sampleResults(root string) []evaluate.Result {
	p := func(parts ...string) string { return filepath.Join(append([]string{root}, parts...)...) }
	return []evaluate.Result{
		{
			Recording: corpus.Recording{
				Name:     "a.wav",
				Clean:    p("audio", "clean", "a.wav"),
				Noisy:    p("audio", "noisy", "a.wav"),
				Enhanced: []string{p("audio", "enh1", "a.wav"), "", p("audio", "enh3", "a.wav")},
			},
			SampleRate: 16000,
			Frames:     32000,
			Noisy: evaluate.Variant{
				Path: p("audio", "noisy", "a.wav"), Lag: 160, Frames: 31840, Bounded: true,
				SNR: analysis.Finite(5.123), SISNR: analysis.Finite(4.5),
			},
			Enhanced: []evaluate.Variant{
				{Path: p("audio", "enh1", "a.wav"), SNR: analysis.Infinite(), SISNR: analysis.Finite(120)},
				{},
				{Path: p("audio", "enh3", "a.wav"), SNR: analysis.Undefined(), SISNR: analysis.Finite(-3.333)},
			},
		},
	}
}

func TestMarkdownLayout(t *testing.T) {
	root := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, sampleResults(root), Options{Root: root, SISNR: true}))

	want := strings.Join([]string{
		"## Audio comparison with SNR",
		"",
		"### a.wav",
		"",
		"| Reference (Clean) | Noisy | Enhanced #1 | Enhanced #2 | Enhanced #3 |",
		"|---|---|---|---|---|",
		`| <audio controls preload="none"><source src="audio/clean/a.wav" type="audio/wav"></audio>` +
			` | <audio controls preload="none"><source src="audio/noisy/a.wav" type="audio/wav"></audio>` +
			` | <audio controls preload="none"><source src="audio/enh1/a.wav" type="audio/wav"></audio>` +
			` | —` +
			` | <audio controls preload="none"><source src="audio/enh3/a.wav" type="audio/wav"></audio> |`,
		"| **SNR : &infin; dB** | **SNR : 5.12 dB** | **SNR : &infin; dB** |  | **SNR : NA** |",
		"| **SI-SNR : &infin; dB** | **SI-SNR : 4.50 dB** | **SI-SNR : 120.00 dB** |  | **SI-SNR : -3.33 dB** |",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestMarkdownSingleEnhancedColumn(t *testing.T) {
	root := t.TempDir()
	res := sampleResults(root)
	res[0].Recording.Enhanced = res[0].Recording.Enhanced[:1]
	res[0].Enhanced = res[0].Enhanced[:1]

	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, res, Options{Root: root, Title: "Results"}))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "## Results\n\n"))
	assert.Contains(t, out, "| Reference (Clean) | Noisy | Enhanced |\n|---|---|---|\n")
	assert.NotContains(t, out, "SI-SNR")
}

func TestMarkdownPadsToColumns(t *testing.T) {
	root := t.TempDir()
	res := sampleResults(root)
	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, res, Options{Root: root, Columns: 5}))
	assert.Contains(t, buf.String(), "Enhanced #5 |")
	assert.Contains(t, buf.String(), "| **SNR : NA** |  |  |\n")
}

func TestMarkdownFailedRecording(t *testing.T) {
	root := t.TempDir()
	res := sampleResults(root)
	res[0].Err = errors.New("load clean: corrupt")

	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, res, Options{Root: root}))
	assert.Contains(t, buf.String(), "| **SNR : &infin; dB** | **SNR : NA** | **SNR : NA** |  | **SNR : NA** |")
}

func TestFormatMetric(t *testing.T) {
	assert.Equal(t, "NA", FormatMetric(analysis.Undefined()))
	assert.Equal(t, "&infin; dB", FormatMetric(analysis.Infinite()))
	assert.Equal(t, "12.35 dB", FormatMetric(analysis.Finite(12.346)))
	assert.Equal(t, "-0.50 dB", FormatMetric(analysis.Finite(-0.5)))
}

func TestAudioTagMIME(t *testing.T) {
	assert.Equal(t, `<audio controls preload="none"><source src="x/y.mp3" type="audio/mpeg"></audio>`, AudioTag("x/y.mp3"))
	assert.Contains(t, AudioTag("y.ogg"), `type="audio/ogg"`)
	assert.Contains(t, AudioTag("y.flac"), `type="audio/flac"`)
	assert.Contains(t, AudioTag("y.aiff"), `type="audio/wav"`)
}

func TestRelPath(t *testing.T) {
	root := t.TempDir()
	assert.Equal(t, "audio/clean/a.wav", RelPath(filepath.Join(root, "audio", "clean", "a.wav"), root))
	assert.Equal(t, "../x.wav", RelPath(filepath.Join(root, "..", "x.wav"), filepath.Join(root)))
}

func TestJSONExport(t *testing.T) {
	root := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleResults(root), Options{Root: root}))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, DefaultTitle, doc["title"])

	recs := doc["recordings"].([]any)
	require.Len(t, recs, 1)
	rec := recs[0].(map[string]any)
	assert.Equal(t, "a.wav", rec["name"])
	assert.Equal(t, "audio/clean/a.wav", rec["clean"])

	noisy := rec["noisy"].(map[string]any)
	assert.Equal(t, 5.123, noisy["snr_db"])
	assert.Equal(t, float64(160), noisy["lag_samples"])
	assert.Equal(t, 10.0, noisy["lag_ms"])

	enh := rec["enhanced"].([]any)
	require.Len(t, enh, 3)
	assert.Equal(t, "inf", enh[0].(map[string]any)["snr_db"])
	assert.Nil(t, enh[1])
	assert.Nil(t, enh[2].(map[string]any)["snr_db"])
}

func TestBuildFailedVariant(t *testing.T) {
	root := t.TempDir()
	res := sampleResults(root)
	res[0].Enhanced[0].Err = errors.New("decode failed")

	doc := Build(res, Options{Root: root})
	v := doc.Recordings[0].Enhanced[0]
	require.NotNil(t, v)
	assert.Equal(t, "decode failed", v.Error)
	assert.True(t, v.SNR.IsUndefined())

	res[0].Err = errors.New("load clean: corrupt")
	doc = Build(res, Options{Root: root})
	assert.Equal(t, "load clean: corrupt", doc.Recordings[0].Error)
	require.NotNil(t, doc.Recordings[0].Noisy)
	assert.Equal(t, "audio/noisy/a.wav", doc.Recordings[0].Noisy.Path)
	assert.True(t, doc.Recordings[0].Noisy.SNR.IsUndefined())
	assert.True(t, doc.Recordings[0].Enhanced[2].SISNR.IsUndefined())
	assert.Nil(t, doc.Recordings[0].Enhanced[1])
}

func TestMarkdownUnreadableCleanKeepsPlayers(t *testing.T) {
	root := t.TempDir()
	p := func(parts ...string) string { return filepath.Join(append([]string{root}, parts...)...) }
	rec := corpus.Recording{
		Name:     "b.wav",
		Clean:    p("audio", "clean", "b.wav"),
		Noisy:    p("audio", "noisy", "b.wav"),
		Enhanced: []string{p("audio", "enh1", "b.wav"), ""},
	}
	load := func(path string, sampleRate int) (audioio.Signal, error) {
		return audioio.Signal{}, errors.New("corrupt header")
	}
	res := evaluate.New(evaluate.Options{Load: load}).Evaluate(rec)
	require.Error(t, res.Err)

	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, []evaluate.Result{res}, Options{Root: root, SISNR: true}))
	out := buf.String()
	assert.Contains(t, out, AudioTag("audio/noisy/b.wav"))
	assert.Contains(t, out, AudioTag("audio/enh1/b.wav"))
	assert.Contains(t, out, "| **SNR : &infin; dB** | **SNR : NA** | **SNR : NA** |  |")
	assert.Contains(t, out, "| **SI-SNR : &infin; dB** | **SI-SNR : NA** | **SI-SNR : NA** |  |")
}
