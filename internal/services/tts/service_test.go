package tts

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"lectern/internal/logging"
	"lectern/internal/media/audio"
	"lectern/internal/services"
)

type call struct {
	text, voice, format, path string
}

var monoWAV = audio.PCMFormat{SampleRate: 16000, Channels: 1, BitDepth: 16}

// wavBytes returns the encoded form of samples.
func wavBytes(t *testing.T, samples ...int) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "want.wav")
	if err := audio.WriteSamples(path, samples, monoWAV); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

type fakeSynth struct {
	calls []call
	fail  func(c call) error
}

func (f *fakeSynth) Synthesize(_ context.Context, text, voice, format, outputPath string) (string, error) {
	c := call{text: text, voice: voice, format: format, path: outputPath}
	f.calls = append(f.calls, c)
	if f.fail != nil {
		if err := f.fail(c); err != nil {
			return "", err
		}
	}
	if err := audio.WriteSamples(outputPath, []int{len(f.calls)}, monoWAV); err != nil {
		return "", err
	}
	return outputPath, nil
}

func TestGenerateSingleDirect(t *testing.T) {
	synth := &fakeSynth{}
	svc := NewService(synth, logging.NewNop(), t.TempDir())
	out := filepath.Join(t.TempDir(), "nested", "lecture.wav")

	var progress []float64
	path, err := svc.GenerateSingle(context.Background(), "Krátký text.", "czech_male", "wav", out, 100, func(f float64) {
		progress = append(progress, f)
	})
	if err != nil {
		t.Fatalf("GenerateSingle: %v", err)
	}
	if path != out || len(synth.calls) != 1 || synth.calls[0].path != out {
		t.Fatalf("unexpected direct synthesis calls %+v", synth.calls)
	}
	if !slices.Equal(progress, []float64{0.1, 1.0}) {
		t.Fatalf("unexpected progress %v", progress)
	}
}

func TestGenerateSingleChunksAndJoinsWAV(t *testing.T) {
	synth := &fakeSynth{}
	tempDir := t.TempDir()
	svc := NewService(synth, logging.NewNop(), tempDir)
	out := filepath.Join(t.TempDir(), "lecture.wav")

	var progress []float64
	_, err := svc.GenerateSingle(context.Background(), "První věta. Druhá věta. Třetí věta.", "english_male", "wav", out, 15, func(f float64) {
		progress = append(progress, f)
	})
	if err != nil {
		t.Fatalf("GenerateSingle: %v", err)
	}
	if len(synth.calls) != 3 {
		t.Fatalf("expected 3 chunk calls, got %d", len(synth.calls))
	}
	if synth.calls[0].text != "První věta." || filepath.Base(synth.calls[2].path) != "chunk_2.wav" {
		t.Fatalf("unexpected chunk calls %+v", synth.calls)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	want := wavBytes(t, 1, 2, 3)
	if !bytes.Equal(got, want) {
		t.Fatalf("combined wav mismatch")
	}
	if len(progress) != 4 || progress[len(progress)-1] != 1.0 || progress[0] <= 0.1 {
		t.Fatalf("unexpected progress %v", progress)
	}
	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 0 {
		t.Fatalf("chunk directory not cleaned up: %d entries", len(entries))
	}
}

func TestGenerateSingleFallsBackToChunks(t *testing.T) {
	out := filepath.Join(t.TempDir(), "lecture.wav")
	synth := &fakeSynth{fail: func(c call) error {
		if c.path == out {
			return services.Wrap(services.ErrTransient, "tts", "synthesize", "server returned 502", nil)
		}
		return nil
	}}
	svc := NewService(synth, logging.NewNop(), t.TempDir())

	if _, err := svc.GenerateSingle(context.Background(), "Jedna. Dva.", "czech_male", "wav", out, 100, nil); err != nil {
		t.Fatalf("GenerateSingle: %v", err)
	}
	if len(synth.calls) != 2 {
		t.Fatalf("expected direct attempt plus one chunk, got %d calls", len(synth.calls))
	}
	info, err := audio.ReadWAVInfo(out)
	if err != nil {
		t.Fatalf("output is not a wav: %v", err)
	}
	if info.DataSize != 2 {
		t.Fatalf("unexpected data size %d", info.DataSize)
	}
}

func TestGenerateSingleKeepsFirstChunkForMP3(t *testing.T) {
	synth := &fakeSynth{}
	svc := NewService(synth, logging.NewNop(), t.TempDir())
	out := filepath.Join(t.TempDir(), "lecture.mp3")

	if _, err := svc.GenerateSingle(context.Background(), "První věta. Druhá věta.", "czech_male", "MP3", out, 12, nil); err != nil {
		t.Fatalf("GenerateSingle: %v", err)
	}
	got, _ := os.ReadFile(out)
	if !bytes.Equal(got, wavBytes(t, 1)) {
		t.Fatal("expected the first chunk to be copied")
	}
	if synth.calls[0].format != "mp3" {
		t.Fatalf("format not normalized: %q", synth.calls[0].format)
	}
}

func TestGenerateSingleValidation(t *testing.T) {
	svc := NewService(&fakeSynth{}, logging.NewNop(), t.TempDir())
	if _, err := svc.GenerateSingle(context.Background(), "text", "czech_male", "wav", "", 10, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing output, got %v", err)
	}
	if _, err := svc.GenerateSingle(context.Background(), "", "czech_male", "wav", "x.wav", 10, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty text, got %v", err)
	}
}

func TestProcessChunksUsesLanguageVoice(t *testing.T) {
	synth := &fakeSynth{}
	svc := NewService(synth, logging.NewNop(), "")
	dir := filepath.Join(t.TempDir(), "chunks")

	paths, err := svc.ProcessChunks(context.Background(), "One. Two. Three.", "en", "wav", dir, 5)
	if err != nil {
		t.Fatalf("ProcessChunks: %v", err)
	}
	want := []string{
		filepath.Join(dir, "chunk_1.wav"),
		filepath.Join(dir, "chunk_2.wav"),
		filepath.Join(dir, "chunk_3.wav"),
	}
	if !slices.Equal(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for _, c := range synth.calls {
		if c.voice != "english_male" {
			t.Fatalf("unexpected voice %q", c.voice)
		}
	}
}
