// ABOUTME: Tests for file-backed sources and the Open dispatcher
// ABOUTME: Uses generated WAV files; MP3 and FLAC cover error paths
package source

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeTestWAV(t *testing.T, path string, sampleRate, channels, bitDepth int, data []int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &gaudio.IntBuffer{
		Data:   data,
		Format: &gaudio.Format{SampleRate: sampleRate, NumChannels: channels},
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("wav encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("wav close: %v", err)
	}
}

func TestOpenEmptyReturnsTone(t *testing.T) {
	src, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	if _, ok := src.(*Tone); !ok {
		t.Fatalf("Open(\"\") returned %T, expected *Tone", src)
	}
	if src.Format() != DefaultToneFormat() {
		t.Errorf("Format() = %v, expected %v", src.Format(), DefaultToneFormat())
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.mp3")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestOpenUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.ogg")
	if err := os.WriteFile(path, []byte("OggS"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Open(path); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestWAVSourceReadsSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wav")
	data := []int{0, 1000, -1000, 32767, -32768, 123, -456, 789}
	writeTestWAV(t, path, 48000, 2, 16, data)

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	want := src.Format()
	if want.SampleRate != 48000 || want.Channels != 2 || want.BitDepth != 16 {
		t.Fatalf("Format() = %v", want)
	}
	if src.Metadata().Title != "test" {
		t.Errorf("Title = %q, expected %q", src.Metadata().Title, "test")
	}

	samples := make([]int32, 16)
	n, err := src.Read(samples)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != len(data) {
		t.Fatalf("read %d samples, expected %d", n, len(data))
	}
	for i, v := range data {
		// 16-bit values scale into the 24-bit range.
		if samples[i] != int32(v)<<8 {
			t.Errorf("sample %d = %d, expected %d", i, samples[i], int32(v)<<8)
		}
	}

	if _, err := src.Read(samples); err != io.EOF {
		t.Errorf("second Read error = %v, expected io.EOF", err)
	}
}

func TestWAVSourceMono(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.wav")
	writeTestWAV(t, path, 44100, 1, 16, []int{100, 200, 300, 400})

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	f := src.Format()
	if f.Channels != 1 || f.SampleRate != 44100 {
		t.Errorf("Format() = %v", f)
	}

	samples := make([]int32, 4)
	n, err := src.Read(samples)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 4 {
		t.Errorf("read %d samples, expected 4", n)
	}
}

func TestWAVSourceLoops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loop.wav")
	data := []int{10, 20, 30, 40, 50, 60, 70, 80}
	writeTestWAV(t, path, 48000, 2, 16, data)

	src, err := OpenWith(path, Options{Loop: true})
	if err != nil {
		t.Fatalf("OpenWith: %v", err)
	}
	defer src.Close()

	first := make([]int32, 8)
	if _, err := src.Read(first); err != nil {
		t.Fatalf("first Read: %v", err)
	}

	// Past the end the source wraps to the beginning.
	second := make([]int32, 8)
	n, err := src.Read(second)
	if err != nil {
		t.Fatalf("looped Read: %v", err)
	}
	if n != 8 {
		t.Fatalf("looped read %d samples, expected 8", n)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("sample %d: loop %d != first pass %d", i, second[i], first[i])
		}
	}
}

func TestWAVSourceRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(path, []byte("this is not audio"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := NewWAV(path, Options{}); err == nil {
		t.Error("expected error for invalid WAV data")
	}
}

func TestFLACSourceRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.flac")
	if err := os.WriteFile(path, []byte("this is not audio"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := NewFLAC(path, Options{}); err == nil {
		t.Error("expected error for invalid FLAC data")
	}
}

func TestTitleFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/music/album/song.mp3", "song"},
		{"track.flac", "track"},
		{"/tmp/noext", "noext"},
	}

	for _, tt := range tests {
		if got := titleFromPath(tt.path); got != tt.want {
			t.Errorf("titleFromPath(%q) = %q, expected %q", tt.path, got, tt.want)
		}
	}
}
