// ABOUTME: Source constructors and shared type aliases for the facade
// ABOUTME: Re-exports the engine's source contract so callers need one import
package tactus

import (
	"github.com/tactus-audio/tactus-go/internal/engine"
	"github.com/tactus-audio/tactus-go/internal/source"
	"github.com/tactus-audio/tactus-go/pkg/audio"
)

// Source supplies interleaved int32 PCM samples in the 24-bit range.
// Implement it to stream generated or transcoded audio; see the
// custom-source example.
type Source = source.Source

// Metadata describes what a source is playing.
type Metadata = source.Metadata

// Format describes an interleaved PCM stream.
type Format = audio.Format

// Stats is a snapshot of engine progress.
type Stats = engine.Stats

// ToneSource returns a 440 Hz test tone at the given format.
func ToneSource(sampleRate, channels int) Source {
	return source.NewTone(Format{SampleRate: sampleRate, Channels: channels, BitDepth: 16})
}

// FileSource opens an audio file or http(s) URL. Supported formats are
// MP3, FLAC, and WAV, picked by extension.
func FileSource(pathOrURL string) (Source, error) {
	return source.Open(pathOrURL)
}

// LoopingFileSource is FileSource restarting from the top on EOF.
func LoopingFileSource(pathOrURL string) (Source, error) {
	return source.OpenWith(pathOrURL, source.Options{Loop: true})
}

// Resample wraps a source, converting it to the target sample rate. A
// source already at the target rate is returned unchanged.
func Resample(src Source, sampleRate int) Source {
	return source.NewResampled(src, sampleRate)
}
