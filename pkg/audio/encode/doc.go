// ABOUTME: Audio encoder package for subscriber wire chunks
// ABOUTME: Provides Encoder interface and PCM/Opus implementations

// Package encode turns periods of int32 PCM into wire chunks for
// streaming subscribers.
//
// Encoders accept samples in the engine's left-justified 24-bit
// representation. PCM packs bytes at the stream bit depth; Opus
// compresses with music-tuned settings.
//
// Example:
//
//	enc, err := encode.New(encode.CodecOpus, format)
//	data, err := enc.Encode(periodSamples)
package encode
