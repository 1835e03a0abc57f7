// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, frame math, PCM codec, and sample conversions

// Package audio provides the fundamental audio types shared across the
// tactus engine, sources, sinks, and transports.
//
// Format describes an interleaved PCM stream (sample rate, channels,
// bit depth) and carries the frame math every component needs: frame
// sizes on the wire, byte rates, and frame/duration conversions. The
// DSPFormat method maps a format onto the sample format tokens external
// DSP processors expect.
//
// Samples move through the engine as int32 values left-justified in the
// 24-bit range, the same representation for 16-bit and 24-bit material:
//
//	sample24 := audio.SampleFromInt16(sample16)
//
// EncodePCM and DecodePCM translate between that representation and
// little-endian wire bytes at 16, 24, or 32 bits.
package audio
