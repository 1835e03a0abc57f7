// ABOUTME: Audio format definitions and sample conversion helpers
// ABOUTME: Frame math and DSP format tokens shared across sources, sinks, and transports
package audio

import (
	"fmt"
	"time"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes an interleaved PCM stream.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int // 16, 24, or 32
}

// Validate checks that the format is one the engine can move.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("invalid channel count %d", f.Channels)
	}
	switch f.BitDepth {
	case 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("unsupported bit depth %d (supported: 16, 24, 32)", f.BitDepth)
	}
}

// FrameBytes returns the wire size of one frame. 24-bit frames are
// packed to 3 bytes per sample.
func (f Format) FrameBytes() int {
	return f.Channels * f.BitDepth / 8
}

// BytesPerSecond returns the wire rate of the stream.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.FrameBytes()
}

// Duration returns the playback time of a frame count.
func (f Format) Duration(frames int) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// FramesIn returns the number of frames that play in d.
func (f Format) FramesIn(d time.Duration) int {
	return int(d * time.Duration(f.SampleRate) / time.Second)
}

// Sample format tokens understood by DSP processors such as
// CamillaDSP. The engine's wire encodings map to the integer subset;
// the remaining tokens may appear in hand-written processor configs.
const (
	TokenS16LE     = "S16LE"
	TokenS24LE     = "S24LE" // 24-bit in a 4-byte container
	TokenS24LE3    = "S24LE3"
	TokenS32LE     = "S32LE"
	TokenFloat32LE = "FLOAT32LE"
	TokenFloat64LE = "FLOAT64LE"
)

// DSPFormat returns the sample format token for this stream's wire
// encoding. 24-bit streams are packed to 3 bytes per sample.
func (f Format) DSPFormat() string {
	switch f.BitDepth {
	case 16:
		return TokenS16LE
	case 24:
		return TokenS24LE3
	case 32:
		return TokenS32LE
	default:
		return ""
	}
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz %dch %dbit", f.SampleRate, f.Channels, f.BitDepth)
}

// SampleToInt16 converts an int32 sample to int16 (for 16-bit output)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit (or 16-bit) to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts an int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	// Left-shift to position 16-bit value in upper bits
	return int32(sample) << 8
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	// Take lower 24 bits, pack little-endian
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}
