// ABOUTME: PCM wire codec for interleaved int32 samples
// ABOUTME: Packs and unpacks 16/24/32-bit little-endian byte streams
package audio

import (
	"encoding/binary"
	"fmt"
)

// EncodePCM packs int32 samples into little-endian wire bytes at the
// format's bit depth.
func EncodePCM(samples []int32, f Format) ([]byte, error) {
	switch f.BitDepth {
	case 16:
		out := make([]byte, len(samples)*2)
		for i, s := range samples {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(SampleToInt16(s)))
		}
		return out, nil
	case 24:
		out := make([]byte, len(samples)*3)
		for i, s := range samples {
			b := SampleTo24Bit(s)
			copy(out[i*3:], b[:])
		}
		return out, nil
	case 32:
		// Left-justify the 24-bit range into 32 bits.
		out := make([]byte, len(samples)*4)
		for i, s := range samples {
			binary.LittleEndian.PutUint32(out[i*4:], uint32(s)<<8)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", f.BitDepth)
	}
}

// DecodePCM unpacks little-endian wire bytes into int32 samples at the
// format's bit depth. Trailing partial samples are dropped.
func DecodePCM(data []byte, f Format) ([]int32, error) {
	switch f.BitDepth {
	case 16:
		samples := make([]int32, len(data)/2)
		for i := range samples {
			s := int16(binary.LittleEndian.Uint16(data[i*2:]))
			samples[i] = SampleFromInt16(s)
		}
		return samples, nil
	case 24:
		samples := make([]int32, len(data)/3)
		for i := range samples {
			samples[i] = SampleFrom24Bit([3]byte{data[i*3], data[i*3+1], data[i*3+2]})
		}
		return samples, nil
	case 32:
		samples := make([]int32, len(data)/4)
		for i := range samples {
			samples[i] = int32(binary.LittleEndian.Uint32(data[i*4:])) >> 8
		}
		return samples, nil
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", f.BitDepth)
	}
}
