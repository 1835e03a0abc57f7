// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts interleaved PCM between sample rates

// Package resample converts interleaved PCM between sample rates with
// linear interpolation. Quality suits monitoring and transport paths;
// mastering-grade conversion belongs in an external DSP.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	n := r.Resample(inputSamples, outputSamples)
package resample
