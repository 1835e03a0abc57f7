// ABOUTME: Linear interpolation resampler for PCM sample rate conversion
// ABOUTME: Lets file sources feed engines running at a different rate
package resample

// Resampler converts interleaved PCM between sample rates by linear
// interpolation. Fractional read position carries across calls so
// chunked input stays continuous.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64 // input frames consumed per output frame
	position   float64
}

// New creates a resampler between the given rates for interleaved
// audio with the given channel count.
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
	}
}

// Resample fills output with interpolated samples drawn from input and
// returns the number of output samples produced. Input and output are
// interleaved; production stops when either buffer runs out.
func (r *Resampler) Resample(input []int32, output []int32) int {
	if len(input) == 0 {
		return 0
	}

	inputFrames := len(input) / r.channels
	outputFrames := len(output) / r.channels

	outIdx := 0
	for outIdx < outputFrames {
		inputPos := r.position
		inputIdx := int(inputPos)

		// Interpolation needs the frame after inputIdx too.
		if inputIdx >= inputFrames-1 {
			break
		}

		frac := inputPos - float64(inputIdx)

		for ch := 0; ch < r.channels; ch++ {
			s1 := input[inputIdx*r.channels+ch]
			s2 := input[(inputIdx+1)*r.channels+ch]
			output[outIdx*r.channels+ch] = int32(float64(s1)*(1.0-frac) + float64(s2)*frac)
		}

		outIdx++
		r.position += r.ratio
	}

	// Keep only the fractional position for the next chunk.
	r.position -= float64(int(r.position))

	return outIdx * r.channels
}

// InputSamplesNeeded returns how many input samples roughly produce
// the requested number of output samples.
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(float64(outputFrames) * r.ratio)
	return inputFrames * r.channels
}

// Reset clears the carried read position.
func (r *Resampler) Reset() {
	r.position = 0.0
}
