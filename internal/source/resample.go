// ABOUTME: Resampling source wrapper
// ABOUTME: Converts a source's sample rate for rate-fixed consumers
package source

import (
	"io"

	"github.com/tactus-audio/tactus-go/pkg/audio"
	"github.com/tactus-audio/tactus-go/pkg/audio/resample"
)

// Resampled wraps a Source and converts it to a target sample rate.
type Resampled struct {
	src       Source
	resampler *resample.Resampler
	format    audio.Format
	input     []int32
}

// NewResampled wraps src, converting to targetRate. A source already
// at targetRate is returned unwrapped.
func NewResampled(src Source, targetRate int) Source {
	f := src.Format()
	if f.SampleRate == targetRate {
		return src
	}

	out := f
	out.SampleRate = targetRate
	return &Resampled{
		src:       src,
		resampler: resample.New(f.SampleRate, targetRate, f.Channels),
		format:    out,
	}
}

func (r *Resampled) Read(samples []int32) (int, error) {
	needed := r.resampler.InputSamplesNeeded(len(samples))
	if cap(r.input) < needed {
		r.input = make([]int32, needed)
	}

	n, err := r.src.Read(r.input[:needed])
	if err != nil && err != io.EOF {
		return 0, err
	}

	out := r.resampler.Resample(r.input[:n], samples)
	if out == 0 && err == io.EOF {
		return 0, io.EOF
	}
	return out, nil
}

func (r *Resampled) Format() audio.Format { return r.format }
func (r *Resampled) Metadata() Metadata   { return r.src.Metadata() }
func (r *Resampled) Close() error         { return r.src.Close() }
