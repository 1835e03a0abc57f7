// ABOUTME: DSP config rendering from placeholder templates
// ABOUTME: Substitutes stream format values the way CamillaDSP configs expect
package dsp

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tactus-audio/tactus-go/pkg/audio"
)

// RenderConfig substitutes {format}, {channels}, {samplerate}, and
// {extrasamples} placeholders in a template.
func RenderConfig(template string, f audio.Format, extraSamples uint64) string {
	r := strings.NewReplacer(
		"{format}", f.DSPFormat(),
		"{channels}", strconv.Itoa(f.Channels),
		"{samplerate}", strconv.Itoa(f.SampleRate),
		"{extrasamples}", strconv.FormatUint(extraSamples, 10),
	)
	return r.Replace(template)
}

// renderConfigFile reads the template at in, renders it for f, and
// writes the result to out.
func renderConfigFile(in, out string, f audio.Format, extraSamples uint64) error {
	template, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	rendered := RenderConfig(string(template), f, extraSamples)
	if err := os.WriteFile(out, []byte(rendered), 0644); err != nil {
		return fmt.Errorf("failed to write rendered config: %w", err)
	}
	return nil
}
