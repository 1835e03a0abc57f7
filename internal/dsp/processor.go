// ABOUTME: External DSP process runner fed paced PCM over stdin
// ABOUTME: Renders a config per stream format and respawns on format changes
package dsp

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tactus-audio/tactus-go/pkg/audio"
)

// DefaultCloseTimeout bounds the graceful shutdown wait before the
// processor is killed.
const DefaultCloseTimeout = 5 * time.Second

// Options configure a DSP processor.
type Options struct {
	// Path is the DSP executable.
	Path string

	// ConfigIn is a template with {format}, {channels}, {samplerate},
	// and {extrasamples} placeholders. Exactly one of ConfigIn and
	// ConfigCmd must be set.
	ConfigIn string

	// ConfigCmd is an external generator run with the stream's format
	// token, sample rate, and channel count as arguments. It must
	// write the config to ConfigOut itself.
	ConfigCmd string

	// ConfigOut is where the rendered config lands; it is passed to
	// the processor as its first argument.
	ConfigOut string

	// Args are extra processor arguments after ConfigOut.
	Args []string

	// ExtraSamples pads the processing chain. The rate-family values
	// scale with the stream rate and win over the plain value.
	ExtraSamples      uint64
	ExtraSamples44100 uint64
	ExtraSamples48000 uint64

	// CloseTimeout overrides DefaultCloseTimeout when non-zero.
	CloseTimeout time.Duration
}

func (o Options) validate() error {
	if o.Path == "" {
		return fmt.Errorf("dsp path required")
	}
	if o.ConfigIn == "" && o.ConfigCmd == "" {
		return fmt.Errorf("one of config template or config command required")
	}
	if o.ConfigIn != "" && o.ConfigCmd != "" {
		return fmt.Errorf("config template and config command are mutually exclusive")
	}
	if o.ConfigOut == "" {
		return fmt.Errorf("config output path required")
	}
	return nil
}

// extraSamples picks the pad length for a rate. A rate-family value
// scales by the integer rate multiple when the rate belongs to that
// family.
func (o Options) extraSamples(rate int) uint64 {
	switch {
	case o.ExtraSamples44100 > 0 && rate%44100 == 0:
		return o.ExtraSamples44100 * uint64(rate/44100)
	case o.ExtraSamples48000 > 0 && rate%48000 == 0:
		return o.ExtraSamples48000 * uint64(rate/48000)
	default:
		return o.ExtraSamples
	}
}

// Processor runs an external DSP and feeds it PCM over stdin. It
// implements the engine's sink contract.
type Processor struct {
	opts Options

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	format  audio.Format
	running bool
}

// New creates a processor runner.
func New(opts Options) (*Processor, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = DefaultCloseTimeout
	}
	return &Processor{opts: opts}, nil
}

// Open prepares a config for the format and spawns the processor. An
// open processor at a different format is restarted.
func (p *Processor) Open(f audio.Format) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		if p.format == f {
			return nil
		}
		log.Infof("DSP format change %s -> %s, restarting", p.format, f)
		if err := p.stopLocked(); err != nil {
			log.Warnf("DSP shutdown before restart: %v", err)
		}
	}

	if err := f.Validate(); err != nil {
		return fmt.Errorf("invalid dsp format: %w", err)
	}

	if p.opts.ConfigCmd != "" {
		cmd := exec.Command(p.opts.ConfigCmd,
			f.DSPFormat(), strconv.Itoa(f.SampleRate), strconv.Itoa(f.Channels))
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("config command failed: %w (%s)", err, out)
		}
	} else {
		extra := p.opts.extraSamples(f.SampleRate)
		if err := renderConfigFile(p.opts.ConfigIn, p.opts.ConfigOut, f, extra); err != nil {
			return err
		}
	}

	args := append([]string{p.opts.ConfigOut}, p.opts.Args...)
	cmd := exec.Command(p.opts.Path, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open dsp stdin: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open dsp stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start dsp: %w", err)
	}
	go forwardStderr(stderr)

	log.Infof("DSP started: %s %v (pid %d)", p.opts.Path, args, cmd.Process.Pid)

	p.cmd = cmd
	p.stdin = stdin
	p.format = f
	p.running = true
	return nil
}

// forwardStderr copies processor diagnostics into the log.
func forwardStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		log.Warnf("dsp: %s", scanner.Text())
	}
}

// Write feeds one period of frames to the processor.
func (p *Processor) Write(frames []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return 0, fmt.Errorf("dsp not open")
	}
	return p.stdin.Write(frames)
}

// Close ends the stream and waits for the processor to exit, killing
// it after the close timeout.
func (p *Processor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked()
}

func (p *Processor) stopLocked() error {
	if !p.running {
		return nil
	}
	p.running = false

	// Closing stdin signals end of stream; a well-behaved processor
	// drains and exits.
	if err := p.stdin.Close(); err != nil {
		log.Debugf("DSP stdin close: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			log.Debugf("DSP exited: %v", err)
		}
	case <-time.After(p.opts.CloseTimeout):
		log.Warnf("DSP did not exit within %v, killing", p.opts.CloseTimeout)
		if err := p.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill dsp: %w", err)
		}
		<-done
	}
	return nil
}

// Format returns the stream format of the running processor.
func (p *Processor) Format() audio.Format {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.format
}

// Running reports whether the processor is alive.
func (p *Processor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
