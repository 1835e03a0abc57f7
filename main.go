// ABOUTME: Entry point for the tactus local player
// ABOUTME: Parses CLI flags and runs paced playback with an optional TUI
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tactus-audio/tactus-go/internal/app"
	"github.com/tactus-audio/tactus-go/internal/dsp"
	"github.com/tactus-audio/tactus-go/internal/version"
	"github.com/tactus-audio/tactus-go/pkg/ratesync"
)

var (
	sourcePath   = flag.String("source", "", "File or URL to play (test tone when empty)")
	toneFreq     = flag.Float64("tone-freq", 440, "Test tone frequency in Hz")
	sampleRate   = flag.Int("rate", 0, "Resample to this rate (0 keeps the source rate)")
	output       = flag.String("output", "speaker", "Output: speaker, null, or a file path")
	volume       = flag.Int("volume", 100, "Initial volume 0-100")
	periodMs     = flag.Int("period-ms", 20, "Transfer period in milliseconds")
	bufferMs     = flag.Int("buffer-ms", 100, "FIFO depth in milliseconds")
	threshold    = flag.Uint64("start-threshold", 0, "Frames before pacing locks in (0 uses the default)")
	damping      = flag.Float64("startup-damping", 0, "Startup sleep damping in (0,1] (0 uses the default)")
	dspPath      = flag.String("dsp", "", "External DSP executable; the processor owns the output")
	dspConfigIn  = flag.String("dsp-config-in", "", "DSP config template path")
	dspConfigOut = flag.String("dsp-config-out", "", "Rendered DSP config path")
	dspConfigCmd = flag.String("dsp-config-cmd", "", "Command that generates the DSP config")
	dspExtra     = flag.Uint64("dsp-extra-samples", 0, "Extra sample padding for the DSP chain")
	logFile      = flag.String("log-file", "tactus-player.log", "Log file path")
	noTUI        = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return
	}

	useTUI := !*noTUI

	// TUI mode logs only to the file so the screen stays clean
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}
	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	config := app.Config{
		SourcePath: *sourcePath,
		ToneFreq:   *toneFreq,
		SampleRate: *sampleRate,
		Period:     time.Duration(*periodMs) * time.Millisecond,
		Buffer:     time.Duration(*bufferMs) * time.Millisecond,
		Sync: ratesync.Options{
			StartThreshold: *threshold,
			StartupDamping: *damping,
		},
		Output: *output,
		Volume: *volume,
		TUI:    useTUI,
	}

	if *dspPath != "" {
		config.DSP = &dsp.Options{
			Path:         *dspPath,
			ConfigIn:     *dspConfigIn,
			ConfigOut:    *dspConfigOut,
			ConfigCmd:    *dspConfigCmd,
			ExtraSamples: *dspExtra,
		}
	}

	player, err := app.New(config)
	if err != nil {
		log.Fatalf("Failed to create player: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Infof("Received %v signal, shutting down", sig)
		player.Stop()
	}()

	log.Infof("Starting playback: format %s, output %s", player.Format(), *output)

	if err := player.Run(); err != nil {
		log.Fatalf("Playback failed: %v", err)
	}

	stats := player.Stats()
	log.Infof("Played %d frames in %d periods (%d underruns)",
		stats.Frames, stats.Periods, stats.Underruns)
}
