// ABOUTME: Audio source abstraction for files, URLs, and generators
// ABOUTME: Produces interleaved int32 samples in the 24-bit range
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/tactus-audio/tactus-go/internal/fetch"
	"github.com/tactus-audio/tactus-go/pkg/audio"
)

// Source provides PCM audio samples. Samples are interleaved int32 in
// the 24-bit range regardless of the decoded bit depth.
type Source interface {
	// Read fills samples and returns the number of samples read.
	// io.EOF marks the end of a non-looping source.
	Read(samples []int32) (int, error)

	// Format returns the stream format after decoding.
	Format() audio.Format

	// Metadata returns stream metadata.
	Metadata() Metadata

	// Close closes the source.
	Close() error
}

// Metadata describes what a source is playing.
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// Options adjust how Open builds a source.
type Options struct {
	// Loop restarts file sources from the beginning on EOF.
	Loop bool
}

// Open creates a source from a file path or http(s) URL. An empty
// path returns a test tone. URLs are fetched to a local cache first.
func Open(pathOrURL string) (Source, error) {
	return OpenWith(pathOrURL, Options{})
}

// OpenWith is Open with explicit options.
func OpenWith(pathOrURL string, opts Options) (Source, error) {
	if pathOrURL == "" {
		return NewTone(DefaultToneFormat()), nil
	}

	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		f, err := fetch.New(fetch.Options{})
		if err != nil {
			return nil, err
		}
		local, err := f.Fetch(pathOrURL)
		if err != nil {
			return nil, err
		}
		log.Infof("Opening fetched audio: %s", local)
		return openFile(local, opts)
	}

	if _, err := os.Stat(pathOrURL); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", pathOrURL)
	}
	return openFile(pathOrURL, opts)
}

func openFile(path string, opts Options) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return NewMP3(path, opts)
	case ".flac":
		return NewFLAC(path, opts)
	case ".wav":
		return NewWAV(path, opts)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .mp3, .flac, .wav)", filepath.Ext(path))
	}
}

// titleFromPath derives a display title from a file name.
func titleFromPath(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
