// ABOUTME: Remote audio fetcher with a content-hashed disk cache
// ABOUTME: Downloads http(s) sources to local files before decoding
package fetch

import (
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultMaxBytes caps a single download.
	DefaultMaxBytes = 512 << 20
	// DefaultTimeout bounds the whole request including the body read.
	DefaultTimeout = 5 * time.Minute
)

// Fetcher downloads remote audio files to a local cache directory so
// they can be decoded with normal file sources.
type Fetcher struct {
	cacheDir string
	maxBytes int64
	client   *http.Client
}

// Options configure a Fetcher. Zero values pick defaults.
type Options struct {
	CacheDir string
	MaxBytes int64
	Timeout  time.Duration
}

// New creates a fetcher, creating the cache directory if needed.
func New(opts Options) (*Fetcher, error) {
	if opts.CacheDir == "" {
		opts.CacheDir = filepath.Join(os.TempDir(), "tactus-fetch")
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	if err := os.MkdirAll(opts.CacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Fetcher{
		cacheDir: opts.CacheDir,
		maxBytes: opts.MaxBytes,
		client:   &http.Client{Timeout: opts.Timeout},
	}, nil
}

// Fetch downloads url into the cache and returns the local path. A
// prior download of the same url is reused.
func (f *Fetcher) Fetch(url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("empty url")
	}

	hash := sha256.Sum256([]byte(url))
	key := fmt.Sprintf("%x", hash[:8])

	// The extension usually comes from the URL path; streams without one
	// fall back to the response content type below.
	ext := urlExtension(url)
	if ext != "" {
		cachePath := filepath.Join(f.cacheDir, key+ext)
		if _, err := os.Stat(cachePath); err == nil {
			log.Debugf("Fetch cache hit: %s", cachePath)
			return cachePath, nil
		}
	}

	log.Infof("Fetching %s", url)
	resp, err := f.client.Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("audio fetch failed: HTTP %d", resp.StatusCode)
	}
	if resp.ContentLength > f.maxBytes {
		return "", fmt.Errorf("audio file too large: %d bytes (limit %d)", resp.ContentLength, f.maxBytes)
	}

	if ext == "" {
		ext = contentTypeExtension(resp.Header.Get("Content-Type"))
		cachePath := filepath.Join(f.cacheDir, key+ext)
		if _, err := os.Stat(cachePath); err == nil {
			log.Debugf("Fetch cache hit: %s", cachePath)
			return cachePath, nil
		}
	}
	cachePath := filepath.Join(f.cacheDir, key+ext)

	out, err := os.Create(cachePath)
	if err != nil {
		return "", fmt.Errorf("failed to create cache file: %w", err)
	}
	defer out.Close()

	n, err := io.Copy(out, io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		os.Remove(cachePath)
		return "", fmt.Errorf("failed to save audio: %w", err)
	}
	if n > f.maxBytes {
		os.Remove(cachePath)
		return "", fmt.Errorf("audio file too large: exceeds %d bytes", f.maxBytes)
	}

	log.Infof("Fetched %d bytes to %s", n, cachePath)
	return cachePath, nil
}

// Cleanup removes the cache directory and everything in it.
func (f *Fetcher) Cleanup() error {
	return os.RemoveAll(f.cacheDir)
}

// urlExtension extracts the file extension from a URL, ignoring any
// query string.
func urlExtension(url string) string {
	url = strings.Split(url, "?")[0]
	return strings.ToLower(filepath.Ext(url))
}

// contentTypeExtension maps audio content types to file extensions.
func contentTypeExtension(contentType string) string {
	contentType = strings.Split(contentType, ";")[0]
	switch strings.TrimSpace(strings.ToLower(contentType)) {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/flac", "audio/x-flac":
		return ".flac"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	default:
		return ".mp3"
	}
}
