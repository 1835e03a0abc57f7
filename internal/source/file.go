// ABOUTME: File-backed audio sources with MP3, FLAC, and WAV decoding
// ABOUTME: Normalizes all decoded audio to int32 samples in the 24-bit range
package source

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
	log "github.com/sirupsen/logrus"

	"github.com/tactus-audio/tactus-go/pkg/audio"
)

// scaleTo24 shifts a sample at bitDepth into the 24-bit range.
func scaleTo24(v int32, bitDepth int) int32 {
	switch {
	case bitDepth == 24:
		return v
	case bitDepth < 24:
		return v << (24 - bitDepth)
	default:
		return v >> (bitDepth - 24)
	}
}

// MP3 reads from an MP3 file. The decoder always outputs 16-bit stereo.
type MP3 struct {
	file    *os.File
	decoder *mp3.Decoder
	format  audio.Format
	meta    Metadata
	loop    bool
}

// NewMP3 opens an MP3 file source.
func NewMP3(path string, opts Options) (*MP3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	log.Infof("Loaded MP3: %s (%d Hz)", path, decoder.SampleRate())

	return &MP3{
		file:    f,
		decoder: decoder,
		format:  audio.Format{SampleRate: decoder.SampleRate(), Channels: 2, BitDepth: 16},
		meta:    Metadata{Title: titleFromPath(path)},
		loop:    opts.Loop,
	}, nil
}

func (s *MP3) Read(samples []int32) (int, error) {
	buf := make([]byte, len(samples)*2)

	n, err := s.decoder.Read(buf)
	if err != nil && err != io.EOF {
		return 0, err
	}

	numSamples := n / 2
	for i := 0; i < numSamples; i++ {
		s16 := int16(binary.LittleEndian.Uint16(buf[i*2:]))
		samples[i] = audio.SampleFromInt16(s16)
	}

	if err == io.EOF {
		if !s.loop {
			if numSamples == 0 {
				return 0, io.EOF
			}
			return numSamples, nil
		}
		if err := s.rewind(); err != nil {
			return numSamples, err
		}
	}

	return numSamples, nil
}

func (s *MP3) rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	decoder, err := mp3.NewDecoder(s.file)
	if err != nil {
		return fmt.Errorf("failed to restart decoder: %w", err)
	}
	s.decoder = decoder
	return nil
}

func (s *MP3) Format() audio.Format { return s.format }
func (s *MP3) Metadata() Metadata   { return s.meta }
func (s *MP3) Close() error         { return s.file.Close() }

// FLAC reads from a FLAC file.
type FLAC struct {
	file     *os.File
	stream   *flac.Stream
	format   audio.Format
	bitDepth int
	meta     Metadata
	loop     bool

	// rem holds decoded samples past the end of the caller's buffer.
	rem []int32
}

// NewFLAC opens a FLAC file source.
func NewFLAC(path string, opts Options) (*FLAC, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	log.Infof("Loaded FLAC: %s (%d Hz, %d ch, %d bit)",
		path, info.SampleRate, info.NChannels, info.BitsPerSample)

	return &FLAC{
		file:     f,
		stream:   stream,
		format:   audio.Format{SampleRate: int(info.SampleRate), Channels: int(info.NChannels), BitDepth: 24},
		bitDepth: int(info.BitsPerSample),
		meta:     Metadata{Title: titleFromPath(path)},
		loop:     opts.Loop,
	}, nil
}

func (s *FLAC) Read(samples []int32) (int, error) {
	// Drain samples carried over from the previous frame first.
	read := copy(samples, s.rem)
	s.rem = s.rem[read:]

	for read < len(samples) {
		frame, err := s.stream.ParseNext()
		if err != nil {
			if err == io.EOF {
				if s.loop {
					if rerr := s.rewind(); rerr != nil {
						return read, rerr
					}
					continue
				}
				if read == 0 {
					return 0, io.EOF
				}
				return read, nil
			}
			return read, err
		}

		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < s.format.Channels; ch++ {
				v := scaleTo24(frame.Subframes[ch].Samples[i], s.bitDepth)
				if read < len(samples) {
					samples[read] = v
					read++
				} else {
					s.rem = append(s.rem, v)
				}
			}
		}
	}

	return read, nil
}

func (s *FLAC) rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	stream, err := flac.New(s.file)
	if err != nil {
		return fmt.Errorf("failed to restart decoder: %w", err)
	}
	s.stream = stream
	return nil
}

func (s *FLAC) Format() audio.Format { return s.format }
func (s *FLAC) Metadata() Metadata   { return s.meta }
func (s *FLAC) Close() error         { return s.file.Close() }

// WAV reads from a WAV file.
type WAV struct {
	file     *os.File
	decoder  *wav.Decoder
	format   audio.Format
	bitDepth int
	meta     Metadata
	loop     bool
	buf      *gaudio.IntBuffer
}

// NewWAV opens a WAV file source.
func NewWAV(path string, opts Options) (*WAV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	decoder, err := newWAVDecoder(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	log.Infof("Loaded WAV: %s (%d Hz, %d ch, %d bit)",
		path, decoder.SampleRate, decoder.NumChans, decoder.BitDepth)

	return &WAV{
		file:     f,
		decoder:  decoder,
		format:   audio.Format{SampleRate: int(decoder.SampleRate), Channels: int(decoder.NumChans), BitDepth: int(decoder.BitDepth)},
		bitDepth: int(decoder.BitDepth),
		meta:     Metadata{Title: titleFromPath(path)},
		loop:     opts.Loop,
	}, nil
}

func newWAVDecoder(f *os.File) (*wav.Decoder, error) {
	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()

	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	if decoder.BitDepth != 16 && decoder.BitDepth != 24 && decoder.BitDepth != 32 {
		return nil, fmt.Errorf("unsupported WAV bit depth: %d", decoder.BitDepth)
	}
	if decoder.NumChans != 1 && decoder.NumChans != 2 {
		return nil, fmt.Errorf("unsupported WAV channel count: %d", decoder.NumChans)
	}

	return decoder, nil
}

func (s *WAV) Read(samples []int32) (int, error) {
	if s.buf == nil || len(s.buf.Data) != len(samples) {
		s.buf = &gaudio.IntBuffer{
			Data:   make([]int, len(samples)),
			Format: &gaudio.Format{SampleRate: s.format.SampleRate, NumChannels: s.format.Channels},
		}
	}

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil {
		return 0, err
	}

	if n == 0 {
		if !s.loop {
			return 0, io.EOF
		}
		if err := s.rewind(); err != nil {
			return 0, err
		}
		n, err = s.decoder.PCMBuffer(s.buf)
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, io.EOF
		}
	}

	for i := 0; i < n; i++ {
		samples[i] = scaleTo24(int32(s.buf.Data[i]), s.bitDepth)
	}

	return n, nil
}

func (s *WAV) rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	decoder, err := newWAVDecoder(s.file)
	if err != nil {
		return fmt.Errorf("failed to restart decoder: %w", err)
	}
	s.decoder = decoder
	return nil
}

func (s *WAV) Format() audio.Format { return s.format }
func (s *WAV) Metadata() Metadata   { return s.meta }
func (s *WAV) Close() error         { return s.file.Close() }
