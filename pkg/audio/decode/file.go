// ABOUTME: Audio file readers
// ABOUTME: Opens MP3, FLAC or WAV files by extension and streams float32 samples
package decode

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFile is returned for file extensions with no reader
var ErrUnsupportedFile = errors.New("unsupported audio file")

// FileReader streams interleaved float32 samples from an audio file
type FileReader interface {
	// Read fills dst with samples and returns how many were written.
	// Returns io.EOF once the file is exhausted.
	Read(dst []float32) (int, error)
	// SampleRate returns the file's sample rate
	SampleRate() int
	// Channels returns the file's channel count
	Channels() int
	// Close closes the underlying file
	Close() error
}

// OpenFile opens path with the reader matching its extension
func OpenFile(path string) (FileReader, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3", ".flac", ".wav":
	default:
		return nil, fmt.Errorf("%w: %s (supported: .mp3, .flac, .wav)", ErrUnsupportedFile, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	var r FileReader
	switch ext {
	case ".mp3":
		r, err = newMP3Reader(f)
	case ".flac":
		r, err = newFLACReader(f)
	default:
		r, err = newWAVReader(f)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}
