// ABOUTME: Audio file generator
// ABOUTME: Streams MP3, FLAC or WAV files as stereo float chunks, optionally looping
package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/Resonate-Protocol/resonate-tape/pkg/audio"
	"github.com/Resonate-Protocol/resonate-tape/pkg/audio/decode"
)

// FileConfig controls the file source
type FileConfig struct {
	Path     string
	Loop     bool
	Chunk    time.Duration
	Lead     time.Duration
	Realtime bool
}

// File streams a decoded audio file
type File struct {
	config FileConfig
	reader decode.FileReader
	format audio.Format
}

// NewFile creates a file generator
func NewFile(config FileConfig) *File {
	if config.Chunk <= 0 {
		config.Chunk = 100 * time.Millisecond
	}
	return &File{config: config}
}

// Open decodes the file header. Mono files are upmixed to stereo.
func (f *File) Open(ctx context.Context) (audio.Format, error) {
	reader, err := decode.OpenFile(f.config.Path)
	if err != nil {
		return audio.Format{}, err
	}

	if ch := reader.Channels(); ch != 1 && ch != 2 {
		reader.Close()
		return audio.Format{}, fmt.Errorf("unsupported channel count %d in %s", ch, f.config.Path)
	}

	f.reader = reader
	f.format = audio.Format{
		Codec:      "pcm",
		SampleRate: reader.SampleRate(),
		Channels:   audio.DefaultChannels,
		BitDepth:   audio.BitDepth,
	}

	log.Printf("Opened %s: %d Hz, %d channels", f.config.Path, reader.SampleRate(), reader.Channels())
	return f.format, nil
}

// Stream emits chunks until EOF (or forever when looping)
func (f *File) Stream(ctx context.Context, emit func(*audio.Chunk)) error {
	if f.reader == nil {
		return ErrNotOpen
	}

	srcChannels := f.reader.Channels()
	frames := int(f.config.Chunk * time.Duration(f.format.SampleRate) / time.Second)
	if frames < 1 {
		frames = 1
	}
	buf := make([]float32, frames*srcChannels)

	pace := newPacer(f.config.Lead)
	produced := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := f.reader.Read(buf)
		if n > 0 {
			samples := toStereo(buf[:n], srcChannels)
			produced += len(samples) / 2
			emit(audio.NewChunk(samples))

			if f.config.Realtime {
				if werr := pace.wait(ctx, framesDuration(produced, f.format.SampleRate), 0); werr != nil {
					return werr
				}
			}
		}

		if errors.Is(err, io.EOF) {
			if !f.config.Loop {
				return nil
			}
			if rerr := f.rewind(); rerr != nil {
				return rerr
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f.config.Path, err)
		}
	}
}

func (f *File) rewind() error {
	f.reader.Close()
	reader, err := decode.OpenFile(f.config.Path)
	if err != nil {
		f.reader = nil
		return fmt.Errorf("failed to reopen for loop: %w", err)
	}
	f.reader = reader
	return nil
}

// toStereo copies src into a fresh stereo slice
func toStereo(src []float32, channels int) []float32 {
	if channels == 2 {
		out := make([]float32, len(src)-len(src)%2)
		copy(out, src)
		return out
	}
	out := make([]float32, len(src)*2)
	for i, s := range src {
		out[2*i] = s
		out[2*i+1] = s
	}
	return out
}

// Close closes the underlying file
func (f *File) Close() error {
	if f.reader == nil {
		return nil
	}
	err := f.reader.Close()
	f.reader = nil
	return err
}
