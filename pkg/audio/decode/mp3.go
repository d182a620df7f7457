// ABOUTME: MP3 file reader
// ABOUTME: Decodes MP3 to float32 samples via go-mp3 (always stereo 16-bit)
package decode

import (
	"fmt"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

type mp3Reader struct {
	file    *os.File
	decoder *mp3.Decoder
	buf     []byte
}

func newMP3Reader(f *os.File) (*mp3Reader, error) {
	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}
	return &mp3Reader{file: f, decoder: decoder}, nil
}

func (r *mp3Reader) Read(dst []float32) (int, error) {
	if cap(r.buf) < len(dst)*2 {
		r.buf = make([]byte, len(dst)*2)
	}
	buf := r.buf[:len(dst)*2]

	n, err := r.decoder.Read(buf)
	samples := DecodePCM16Into(dst, buf[:n])
	if err != nil {
		return samples, err
	}
	return samples, nil
}

func (r *mp3Reader) SampleRate() int { return r.decoder.SampleRate() }

// go-mp3 always decodes to stereo
func (r *mp3Reader) Channels() int { return 2 }

func (r *mp3Reader) Close() error { return r.file.Close() }
