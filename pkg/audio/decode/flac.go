// ABOUTME: FLAC file reader
// ABOUTME: Decodes FLAC frames via mewkiz/flac and scales to float32 by bit depth
package decode

import (
	"fmt"
	"os"

	"github.com/mewkiz/flac"
)

type flacReader struct {
	file     *os.File
	stream   *flac.Stream
	channels int
	scale    float32
	pending  []float32
}

func newFLACReader(f *os.File) (*flacReader, error) {
	stream, err := flac.New(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	bits := int(stream.Info.BitsPerSample)
	return &flacReader{
		file:     f,
		stream:   stream,
		channels: int(stream.Info.NChannels),
		scale:    1 / float32(int64(1)<<(bits-1)),
	}, nil
}

func (r *flacReader) Read(dst []float32) (int, error) {
	written := 0
	for written < len(dst) {
		if len(r.pending) == 0 {
			frame, err := r.stream.ParseNext()
			if err != nil {
				return written, err
			}

			// Interleave subframes
			n := int(frame.BlockSize)
			r.pending = r.pending[:0]
			for i := 0; i < n; i++ {
				for ch := 0; ch < r.channels; ch++ {
					r.pending = append(r.pending, float32(frame.Subframes[ch].Samples[i])*r.scale)
				}
			}
		}

		c := copy(dst[written:], r.pending)
		written += c
		r.pending = r.pending[c:]
	}
	return written, nil
}

func (r *flacReader) SampleRate() int { return int(r.stream.Info.SampleRate) }
func (r *flacReader) Channels() int   { return r.channels }
func (r *flacReader) Close() error    { return r.file.Close() }
