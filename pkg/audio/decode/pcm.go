// ABOUTME: PCM audio decoder
// ABOUTME: Decodes 16-bit little-endian PCM to float32 samples
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/resonate-tape/pkg/audio"
)

// PCMDecoder decodes PCM audio
type PCMDecoder struct{}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (Decoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}

	if format.BitDepth != 0 && format.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16)", format.BitDepth)
	}

	return &PCMDecoder{}, nil
}

// Decode converts PCM bytes to float32 samples. A trailing odd byte is ignored.
func (d *PCMDecoder) Decode(data []byte) ([]float32, error) {
	samples := make([]float32, len(data)/2)
	DecodePCM16Into(samples, data)
	return samples, nil
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}

// DecodePCM16Into converts little-endian PCM16 bytes into dst.
// Returns the number of samples written.
func DecodePCM16Into(dst []float32, data []byte) int {
	n := min(len(dst), len(data)/2)
	for i := 0; i < n; i++ {
		dst[i] = audio.SampleInt16ToFloat(int16(binary.LittleEndian.Uint16(data[i*2:])))
	}
	return n
}
