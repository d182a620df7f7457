// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for wire-format chunk decoders
package decode

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-tape/pkg/audio"
)

// Decoder decodes one wire chunk to interleaved float32 samples
type Decoder interface {
	// Decode converts encoded audio data to PCM samples
	Decode(data []byte) ([]float32, error)

	// Close releases decoder resources
	Close() error
}

// New returns the decoder for format.Codec
func New(format audio.Format) (Decoder, error) {
	switch format.Codec {
	case "pcm":
		return NewPCM(format)
	case "opus":
		return NewOpus(format)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", format.Codec)
	}
}
