// ABOUTME: Opus audio encoder
// ABOUTME: Encodes 20ms int16 frames to Opus packets
package encode

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-tape/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// MaxOpusPacket is the largest packet the encoder will produce
const MaxOpusPacket = 4000

// OpusEncoder encodes Opus audio
type OpusEncoder struct {
	encoder   *opus.Encoder
	channels  int
	frameSize int
	buf       []byte
}

// NewOpus creates a new Opus encoder
func NewOpus(format audio.Format) (Encoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus encoder: %s", format.Codec)
	}

	encoder, err := opus.NewEncoder(format.SampleRate, format.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	return &OpusEncoder{
		encoder:   encoder,
		channels:  format.Channels,
		frameSize: OpusFrameSize(format.SampleRate),
		buf:       make([]byte, MaxOpusPacket),
	}, nil
}

// OpusFrameSize returns samples per channel in one 20ms frame
func OpusFrameSize(sampleRate int) int {
	return sampleRate / 50
}

// Encode converts exactly one 20ms frame of interleaved samples to an Opus packet
func (e *OpusEncoder) Encode(samples []int16) ([]byte, error) {
	if want := e.frameSize * e.channels; len(samples) != want {
		return nil, fmt.Errorf("opus frame must be %d samples, got %d", want, len(samples))
	}

	n, err := e.encoder.Encode(samples, e.buf)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}

	packet := make([]byte, n)
	copy(packet, e.buf[:n])
	return packet, nil
}

// Close releases resources
func (e *OpusEncoder) Close() error {
	return nil
}
