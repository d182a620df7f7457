// ABOUTME: Unit tests for Opus encoder
// ABOUTME: Tests Opus encoding functionality
package encode

import (
	"math"
	"strings"
	"testing"

	"github.com/Resonate-Protocol/resonate-tape/pkg/audio"
)

func opusFormat(channels int) audio.Format {
	return audio.Format{Codec: "opus", SampleRate: 48000, Channels: channels, BitDepth: 16}
}

func TestNewOpus(t *testing.T) {
	tests := []struct {
		name        string
		format      audio.Format
		wantErr     bool
		errContains string
	}{
		{name: "valid Opus 48kHz stereo", format: opusFormat(2)},
		{name: "valid Opus 48kHz mono", format: opusFormat(1)},
		{
			name:        "invalid codec",
			format:      audio.DefaultFormat(),
			wantErr:     true,
			errContains: "invalid codec",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder, err := NewOpus(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewOpus() expected error, got nil")
				} else if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("NewOpus() error = %v, want error containing %v", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewOpus() unexpected error = %v", err)
			}
			encoder.Close()
		})
	}
}

func TestOpusEncoder_Encode(t *testing.T) {
	encoder, err := NewOpus(opusFormat(2))
	if err != nil {
		t.Fatalf("NewOpus() failed: %v", err)
	}
	defer encoder.Close()

	frameSize := OpusFrameSize(48000)
	samples := make([]int16, frameSize*2)
	for i := 0; i < frameSize; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/48000))
		samples[i*2] = v
		samples[i*2+1] = v
	}

	output, err := encoder.Encode(samples)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	if len(output) == 0 || len(output) > MaxOpusPacket {
		t.Errorf("Encode() output size %d out of range", len(output))
	}
}

func TestOpusEncoder_RejectsPartialFrame(t *testing.T) {
	encoder, err := NewOpus(opusFormat(2))
	if err != nil {
		t.Fatalf("NewOpus() failed: %v", err)
	}
	defer encoder.Close()

	if _, err := encoder.Encode(make([]int16, 100)); err == nil {
		t.Error("expected error for partial frame")
	}
}
