// ABOUTME: Encodes float chunks into binary generator frames
// ABOUTME: PCM chunks go out as-is, Opus is repacketized into fixed 20ms frames
package server

import (
	"fmt"
	"time"

	"github.com/Resonate-Protocol/resonate-tape/internal/protocol"
	"github.com/Resonate-Protocol/resonate-tape/pkg/audio"
	"github.com/Resonate-Protocol/resonate-tape/pkg/audio/encode"
	"github.com/gorilla/websocket"
)

// frameSink receives encoded binary frames
type frameSink interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
}

type chunkWriter struct {
	sink    frameSink
	encoder encode.Encoder

	// frameSamples is the fixed packet size in interleaved samples, 0 = any
	frameSamples int
	pending      []int16
	seq          uint64
}

func newChunkWriter(sink frameSink, format audio.Format) (*chunkWriter, error) {
	encoder, err := encode.New(format)
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	w := &chunkWriter{sink: sink, encoder: encoder}
	if format.Codec == "opus" {
		w.frameSamples = encode.OpusFrameSize(format.SampleRate) * format.Channels
	}
	return w, nil
}

// Write converts and sends one chunk, holding back any partial Opus frame
func (w *chunkWriter) Write(samples []float32) error {
	pcm := audio.FloatToInt16(samples)
	if w.frameSamples == 0 {
		return w.send(pcm)
	}

	w.pending = append(w.pending, pcm...)
	sent := 0
	for len(w.pending)-sent >= w.frameSamples {
		if err := w.send(w.pending[sent : sent+w.frameSamples]); err != nil {
			return err
		}
		sent += w.frameSamples
	}
	w.pending = append(w.pending[:0], w.pending[sent:]...)
	return nil
}

// Flush pads and sends a trailing partial Opus frame
func (w *chunkWriter) Flush() error {
	if w.frameSamples == 0 || len(w.pending) == 0 {
		return nil
	}
	frame := make([]int16, w.frameSamples)
	copy(frame, w.pending)
	w.pending = w.pending[:0]
	return w.send(frame)
}

func (w *chunkWriter) send(pcm []int16) error {
	payload, err := w.encoder.Encode(pcm)
	if err != nil {
		return fmt.Errorf("encode failed: %w", err)
	}

	frame := protocol.EncodeChunkFrame(w.seq, payload)
	w.seq++

	w.sink.SetWriteDeadline(time.Now().Add(writeDeadline))
	return w.sink.WriteMessage(websocket.BinaryMessage, frame)
}

// Sent returns the number of frames written
func (w *chunkWriter) Sent() uint64 {
	return w.seq
}

// Close releases the encoder
func (w *chunkWriter) Close() error {
	return w.encoder.Close()
}
