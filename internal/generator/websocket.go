// ABOUTME: Remote generator over WebSocket
// ABOUTME: Performs the /generate handshake and decodes binary chunk frames
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-tape/internal/protocol"
	"github.com/Resonate-Protocol/resonate-tape/pkg/audio"
	"github.com/Resonate-Protocol/resonate-tape/pkg/audio/decode"
	"github.com/gorilla/websocket"
)

const handshakeTimeout = 5 * time.Second

// WebSocketConfig holds remote generator settings
type WebSocketConfig struct {
	URL      string // ws://host:port/generate
	ClientID string
	Name     string
	Codecs   []string
}

// WebSocket streams chunks from a generator server
type WebSocket struct {
	config WebSocketConfig

	mu      sync.Mutex
	conn    *websocket.Conn
	decoder decode.Decoder
	format  audio.Format
	nextSeq uint64
}

// NewWebSocket creates a remote generator
func NewWebSocket(config WebSocketConfig) *WebSocket {
	if len(config.Codecs) == 0 {
		config.Codecs = []string{"opus", "pcm"}
	}
	return &WebSocket{config: config}
}

// Open dials the server, sends client/hello and waits for stream/start
func (w *WebSocket) Open(ctx context.Context) (audio.Format, error) {
	log.Printf("Connecting to %s", w.config.URL)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.config.URL, nil)
	if err != nil {
		return audio.Format{}, fmt.Errorf("dial failed: %w", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	start, err := w.handshake()
	if err != nil {
		w.Close()
		return audio.Format{}, fmt.Errorf("handshake failed: %w", err)
	}

	format := audio.Format{
		Codec:      start.Codec,
		SampleRate: start.SampleRate,
		Channels:   start.Channels,
		BitDepth:   start.BitDepth,
	}
	if format.BitDepth == 0 {
		format.BitDepth = audio.BitDepth
	}
	if format.Channels != audio.DefaultChannels {
		w.Close()
		return audio.Format{}, fmt.Errorf("generator sent %d channels, need %d", format.Channels, audio.DefaultChannels)
	}

	decoder, err := decode.New(format)
	if err != nil {
		w.Close()
		return audio.Format{}, fmt.Errorf("failed to create decoder: %w", err)
	}

	w.mu.Lock()
	w.decoder = decoder
	w.format = format
	w.mu.Unlock()

	log.Printf("Generator stream: %s %d Hz, %d channels", format.Codec, format.SampleRate, format.Channels)
	return format, nil
}

func (w *WebSocket) handshake() (protocol.StreamStart, error) {
	hello := protocol.ClientHello{
		ClientID: w.config.ClientID,
		Name:     w.config.Name,
		Version:  protocol.Version,
		Codecs:   w.config.Codecs,
	}

	if err := w.conn.WriteJSON(protocol.Message{Type: protocol.TypeClientHello, Payload: hello}); err != nil {
		return protocol.StreamStart{}, fmt.Errorf("failed to send client/hello: %w", err)
	}

	w.conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	defer w.conn.SetReadDeadline(time.Time{})

	var sawHello bool
	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			return protocol.StreamStart{}, fmt.Errorf("failed to read handshake: %w", err)
		}

		msgType, payload, err := parseMessage(data)
		if err != nil {
			return protocol.StreamStart{}, err
		}

		switch msgType {
		case protocol.TypeServerHello:
			var sh protocol.ServerHello
			if err := json.Unmarshal(payload, &sh); err != nil {
				return protocol.StreamStart{}, fmt.Errorf("failed to parse server/hello: %w", err)
			}
			log.Printf("Handshake complete with %s (%s)", sh.Name, sh.ServerID)
			sawHello = true

		case protocol.TypeStreamStart:
			if !sawHello {
				return protocol.StreamStart{}, fmt.Errorf("stream/start before server/hello")
			}
			var start protocol.StreamStart
			if err := json.Unmarshal(payload, &start); err != nil {
				return protocol.StreamStart{}, fmt.Errorf("failed to parse stream/start: %w", err)
			}
			return start, nil

		default:
			return protocol.StreamStart{}, fmt.Errorf("unexpected %s during handshake", msgType)
		}
	}
}

// Stream reads binary frames until stream/end, ctx cancellation or a read error
func (w *WebSocket) Stream(ctx context.Context, emit func(*audio.Chunk)) error {
	w.mu.Lock()
	conn, decoder := w.conn, w.decoder
	w.mu.Unlock()
	if conn == nil || decoder == nil {
		return ErrNotOpen
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read error: %w", err)
		}

		switch messageType {
		case websocket.BinaryMessage:
			chunk, err := w.handleBinaryMessage(decoder, data)
			if err != nil {
				log.Printf("Dropping generator frame: %v", err)
				continue
			}
			emit(chunk)

		case websocket.TextMessage:
			msgType, _, err := parseMessage(data)
			if err != nil {
				log.Printf("Failed to parse JSON message: %v", err)
				continue
			}
			if msgType == protocol.TypeStreamEnd {
				log.Printf("Generator stream ended")
				return nil
			}
			log.Printf("Unknown message type: %s", msgType)
		}
	}
}

func (w *WebSocket) handleBinaryMessage(decoder decode.Decoder, data []byte) (*audio.Chunk, error) {
	seq, payload, err := protocol.DecodeChunkFrame(data)
	if err != nil {
		return nil, err
	}

	if seq != w.nextSeq {
		log.Printf("Generator chunk gap: expected %d, got %d", w.nextSeq, seq)
	}
	w.nextSeq = seq + 1

	samples, err := decoder.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	return audio.NewChunk(samples), nil
}

func parseMessage(data []byte) (string, json.RawMessage, error) {
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", nil, fmt.Errorf("invalid message: %w", err)
	}
	return msg.Type, msg.Payload, nil
}

// Close closes the connection and decoder
func (w *WebSocket) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.decoder != nil {
		w.decoder.Close()
		w.decoder = nil
	}
	if w.conn != nil {
		w.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err := w.conn.Close()
		w.conn = nil
		return err
	}
	return nil
}
