// ABOUTME: Generator wire protocol message definitions
// ABOUTME: JSON control messages and the binary chunk frame used on /generate
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// Version is the generator protocol version carried in hello messages
	Version = 1

	// Path is the HTTP path the generator server upgrades on
	Path = "/generate"

	// ChunkMessageType is the first byte of every binary chunk frame
	ChunkMessageType = 1

	// ChunkHeaderSize is type byte + big-endian sequence number
	ChunkHeaderSize = 9
)

// Message types
const (
	TypeClientHello = "client/hello"
	TypeServerHello = "server/hello"
	TypeStreamStart = "stream/start"
	TypeStreamEnd   = "stream/end"
)

var ErrShortFrame = errors.New("chunk frame too short")

// Message is the top-level wrapper for all JSON control messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ClientHello is sent by the player to open a generator stream
type ClientHello struct {
	ClientID string   `json:"client_id"`
	Name     string   `json:"name"`
	Version  int      `json:"version"`
	Codecs   []string `json:"codecs"` // in order of preference
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// StreamStart announces the format of the binary frames that follow
type StreamStart struct {
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth,omitempty"`
}

// StreamEnd is sent when the source is exhausted
type StreamEnd struct {
	Reason string `json:"reason,omitempty"`
}

// EncodeChunkFrame prefixes payload with the chunk header
func EncodeChunkFrame(seq uint64, payload []byte) []byte {
	frame := make([]byte, ChunkHeaderSize+len(payload))
	frame[0] = ChunkMessageType
	binary.BigEndian.PutUint64(frame[1:ChunkHeaderSize], seq)
	copy(frame[ChunkHeaderSize:], payload)
	return frame
}

// DecodeChunkFrame splits a binary frame into sequence number and payload.
// The payload aliases data.
func DecodeChunkFrame(data []byte) (uint64, []byte, error) {
	if len(data) < ChunkHeaderSize {
		return 0, nil, ErrShortFrame
	}
	if data[0] != ChunkMessageType {
		return 0, nil, fmt.Errorf("unknown binary message type %d", data[0])
	}
	seq := binary.BigEndian.Uint64(data[1:ChunkHeaderSize])
	return seq, data[ChunkHeaderSize:], nil
}
