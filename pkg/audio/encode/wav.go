// ABOUTME: WAV file writer for session export
// ABOUTME: Writes a 44-byte RIFF/WAVE PCM16 header followed by little-endian samples
package encode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// WAVHeaderSize is the size of the canonical PCM WAV header
const WAVHeaderSize = 44

// WAVHeader is the canonical RIFF/WAVE header for 16-bit PCM
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // 36 + data size
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * 2
	BlockAlign    uint16 // NumChannels * 2
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // samples * 2
}

// NewWAVHeader builds the header for dataSize bytes of PCM16 audio
func NewWAVHeader(dataSize uint32, sampleRate, channels int) WAVHeader {
	const bitsPerSample = 16
	blockAlign := uint16(channels * bitsPerSample / 8)

	return WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

func writeWAVHeader(w io.Writer, dataSize uint32, sampleRate, channels int) error {
	if err := binary.Write(w, binary.LittleEndian, NewWAVHeader(dataSize, sampleRate, channels)); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}
	return nil
}

// writeBlockSamples bounds each data write so long exports stream in pieces
const writeBlockSamples = 16384

// WriteWAV writes a complete WAV file for the concatenation of chunks
func WriteWAV(w io.Writer, chunks [][]int16, sampleRate, channels int) error {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}

	if err := writeWAVHeader(w, uint32(total*2), sampleRate, channels); err != nil {
		return err
	}

	var scratch []byte
	for _, c := range chunks {
		for len(c) > 0 {
			n := min(len(c), writeBlockSamples)
			scratch = AppendPCM16(scratch[:0], c[:n])
			if _, err := w.Write(scratch); err != nil {
				return fmt.Errorf("failed to write audio data: %w", err)
			}
			c = c[n:]
		}
	}
	return nil
}

// EncodeWAV returns a WAV file for the concatenation of chunks.
// Empty input yields a valid header-only file.
func EncodeWAV(chunks [][]int16, sampleRate, channels int) []byte {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}

	buf := bytes.NewBuffer(make([]byte, 0, WAVHeaderSize+total*2))
	// bytes.Buffer writes cannot fail
	_ = WriteWAV(buf, chunks, sampleRate, channels)
	return buf.Bytes()
}
