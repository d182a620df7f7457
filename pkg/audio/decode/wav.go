// ABOUTME: WAV file reader
// ABOUTME: Walks RIFF chunks to the PCM16 data chunk and streams float32 samples
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrInvalidWAV is returned for files that are not 16-bit PCM RIFF/WAVE
var ErrInvalidWAV = errors.New("invalid WAV file")

type riffChunk struct {
	ID   [4]byte
	Size uint32
}

type wavFmt struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// WAVInfo describes the PCM payload of a WAV stream
type WAVInfo struct {
	SampleRate int
	Channels   int
	DataSize   int
}

// ReadWAVHeader consumes the RIFF header and chunks up to the start of the
// data chunk, leaving r positioned at the first sample.
func ReadWAVHeader(r io.Reader) (WAVInfo, error) {
	var riff struct {
		ID     [4]byte
		Size   uint32
		Format [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &riff); err != nil {
		return WAVInfo{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	if string(riff.ID[:]) != "RIFF" || string(riff.Format[:]) != "WAVE" {
		return WAVInfo{}, fmt.Errorf("%w: missing RIFF/WAVE tags", ErrInvalidWAV)
	}

	var info WAVInfo
	haveFmt := false
	for {
		var chunk riffChunk
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			return WAVInfo{}, fmt.Errorf("%w: no data chunk", ErrInvalidWAV)
		}

		switch string(chunk.ID[:]) {
		case "fmt ":
			var f wavFmt
			if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
				return WAVInfo{}, fmt.Errorf("%w: short fmt chunk", ErrInvalidWAV)
			}
			if f.AudioFormat != 1 || f.BitsPerSample != 16 {
				return WAVInfo{}, fmt.Errorf("%w: only 16-bit PCM is supported (format %d, %d bits)",
					ErrInvalidWAV, f.AudioFormat, f.BitsPerSample)
			}
			if err := skip(r, int64(chunk.Size)-16); err != nil {
				return WAVInfo{}, err
			}
			info.SampleRate = int(f.SampleRate)
			info.Channels = int(f.NumChannels)
			haveFmt = true
		case "data":
			if !haveFmt {
				return WAVInfo{}, fmt.Errorf("%w: data before fmt", ErrInvalidWAV)
			}
			info.DataSize = int(chunk.Size)
			return info, nil
		default:
			// Chunks are word aligned
			if err := skip(r, int64(chunk.Size+chunk.Size%2)); err != nil {
				return WAVInfo{}, err
			}
		}
	}
}

func skip(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("%w: truncated chunk", ErrInvalidWAV)
	}
	return nil
}

type wavReader struct {
	file      *os.File
	info      WAVInfo
	remaining int
	buf       []byte
}

func newWAVReader(f *os.File) (*wavReader, error) {
	info, err := ReadWAVHeader(f)
	if err != nil {
		return nil, err
	}
	return &wavReader{file: f, info: info, remaining: info.DataSize}, nil
}

func (r *wavReader) Read(dst []float32) (int, error) {
	if r.remaining < 2 {
		return 0, io.EOF
	}

	want := min(len(dst)*2, r.remaining&^1)
	if cap(r.buf) < want {
		r.buf = make([]byte, want)
	}
	buf := r.buf[:want]

	n, err := io.ReadFull(r.file, buf)
	r.remaining -= n
	samples := DecodePCM16Into(dst, buf[:n])
	if err == io.ErrUnexpectedEOF {
		r.remaining = 0
		err = nil
	}
	return samples, err
}

func (r *wavReader) SampleRate() int { return r.info.SampleRate }
func (r *wavReader) Channels() int   { return r.info.Channels }
func (r *wavReader) Close() error    { return r.file.Close() }
