// ABOUTME: Tests for the WAV writer
// ABOUTME: Checks header fields and sample payload layout
package encode

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	chunks := [][]int16{{1, -1, 2}, {-2, 3, -3}}
	data := EncodeWAV(chunks, 48000, 2)

	if len(data) != WAVHeaderSize+12 {
		t.Fatalf("expected %d bytes, got %d", WAVHeaderSize+12, len(data))
	}

	le := binary.LittleEndian
	tests := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"riff size", le.Uint32(data[4:8]), 36 + 12},
		{"fmt size", le.Uint32(data[16:20]), 16},
		{"audio format", uint32(le.Uint16(data[20:22])), 1},
		{"channels", uint32(le.Uint16(data[22:24])), 2},
		{"sample rate", le.Uint32(data[24:28]), 48000},
		{"byte rate", le.Uint32(data[28:32]), 48000 * 4},
		{"block align", uint32(le.Uint16(data[32:34])), 4},
		{"bits per sample", uint32(le.Uint16(data[34:36])), 16},
		{"data size", le.Uint32(data[40:44]), 12},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.name, tt.got, tt.want)
		}
	}

	for _, tag := range []struct {
		off  int
		want string
	}{{0, "RIFF"}, {8, "WAVE"}, {12, "fmt "}, {36, "data"}} {
		if got := string(data[tag.off : tag.off+4]); got != tag.want {
			t.Errorf("tag at %d: got %q, want %q", tag.off, got, tag.want)
		}
	}

	want := []int16{1, -1, 2, -2, 3, -3}
	for i, w := range want {
		if got := int16(le.Uint16(data[WAVHeaderSize+i*2:])); got != w {
			t.Errorf("sample %d: got %d, want %d", i, got, w)
		}
	}
}

func TestEncodeWAVEmpty(t *testing.T) {
	data := EncodeWAV(nil, 48000, 2)

	if len(data) != WAVHeaderSize {
		t.Fatalf("expected header-only file, got %d bytes", len(data))
	}
	if size := binary.LittleEndian.Uint32(data[40:44]); size != 0 {
		t.Errorf("expected data size 0, got %d", size)
	}
	if size := binary.LittleEndian.Uint32(data[4:8]); size != 36 {
		t.Errorf("expected riff size 36, got %d", size)
	}
}

func TestWriteWAVMatchesEncode(t *testing.T) {
	chunks := [][]int16{{10, 20}, {}, {30, 40}}

	var buf bytes.Buffer
	if err := WriteWAV(&buf, chunks, 44100, 2); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	if !bytes.Equal(buf.Bytes(), EncodeWAV(chunks, 44100, 2)) {
		t.Error("WriteWAV and EncodeWAV disagree")
	}
}

// countingWriter records the size of every write
type countingWriter struct {
	writes []int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes = append(w.writes, len(p))
	return len(p), nil
}

func TestWriteWAVStreamsInBlocks(t *testing.T) {
	samples := make([]int16, writeBlockSamples*2+10)

	var w countingWriter
	if err := WriteWAV(&w, [][]int16{samples}, 48000, 2); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	total := 0
	for i, n := range w.writes {
		if n > writeBlockSamples*2 && i > 0 {
			t.Errorf("write %d is %d bytes, expected at most %d", i, n, writeBlockSamples*2)
		}
		total += n
	}
	if total != WAVHeaderSize+len(samples)*2 {
		t.Errorf("expected %d bytes, got %d", WAVHeaderSize+len(samples)*2, total)
	}
	// header, two full blocks, one tail
	if len(w.writes) < 4 {
		t.Errorf("expected the data split over several writes, got %d", len(w.writes))
	}
}
