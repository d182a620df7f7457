// ABOUTME: Append-only log of every int16 chunk received this session
// ABOUTME: Keeps a running sample total and a per-chunk amplitude summary for scrubbing
package history

import (
	"sort"
	"sync"

	"github.com/Resonate-Protocol/resonate-tape/pkg/audio"
)

// Store holds the session's audio for review and export.
// Chunks are immutable once appended. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	chunks     [][]int16
	offsets    []int // first sample index of each chunk
	total      int
	sampleRate int
	channels   int
	summary    *summary
}

// New creates an empty store for the given format
func New(sampleRate, channels int) *Store {
	return &Store{
		sampleRate: sampleRate,
		channels:   channels,
		summary:    newSummary(MaxSummary),
	}
}

// Append takes ownership of chunk and adds it to the end of the log.
// Empty chunks are skipped.
func (s *Store) Append(chunk []int16) {
	if len(chunk) == 0 {
		return
	}
	rms := chunkRMS(chunk)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = append(s.chunks, chunk)
	s.offsets = append(s.offsets, s.total)
	s.total += len(chunk)
	s.summary.add(rms)
}

// TotalSamples returns the interleaved sample count across all chunks
func (s *Store) TotalSamples() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// TotalDuration returns the log length in seconds, 0 when empty or rate unknown
func (s *Store) TotalDuration() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.format().Duration(s.total)
}

// Len returns the number of chunks
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Format returns the session format of the stored audio
func (s *Store) Format() audio.Format {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.format()
}

func (s *Store) format() audio.Format {
	return audio.Format{
		Codec:      "pcm",
		SampleRate: s.sampleRate,
		Channels:   s.channels,
		BitDepth:   audio.BitDepth,
	}
}

// SetSampleRate records the rate negotiated for a new session.
// Only meaningful on an empty store.
func (s *Store) SetSampleRate(rate int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sampleRate = rate
}

// Clear drops all audio and the summary. Used on session restart only.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = nil
	s.offsets = nil
	s.total = 0
	s.summary = newSummary(s.summary.limit)
}

// Slice returns a flattened copy of samples [start, end), clamped to the log
func (s *Store) Slice(start, end int) []int16 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start = max(0, start)
	end = min(end, s.total)
	if start >= end {
		return nil
	}

	out := make([]int16, 0, end-start)

	// Last chunk starting at or before start
	i := sort.Search(len(s.offsets), func(i int) bool { return s.offsets[i] > start }) - 1
	for ; i < len(s.chunks) && s.offsets[i] < end; i++ {
		c := s.chunks[i]
		lo := max(0, start-s.offsets[i])
		hi := min(len(c), end-s.offsets[i])
		out = append(out, c[lo:hi]...)
	}
	return out
}

// DownsampleAmplitudes reduces the summary to exactly bars values for display
func (s *Store) DownsampleAmplitudes(bars int) []float64 {
	s.mu.RLock()
	values := s.summary.snapshot()
	s.mu.RUnlock()

	return downsample(values, bars)
}

// downsample averages contiguous runs [i*n/bars, (i+1)*n/bars); empty runs are 0
func downsample(values []float64, bars int) []float64 {
	if bars <= 0 {
		return []float64{}
	}

	out := make([]float64, bars)
	n := len(values)
	for i := 0; i < bars; i++ {
		lo := i * n / bars
		hi := (i + 1) * n / bars
		if hi <= lo {
			continue
		}
		sum := 0.0
		for _, v := range values[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}
