// ABOUTME: Bounded amplitude summary, one RMS value per chunk until the limit
// ABOUTME: Past the limit adjacent values are pair-averaged and each entry covers more chunks
package history

import "math"

// MaxSummary bounds the amplitude summary length
const MaxSummary = 65536

type summary struct {
	values []float64
	limit  int
	stride int // chunks per value

	// partial bucket while stride > 1
	pendingSum float64
	pendingN   int
}

func newSummary(limit int) *summary {
	if limit < 2 {
		limit = 2
	}
	return &summary{limit: limit, stride: 1}
}

func (s *summary) add(v float64) {
	s.pendingSum += v
	s.pendingN++
	if s.pendingN < s.stride {
		return
	}

	s.values = append(s.values, s.pendingSum/float64(s.pendingN))
	s.pendingSum, s.pendingN = 0, 0

	if len(s.values) >= s.limit {
		s.compact()
	}
}

func (s *summary) compact() {
	half := len(s.values) / 2
	for i := 0; i < half; i++ {
		s.values[i] = (s.values[2*i] + s.values[2*i+1]) / 2
	}
	if len(s.values)%2 == 1 {
		// Leftover entry seeds the next bucket
		s.pendingSum = s.values[len(s.values)-1] * float64(s.stride)
		s.pendingN = s.stride
	}
	s.values = s.values[:half]
	s.stride *= 2
}

// snapshot copies the values, including the partial bucket
func (s *summary) snapshot() []float64 {
	out := make([]float64, len(s.values), len(s.values)+1)
	copy(out, s.values)
	if s.pendingN > 0 {
		out = append(out, s.pendingSum/float64(s.pendingN))
	}
	return out
}

// chunkRMS samples every max(1, len/100)-th value, normalized to [0, 1]
func chunkRMS(chunk []int16) float64 {
	if len(chunk) == 0 {
		return 0
	}
	step := max(1, len(chunk)/100)

	sum := 0.0
	n := 0
	for i := 0; i < len(chunk); i += step {
		v := float64(chunk[i]) / 32768
		sum += v * v
		n++
	}
	return math.Sqrt(sum / float64(n))
}
