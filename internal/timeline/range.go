// ABOUTME: Time range selection over the session history
// ABOUTME: Seconds-based, validated against the minimum granularity
package timeline

import "fmt"

const (
	// MinRangeSeconds is the shortest selectable range
	MinRangeSeconds = 0.1
	// FollowThreshold is how close to the tail the range end must be to follow growth
	FollowThreshold = 0.5
)

// Range is a [Start, End) selection in elapsed seconds
type Range struct {
	Start float64
	End   float64
}

// Duration returns End - Start
func (r Range) Duration() float64 {
	return r.End - r.Start
}

// IsZero reports whether the range was never set
func (r Range) IsZero() bool {
	return r.Start == 0 && r.End == 0
}

func (r Range) String() string {
	return fmt.Sprintf("%.2fs-%.2fs", r.Start, r.End)
}

func clampSeconds(v, total float64) float64 {
	return max(0, min(v, total))
}
