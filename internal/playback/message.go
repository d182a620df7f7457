// ABOUTME: Messages exchanged between the control context and the playback buffer
// ABOUTME: Closed set: Push and Clear flow in, MetricsReport flows out
package playback

import "github.com/Resonate-Protocol/resonate-tape/pkg/audio"

// Message is implemented only by Push, Clear and MetricsReport
type Message interface {
	isMessage()
}

// Push hands a chunk to the buffer
type Push struct {
	Chunk *audio.Chunk
}

// Clear empties the buffer
type Clear struct{}

// MetricsReport is a telemetry snapshot from the real-time context
type MetricsReport struct {
	Queued    int // interleaved samples
	Underruns int // silent frames since last Clear
}

func (Push) isMessage()          {}
func (Clear) isMessage()         {}
func (MetricsReport) isMessage() {}

// Seconds converts the queued sample count to buffered seconds
func (r MetricsReport) Seconds(sampleRate, channels int) float64 {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	return float64(r.Queued) / float64(sampleRate*channels)
}
