package pipeline

import (
	"time"

	"github.com/teslashibe/go-breathe/pkg/breathing"
	"github.com/teslashibe/go-breathe/pkg/detection"
	"github.com/teslashibe/go-breathe/pkg/overlay"
)

// Outcome says what happened to a frame.
type Outcome string

const (
	Processed      Outcome = "processed"
	BelowThreshold Outcome = "below_threshold"
	NoCandidates   Outcome = "no_candidates"
	Degenerate     Outcome = "degenerate"
	NotReady       Outcome = "not_ready"
)

// Result is the outcome of one frame.
type Result struct {
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"time"`
	Outcome Outcome   `json:"outcome"`

	FrameWidth  int `json:"frame_width"`
	FrameHeight int `json:"frame_height"`

	// Best is the selected candidate; zero unless a candidate was found.
	Best       detection.Candidate `json:"best"`
	Label      string              `json:"label,omitempty"`
	Confidence float64             `json:"confidence"`
	Box        overlay.Box         `json:"box"`

	// ChestSize and Reading are set for Processed results.
	ChestSize float64           `json:"chest_size"`
	Reading   breathing.Reading `json:"reading"`
}

// Accepted reports whether the frame reached the estimator.
func (r Result) Accepted() bool {
	return r.Outcome == Processed
}

// Sink receives every result. Publish is called on the loop goroutine and
// must not block for long.
type Sink interface {
	Publish(Result)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Result)

// Publish implements Sink.
func (f SinkFunc) Publish(r Result) { f(r) }

// Stats counts frames by outcome.
type Stats struct {
	Frames            int `json:"frames"`
	Processed         int `json:"processed"`
	BelowThreshold    int `json:"below_threshold"`
	NoCandidates      int `json:"no_candidates"`
	Degenerate        int `json:"degenerate"`
	NotReady          int `json:"not_ready"`
	Errors            int `json:"errors"`
	Transitions       int `json:"transitions"`
	ConsecutiveMisses int `json:"consecutive_misses"`
}

// Skipped returns frames that did not reach the estimator.
func (s Stats) Skipped() int {
	return s.BelowThreshold + s.NoCandidates + s.Degenerate + s.NotReady
}
