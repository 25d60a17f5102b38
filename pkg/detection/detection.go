// Package detection runs the chest detector model over camera frames.
//
// A Detector turns one frame into a set of Candidates decoded from the
// model's fixed output grid. SelectBest picks the candidate the breathing
// estimator consumes.
package detection

import (
	"math"

	"github.com/teslashibe/go-breathe/pkg/camera"
)

// Default class labels, in output slot order.
const (
	LabelChest = "chest"
	LabelHead  = "head"
)

// Candidate is one decoded grid slot. Box values are normalized to [0,1]
// with (X, Y) at the box center.
type Candidate struct {
	X, Y       float64
	W, H       float64
	Confidence float64
	Classes    []float64 // Per-class scores
	Index      int       // Grid slot the candidate was decoded from
}

// Class returns the index of the highest class score, or -1 when the
// candidate carries no class scores. Ties go to the lower index.
func (c Candidate) Class() int {
	best := -1
	for i, s := range c.Classes {
		if best < 0 || s > c.Classes[best] {
			best = i
		}
	}
	return best
}

// Label returns the name of the winning class, or "unknown".
func (c Candidate) Label(labels []string) string {
	i := c.Class()
	if i < 0 || i >= len(labels) {
		return "unknown"
	}
	return labels[i]
}

// Area returns the normalized box area.
func (c Candidate) Area() float64 {
	return c.W * c.H
}

// Finite reports whether every box value and the confidence are finite.
func (c Candidate) Finite() bool {
	for _, v := range [...]float64{c.X, c.Y, c.W, c.H, c.Confidence} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Detector is the interface for chest detection backends.
type Detector interface {
	// Detect runs the model over frame and returns every decoded slot.
	Detect(frame *camera.Frame) ([]Candidate, error)

	// Info describes the loaded model.
	Info() ModelInfo

	// Close releases the model and its buffers.
	Close() error
}

// SelectBest returns the candidate with the greatest confidence.
// Only a strictly greater confidence replaces the current best, so the
// lowest index wins ties. Candidates with NaN or infinite values are
// ignored. It returns false when no finite candidate remains.
func SelectBest(cands []Candidate) (Candidate, bool) {
	best := -1
	for i, c := range cands {
		if !c.Finite() {
			continue
		}
		if best < 0 || c.Confidence > cands[best].Confidence {
			best = i
		}
	}
	if best < 0 {
		return Candidate{}, false
	}
	return cands[best], true
}

// ChestBox returns the first candidate labelled "chest" whose confidence
// exceeds floor.
func ChestBox(cands []Candidate, labels []string, floor float64) (Candidate, bool) {
	for _, c := range cands {
		if c.Finite() && c.Confidence > floor && c.Label(labels) == LabelChest {
			return c, true
		}
	}
	return Candidate{}, false
}
