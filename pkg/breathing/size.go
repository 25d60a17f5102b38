package breathing

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateBox is returned for boxes with no height, negative width or
// non-finite dimensions.
var ErrDegenerateBox = errors.New("breathing: degenerate bounding box")

// Weights combine the three box features into one chest size.
type Weights struct {
	Area      float64 `json:"area"`      // w*h
	Ratio     float64 `json:"ratio"`     // w/h
	Perimeter float64 `json:"perimeter"` // 2*(w+h)
}

// DefaultWeights returns 0.6 / 0.2 / 0.2.
func DefaultWeights() Weights {
	return Weights{Area: 0.6, Ratio: 0.2, Perimeter: 0.2}
}

// Validate rejects negative or non-finite weights.
func (w Weights) Validate() error {
	for _, v := range [...]float64{w.Area, w.Ratio, w.Perimeter} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("breathing: weights must be finite and non-negative, got %+v", w)
		}
	}
	return nil
}

// ChestSize folds a normalized box into a scalar size:
//
//	Area*(w*h) + Ratio*(w/h) + Perimeter*(2*(w+h))
func ChestSize(w, h float64, wt Weights) (float64, error) {
	if !finite(w) || !finite(h) || h <= 0 || w < 0 {
		return 0, fmt.Errorf("%w: w=%v h=%v", ErrDegenerateBox, w, h)
	}
	return wt.Area*(w*h) + wt.Ratio*(w/h) + wt.Perimeter*(2*(w+h)), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
