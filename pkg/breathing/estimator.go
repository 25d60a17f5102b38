package breathing

import (
	"errors"
	"fmt"
)

// ErrInvalidSize is returned for negative or non-finite sizes.
var ErrInvalidSize = errors.New("breathing: invalid chest size")

// Status is the diagnostic bucket of one relative change.
type Status string

const (
	StatusInhale Status = "Inhale"
	StatusExhale Status = "Exhale"
	StatusSteady Status = "No significant change"
)

// Phase is the current breathing phase.
type Phase string

const (
	PhaseInhaling Phase = "inhaling"
	PhaseExhaling Phase = "exhaling"
)

// Reading is the outcome of one Update.
type Reading struct {
	Size           float64 `json:"size"`
	Last           float64 `json:"last"`
	RelativeChange float64 `json:"relative_change"`
	Status         Status  `json:"status,omitempty"` // Empty for baselines
	Phase          Phase   `json:"phase"`
	Transition     bool    `json:"transition"` // Phase flipped on this sample
	Baseline       bool    `json:"baseline"`   // Sample became the new reference, no comparison made
}

// Inhaling reports whether the reading is in the inhaling phase.
func (r Reading) Inhaling() bool {
	return r.Phase == PhaseInhaling
}

// Estimator tracks the breathing phase across consecutive chest sizes.
// It is not safe for concurrent use.
type Estimator struct {
	cfg Config

	hasLast  bool
	last     float64
	inhaling bool
}

// NewEstimator creates an estimator in the reset state.
func NewEstimator(cfg Config) *Estimator {
	return &Estimator{cfg: cfg}
}

// Config returns the estimator thresholds.
func (e *Estimator) Config() Config {
	return e.cfg
}

// Reset forgets the baseline and returns to exhaling.
func (e *Estimator) Reset() {
	e.hasLast = false
	e.last = 0
	e.inhaling = false
}

// Inhaling reports the current phase.
func (e *Estimator) Inhaling() bool {
	return e.inhaling
}

// Last returns the stored baseline and whether one exists.
func (e *Estimator) Last() (float64, bool) {
	return e.last, e.hasLast
}

// Update folds one chest size into the estimate.
//
// The first size after Reset, or any size following a stored size of 0,
// only becomes the baseline. Every later size is compared against the
// previous one. The phase flips to inhaling on a change above
// +BreathingThreshold and back to exhaling below -BreathingThreshold.
func (e *Estimator) Update(size float64) (Reading, error) {
	if !finite(size) || size < 0 {
		return Reading{}, fmt.Errorf("%w: %v", ErrInvalidSize, size)
	}

	r := Reading{Size: size, Last: e.last}

	if !e.hasLast || e.last == 0 {
		e.hasLast = true
		e.last = size
		r.Baseline = true
		r.Phase = e.phase()
		return r, nil
	}

	change := (size - e.last) / e.last
	r.RelativeChange = change

	st := e.cfg.StatusThreshold
	switch {
	case change > st:
		r.Status = StatusInhale
	case change < -st:
		r.Status = StatusExhale
	default:
		r.Status = StatusSteady
	}

	bt := e.cfg.BreathingThreshold
	switch {
	case change > bt && !e.inhaling:
		e.inhaling = true
		r.Transition = true
	case change < -bt && e.inhaling:
		e.inhaling = false
		r.Transition = true
	}

	e.last = size
	r.Phase = e.phase()
	return r, nil
}

func (e *Estimator) phase() Phase {
	if e.inhaling {
		return PhaseInhaling
	}
	return PhaseExhaling
}
