// Package breathing turns a stream of chest bounding boxes into breathing
// phase readings.
//
// The box of each accepted frame is folded into a scalar chest size. The
// Estimator compares consecutive sizes and flips between inhaling and
// exhaling when the relative change crosses BreathingThreshold.
package breathing

import (
	"fmt"
	"math"
)

// Defaults tuned for the deployed scene.
const (
	DefaultStatusThreshold    = 0.005
	DefaultBreathingThreshold = 0.01
)

// Config holds the estimator thresholds. Both are relative changes
// between consecutive chest sizes.
type Config struct {
	// StatusThreshold buckets each change into Inhale, Exhale or
	// No significant change. Diagnostic only.
	StatusThreshold float64 `json:"status_threshold"`

	// BreathingThreshold is the change needed to flip the breathing phase.
	BreathingThreshold float64 `json:"breathing_threshold"`

	Weights Weights `json:"weights"`
}

// DefaultConfig returns the deployed thresholds and weights.
func DefaultConfig() Config {
	return Config{
		StatusThreshold:    DefaultStatusThreshold,
		BreathingThreshold: DefaultBreathingThreshold,
		Weights:            DefaultWeights(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !validThreshold(c.StatusThreshold) {
		return fmt.Errorf("breathing: status_threshold must be in [0, 1), got %v", c.StatusThreshold)
	}
	if !validThreshold(c.BreathingThreshold) {
		return fmt.Errorf("breathing: breathing_threshold must be in [0, 1), got %v", c.BreathingThreshold)
	}
	return c.Weights.Validate()
}

func validThreshold(t float64) bool {
	return !math.IsNaN(t) && t >= 0 && t < 1
}
