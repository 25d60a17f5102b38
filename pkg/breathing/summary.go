package breathing

import (
	"time"

	"github.com/montanaflynn/stats"
)

// Summary describes a run of samples.
type Summary struct {
	Count    int           `json:"count"`
	Mean     float64       `json:"mean"`
	StdDev   float64       `json:"stddev"`
	Min      float64       `json:"min"`
	Max      float64       `json:"max"`
	Inhales  int           `json:"inhales"` // Transitions into inhaling
	Duration time.Duration `json:"duration"`

	// BreathsPerMinute is Inhales over Duration, 0 for windows under a second.
	BreathsPerMinute float64 `json:"breaths_per_minute"`
}

// Summarize computes size statistics and the breathing rate for samples,
// which must be ordered oldest first.
func Summarize(samples []Sample) Summary {
	s := Summary{Count: len(samples)}
	if len(samples) == 0 {
		return s
	}

	sizes := make(stats.Float64Data, len(samples))
	for i, smp := range samples {
		sizes[i] = smp.Size
		if smp.Transition && smp.Phase == PhaseInhaling {
			s.Inhales++
		}
	}

	s.Mean, _ = stats.Mean(sizes)
	s.StdDev, _ = stats.StandardDeviation(sizes)
	s.Min, _ = stats.Min(sizes)
	s.Max, _ = stats.Max(sizes)

	s.Duration = samples[len(samples)-1].Time.Sub(samples[0].Time)
	if s.Duration >= time.Second {
		s.BreathsPerMinute = float64(s.Inhales) / s.Duration.Minutes()
	}
	return s
}

// Summary summarizes the stored samples.
func (h *History) Summary() Summary {
	return Summarize(h.Samples())
}
