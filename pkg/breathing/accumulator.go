package breathing

import (
	"math"
	"time"
)

// Accumulator folds samples into a Summary one at a time, in constant
// memory. Samples must arrive oldest first. It matches Summarize over the
// same samples, using population standard deviation.
type Accumulator struct {
	count   int
	mean    float64
	m2      float64 // Sum of squared distances from the mean
	min     float64
	max     float64
	inhales int
	first   time.Time
	last    time.Time
}

// Add folds s into the running summary.
func (a *Accumulator) Add(s Sample) {
	a.count++
	if a.count == 1 {
		a.min, a.max = s.Size, s.Size
		a.first = s.Time
	}
	a.min = math.Min(a.min, s.Size)
	a.max = math.Max(a.max, s.Size)
	a.last = s.Time

	// Welford's update.
	delta := s.Size - a.mean
	a.mean += delta / float64(a.count)
	a.m2 += delta * (s.Size - a.mean)

	if s.Transition && s.Phase == PhaseInhaling {
		a.inhales++
	}
}

// Count returns the number of samples added.
func (a *Accumulator) Count() int {
	return a.count
}

// Summary returns the summary of every sample added so far.
func (a *Accumulator) Summary() Summary {
	s := Summary{Count: a.count}
	if a.count == 0 {
		return s
	}

	s.Mean = a.mean
	s.StdDev = math.Sqrt(a.m2 / float64(a.count))
	s.Min, s.Max = a.min, a.max
	s.Inhales = a.inhales

	s.Duration = a.last.Sub(a.first)
	if s.Duration >= time.Second {
		s.BreathsPerMinute = float64(s.Inhales) / s.Duration.Minutes()
	}
	return s
}

// Reset discards everything added.
func (a *Accumulator) Reset() {
	*a = Accumulator{}
}
