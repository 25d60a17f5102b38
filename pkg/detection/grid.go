package detection

import "fmt"

// DecodeGrid turns raw model output into one Candidate per grid slot.
// No slot is filtered; thresholds apply downstream.
func DecodeGrid(data []float32, g GridLayout) ([]Candidate, error) {
	stride := g.Stride()
	if g.Slots <= 0 || g.NumClasses < 0 {
		return nil, fmt.Errorf("detection: invalid grid %d slots x %d", g.Slots, stride)
	}
	if len(data) < g.Len() {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrShortOutput, len(data), g.Len())
	}

	at := func(slot, k int) float64 {
		if g.ChannelMajor {
			return float64(data[k*g.Slots+slot])
		}
		return float64(data[slot*stride+k])
	}

	cands := make([]Candidate, g.Slots)
	for i := range cands {
		classes := make([]float64, g.NumClasses)
		for c := range classes {
			classes[c] = at(i, 5+c)
		}
		cands[i] = Candidate{
			X:          at(i, 0),
			Y:          at(i, 1),
			W:          at(i, 2),
			H:          at(i, 3),
			Confidence: at(i, 4),
			Classes:    classes,
			Index:      i,
		}
	}
	return cands, nil
}
