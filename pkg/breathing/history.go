package breathing

import (
	"sync"
	"time"
)

// DefaultHistorySize keeps a little over a minute at 30 fps.
const DefaultHistorySize = 2048

// Sample is one accepted frame.
type Sample struct {
	Time       time.Time `json:"time"`
	Size       float64   `json:"size"`
	Confidence float64   `json:"confidence"`
	Status     Status    `json:"status,omitempty"`
	Phase      Phase     `json:"phase"`
	Transition bool      `json:"transition"`
}

// History is a bounded ring of samples, oldest evicted first.
// It is safe for concurrent use.
type History struct {
	mu    sync.RWMutex
	buf   []Sample
	start int
	n     int
}

// NewHistory creates a history holding up to capacity samples.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{buf: make([]Sample, capacity)}
}

// Add appends s, evicting the oldest sample when full.
func (h *History) Add(s Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = s
		h.n++
		return
	}
	h.buf[h.start] = s
	h.start = (h.start + 1) % len(h.buf)
}

// Samples returns a copy of the history, oldest first.
func (h *History) Samples() []Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Sample, h.n)
	for i := range out {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

// Last returns the newest sample.
func (h *History) Last() (Sample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.n == 0 {
		return Sample{}, false
	}
	return h.buf[(h.start+h.n-1)%len(h.buf)], true
}

// Len returns the number of stored samples.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.n
}

// Cap returns the capacity.
func (h *History) Cap() int {
	return len(h.buf)
}

// Reset drops every sample.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.start, h.n = 0, 0
}
