package camera

import (
	"sync"
	"time"
)

// MockSource is a scripted Source for tests.
// It reports ErrNotReady for the first NotReadyFor captures, then serves
// Frames in order, repeating the last one.
type MockSource struct {
	// Frames to serve. A nil entry yields a ready black frame of Width x Height.
	Frames []*Frame

	// Width and Height of generated frames (default 64x48).
	Width, Height int

	// NotReadyFor is the number of captures answered with ErrNotReady.
	NotReadyFor int

	// Err, when set, is returned from every capture after warm-up.
	Err error

	mu       sync.Mutex
	captures int
	served   int
	seq      uint64
	closed   bool
}

// NewMockSource creates a mock that serves the given frames.
func NewMockSource(frames ...*Frame) *MockSource {
	return &MockSource{Frames: frames, Width: 64, Height: 48}
}

// Capture implements Source.
func (m *MockSource) Capture() (*Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	m.captures++
	if m.captures <= m.NotReadyFor {
		return nil, ErrNotReady
	}
	if m.Err != nil {
		return nil, m.Err
	}

	var f *Frame
	switch {
	case len(m.Frames) == 0:
	case m.served < len(m.Frames):
		f = m.Frames[m.served]
	default:
		f = m.Frames[len(m.Frames)-1]
	}
	m.served++

	if f == nil {
		w, h := m.Width, m.Height
		if w == 0 || h == 0 {
			w, h = 64, 48
		}
		f = NewFrame(w, h)
	} else {
		cp := *f
		f = &cp
	}

	m.seq++
	f.Seq = m.seq
	f.Captured = time.Now()
	return f, nil
}

// Captures returns how many times Capture was called.
func (m *MockSource) Captures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captures
}

// Closed reports whether Close was called.
func (m *MockSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Name implements Source.
func (m *MockSource) Name() string {
	return "mock"
}

// Close implements Source.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ Source = (*MockSource)(nil)
