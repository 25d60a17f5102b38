package detection

import (
	"sync"

	"github.com/teslashibe/go-breathe/pkg/camera"
)

// MockDetector returns scripted candidates. Each Detect call consumes one
// entry of Results; the last entry repeats.
type MockDetector struct {
	Results [][]Candidate
	Err     error
	Model   ModelInfo

	mu     sync.Mutex
	calls  int
	closed bool
}

// NewMockDetector creates a mock serving results in order.
func NewMockDetector(results ...[]Candidate) *MockDetector {
	return &MockDetector{
		Results: results,
		Model:   ModelInfo{Backend: BackendMock, Path: "mock"},
	}
}

// Detect implements Detector.
func (m *MockDetector) Detect(frame *camera.Frame) ([]Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	call := m.calls
	m.calls++

	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Results) == 0 {
		return nil, nil
	}
	if call >= len(m.Results) {
		call = len(m.Results) - 1
	}

	out := make([]Candidate, len(m.Results[call]))
	copy(out, m.Results[call])
	return out, nil
}

// Calls returns the number of Detect calls.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Info implements Detector.
func (m *MockDetector) Info() ModelInfo {
	return m.Model
}

// Close implements Detector.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ Detector = (*MockDetector)(nil)
