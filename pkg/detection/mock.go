package detection

import (
	"context"
	"image"
	"sync"
)

// MockDetector implements Detector for testing.
type MockDetector struct {
	// DetectFunc is called when Detect is invoked. When nil, Detect returns
	// Results.
	DetectFunc func(ctx context.Context, frame image.Image) ([]Detection, error)

	// Results is returned by Detect when DetectFunc is nil.
	Results []Detection

	mu     sync.Mutex
	calls  int
	closed bool
}

// NewMockDetector returns a mock that always reports dets.
func NewMockDetector(dets ...Detection) *MockDetector {
	return &MockDetector{Results: dets}
}

// Detect records the call and returns the configured result.
func (m *MockDetector) Detect(ctx context.Context, frame image.Image) ([]Detection, error) {
	m.mu.Lock()
	m.calls++
	fn := m.DetectFunc
	res := append([]Detection(nil), m.Results...)
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, frame)
	}
	return res, nil
}

// Close marks the mock closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns how many times Detect was invoked.
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
