package exposure

import (
	"sync"
	"time"
)

// MockDevice implements Device for testing.
type MockDevice struct {
	mu sync.Mutex

	// Present controls Available.
	Present bool

	// DeviceRange is returned by Range unless RangeErr is set.
	DeviceRange DeviceRange
	RangeErr    error

	// LockErr makes Lock fail.
	LockErr error

	// WriteErr makes SetExposure and SetWhiteBalanceGains fail.
	WriteErr error

	// GainsFunc maps temperature and tint. Defaults to unity gains.
	GainsFunc func(temperature, tint float64) (Gains, error)

	iso      float64
	duration time.Duration
	gains    Gains
	locked   bool
	locks    int
	releases int
	writes   []MockWrite
}

// MockWrite records one actuation.
type MockWrite struct {
	Duration time.Duration
	ISO      float64
	Gains    *Gains
}

// NewMockDevice creates a present device with the given range and an initial
// ISO and exposure duration.
func NewMockDevice(rng DeviceRange, iso float64, duration time.Duration) *MockDevice {
	return &MockDevice{
		Present:     true,
		DeviceRange: rng,
		iso:         iso,
		duration:    duration,
	}
}

// Available reports Present.
func (m *MockDevice) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Present
}

// Range returns DeviceRange or RangeErr.
func (m *MockDevice) Range() (DeviceRange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RangeErr != nil {
		return DeviceRange{}, m.RangeErr
	}
	return m.DeviceRange, nil
}

// Lock acquires the mock configuration lock or returns LockErr.
func (m *MockDevice) Lock() (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LockErr != nil {
		return nil, m.LockErr
	}
	if m.locked {
		return nil, ErrConfigurationLock
	}
	m.locked = true
	m.locks++
	return func() {
		m.mu.Lock()
		m.locked = false
		m.releases++
		m.mu.Unlock()
	}, nil
}

// SetExposure records the write and updates the readback values.
func (m *MockDevice) SetExposure(duration time.Duration, iso float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.duration = duration
	m.iso = iso
	m.writes = append(m.writes, MockWrite{Duration: duration, ISO: iso})
	return nil
}

// ISO returns the last written ISO.
func (m *MockDevice) ISO() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.iso
}

// ExposureDuration returns the last written exposure duration.
func (m *MockDevice) ExposureDuration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

// GainsFor calls GainsFunc, or returns unity gains.
func (m *MockDevice) GainsFor(temperature, tint float64) (Gains, error) {
	m.mu.Lock()
	fn := m.GainsFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(temperature, tint)
	}
	return Gains{Red: 1, Green: 1, Blue: 1}, nil
}

// SetWhiteBalanceGains records the write.
func (m *MockDevice) SetWhiteBalanceGains(g Gains) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.gains = g
	gains := g
	m.writes = append(m.writes, MockWrite{Gains: &gains})
	return nil
}

// Writes returns a copy of all recorded actuations.
func (m *MockDevice) Writes() []MockWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockWrite, len(m.writes))
	copy(out, m.writes)
	return out
}

// LockCounts returns how many times the lock was acquired and released.
func (m *MockDevice) LockCounts() (locks, releases int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locks, m.releases
}

// SetISO overrides the ISO readback, as if the device changed on its own.
func (m *MockDevice) SetISO(iso float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.iso = iso
}
