package pipeline

import (
	"fmt"
	"sync"
)

// Mode selects which pipeline output the render sink consults.
type Mode string

const (
	// ModeVision shows auto exposure and smoothed detections.
	ModeVision Mode = "vision"

	// ModeAlgo exposes the manual exposure and white balance controls.
	ModeAlgo Mode = "algo"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeVision, ModeAlgo:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (want %q or %q)", s, ModeVision, ModeAlgo)
}

// ModeController holds the process-wide mode and the auto exposure flag.
// Changing mode never pauses either pipeline.
type ModeController struct {
	mu       sync.RWMutex
	mode     Mode
	auto     bool
	onChange []func(Mode)
}

// NewModeController starts in the given mode with auto exposure enabled.
func NewModeController(initial Mode) *ModeController {
	if initial != ModeAlgo {
		initial = ModeVision
	}
	return &ModeController{mode: initial, auto: true}
}

// Mode returns the current mode.
func (m *ModeController) Mode() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// Set switches mode. Entering vision mode hands exposure back to the
// automatic controller.
func (m *ModeController) Set(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}

	m.mu.Lock()
	changed := m.mode != mode
	m.mode = mode
	if mode == ModeVision {
		m.auto = true
	}
	callbacks := append([]func(Mode){}, m.onChange...)
	m.mu.Unlock()

	if changed {
		for _, fn := range callbacks {
			fn(mode)
		}
	}
	return nil
}

// Toggle flips between vision and algo and returns the new mode.
func (m *ModeController) Toggle() Mode {
	next := ModeAlgo
	if m.Mode() == ModeAlgo {
		next = ModeVision
	}
	_ = m.Set(next)
	return next
}

// AutoExposure reports whether the closed loop drives the device.
func (m *ModeController) AutoExposure() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.auto
}

// SetAutoExposure enables or disables the closed loop.
func (m *ModeController) SetAutoExposure(enabled bool) {
	m.mu.Lock()
	m.auto = enabled
	m.mu.Unlock()
}

// OnChange registers fn to run after every mode change.
func (m *ModeController) OnChange(fn func(Mode)) {
	m.mu.Lock()
	m.onChange = append(m.onChange, fn)
	m.mu.Unlock()
}
