package camera

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"
)

// Control names one manual setting, keyed the way Update accepts it.
type Control string

const (
	ControlISO         Control = "iso"
	ControlExposure    Control = "exposure"
	ControlTemperature Control = "temperature"
	ControlTint        Control = "tint"
)

// Step sizes for Adjust, one slider notch each.
const (
	ISOStep         = 100.0
	ExposureStep    = time.Millisecond
	TemperatureStep = 100.0
	TintStep        = 1.0
)

// bounds returns the control range and step in Update's units
// (exposure in seconds).
func (c Control) bounds() (lo, hi, step float64, ok bool) {
	switch c {
	case ControlISO:
		return MinISO, MaxISO, ISOStep, true
	case ControlExposure:
		return MinExposure.Seconds(), MaxExposure.Seconds(), ExposureStep.Seconds(), true
	case ControlTemperature:
		return MinTemperature, MaxTemperature, TemperatureStep, true
	case ControlTint:
		return MinTint, MaxTint, TintStep, true
	}
	return 0, 0, 0, false
}

// Manager holds the current manual settings and applies them on request.
type Manager struct {
	settings ManualSettings
	mu       sync.RWMutex

	// Callback when settings are applied (drives the exposure controller)
	OnApply func(s ManualSettings) error
}

// NewManager creates a new manager with default settings.
func NewManager() *Manager {
	return &Manager{
		settings: DefaultManualSettings(),
	}
}

// Settings returns the current manual settings.
func (m *Manager) Settings() ManualSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Set validates and stores s without applying it.
func (m *Manager) Set(s ManualSettings) error {
	if errors := s.Validate(); len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	m.mu.Lock()
	m.settings = s
	m.mu.Unlock()
	return nil
}

// Apply pushes the current settings to OnApply.
func (m *Manager) Apply() error {
	m.mu.RLock()
	s := m.settings
	callback := m.OnApply
	m.mu.RUnlock()

	if callback == nil {
		return nil
	}
	if err := callback(s); err != nil {
		return fmt.Errorf("failed to apply settings: %w", err)
	}
	return nil
}

// Update changes specific fields of the settings. Accepts a map of field
// names to values; "preset" is applied first so other keys can override it.
// Exposure is given in seconds.
func (m *Manager) Update(params map[string]interface{}) error {
	m.mu.RLock()
	s := m.settings
	m.mu.RUnlock()

	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", presetName)
		}
		s = *preset
	}

	for key, value := range params {
		switch key {
		case "exposure":
			if v, ok := toFloat(value); ok {
				s.ExposureDuration = time.Duration(math.Round(v * float64(time.Second)))
			}
		case "iso":
			if v, ok := toFloat(value); ok {
				s.ISO = v
			}
		case "temperature":
			if v, ok := toFloat(value); ok {
				s.Temperature = v
			}
		case "tint":
			if v, ok := toFloat(value); ok {
				s.Tint = v
			}
		}
	}

	return m.Set(s)
}

// SettingsMap returns the current settings keyed the way Update accepts them.
func (m *Manager) SettingsMap() map[string]interface{} {
	s := m.Settings()
	return map[string]interface{}{
		"exposure":    s.ExposureDuration.Seconds(),
		"iso":         s.ISO,
		"temperature": s.Temperature,
		"tint":        s.Tint,
	}
}

// Adjust moves control by steps notches, clamped to its range, and stores
// the result without applying it.
func (m *Manager) Adjust(c Control, steps int) (ManualSettings, error) {
	lo, hi, step, ok := c.bounds()
	if !ok {
		return m.Settings(), fmt.Errorf("unknown control: %s", c)
	}

	cur, _ := m.SettingsMap()[string(c)].(float64)
	v := math.Max(lo, math.Min(hi, cur+float64(steps)*step))
	if err := m.Update(map[string]interface{}{string(c): v}); err != nil {
		return m.Settings(), err
	}
	return m.Settings(), nil
}

// Helper functions for type conversion

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err == nil {
			return f, true
		}
	}
	return 0, false
}
