// Package camera provides the frame source, the manual exposure and white
// balance settings, and the device adapter the exposure controller drives.
package camera

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-camctl/pkg/exposure"
)

// Config holds capture device parameters.
type Config struct {
	DeviceID   int `json:"device_id" yaml:"device_id"`     // OpenCV device index
	Width      int `json:"width" yaml:"width"`             // Frame width in pixels
	Height     int `json:"height" yaml:"height"`           // Frame height in pixels
	FPS        int `json:"fps" yaml:"fps"`                 // Requested frame rate
	BufferSize int `json:"buffer_size" yaml:"buffer_size"` // Frames queued before the oldest is dropped
}

// Control ranges for manual settings. These also serve as the device range
// when the capture backend cannot report its own bounds.
const (
	MinISO = 35.0
	MaxISO = 3260.0

	MinExposure = 14 * time.Microsecond
	MaxExposure = time.Second

	MinTemperature = 3000.0
	MaxTemperature = 8000.0

	MinTint = -100.0
	MaxTint = 100.0

	// MaxWhiteBalanceGain is the per-channel gain ceiling.
	MaxWhiteBalanceGain = 4.0
)

// DefaultConfig returns a 640x480 capture at 30 fps on device 0.
func DefaultConfig() Config {
	return Config{
		DeviceID:   0,
		Width:      640,
		Height:     480,
		FPS:        30,
		BufferSize: 1,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.DeviceID < 0 {
		errors = append(errors, "device_id must be >= 0")
	}
	if c.Width < 160 || c.Width > 7680 {
		errors = append(errors, "width must be between 160 and 7680")
	}
	if c.Height < 120 || c.Height > 4320 {
		errors = append(errors, "height must be between 120 and 4320")
	}
	if c.FPS < 1 || c.FPS > 240 {
		errors = append(errors, "fps must be between 1 and 240")
	}
	if c.BufferSize < 1 || c.BufferSize > 16 {
		errors = append(errors, "buffer_size must be between 1 and 16")
	}

	return errors
}

// DefaultRange returns the device range used when the backend reports none.
func DefaultRange() exposure.DeviceRange {
	return exposure.DeviceRange{
		MinISO:              MinISO,
		MaxISO:              MaxISO,
		MinExposure:         MinExposure,
		MaxExposure:         MaxExposure,
		MaxWhiteBalanceGain: MaxWhiteBalanceGain,
	}
}

// ManualSettings are the user-facing exposure and white balance controls.
type ManualSettings struct {
	// === Exposure ===
	ExposureDuration time.Duration `json:"exposure_duration"`
	ISO              float64       `json:"iso"`

	// === White Balance ===
	// Temperature is the scene illuminant in Kelvin.
	Temperature float64 `json:"temperature"`

	// Tint shifts green (negative) to magenta (positive).
	Tint float64 `json:"tint"`
}

// DefaultManualSettings returns 10 ms at ISO 800, 5000 K, no tint.
func DefaultManualSettings() ManualSettings {
	return ManualSettings{
		ExposureDuration: 10 * time.Millisecond,
		ISO:              800,
		Temperature:      5000,
		Tint:             0,
	}
}

// Validate checks if the settings are within the control ranges.
func (s *ManualSettings) Validate() []string {
	var errors []string

	if s.ExposureDuration < MinExposure || s.ExposureDuration > MaxExposure {
		errors = append(errors, fmt.Sprintf("exposure_duration must be between %v and %v", MinExposure, MaxExposure))
	}
	if s.ISO < MinISO || s.ISO > MaxISO {
		errors = append(errors, fmt.Sprintf("iso must be between %g and %g", MinISO, MaxISO))
	}
	if s.Temperature < MinTemperature || s.Temperature > MaxTemperature {
		errors = append(errors, fmt.Sprintf("temperature must be between %g and %g", MinTemperature, MaxTemperature))
	}
	if s.Tint < MinTint || s.Tint > MaxTint {
		errors = append(errors, fmt.Sprintf("tint must be between %g and %g", MinTint, MaxTint))
	}

	return errors
}
