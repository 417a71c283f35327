package exposure

import (
	"fmt"
	"time"
)

// DeviceRange is a snapshot of the device's actuation bounds.
// It may change between calls and must be queried fresh for every command.
type DeviceRange struct {
	MinISO              float64
	MaxISO              float64
	MinExposure         time.Duration
	MaxExposure         time.Duration
	MaxWhiteBalanceGain float64
}

// Validate reports whether the range can be used for clamping.
func (r DeviceRange) Validate() error {
	if r.MinISO <= 0 || r.MaxISO < r.MinISO {
		return fmt.Errorf("%w: iso [%g, %g]", ErrInvalidRange, r.MinISO, r.MaxISO)
	}
	if r.MinExposure <= 0 || r.MaxExposure < r.MinExposure {
		return fmt.Errorf("%w: exposure [%v, %v]", ErrInvalidRange, r.MinExposure, r.MaxExposure)
	}
	if r.MaxWhiteBalanceGain < 1 {
		return fmt.Errorf("%w: white balance max gain %g", ErrInvalidRange, r.MaxWhiteBalanceGain)
	}
	return nil
}

// ClampISO limits iso to [MinISO, MaxISO].
func (r DeviceRange) ClampISO(iso float64) float64 {
	return clamp(iso, r.MinISO, r.MaxISO)
}

// ClampExposure limits d to [MinExposure, MaxExposure].
func (r DeviceRange) ClampExposure(d time.Duration) time.Duration {
	if d < r.MinExposure {
		return r.MinExposure
	}
	if d > r.MaxExposure {
		return r.MaxExposure
	}
	return d
}

// Gains are per-channel white-balance multipliers.
type Gains struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

// Device is the actuation surface the controller drives.
//
// SetExposure must apply duration and ISO as one write. Lock acquires
// exclusive configuration access and returns the function that releases it.
type Device interface {
	// Available reports whether an actuation target is present.
	Available() bool

	// Range returns the current actuation bounds.
	Range() (DeviceRange, error)

	// Lock acquires exclusive configuration access.
	Lock() (release func(), err error)

	// SetExposure writes exposure duration and ISO together.
	SetExposure(duration time.Duration, iso float64) error

	// ISO returns the device's current ISO readback.
	ISO() float64

	// ExposureDuration returns the device's current exposure duration.
	ExposureDuration() time.Duration

	// GainsFor maps a color temperature (K) and tint to device gains.
	GainsFor(temperature, tint float64) (Gains, error)

	// SetWhiteBalanceGains writes all three channel gains together.
	SetWhiteBalanceGains(g Gains) error
}

// State is the controller's view of the last successful actuation.
type State struct {
	ISO              float64       `json:"iso"`
	ExposureDuration time.Duration `json:"exposure_duration"`
	WhiteBalance     Gains         `json:"white_balance"`
}

// clamp limits a value to a range
func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
