// Package exposure implements a brightness-driven ISO controller that replaces
// the camera's built-in auto-exposure, plus manual exposure and white-balance
// actuation with device-range clamping.
package exposure

// Config holds the control-loop parameters.
//
// BaseGain, GainExponent and Smoothing jointly set convergence speed and
// overshoot. The exponential response is unbounded in gain; Smoothing is the
// only damping.
type Config struct {
	Target           float64 `json:"target" yaml:"target"`                         // Setpoint luminance (0-1)
	BaseGain         float64 `json:"base_gain" yaml:"base_gain"`                   // Scales |error|^GainExponent
	GainExponent     float64 `json:"gain_exponent" yaml:"gain_exponent"`           // Shape of the error-scaled gain
	MinEffectiveGain float64 `json:"min_effective_gain" yaml:"min_effective_gain"` // Floor on the effective gain
	Smoothing        float64 `json:"smoothing" yaml:"smoothing"`                   // EMA alpha against the previous ISO (0-1]

	// WhiteBalanceFloor is the lowest gain any channel may be set to.
	// Sub-unity gains are never valid, so this stays at 1.0.
	WhiteBalanceFloor float64 `json:"white_balance_floor" yaml:"white_balance_floor"`
}

// DefaultConfig returns the tuned control-loop parameters.
func DefaultConfig() Config {
	return Config{
		Target:            0.5,   // Mid-gray
		BaseGain:          100.0, // Aggressive on large errors
		GainExponent:      2.0,   // Squared-error gain
		MinEffectiveGain:  1.0,
		Smoothing:         0.05, // 5% new, 95% old
		WhiteBalanceFloor: 1.0,
	}
}

// ResponsiveConfig trades stability for faster settling.
// Useful on a bench with static lighting; expect visible overshoot.
func ResponsiveConfig() Config {
	cfg := DefaultConfig()
	cfg.Smoothing = 0.15
	return cfg
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Target <= 0 || c.Target >= 1 {
		errors = append(errors, "target must be between 0 and 1 (exclusive)")
	}
	if c.BaseGain < 0 {
		errors = append(errors, "base_gain must not be negative")
	}
	if c.GainExponent <= 0 {
		errors = append(errors, "gain_exponent must be positive")
	}
	if c.MinEffectiveGain <= 0 {
		errors = append(errors, "min_effective_gain must be positive")
	}
	if c.Smoothing <= 0 || c.Smoothing > 1 {
		errors = append(errors, "smoothing must be in (0, 1]")
	}
	if c.WhiteBalanceFloor != 1.0 {
		errors = append(errors, "white_balance_floor must be 1.0")
	}

	return errors
}
