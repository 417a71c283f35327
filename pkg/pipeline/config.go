package pipeline

import "time"

// Config holds frame loop parameters.
type Config struct {
	// DetectEvery launches detection on every Nth frame.
	DetectEvery int `json:"detect_every" yaml:"detect_every"`

	// MaxInFlight bounds concurrent detector calls. Frames sampled while
	// the bound is reached are skipped, not queued.
	MaxInFlight int `json:"max_in_flight" yaml:"max_in_flight"`

	// DecayInterval is how often aged boxes are evicted when no new
	// detections arrive.
	DecayInterval time.Duration `json:"decay_interval" yaml:"decay_interval"`

	// LogEvery logs a stats line every N frames (0 disables).
	LogEvery int `json:"log_every" yaml:"log_every"`

	// SubscriberBuffer is the channel size for Subscribe.
	SubscriberBuffer int `json:"subscriber_buffer" yaml:"subscriber_buffer"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		DetectEvery:      3,
		MaxInFlight:      1,
		DecayInterval:    250 * time.Millisecond,
		LogEvery:         300,
		SubscriberBuffer: 4,
	}
}

// Validate checks if the config values are within valid ranges.
func (c *Config) Validate() []string {
	var errors []string

	if c.DetectEvery < 1 {
		errors = append(errors, "detect_every must be >= 1")
	}
	if c.MaxInFlight < 1 || c.MaxInFlight > 16 {
		errors = append(errors, "max_in_flight must be between 1 and 16")
	}
	if c.DecayInterval < 10*time.Millisecond {
		errors = append(errors, "decay_interval must be at least 10ms")
	}
	if c.LogEvery < 0 {
		errors = append(errors, "log_every must be >= 0")
	}
	if c.SubscriberBuffer < 1 {
		errors = append(errors, "subscriber_buffer must be >= 1")
	}

	return errors
}
