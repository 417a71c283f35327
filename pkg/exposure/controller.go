package exposure

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/teslashibe/go-camctl/internal/log"
	"github.com/teslashibe/go-camctl/pkg/debug"
)

// NextISO runs one iteration of the control law.
//
// The correction is exponential in the signed error with a gain that grows
// with the squared error, so small errors barely move ISO and large ones swing
// it hard. The clamped result is blended into currentISO with cfg.Smoothing.
// At measured == cfg.Target the result is exactly currentISO.
func NextISO(cfg Config, measured float64, rng DeviceRange, currentISO float64) float64 {
	if math.IsNaN(measured) || math.IsNaN(currentISO) {
		return rng.ClampISO(currentISO)
	}

	e := cfg.Target - measured
	gain := math.Max(cfg.MinEffectiveGain, cfg.BaseGain*math.Pow(math.Abs(e), cfg.GainExponent))
	adjustment := math.Exp2(e * gain)

	raw := rng.ClampISO(currentISO * adjustment)
	smoothed := currentISO + (raw-currentISO)*cfg.Smoothing

	return rng.ClampISO(smoothed)
}

// Controller owns the exposure state and drives a Device.
// All methods are safe for concurrent use.
type Controller struct {
	mu     sync.Mutex
	cfg    Config
	device Device
	state  State
	logger *slog.Logger
}

// NewController creates a controller. device may be nil; every actuation then
// reports ErrDeviceUnavailable until SetDevice is called.
func NewController(cfg Config, device Device) *Controller {
	return &Controller{
		cfg:    cfg,
		device: device,
		logger: log.Component("exposure"),
	}
}

// SetDevice attaches or detaches (nil) the actuation target.
func (c *Controller) SetDevice(device Device) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.device = device
}

// Config returns the current control-loop parameters.
func (c *Controller) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// SetConfig replaces the control-loop parameters.
func (c *Controller) SetConfig(cfg Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
	return nil
}

// State returns the last successfully applied exposure state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Seed reads the device's current ISO and exposure into the controller state.
// Call once after the device is opened so the first Step starts from reality.
func (c *Controller) Seed() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dev, err := c.availableDevice()
	if err != nil {
		return err
	}
	c.state.ISO = dev.ISO()
	c.state.ExposureDuration = dev.ExposureDuration()
	return nil
}

// Step runs one control-loop iteration for a measured luminance and writes the
// new ISO to the device. It returns the ISO now in effect. On any error the
// device and state are unchanged and the previous ISO is returned.
func (c *Controller) Step(measured float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dev, err := c.availableDevice()
	if err != nil {
		return c.state.ISO, err
	}

	rng, err := dev.Range()
	if err != nil {
		return c.state.ISO, fmt.Errorf("exposure: query range: %w", err)
	}
	if err := rng.Validate(); err != nil {
		return c.state.ISO, err
	}

	current := dev.ISO()
	if current <= 0 {
		current = c.state.ISO
	}
	if current <= 0 {
		current = rng.MinISO
	}

	duration := c.state.ExposureDuration
	if duration <= 0 {
		duration = dev.ExposureDuration()
	}
	duration = rng.ClampExposure(duration)

	next := NextISO(c.cfg, measured, rng, current)

	err = withConfiguration(dev, func(d Device) error {
		return d.SetExposure(duration, next)
	})
	if err != nil {
		return c.state.ISO, err
	}

	c.state.ISO = next
	c.state.ExposureDuration = duration

	debug.ExposureLog("☀️  luminance=%.3f iso %.1f → %.1f\n", measured, current, next)
	return next, nil
}

// SetManual clamps the requested exposure duration and ISO into the device
// range and writes both in one actuation. It returns the clamped values.
func (c *Controller) SetManual(duration time.Duration, iso float64) (time.Duration, float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dev, err := c.availableDevice()
	if err != nil {
		return c.state.ExposureDuration, c.state.ISO, err
	}

	rng, err := dev.Range()
	if err != nil {
		return c.state.ExposureDuration, c.state.ISO, fmt.Errorf("exposure: query range: %w", err)
	}
	if err := rng.Validate(); err != nil {
		return c.state.ExposureDuration, c.state.ISO, err
	}

	d := rng.ClampExposure(duration)
	i := rng.ClampISO(iso)

	err = withConfiguration(dev, func(target Device) error {
		return target.SetExposure(d, i)
	})
	if err != nil {
		return c.state.ExposureDuration, c.state.ISO, err
	}

	c.state.ExposureDuration = d
	c.state.ISO = i
	c.logger.Info("manual exposure applied", "duration", d, "iso", i)

	return d, i, nil
}

// SetWhiteBalance maps (temperature, tint) to device gains, clamps every
// channel to [1.0, MaxWhiteBalanceGain], and writes them in one actuation.
func (c *Controller) SetWhiteBalance(temperature, tint float64) (Gains, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dev, err := c.availableDevice()
	if err != nil {
		return c.state.WhiteBalance, err
	}

	rng, err := dev.Range()
	if err != nil {
		return c.state.WhiteBalance, fmt.Errorf("exposure: query range: %w", err)
	}
	if err := rng.Validate(); err != nil {
		return c.state.WhiteBalance, err
	}

	raw, err := dev.GainsFor(temperature, tint)
	if err != nil {
		return c.state.WhiteBalance, fmt.Errorf("exposure: map white balance: %w", err)
	}
	gains := clampGains(raw, c.cfg.WhiteBalanceFloor, rng.MaxWhiteBalanceGain)

	err = withConfiguration(dev, func(d Device) error {
		return d.SetWhiteBalanceGains(gains)
	})
	if err != nil {
		return c.state.WhiteBalance, err
	}

	c.state.WhiteBalance = gains
	c.logger.Info("white balance applied",
		"temperature", temperature, "tint", tint,
		"red", gains.Red, "green", gains.Green, "blue", gains.Blue)

	return gains, nil
}

// availableDevice returns the attached device or ErrDeviceUnavailable.
// Caller must hold c.mu.
func (c *Controller) availableDevice() (Device, error) {
	if c.device == nil || !c.device.Available() {
		return nil, ErrDeviceUnavailable
	}
	return c.device, nil
}

// withConfiguration runs fn while holding the device's configuration lock.
// The lock is released on every path before returning.
func withConfiguration(dev Device, fn func(Device) error) error {
	release, err := dev.Lock()
	if err != nil {
		if errors.Is(err, ErrConfigurationLock) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrConfigurationLock, err)
	}
	defer release()

	if err := fn(dev); err != nil {
		return fmt.Errorf("exposure: actuate: %w", err)
	}
	return nil
}
