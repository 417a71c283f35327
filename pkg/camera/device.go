package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-camctl/internal/log"
	"github.com/teslashibe/go-camctl/pkg/exposure"
	"gocv.io/x/gocv"
)

// V4L2 takes CAP_PROP_AUTO_EXPOSURE as 0.25 for manual and 0.75 for auto.
const (
	autoExposureManual = 0.25
	autoExposureAuto   = 0.75
)

// Backends take exposure in 100 us units and white balance as integer
// U/V components.
const (
	exposureUnit   = 100 * time.Microsecond
	whiteBalanceUV = 1000.0
)

var errClosed = errors.New("camera: device closed")

// Device is a gocv capture device. It is both the frame source and the
// exposure.Device the controller actuates.
type Device struct {
	config Config
	rng    exposure.DeviceRange

	capMu sync.Mutex // serializes VideoCapture access between Read and Set
	cap   *gocv.VideoCapture

	cfgMu sync.Mutex // exclusive configuration access, see Lock

	// Last written values, used when the backend has no readback
	iso      atomic.Uint64 // math.Float64bits
	duration atomic.Int64

	seq     atomic.Uint64
	dropped atomic.Uint64
	closed  atomic.Bool

	logger *slog.Logger
}

var _ exposure.Device = (*Device)(nil)

// Open starts capture on cfg.DeviceID and disables the backend's own
// auto exposure.
func Open(cfg Config) (*Device, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid camera config: %v", errs)
	}

	vc, err := gocv.VideoCaptureDevice(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.DeviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open camera %d: %w", cfg.DeviceID, exposure.ErrDeviceUnavailable)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))
	vc.Set(gocv.VideoCaptureBufferSize, float64(cfg.BufferSize))
	vc.Set(gocv.VideoCaptureAutoExposure, autoExposureManual)

	d := &Device{
		config: cfg,
		rng:    DefaultRange(),
		cap:    vc,
		logger: log.Component("camera"),
	}
	d.iso.Store(math.Float64bits(DefaultManualSettings().ISO))
	d.duration.Store(int64(DefaultManualSettings().ExposureDuration))

	d.logger.Info("camera opened",
		"device", cfg.DeviceID,
		"width", vc.Get(gocv.VideoCaptureFrameWidth),
		"height", vc.Get(gocv.VideoCaptureFrameHeight),
		"fps", vc.Get(gocv.VideoCaptureFPS))

	return d, nil
}

// Frames starts the capture loop and returns its output. The channel holds
// at most BufferSize frames; when the consumer falls behind the oldest
// pending frame is dropped. The channel closes when ctx is done or the
// device stops delivering frames.
func (d *Device) Frames(ctx context.Context) <-chan Frame {
	out := make(chan Frame, d.config.BufferSize)

	go func() {
		defer close(out)

		mat := gocv.NewMat()
		defer mat.Close()

		failures := 0
		for ctx.Err() == nil {
			d.capMu.Lock()
			ok := !d.closed.Load() && d.cap.Read(&mat)
			d.capMu.Unlock()

			if !ok || mat.Empty() {
				if d.closed.Load() {
					return
				}
				failures++
				if failures > 50 {
					d.logger.Error("camera stopped delivering frames")
					return
				}
				time.Sleep(10 * time.Millisecond)
				continue
			}
			failures = 0

			img, err := mat.ToImage()
			if err != nil {
				d.logger.Warn("frame conversion failed", "error", err)
				continue
			}

			frame := Frame{Image: img, Timestamp: time.Now(), Seq: d.seq.Add(1)}
			select {
			case out <- frame:
				continue
			default:
			}

			// Full: drop the oldest pending frame, then retry once
			select {
			case <-out:
				d.dropped.Add(1)
			default:
			}
			select {
			case out <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// Dropped returns how many frames were discarded because the consumer was slow.
func (d *Device) Dropped() uint64 {
	return d.dropped.Load()
}

// Close stops capture and releases the device.
func (d *Device) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	d.capMu.Lock()
	defer d.capMu.Unlock()

	// Hand exposure back to the backend for the next user
	d.cap.Set(gocv.VideoCaptureAutoExposure, autoExposureAuto)
	return d.cap.Close()
}

// Available reports whether the device is open.
func (d *Device) Available() bool {
	if d == nil || d.closed.Load() {
		return false
	}
	d.capMu.Lock()
	defer d.capMu.Unlock()
	return d.cap.IsOpened()
}

// Range returns the actuation bounds. VideoCapture exposes no query for
// control limits, so this is DefaultRange for every backend; it is read on
// each call and fails once the device is closed.
func (d *Device) Range() (exposure.DeviceRange, error) {
	if d.closed.Load() {
		return exposure.DeviceRange{}, errClosed
	}
	return d.rng, nil
}

// Lock acquires exclusive configuration access without blocking.
func (d *Device) Lock() (func(), error) {
	if !d.cfgMu.TryLock() {
		return nil, exposure.ErrConfigurationLock
	}
	return d.cfgMu.Unlock, nil
}

// SetExposure writes exposure and ISO back to back under the capture lock,
// so no frame is read between the two.
func (d *Device) SetExposure(duration time.Duration, iso float64) error {
	if d.closed.Load() {
		return errClosed
	}

	d.capMu.Lock()
	d.cap.Set(gocv.VideoCaptureExposure, float64(duration)/float64(exposureUnit))
	d.cap.Set(gocv.VideoCaptureISOSpeed, iso)
	d.capMu.Unlock()

	d.duration.Store(int64(duration))
	d.iso.Store(math.Float64bits(iso))
	return nil
}

// ISO reads the backend ISO, falling back to the last written value when
// the backend does not report one or the device is closed.
func (d *Device) ISO() float64 {
	if d.closed.Load() {
		return math.Float64frombits(d.iso.Load())
	}

	d.capMu.Lock()
	v := d.cap.Get(gocv.VideoCaptureISOSpeed)
	d.capMu.Unlock()

	if v > 0 {
		return v
	}
	return math.Float64frombits(d.iso.Load())
}

// ExposureDuration reads the backend exposure, falling back to the last
// written value.
func (d *Device) ExposureDuration() time.Duration {
	if d.closed.Load() {
		return time.Duration(d.duration.Load())
	}

	d.capMu.Lock()
	v := d.cap.Get(gocv.VideoCaptureExposure)
	d.capMu.Unlock()

	if v > 0 {
		return time.Duration(v * float64(exposureUnit))
	}
	return time.Duration(d.duration.Load())
}

// GainsFor maps temperature and tint with GainsForTemperature.
func (d *Device) GainsFor(temperature, tint float64) (exposure.Gains, error) {
	return GainsForTemperature(temperature, tint), nil
}

// SetWhiteBalanceGains writes red and blue relative to green.
func (d *Device) SetWhiteBalanceGains(g exposure.Gains) error {
	if d.closed.Load() {
		return errClosed
	}
	if g.Green <= 0 {
		return fmt.Errorf("camera: invalid green gain %g", g.Green)
	}

	d.capMu.Lock()
	defer d.capMu.Unlock()
	d.cap.Set(gocv.VideoCaptureWhiteBalanceRedV, g.Red/g.Green*whiteBalanceUV)
	d.cap.Set(gocv.VideoCaptureWhiteBalanceBlueU, g.Blue/g.Green*whiteBalanceUV)
	return nil
}
