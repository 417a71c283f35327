package exposure

import "errors"

// Sentinel errors for actuation failures. None of these are fatal; the
// operation that returns one has left the device and controller state as they
// were.
var (
	// ErrDeviceUnavailable is returned when no actuation target is attached.
	ErrDeviceUnavailable = errors.New("exposure: device unavailable")

	// ErrConfigurationLock is returned when exclusive configuration access
	// to the device could not be acquired.
	ErrConfigurationLock = errors.New("exposure: configuration lock failed")

	// ErrInvalidRange is returned when the device reports an unusable range.
	ErrInvalidRange = errors.New("exposure: invalid device range")
)
