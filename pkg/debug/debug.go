// Package debug holds global verbose-trace flags for the frame loop.
// These are far noisier than the structured logger and are off by default.
package debug

import "fmt"

// Enabled turns on general per-frame trace output.
var Enabled bool

// Exposure turns on one line per controller step (luminance, ISO in/out).
var Exposure bool

// Detection turns on one line per detector completion.
var Detection bool

// Log prints a message only if debug mode is enabled
func Log(format string, args ...interface{}) {
	if Enabled {
		fmt.Printf(format, args...)
	}
}

// ExposureLog prints a message only if exposure tracing is enabled
func ExposureLog(format string, args ...interface{}) {
	if Exposure || Enabled {
		fmt.Printf(format, args...)
	}
}

// DetectionLog prints a message only if detection tracing is enabled
func DetectionLog(format string, args ...interface{}) {
	if Detection || Enabled {
		fmt.Printf(format, args...)
	}
}
