package camera

import (
	"math"

	"github.com/teslashibe/go-camctl/pkg/exposure"
)

// GainsForTemperature maps an illuminant temperature (K) and tint to
// per-channel gains that neutralize it.
//
// The illuminant color comes from a curve fit of the Planckian locus in
// sRGB. Gains are the reciprocal of that color, with tint scaling green
// (positive tint is magenta, so green is cut), then normalized so the
// smallest gain is 1.0.
func GainsForTemperature(temperature, tint float64) exposure.Gains {
	r, g, b := illuminantRGB(temperature)

	gains := exposure.Gains{
		Red:   1 / r,
		Green: (1 / g) * (1 - tint/400),
		Blue:  1 / b,
	}

	lowest := math.Min(gains.Red, math.Min(gains.Green, gains.Blue))
	gains.Red /= lowest
	gains.Green /= lowest
	gains.Blue /= lowest
	return gains
}

// illuminantRGB returns the 0-255 color of a black body at kelvin.
func illuminantRGB(kelvin float64) (r, g, b float64) {
	t := math.Max(1000, math.Min(40000, kelvin)) / 100

	if t <= 66 {
		r = 255
		g = 99.4708025861*math.Log(t) - 161.1195681661
	} else {
		r = 329.698727446 * math.Pow(t-60, -0.1332047592)
		g = 288.1221695283 * math.Pow(t-60, -0.0755148492)
	}

	switch {
	case t >= 66:
		b = 255
	case t <= 19:
		b = 0
	default:
		b = 138.5177312231*math.Log(t-10) - 305.0447927307
	}

	return channel(r), channel(g), channel(b)
}

// channel clamps to [1, 255] so reciprocals stay finite.
func channel(v float64) float64 {
	return math.Max(1, math.Min(255, v))
}
