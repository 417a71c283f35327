package exposure

// ClampGains limits each channel to [1.0, maxGain].
// The floor is fixed at 1.0 regardless of what the device would accept.
func ClampGains(g Gains, maxGain float64) Gains {
	return clampGains(g, 1.0, maxGain)
}

func clampGains(g Gains, floor, maxGain float64) Gains {
	if maxGain < floor {
		maxGain = floor
	}
	return Gains{
		Red:   clamp(g.Red, floor, maxGain),
		Green: clamp(g.Green, floor, maxGain),
		Blue:  clamp(g.Blue, floor, maxGain),
	}
}
