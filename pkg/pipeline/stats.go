package pipeline

import "sync/atomic"

// Stats are cumulative pipeline counters.
type Stats struct {
	Frames         uint64 `json:"frames"`
	FramesDropped  uint64 `json:"frames_dropped"`
	StepErrors     uint64 `json:"step_errors"`
	DetectLaunched uint64 `json:"detect_launched"`
	DetectSkipped  uint64 `json:"detect_skipped"`
	DetectErrors   uint64 `json:"detect_errors"`
	BoxesIngested  uint64 `json:"boxes_ingested"`
}

type counters struct {
	frames         atomic.Uint64
	stepErrors     atomic.Uint64
	detectLaunched atomic.Uint64
	detectSkipped  atomic.Uint64
	detectErrors   atomic.Uint64
	boxesIngested  atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Frames:         c.frames.Load(),
		StepErrors:     c.stepErrors.Load(),
		DetectLaunched: c.detectLaunched.Load(),
		DetectSkipped:  c.detectSkipped.Load(),
		DetectErrors:   c.detectErrors.Load(),
		BoxesIngested:  c.boxesIngested.Load(),
	}
}
