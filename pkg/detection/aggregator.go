package detection

import (
	"sync"
	"time"
)

// Window defaults.
const (
	DefaultRetention = 3 * time.Second
	DefaultCapacity  = 10
)

// DetectedBox is a box stamped with the time it was ingested.
type DetectedBox struct {
	Rect      Rect
	Timestamp time.Time
}

// AggregatorConfig bounds the detection window.
type AggregatorConfig struct {
	Retention time.Duration `json:"retention" yaml:"retention"` // Boxes this old are dropped
	Capacity  int           `json:"capacity" yaml:"capacity"`   // Max boxes retained
}

// DefaultAggregatorConfig returns a 3 second, 10 box window.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		Retention: DefaultRetention,
		Capacity:  DefaultCapacity,
	}
}

// Aggregator is a bounded sliding window over recent detections.
//
// It is a temporal buffer only: no confidence filtering, deduplication or
// merging. Elements are kept oldest first. After every Ingest or Evict the
// window holds at most Capacity boxes, none older than Retention.
type Aggregator struct {
	mu     sync.Mutex
	config AggregatorConfig
	window []DetectedBox
}

// NewAggregator creates an empty window. Non-positive config fields fall back
// to the defaults.
func NewAggregator(config AggregatorConfig) *Aggregator {
	if config.Retention <= 0 {
		config.Retention = DefaultRetention
	}
	if config.Capacity <= 0 {
		config.Capacity = DefaultCapacity
	}
	return &Aggregator{
		config: config,
		window: make([]DetectedBox, 0, config.Capacity+1),
	}
}

// Config returns the window bounds.
func (a *Aggregator) Config() AggregatorConfig {
	return a.config
}

// Ingest appends rects stamped with now and evicts against the same now,
// as one step. An empty rects slice only evicts.
func (a *Aggregator) Ingest(rects []Rect, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range rects {
		a.window = append(a.window, DetectedBox{Rect: r, Timestamp: now})
	}
	a.evictLocked(now)
}

// Evict drops every box aged Retention or more, then drops the oldest boxes
// until at most Capacity remain.
func (a *Aggregator) Evict(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.evictLocked(now)
}

func (a *Aggregator) evictLocked(now time.Time) {
	kept := a.window[:0]
	for _, b := range a.window {
		if now.Sub(b.Timestamp) < a.config.Retention {
			kept = append(kept, b)
		}
	}
	a.window = kept

	if over := len(a.window) - a.config.Capacity; over > 0 {
		a.window = append(a.window[:0], a.window[over:]...)
	}
}

// CurrentBoxes returns the retained boxes, oldest first.
// The result is never nil.
func (a *Aggregator) CurrentBoxes() []Rect {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Rect, len(a.window))
	for i, b := range a.window {
		out[i] = b.Rect
	}
	return out
}

// Boxes returns a copy of the retained boxes with their timestamps.
func (a *Aggregator) Boxes() []DetectedBox {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]DetectedBox, len(a.window))
	copy(out, a.window)
	return out
}

// Len returns the number of retained boxes.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.window)
}

// Clear removes all boxes.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.window = a.window[:0]
}
