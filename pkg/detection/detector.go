// Package detection provides object detection and the temporal smoothing
// that turns noisy per-frame detections into a stable set of display boxes.
package detection

import (
	"context"
	"image"
)

// Rect is an axis-aligned box in normalized frame coordinates (0-1).
// X, Y is the top-left corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Center returns the center point of the box
func (r Rect) Center() (x, y float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Area returns the normalized area of the box
func (r Rect) Area() float64 {
	return r.W * r.H
}

// Clamp returns the box intersected with the unit square.
func (r Rect) Clamp() Rect {
	x1, y1 := clamp01(r.X), clamp01(r.Y)
	x2, y2 := clamp01(r.X+r.W), clamp01(r.Y+r.H)
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// ToPixels maps the box onto a frame of the given size.
func (r Rect) ToPixels(width, height int) image.Rectangle {
	c := r.Clamp()
	return image.Rect(
		int(c.X*float64(width)),
		int(c.Y*float64(height)),
		int((c.X+c.W)*float64(width)),
		int((c.Y+c.H)*float64(height)),
	)
}

// Detection is one raw detector output.
type Detection struct {
	Rect
	Confidence float64 // Detection confidence (0-1)
	ClassID    int     // COCO class ID
	ClassName  string  // Human-readable class name
}

// Detector is the interface for object detection backends.
// Implementations must be safe for concurrent Detect calls.
type Detector interface {
	// Detect finds objects in the frame and returns normalized boxes
	Detect(ctx context.Context, frame image.Image) ([]Detection, error)

	// Close releases resources
	Close() error
}

// Rects strips detections down to their boxes.
func Rects(dets []Detection) []Rect {
	out := make([]Rect, len(dets))
	for i, d := range dets {
		out[i] = d.Rect
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
