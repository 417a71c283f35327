package camera

import (
	"image"
	"time"
)

// Frame is one captured image. Consumers must not retain it past the
// iteration that received it; the source may reuse buffers.
type Frame struct {
	Image     image.Image
	Timestamp time.Time
	Seq       uint64
}

// Bounds returns the frame's pixel bounds, or an empty rectangle when the
// frame carries no image.
func (f Frame) Bounds() image.Rectangle {
	if f.Image == nil {
		return image.Rectangle{}
	}
	return f.Image.Bounds()
}
