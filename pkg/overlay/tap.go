package overlay

import (
	"context"
	"image"
	"sync/atomic"

	"github.com/teslashibe/go-camctl/pkg/camera"
	"github.com/teslashibe/go-camctl/pkg/pipeline"
)

// FrameTap passes frames through from a source while remembering the latest
// image, so a render sink can draw on the frame the pipeline last saw.
type FrameTap struct {
	source pipeline.FrameSource
	latest atomic.Pointer[image.Image]
}

// NewFrameTap wraps source.
func NewFrameTap(source pipeline.FrameSource) *FrameTap {
	return &FrameTap{source: source}
}

// Frames forwards every frame from the wrapped source.
func (t *FrameTap) Frames(ctx context.Context) <-chan camera.Frame {
	in := t.source.Frames(ctx)
	out := make(chan camera.Frame)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case f, ok := <-in:
				if !ok {
					return
				}
				if f.Image != nil {
					img := f.Image
					t.latest.Store(&img)
				}
				select {
				case out <- f:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// Latest returns the most recent frame image, or nil before the first frame.
func (t *FrameTap) Latest() image.Image {
	if p := t.latest.Load(); p != nil {
		return *p
	}
	return nil
}

// Dropped forwards the wrapped source's drop count when it keeps one.
func (t *FrameTap) Dropped() uint64 {
	if dc, ok := t.source.(interface{ Dropped() uint64 }); ok {
		return dc.Dropped()
	}
	return 0
}
