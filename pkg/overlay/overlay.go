// Package overlay renders pipeline snapshots on top of camera frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/teslashibe/go-camctl/pkg/detection"
	"github.com/teslashibe/go-camctl/pkg/pipeline"
	"gocv.io/x/gocv"
)

// Style controls overlay colors and sizes.
type Style struct {
	BoxColor  color.RGBA
	TextColor color.RGBA
	Thickness int
	FontScale float64
	LineGap   int
}

// DefaultStyle returns green boxes with white text.
func DefaultStyle() Style {
	return Style{
		BoxColor:  color.RGBA{0, 255, 0, 255},
		TextColor: color.RGBA{255, 255, 255, 255},
		Thickness: 2,
		FontScale: 0.6,
		LineGap:   22,
	}
}

// PixelRect maps a normalized box onto a width x height frame.
func PixelRect(r detection.Rect, width, height int) image.Rectangle {
	return r.ToPixels(width, height)
}

// PixelRects maps every box, dropping those that collapse to nothing.
func PixelRects(boxes []detection.Rect, width, height int) []image.Rectangle {
	out := make([]image.Rectangle, 0, len(boxes))
	for _, b := range boxes {
		if px := PixelRect(b, width, height); !px.Empty() {
			out = append(out, px)
		}
	}
	return out
}

// Lines returns the status text for snap, top to bottom.
func Lines(snap pipeline.Snapshot) []string {
	lines := []string{
		fmt.Sprintf("%s | ISO %.0f | %s | L %.2f",
			snap.Mode, snap.ISO, formatExposure(snap.ExposureDuration), snap.Luminance),
	}

	switch snap.Mode {
	case pipeline.ModeAlgo:
		ae := "manual"
		if snap.AutoExposure {
			ae = "auto"
		}
		lines = append(lines,
			fmt.Sprintf("exposure %s | WB %.2f %.2f %.2f",
				ae, snap.WhiteBalance.Red, snap.WhiteBalance.Green, snap.WhiteBalance.Blue),
			fmt.Sprintf("scene RGB %.2f %.2f %.2f", snap.Scene.Red, snap.Scene.Green, snap.Scene.Blue))
		if m := snap.Manual; m != nil {
			lines = append(lines, fmt.Sprintf("set ISO %.0f | %s | %.0fK | tint %+.0f",
				m.ISO, formatExposure(m.ExposureDuration), m.Temperature, m.Tint))
		}
	default:
		if !snap.Ready {
			lines = append(lines, "loading model...")
		} else {
			lines = append(lines, fmt.Sprintf("objects %d", len(snap.Boxes)))
		}
	}

	return lines
}

func formatExposure(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d >= time.Second/2 {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("1/%.0f", 1/d.Seconds())
}

// Draw paints snap onto mat in place. Boxes are drawn only in vision mode;
// an empty box list draws nothing.
func Draw(mat *gocv.Mat, snap pipeline.Snapshot, style Style) {
	if mat == nil || mat.Empty() {
		return
	}

	if snap.Mode != pipeline.ModeAlgo {
		for _, r := range PixelRects(snap.Boxes, mat.Cols(), mat.Rows()) {
			gocv.Rectangle(mat, r, style.BoxColor, style.Thickness)
		}
	}

	for i, line := range Lines(snap) {
		pt := image.Pt(10, style.LineGap*(i+1))
		gocv.PutText(mat, line, pt, gocv.FontHersheySimplex, style.FontScale, style.TextColor, 1)
	}
}
