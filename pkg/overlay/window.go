package overlay

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-camctl/pkg/pipeline"
)

// Window is a desktop render sink. gocv windows must be driven from the
// main goroutine.
type Window struct {
	win   *gocv.Window
	style Style
}

// NewWindow opens a named window.
func NewWindow(name string) *Window {
	return &Window{
		win:   gocv.NewWindow(name),
		style: DefaultStyle(),
	}
}

// Show draws snap over img and displays it.
func (w *Window) Show(img image.Image, snap pipeline.Snapshot) error {
	if img == nil || img.Bounds().Empty() {
		return nil
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	Draw(&mat, snap, w.style)
	w.win.IMShow(mat)
	return nil
}

// WaitKey pumps window events for up to ms milliseconds and returns the
// pressed key, or -1.
func (w *Window) WaitKey(ms int) int {
	return w.win.WaitKey(ms)
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}
