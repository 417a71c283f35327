// Package brightness reduces a frame to a single luminance value.
package brightness

import (
	"image"
)

// Rec. 601 luma weights.
const (
	WeightR = 0.299
	WeightG = 0.587
	WeightB = 0.114
)

// Luma converts normalized channel values (0-1) to luminance.
func Luma(r, g, b float64) float64 {
	return WeightR*r + WeightG*g + WeightB*b
}

// Estimator computes the area-average luminance of a frame.
type Estimator struct {
	// Stride samples every Nth pixel in each direction.
	// 0 or 1 averages every pixel.
	Stride int
}

// Default is the exact full-frame estimator.
var Default = Estimator{Stride: 1}

// Estimate returns the luminance of img using the default estimator.
func Estimate(img image.Image) float64 {
	return Default.Estimate(img)
}

// Estimate averages each color channel over the full frame extent and
// converts the mean color to luma. Nil or empty images return 0.
func (e Estimator) Estimate(img image.Image) float64 {
	if img == nil {
		return 0
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return 0
	}

	step := e.Stride
	if step < 1 {
		step = 1
	}

	r, g, bl, ok := meanRGB(img, b, step)
	if !ok {
		return 0
	}
	return clamp01(Luma(r, g, bl))
}

// MeanRGB returns the normalized per-channel mean of img.
// ok is false for degenerate extents.
func MeanRGB(img image.Image) (r, g, b float64, ok bool) {
	if img == nil {
		return 0, 0, 0, false
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return 0, 0, 0, false
	}
	return meanRGB(img, bounds, 1)
}

func meanRGB(img image.Image, b image.Rectangle, step int) (float64, float64, float64, bool) {
	var rSum, gSum, bSum uint64
	var n uint64

	switch src := img.(type) {
	case *image.RGBA:
		for y := b.Min.Y; y < b.Max.Y; y += step {
			row := src.Pix[src.PixOffset(b.Min.X, y):]
			for x := 0; x < b.Dx(); x += step {
				i := x * 4
				rSum += uint64(row[i])
				gSum += uint64(row[i+1])
				bSum += uint64(row[i+2])
				n++
			}
		}
		return norm8(rSum, n), norm8(gSum, n), norm8(bSum, n), n > 0

	case *image.NRGBA:
		// Alpha is ignored; frames from a capture device are opaque.
		for y := b.Min.Y; y < b.Max.Y; y += step {
			row := src.Pix[src.PixOffset(b.Min.X, y):]
			for x := 0; x < b.Dx(); x += step {
				i := x * 4
				rSum += uint64(row[i])
				gSum += uint64(row[i+1])
				bSum += uint64(row[i+2])
				n++
			}
		}
		return norm8(rSum, n), norm8(gSum, n), norm8(bSum, n), n > 0

	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y += step {
			row := src.Pix[src.PixOffset(b.Min.X, y):]
			for x := 0; x < b.Dx(); x += step {
				rSum += uint64(row[x])
				n++
			}
		}
		v := norm8(rSum, n)
		return v, v, v, n > 0
	}

	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r, g, bl, _ := img.At(x, y).RGBA()
			rSum += uint64(r)
			gSum += uint64(g)
			bSum += uint64(bl)
			n++
		}
	}
	return norm16(rSum, n), norm16(gSum, n), norm16(bSum, n), n > 0
}

func norm8(sum, n uint64) float64 {
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n) / 255.0
}

func norm16(sum, n uint64) float64 {
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n) / 65535.0
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
