package vision

import (
	"image"

	"golang.org/x/image/draw"
)

// Adaptive threshold defaults.
const (
	DefaultBlockRadius = 4
	DefaultBias        = 5
)

// ThresholdOptions configures adaptive local thresholding.
type ThresholdOptions struct {
	Radius int // neighborhood radius; the window is (2r+1)x(2r+1), clamped at edges
	Bias   int // subtracted from the local mean before comparison
}

// DefaultThresholdOptions returns radius 4, bias 5.
func DefaultThresholdOptions() ThresholdOptions {
	return ThresholdOptions{Radius: DefaultBlockRadius, Bias: DefaultBias}
}

// ToGray converts img to 8-bit luma with bounds starting at (0,0).
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// Preprocess binarizes img: a pixel becomes 255 when it is brighter than the
// integer mean of its neighborhood minus the bias, 0 otherwise. The result
// depends only on the input pixels.
func Preprocess(img image.Image, opts ThresholdOptions) *image.Gray {
	if opts.Radius < 0 {
		opts.Radius = 0
	}
	gray := ToGray(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}

	// Summed-area table padded by one row and column of zeros.
	iw := w + 1
	integral := make([]int64, iw*(h+1))
	for y := 0; y < h; y++ {
		var row int64
		src := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		for x := 0; x < w; x++ {
			row += int64(src[x])
			integral[(y+1)*iw+x+1] = integral[y*iw+x+1] + row
		}
	}

	r := opts.Radius
	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-r), min(h-1, y+r)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-r), min(w-1, x+r)
			sum := integral[(y1+1)*iw+x1+1] - integral[y0*iw+x1+1] - integral[(y1+1)*iw+x0] + integral[y0*iw+x0]
			count := int64((y1 - y0 + 1) * (x1 - x0 + 1))
			mean := int(sum / count)
			if int(gray.Pix[y*gray.Stride+x]) > mean-opts.Bias {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}
