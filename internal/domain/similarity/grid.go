// Package similarity holds the image comparison primitives shared by the
// drift and fingerprint gates. Every comparison works on a small fixed
// downsample so its cost does not depend on the source resolution.
package similarity

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Downsample sizes used by the primitives.
const (
	HashSize    = 8
	PaletteSize = 16
	MSESize     = 32
	EdgeSize    = 64
)

// Grid is a row-major grid of luminance values in 0..255.
type Grid struct {
	W, H int
	Pix  []float64
}

// At returns the value at (x, y).
func (g Grid) At(x, y int) float64 {
	return g.Pix[y*g.W+x]
}

// Mean returns the average value.
func (g Grid) Mean() float64 {
	if len(g.Pix) == 0 {
		return 0
	}
	var sum float64
	for _, v := range g.Pix {
		sum += v
	}
	return sum / float64(len(g.Pix))
}

// Resize scales img to w×h with bilinear filtering.
func Resize(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Luminance returns the Rec. 601 luma of c on a 0..255 scale.
func Luminance(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257
}

// LuminanceGrid downsamples img and converts it to grayscale.
func LuminanceGrid(img image.Image, w, h int) Grid {
	small := Resize(img, w, h)
	g := Grid{W: w, H: h, Pix: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.Pix[y*w+x] = Luminance(small.At(x, y))
		}
	}
	return g
}

func usable(img image.Image) bool {
	return img != nil && !img.Bounds().Empty()
}
