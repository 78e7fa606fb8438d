package similarity

import (
	"image"
	"math"
)

// EdgeProfile returns the Sobel gradient magnitude of img's 64×64 luminance
// grid. Border pixels are zero.
func EdgeProfile(img image.Image) ([]float64, bool) {
	if !usable(img) {
		return nil, false
	}
	return sobel(LuminanceGrid(img, EdgeSize, EdgeSize)), true
}

func sobel(g Grid) []float64 {
	out := make([]float64, g.W*g.H)
	for y := 1; y < g.H-1; y++ {
		for x := 1; x < g.W-1; x++ {
			gx := -g.At(x-1, y-1) - 2*g.At(x-1, y) - g.At(x-1, y+1) +
				g.At(x+1, y-1) + 2*g.At(x+1, y) + g.At(x+1, y+1)
			gy := -g.At(x-1, y-1) - 2*g.At(x, y-1) - g.At(x+1, y-1) +
				g.At(x-1, y+1) + 2*g.At(x, y+1) + g.At(x+1, y+1)
			out[y*g.W+x] = math.Hypot(gx, gy)
		}
	}
	return out
}

// NCC returns the normalized cross-correlation of two equal-length profiles,
// clamped to 0..1. Two flat profiles are identical when their values match.
func NCC(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	n := float64(len(a))
	var ma, mb float64
	for i := range a {
		ma += a[i]
		mb += b[i]
	}
	ma /= n
	mb /= n

	var cov, va, vb float64
	for i := range a {
		da, db := a[i]-ma, b[i]-mb
		cov += da * db
		va += da * da
		vb += db * db
	}
	if va == 0 || vb == 0 {
		if va == vb && ma == mb {
			return 1
		}
		return 0
	}
	return clamp01(cov / math.Sqrt(va*vb))
}

// StructuralSimilarity compares the edge profiles of a and b.
func StructuralSimilarity(a, b image.Image) (float64, bool) {
	pa, ok := EdgeProfile(a)
	if !ok {
		return 0, false
	}
	pb, ok := EdgeProfile(b)
	if !ok {
		return 0, false
	}
	return NCC(pa, pb), true
}
