package similarity

import (
	"image"
	"math/bits"
)

// AverageHash returns the 64-bit average hash of img: an 8×8 luminance grid
// binarized against its own mean. The second value is false when img is
// unusable.
func AverageHash(img image.Image) (uint64, bool) {
	if !usable(img) {
		return 0, false
	}
	g := LuminanceGrid(img, HashSize, HashSize)
	return binarize(g.Pix, g.Mean()), true
}

func binarize(samples []float64, mean float64) uint64 {
	var h uint64
	for i, v := range samples {
		if i >= 64 {
			break
		}
		if v > mean {
			h |= 1 << uint(i)
		}
	}
	return h
}

// HammingDistance counts the differing bits of two hashes.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// HashSimilarity maps a Hamming distance to 0..1 as 1 - d/64.
func HashSimilarity(distance int) float64 {
	return clamp01(1 - float64(distance)/64)
}

// LenientHashSimilarity is the mapping for panels that are expected to look
// different from the reference (plans, sections, site diagrams). A fully
// inverted hash still scores 0.4.
func LenientHashSimilarity(distance int) float64 {
	return clamp01(1 - 0.6*float64(distance)/64)
}

// ByteStreamHash samples 64 evenly spaced bytes of data and binarizes them
// against their mean. It is the coarse fallback when only encoded bytes are
// available. The second value is false for empty input.
func ByteStreamHash(data []byte) (uint64, bool) {
	if len(data) == 0 {
		return 0, false
	}
	samples := make([]float64, 64)
	var sum float64
	for i := range samples {
		v := float64(data[i*len(data)/64])
		samples[i] = v
		sum += v
	}
	return binarize(samples, sum/64), true
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
