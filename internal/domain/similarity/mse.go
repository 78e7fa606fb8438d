package similarity

import "image"

const maxSquaredError = 255.0 * 255.0

// LuminanceMSE returns the mean squared error between the 32×32 luminance
// grids of a and b.
func LuminanceMSE(a, b image.Image) (float64, bool) {
	if !usable(a) || !usable(b) {
		return 0, false
	}
	ga := LuminanceGrid(a, MSESize, MSESize)
	gb := LuminanceGrid(b, MSESize, MSESize)
	var sum float64
	for i := range ga.Pix {
		d := ga.Pix[i] - gb.Pix[i]
		sum += d * d
	}
	return sum / float64(len(ga.Pix)), true
}

// MSESimilarity converts LuminanceMSE to 0..1, 1 meaning identical.
func MSESimilarity(a, b image.Image) (float64, bool) {
	mse, ok := LuminanceMSE(a, b)
	if !ok {
		return 0, false
	}
	return clamp01(1 - mse/maxSquaredError), true
}
