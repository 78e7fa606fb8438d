package similarity

import "image"

const (
	// DefaultAlignmentThreshold is the minimum F1 for a rendered view to be
	// considered aligned with its geometry line art.
	DefaultAlignmentThreshold = 0.65
	// DefaultAlignmentTolerance is the dilation radius in grid pixels.
	DefaultAlignmentTolerance = 1

	renderEdgeFraction = 0.25
	controlEdgeLevel   = 127
)

// EdgeAlignment is the tolerant match between a render's edges and the
// control line art it was conditioned on.
type EdgeAlignment struct {
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
	RenderEdges    int     `json:"renderEdges"`
	ControlEdges   int     `json:"controlEdges"`
	MatchedRender  int     `json:"matchedRender"`
	MatchedControl int     `json:"matchedControl"`
}

// AlignEdges compares the Sobel edges of render with the bright strokes of
// control at 64×64. An edge pixel matches when the other map has an edge
// within tolerance pixels.
func AlignEdges(render, control image.Image, tolerance int) (EdgeAlignment, bool) {
	if !usable(render) || !usable(control) {
		return EdgeAlignment{}, false
	}
	if tolerance < 0 {
		tolerance = 0
	}

	renderEdges := thresholdRelative(sobel(LuminanceGrid(render, EdgeSize, EdgeSize)), renderEdgeFraction)
	controlGrid := LuminanceGrid(control, EdgeSize, EdgeSize)
	controlEdges := make([]bool, len(controlGrid.Pix))
	for i, v := range controlGrid.Pix {
		controlEdges[i] = v > controlEdgeLevel
	}

	renderDil := dilate(renderEdges, EdgeSize, EdgeSize, tolerance)
	controlDil := dilate(controlEdges, EdgeSize, EdgeSize, tolerance)

	var a EdgeAlignment
	for i := range renderEdges {
		if renderEdges[i] {
			a.RenderEdges++
			if controlDil[i] {
				a.MatchedRender++
			}
		}
		if controlEdges[i] {
			a.ControlEdges++
			if renderDil[i] {
				a.MatchedControl++
			}
		}
	}

	a.Precision = float64(a.MatchedRender) / float64(max(a.RenderEdges, 1))
	a.Recall = float64(a.MatchedControl) / float64(max(a.ControlEdges, 1))
	if a.Precision+a.Recall > 0 {
		a.F1 = 2 * a.Precision * a.Recall / (a.Precision + a.Recall)
	}
	return a, true
}

func thresholdRelative(mag []float64, fraction float64) []bool {
	var peak float64
	for _, v := range mag {
		peak = max(peak, v)
	}
	out := make([]bool, len(mag))
	if peak == 0 {
		return out
	}
	for i, v := range mag {
		out[i] = v >= peak*fraction
	}
	return out
}

func dilate(mask []bool, w, h, radius int) []bool {
	if radius == 0 {
		return append([]bool(nil), mask...)
	}
	out := make([]bool, len(mask))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y*w+x] {
				continue
			}
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					nx, ny := x+dx, y+dy
					if nx >= 0 && nx < w && ny >= 0 && ny < h {
						out[ny*w+nx] = true
					}
				}
			}
		}
	}
	return out
}
