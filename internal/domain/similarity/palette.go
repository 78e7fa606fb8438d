package similarity

import (
	"fmt"
	"image"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// QuadrantPalette returns the average color of each quadrant of img in the
// order top-left, top-right, bottom-left, bottom-right.
func QuadrantPalette(img image.Image) ([]colorful.Color, bool) {
	if !usable(img) {
		return nil, false
	}
	small := Resize(img, PaletteSize, PaletteSize)
	half := PaletteSize / 2
	palette := make([]colorful.Color, 0, 4)
	for _, origin := range [][2]int{{0, 0}, {half, 0}, {0, half}, {half, half}} {
		var r, g, b float64
		for y := origin[1]; y < origin[1]+half; y++ {
			for x := origin[0]; x < origin[0]+half; x++ {
				px := small.RGBAAt(x, y)
				r += float64(px.R)
				g += float64(px.G)
				b += float64(px.B)
			}
		}
		n := float64(half * half * 255)
		palette = append(palette, colorful.Color{R: r / n, G: g / n, B: b / n})
	}
	return palette, true
}

// PaletteHex renders colors as #rrggbb strings.
func PaletteHex(colors []colorful.Color) []string {
	out := make([]string, len(colors))
	for i, c := range colors {
		out[i] = c.Clamped().Hex()
	}
	return out
}

// ParsePalette parses #rrggbb strings.
func ParsePalette(hex []string) ([]colorful.Color, error) {
	out := make([]colorful.Color, 0, len(hex))
	for _, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("invalid palette color %q: %w", h, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// PaletteSimilarity compares two palettes entry by entry using Euclidean
// RGB distance normalized by the unit cube diagonal. Only the common prefix
// is compared; the second value is false when either palette is empty.
func PaletteSimilarity(a, b []colorful.Color) (float64, bool) {
	n := min(len(a), len(b))
	if n == 0 {
		return 0, false
	}
	var total float64
	for i := 0; i < n; i++ {
		total += a[i].DistanceRgb(b[i]) / math.Sqrt(3)
	}
	return clamp01(1 - total/float64(n)), true
}
