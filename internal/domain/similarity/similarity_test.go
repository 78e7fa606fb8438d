package similarity

import (
	"image"
	"image/color"
	"testing"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== TEST IMAGES =====

func solid(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// split paints the left half with left and the right half with right.
func split(left, right color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if x < 32 {
				img.Set(x, y, left)
			} else {
				img.Set(x, y, right)
			}
		}
	}
	return img
}

// outline draws a one pixel white square outline on black.
func outline(lo, hi int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.Black)
		}
	}
	for i := lo; i <= hi; i++ {
		img.Set(i, lo, color.White)
		img.Set(i, hi, color.White)
		img.Set(lo, i, color.White)
		img.Set(hi, i, color.White)
	}
	return img
}

func vline(x int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for i := 0; i < 64; i++ {
			img.Set(i, y, color.Black)
		}
		img.Set(x, y, color.White)
	}
	return img
}

// ===== AVERAGE HASH =====

func Test_AverageHash(t *testing.T) {
	a, ok := AverageHash(split(color.Black, color.White))
	require.True(t, ok)
	b, _ := AverageHash(split(color.Black, color.White))
	inv, _ := AverageHash(split(color.White, color.Black))

	assert.Equal(t, 0, HammingDistance(a, b), "identical images hash identically")
	assert.Greater(t, HammingDistance(a, inv), 48, "inverted halves differ in most bits")

	_, ok = AverageHash(nil)
	assert.False(t, ok)
}

func Test_HashSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, HashSimilarity(0), 1e-9)
	assert.InDelta(t, 0.5, HashSimilarity(32), 1e-9)
	assert.InDelta(t, 0.0, HashSimilarity(64), 1e-9)

	assert.InDelta(t, 0.4, LenientHashSimilarity(64), 1e-9)
	for d := 0; d <= 64; d++ {
		assert.GreaterOrEqual(t, LenientHashSimilarity(d), HashSimilarity(d))
	}
}

func Test_ByteStreamHash(t *testing.T) {
	_, ok := ByteStreamHash(nil)
	assert.False(t, ok)

	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i % 251)
	}
	h1, ok := ByteStreamHash(data)
	require.True(t, ok)
	h2, _ := ByteStreamHash(append([]byte(nil), data...))
	assert.Equal(t, h1, h2)

	// Short streams are sampled with repetition instead of failing.
	_, ok = ByteStreamHash([]byte{1, 2, 3})
	assert.True(t, ok)
}

// ===== MSE =====

func Test_MSESimilarity(t *testing.T) {
	same, ok := MSESimilarity(solid(color.White), solid(color.White))
	require.True(t, ok)
	assert.InDelta(t, 1.0, same, 1e-9)

	opposite, ok := MSESimilarity(solid(color.White), solid(color.Black))
	require.True(t, ok)
	assert.InDelta(t, 0.0, opposite, 1e-6)

	half, _ := MSESimilarity(split(color.Black, color.White), solid(color.White))
	assert.Greater(t, half, 0.3)
	assert.Less(t, half, 0.7)

	_, ok = MSESimilarity(nil, solid(color.White))
	assert.False(t, ok)
}

// ===== PALETTE =====

func Test_QuadrantPalette(t *testing.T) {
	palette, ok := QuadrantPalette(split(color.RGBA{R: 255, A: 255}, color.RGBA{B: 255, A: 255}))
	require.True(t, ok)
	require.Len(t, palette, 4)

	hex := PaletteHex(palette)
	assert.Equal(t, "#ff0000", hex[0], "top-left is red")
	assert.Equal(t, "#0000ff", hex[1], "top-right is blue")
	assert.Equal(t, hex[0], hex[2])
	assert.Equal(t, hex[1], hex[3])
}

func Test_PaletteSimilarity(t *testing.T) {
	red, err := ParsePalette([]string{"#ff0000", "#ff0000"})
	require.NoError(t, err)
	cyan, err := ParsePalette([]string{"#00ffff", "#00ffff"})
	require.NoError(t, err)

	s, ok := PaletteSimilarity(red, red)
	require.True(t, ok)
	assert.InDelta(t, 1.0, s, 1e-9)

	s, _ = PaletteSimilarity(red, cyan)
	assert.InDelta(t, 0.0, s, 1e-9, "opposite cube corners")

	_, ok = PaletteSimilarity(nil, red)
	assert.False(t, ok)

	_, err = ParsePalette([]string{"not-a-color"})
	assert.Error(t, err)
}

func Test_PaletteSimilarity_ComparesCommonPrefix(t *testing.T) {
	short := []colorful.Color{{R: 1}}
	long := []colorful.Color{{R: 1}, {B: 1}}
	s, ok := PaletteSimilarity(short, long)
	require.True(t, ok)
	assert.InDelta(t, 1.0, s, 1e-9)
}

// ===== EDGES =====

func Test_NCC(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.0, NCC(a, a), 1e-9)
	assert.InDelta(t, 1.0, NCC(a, []float64{2, 4, 6, 8}), 1e-9, "scale invariant")
	assert.InDelta(t, 0.0, NCC(a, []float64{4, 3, 2, 1}), 1e-9, "anti-correlation clamps to zero")
	assert.InDelta(t, 1.0, NCC([]float64{0, 0}, []float64{0, 0}), 1e-9)
	assert.InDelta(t, 0.0, NCC([]float64{0, 0}, []float64{1, 2}), 1e-9)
	assert.InDelta(t, 0.0, NCC(a, a[:2]), 1e-9)
}

func Test_StructuralSimilarity(t *testing.T) {
	s, ok := StructuralSimilarity(outline(16, 47), outline(16, 47))
	require.True(t, ok)
	assert.InDelta(t, 1.0, s, 1e-9)

	other, ok := StructuralSimilarity(outline(16, 47), vline(5))
	require.True(t, ok)
	assert.Less(t, other, s)

	_, ok = StructuralSimilarity(outline(16, 47), nil)
	assert.False(t, ok)
}

func Test_AlignEdges(t *testing.T) {
	aligned, ok := AlignEdges(outline(16, 47), outline(16, 47), DefaultAlignmentTolerance)
	require.True(t, ok)
	assert.Greater(t, aligned.F1, 0.9)
	assert.Positive(t, aligned.RenderEdges)
	assert.Positive(t, aligned.ControlEdges)

	drifted, ok := AlignEdges(outline(16, 47), vline(5), DefaultAlignmentTolerance)
	require.True(t, ok)
	assert.Less(t, drifted.F1, DefaultAlignmentThreshold)

	_, ok = AlignEdges(nil, vline(5), 1)
	assert.False(t, ok)
}
